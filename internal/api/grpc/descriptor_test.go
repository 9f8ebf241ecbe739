package grpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

func TestInventoryDescriptorMatchesServiceDesc(t *testing.T) {
	d, err := protoregistry.GlobalFiles.FindDescriptorByName(protoreflect.FullName(InventoryServiceName))
	require.NoError(t, err)

	svc, ok := d.(protoreflect.ServiceDescriptor)
	require.True(t, ok)
	assert.Equal(t, InventoryServiceDesc.Metadata, svc.ParentFile().Path())

	methods := svc.Methods()
	require.Equal(t, len(InventoryServiceDesc.Methods), methods.Len())
	for _, m := range InventoryServiceDesc.Methods {
		md := methods.ByName(protoreflect.Name(m.MethodName))
		require.NotNil(t, md, m.MethodName)
		assert.Equal(t, protoreflect.FullName("google.protobuf.Struct"), md.Output().FullName())
	}
	assert.Equal(t, protoreflect.FullName("google.protobuf.Struct"), methods.ByName("ListEvents").Input().FullName())
	assert.Equal(t, protoreflect.FullName("google.protobuf.Empty"), methods.ByName("GetDashboard").Input().FullName())
}
