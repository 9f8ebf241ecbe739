package grpc

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// inventoryFile mirrors api/proto/careinventory/v1/inventory.proto so that
// server reflection can describe InventoryService.
func inventoryFile() *descriptorpb.FileDescriptorProto {
	empty := "." + string((&emptypb.Empty{}).ProtoReflect().Descriptor().FullName())
	strct := "." + string((&structpb.Struct{}).ProtoReflect().Descriptor().FullName())
	rpc := func(name, in, out string) *descriptorpb.MethodDescriptorProto {
		return &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(name),
			InputType:  proto.String(in),
			OutputType: proto.String(out),
		}
	}

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(InventoryServiceDesc.Metadata.(string)),
		Package: proto.String("careinventory.v1"),
		Dependency: []string{
			emptypb.File_google_protobuf_empty_proto.Path(),
			structpb.File_google_protobuf_struct_proto.Path(),
		},
		Syntax:  proto.String("proto3"),
		Options: &descriptorpb.FileOptions{GoPackage: proto.String("care-inventory-backend/internal/api/grpc")},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("InventoryService"),
			Method: []*descriptorpb.MethodDescriptorProto{
				rpc("GetDashboard", empty, strct),
				rpc("ListEvents", strct, strct),
				rpc("VerifyEventChain", empty, strct),
				rpc("SweepOverdue", empty, strct),
			},
		}},
	}
}

func registerInventoryFile(files *protoregistry.Files) error {
	fd, err := protodesc.NewFile(inventoryFile(), files)
	if err != nil {
		return fmt.Errorf("build inventory descriptor: %w", err)
	}
	return files.RegisterFile(fd)
}

func init() {
	if err := registerInventoryFile(protoregistry.GlobalFiles); err != nil {
		panic(err)
	}
}
