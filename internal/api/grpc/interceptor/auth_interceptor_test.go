package interceptor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"care-inventory-backend/internal/security"
)

const (
	dashboardMethod = "/careinventory.v1.InventoryService/GetDashboard"
	sweepMethod     = "/careinventory.v1.InventoryService/SweepOverdue"
	healthMethod    = "/grpc.health.v1.Health/Check"
)

func call(t *testing.T, i *AuthInterceptor, ctx context.Context, method string) (string, error) {
	t.Helper()
	var staff string
	_, err := i.Unary()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method}, func(ctx context.Context, req interface{}) (interface{}, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		if v := md.Get(StaffMetadataKey); len(v) > 0 {
			staff = v[0]
		}
		return nil, nil
	})
	return staff, err
}

func withToken(token string, extra ...string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(append([]string{"authorization", "Bearer " + token}, extra...)...))
}

func TestAuthInterceptor(t *testing.T) {
	tm := security.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	i := NewAuthInterceptor(tm)
	operator, err := tm.GenerateToken("desk-1", security.RoleOperator)
	require.NoError(t, err)
	viewer, err := tm.GenerateToken("auditor", security.RoleViewer)
	require.NoError(t, err)

	t.Run("Public without token", func(t *testing.T) {
		_, err := call(t, i, context.Background(), healthMethod)
		assert.NoError(t, err)
	})

	t.Run("Missing metadata", func(t *testing.T) {
		_, err := call(t, i, context.Background(), dashboardMethod)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("Invalid token", func(t *testing.T) {
		_, err := call(t, i, withToken("garbage"), dashboardMethod)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("Viewer reads", func(t *testing.T) {
		staff, err := call(t, i, withToken(viewer), dashboardMethod)
		require.NoError(t, err)
		assert.Equal(t, "auditor", staff)
	})

	t.Run("Viewer cannot write", func(t *testing.T) {
		_, err := call(t, i, withToken(viewer), sweepMethod)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("Unknown methods need operator", func(t *testing.T) {
		_, err := call(t, i, withToken(viewer), "/careinventory.v1.InventoryService/Unlisted")
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("Client supplied subject is replaced", func(t *testing.T) {
		staff, err := call(t, i, withToken(operator, StaffMetadataKey, "someone-else"), sweepMethod)
		require.NoError(t, err)
		assert.Equal(t, "desk-1", staff)
	})
}

func TestAuthInterceptor_Disabled(t *testing.T) {
	_, err := call(t, NewAuthInterceptor(nil), context.Background(), sweepMethod)
	assert.NoError(t, err)
}
