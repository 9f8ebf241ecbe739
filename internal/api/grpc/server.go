package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"care-inventory-backend/internal/api/grpc/interceptor"
	"care-inventory-backend/internal/security"
)

// NewServer builds the gRPC server with the inventory service, health checks
// and reflection for grpcurl. tm may be nil to disable authentication.
func NewServer(handler InventoryServer, tm security.TokenManager) (*grpc.Server, *health.Server) {
	authInterceptor := interceptor.NewAuthInterceptor(tm)
	s := grpc.NewServer(
		grpc.UnaryInterceptor(authInterceptor.Unary()),
	)

	RegisterInventoryServer(s, handler)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(InventoryServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthSrv)

	reflection.Register(s)
	return s, healthSrv
}
