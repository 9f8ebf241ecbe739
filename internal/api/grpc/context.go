package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"care-inventory-backend/internal/api/grpc/interceptor"
)

// GetStaffFromContext extracts the staff subject from the gRPC metadata.
func GetStaffFromContext(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	staff := md.Get(interceptor.StaffMetadataKey)
	if len(staff) == 0 || staff[0] == "" {
		return "", status.Errorf(codes.Unauthenticated, "staff subject is not provided in metadata")
	}
	return staff[0], nil
}
