package grpc

import (
	"errors"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// toStruct converts a domain value to a protobuf Struct through its JSON form,
// so both transports expose the same field names.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

func eventFilterFromStruct(req *structpb.Struct) domain.EventFilter {
	fields := req.GetFields()
	return domain.EventFilter{
		Type:   domain.EventType(fields["type"].GetStringValue()),
		LoanID: fields["loan_id"].GetStringValue(),
		UserID: fields["user_id"].GetStringValue(),
		Limit:  int(fields["limit"].GetNumberValue()),
	}
}

// MapError converts service errors to gRPC status errors.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidState):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	logger.Error("Unexpected service error", "error", err)
	return status.Error(codes.Internal, "internal error")
}
