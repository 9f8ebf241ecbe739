package grpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"care-inventory-backend/internal/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w: loan x", domain.ErrNotFound), codes.NotFound},
		{domain.ErrConflict, codes.AlreadyExists},
		{domain.ErrInsufficientStock, codes.FailedPrecondition},
		{domain.ErrInvalidTransition, codes.FailedPrecondition},
		{domain.ErrInvalidState, codes.FailedPrecondition},
		{domain.ErrInvalidInput, codes.InvalidArgument},
		{status.Error(codes.Unavailable, "down"), codes.Unavailable},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(MapError(tt.err)), tt.err.Error())
	}
	assert.NoError(t, MapError(nil))
}

func TestEventFilterFromStruct(t *testing.T) {
	req, err := structpb.NewStruct(map[string]any{"type": "LOAN_CREATED", "loan_id": "l-1", "limit": 5})
	assert.NoError(t, err)

	assert.Equal(t, domain.EventFilter{Type: domain.EventLoanCreated, LoanID: "l-1", Limit: 5}, eventFilterFromStruct(req))
	assert.Equal(t, domain.EventFilter{}, eventFilterFromStruct(nil))
}
