package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"care-inventory-backend/internal/clock"
	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/eventlog"
	"care-inventory-backend/internal/logger"
	"care-inventory-backend/internal/repository"
)

func newID() string {
	return uuid.NewString()
}

// draft is an event waiting to be sealed onto the chain.
type draft struct {
	typ     domain.EventType
	payload any
	loanID  *string
	userID  *string
}

// recorder appends audit events. It must run inside the transaction of the
// mutation it describes, after every row change of that mutation.
type recorder struct {
	events repository.EventRepository
	clock  clock.Clock
}

func (r *recorder) record(ctx context.Context, drafts ...draft) error {
	if len(drafts) == 0 {
		return nil
	}
	seq, prev, err := r.events.Tail(ctx)
	if err != nil {
		return err
	}
	now := eventlog.Normalize(r.clock.Now())
	for _, d := range drafts {
		data, err := eventlog.Encode(d.payload)
		if err != nil {
			return err
		}
		e := &domain.Event{
			ID:        newID(),
			Type:      d.typ,
			Data:      data,
			CreatedAt: now,
			LoanID:    d.loanID,
			UserID:    d.userID,
		}
		if err := eventlog.Seal(e, seq, prev); err != nil {
			return fmt.Errorf("seal %s event: %w", d.typ, err)
		}
		if err := r.events.Append(ctx, e); err != nil {
			return err
		}
		seq, prev = e.Sequence, e.Hash
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}

// isExpected reports whether err is a business rule rejection rather than a failure.
func isExpected(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound,
		domain.ErrConflict,
		domain.ErrInsufficientStock,
		domain.ErrInvalidTransition,
		domain.ErrInvalidState,
		domain.ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func exitWithError(method string, err error, args ...any) error {
	logger.ExitMethodWithError(method, err, isExpected(err), args...)
	return err
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}
