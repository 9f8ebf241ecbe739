package service

import (
	"context"

	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/eventlog"
	"care-inventory-backend/internal/logger"
	"care-inventory-backend/internal/repository"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 1000
	verifyPageSize    = 500
)

type eventService struct {
	eventRepo repository.EventRepository
}

func NewEventService(eventRepo repository.EventRepository) EventService {
	return &eventService{eventRepo: eventRepo}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultEventLimit
	}
	if limit > maxEventLimit {
		return maxEventLimit
	}
	return limit
}

func (s *eventService) ListRecent(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.eventRepo.List(ctx, domain.EventFilter{Limit: clampLimit(limit)})
}

func (s *eventService) ListByLoan(ctx context.Context, loanID string) ([]domain.Event, error) {
	if loanID == "" {
		return nil, invalidInput("loan id is required")
	}
	return s.eventRepo.List(ctx, domain.EventFilter{LoanID: loanID, Limit: maxEventLimit})
}

func (s *eventService) ListByUser(ctx context.Context, userID string) ([]domain.Event, error) {
	if userID == "" {
		return nil, invalidInput("user id is required")
	}
	return s.eventRepo.List(ctx, domain.EventFilter{UserID: userID, Limit: maxEventLimit})
}

func (s *eventService) List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, invalidInput("unknown event type %q", filter.Type)
	}
	filter.Limit = clampLimit(filter.Limit)
	return s.eventRepo.List(ctx, filter)
}

// VerifyChain walks the whole log oldest first and stops at the first event
// that does not link to its predecessor. A broken chain is reported, not
// returned as an error.
func (s *eventService) VerifyChain(ctx context.Context) (*domain.ChainReport, error) {
	logger.EnterMethod("eventService.VerifyChain")

	v := &eventlog.Verifier{}
	var after int64
	var chainErr error
	for chainErr == nil {
		page, err := s.eventRepo.ListAscending(ctx, after, verifyPageSize)
		if err != nil {
			return nil, exitWithError("eventService.VerifyChain", err)
		}
		for i := range page {
			if chainErr = v.Check(&page[i]); chainErr != nil {
				break
			}
		}
		if len(page) < verifyPageSize {
			break
		}
		after = page[len(page)-1].Sequence
	}

	report := v.Report(chainErr)
	if !report.Valid {
		logger.Warn("Event chain verification failed", "brokenAt", report.BrokenAt, "reason", report.Reason)
	}
	logger.ExitMethod("eventService.VerifyChain", "checked", report.Checked, "valid", report.Valid)
	return &report, nil
}
