package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"care-inventory-backend/internal/clock"
	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/logger"
	"care-inventory-backend/internal/repository"
)

type loanService struct {
	tx       repository.Transactor
	loanRepo repository.LoanRepository
	itemRepo repository.ItemRepository
	userRepo repository.UserRepository
	recorder *recorder
	clock    clock.Clock
}

func NewLoanService(
	tx repository.Transactor,
	loanRepo repository.LoanRepository,
	itemRepo repository.ItemRepository,
	userRepo repository.UserRepository,
	eventRepo repository.EventRepository,
	clk clock.Clock,
) LoanService {
	return &loanService{
		tx:       tx,
		loanRepo: loanRepo,
		itemRepo: itemRepo,
		userRepo: userRepo,
		recorder: &recorder{events: eventRepo, clock: clk},
		clock:    clk,
	}
}

func validateLoanInput(in CreateLoanInput) error {
	if strings.TrimSpace(in.UserID) == "" {
		return invalidInput("user id is required")
	}
	if len(in.ItemIDs) == 0 {
		return invalidInput("a loan needs at least one item")
	}
	seen := make(map[string]bool, len(in.ItemIDs))
	for _, id := range in.ItemIDs {
		if id == "" {
			return invalidInput("item id must not be empty")
		}
		if seen[id] {
			return invalidInput("item %s listed more than once", id)
		}
		seen[id] = true
	}
	start, err := time.Parse(domain.DateLayout, in.StartDate)
	if err != nil {
		return invalidInput("start date %q is not YYYY-MM-DD", in.StartDate)
	}
	end, err := time.Parse(domain.DateLayout, in.ExpectedEndDate)
	if err != nil {
		return invalidInput("expected end date %q is not YYYY-MM-DD", in.ExpectedEndDate)
	}
	if end.Before(start) {
		return invalidInput("expected end date is before start date")
	}
	return nil
}

// sortedIDs returns the ids in lock order. Touching item rows in one global
// order keeps concurrent multi-item loans from deadlocking.
func sortedIDs(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func (s *loanService) CreateLoan(ctx context.Context, in CreateLoanInput) (*domain.Loan, error) {
	logger.EnterMethod("loanService.CreateLoan", "userID", in.UserID, "items", len(in.ItemIDs))

	if err := validateLoanInput(in); err != nil {
		return nil, exitWithError("loanService.CreateLoan", err)
	}

	var loan *domain.Loan
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		user, err := s.userRepo.GetForShare(ctx, in.UserID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		l := &domain.Loan{
			ID:              newID(),
			UserID:          user.ID,
			UserName:        user.Name,
			StartDate:       in.StartDate,
			ExpectedEndDate: in.ExpectedEndDate,
			Status:          domain.LoanStatusActive,
			Notes:           in.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		for _, itemID := range in.ItemIDs {
			l.Items = append(l.Items, domain.LoanItem{ID: newID(), LoanID: l.ID, ItemID: itemID, Quantity: 1})
		}
		if err := s.loanRepo.Create(ctx, l); err != nil {
			return err
		}

		for _, itemID := range sortedIDs(in.ItemIDs) {
			if _, err := s.itemRepo.Reserve(ctx, itemID, 1); err != nil {
				return err
			}
		}

		drafts := []draft{{
			typ: domain.EventLoanCreated,
			payload: domain.LoanCreatedPayload{
				LoanID:          l.ID,
				UserID:          user.ID,
				Items:           in.ItemIDs,
				StartDate:       l.StartDate,
				ExpectedEndDate: l.ExpectedEndDate,
			},
			loanID: strPtr(l.ID),
			userID: strPtr(user.ID),
		}}
		for _, itemID := range in.ItemIDs {
			drafts = append(drafts, draft{
				typ:     domain.EventStockReserved,
				payload: domain.StockMovementPayload{ItemID: itemID, Quantity: 1, LoanID: l.ID},
				loanID:  strPtr(l.ID),
			})
		}
		if err := s.recorder.record(ctx, drafts...); err != nil {
			return err
		}

		loan, err = s.loanRepo.GetByID(ctx, l.ID)
		return err
	})
	if err != nil {
		return nil, exitWithError("loanService.CreateLoan", err, "userID", in.UserID)
	}

	logger.ExitMethod("loanService.CreateLoan", "loanID", loan.ID)
	return loan, nil
}

func (s *loanService) ReturnLoan(ctx context.Context, loanID string, condition, notes *string) (*domain.Loan, error) {
	logger.EnterMethod("loanService.ReturnLoan", "loanID", loanID)

	var loan *domain.Loan
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		loan, err = s.loanRepo.MarkReturned(ctx, loanID, clock.Today(s.clock), notes)
		if err != nil {
			return err
		}

		itemIDs := loan.ItemIDs()
		for _, itemID := range sortedIDs(itemIDs) {
			if _, err := s.itemRepo.Release(ctx, itemID, 1); err != nil {
				return err
			}
		}

		drafts := make([]draft, 0, len(itemIDs)+1)
		for _, itemID := range itemIDs {
			drafts = append(drafts, draft{
				typ:     domain.EventStockReleased,
				payload: domain.StockMovementPayload{ItemID: itemID, Quantity: 1, LoanID: loan.ID},
				loanID:  strPtr(loan.ID),
			})
		}
		drafts = append(drafts, draft{
			typ:     domain.EventLoanReturned,
			payload: domain.LoanReturnedPayload{LoanID: loan.ID, Condition: condition, Notes: loan.Notes},
			loanID:  strPtr(loan.ID),
		})
		return s.recorder.record(ctx, drafts...)
	})
	if err != nil {
		return nil, exitWithError("loanService.ReturnLoan", err, "loanID", loanID)
	}

	logger.ExitMethod("loanService.ReturnLoan", "loanID", loanID)
	return loan, nil
}

// CancelReturn reopens a returned loan and reserves its items again. It fails
// with ErrInsufficientStock when another loan took the released units.
func (s *loanService) CancelReturn(ctx context.Context, loanID string, reason *string) (*domain.Loan, error) {
	logger.EnterMethod("loanService.CancelReturn", "loanID", loanID)

	var loan *domain.Loan
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		loan, err = s.loanRepo.Reopen(ctx, loanID)
		if err != nil {
			return err
		}

		itemIDs := loan.ItemIDs()
		for _, itemID := range sortedIDs(itemIDs) {
			if _, err := s.itemRepo.Reserve(ctx, itemID, 1); err != nil {
				return err
			}
		}

		drafts := make([]draft, 0, len(itemIDs)+1)
		for _, itemID := range itemIDs {
			drafts = append(drafts, draft{
				typ: domain.EventStockReserved,
				payload: domain.StockMovementPayload{
					ItemID:   itemID,
					Quantity: 1,
					LoanID:   loan.ID,
					Reason:   domain.ReasonReturnCancelled,
				},
				loanID: strPtr(loan.ID),
			})
		}
		drafts = append(drafts, draft{
			typ: domain.EventReturnCancelled,
			payload: domain.ReturnCancelledPayload{
				LoanID:      loan.ID,
				Reason:      reason,
				CancelledAt: s.clock.Now().UTC().Format(time.RFC3339),
			},
			loanID: strPtr(loan.ID),
		})
		return s.recorder.record(ctx, drafts...)
	})
	if err != nil {
		return nil, exitWithError("loanService.CancelReturn", err, "loanID", loanID)
	}

	logger.ExitMethod("loanService.CancelReturn", "loanID", loanID)
	return loan, nil
}

func (s *loanService) SweepOverdue(ctx context.Context) (int64, error) {
	today := clock.Today(s.clock)
	logger.EnterMethod("loanService.SweepOverdue", "today", today)

	n, err := s.loanRepo.MarkOverdue(ctx, today)
	if err != nil {
		return 0, exitWithError("loanService.SweepOverdue", err)
	}

	logger.ExitMethod("loanService.SweepOverdue", "marked", n)
	return n, nil
}

func (s *loanService) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	return s.loanRepo.GetByID(ctx, id)
}

func (s *loanService) ListLoans(ctx context.Context, filter domain.LoanFilter) ([]domain.Loan, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalidInput("unknown loan status %q", filter.Status)
	}
	return s.loanRepo.List(ctx, filter)
}

func (s *loanService) ListActiveLoans(ctx context.Context) ([]domain.Loan, error) {
	return s.loanRepo.List(ctx, domain.LoanFilter{Status: domain.LoanStatusActive})
}

func (s *loanService) ListOverdueLoans(ctx context.Context) ([]domain.Loan, error) {
	return s.loanRepo.List(ctx, domain.LoanFilter{Status: domain.LoanStatusOverdue})
}
