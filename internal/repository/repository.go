package repository

import (
	"context"

	"care-inventory-backend/internal/domain"
)

// Transactor runs fn inside a single storage transaction. Repositories called
// with the ctx passed to fn participate in that transaction. Nested calls reuse
// the outer transaction. A non-nil error from fn rolls everything back.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	// GetForUpdate reads the item and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Item, error)
	List(ctx context.Context) ([]domain.Item, error)
	Search(ctx context.Context, query string) ([]domain.Item, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	UpdateStock(ctx context.Context, id string, total, available int32) (*domain.Item, error)

	// Reserve decrements available stock only if at least qty units are
	// available. Returns ErrInsufficientStock or ErrNotFound otherwise.
	Reserve(ctx context.Context, id string, qty int32) (*domain.Item, error)
	// Release increments available stock only if it stays within total stock.
	// Returns ErrInvalidState or ErrNotFound otherwise.
	Release(ctx context.Context, id string, qty int32) (*domain.Item, error)
}

type UserRepository interface {
	// Create returns ErrConflict when the national id is taken.
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetForShare reads the user and blocks its deletion until the transaction ends.
	GetForShare(ctx context.Context, id string) (*domain.User, error)
	// GetForUpdate reads the user and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.User, error)
	// Update writes only the supplied fields. Returns ErrConflict on national id collision.
	Update(ctx context.Context, id string, changes domain.UserChanges) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.User, error)
	Search(ctx context.Context, query string) ([]domain.User, error)
}

type LoanRepository interface {
	// Create inserts the loan and its item associations.
	Create(ctx context.Context, loan *domain.Loan) error
	GetByID(ctx context.Context, id string) (*domain.Loan, error)
	// List returns loans newest first.
	List(ctx context.Context, filter domain.LoanFilter) ([]domain.Loan, error)

	// MarkReturned moves an active or overdue loan to returned. Notes are
	// replaced only when non-nil. Returns ErrInvalidTransition or ErrNotFound.
	MarkReturned(ctx context.Context, id, endDate string, notes *string) (*domain.Loan, error)
	// Reopen moves a returned loan back to active and clears its end date.
	Reopen(ctx context.Context, id string) (*domain.Loan, error)
	// MarkOverdue moves every active loan with expected end date before today to overdue.
	MarkOverdue(ctx context.Context, today string) (int64, error)
	CountOpenByUser(ctx context.Context, userID string) (int64, error)
}

type EventRepository interface {
	// Tail returns the sequence and hash of the newest event, zero values when
	// the log is empty. Inside a transaction it serializes concurrent appenders
	// until commit.
	Tail(ctx context.Context) (int64, string, error)
	Append(ctx context.Context, event *domain.Event) error
	// List returns events newest first.
	List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
	// ListAscending returns up to limit events with sequence greater than afterSeq, oldest first.
	ListAscending(ctx context.Context, afterSeq int64, limit int) ([]domain.Event, error)
}

type DashboardRepository interface {
	Counts(ctx context.Context) (*domain.DashboardCounts, error)
}
