package service

import (
	"context"

	"care-inventory-backend/internal/domain"
)

type CreateItemInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Icon        string `json:"icon"`
	TotalStock  int32  `json:"total_stock"`
	Notes       string `json:"notes"`
}

type ItemService interface {
	CreateItem(ctx context.Context, in CreateItemInput) (*domain.Item, error)
	SetTotalStock(ctx context.Context, itemID string, newTotal int32) (*domain.Item, error)
	Reserve(ctx context.Context, itemID string, qty int32) (*domain.Item, error)
	Release(ctx context.Context, itemID string, qty int32) (*domain.Item, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	ListItems(ctx context.Context) ([]domain.Item, error)
	SearchItems(ctx context.Context, query string) ([]domain.Item, error)
	AddDefaultItems(ctx context.Context) ([]domain.Item, error)
	DefaultCatalog() []domain.CatalogEntry
}

type CreateUserInput struct {
	Name       string  `json:"name"`
	NationalID string  `json:"national_id"`
	Address    string  `json:"address"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// UpdateUserInput carries a partial update. Nil fields are left unchanged.
type UpdateUserInput = domain.UserChanges

type UserService interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	SearchUsers(ctx context.Context, query string) ([]domain.User, error)
}

type CreateLoanInput struct {
	UserID          string   `json:"user_id"`
	ItemIDs         []string `json:"item_ids"`
	StartDate       string   `json:"start_date"`
	ExpectedEndDate string   `json:"expected_end_date"`
	Notes           *string  `json:"notes,omitempty"`
}

type LoanService interface {
	CreateLoan(ctx context.Context, in CreateLoanInput) (*domain.Loan, error)
	ReturnLoan(ctx context.Context, loanID string, condition, notes *string) (*domain.Loan, error)
	CancelReturn(ctx context.Context, loanID string, reason *string) (*domain.Loan, error)
	// SweepOverdue marks active loans past their expected end date as overdue
	// and returns how many changed. It records no events.
	SweepOverdue(ctx context.Context) (int64, error)
	GetLoan(ctx context.Context, id string) (*domain.Loan, error)
	ListLoans(ctx context.Context, filter domain.LoanFilter) ([]domain.Loan, error)
	ListActiveLoans(ctx context.Context) ([]domain.Loan, error)
	ListOverdueLoans(ctx context.Context) ([]domain.Loan, error)
}

type DashboardService interface {
	GetStats(ctx context.Context) (*domain.DashboardStats, error)
}

type EventService interface {
	ListRecent(ctx context.Context, limit int) ([]domain.Event, error)
	ListByLoan(ctx context.Context, loanID string) ([]domain.Event, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Event, error)
	List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
	VerifyChain(ctx context.Context) (*domain.ChainReport, error)
}
