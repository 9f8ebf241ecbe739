package postgres

import (
	"database/sql"

	"care-inventory-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	repository.Transactor
	Items     repository.ItemRepository
	Users     repository.UserRepository
	Loans     repository.LoanRepository
	Events    repository.EventRepository
	Dashboard repository.DashboardRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		Transactor: &transactor{db: db},
		Items:      NewItemRepository(db),
		Users:      NewUserRepository(db),
		Loans:      NewLoanRepository(db),
		Events:     NewEventRepository(db),
		Dashboard:  NewDashboardRepository(db),
	}
}

// NewTransactor returns a Transactor whose transactions are visible to every
// repository built on the same db.
func NewTransactor(db *sql.DB) repository.Transactor {
	return &transactor{db: db}
}
