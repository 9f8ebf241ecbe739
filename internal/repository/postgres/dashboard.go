package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/repository"
)

type dashboardRepository struct {
	db *sql.DB
}

func NewDashboardRepository(db *sql.DB) repository.DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) Counts(ctx context.Context) (*domain.DashboardCounts, error) {
	query := `SELECT
	              (SELECT COUNT(*) FROM loans WHERE status = 'active'),
	              (SELECT COUNT(*) FROM loans WHERE status IN ('active', 'overdue')),
	              (SELECT COUNT(*) FROM loans WHERE status = 'overdue'),
	              (SELECT COALESCE(SUM(available_stock), 0) FROM items),
	              (SELECT COUNT(*) FROM users)`
	c := &domain.DashboardCounts{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query).Scan(&c.ActiveLoans, &c.PendingReturns, &c.OverdueLoans, &c.TotalItemsAvailable, &c.TotalUsers)
	if err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}
	return c, nil
}
