package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/logger"
	"care-inventory-backend/internal/repository"
)

const loanColumns = `id, user_id, user_name, start_date, expected_end_date, actual_end_date, status, notes, created_at, updated_at`

type loanRepository struct {
	db *sql.DB
}

func NewLoanRepository(db *sql.DB) repository.LoanRepository {
	return &loanRepository{db: db}
}

func scanLoan(row interface{ Scan(...any) error }) (*domain.Loan, error) {
	l := &domain.Loan{}
	var userID, notes sql.NullString
	var startDate, expectedEndDate sql.NullTime
	var actualEndDate sql.NullTime
	var status string
	if err := row.Scan(&l.ID, &userID, &l.UserName, &startDate, &expectedEndDate, &actualEndDate, &status, &notes, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.UserID = userID.String
	l.StartDate = startDate.Time.Format(domain.DateLayout)
	l.ExpectedEndDate = expectedEndDate.Time.Format(domain.DateLayout)
	if actualEndDate.Valid {
		d := actualEndDate.Time.Format(domain.DateLayout)
		l.ActualEndDate = &d
	}
	l.Status = domain.LoanStatus(status)
	l.Notes = nullString(notes)
	l.Items = []domain.LoanItem{}
	return l, nil
}

func (r *loanRepository) Create(ctx context.Context, l *domain.Loan) error {
	db := conn(ctx, r.db)

	query := `INSERT INTO loans (id, user_id, user_name, start_date, expected_end_date, actual_end_date, status, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	logger.DatabaseCall("loans.Create", query, "loan_id", l.ID, "items", len(l.Items))
	_, err := db.ExecContext(ctx, query, l.ID, l.UserID, l.UserName, l.StartDate, l.ExpectedEndDate, l.ActualEndDate, l.Status, l.Notes, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		logger.DatabaseResult("loans.Create", 0, err)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: loan %s already exists", domain.ErrConflict, l.ID)
		}
		if isForeignKeyViolation(err) || isInvalidUUID(err) {
			return fmt.Errorf("%w: user %s", domain.ErrNotFound, l.UserID)
		}
		return fmt.Errorf("create loan: %w", err)
	}

	ids := make([]string, len(l.Items))
	itemIDs := make([]string, len(l.Items))
	for i, li := range l.Items {
		ids[i] = li.ID
		itemIDs[i] = li.ItemID
	}
	itemsQuery := `INSERT INTO loan_items (id, loan_id, item_id, position, quantity)
	               SELECT u.id, $1, u.item_id, u.position, 1
	               FROM unnest($2::uuid[], $3::uuid[]) WITH ORDINALITY AS u(id, item_id, position)`
	res, err := db.ExecContext(ctx, itemsQuery, l.ID, pq.Array(ids), pq.Array(itemIDs))
	if err != nil {
		logger.DatabaseResult("loans.Create", 0, err)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: item listed twice in loan %s", domain.ErrInvalidInput, l.ID)
		}
		if isForeignKeyViolation(err) || isInvalidUUID(err) {
			return fmt.Errorf("%w: loan references an unknown item", domain.ErrNotFound)
		}
		return fmt.Errorf("create loan items: %w", err)
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("loans.Create", n+1, nil)
	return nil
}

func (r *loanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	l, err := scanLoan(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
			return nil, fmt.Errorf("%w: loan %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get loan: %w", err)
	}
	if err := r.attachItems(ctx, []*domain.Loan{l}); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *loanRepository) List(ctx context.Context, f domain.LoanFilter) ([]domain.Loan, error) {
	var where []string
	var args []any
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}

	query := `SELECT ` + loanColumns + ` FROM loans`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return []domain.Loan{}, nil
		}
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var loans []*domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}

	if err := r.attachItems(ctx, loans); err != nil {
		return nil, err
	}

	result := make([]domain.Loan, 0, len(loans))
	for _, l := range loans {
		result = append(result, *l)
	}
	return result, nil
}

// attachItems loads the item associations of loans in their original order.
func (r *loanRepository) attachItems(ctx context.Context, loans []*domain.Loan) error {
	if len(loans) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Loan, len(loans))
	ids := make([]string, 0, len(loans))
	for _, l := range loans {
		byID[l.ID] = l
		ids = append(ids, l.ID)
	}

	query := `SELECT li.id, li.loan_id, li.item_id, i.name, li.quantity
	          FROM loan_items li JOIN items i ON i.id = li.item_id
	          WHERE li.loan_id = ANY($1::uuid[])
	          ORDER BY li.loan_id, li.position`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list loan items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var li domain.LoanItem
		if err := rows.Scan(&li.ID, &li.LoanID, &li.ItemID, &li.ItemName, &li.Quantity); err != nil {
			return fmt.Errorf("scan loan item: %w", err)
		}
		if l, ok := byID[li.LoanID]; ok {
			l.Items = append(l.Items, li)
		}
	}
	return rows.Err()
}

func (r *loanRepository) MarkReturned(ctx context.Context, id, endDate string, notes *string) (*domain.Loan, error) {
	query := `UPDATE loans SET status = 'returned', actual_end_date = $2, notes = COALESCE($3, notes), updated_at = NOW()
	          WHERE id = $1 AND status IN ('active', 'overdue')`
	if err := r.transition(ctx, "loans.MarkReturned", query, id, endDate, notes); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *loanRepository) Reopen(ctx context.Context, id string) (*domain.Loan, error) {
	query := `UPDATE loans SET status = 'active', actual_end_date = NULL, updated_at = NOW()
	          WHERE id = $1 AND status = 'returned'`
	if err := r.transition(ctx, "loans.Reopen", query, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// transition runs a status update guarded on the current status. When the
// guard matches nothing it tells a missing loan from a forbidden transition.
func (r *loanRepository) transition(ctx context.Context, op, query, id string, args ...any) error {
	logger.DatabaseCall(op, query, "loan_id", id)
	res, err := conn(ctx, r.db).ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		logger.DatabaseResult(op, 0, err)
		if isInvalidUUID(err) {
			return fmt.Errorf("%w: loan %s", domain.ErrNotFound, id)
		}
		return fmt.Errorf("update loan status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update loan status: %w", err)
	}
	logger.DatabaseResult(op, n, nil)
	if n == 1 {
		return nil
	}

	var status string
	err = conn(ctx, r.db).QueryRowContext(ctx, `SELECT status FROM loans WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: loan %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("check loan status: %w", err)
	}
	return fmt.Errorf("%w: loan %s is %s", domain.ErrInvalidTransition, id, status)
}

func (r *loanRepository) MarkOverdue(ctx context.Context, today string) (int64, error) {
	query := `UPDATE loans SET status = 'overdue', updated_at = NOW()
	          WHERE status = 'active' AND expected_end_date < $1`
	logger.DatabaseCall("loans.MarkOverdue", query, "today", today)
	res, err := conn(ctx, r.db).ExecContext(ctx, query, today)
	if err != nil {
		logger.DatabaseResult("loans.MarkOverdue", 0, err)
		return 0, fmt.Errorf("mark overdue loans: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark overdue loans: %w", err)
	}
	logger.DatabaseResult("loans.MarkOverdue", n, nil)
	return n, nil
}

func (r *loanRepository) CountOpenByUser(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COUNT(*) FROM loans WHERE user_id = $1 AND status IN ('active', 'overdue')`
	var n int64
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		if isInvalidUUID(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("count open loans: %w", err)
	}
	return n, nil
}
