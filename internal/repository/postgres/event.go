package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration

	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/logger"
	"care-inventory-backend/internal/repository"
)

const (
	dialectPostgres = "postgres"
	tableEvents     = "events"

	// eventChainLockID serializes appenders on the chain tail.
	eventChainLockID int64 = 734501127
)

var eventColumns = []any{"id", "sequence", "event_type", "data", "created_at", "loan_id", "user_id", "prev_hash", "hash"}

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

func scanEvent(row interface{ Scan(...any) error }) (*domain.Event, error) {
	e := &domain.Event{}
	var data []byte
	var eventType string
	var loanID, userID sql.NullString
	if err := row.Scan(&e.ID, &e.Sequence, &eventType, &data, &e.CreatedAt, &loanID, &userID, &e.PrevHash, &e.Hash); err != nil {
		return nil, err
	}
	e.Type = domain.EventType(eventType)
	e.Data = data
	e.LoanID = nullString(loanID)
	e.UserID = nullString(userID)
	return e, nil
}

func (r *eventRepository) Tail(ctx context.Context) (int64, string, error) {
	db := conn(ctx, r.db)
	if txFromContext(ctx) != nil {
		if _, err := db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, eventChainLockID); err != nil {
			return 0, "", fmt.Errorf("lock event chain: %w", err)
		}
	}

	var seq int64
	var hash string
	err := db.QueryRowContext(ctx, `SELECT sequence, hash FROM events ORDER BY sequence DESC LIMIT 1`).Scan(&seq, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("read event chain tail: %w", err)
	}
	return seq, hash, nil
}

func (r *eventRepository) Append(ctx context.Context, e *domain.Event) error {
	query := `INSERT INTO events (id, sequence, event_type, data, created_at, loan_id, user_id, prev_hash, hash)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	logger.DatabaseCall("events.Append", query, "event_type", e.Type, "sequence", e.Sequence)
	_, err := conn(ctx, r.db).ExecContext(ctx, query, e.ID, e.Sequence, string(e.Type), []byte(e.Data), e.CreatedAt, e.LoanID, e.UserID, e.PrevHash, e.Hash)
	if err != nil {
		logger.DatabaseResult("events.Append", 0, err)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: event sequence %d already taken", domain.ErrConflict, e.Sequence)
		}
		return fmt.Errorf("append event: %w", err)
	}
	logger.DatabaseResult("events.Append", 1, nil)
	return nil
}

func (r *eventRepository) List(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	ds := goqu.Dialect(dialectPostgres).
		From(tableEvents).
		Select(eventColumns...)

	if f.Type != "" {
		ds = ds.Where(goqu.C("event_type").Eq(string(f.Type)))
	}
	if f.LoanID != "" {
		ds = ds.Where(goqu.C("loan_id").Eq(f.LoanID))
	}
	if f.UserID != "" {
		ds = ds.Where(goqu.C("user_id").Eq(f.UserID))
	}
	ds = ds.Order(goqu.C("sequence").Desc())
	if f.Limit > 0 {
		ds = ds.Limit(uint(f.Limit))
	}

	return r.query(ctx, ds)
}

func (r *eventRepository) ListAscending(ctx context.Context, afterSeq int64, limit int) ([]domain.Event, error) {
	ds := goqu.Dialect(dialectPostgres).
		From(tableEvents).
		Select(eventColumns...).
		Where(goqu.C("sequence").Gt(afterSeq)).
		Order(goqu.C("sequence").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	return r.query(ctx, ds)
}

func (r *eventRepository) query(ctx context.Context, ds *goqu.SelectDataset) ([]domain.Event, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build event query: %w", err)
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return []domain.Event{}, nil
		}
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}
