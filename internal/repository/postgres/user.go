package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/logger"
	"care-inventory-backend/internal/repository"
)

const userColumns = `id, name, national_id, address, phone, email, notes, created_at, updated_at`

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	u := &domain.User{}
	var phone, email, notes sql.NullString
	if err := row.Scan(&u.ID, &u.Name, &u.NationalID, &u.Address, &phone, &email, &notes, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Phone = nullString(phone)
	u.Email = nullString(email)
	u.Notes = nullString(notes)
	return u, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, name, national_id, address, phone, email, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	logger.DatabaseCall("users.Create", query, "user_id", u.ID)
	_, err := conn(ctx, r.db).ExecContext(ctx, query, u.ID, u.Name, u.NationalID, u.Address, u.Phone, u.Email, u.Notes, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		logger.DatabaseResult("users.Create", 0, err)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: national id already registered", domain.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	logger.DatabaseResult("users.Create", 1, nil)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetForShare(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR SHARE`, id)
}

func (r *userRepository) GetForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

func (r *userRepository) get(ctx context.Context, query, id string) (*domain.User, error) {
	u, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *userRepository) Update(ctx context.Context, id string, c domain.UserChanges) (*domain.User, error) {
	query := `UPDATE users SET
	              name = COALESCE($2, name),
	              national_id = COALESCE($3, national_id),
	              address = COALESCE($4, address),
	              phone = COALESCE($5, phone),
	              email = COALESCE($6, email),
	              notes = COALESCE($7, notes),
	              updated_at = NOW()
	          WHERE id = $1
	          RETURNING ` + userColumns
	logger.DatabaseCall("users.Update", query, "user_id", id)
	u, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, id, c.Name, c.NationalID, c.Address, c.Phone, c.Email, c.Notes))
	if err != nil {
		logger.DatabaseResult("users.Update", 0, err)
		switch {
		case errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err):
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
		case isUniqueViolation(err):
			return nil, fmt.Errorf("%w: national id already registered", domain.ErrConflict)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	logger.DatabaseResult("users.Update", 1, nil)
	return u, nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`
	logger.DatabaseCall("users.Delete", query, "user_id", id)
	res, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		logger.DatabaseResult("users.Delete", 0, err)
		if isInvalidUUID(err) {
			return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
		}
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	logger.DatabaseResult("users.Delete", n, nil)
	if n == 0 {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY name, created_at`
	return r.list(ctx, query)
}

func (r *userRepository) Search(ctx context.Context, q string) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	          WHERE name ILIKE '%' || $1 || '%' OR national_id ILIKE '%' || $1 || '%' OR address ILIKE '%' || $1 || '%'
	          ORDER BY name, created_at`
	return r.list(ctx, query, escapeLike(q))
}

func (r *userRepository) list(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
