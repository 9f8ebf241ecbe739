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

const itemColumns = `id, name, description, category, icon, total_stock, available_stock, notes, created_at, updated_at`

type itemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) repository.ItemRepository {
	return &itemRepository{db: db}
}

func scanItem(row interface{ Scan(...any) error }) (*domain.Item, error) {
	it := &domain.Item{}
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Category, &it.Icon, &it.TotalStock, &it.AvailableStock, &it.Notes, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (r *itemRepository) Create(ctx context.Context, it *domain.Item) error {
	query := `INSERT INTO items (id, name, description, category, icon, total_stock, available_stock, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	logger.DatabaseCall("items.Create", query, "item_id", it.ID)
	_, err := conn(ctx, r.db).ExecContext(ctx, query, it.ID, it.Name, it.Description, it.Category, it.Icon, it.TotalStock, it.AvailableStock, it.Notes, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		logger.DatabaseResult("items.Create", 0, err)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: item %s already exists", domain.ErrConflict, it.ID)
		}
		return fmt.Errorf("create item: %w", err)
	}
	logger.DatabaseResult("items.Create", 1, nil)
	return nil
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	return r.get(ctx, query, id)
}

func (r *itemRepository) GetForUpdate(ctx context.Context, id string) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 FOR NO KEY UPDATE`
	return r.get(ctx, query, id)
}

func (r *itemRepository) get(ctx context.Context, query, id string) (*domain.Item, error) {
	it, err := scanItem(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
			return nil, fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (r *itemRepository) List(ctx context.Context) ([]domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items ORDER BY name, created_at`
	return r.list(ctx, query)
}

func (r *itemRepository) Search(ctx context.Context, q string) ([]domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items
	          WHERE name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
	          ORDER BY name, created_at`
	return r.list(ctx, query, escapeLike(q))
}

func (r *itemRepository) list(ctx context.Context, query string, args ...any) ([]domain.Item, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r *itemRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM items WHERE LOWER(name) = LOWER($1))`
	var exists bool
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check item name: %w", err)
	}
	return exists, nil
}

func (r *itemRepository) UpdateStock(ctx context.Context, id string, total, available int32) (*domain.Item, error) {
	query := `UPDATE items SET total_stock = $2, available_stock = $3, updated_at = NOW()
	          WHERE id = $1
	          RETURNING ` + itemColumns
	logger.DatabaseCall("items.UpdateStock", query, "item_id", id, "total", total, "available", available)
	it, err := scanItem(conn(ctx, r.db).QueryRowContext(ctx, query, id, total, available))
	if err != nil {
		logger.DatabaseResult("items.UpdateStock", 0, err)
		if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
			return nil, fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("update item stock: %w", err)
	}
	logger.DatabaseResult("items.UpdateStock", 1, nil)
	return it, nil
}

func (r *itemRepository) Reserve(ctx context.Context, id string, qty int32) (*domain.Item, error) {
	query := `UPDATE items SET available_stock = available_stock - $2, updated_at = NOW()
	          WHERE id = $1 AND available_stock >= $2
	          RETURNING ` + itemColumns
	logger.DatabaseCall("items.Reserve", query, "item_id", id, "quantity", qty)
	it, err := scanItem(conn(ctx, r.db).QueryRowContext(ctx, query, id, qty))
	if err == nil {
		logger.DatabaseResult("items.Reserve", 1, nil)
		return it, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("items.Reserve", 0, err)
		if isInvalidUUID(err) {
			return nil, fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("reserve item: %w", err)
	}
	logger.DatabaseResult("items.Reserve", 0, nil)

	if err := r.mustExist(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: item %s has fewer than %d available", domain.ErrInsufficientStock, id, qty)
}

func (r *itemRepository) Release(ctx context.Context, id string, qty int32) (*domain.Item, error) {
	query := `UPDATE items SET available_stock = available_stock + $2, updated_at = NOW()
	          WHERE id = $1 AND total_stock - available_stock >= $2
	          RETURNING ` + itemColumns
	logger.DatabaseCall("items.Release", query, "item_id", id, "quantity", qty)
	it, err := scanItem(conn(ctx, r.db).QueryRowContext(ctx, query, id, qty))
	if err == nil {
		logger.DatabaseResult("items.Release", 1, nil)
		return it, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("items.Release", 0, err)
		if isInvalidUUID(err) {
			return nil, fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("release item: %w", err)
	}
	logger.DatabaseResult("items.Release", 0, nil)

	if err := r.mustExist(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: releasing %d units of item %s would exceed total stock", domain.ErrInvalidState, qty, id)
}

// mustExist distinguishes a missing row from a failed guard after a conditional update matched nothing.
func (r *itemRepository) mustExist(ctx context.Context, id string) error {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return fmt.Errorf("check item: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
	}
	return nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return string(r)
}
