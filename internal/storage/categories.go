package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
)

// CreateCategory adds a category for the owner. Names are unique per owner;
// a duplicate yields core.ErrDuplicate.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, ownerID int64, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, fmt.Errorf("category name: %w", core.ErrEmptyTitle)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, owner_id) VALUES (?, ?)`, name, ownerID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.Category{}, fmt.Errorf("category %q: %w", name, core.ErrDuplicate)
		}
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("last insert id: %w", err)
	}
	return core.Category{ID: id, Name: name, OwnerID: ownerID}, nil
}

// ListCategories returns the owner's categories ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, owner_id FROM categories WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// DeleteCategory removes an owned category. References from dependent
// transactions are nulled out first, never cascaded.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, ownerID, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete category: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET category_id = NULL WHERE category_id = ? AND owner_id = ?`,
		id, ownerID); err != nil {
		return fmt.Errorf("detach transactions: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if err := requireRow(res, "category"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete category: %w", err)
	}

	slog.InfoContext(ctx, "Category deleted", "id", id, "owner_id", ownerID)
	return nil
}
