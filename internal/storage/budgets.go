package storage

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

// UpsertBudget inserts a budget or, when one already exists for the same
// (month, category, owner) key, updates its limit. The comparison uses IS so
// null-category budgets upsert correctly too.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("validate budget: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Budget{}, fmt.Errorf("begin upsert budget: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE budgets SET limit_cents = ?
		 WHERE owner_id = ? AND month = ? AND category_id IS ?`,
		b.Limit.Cents, b.OwnerID, b.Month, nullID(b.CategoryID))
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return core.Budget{}, fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		ins, err := tx.ExecContext(ctx,
			`INSERT INTO budgets (month, category_id, limit_cents, owner_id) VALUES (?, ?, ?, ?)`,
			b.Month, nullID(b.CategoryID), b.Limit.Cents, b.OwnerID)
		if err != nil {
			return core.Budget{}, fmt.Errorf("insert budget: %w", err)
		}
		if b.ID, err = ins.LastInsertId(); err != nil {
			return core.Budget{}, fmt.Errorf("last insert id: %w", err)
		}
	} else {
		row := tx.QueryRowContext(ctx,
			`SELECT id FROM budgets WHERE owner_id = ? AND month = ? AND category_id IS ?`,
			b.OwnerID, b.Month, nullID(b.CategoryID))
		if err := row.Scan(&b.ID); err != nil {
			return core.Budget{}, fmt.Errorf("reselect budget id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Budget{}, fmt.Errorf("commit upsert budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget upserted",
		"id", b.ID,
		"owner_id", b.OwnerID,
		"month", b.Month,
		"limit_cents", b.Limit.Cents,
		"updated", n > 0)

	return b, nil
}

const budgetColumns = `b.id, b.month, b.category_id, COALESCE(c.name, ''), b.limit_cents, b.owner_id`

// ListBudgets returns all of the owner's budgets, newest month first, then
// by category name.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, ownerID int64) ([]core.Budget, error) {
	return r.queryBudgets(ctx,
		`SELECT `+budgetColumns+`
		 FROM budgets b
		 LEFT JOIN categories c ON b.category_id = c.id
		 WHERE b.owner_id = ?
		 ORDER BY b.month DESC, c.name`, ownerID)
}

// BudgetsForMonth returns the owner's budgets for one month, ordered by
// category name.
func (r *SQLiteRepository) BudgetsForMonth(ctx context.Context, ownerID int64, month string) ([]core.Budget, error) {
	return r.queryBudgets(ctx,
		`SELECT `+budgetColumns+`
		 FROM budgets b
		 LEFT JOIN categories c ON b.category_id = c.id
		 WHERE b.owner_id = ? AND b.month = ?
		 ORDER BY c.name`, ownerID, month)
}

func (r *SQLiteRepository) queryBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var (
			b        core.Budget
			category nullableID
		)
		if err := rows.Scan(&b.ID, &b.Month, &category, &b.Category, &b.Limit.Cents, &b.OwnerID); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.CategoryID = category.ptr()
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return budgets, nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res, "budget")
}
