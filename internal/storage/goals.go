package storage

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// CreateGoal stores a financial goal for the owner.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.FinancialGoal) (core.FinancialGoal, error) {
	if g.Title == "" {
		return core.FinancialGoal{}, fmt.Errorf("goal title: %w", core.ErrEmptyTitle)
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return core.FinancialGoal{}, fmt.Errorf("goal target: %w", err)
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO financial_goals (title, description, target_cents, target_date, owner_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.Title, g.Description, g.TargetAmount.Cents, g.TargetDate.String(), g.OwnerID,
		g.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return core.FinancialGoal{}, fmt.Errorf("insert goal: %w", err)
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return core.FinancialGoal{}, fmt.Errorf("last insert id: %w", err)
	}
	return g, nil
}

// ListGoals returns the owner's goals ordered by target date.
func (r *SQLiteRepository) ListGoals(ctx context.Context, ownerID int64) ([]core.FinancialGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, target_cents, target_date, owner_id, created_at
		 FROM financial_goals
		 WHERE owner_id = ?
		 ORDER BY target_date ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	var goals []core.FinancialGoal
	for rows.Next() {
		var (
			g         core.FinancialGoal
			targetStr string
			createdAt string
		)
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &g.TargetAmount.Cents,
			&targetStr, &g.OwnerID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if g.TargetDate, err = core.ParseDate(targetStr); err != nil {
			return nil, fmt.Errorf("parse stored target date %q: %w", targetStr, err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			g.CreatedAt = t
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}
