package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

// GoalStore is the financial-goal capability of the ledger store.
type GoalStore interface {
	CreateGoal(ctx context.Context, g core.FinancialGoal) (core.FinancialGoal, error)
	ListGoals(ctx context.Context, ownerID int64) ([]core.FinancialGoal, error)
}

// GoalProgress tracks a goal against income recorded since its creation.
type GoalProgress struct {
	Goal       core.FinancialGoal
	Current    core.Money
	Percentage float64 // capped at 100
	DaysLeft   int
	Completed  bool
}

// GoalService derives goal progress from the ledger. Goals match income
// transactions whose description mentions the goal title.
type GoalService struct {
	goals GoalStore
	store TransactionReader
}

func NewGoalService(goals GoalStore, store TransactionReader) *GoalService {
	return &GoalService{goals: goals, store: store}
}

func (s *GoalService) Create(ctx context.Context, g core.FinancialGoal) (core.FinancialGoal, error) {
	return s.goals.CreateGoal(ctx, g)
}

// Progress computes the current amount, completion percentage and remaining
// days for each of the owner's goals.
func (s *GoalService) Progress(ctx context.Context, ownerID int64, now time.Time) ([]GoalProgress, error) {
	goals, err := s.goals.ListGoals(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	if len(goals) == 0 {
		return nil, nil
	}

	income, err := s.store.QueryTransactions(ctx, ownerID, core.Filter{Kind: core.Income})
	if err != nil {
		return nil, fmt.Errorf("load income transactions: %w", err)
	}

	progress := make([]GoalProgress, 0, len(goals))
	for _, g := range goals {
		var current core.Money
		title := strings.ToLower(g.Title)
		for _, t := range income {
			if t.Date.Before(g.CreatedAt.Truncate(24 * time.Hour)) {
				continue
			}
			if strings.Contains(strings.ToLower(t.Description), title) {
				current.Cents += t.Amount.Cents
			}
		}

		p := GoalProgress{
			Goal:      g,
			Current:   current,
			Completed: current.Cents >= g.TargetAmount.Cents,
		}
		if g.TargetAmount.Cents > 0 {
			p.Percentage = float64(current.Cents) / float64(g.TargetAmount.Cents) * 100
			if p.Percentage > 100 {
				p.Percentage = 100
			}
		}
		if days := int(g.TargetDate.Sub(now).Hours() / 24); days > 0 {
			p.DaysLeft = days
		}
		progress = append(progress, p)
	}

	return progress, nil
}
