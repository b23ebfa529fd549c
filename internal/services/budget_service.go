package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

const (
	SeverityOver    Severity = "over"
	SeverityWarning Severity = "warning"
)

// Severity classifies a budget alert.
type Severity string

// BudgetStore is the budget capability of the ledger store.
type BudgetStore interface {
	BudgetsForMonth(ctx context.Context, ownerID int64, month string) ([]core.Budget, error)
	ListBudgets(ctx context.Context, ownerID int64) ([]core.Budget, error)
	UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	DeleteBudget(ctx context.Context, ownerID, id int64) error
	MonthCategorySpend(ctx context.Context, ownerID int64, month string, categoryID *int64) (core.Money, error)
}

// BudgetStatus is the evaluated state of one budget for a month.
type BudgetStatus struct {
	Budget     core.Budget
	Spent      core.Money
	Remaining  core.Money
	Percentage float64
	OverBudget bool
}

// BudgetAlert is the dashboard-notification subset of a status: only budgets
// at warning (>=80%) or over (>=100%) level produce one.
type BudgetAlert struct {
	Severity   Severity
	Month      string
	Category   string
	Message    string
	Percentage float64
}

// BudgetService evaluates configured limits against actual spend. All
// operations are pure reads against the store.
type BudgetService struct {
	store BudgetStore
}

func NewBudgetService(store BudgetStore) *BudgetService {
	return &BudgetService{store: store}
}

// Upsert inserts a budget or updates the limit of the existing budget for
// the same (month, category, owner) key.
func (s *BudgetService) Upsert(ctx context.Context, b core.Budget) (core.Budget, error) {
	return s.store.UpsertBudget(ctx, b)
}

func (s *BudgetService) Delete(ctx context.Context, ownerID, id int64) error {
	return s.store.DeleteBudget(ctx, ownerID, id)
}

func (s *BudgetService) List(ctx context.Context, ownerID int64) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx, ownerID)
}

// EvaluateMonth computes the status of every budget configured for the
// month, ordered by category name, and the alert subset.
//
// Spend is matched by literal category equality: a null-category budget
// counts only uncategorized expenses. A zero limit yields percentage 0, not
// an error.
func (s *BudgetService) EvaluateMonth(ctx context.Context, ownerID int64, month string) ([]BudgetStatus, []BudgetAlert, error) {
	if _, err := core.ParseMonthKey(month); err != nil {
		return nil, nil, fmt.Errorf("month %q: %w", month, err)
	}

	budgets, err := s.store.BudgetsForMonth(ctx, ownerID, month)
	if err != nil {
		return nil, nil, fmt.Errorf("load budgets: %w", err)
	}

	statuses := make([]BudgetStatus, 0, len(budgets))
	var alerts []BudgetAlert
	for _, b := range budgets {
		spent, err := s.store.MonthCategorySpend(ctx, ownerID, month, b.CategoryID)
		if err != nil {
			return nil, nil, fmt.Errorf("sum spend for budget %d: %w", b.ID, err)
		}

		status := BudgetStatus{
			Budget:    b,
			Spent:     spent,
			Remaining: core.Money{Cents: b.Limit.Cents - spent.Cents},
		}
		if b.Limit.Cents > 0 {
			status.Percentage = float64(spent.Cents) / float64(b.Limit.Cents) * 100
		}
		status.OverBudget = status.Remaining.Cents < 0
		statuses = append(statuses, status)

		if alert, ok := alertFor(status); ok {
			alerts = append(alerts, alert)
		}
	}

	return statuses, alerts, nil
}

func alertFor(status BudgetStatus) (BudgetAlert, bool) {
	alert := BudgetAlert{
		Month:      status.Budget.Month,
		Category:   status.Budget.Category,
		Percentage: status.Percentage,
	}
	switch {
	case status.Percentage >= 100:
		alert.Severity = SeverityOver
		overage := core.Money{Cents: status.Spent.Cents - status.Budget.Limit.Cents}
		alert.Message = fmt.Sprintf("over budget by %s", overage)
		return alert, true
	case status.Percentage >= 80:
		alert.Severity = SeverityWarning
		alert.Message = fmt.Sprintf("%.1f%% of budget used", status.Percentage)
		return alert, true
	default:
		return BudgetAlert{}, false
	}
}
