package services

import (
	"context"
	"testing"

	"fintrack/internal/core"
)

func TestEvaluateMonthStatuses(t *testing.T) {
	store := newFakeStore()
	svc := NewBudgetService(store)
	ctx := context.Background()

	store.addBudget(core.Budget{Month: "2025-03", CategoryID: catRef(1), Category: "groceries", Limit: core.Money{Cents: 10000}, OwnerID: 1})
	store.addBudget(core.Budget{Month: "2025-03", CategoryID: catRef(2), Category: "fun", Limit: core.Money{Cents: 5000}, OwnerID: 1})

	store.addTransaction(core.Transaction{Date: day("2025-03-05"), Amount: core.Money{Cents: 4000}, Kind: core.Expense, CategoryID: catRef(1), OwnerID: 1})
	store.addTransaction(core.Transaction{Date: day("2025-03-12"), Amount: core.Money{Cents: 2000}, Kind: core.Expense, CategoryID: catRef(1), OwnerID: 1})
	store.addTransaction(core.Transaction{Date: day("2025-03-20"), Amount: core.Money{Cents: 7500}, Kind: core.Expense, CategoryID: catRef(2), OwnerID: 1})
	// income and other months never count as spend
	store.addTransaction(core.Transaction{Date: day("2025-03-21"), Amount: core.Money{Cents: 9999}, Kind: core.Income, CategoryID: catRef(1), OwnerID: 1})
	store.addTransaction(core.Transaction{Date: day("2025-02-21"), Amount: core.Money{Cents: 9999}, Kind: core.Expense, CategoryID: catRef(1), OwnerID: 1})

	statuses, alerts, err := svc.EvaluateMonth(ctx, 1, "2025-03")
	if err != nil {
		t.Fatalf("EvaluateMonth: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}

	// ordered by category name: fun before groceries
	fun, groceries := statuses[0], statuses[1]
	if fun.Budget.Category != "fun" || groceries.Budget.Category != "groceries" {
		t.Fatalf("unexpected order: %q, %q", fun.Budget.Category, groceries.Budget.Category)
	}

	if groceries.Spent.Cents != 6000 {
		t.Errorf("groceries spent = %d, want 6000", groceries.Spent.Cents)
	}
	if groceries.Remaining.Cents != 4000 || groceries.OverBudget {
		t.Errorf("groceries remaining = %d over=%v", groceries.Remaining.Cents, groceries.OverBudget)
	}
	if groceries.Percentage != 60 {
		t.Errorf("groceries percentage = %v, want 60", groceries.Percentage)
	}

	if fun.Spent.Cents != 7500 || !fun.OverBudget || fun.Remaining.Cents != -2500 {
		t.Errorf("fun status = %+v", fun)
	}

	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	alert := alerts[0]
	if alert.Severity != SeverityOver || alert.Category != "fun" {
		t.Errorf("alert = %+v", alert)
	}
	if alert.Message != "over budget by 25.00" {
		t.Errorf("alert message = %q", alert.Message)
	}
}

func TestEvaluateMonthWarningThreshold(t *testing.T) {
	store := newFakeStore()
	svc := NewBudgetService(store)
	ctx := context.Background()

	store.addBudget(core.Budget{Month: "2025-03", CategoryID: catRef(1), Category: "groceries", Limit: core.Money{Cents: 10000}, OwnerID: 1})

	cases := []struct {
		name     string
		spent    int64
		severity Severity
		alerted  bool
	}{
		{"below warning", 7999, "", false},
		{"at warning", 8000, SeverityWarning, true},
		{"at limit", 10000, SeverityOver, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store.txns = nil
			store.addTransaction(core.Transaction{Date: day("2025-03-10"), Amount: core.Money{Cents: tc.spent}, Kind: core.Expense, CategoryID: catRef(1), OwnerID: 1})

			_, alerts, err := svc.EvaluateMonth(ctx, 1, "2025-03")
			if err != nil {
				t.Fatalf("EvaluateMonth: %v", err)
			}
			if tc.alerted != (len(alerts) == 1) {
				t.Fatalf("alerted=%v got %d alerts", tc.alerted, len(alerts))
			}
			if tc.alerted && alerts[0].Severity != tc.severity {
				t.Errorf("severity = %q, want %q", alerts[0].Severity, tc.severity)
			}
		})
	}
}

func TestEvaluateMonthZeroLimit(t *testing.T) {
	store := newFakeStore()
	svc := NewBudgetService(store)
	ctx := context.Background()

	store.addBudget(core.Budget{Month: "2025-03", CategoryID: catRef(1), Category: "groceries", Limit: core.Money{}, OwnerID: 1})
	store.addTransaction(core.Transaction{Date: day("2025-03-10"), Amount: core.Money{Cents: 500}, Kind: core.Expense, CategoryID: catRef(1), OwnerID: 1})

	statuses, alerts, err := svc.EvaluateMonth(ctx, 1, "2025-03")
	if err != nil {
		t.Fatalf("EvaluateMonth: %v", err)
	}
	if statuses[0].Percentage != 0 {
		t.Errorf("zero limit percentage = %v, want 0", statuses[0].Percentage)
	}
	if !statuses[0].OverBudget {
		t.Error("spending against a zero limit should flag over budget")
	}
	if len(alerts) != 0 {
		t.Errorf("zero limit should not alert, got %d", len(alerts))
	}
}

func TestEvaluateMonthNullCategoryBudget(t *testing.T) {
	store := newFakeStore()
	svc := NewBudgetService(store)
	ctx := context.Background()

	store.addBudget(core.Budget{Month: "2025-03", Limit: core.Money{Cents: 3000}, OwnerID: 1})
	store.addTransaction(core.Transaction{Date: day("2025-03-01"), Amount: core.Money{Cents: 1000}, Kind: core.Expense, OwnerID: 1})
	store.addTransaction(core.Transaction{Date: day("2025-03-02"), Amount: core.Money{Cents: 2000}, Kind: core.Expense, CategoryID: catRef(1), OwnerID: 1})

	statuses, _, err := svc.EvaluateMonth(ctx, 1, "2025-03")
	if err != nil {
		t.Fatalf("EvaluateMonth: %v", err)
	}
	if statuses[0].Spent.Cents != 1000 {
		t.Errorf("null-category budget should count only uncategorized spend, got %d", statuses[0].Spent.Cents)
	}
}

func TestEvaluateMonthBadKey(t *testing.T) {
	svc := NewBudgetService(newFakeStore())
	if _, _, err := svc.EvaluateMonth(context.Background(), 1, "march"); err == nil {
		t.Fatal("expected error for malformed month key")
	}
}

func TestUpsertReplacesLimit(t *testing.T) {
	store := newFakeStore()
	svc := NewBudgetService(store)
	ctx := context.Background()

	first, err := svc.Upsert(ctx, core.Budget{Month: "2025-04", CategoryID: catRef(1), Limit: core.Money{Cents: 1000}, OwnerID: 1})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	second, err := svc.Upsert(ctx, core.Budget{Month: "2025-04", CategoryID: catRef(1), Limit: core.Money{Cents: 2500}, OwnerID: 1})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("upsert created a duplicate: ids %d, %d", first.ID, second.ID)
	}
	budgets, _ := svc.List(ctx, 1)
	if len(budgets) != 1 || budgets[0].Limit.Cents != 2500 {
		t.Errorf("budgets after upsert = %+v", budgets)
	}
}
