package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/core"
)

// fakeStore is an in-memory ledger store for service tests. It mirrors the
// SQLite repository's contract, including the guarded schedule advance.
type fakeStore struct {
	mu        sync.Mutex
	nextID    int64
	txns      []core.Transaction
	budgets   []core.Budget
	recurring map[int64]core.RecurringDefinition
	goals     []core.FinancialGoal
}

func newFakeStore() *fakeStore {
	return &fakeStore{recurring: make(map[int64]core.RecurringDefinition)}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addTransaction(t core.Transaction) core.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.id()
	f.txns = append(f.txns, t)
	return t
}

func (f *fakeStore) addBudget(b core.Budget) core.Budget {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.ID = f.id()
	f.budgets = append(f.budgets, b)
	return b
}

func (f *fakeStore) addRecurring(rd core.RecurringDefinition) core.RecurringDefinition {
	f.mu.Lock()
	defer f.mu.Unlock()
	rd.ID = f.id()
	f.recurring[rd.ID] = rd
	return rd
}

func (f *fakeStore) QueryTransactions(_ context.Context, ownerID int64, filter core.Filter) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []core.Transaction
	for _, t := range f.txns {
		if t.OwnerID == ownerID && filter.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeStore) BudgetsForMonth(_ context.Context, ownerID int64, month string) ([]core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []core.Budget
	for _, b := range f.budgets {
		if b.OwnerID == ownerID && b.Month == month {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (f *fakeStore) ListBudgets(_ context.Context, ownerID int64) ([]core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []core.Budget
	for _, b := range f.budgets {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, existing := range f.budgets {
		if existing.OwnerID == b.OwnerID && existing.Month == b.Month && sameCategory(existing.CategoryID, b.CategoryID) {
			f.budgets[i].Limit = b.Limit
			return f.budgets[i], nil
		}
	}
	b.ID = f.id()
	f.budgets = append(f.budgets, b)
	return b, nil
}

func (f *fakeStore) DeleteBudget(_ context.Context, ownerID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, b := range f.budgets {
		if b.ID == id && b.OwnerID == ownerID {
			f.budgets = append(f.budgets[:i], f.budgets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("budget: %w", core.ErrNotFound)
}

func (f *fakeStore) MonthCategorySpend(_ context.Context, ownerID int64, month string, categoryID *int64) (core.Money, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var spent core.Money
	for _, t := range f.txns {
		if t.OwnerID != ownerID || t.Kind != core.Expense {
			continue
		}
		if t.Date.MonthKey() != month || !sameCategory(t.CategoryID, categoryID) {
			continue
		}
		spent.Cents += t.Amount.Cents
	}
	return spent, nil
}

func (f *fakeStore) GetRecurring(_ context.Context, ownerID, id int64) (core.RecurringDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rd, ok := f.recurring[id]
	if !ok || rd.OwnerID != ownerID {
		return core.RecurringDefinition{}, fmt.Errorf("recurring definition %d: %w", id, core.ErrNotFound)
	}
	return rd, nil
}

func (f *fakeStore) ListRecurring(_ context.Context, ownerID int64) ([]core.RecurringDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []core.RecurringDefinition
	for _, rd := range f.recurring {
		if rd.OwnerID == ownerID {
			out = append(out, rd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextDate.Before(out[j].NextDate.Time) })
	return out, nil
}

func (f *fakeStore) CreateRecurring(_ context.Context, rd core.RecurringDefinition) (core.RecurringDefinition, error) {
	if rd.NextDate.IsZero() {
		rd.NextDate = rd.StartDate
	}
	return f.addRecurring(rd), nil
}

func (f *fakeStore) SetRecurringActive(_ context.Context, ownerID, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rd, ok := f.recurring[id]
	if !ok || rd.OwnerID != ownerID {
		return fmt.Errorf("recurring definition %d: %w", id, core.ErrNotFound)
	}
	rd.Active = active
	f.recurring[id] = rd
	return nil
}

func (f *fakeStore) DueDefinitions(_ context.Context, ownerID int64, asOf core.Date, limit int) ([]core.RecurringDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []core.RecurringDefinition
	for _, rd := range f.recurring {
		if rd.OwnerID == ownerID && rd.Active && !rd.NextDate.After(asOf.Time) {
			out = append(out, rd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextDate.Before(out[j].NextDate.Time) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ExecuteRecurring(_ context.Context, def core.RecurringDefinition, next core.Date) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.recurring[def.ID]
	if !ok || stored.OwnerID != def.OwnerID {
		return core.Transaction{}, fmt.Errorf("recurring definition %d: %w", def.ID, core.ErrNotFound)
	}
	// guarded update: only the occurrence the caller read can be advanced
	if !stored.NextDate.Equal(def.NextDate.Time) {
		return core.Transaction{}, fmt.Errorf("recurring definition %d: %w", def.ID, core.ErrConflict)
	}

	stored.LastExecuted = stored.NextDate
	stored.NextDate = next
	f.recurring[def.ID] = stored

	t := core.Transaction{
		ID:          f.id(),
		Date:        def.NextDate,
		Amount:      def.Amount,
		Kind:        def.Kind,
		CategoryID:  def.CategoryID,
		Category:    def.Category,
		Description: def.Title + " (Auto)",
		OwnerID:     def.OwnerID,
	}
	f.txns = append(f.txns, t)
	return t, nil
}

func (f *fakeStore) CreateGoal(_ context.Context, g core.FinancialGoal) (core.FinancialGoal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g.ID = f.id()
	f.goals = append(f.goals, g)
	return g, nil
}

func (f *fakeStore) ListGoals(_ context.Context, ownerID int64) ([]core.FinancialGoal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []core.FinancialGoal
	for _, g := range f.goals {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	return out, nil
}

func sameCategory(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func day(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func catRef(id int64) *int64 { return &id }
