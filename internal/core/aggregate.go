package core

import (
	"sort"
)

// Summary holds filtered totals. Empty input yields zero totals, never an
// error.
type Summary struct {
	TotalIncome  Money
	TotalExpense Money
}

// Balance is income minus expense.
func (s Summary) Balance() Money {
	return Money{Cents: s.TotalIncome.Cents - s.TotalExpense.Cents}
}

// MonthFlow is the income/expense sum for a single month.
type MonthFlow struct {
	Month   string // "YYYY-MM"
	Income  Money
	Expense Money
}

// CategorySpend is the expense total and transaction count for a category.
type CategorySpend struct {
	Category string
	Total    Money
	Count    int
}

// CategoryStats holds average/min/max expense amounts for a category.
type CategoryStats struct {
	Category string
	Average  Money
	Min      Money
	Max      Money
	Count    int
}

// DaySpend is the summed expense amount for one calendar day.
type DaySpend struct {
	Date  Date
	Total Money
}

// Summarize computes income and expense totals over the given set.
func Summarize(txns []Transaction) Summary {
	var s Summary
	for _, t := range txns {
		switch t.Kind {
		case Income:
			s.TotalIncome.Cents += t.Amount.Cents
		case Expense:
			s.TotalExpense.Cents += t.Amount.Cents
		}
	}
	return s
}

// MonthlyTrend groups transactions by calendar month, most recent first.
// Only months with at least one transaction appear. A positive n caps the
// result to the n most recent months.
func MonthlyTrend(txns []Transaction, n int) []MonthFlow {
	byMonth := make(map[string]*MonthFlow)
	for _, t := range txns {
		key := t.Date.MonthKey()
		flow, ok := byMonth[key]
		if !ok {
			flow = &MonthFlow{Month: key}
			byMonth[key] = flow
		}
		switch t.Kind {
		case Income:
			flow.Income.Cents += t.Amount.Cents
		case Expense:
			flow.Expense.Cents += t.Amount.Cents
		}
	}

	trend := make([]MonthFlow, 0, len(byMonth))
	for _, flow := range byMonth {
		trend = append(trend, *flow)
	}
	// "YYYY-MM" keys sort chronologically as strings
	sort.Slice(trend, func(i, j int) bool { return trend[i].Month > trend[j].Month })
	if n > 0 && len(trend) > n {
		trend = trend[:n]
	}
	return trend
}

// CategoryBreakdown groups expense transactions by category and returns
// totals sorted descending, capped to the top k. Uncategorized expenses are
// not included.
func CategoryBreakdown(txns []Transaction, k int) []CategorySpend {
	totals := make(map[string]*CategorySpend)
	for _, t := range txns {
		if t.Kind != Expense || t.CategoryID == nil {
			continue
		}
		cs, ok := totals[t.Category]
		if !ok {
			cs = &CategorySpend{Category: t.Category}
			totals[t.Category] = cs
		}
		cs.Total.Cents += t.Amount.Cents
		cs.Count++
	}

	breakdown := make([]CategorySpend, 0, len(totals))
	for _, cs := range totals {
		breakdown = append(breakdown, *cs)
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Total.Cents != breakdown[j].Total.Cents {
			return breakdown[i].Total.Cents > breakdown[j].Total.Cents
		}
		return breakdown[i].Category < breakdown[j].Category
	})
	if k > 0 && len(breakdown) > k {
		breakdown = breakdown[:k]
	}
	return breakdown
}

// CategoryStatistics computes average, minimum and maximum expense amounts
// per category, sorted descending by average. Categories with fewer than
// three expense transactions are excluded regardless of their total spend.
func CategoryStatistics(txns []Transaction) []CategoryStats {
	type acc struct {
		sum, min, max int64
		count         int
	}
	byCategory := make(map[string]*acc)
	for _, t := range txns {
		if t.Kind != Expense || t.CategoryID == nil {
			continue
		}
		a, ok := byCategory[t.Category]
		if !ok {
			a = &acc{min: t.Amount.Cents, max: t.Amount.Cents}
			byCategory[t.Category] = a
		}
		a.sum += t.Amount.Cents
		a.count++
		if t.Amount.Cents < a.min {
			a.min = t.Amount.Cents
		}
		if t.Amount.Cents > a.max {
			a.max = t.Amount.Cents
		}
	}

	stats := make([]CategoryStats, 0, len(byCategory))
	for name, a := range byCategory {
		if a.count < 3 {
			continue
		}
		n := int64(a.count)
		stats = append(stats, CategoryStats{
			Category: name,
			Average:  Money{Cents: (a.sum + n/2) / n}, // half-up
			Min:      Money{Cents: a.min},
			Max:      Money{Cents: a.max},
			Count:    a.count,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Average.Cents != stats[j].Average.Cents {
			return stats[i].Average.Cents > stats[j].Average.Cents
		}
		return stats[i].Category < stats[j].Category
	})
	return stats
}

// TopSpendingDays sums expense amounts per calendar day and returns the k
// highest days, descending.
func TopSpendingDays(txns []Transaction, k int) []DaySpend {
	byDay := make(map[string]*DaySpend)
	for _, t := range txns {
		if t.Kind != Expense {
			continue
		}
		key := t.Date.String()
		ds, ok := byDay[key]
		if !ok {
			ds = &DaySpend{Date: t.Date}
			byDay[key] = ds
		}
		ds.Total.Cents += t.Amount.Cents
	}

	days := make([]DaySpend, 0, len(byDay))
	for _, ds := range byDay {
		days = append(days, *ds)
	}
	sort.Slice(days, func(i, j int) bool {
		if days[i].Total.Cents != days[j].Total.Cents {
			return days[i].Total.Cents > days[j].Total.Cents
		}
		return days[i].Date.After(days[j].Date.Time)
	})
	if k > 0 && len(days) > k {
		days = days[:k]
	}
	return days
}
