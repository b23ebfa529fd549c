package core

// MonthlySavings is the savings rate of a single month. Rate is
// (income-expense)/income as a percentage; it is 0 for months without
// income, which are excluded from the window average.
type MonthlySavings struct {
	Month    string
	Income   Money
	Expense  Money
	Rate     float64
	HasIncome bool
}

// SavingsReport is the savings rate over a trailing window of months.
type SavingsReport struct {
	Months      []MonthlySavings
	AverageRate float64
}

// ComputeSavings derives per-month savings rates from monthly aggregates.
// The average is the unweighted arithmetic mean over months with income;
// a month with zero income does not contribute a 0% sample. With no
// qualifying month the average is 0.
func ComputeSavings(trend []MonthFlow) SavingsReport {
	report := SavingsReport{Months: make([]MonthlySavings, 0, len(trend))}

	var sum float64
	var qualified int
	for _, flow := range trend {
		ms := MonthlySavings{
			Month:   flow.Month,
			Income:  flow.Income,
			Expense: flow.Expense,
		}
		if flow.Income.Cents > 0 {
			ms.HasIncome = true
			ms.Rate = float64(flow.Income.Cents-flow.Expense.Cents) / float64(flow.Income.Cents) * 100
			sum += ms.Rate
			qualified++
		}
		report.Months = append(report.Months, ms)
	}
	if qualified > 0 {
		report.AverageRate = sum / float64(qualified)
	}
	return report
}
