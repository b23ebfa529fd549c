// Package services wires the derivation engine: it loads ledger slices from
// storage and applies the pure computations from internal/core.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
)

const (
	trendMonths    = 12
	breakdownTop   = 10
	topDaysTop     = 10
	savingsWindow  = 6
	breakdownSpan  = 6 // months
	topDaysSpan    = 3 // months
	analyticsTTL   = 5 * time.Minute
	analyticsCache = 64
)

// TransactionReader is the ledger query capability the aggregator consumes.
type TransactionReader interface {
	QueryTransactions(ctx context.Context, ownerID int64, f core.Filter) ([]core.Transaction, error)
}

// AnalyticsReport bundles every derived aggregate for one owner.
type AnalyticsReport struct {
	Summary           core.Summary
	Trend             []core.MonthFlow
	Breakdown         []core.CategorySpend
	Statistics        []core.CategoryStats
	TopDays           []core.DaySpend
	Savings           core.SavingsReport
	TotalTransactions int
}

// AnalyticsService computes aggregates over the owner's ledger. Reports are
// cached briefly per owner and reference day; appends invalidate the entry.
type AnalyticsService struct {
	store TransactionReader
	cache *cache.LRUCache[*AnalyticsReport]
}

func NewAnalyticsService(store TransactionReader) *AnalyticsService {
	return &AnalyticsService{
		store: store,
		cache: cache.New[*AnalyticsReport](analyticsCache, analyticsTTL),
	}
}

// Summary returns totals plus the filtered rows themselves, so callers like
// report views and CSV sinks consume one query.
func (s *AnalyticsService) Summary(ctx context.Context, ownerID int64, f core.Filter) (core.Summary, []core.Transaction, error) {
	txns, err := s.store.QueryTransactions(ctx, ownerID, f)
	if err != nil {
		return core.Summary{}, nil, fmt.Errorf("load transactions: %w", err)
	}
	return core.Summarize(txns), txns, nil
}

// Overview computes the full analytics bundle as of a reference day.
func (s *AnalyticsService) Overview(ctx context.Context, ownerID int64, asOf core.Date) (*AnalyticsReport, error) {
	key := cacheKey(ownerID, asOf)
	if report, ok := s.cache.Get(key); ok {
		slog.DebugContext(ctx, "Analytics served from cache", "owner_id", ownerID, "as_of", asOf.String())
		return report, nil
	}

	txns, err := s.store.QueryTransactions(ctx, ownerID, core.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	report := &AnalyticsReport{
		Summary:           core.Summarize(txns),
		Trend:             core.MonthlyTrend(window(txns, asOf, trendMonths), trendMonths),
		Breakdown:         core.CategoryBreakdown(window(txns, asOf, breakdownSpan), breakdownTop),
		Statistics:        core.CategoryStatistics(txns),
		TopDays:           core.TopSpendingDays(window(txns, asOf, topDaysSpan), topDaysTop),
		Savings:           core.ComputeSavings(core.MonthlyTrend(window(txns, asOf, savingsWindow), 0)),
		TotalTransactions: len(txns),
	}

	s.cache.Set(key, report)
	return report, nil
}

// SavingsReport derives savings rates over a trailing window of months.
func (s *AnalyticsService) SavingsReport(ctx context.Context, ownerID int64, asOf core.Date, months int) (core.SavingsReport, error) {
	if months <= 0 {
		months = savingsWindow
	}
	txns, err := s.store.QueryTransactions(ctx, ownerID, core.Filter{From: monthsBack(asOf, months)})
	if err != nil {
		return core.SavingsReport{}, fmt.Errorf("load transactions: %w", err)
	}
	return core.ComputeSavings(core.MonthlyTrend(txns, 0)), nil
}

// Invalidate drops the cached report for an owner and reference day. Called
// after ledger appends so derived aggregates never lag a write.
func (s *AnalyticsService) Invalidate(ownerID int64, asOf core.Date) {
	s.cache.Delete(cacheKey(ownerID, asOf))
}

func cacheKey(ownerID int64, asOf core.Date) string {
	return fmt.Sprintf("%d:%s", ownerID, asOf.String())
}

// window keeps transactions from the last n months before asOf.
func window(txns []core.Transaction, asOf core.Date, months int) []core.Transaction {
	f := core.Filter{From: monthsBack(asOf, months)}
	var out []core.Transaction
	for _, t := range txns {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

func monthsBack(asOf core.Date, months int) core.Date {
	return core.Date{Time: asOf.AddDate(0, -months, 0)}
}
