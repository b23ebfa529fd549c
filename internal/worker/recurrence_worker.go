// Package worker runs the periodic recurrence pass: materialize every due
// definition, then re-evaluate the current month's budgets and publish any
// alerts that resulted.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// Publisher is the event sink for worker announcements. Publishing is
// best-effort: a failed publish never rolls back the ledger write it
// announces.
type Publisher interface {
	PublishRecurringExecuted(ctx context.Context, msg *amqp.RecurringExecutedMessage) error
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// OwnerSource finds owners that have work pending.
type OwnerSource interface {
	OwnersWithDue(ctx context.Context, asOf core.Date) ([]int64, error)
}

// RecurrenceWorker fans the recurrence pass out per owner.
type RecurrenceWorker struct {
	owners      OwnerSource
	scheduler   *services.SchedulerService
	budgets     *services.BudgetService
	publisher   Publisher // nil when AMQP is disabled
	batchSize   int
	concurrency int
}

func NewRecurrenceWorker(owners OwnerSource, scheduler *services.SchedulerService, budgets *services.BudgetService, publisher Publisher, batchSize, concurrency int) *RecurrenceWorker {
	return &RecurrenceWorker{
		owners:      owners,
		scheduler:   scheduler,
		budgets:     budgets,
		publisher:   publisher,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// RunOnce executes one full recurrence pass as of now and returns the number
// of transactions created.
func (w *RecurrenceWorker) RunOnce(ctx context.Context, now time.Time) (int, error) {
	runID := uuid.NewString()
	asOf := core.NewDate(now.UTC().Year(), int(now.UTC().Month()), now.UTC().Day())

	owners, err := w.owners.OwnersWithDue(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("find owners with due definitions: %w", err)
	}
	if len(owners) == 0 {
		slog.DebugContext(ctx, "No due recurring definitions", log.FieldRunID, runID, "as_of", asOf.String())
		return 0, nil
	}

	slog.InfoContext(ctx, "Starting recurrence pass",
		log.FieldRunID, runID,
		"as_of", asOf.String(),
		"owners", len(owners))

	created := make([]int, len(owners))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i, ownerID := range owners {
		g.Go(func() error {
			n, err := w.processOwner(gctx, runID, ownerID, asOf)
			if err != nil {
				// one owner's failure must not starve the others
				slog.ErrorContext(gctx, "Recurrence pass failed for owner",
					log.NewFields().WithRunID(runID).WithOwner(ownerID).WithError(err).ToSlice()...)
				return nil
			}
			created[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total int
	for _, n := range created {
		total += n
	}
	slog.InfoContext(ctx, "Recurrence pass complete",
		log.FieldRunID, runID,
		"transactions_created", total)
	return total, nil
}

func (w *RecurrenceWorker) processOwner(ctx context.Context, runID string, ownerID int64, asOf core.Date) (int, error) {
	results, err := w.scheduler.ProcessDue(ctx, ownerID, asOf, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("process due definitions: %w", err)
	}

	for _, res := range results {
		slog.InfoContext(ctx, "Materialized recurring transaction",
			log.FieldRunID, runID,
			log.FieldOwnerID, ownerID,
			log.FieldDefinitionID, res.Definition.ID,
			"transaction_id", res.Created.ID,
			log.FieldOccurrence, res.Created.Date.String(),
			log.FieldAmountCents, res.Created.Amount.Cents)
		w.announceExecution(ctx, res)
	}

	if len(results) > 0 {
		w.evaluateBudgets(ctx, runID, ownerID, asOf)
	}

	return len(results), nil
}

// evaluateBudgets re-checks the current month after new spend landed and
// publishes the alert subset.
func (w *RecurrenceWorker) evaluateBudgets(ctx context.Context, runID string, ownerID int64, asOf core.Date) {
	_, alerts, err := w.budgets.EvaluateMonth(ctx, ownerID, asOf.MonthKey())
	if err != nil {
		slog.ErrorContext(ctx, "Budget evaluation failed",
			log.FieldRunID, runID,
			log.FieldOwnerID, ownerID,
			log.FieldMonth, asOf.MonthKey(),
			log.FieldError, err)
		return
	}

	for _, alert := range alerts {
		slog.WarnContext(ctx, "Budget alert",
			log.FieldRunID, runID,
			log.FieldOwnerID, ownerID,
			log.FieldMonth, alert.Month,
			"category", alert.Category,
			log.FieldSeverity, string(alert.Severity),
			"message", alert.Message)
		w.announceAlert(ctx, ownerID, alert)
	}
}

func (w *RecurrenceWorker) announceExecution(ctx context.Context, res services.ExecutionResult) {
	if w.publisher == nil {
		return
	}
	msg := amqp.NewRecurringExecutedMessage(
		res.Definition.ID,
		res.Created.ID,
		res.Created.OwnerID,
		res.Created.Date.String(),
		res.Created.Amount.Cents,
		string(res.Created.Kind),
	)
	if err := w.publisher.PublishRecurringExecuted(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish execution event",
			log.FieldDefinitionID, res.Definition.ID,
			"transaction_id", res.Created.ID,
			log.FieldError, err)
	}
}

func (w *RecurrenceWorker) announceAlert(ctx context.Context, ownerID int64, alert services.BudgetAlert) {
	if w.publisher == nil {
		return
	}
	msg := amqp.NewBudgetAlertMessage(ownerID, alert.Month, alert.Category, string(alert.Severity), alert.Message, alert.Percentage)
	if err := w.publisher.PublishBudgetAlert(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget alert",
			log.FieldOwnerID, ownerID,
			log.FieldMonth, alert.Month,
			log.FieldError, err)
	}
}
