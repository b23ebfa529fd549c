package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

// RecurringStore is the recurring-definition capability of the ledger store.
type RecurringStore interface {
	GetRecurring(ctx context.Context, ownerID, id int64) (core.RecurringDefinition, error)
	ListRecurring(ctx context.Context, ownerID int64) ([]core.RecurringDefinition, error)
	CreateRecurring(ctx context.Context, rd core.RecurringDefinition) (core.RecurringDefinition, error)
	SetRecurringActive(ctx context.Context, ownerID, id int64, active bool) error
	DueDefinitions(ctx context.Context, ownerID int64, asOf core.Date, limit int) ([]core.RecurringDefinition, error)
	ExecuteRecurring(ctx context.Context, def core.RecurringDefinition, next core.Date) (core.Transaction, error)
}

// ExecutionResult reports one materialized occurrence.
type ExecutionResult struct {
	Definition core.RecurringDefinition // schedule already advanced
	Created    core.Transaction
}

// SchedulerService advances recurring definitions and materializes their
// occurrences in the ledger.
type SchedulerService struct {
	store RecurringStore
}

func NewSchedulerService(store RecurringStore) *SchedulerService {
	return &SchedulerService{store: store}
}

func (s *SchedulerService) Create(ctx context.Context, rd core.RecurringDefinition) (core.RecurringDefinition, error) {
	return s.store.CreateRecurring(ctx, rd)
}

func (s *SchedulerService) List(ctx context.Context, ownerID int64) ([]core.RecurringDefinition, error) {
	return s.store.ListRecurring(ctx, ownerID)
}

func (s *SchedulerService) SetActive(ctx context.Context, ownerID, id int64, active bool) error {
	return s.store.SetRecurringActive(ctx, ownerID, id, active)
}

// Due returns active definitions due as of the given day, ascending by next
// occurrence, capped to limit.
func (s *SchedulerService) Due(ctx context.Context, ownerID int64, asOf core.Date, limit int) ([]core.RecurringDefinition, error) {
	return s.store.DueDefinitions(ctx, ownerID, asOf, limit)
}

// Execute materializes the definition's current occurrence: it appends one
// transaction dated at the next-occurrence date and advances the schedule by
// the frequency rule.
//
// Execute is deliberately not idempotent; each call appends a transaction
// and advances the schedule once. Callers invoke it at most once per due
// occurrence. Concurrent calls racing on the same occurrence are resolved by
// the store's guarded update: the loser gets core.ErrConflict and no
// transaction is appended.
func (s *SchedulerService) Execute(ctx context.Context, ownerID, id int64) (ExecutionResult, error) {
	def, err := s.store.GetRecurring(ctx, ownerID, id)
	if err != nil {
		return ExecutionResult{}, err
	}
	return s.execute(ctx, def)
}

func (s *SchedulerService) execute(ctx context.Context, def core.RecurringDefinition) (ExecutionResult, error) {
	next, err := core.NextOccurrence(def.Frequency, def.NextDate)
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("advance %s schedule: %w", def.Frequency, err)
	}

	created, err := s.store.ExecuteRecurring(ctx, def, next)
	if err != nil {
		return ExecutionResult{}, err
	}

	def.LastExecuted = def.NextDate
	def.NextDate = next
	return ExecutionResult{Definition: def, Created: created}, nil
}

// ProcessDue executes every definition due for the owner as of the given
// day, at most batch at a time. A definition that was concurrently executed
// elsewhere is skipped; other failures are logged and do not stop the batch.
func (s *SchedulerService) ProcessDue(ctx context.Context, ownerID int64, asOf core.Date, batch int) ([]ExecutionResult, error) {
	due, err := s.store.DueDefinitions(ctx, ownerID, asOf, batch)
	if err != nil {
		return nil, fmt.Errorf("load due definitions: %w", err)
	}

	var results []ExecutionResult
	for _, def := range due {
		res, err := s.execute(ctx, def)
		if err != nil {
			if errors.Is(err, core.ErrConflict) {
				slog.InfoContext(ctx, "Occurrence already executed elsewhere, skipping",
					"definition_id", def.ID,
					"owner_id", ownerID,
					"occurrence", def.NextDate.String())
				continue
			}
			slog.ErrorContext(ctx, "Failed to execute recurring definition",
				"definition_id", def.ID,
				"owner_id", ownerID,
				"error", err)
			continue
		}
		results = append(results, res)
	}

	return results, nil
}
