package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

const recurringColumns = `r.id, r.title, r.amount_cents, r.kind, r.category_id, COALESCE(c.name, ''),
	r.frequency, r.start_date, r.next_date, r.last_executed, r.description, r.active, r.owner_id`

// CreateRecurring stores a new recurring definition. NextDate starts at the
// definition's start date.
func (r *SQLiteRepository) CreateRecurring(ctx context.Context, rd core.RecurringDefinition) (core.RecurringDefinition, error) {
	if rd.NextDate.IsZero() {
		rd.NextDate = rd.StartDate
	}
	if err := rd.Validate(); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("validate recurring definition: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_transactions
		 (title, amount_cents, kind, category_id, frequency, start_date, next_date, description, active, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rd.Title, rd.Amount.Cents, string(rd.Kind), nullID(rd.CategoryID), string(rd.Frequency),
		rd.StartDate.String(), rd.NextDate.String(), rd.Description, rd.Active, rd.OwnerID)
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("insert recurring definition: %w", err)
	}
	if rd.ID, err = res.LastInsertId(); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Recurring definition created",
		"id", rd.ID,
		"owner_id", rd.OwnerID,
		"title", rd.Title,
		"frequency", rd.Frequency,
		"next_date", rd.NextDate.String())

	return rd, nil
}

// GetRecurring loads an owned recurring definition or core.ErrNotFound.
func (r *SQLiteRepository) GetRecurring(ctx context.Context, ownerID, id int64) (core.RecurringDefinition, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+`
		 FROM recurring_transactions r
		 LEFT JOIN categories c ON r.category_id = c.id
		 WHERE r.id = ? AND r.owner_id = ?`, id, ownerID)

	rd, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringDefinition{}, fmt.Errorf("recurring definition %d: %w", id, core.ErrNotFound)
	}
	return rd, err
}

// ListRecurring returns all of the owner's definitions ordered by next
// occurrence.
func (r *SQLiteRepository) ListRecurring(ctx context.Context, ownerID int64) ([]core.RecurringDefinition, error) {
	return r.queryRecurring(ctx,
		`SELECT `+recurringColumns+`
		 FROM recurring_transactions r
		 LEFT JOIN categories c ON r.category_id = c.id
		 WHERE r.owner_id = ?
		 ORDER BY r.next_date ASC, r.id ASC`, ownerID)
}

// DueDefinitions returns active definitions whose next occurrence is at or
// before asOf, ascending by next occurrence, capped to limit.
func (r *SQLiteRepository) DueDefinitions(ctx context.Context, ownerID int64, asOf core.Date, limit int) ([]core.RecurringDefinition, error) {
	return r.queryRecurring(ctx,
		`SELECT `+recurringColumns+`
		 FROM recurring_transactions r
		 LEFT JOIN categories c ON r.category_id = c.id
		 WHERE r.owner_id = ? AND r.active = 1 AND r.next_date <= ?
		 ORDER BY r.next_date ASC, r.id ASC
		 LIMIT ?`, ownerID, asOf.String(), limit)
}

// OwnersWithDue lists the owners that have at least one due definition.
func (r *SQLiteRepository) OwnersWithDue(ctx context.Context, asOf core.Date) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT owner_id FROM recurring_transactions
		 WHERE active = 1 AND next_date <= ?
		 ORDER BY owner_id`, asOf.String())
	if err != nil {
		return nil, fmt.Errorf("query owners with due definitions: %w", err)
	}
	defer rows.Close()

	var owners []int64
	for rows.Next() {
		var owner int64
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owners: %w", err)
	}
	return owners, nil
}

// SetRecurringActive toggles a definition's active flag.
func (r *SQLiteRepository) SetRecurringActive(ctx context.Context, ownerID, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET active = ? WHERE id = ? AND owner_id = ?`,
		active, id, ownerID)
	if err != nil {
		return fmt.Errorf("update recurring active flag: %w", err)
	}
	return requireRow(res, "recurring definition")
}

// ExecuteRecurring materializes one occurrence of a definition: it appends
// the concrete transaction dated at the definition's current next occurrence
// and advances the schedule, in a single database transaction.
//
// The schedule update is guarded on the next date read by the caller; when a
// concurrent execution already advanced it the whole operation rolls back
// with core.ErrConflict, so exactly one transaction is appended per due
// occurrence.
func (r *SQLiteRepository) ExecuteRecurring(ctx context.Context, def core.RecurringDefinition, next core.Date) (core.Transaction, error) {
	created := core.Transaction{
		Date:        def.NextDate,
		Amount:      def.Amount,
		Kind:        def.Kind,
		CategoryID:  def.CategoryID,
		Category:    def.Category,
		Description: def.Title + " (Auto)",
		OwnerID:     def.OwnerID,
	}
	if err := created.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate generated transaction: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin execute recurring: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE recurring_transactions
		 SET next_date = ?, last_executed = ?
		 WHERE id = ? AND owner_id = ? AND next_date = ?`,
		next.String(), def.NextDate.String(), def.ID, def.OwnerID, def.NextDate.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("advance schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.Transaction{}, fmt.Errorf("recurring definition %d at %s: %w",
			def.ID, def.NextDate.String(), core.ErrConflict)
	}

	ins, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (date, amount_cents, kind, category_id, description, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		created.Date.String(), created.Amount.Cents, string(created.Kind),
		nullID(created.CategoryID), created.Description, created.OwnerID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert generated transaction: %w", err)
	}
	if created.ID, err = ins.LastInsertId(); err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit execute recurring: %w", err)
	}

	slog.InfoContext(ctx, "Recurring definition executed",
		"definition_id", def.ID,
		"transaction_id", created.ID,
		"owner_id", def.OwnerID,
		"occurrence", def.NextDate.String(),
		"next_date", next.String())

	return created, nil
}

func (r *SQLiteRepository) queryRecurring(ctx context.Context, query string, args ...any) ([]core.RecurringDefinition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recurring definitions: %w", err)
	}
	defer rows.Close()

	var defs []core.RecurringDefinition
	for rows.Next() {
		rd, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring definitions: %w", err)
	}
	return defs, nil
}

func scanRecurring(row rowScanner) (core.RecurringDefinition, error) {
	var (
		rd           core.RecurringDefinition
		kindStr      string
		freqStr      string
		startStr     string
		nextStr      string
		lastExecuted sql.NullString
		category     nullableID
	)
	err := row.Scan(&rd.ID, &rd.Title, &rd.Amount.Cents, &kindStr, &category, &rd.Category,
		&freqStr, &startStr, &nextStr, &lastExecuted, &rd.Description, &rd.Active, &rd.OwnerID)
	if err != nil {
		return core.RecurringDefinition{}, err
	}

	rd.Kind = core.Kind(kindStr)
	rd.Frequency = core.Frequency(freqStr)
	rd.CategoryID = category.ptr()

	if rd.StartDate, err = core.ParseDate(startStr); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("parse stored start date %q: %w", startStr, err)
	}
	if rd.NextDate, err = core.ParseDate(nextStr); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("parse stored next date %q: %w", nextStr, err)
	}
	if lastExecuted.Valid && lastExecuted.String != "" {
		if rd.LastExecuted, err = core.ParseDate(lastExecuted.String); err != nil {
			return core.RecurringDefinition{}, fmt.Errorf("parse stored last executed %q: %w", lastExecuted.String, err)
		}
	}
	return rd, nil
}
