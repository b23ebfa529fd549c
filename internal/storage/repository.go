// Package storage implements the ledger store on SQLite. Every row is scoped
// by an owner id; queries never cross owners.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const transactionColumns = `t.id, t.date, t.amount_cents, t.kind, t.category_id, COALESCE(c.name, ''), t.description, t.owner_id`

// AppendTransaction inserts a new ledger row and returns it with the
// assigned id.
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (date, amount_cents, kind, category_id, description, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.Date.String(), t.Amount.Cents, string(t.Kind), nullID(t.CategoryID), t.Description, t.OwnerID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id

	slog.InfoContext(ctx, "Transaction appended",
		"id", t.ID,
		"owner_id", t.OwnerID,
		"kind", t.Kind,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())

	return t, nil
}

// QueryTransactions returns the owner's transactions matching the filter,
// ordered by date then id, newest first. The filter is translated into
// parameterized conditions; values are never concatenated into SQL text.
func (r *SQLiteRepository) QueryTransactions(ctx context.Context, ownerID int64, f core.Filter) ([]core.Transaction, error) {
	where, args := filterConditions(ownerID, f)
	query := `SELECT ` + transactionColumns + `
		FROM transactions t
		LEFT JOIN categories c ON t.category_id = c.id
		WHERE ` + where + `
		ORDER BY t.date DESC, t.id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txns, nil
}

// UpdateTransaction replaces the mutable fields of an owned transaction.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET date = ?, amount_cents = ?, kind = ?, category_id = ?, description = ?
		 WHERE id = ? AND owner_id = ?`,
		t.Date.String(), t.Amount.Cents, string(t.Kind), nullID(t.CategoryID), t.Description, t.ID, t.OwnerID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res, "transaction")
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res, "transaction")
}

// MonthCategorySpend sums the owner's expense transactions for a month and a
// category. A nil category matches only uncategorized transactions (literal
// null equality), not all categories.
func (r *SQLiteRepository) MonthCategorySpend(ctx context.Context, ownerID int64, month string, categoryID *int64) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0)
		 FROM transactions
		 WHERE owner_id = ? AND kind = 'expense'
		   AND category_id IS ?
		   AND strftime('%Y-%m', date) = ?`,
		ownerID, nullID(categoryID), month).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum month category spend: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func filterConditions(ownerID int64, f core.Filter) (string, []any) {
	conds := []string{"t.owner_id = ?"}
	args := []any{ownerID}

	if f.Kind != "" {
		conds = append(conds, "t.kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.CategoryID != nil {
		conds = append(conds, "t.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.Month != 0 {
		conds = append(conds, "CAST(strftime('%m', t.date) AS INTEGER) = ?")
		args = append(args, f.Month)
	}
	if f.Year != 0 {
		conds = append(conds, "CAST(strftime('%Y', t.date) AS INTEGER) = ?")
		args = append(args, f.Year)
	}
	if !f.From.IsZero() {
		conds = append(conds, "t.date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		conds = append(conds, "t.date <= ?")
		args = append(args, f.To.String())
	}

	return strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

// nullableID scans a nullable integer foreign key.
type nullableID struct {
	sql.NullInt64
}

func (n nullableID) ptr() *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t        core.Transaction
		dateStr  string
		kindStr  string
		category nullableID
	)
	if err := row.Scan(&t.ID, &dateStr, &t.Amount.Cents, &kindStr, &category, &t.Category, &t.Description, &t.OwnerID); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	t.Date = date
	t.Kind = core.Kind(kindStr)
	t.CategoryID = category.ptr()
	return t, nil
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func requireRow(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, core.ErrNotFound)
	}
	return nil
}
