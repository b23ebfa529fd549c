package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

type (
	// Kind is the polarity of a transaction.
	Kind string

	// Frequency is the repetition rule of a recurring definition.
	Frequency string

	// Transaction is a single ledger entry scoped to one owner.
	Transaction struct {
		ID          int64
		Date        Date
		Amount      Money
		Kind        Kind
		CategoryID  *int64
		Category    string // joined category name, empty when uncategorized
		Description string
		OwnerID     int64
	}

	Category struct {
		ID      int64
		Name    string
		OwnerID int64
	}

	// Budget is a monthly spending limit, optionally bound to a category.
	// At most one budget exists per (month, category, owner).
	Budget struct {
		ID         int64
		Month      string // "YYYY-MM"
		CategoryID *int64
		Category   string
		Limit      Money
		OwnerID    int64
	}

	// RecurringDefinition is a template for scheduled transactions.
	// NextDate is the only scheduling field the engine advances.
	RecurringDefinition struct {
		ID           int64
		Title        string
		Amount       Money
		Kind         Kind
		CategoryID   *int64
		Category     string
		Frequency    Frequency
		StartDate    Date
		NextDate     Date
		LastExecuted Date // zero when never executed
		Description  string
		Active       bool
		OwnerID      int64
	}

	// FinancialGoal tracks a savings target against income transactions
	// whose description mentions the goal title.
	FinancialGoal struct {
		ID           int64
		Title        string
		Description  string
		TargetAmount Money
		TargetDate   Date
		CreatedAt    time.Time
		OwnerID      int64
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("schedule already advanced")
	ErrDuplicate        = errors.New("already exists")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrEmptyTitle       = errors.New("empty title")
)

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (b Budget) Validate() error {
	if _, err := ParseMonthKey(b.Month); err != nil {
		return err
	}
	return b.Limit.Validate()
}

func (rd RecurringDefinition) Validate() error {
	if len(strings.TrimSpace(rd.Title)) == 0 {
		return ErrEmptyTitle
	}
	if err := rd.Amount.Validate(); err != nil {
		return err
	}
	if err := rd.Kind.Validate(); err != nil {
		return err
	}
	if err := rd.Frequency.Validate(); err != nil {
		return err
	}
	if err := rd.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if err := rd.NextDate.Validate(); err != nil {
		return errors.New("invalid next date: " + err.Error())
	}
	return nil
}

// Schedule states of a recurring definition. Only scheduled definitions
// are eligible for execution.
const (
	StateScheduled ScheduleState = "scheduled"
	StateDormant   ScheduleState = "dormant"
	StateInactive  ScheduleState = "inactive"
)

type ScheduleState string

// State classifies the definition as of a reference day: inactive when
// disabled, scheduled when the next occurrence is due (past or present),
// dormant otherwise.
func (rd RecurringDefinition) State(asOf Date) ScheduleState {
	if !rd.Active {
		return StateInactive
	}
	if !rd.NextDate.After(asOf.Time) {
		return StateScheduled
	}
	return StateDormant
}

// Filter is a conjunctive predicate over transactions. Zero-valued fields
// do not constrain the result.
type Filter struct {
	Kind       Kind   // empty = any
	CategoryID *int64 // nil = any
	Month      int    // 1-12, 0 = any
	Year       int    // 0 = any
	From       Date   // zero = unbounded
	To         Date   // zero = unbounded
}

// Matches reports whether t satisfies every set constraint.
func (f Filter) Matches(t Transaction) bool {
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *f.CategoryID) {
		return false
	}
	if f.Month != 0 && t.Date.Month() != f.Month {
		return false
	}
	if f.Year != 0 && t.Date.Year() != f.Year {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To.Time) {
		return false
	}
	return true
}
