package amqp

import (
	"encoding/json"
	"time"
)

// RecurringExecutedMessage announces that a recurring definition was
// materialized into the ledger. Consumers fetch the full transaction from
// the database; the message carries identifiers only.
type RecurringExecutedMessage struct {
	DefinitionID  int64     `json:"definition_id"`
	TransactionID int64     `json:"transaction_id"`
	OwnerID       int64     `json:"owner_id"`
	Occurrence    string    `json:"occurrence"` // "YYYY-MM-DD"
	AmountCents   int64     `json:"amount_cents"`
	Kind          string    `json:"kind"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewRecurringExecutedMessage creates an execution announcement
func NewRecurringExecutedMessage(definitionID, transactionID, ownerID int64, occurrence string, amountCents int64, kind string) *RecurringExecutedMessage {
	return &RecurringExecutedMessage{
		DefinitionID:  definitionID,
		TransactionID: transactionID,
		OwnerID:       ownerID,
		Occurrence:    occurrence,
		AmountCents:   amountCents,
		Kind:          kind,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecurringExecutedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecurringExecutedMessageFromJSON creates a message from JSON bytes
func RecurringExecutedMessageFromJSON(data []byte) (*RecurringExecutedMessage, error) {
	var msg RecurringExecutedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BudgetAlertMessage announces a budget that crossed the warning or over
// threshold for a month.
type BudgetAlertMessage struct {
	OwnerID    int64     `json:"owner_id"`
	Month      string    `json:"month"` // "YYYY-MM"
	Category   string    `json:"category"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message"`
	Percentage float64   `json:"percentage"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewBudgetAlertMessage creates a budget alert announcement
func NewBudgetAlertMessage(ownerID int64, month, category, severity, message string, percentage float64) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		OwnerID:    ownerID,
		Month:      month,
		Category:   category,
		Severity:   severity,
		Message:    message,
		Percentage: percentage,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessageFromJSON creates a message from JSON bytes
func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
