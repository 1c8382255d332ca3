package models

import "time"

const (
	TransactionTypeIncome  = "income"
	TransactionTypeExpense = "expense"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdTimestamp"`
}

// Transaction is the write model. Description is nil when the caller sent none.
type Transaction struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"-"`
	Amount          float64   `json:"amount"`
	Description     *string   `json:"description"`
	Date            time.Time `json:"date"`
	TransactionType string    `json:"transaction_type"`
}

// AuditEvent is a row of the audit trail projected from domain events.
type AuditEvent struct {
	ID         int64     `json:"id"`
	EventType  string    `json:"eventType"`
	UserID     int64     `json:"userId"`
	Payload    string    `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}
