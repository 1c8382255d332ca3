package models

import "time"

// TransactionView is the read-optimised projection of a transaction.
// UserID is populated for ownership checks but never serialised to the API response.
type TransactionView struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"-"`
	Amount          float64   `json:"amount"`
	Description     *string   `json:"description"`
	Date            time.Time `json:"date"`
	TransactionType string    `json:"transaction_type"`
}

// TransactionSummary aggregates an owner's transactions by type.
type TransactionSummary struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
	Count   int     `json:"count"`
}
