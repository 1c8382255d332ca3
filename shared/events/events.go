package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	UserRegistered     = "user.registered"
	TransactionCreated = "transaction.created"
)

// Stream names
const (
	UserEventsStream        = "user.events"
	TransactionEventsStream = "transaction.events"
)

// Base event structure
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s event: %w", e.Type, err)
	}
	return nil
}

type UserRegisteredEvent struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type TransactionCreatedEvent struct {
	TransactionID   int64     `json:"transactionId"`
	UserID          int64     `json:"userId"`
	Amount          float64   `json:"amount"`
	TransactionType string    `json:"transactionType"`
	Date            time.Time `json:"date"`
}
