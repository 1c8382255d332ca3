package cqrs

import "time"

type RegisterUserCommand struct {
	Username string
	Email    string
	Password string
}

type LoginCommand struct {
	Email    string
	Password string
}

// LogoutCommand revokes the presented access token until it would have expired anyway.
type LogoutCommand struct {
	TokenID   string
	ExpiresAt time.Time
}

// CreateTransactionCommand carries an already-parsed request. OwnerEmail is the
// identity claim of the caller's token; Date is nil when the caller sent none.
type CreateTransactionCommand struct {
	OwnerEmail      string
	Amount          float64
	Description     *string
	Date            *time.Time
	TransactionType string
}
