package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fintrack/fintrack/internal/database"
	"github.com/fintrack/fintrack/shared/models"
)

// TransactionWriteRepository handles all state-mutating operations for transactions.
type TransactionWriteRepository struct {
	db *database.DB
}

func NewTransactionWriteRepository(db *database.DB) *TransactionWriteRepository {
	return &TransactionWriteRepository{db: db}
}

// Create inserts tx and fills in its ID. The date is stored in UTC.
func (r *TransactionWriteRepository) Create(ctx context.Context, tx *models.Transaction) error {
	tx.Date = tx.Date.UTC()
	query := r.db.Rebind(`
		INSERT INTO transactions (amount, description, date, transaction_type, user_id)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowContext(ctx, query,
		tx.Amount, nullString(tx.Description), tx.Date, tx.TransactionType, tx.UserID,
	).Scan(&tx.ID)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
