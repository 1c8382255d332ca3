package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fintrack/fintrack/internal/repository"
	"github.com/fintrack/fintrack/shared/apperr"
	"github.com/fintrack/fintrack/shared/cqrs"
	"github.com/fintrack/fintrack/shared/events"
	"github.com/fintrack/fintrack/shared/models"
)

type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
}

// ViewInvalidator drops cached read models for an owner after a write.
type ViewInvalidator interface {
	InvalidateOwner(ctx context.Context, ownerID int64)
}

type TransactionCommandService struct {
	users     UserStore
	writeRepo TransactionStore
	views     ViewInvalidator
	publisher EventPublisher
	now       func() time.Time
}

func NewTransactionCommandService(
	users UserStore,
	writeRepo TransactionStore,
	views ViewInvalidator,
	publisher EventPublisher,
) *TransactionCommandService {
	return &TransactionCommandService{
		users:     users,
		writeRepo: writeRepo,
		views:     views,
		publisher: publisher,
		now:       time.Now,
	}
}

// CreateTransaction records a transaction for the token's owner. A missing
// type defaults to expense and a missing date to the current time.
func (s *TransactionCommandService) CreateTransaction(ctx context.Context, cmd cqrs.CreateTransactionCommand) (*models.Transaction, error) {
	txType := cmd.TransactionType
	if txType == "" {
		txType = models.TransactionTypeExpense
	}
	if txType != models.TransactionTypeIncome && txType != models.TransactionTypeExpense {
		return nil, apperr.NewValidation("transaction_type must be one of: income expense")
	}

	owner, err := s.users.FindByEmail(ctx, cmd.OwnerEmail)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("token subject %q has no user: %w", cmd.OwnerEmail, err)
		}
		return nil, err
	}

	date := s.now().UTC()
	if cmd.Date != nil {
		date = cmd.Date.UTC()
	}
	tx := &models.Transaction{
		UserID:          owner.ID,
		Amount:          cmd.Amount,
		Description:     cmd.Description,
		Date:            date,
		TransactionType: txType,
	}
	if err := s.writeRepo.Create(ctx, tx); err != nil {
		return nil, err
	}
	if s.views != nil {
		s.views.InvalidateOwner(ctx, owner.ID)
	}

	publish(ctx, s.publisher, events.TransactionEventsStream, events.TransactionCreated, events.TransactionCreatedEvent{
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		Amount:          tx.Amount,
		TransactionType: tx.TransactionType,
		Date:            tx.Date,
	})
	return tx, nil
}
