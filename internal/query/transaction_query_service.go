package query

import (
	"context"
	"fmt"

	"github.com/fintrack/fintrack/shared/cqrs"
	"github.com/fintrack/fintrack/shared/models"
)

type TransactionReader interface {
	ListByOwner(ctx context.Context, ownerID int64) ([]models.TransactionView, error)
	SummaryByOwner(ctx context.Context, ownerID int64) (*models.TransactionSummary, error)
}

// TransactionQueryService serves transaction reads. Every read is scoped to
// the user named by the caller's token.
type TransactionQueryService struct {
	users    UserFinder
	readRepo TransactionReader
}

func NewTransactionQueryService(users UserFinder, readRepo TransactionReader) *TransactionQueryService {
	return &TransactionQueryService{users: users, readRepo: readRepo}
}

func (s *TransactionQueryService) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.TransactionView, error) {
	owner, err := s.resolveOwner(ctx, q.OwnerEmail)
	if err != nil {
		return nil, err
	}
	return s.readRepo.ListByOwner(ctx, owner.ID)
}

func (s *TransactionQueryService) GetSummary(ctx context.Context, q cqrs.TransactionSummaryQuery) (*models.TransactionSummary, error) {
	owner, err := s.resolveOwner(ctx, q.OwnerEmail)
	if err != nil {
		return nil, err
	}
	return s.readRepo.SummaryByOwner(ctx, owner.ID)
}

// A valid token whose subject has no user is an internal failure, not a client error.
func (s *TransactionQueryService) resolveOwner(ctx context.Context, email string) (*models.User, error) {
	owner, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token subject %q: %w", email, err)
	}
	return owner, nil
}
