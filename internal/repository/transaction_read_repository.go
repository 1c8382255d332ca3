package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/fintrack/fintrack/internal/database"
	"github.com/fintrack/fintrack/shared/models"
	sharedredis "github.com/fintrack/fintrack/shared/redis"
	goredis "github.com/redis/go-redis/v9"
)

const (
	transactionListKeyPrefix    = "transactions:owner:"
	transactionSummaryKeyPrefix = "transactions:summary:"
	transactionGenKeyPrefix     = "transactions:gen:"
)

// TransactionReadRepository handles all read operations for transactions.
// When a Redis client is supplied, per-owner views are cached in front of SQL
// under keys versioned by an owner generation, so a read that started before a
// write can never repopulate the cache with the pre-write view.
type TransactionReadRepository struct {
	db           *database.DB
	generations  *sharedredis.Generations
	listCache    *sharedredis.ViewCache[[]models.TransactionView]
	summaryCache *sharedredis.ViewCache[models.TransactionSummary]
}

// NewTransactionReadRepository builds the read side. redisClient may be nil.
func NewTransactionReadRepository(db *database.DB, redisClient *goredis.Client, ttl time.Duration) *TransactionReadRepository {
	r := &TransactionReadRepository{db: db}
	if redisClient != nil {
		r.generations = sharedredis.NewGenerations(redisClient, transactionGenKeyPrefix)
		r.listCache = sharedredis.NewViewCache[[]models.TransactionView](redisClient, ttl)
		r.summaryCache = sharedredis.NewViewCache[models.TransactionSummary](redisClient, ttl)
	}
	return r
}

// ListByOwner returns the owner's transactions in insertion order.
func (r *TransactionReadRepository) ListByOwner(ctx context.Context, ownerID int64) ([]models.TransactionView, error) {
	gen, cached := r.generation(ctx, ownerID)
	if cached {
		if views, ok := r.listCache.Get(ctx, listKey(ownerID, gen)); ok && *views != nil {
			return *views, nil
		}
	}

	views, err := r.queryList(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if cached {
		r.listCache.Set(ctx, listKey(ownerID, gen), &views)
	}
	return views, nil
}

// SummaryByOwner totals the owner's transactions by type.
func (r *TransactionReadRepository) SummaryByOwner(ctx context.Context, ownerID int64) (*models.TransactionSummary, error) {
	gen, cached := r.generation(ctx, ownerID)
	if cached {
		if summary, ok := r.summaryCache.Get(ctx, summaryKey(ownerID, gen)); ok {
			return summary, nil
		}
	}

	summary, err := r.querySummary(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if cached {
		r.summaryCache.Set(ctx, summaryKey(ownerID, gen), summary)
	}
	return summary, nil
}

// InvalidateOwner moves the owner to a new generation so the next read hits SQL.
func (r *TransactionReadRepository) InvalidateOwner(ctx context.Context, ownerID int64) {
	if r.generations == nil {
		return
	}
	gen, err := r.generations.Bump(ctx, ownerScope(ownerID))
	if err != nil {
		log.Printf("TransactionReadRepository: %v", err)
		return
	}
	r.listCache.Delete(ctx, listKey(ownerID, gen-1), summaryKey(ownerID, gen-1))
}

// generation reports the owner's current cache generation and whether the
// cache may be used at all. Without Redis, or when the generation cannot be
// read, callers go straight to SQL and skip the cache write.
func (r *TransactionReadRepository) generation(ctx context.Context, ownerID int64) (int64, bool) {
	if r.generations == nil {
		return 0, false
	}
	gen, err := r.generations.Current(ctx, ownerScope(ownerID))
	if err != nil {
		log.Printf("TransactionReadRepository: %v", err)
		return 0, false
	}
	return gen, true
}

func (r *TransactionReadRepository) queryList(ctx context.Context, ownerID int64) ([]models.TransactionView, error) {
	query := r.db.Rebind(`
		SELECT id, user_id, amount, description, date, transaction_type
		FROM transactions
		WHERE user_id = ?
		ORDER BY id
	`)
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	views := []models.TransactionView{}
	for rows.Next() {
		var view models.TransactionView
		var description sql.NullString
		if err := rows.Scan(
			&view.ID, &view.UserID, &view.Amount, &description, &view.Date, &view.TransactionType,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if description.Valid {
			d := description.String
			view.Description = &d
		}
		view.Date = view.Date.UTC()
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return views, nil
}

func (r *TransactionReadRepository) querySummary(ctx context.Context, ownerID int64) (*models.TransactionSummary, error) {
	query := r.db.Rebind(`
		SELECT transaction_type, COALESCE(SUM(amount), 0), COUNT(*)
		FROM transactions
		WHERE user_id = ?
		GROUP BY transaction_type
	`)
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise transactions: %w", err)
	}
	defer rows.Close()

	summary := &models.TransactionSummary{}
	for rows.Next() {
		var (
			txType string
			total  float64
			count  int
		)
		if err := rows.Scan(&txType, &total, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		switch txType {
		case models.TransactionTypeIncome:
			summary.Income += total
		case models.TransactionTypeExpense:
			summary.Expense += total
		}
		summary.Count += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to summarise transactions: %w", err)
	}
	summary.Balance = summary.Income - summary.Expense
	return summary, nil
}

func ownerScope(ownerID int64) string {
	return strconv.FormatInt(ownerID, 10)
}

func listKey(ownerID, gen int64) string {
	return fmt.Sprintf("%s%d:%d", transactionListKeyPrefix, ownerID, gen)
}

func summaryKey(ownerID, gen int64) string {
	return fmt.Sprintf("%s%d:%d", transactionSummaryKeyPrefix, ownerID, gen)
}
