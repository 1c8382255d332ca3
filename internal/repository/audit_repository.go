package repository

import (
	"context"
	"fmt"

	"github.com/fintrack/fintrack/internal/database"
	"github.com/fintrack/fintrack/shared/models"
)

// AuditRepository stores the audit trail projected from domain events.
type AuditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	query := r.db.Rebind(`
		INSERT INTO audit_events (event_type, user_id, payload, occurred_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowContext(ctx, query,
		event.EventType, event.UserID, event.Payload, event.OccurredAt.UTC(),
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// ListByUser returns the user's audit events, oldest first.
func (r *AuditRepository) ListByUser(ctx context.Context, userID int64) ([]models.AuditEvent, error) {
	query := r.db.Rebind(`
		SELECT id, event_type, user_id, payload, occurred_at
		FROM audit_events
		WHERE user_id = ?
		ORDER BY id
	`)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var out []models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.UserID, &e.Payload, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.OccurredAt = e.OccurredAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
