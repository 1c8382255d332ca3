package command

import (
	"context"
	"log"

	"github.com/fintrack/fintrack/shared/events"
	"github.com/fintrack/fintrack/shared/models"
)

type AuditStore interface {
	Append(ctx context.Context, event *models.AuditEvent) error
}

// AuditProjector is the stream subscriber handler that writes every
// user.registered and transaction.created event to the audit trail.
type AuditProjector struct {
	store AuditStore
}

func NewAuditProjector(store AuditStore) *AuditProjector {
	return &AuditProjector{store: store}
}

func (p *AuditProjector) HandleEvent(ctx context.Context, event events.Event) error {
	var userID int64
	switch event.Type {
	case events.UserRegistered:
		var data events.UserRegisteredEvent
		if err := event.Decode(&data); err != nil {
			return err
		}
		userID = data.UserID
	case events.TransactionCreated:
		var data events.TransactionCreatedEvent
		if err := event.Decode(&data); err != nil {
			return err
		}
		userID = data.UserID
	default:
		log.Printf("Ignoring unknown event type %s", event.Type)
		return nil
	}

	return p.store.Append(ctx, &models.AuditEvent{
		EventType:  event.Type,
		UserID:     userID,
		Payload:    string(event.Data),
		OccurredAt: event.Timestamp,
	})
}
