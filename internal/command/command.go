// Package command holds the write side: registration, transaction creation,
// logout and the audit projection fed by domain events.
package command

import (
	"context"
	"log"
)

// EventPublisher appends domain events to a stream. A nil publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

func publish(ctx context.Context, p EventPublisher, stream, eventType string, data any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, stream, eventType, data); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}
