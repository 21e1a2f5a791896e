// Package domain contains the event types streamed to observers.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names the kind of payload an event carries.
type EventType string

const (
	EventOpportunity EventType = "opportunity"
	EventExecution   EventType = "execution"
)

// Event is one entry of the outbound feed.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps payload with a fresh id.
func NewEvent(t EventType, payload any, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: at,
	}
}

// Subscriber receives events. A returned error unregisters it.
type Subscriber interface {
	Send(ctx context.Context, e Event) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ctx context.Context, e Event) error

// Send calls f.
func (f SubscriberFunc) Send(ctx context.Context, e Event) error {
	return f(ctx, e)
}
