package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eden-hr/casetracker/internal/shared/types"
)

// Event represents a domain event
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`

	ActorID types.ID `json:"actor_id"`

	// Aggregate the event belongs to; the stream is derived from it.
	AggregateKind string   `json:"aggregate_kind"`
	AggregateID   types.ID `json:"aggregate_id"`

	Data any `json:"data"`
}

// NewEvent creates a new event with auto-generated ID and timestamp
func NewEvent(eventType, source string, data any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// WithActor sets the actor on the event
func (e Event) WithActor(actorID types.ID) Event {
	e.ActorID = actorID
	return e
}

// WithAggregate sets the aggregate the event belongs to
func (e Event) WithAggregate(kind string, id types.ID) Event {
	e.AggregateKind = kind
	e.AggregateID = id
	return e
}

// WithCorrelation sets the correlation ID for request tracing
func (e Event) WithCorrelation(correlationID string) Event {
	e.CorrelationID = correlationID
	return e
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// EventBus defines the interface for event publishing and subscription
type EventBus interface {
	// Publish publishes an event to the bus
	Publish(ctx context.Context, event Event) error

	// Subscribe delivers events whose type matches pattern ("record.*", "*") to handler
	Subscribe(ctx context.Context, pattern string, consumerName string, handler Handler) error

	// Close closes the event bus connection
	Close()

	// Health checks the event bus connection
	Health() error
}

// matchesPattern checks if an event type matches a wildcard pattern.
// "record.*" matches "record.created"; "*" matches everything.
func matchesPattern(eventType, pattern string) bool {
	if pattern == "*" || pattern == ">" {
		return true
	}

	patternParts := strings.Split(pattern, ".")
	typeParts := strings.Split(eventType, ".")

	for i, pp := range patternParts {
		if pp == "*" {
			return true
		}
		if i >= len(typeParts) {
			return false
		}
		if pp != typeParts[i] {
			return false
		}
	}

	return len(patternParts) == len(typeParts)
}

// patternToRegex converts a simple wildcard pattern to regex
func patternToRegex(pattern string) string {
	if pattern == "*" || pattern == ">" {
		return "^[^$].*"
	}
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '.':
			b.WriteString(`\.`)
		case '*':
			b.WriteString(".*")
		default:
			b.WriteByte(pattern[i])
		}
	}
	return b.String()
}
