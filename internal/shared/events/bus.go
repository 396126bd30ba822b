package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"

	"github.com/eden-hr/casetracker/internal/shared/config"
	"github.com/eden-hr/casetracker/internal/shared/logger"
)

// Bus provides event publishing and subscription using KurrentDB
type Bus struct {
	client *esdb.Client
	prefix string
}

var _ EventBus = (*Bus)(nil)

// NewBus creates a new event bus connected to KurrentDB
func NewBus(ctx context.Context, cfg config.KurrentDBConfig) (*Bus, error) {
	settings, err := esdb.ParseConnectionString(buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	client, err := esdb.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create KurrentDB client: %w", err)
	}

	prefix := cfg.StreamPrefix
	if prefix == "" {
		prefix = "eden"
	}
	bus := &Bus{client: client, prefix: prefix}

	if err := bus.Health(); err != nil {
		client.Close()
		return nil, err
	}
	return bus, nil
}

// buildConnectionString creates the esdb:// connection string
func buildConnectionString(cfg config.KurrentDBConfig) string {
	var auth string
	if cfg.Username != "" && cfg.Password != "" {
		auth = fmt.Sprintf("%s:%s@", cfg.Username, cfg.Password)
	}

	params := ""
	if cfg.Insecure {
		params = "?tls=false&tlsVerifyCert=false&keepAliveInterval=10000&keepAliveTimeout=10000"
	}

	return fmt.Sprintf("esdb://%s%s:%d%s", auth, cfg.Host, cfg.Port, params)
}

// StreamName returns the stream an event is appended to: one stream per aggregate,
// e.g. eden-incident-<id>, falling back to the event type for events without one.
func StreamName(prefix string, event Event) string {
	if event.AggregateKind != "" && !event.AggregateID.IsZero() {
		return fmt.Sprintf("%s-%s-%s", prefix, event.AggregateKind, event.AggregateID)
	}
	return fmt.Sprintf("%s-%s", prefix, normalizeEventType(event.Type))
}

// Publish publishes an event to the bus
func (b *Bus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		eventID = uuid.New()
	}

	_, err = b.client.AppendToStream(ctx, StreamName(b.prefix, event), esdb.AppendToStreamOptions{
		ExpectedRevision: esdb.Any{},
	}, esdb.EventData{
		EventType:   event.Type,
		ContentType: esdb.ContentTypeJson,
		Data:        data,
		EventID:     eventID,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// normalizeEventType converts event type to stream-safe format
func normalizeEventType(eventType string) string {
	result := []byte(eventType)
	for i := range result {
		if result[i] == '.' {
			result[i] = '-'
		}
	}
	return string(result)
}

// Subscribe starts a catch-up subscription on $all, filtered by event type, from the current end.
func (b *Bus) Subscribe(ctx context.Context, pattern string, consumerName string, handler Handler) error {
	sub, err := b.client.SubscribeToAll(ctx, esdb.SubscribeToAllOptions{
		From: esdb.End{},
		Filter: &esdb.SubscriptionFilter{
			Type:  esdb.EventFilterType,
			Regex: patternToRegex(pattern),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to pattern: %w", err)
	}

	go b.handleSubscription(ctx, sub, pattern, consumerName, handler)
	return nil
}

func (b *Bus) handleSubscription(ctx context.Context, sub *esdb.Subscription, pattern, consumerName string, handler Handler) {
	defer sub.Close()
	log := logger.With("consumer", consumerName, "pattern", pattern)

	for {
		if ctx.Err() != nil {
			return
		}

		subEvent := sub.Recv()
		if subEvent.SubscriptionDropped != nil {
			log.Warn("subscription dropped", "error", subEvent.SubscriptionDropped.Error)
			return
		}
		if subEvent.EventAppeared == nil || subEvent.EventAppeared.Event == nil {
			continue
		}

		recorded := subEvent.EventAppeared.Event
		if len(recorded.EventType) > 0 && recorded.EventType[0] == '$' {
			continue
		}
		if !matchesPattern(recorded.EventType, pattern) {
			continue
		}

		var event Event
		if err := json.Unmarshal(recorded.Data, &event); err != nil {
			log.Error("failed to decode event", "event_id", recorded.EventID.String(), "error", err)
			continue
		}
		if event.ID == "" {
			event.ID = recorded.EventID.String()
		}

		if err := handler(ctx, event); err != nil {
			log.Error("event handler failed", "event_id", event.ID, "type", event.Type, "error", err)
		}
	}
}

// Close closes the event bus connection
func (b *Bus) Close() {
	if b.client != nil {
		b.client.Close()
	}
}

// Health checks the KurrentDB connection
func (b *Bus) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := b.client.ReadAll(ctx, esdb.ReadAllOptions{
		From:      esdb.Start{},
		Direction: esdb.Forwards,
	}, 1)
	if err != nil {
		return fmt.Errorf("KurrentDB health check failed: %w", err)
	}
	stream.Close()

	return nil
}
