package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StreamName is the Redis stream lifecycle events are mirrored into.
const StreamName = "ticket-events"

// StreamMirror copies every dispatched event into a Redis stream so
// out-of-process consumers can tail the lifecycle. A publish failure is
// logged, never surfaced to the request that emitted the event.
type StreamMirror struct {
	client *redis.Client
	logger *zap.Logger
}

// NewStreamMirror creates the mirror.
func NewStreamMirror(client *redis.Client, logger *zap.Logger) *StreamMirror {
	return &StreamMirror{client: client, logger: logger}
}

// Register subscribes the mirror to every event type.
func (m *StreamMirror) Register(dispatcher Dispatcher) {
	if m == nil || m.client == nil || dispatcher == nil {
		return
	}
	for _, eventType := range AllEventTypes {
		dispatcher.Subscribe(eventType, m.handle)
	}
}

func (m *StreamMirror) handle(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	err = m.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName,
		Values: map[string]interface{}{
			"type":      string(event.Type),
			"ticket_id": event.TicketID,
			"event":     string(payload),
		},
	}).Err()
	if err != nil && m.logger != nil {
		m.logger.Warn("failed to mirror event to redis stream",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
	return nil
}
