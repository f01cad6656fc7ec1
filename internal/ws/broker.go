package ws

import (
	"context"
	"fmt"

	"github.com/go-demo/chatcore/internal/model"
	"github.com/go-demo/chatcore/internal/pkg/cache"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broker carries room events between server instances over Redis pub/sub.
// Every instance publishes to the room's channel and delivers whatever it
// receives on the room pattern to its own hub, so a client sees events
// regardless of which instance produced them.
type Broker struct {
	client *redis.Client
	logger *zap.Logger
}

func NewBroker(client *redis.Client, logger *zap.Logger) *Broker {
	return &Broker{
		client: client,
		logger: logger,
	}
}

// Publish implements service.Publisher.
func (b *Broker) Publish(ctx context.Context, event *model.RoomEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode room event: %w", err)
	}
	if err := b.client.Publish(ctx, cache.RoomEventsChannel(event.RoomID), data).Err(); err != nil {
		return fmt.Errorf("publish room event: %w", err)
	}
	return nil
}

// Run relays subscribed events into hub until ctx is cancelled.
func (b *Broker) Run(ctx context.Context, hub *Hub) error {
	pubsub := b.client.PSubscribe(ctx, cache.PatternRoomEvents)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe room events: %w", err)
	}
	b.logger.Info("Room event broker started", zap.String("pattern", cache.PatternRoomEvents))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Room event broker stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.relay(hub, msg)
		}
	}
}

func (b *Broker) relay(hub *Hub, msg *redis.Message) {
	roomID, ok := cache.ParseRoomEventsChannel(msg.Channel)
	if !ok {
		b.logger.Warn("Ignoring event on unexpected channel", zap.String("channel", msg.Channel))
		return
	}

	var event model.RoomEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		b.logger.Warn("Failed to decode room event",
			zap.String("channel", msg.Channel),
			zap.Error(err),
		)
		return
	}
	event.RoomID = roomID
	hub.Deliver(&event)
}
