package events

import (
	"context"
	"encoding/json"
	"fmt"

	"pollstream/pkg/logger"

	"github.com/redis/go-redis/v9"
)

type RedisBroker struct {
	Client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{Client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.Client.Publish(ctx, channel, data).Err()
}

// Subscribe delivers events in the order redis publishes them. Handler errors
// are logged and skipped so one bad payload cannot stall the stream.
func (b *RedisBroker) Subscribe(ctx context.Context, channel string, handler Handler) error {
	pubsub := b.Client.Subscribe(ctx, channel)

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					if l := logger.GetGlobalLogger(); l != nil {
						l.Errorf("events: bad payload on %s: %v", msg.Channel, err)
					}
					continue
				}
				if err := handler(ctx, event); err != nil {
					if l := logger.GetGlobalLogger(); l != nil {
						l.Errorf("events: handler error on %s: %v", msg.Channel, err)
					}
				}
			}
		}
	}()

	return nil
}
