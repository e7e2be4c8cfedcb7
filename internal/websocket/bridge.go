package websocket

import (
	"context"
	"encoding/json"

	"pollstream/pkg/events"
)

// EventBridge feeds poll events from the broker into the hub. Going through
// redis pub/sub keeps every server process's hub fed, not just the one that
// handled the mutation.
type EventBridge struct {
	subscriber events.Subscriber
	hub        *Hub
}

func NewEventBridge(subscriber events.Subscriber, hub *Hub) *EventBridge {
	return &EventBridge{subscriber: subscriber, hub: hub}
}

func (b *EventBridge) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, events.ChannelPolls, func(ctx context.Context, event events.Event) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		b.hub.Broadcast(payload)
		return nil
	})
}
