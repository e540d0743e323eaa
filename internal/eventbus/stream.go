package eventbus

import (
	"context"

	"github.com/zjrosen/waypoint/internal/pubsub"
)

// Stream returns a channel that receives every delivered envelope whose name
// is in events, or every envelope when events is empty. The stream sits
// beside the registry and does not count as a listener. The channel closes
// when ctx is done or the bus is closed.
func (b *Bus) Stream(ctx context.Context, events ...string) <-chan pubsub.Event[*Envelope] {
	b.mu.Lock()
	if b.stream == nil {
		b.stream = pubsub.NewBrokerWithBuffer[*Envelope](b.config.bufferSize)
	}
	stream := b.stream
	b.mu.Unlock()

	types := make([]pubsub.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, pubsub.EventType(e))
	}
	return stream.Subscribe(ctx, types...)
}
