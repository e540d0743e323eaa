package eventbus

import "context"

// Namespace prefixes every event name with "prefix:" before touching the
// underlying bus. It holds no state of its own.
type Namespace struct {
	bus    *Bus
	prefix string
}

// Namespace returns a view of the bus scoped to prefix.
func (b *Bus) Namespace(prefix string) *Namespace {
	return &Namespace{bus: b, prefix: prefix}
}

// Prefix returns the namespace prefix.
func (n *Namespace) Prefix() string { return n.prefix }

// Name returns the fully-qualified event name.
func (n *Namespace) Name(event string) string {
	return n.prefix + ":" + event
}

// On subscribes fn to the prefixed event.
func (n *Namespace) On(event string, fn Listener, opts ...SubscribeOption) (string, error) {
	return n.bus.On(n.Name(event), fn, opts...)
}

// Once subscribes fn to the next emission of the prefixed event.
func (n *Namespace) Once(event string, fn Listener, opts ...SubscribeOption) (string, error) {
	return n.bus.Once(n.Name(event), fn, opts...)
}

// Off removes a subscription by ID.
func (n *Namespace) Off(id string) bool {
	return n.bus.Off(id)
}

// OffFunc removes the earliest subscription of fn to the prefixed event.
func (n *Namespace) OffFunc(event string, fn Listener) bool {
	return n.bus.OffFunc(n.Name(event), fn)
}

// Emit emits the prefixed event.
func (n *Namespace) Emit(ctx context.Context, event string, payload any, opts ...EmitOption) (*Envelope, error) {
	return n.bus.Emit(ctx, n.Name(event), payload, opts...)
}

// ListenerCount counts subscriptions to the prefixed event.
func (n *Namespace) ListenerCount(event string) int {
	return n.bus.ListenerCount(n.Name(event))
}
