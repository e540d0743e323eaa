package eventbus

import (
	"context"
	"reflect"
	"sync/atomic"
	"time"
)

// Listener receives an emitted event. A non-nil error is logged and, for
// emissions made with ThrowOnError, surfaced as a *ListenerError.
type Listener func(ctx context.Context, ev *Envelope) error

// Subscription is one registered listener plus its delivery metadata.
type Subscription struct {
	ID        string
	Event     string // empty for wildcard subscriptions
	Priority  int
	Context   any
	Once      bool
	Async     bool
	CreatedAt time.Time

	fn     Listener
	fnPtr  uintptr
	seq    uint64
	fired  atomic.Bool
	active atomic.Bool
}

// Wildcard reports whether the subscription receives every event.
func (s *Subscription) Wildcard() bool {
	return s.Event == ""
}

// Active reports whether the subscription is still registered.
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// claim marks a once subscription as consumed. It returns false when another
// emission already claimed it.
func (s *Subscription) claim() bool {
	if !s.Once {
		return true
	}
	return s.fired.CompareAndSwap(false, true)
}

// sameFunc reports whether fn is the callback this subscription was
// registered with. Two closures created from the same function literal
// share a code pointer and therefore compare equal.
func (s *Subscription) sameFunc(fn Listener) bool {
	return fn != nil && s.fnPtr == reflect.ValueOf(fn).Pointer()
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*Subscription)

// WithPriority sets the delivery priority. Higher values run first.
func WithPriority(p int) SubscribeOption {
	return func(s *Subscription) {
		s.Priority = p
	}
}

// WithContext attaches an arbitrary bound value to the subscription.
// Listeners read it back through SubscriptionFromContext.
func WithContext(v any) SubscribeOption {
	return func(s *Subscription) {
		s.Context = v
	}
}

// Async runs the listener on its own goroutine. Emit still waits for it to
// settle before returning.
func Async() SubscribeOption {
	return func(s *Subscription) {
		s.Async = true
	}
}

type subscriptionKey struct{}

// SubscriptionFromContext returns the subscription whose listener is being
// invoked, or nil outside of a delivery.
func SubscriptionFromContext(ctx context.Context) *Subscription {
	sub, _ := ctx.Value(subscriptionKey{}).(*Subscription)
	return sub
}
