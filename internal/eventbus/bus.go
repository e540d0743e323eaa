package eventbus

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/waypoint/internal/log"
	"github.com/zjrosen/waypoint/internal/pubsub"
	"github.com/zjrosen/waypoint/internal/tracing"
)

// Bus is a registry of named-event subscriptions.
// It is safe for concurrent use; listeners are never invoked while the
// registry lock is held, so they may subscribe, unsubscribe, and emit.
type Bus struct {
	mu       sync.RWMutex
	exact    map[string][]*Subscription
	wildcard []*Subscription
	byID     map[string]*Subscription
	seq      uint64
	config   busConfig

	paused bool
	queue  []pendingEmit
	stream *pubsub.Broker[*Envelope]

	emitted   atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

type pendingEmit struct {
	env *Envelope
	cfg emitConfig
}

// Stats reports delivery counters.
type Stats struct {
	Emitted       uint64
	Delivered     uint64
	Failed        uint64
	Dropped       uint64
	Subscriptions int
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Bus{
		exact:  make(map[string][]*Subscription),
		byID:   make(map[string]*Subscription),
		config: config,
	}
}

// On registers a durable listener for event and returns its subscription ID.
func (b *Bus) On(event string, fn Listener, opts ...SubscribeOption) (string, error) {
	return b.subscribe(event, fn, false, false, opts)
}

// Once registers a listener that is removed right after its first
// invocation, whether or not the invocation succeeds.
func (b *Bus) Once(event string, fn Listener, opts ...SubscribeOption) (string, error) {
	return b.subscribe(event, fn, true, false, opts)
}

// OnAny registers a wildcard listener that receives every event after the
// exact-name listeners. Wildcard listeners run in registration order;
// priority is ignored.
func (b *Bus) OnAny(fn Listener, opts ...SubscribeOption) (string, error) {
	return b.subscribe("", fn, false, true, opts)
}

func (b *Bus) subscribe(event string, fn Listener, once, wildcard bool, opts []SubscribeOption) (string, error) {
	if fn == nil {
		return "", fmt.Errorf("subscribe %q: nil listener: %w", event, ErrInvalidArgument)
	}
	if !wildcard && event == "" {
		return "", fmt.Errorf("subscribe: empty event name: %w", ErrInvalidArgument)
	}

	sub := &Subscription{
		ID:        uuid.NewString(),
		Event:     event,
		Once:      once,
		CreatedAt: time.Now(),
		fn:        fn,
		fnPtr:     reflect.ValueOf(fn).Pointer(),
	}
	for _, opt := range opts {
		opt(sub)
	}
	sub.active.Store(true)

	b.mu.Lock()
	b.seq++
	sub.seq = b.seq
	if wildcard {
		b.wildcard = append(b.wildcard, sub)
	} else {
		b.exact[event] = insertByPriority(b.exact[event], sub)
	}
	b.byID[sub.ID] = sub
	count := len(b.exact[event])
	limit := b.config.maxListeners
	onLeak := b.config.onLeak
	b.mu.Unlock()

	if !wildcard && limit > 0 && count > limit {
		log.Warn(log.CatBus, "Possible listener leak", "event", event, "count", count, "max", limit)
		if onLeak != nil {
			onLeak(event, count)
		}
	}

	return sub.ID, nil
}

// insertByPriority keeps subs sorted by descending priority. A new
// subscription goes after every existing one of equal priority.
func insertByPriority(subs []*Subscription, sub *Subscription) []*Subscription {
	i := sort.Search(len(subs), func(i int) bool {
		return subs[i].Priority < sub.Priority
	})
	subs = append(subs, nil)
	copy(subs[i+1:], subs[i:])
	subs[i] = sub
	return subs
}

// Off removes the subscription with the given ID. Returns false when no
// such subscription exists.
func (b *Bus) Off(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.byID[id]
	if !ok {
		return false
	}
	b.removeLocked(sub)
	return true
}

// OffFunc removes the earliest-registered subscription on event whose
// callback is fn.
func (b *Bus) OffFunc(event string, fn Listener) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	var match *Subscription
	for _, sub := range b.exact[event] {
		if sub.sameFunc(fn) && (match == nil || sub.seq < match.seq) {
			match = sub
		}
	}
	if match == nil {
		return false
	}
	b.removeLocked(match)
	return true
}

// OffAny removes the earliest-registered wildcard subscription whose
// callback is fn.
func (b *Bus) OffAny(fn Listener) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.wildcard {
		if sub.sameFunc(fn) {
			b.removeLocked(sub)
			return true
		}
	}
	return false
}

// OffAll removes every exact-name subscription on event and returns how
// many were removed.
func (b *Bus) OffAll(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.exact[event]
	for _, sub := range subs {
		sub.active.Store(false)
		delete(b.byID, sub.ID)
	}
	delete(b.exact, event)
	return len(subs)
}

func (b *Bus) removeLocked(sub *Subscription) {
	if !sub.active.Swap(false) {
		return
	}
	delete(b.byID, sub.ID)

	if sub.Wildcard() {
		b.wildcard = without(b.wildcard, sub)
		return
	}
	remaining := without(b.exact[sub.Event], sub)
	if len(remaining) == 0 {
		delete(b.exact, sub.Event)
		return
	}
	b.exact[sub.Event] = remaining
}

func without(subs []*Subscription, sub *Subscription) []*Subscription {
	for i, s := range subs {
		if s == sub {
			out := make([]*Subscription, 0, len(subs)-1)
			out = append(out, subs[:i]...)
			return append(out, subs[i+1:]...)
		}
	}
	return subs
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	b.removeLocked(sub)
	b.mu.Unlock()
}

// Emit delivers payload to every listener of event and waits for async
// listeners to settle. While the bus is paused the emission is queued and
// the returned envelope is delivered on Resume.
func (b *Bus) Emit(ctx context.Context, event string, payload any, opts ...EmitOption) (*Envelope, error) {
	if event == "" {
		return nil, fmt.Errorf("emit: empty event name: %w", ErrInvalidArgument)
	}
	var cfg emitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	env := newEnvelope(event, payload)

	b.mu.Lock()
	if b.paused {
		b.enqueueLocked(pendingEmit{env: env, cfg: cfg})
		b.mu.Unlock()
		return env, nil
	}
	b.mu.Unlock()

	return env, b.deliver(ctx, env, cfg)
}

func (b *Bus) deliver(ctx context.Context, env *Envelope, cfg emitConfig) error {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.exact[env.Name])+len(b.wildcard))
	subs = append(subs, b.exact[env.Name]...)
	subs = append(subs, b.wildcard...)
	stream := b.stream
	b.mu.RUnlock()

	ctx, span := b.config.tracer.Start(ctx, tracing.SpanEmit, trace.WithAttributes(
		attribute.String(tracing.AttrEventName, env.Name),
		attribute.Int(tracing.AttrEventListeners, len(subs)),
	))
	defer span.End()

	b.emitted.Add(1)

	var (
		wg     conc.WaitGroup
		failed atomic.Bool
		errs   = make([]error, len(subs))
	)
	for i, sub := range subs {
		if env.Stopped() {
			break
		}
		if cfg.throwOnError && failed.Load() {
			break
		}
		if !sub.Active() {
			continue
		}
		if sub.Once {
			if !sub.claim() {
				continue
			}
			b.remove(sub)
		}

		b.delivered.Add(1)
		if sub.Async {
			wg.Go(func() {
				if err := b.invoke(ctx, sub, env); err != nil {
					errs[i] = err
					failed.Store(true)
				}
			})
			continue
		}
		if err := b.invoke(ctx, sub, env); err != nil {
			errs[i] = err
			failed.Store(true)
		}
	}
	wg.Wait()

	if stream != nil {
		stream.Publish(pubsub.EventType(env.Name), env)
	}

	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		b.failed.Add(1)
		span.RecordError(err)
		if first == nil {
			first = &ListenerError{Event: env.Name, SubscriptionID: subs[i].ID, Err: err}
		}
	}
	if first != nil {
		span.SetStatus(codes.Error, first.Error())
		if cfg.throwOnError {
			return first
		}
	}
	return nil
}

func (b *Bus) invoke(ctx context.Context, sub *Subscription, env *Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
		if err != nil {
			log.ErrorErr(log.CatBus, "Listener failed", err, "event", env.Name, "subscription", sub.ID)
		}
	}()
	return sub.fn(context.WithValue(ctx, subscriptionKey{}, sub), env)
}

// ListenerCount returns the number of registered exact-name subscriptions
// for event.
func (b *Bus) ListenerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.exact[event])
}

// AnyListenerCount returns the number of wildcard subscriptions.
func (b *Bus) AnyListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.wildcard)
}

// HasListeners reports whether an emission of event would reach anyone.
func (b *Bus) HasListeners(event string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.exact[event])+len(b.wildcard) > 0
}

// EventNames returns the sorted names of events with at least one
// exact-name subscription.
func (b *Bus) EventNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.exact))
	for name := range b.exact {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subscription returns a registered subscription by ID.
func (b *Bus) Subscription(id string) (*Subscription, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sub, ok := b.byID[id]
	return sub, ok
}

// SetMaxListeners changes the leak warning ceiling. Zero disables it.
func (b *Bus) SetMaxListeners(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n >= 0 {
		b.config.maxListeners = n
	}
}

// Stats returns current delivery counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	subs := len(b.byID)
	b.mu.RUnlock()

	return Stats{
		Emitted:       b.emitted.Load(),
		Delivered:     b.delivered.Load(),
		Failed:        b.failed.Load(),
		Dropped:       b.dropped.Load(),
		Subscriptions: subs,
	}
}

// Close removes every subscription and closes open streams.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.byID {
		sub.active.Store(false)
	}
	b.exact = make(map[string][]*Subscription)
	b.wildcard = nil
	b.byID = make(map[string]*Subscription)
	b.queue = nil
	if b.stream != nil {
		b.stream.Close()
		b.stream = nil
	}
}
