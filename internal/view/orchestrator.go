package view

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/waypoint/internal/cachemanager"
	"github.com/zjrosen/waypoint/internal/eventbus"
	"github.com/zjrosen/waypoint/internal/log"
)

// Orchestrator owns the view registry and the navigation state machine.
type Orchestrator struct {
	*eventbus.Bus

	options  Options
	stage    *Stage
	history  History
	tracer   trace.Tracer
	cache    cachemanager.CacheManager[string, Content]
	contents *cachemanager.ReadThroughCache[string, Content, renderRequest]
	sleep    func(ctx context.Context, d time.Duration)

	navigating atomic.Bool
	// active is the element on screen; pending is the element being
	// transitioned in. Both are read without o.mu so cache operations can
	// check them while holding a registration lock.
	active  atomic.Pointer[Element]
	pending atomic.Pointer[Element]

	mu       sync.RWMutex
	views    map[string]*Registration
	order    []string
	current  string
	previous string
	stack    []string
	token    string

	baseCtx            context.Context
	unsubscribeHistory func()
}

// State is a snapshot of the navigation state.
type State struct {
	Current    string
	Previous   string
	Navigating bool
	Stack      []string
	Token      string
}

// New creates an Orchestrator. Zero-valued Options fields fall back to the
// package defaults where a zero value would be meaningless.
func New(opts Options, deps ...Option) *Orchestrator {
	if opts.Container == "" {
		opts.Container = DefaultContainer
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = DefaultMaxHistory
	}
	if opts.MaxListeners == 0 {
		opts.MaxListeners = eventbus.DefaultMaxListeners
	}

	o := &Orchestrator{
		options: opts,
		tracer:  noop.NewTracerProvider().Tracer("view"),
		sleep:   sleepContext,
		views:   make(map[string]*Registration),
		baseCtx: context.Background(),
	}
	for _, dep := range deps {
		dep(o)
	}

	o.Bus = eventbus.New(
		eventbus.WithMaxListeners(max(opts.MaxListeners, 0)),
		eventbus.WithBufferSize(opts.BufferSize),
		eventbus.WithTracer(o.tracer),
	)
	if o.stage == nil {
		o.stage = NewStage(opts.Container)
	}
	if o.history == nil && opts.HistoryEnabled {
		o.history = NewMemoryHistory()
	}
	if o.cache == nil {
		mem := cachemanager.NewInMemoryCacheManager[string, Content]("view-content", opts.CacheTTL, opts.CacheCleanupInterval)
		mem.OnEvicted(func(name string, _ Content) {
			log.Debug(log.CatCache, "View content evicted", "view", name)
		})
		o.cache = mem
	}
	o.contents = cachemanager.NewReadThroughCache[string, Content, renderRequest](o.cache, loadContent)

	return o
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Options returns the construction-time options.
func (o *Orchestrator) Options() Options { return o.options }

// Stage returns the mount target.
func (o *Orchestrator) Stage() *Stage { return o.stage }

// History returns the address adapter, or nil when history is disabled.
func (o *Orchestrator) History() History {
	if !o.historyEnabled() {
		return nil
	}
	return o.history
}

func (o *Orchestrator) historyEnabled() bool {
	return o.options.HistoryEnabled && o.history != nil
}

// RegisterView adds a view. Registering an existing name replaces it; the
// replaced registration's retained element is released unless it is the
// one on screen.
func (o *Orchestrator) RegisterView(name string, cfg Config) error {
	if name == "" {
		return fmt.Errorf("register view: empty name: %w", ErrInvalidArgument)
	}
	if cfg.Render == nil {
		return fmt.Errorf("register view %q: nil render: %w", name, ErrInvalidArgument)
	}

	reg := newRegistration(name, cfg)

	o.mu.Lock()
	old, replaced := o.views[name]
	o.views[name] = reg
	if !replaced {
		o.order = append(o.order, name)
	}
	o.mu.Unlock()
	active := o.active.Load()

	if replaced {
		log.Warn(log.CatView, "Replacing view registration", "view", name)
		_ = o.cache.Delete(context.Background(), name)

		old.mu.Lock()
		el := old.element
		old.element = nil
		old.mu.Unlock()

		switch {
		case el == nil:
		case el == active:
			reg.mu.Lock()
			reg.element = el
			reg.mu.Unlock()
		default:
			o.discard(el)
		}
	}

	log.Debug(log.CatView, "Registered view", "view", name, "cache", cfg.Cache)
	o.emit(context.Background(), EventRegistered, name)
	return nil
}

// UnregisterView removes a view and releases its cached content.
// Unregistering the active view leaves the orchestrator pointing at a name
// that no longer resolves; callers navigate away first.
func (o *Orchestrator) UnregisterView(name string) error {
	o.mu.Lock()
	reg, ok := o.views[name]
	if !ok {
		o.mu.Unlock()
		return &ViewNotFoundError{View: name}
	}
	delete(o.views, name)
	for i, n := range o.order {
		if n == name {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	isCurrent := o.current == name
	reg.mu.Lock()
	el := reg.element
	reg.element = nil
	reg.mu.Unlock()
	if el != nil {
		o.active.CompareAndSwap(el, nil)
	}
	o.mu.Unlock()

	if isCurrent {
		log.Warn(log.CatView, "Unregistering active view", "view", name)
	}
	if el != nil {
		o.discard(el)
	}
	_ = o.cache.Delete(context.Background(), name)

	o.emit(context.Background(), EventUnregistered, name)
	return nil
}

func (o *Orchestrator) lookup(name string) (*Registration, bool) {
	if name == "" {
		return nil, false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	reg, ok := o.views[name]
	return reg, ok
}

// View returns a registration by name.
func (o *Orchestrator) View(name string) (*Registration, bool) {
	return o.lookup(name)
}

// Views returns registered names in registration order.
func (o *Orchestrator) Views() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.order...)
}

// CurrentView returns the active view name, or "" before the first navigation.
func (o *Orchestrator) CurrentView() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current
}

// PreviousView returns the view shown before the current one.
func (o *Orchestrator) PreviousView() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.previous
}

// IsNavigating reports whether a navigation is in transition.
func (o *Orchestrator) IsNavigating() bool {
	return o.navigating.Load()
}

// HistoryStack returns visited view names, most recent first.
func (o *Orchestrator) HistoryStack() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.stack...)
}

// CachedViews returns the names of views with cached content, sorted.
func (o *Orchestrator) CachedViews() []string {
	return o.cache.Keys(context.Background())
}

// ActiveContent returns the content of the element on screen.
func (o *Orchestrator) ActiveContent() (Content, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	el := o.active.Load()
	if el == nil {
		return Content{}, false
	}
	return el.Content, true
}

// State returns a snapshot of the navigation state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return State{
		Current:    o.current,
		Previous:   o.previous,
		Navigating: o.navigating.Load(),
		Stack:      append([]string(nil), o.stack...),
		Token:      o.token,
	}
}

// Start subscribes to external history changes and shows the restored or
// default view.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	o.baseCtx = context.WithoutCancel(ctx)
	o.mu.Unlock()

	target := o.options.DefaultView
	var data map[string]any

	if o.historyEnabled() {
		unsubscribe := o.history.OnExternalChange(o.handleExternalChange)
		o.mu.Lock()
		prev := o.unsubscribeHistory
		o.unsubscribeHistory = unsubscribe
		o.mu.Unlock()
		if prev != nil {
			prev()
		}

		if entry, ok := o.history.Read(); ok {
			if _, known := o.lookup(entry.View); known {
				target, data = entry.View, entry.Data
				log.Info(log.CatHistory, "Restoring view from history", "view", entry.View)
			} else {
				log.Warn(log.CatHistory, "History entry names unknown view", "view", entry.View)
			}
		}
	}

	if target == "" {
		log.Debug(log.CatView, "No default view configured")
		return nil
	}
	return o.NavigateTo(ctx, target, NavigateOptions{Data: data, ReplaceHistory: true})
}

func (o *Orchestrator) handleExternalChange(entry Entry) {
	o.mu.RLock()
	ctx := o.baseCtx
	o.mu.RUnlock()

	log.Debug(log.CatHistory, "External history change", "view", entry.View, "token", entry.Token)
	if err := o.NavigateTo(ctx, entry.View, NavigateOptions{Data: entry.Data, ReplaceHistory: true}); err != nil {
		log.ErrorErr(log.CatHistory, "Failed to follow history change", err, "view", entry.View)
	}
}

// Close stops following history, releases every element, and closes the
// bus.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	unsubscribe := o.unsubscribeHistory
	o.unsubscribeHistory = nil
	o.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}

	o.mu.Lock()
	regs := make([]*Registration, 0, len(o.views))
	for _, reg := range o.views {
		regs = append(regs, reg)
	}
	o.active.Store(nil)
	o.mu.Unlock()

	for _, reg := range regs {
		reg.mu.Lock()
		el := reg.element
		reg.element = nil
		reg.mu.Unlock()
		if el != nil {
			o.discard(el)
		}
	}
	for _, el := range o.stage.Elements() {
		o.discard(el)
	}
	_ = o.cache.Flush(context.Background())
	o.Bus.Close()
}

// inUse reports whether el is on screen or being transitioned in. pending
// is loaded first: navigate stores the new active element before clearing
// pending, so one of the two loads always sees it.
func (o *Orchestrator) inUse(el *Element) bool {
	return el != nil && (el == o.pending.Load() || el == o.active.Load())
}

// discard cleans up el and unmounts it.
func (o *Orchestrator) discard(el *Element) {
	el.cleanup()
	o.stage.setPhase(el, PhaseInactive)
	o.stage.detach(el)
}

func (o *Orchestrator) emit(ctx context.Context, event string, payload any) {
	if _, err := o.Emit(ctx, event, payload); err != nil {
		log.ErrorErr(log.CatView, "Failed to emit", err, "event", event)
	}
}

func (o *Orchestrator) reportError(ctx context.Context, view string, err error) {
	log.ErrorErr(log.CatView, "View error", err, "view", view)
	o.emit(ctx, EventError, ErrorEvent{View: view, Err: err})
}
