package view

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/waypoint/internal/log"
	"github.com/zjrosen/waypoint/internal/tracing"
)

type navKind int

const (
	navForward navKind = iota
	navBack
)

// NavigateTo makes name the active view.
//
// Structural failures (unknown view, missing required data) are returned
// before any state changes. Render failures are not: the view is shown
// with FallbackContent and view-error is emitted. A call made while
// another navigation is in transition is logged and ignored.
func (o *Orchestrator) NavigateTo(ctx context.Context, name string, opts NavigateOptions) error {
	return o.navigate(ctx, name, opts, navForward)
}

// GoBack navigates to the previous entry of the history stack, or to the
// default view when there is none.
func (o *Orchestrator) GoBack(ctx context.Context, opts NavigateOptions) error {
	o.mu.RLock()
	target := o.options.DefaultView
	if len(o.stack) > 1 {
		target = o.stack[1]
	}
	o.mu.RUnlock()

	if target == "" {
		log.Debug(log.CatView, "Nothing to go back to")
		return nil
	}
	return o.navigate(ctx, target, opts, navBack)
}

// Refresh re-renders the active view.
func (o *Orchestrator) Refresh(ctx context.Context, opts NavigateOptions) error {
	current := o.CurrentView()
	if current == "" {
		return nil
	}
	opts.Force = true
	opts.ReplaceHistory = true
	return o.NavigateTo(ctx, current, opts)
}

func (o *Orchestrator) navigate(ctx context.Context, name string, opts NavigateOptions, kind navKind) error {
	if !o.navigating.CompareAndSwap(false, true) {
		log.Warn(log.CatView, "Navigation already in progress", "requested", name)
		if opts.Strict {
			return fmt.Errorf("navigate to %q: %w", name, ErrNavigationInProgress)
		}
		return nil
	}
	defer func() {
		o.pending.Store(nil)
		o.navigating.Store(false)
	}()

	ctx, span := o.tracer.Start(ctx, tracing.SpanNavigate, trace.WithAttributes(
		attribute.String(tracing.AttrViewTo, name),
		attribute.Bool(tracing.AttrViewForce, opts.Force),
		attribute.Bool(tracing.AttrViewReplace, opts.ReplaceHistory),
	))
	defer span.End()

	reg, ok := o.lookup(name)
	if !ok {
		err := &ViewNotFoundError{View: name}
		span.SetStatus(codes.Error, err.Error())
		o.reportError(ctx, name, err)
		return err
	}

	o.mu.RLock()
	from := o.current
	o.mu.RUnlock()
	fromEl := o.active.Load()
	span.SetAttributes(attribute.String(tracing.AttrViewFrom, from))

	if from == name && !opts.Force {
		log.Debug(log.CatView, "Already on view", "view", name)
		return nil
	}

	if missing := reg.missingData(opts.Data); len(missing) > 0 {
		err := &MissingDataError{View: name, Keys: missing}
		span.SetStatus(codes.Error, err.Error())
		o.reportError(ctx, name, err)
		return err
	}

	fromReg, _ := o.lookup(from)
	if fromReg != nil && !o.leave(ctx, fromReg, opts) {
		log.Info(log.CatView, "Navigation vetoed", "from", from, "to", name)
		span.SetAttributes(attribute.Bool(tracing.AttrViewVetoed, true))
		return nil
	}

	token := o.record(name, opts, kind)

	el := o.resolve(ctx, reg, fromEl, opts)
	o.transition(ctx, fromReg, fromEl, el)

	o.mu.Lock()
	if from != name {
		o.previous = from
	}
	o.current = name
	o.active.Store(el)
	o.token = token
	o.mu.Unlock()
	o.pending.Store(nil)

	o.enter(ctx, reg, el, opts)

	log.Info(log.CatView, "Navigated", "from", from, "to", name, "fallback", el.Content.Fallback)
	o.emit(ctx, EventChanged, ChangedEvent{From: from, To: name, Options: opts})
	return nil
}

// record pushes name onto the bounded stack and mirrors it into history.
// Going back pops the stack and steps the address history back with it.
func (o *Orchestrator) record(name string, opts NavigateOptions, kind navKind) string {
	token := uuid.NewString()
	mode := WritePush
	if opts.ReplaceHistory {
		mode = WriteReplace
	}

	o.mu.Lock()
	switch {
	case kind == navBack && len(o.stack) > 1 && o.stack[1] == name:
		o.stack = o.stack[1:]
		mode = WriteBack
	case len(o.stack) > 0 && (opts.ReplaceHistory || o.stack[0] == name):
		o.stack[0] = name
	default:
		o.stack = append([]string{name}, o.stack...)
		if len(o.stack) > o.options.MaxHistory {
			o.stack = o.stack[:o.options.MaxHistory]
		}
	}
	o.mu.Unlock()

	if o.historyEnabled() {
		entry := Entry{View: name, Data: opts.Data, Token: token}
		if err := o.history.Write(entry, mode); err != nil {
			log.ErrorErr(log.CatHistory, "Failed to write history entry", err, "view", name, "mode", mode)
		}
	}
	return token
}

// transitioning reports whether name is the view being navigated to.
func (o *Orchestrator) transitioning(name string) bool {
	el := o.pending.Load()
	return el != nil && el.View == name
}

// resolve returns the element to show for reg: the retained one when the
// cache policy allows it, otherwise a freshly rendered one.
func (o *Orchestrator) resolve(ctx context.Context, reg *Registration, onScreen *Element, opts NavigateOptions) *Element {
	ttl := o.options.CacheTTL

	reg.mu.Lock()
	retained := reg.element
	preloaded := reg.preloaded
	reg.preloaded = false
	if retained != nil {
		o.pending.Store(retained)
	}
	reg.mu.Unlock()

	if !opts.Force && (reg.config.Cache || preloaded) && retained != nil {
		if _, ok := o.cache.GetWithRefresh(ctx, reg.name, ttl); ok {
			log.Debug(log.CatCache, "Reusing retained element", "view", reg.name, "preloaded", preloaded)
			trace.SpanFromContext(ctx).SetAttributes(attribute.Bool(tracing.AttrViewCached, true))
			if !reg.config.Cache {
				_ = o.cache.Delete(ctx, reg.name)
			}
			return retained
		}
	}
	if retained != nil && retained != onScreen {
		o.discard(retained)
	}

	req := renderRequest{reg: reg, opts: opts}
	var res renderResult
	if reg.config.Cache {
		var content Content
		var err error
		if opts.Force {
			content, err = o.contents.Reload(ctx, reg.name, req, ttl)
		} else {
			content, err = o.contents.GetWithRefresh(ctx, reg.name, req, ttl)
		}
		res = asRenderResult(reg.name, content, err)
	} else {
		res = render(ctx, req)
	}

	if !res.ok() {
		o.reportError(ctx, reg.name, res.err)
	}

	el := newElement(reg.name, res.contentOrFallback(reg.name), o.options.Animation.variant())
	reg.mu.Lock()
	reg.element = el
	reg.renderedAt = time.Now()
	o.pending.Store(el)
	reg.mu.Unlock()
	return el
}

// transition swaps old for next on the stage:
// old exits, next enters after a settle delay, next becomes active after
// another, then old goes inactive and is released after the exit duration.
func (o *Orchestrator) transition(ctx context.Context, oldReg *Registration, old, next *Element) {
	settle := o.options.Animation.settle()
	swapping := old != nil && old != next

	if swapping {
		o.stage.setPhase(old, PhaseExiting)
	}
	o.sleep(ctx, settle)

	o.stage.attach(next)
	o.stage.setPhase(next, PhaseEntering)
	o.sleep(ctx, settle)
	o.stage.setPhase(next, PhaseActive)

	if !swapping {
		return
	}
	o.stage.setPhase(old, PhaseInactive)
	o.sleep(ctx, o.options.Animation.exit())
	o.release(oldReg, old)
}

// release runs old's cleanup and either hides it for reuse or unmounts it.
func (o *Orchestrator) release(reg *Registration, el *Element) {
	el.cleanup()

	retain := false
	if reg != nil {
		reg.mu.Lock()
		if reg.element == el {
			retain = reg.config.Cache
			if !retain {
				reg.element = nil
			}
		}
		reg.mu.Unlock()
	}

	if retain {
		o.stage.hide(el)
		return
	}
	o.stage.detach(el)
}

func (o *Orchestrator) leave(ctx context.Context, reg *Registration, opts NavigateOptions) (proceed bool) {
	if reg.config.OnLeave == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatView, "OnLeave panicked", "view", reg.name, "panic", r)
			proceed = true
		}
	}()
	return reg.config.OnLeave(ctx, opts)
}

func (o *Orchestrator) enter(ctx context.Context, reg *Registration, el *Element, opts NavigateOptions) {
	if reg.config.OnEnter == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatView, "OnEnter panicked", "view", reg.name, "panic", r)
		}
	}()
	if err := reg.config.OnEnter(context.WithValue(ctx, elementKey{}, el), opts); err != nil {
		log.ErrorErr(log.CatView, "OnEnter failed", err, "view", reg.name)
	}
}

// UpdateView hands data to the active view's OnUpdate hook and emits
// view-updated. Cached content of the active view is dropped so the next
// visit re-renders.
func (o *Orchestrator) UpdateView(ctx context.Context, data map[string]any) {
	name := o.CurrentView()
	reg, ok := o.lookup(name)
	if !ok {
		return
	}

	_ = o.cache.Delete(ctx, name)
	if reg.config.OnUpdate != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error(log.CatView, "OnUpdate panicked", "view", name, "panic", r)
				}
			}()
			if err := reg.config.OnUpdate(ctx, data); err != nil {
				log.ErrorErr(log.CatView, "OnUpdate failed", err, "view", name)
			}
		}()
	}

	o.emit(ctx, EventUpdated, UpdatedEvent{View: name, Data: data})
}

// PreloadView renders name into the cache without showing it. The next
// navigation to it reuses the preloaded element unless forced.
func (o *Orchestrator) PreloadView(ctx context.Context, name string, opts NavigateOptions) error {
	reg, ok := o.lookup(name)
	if !ok {
		err := &ViewNotFoundError{View: name}
		o.reportError(ctx, name, err)
		return err
	}
	if missing := reg.missingData(opts.Data); len(missing) > 0 {
		err := &MissingDataError{View: name, Keys: missing}
		o.reportError(ctx, name, err)
		return err
	}
	if o.CurrentView() == name || o.transitioning(name) {
		return nil
	}

	ctx, span := o.tracer.Start(ctx, tracing.SpanPreload, trace.WithAttributes(attribute.String(tracing.AttrViewName, name)))
	defer span.End()

	content, err := o.contents.Reload(ctx, name, renderRequest{reg: reg, opts: opts}, o.options.CacheTTL)
	if res := asRenderResult(name, content, err); !res.ok() {
		span.SetStatus(codes.Error, res.err.Error())
		o.reportError(ctx, name, res.err)
		return res.err
	}

	el := newElement(name, content, o.options.Animation.variant())
	reg.mu.Lock()
	old := reg.element
	if o.inUse(old) {
		reg.mu.Unlock()
		log.Debug(log.CatView, "View went on screen during preload", "view", name)
		return nil
	}
	reg.element = el
	reg.preloaded = true
	reg.renderedAt = time.Now()
	reg.mu.Unlock()

	if old != nil {
		o.discard(old)
	}

	log.Debug(log.CatView, "Preloaded view", "view", name)
	o.emit(ctx, EventPreloaded, name)
	return nil
}

// ClearCache drops retained elements and cached content for the named
// views, or for every view when none are named. The element on screen and
// the one being transitioned in are kept. Returns the names that were
// cleared.
func (o *Orchestrator) ClearCache(names ...string) []string {
	ctx := context.Background()
	if len(names) == 0 {
		names = o.Views()
	}

	var cleared []string
	for _, name := range names {
		reg, ok := o.lookup(name)
		if !ok {
			continue
		}
		_ = o.cache.Delete(ctx, name)

		reg.mu.Lock()
		el := reg.element
		if el != nil && !o.inUse(el) {
			reg.element = nil
		} else {
			el = nil
		}
		reg.preloaded = false
		reg.mu.Unlock()

		if el != nil {
			o.discard(el)
		}
		cleared = append(cleared, name)
	}

	if len(cleared) > 0 {
		log.Debug(log.CatCache, "Cleared view cache", "views", cleared)
		o.emit(ctx, EventCacheCleared, cleared)
	}
	return cleared
}
