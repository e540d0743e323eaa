package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRegisterView_InvalidArguments(t *testing.T) {
	o := newTestOrchestrator(t)

	err := o.RegisterView("", Config{Render: (&staticView{}).render})
	require.ErrorIs(t, err, ErrInvalidArgument)

	err = o.RegisterView("a", Config{})
	require.ErrorIs(t, err, ErrInvalidArgument)

	require.Empty(t, o.Views())
}

func TestRegisterView_EmitsRegistered(t *testing.T) {
	o := newTestOrchestrator(t)
	events := record(t, o, EventRegistered)

	registerStatic(t, o, "a", "b")

	got := events.all()
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].Payload)
	require.Equal(t, "b", got[1].Payload)
	require.Equal(t, []string{"a", "b"}, o.Views())
}

func TestRegisterView_DuplicateLastWins(t *testing.T) {
	o := newTestOrchestrator(t)
	first := &staticView{body: "first"}
	second := &staticView{body: "second"}

	register(t, o, "a", Config{Render: first.render})
	register(t, o, "a", Config{Render: second.render, Title: "Second"})

	require.Equal(t, []string{"a"}, o.Views())
	require.NoError(t, o.NavigateTo(context.Background(), "a", NavigateOptions{}))

	content, ok := o.ActiveContent()
	require.True(t, ok)
	require.Equal(t, "second", content.Body)
	require.Equal(t, int32(0), first.renders.Load())

	reg, ok := o.View("a")
	require.True(t, ok)
	require.Equal(t, "Second", reg.Title())
}

func TestRegisterView_ReplacingActiveKeepsScreen(t *testing.T) {
	o := newTestOrchestrator(t)
	registerStatic(t, o, "a")
	require.NoError(t, o.NavigateTo(context.Background(), "a", NavigateOptions{}))

	register(t, o, "a", Config{Render: (&staticView{body: "v2"}).render})

	require.Equal(t, 1, o.Stage().ActiveCount())
	content, ok := o.ActiveContent()
	require.True(t, ok)
	require.Equal(t, "a", content.Body)

	require.NoError(t, o.Refresh(context.Background(), NavigateOptions{}))
	content, _ = o.ActiveContent()
	require.Equal(t, "v2", content.Body)
	require.Len(t, o.Stage().Elements(), 1)
}

// Scenario A.
func TestNavigateTo_SwitchesView(t *testing.T) {
	o := newTestOrchestrator(t)
	registerStatic(t, o, "a", "b")
	require.NoError(t, o.Start(context.Background()))
	require.Equal(t, "a", o.CurrentView())

	changed := record(t, o, EventChanged)

	require.NoError(t, o.NavigateTo(context.Background(), "b", NavigateOptions{}))

	require.Equal(t, "b", o.CurrentView())
	require.Equal(t, "a", o.PreviousView())
	got := changed.all()
	require.Len(t, got, 1)
	ev, ok := got[0].Payload.(ChangedEvent)
	require.True(t, ok)
	require.Equal(t, "a", ev.From)
	require.Equal(t, "b", ev.To)
}

// Scenario B.
func TestNavigateTo_RenderFailureShowsFallback(t *testing.T) {
	o := newTestOrchestrator(t)
	registerStatic(t, o, "a")
	register(t, o, "broken", Config{Render: func(context.Context, NavigateOptions) (Content, error) {
		return Content{}, errors.New("itinerary unreadable")
	}})
	viewErrors := record(t, o, EventError)

	err := o.NavigateTo(context.Background(), "broken", NavigateOptions{})
	require.NoError(t, err)

	require.Equal(t, "broken", o.CurrentView())
	content, ok := o.ActiveContent()
	require.True(t, ok)
	require.True(t, content.Fallback)
	require.Contains(t, content.Body, "itinerary unreadable")
	require.Contains(t, content.Body, ReloadHint)

	got := viewErrors.all()
	require.Len(t, got, 1)
	ev := got[0].Payload.(ErrorEvent)
	require.Equal(t, "broken", ev.View)
	require.ErrorIs(t, ev.Err, ErrRenderFailed)
	require.False(t, o.IsNavigating())
	require.Equal(t, 1, o.Stage().ActiveCount())
}

func TestNavigateTo_RenderPanicShowsFallback(t *testing.T) {
	o := newTestOrchestrator(t)
	register(t, o, "panics", Config{Render: func(context.Context, NavigateOptions) (Content, error) {
		panic("nil itinerary")
	}})
	viewErrors := record(t, o, EventError)

	require.NoError(t, o.NavigateTo(context.Background(), "panics", NavigateOptions{}))

	content, _ := o.ActiveContent()
	require.True(t, content.Fallback)
	require.Equal(t, 1, viewErrors.count())
	require.False(t, o.IsNavigating())
}

// Scenario C.
func TestNavigateTo_MissingRequiredData(t *testing.T) {
	o := newTestOrchestrator(t)
	registerStatic(t, o, "a")
	c := &staticView{body: "c"}
	register(t, o, "c", Config{Render: c.render, RequiredData: []string{"id", "day"}})
	require.NoError(t, o.Start(context.Background()))
	before := o.State()

	err := o.NavigateTo(context.Background(), "c", NavigateOptions{Data: map[string]any{"day": 2}})
	require.ErrorIs(t, err, ErrMissingRequiredData)

	var missing *MissingDataError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, []string{"id"}, missing.Keys)

	require.Equal(t, before, o.State())
	require.Equal(t, int32(0), c.renders.Load())

	require.NoError(t, o.NavigateTo(context.Background(), "c", NavigateOptions{Data: map[string]any{"id": "t1", "day": 2}}))
	require.Equal(t, "c", o.CurrentView())
}

func TestNavigateTo_UnknownView(t *testing.T) {
	o := newTestOrchestrator(t)
	registerStatic(t, o, "a")
	viewErrors := record(t, o, EventError)

	err := o.NavigateTo(context.Background(), "nope", NavigateOptions{})
	require.ErrorIs(t, err, ErrViewNotFound)

	var nf *ViewNotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "nope", nf.View)
	require.Equal(t, 1, viewErrors.count())
	require.Empty(t, o.CurrentView())
	require.False(t, o.IsNavigating())
}

func TestNavigateTo_SameViewIsNoop(t *testing.T) {
	o := newTestOrchestrator(t)
	var enters, leaves int
	a := &staticView{body: "a"}
	register(t, o, "a", Config{
		Render:  a.render,
		OnEnter: func(context.Context, NavigateOptions) error { enters++; return nil },
		OnLeave: func(context.Context, NavigateOptions) bool { leaves++; return true },
	})
	require.NoError(t, o.NavigateTo(context.Background(), "a", NavigateOptions{}))
	changed := record(t, o, EventChanged)

	require.NoError(t, o.NavigateTo(context.Background(), "a", NavigateOptions{}))

	require.Equal(t, 1, enters)
	require.Equal(t, 0, leaves)
	require.Equal(t, 0, changed.count())
	require.Equal(t, int32(1), a.renders.Load())
}

func TestNavigateTo_ForceRerendersSameView(t *testing.T) {
	o := newTestOrchestrator(t)
	views := registerStatic(t, o, "a")
	require.NoError(t, o.NavigateTo(context.Background(), "a", NavigateOptions{}))
	changed := record(t, o, EventChanged)

	require.NoError(t, o.NavigateTo(context.Background(), "a", NavigateOptions{Force: true}))

	require.Equal(t, int32(2), views["a"].renders.Load())
	require.Equal(t, 1, changed.count())
	require.Equal(t, 1, o.Stage().ActiveCount())
	require.Len(t, o.Stage().Elements(), 1)
	require.Empty(t, o.PreviousView())
}

func TestNavigateTo_OnLeaveVeto(t *testing.T) {
	o := newTestOrchestrator(t)
	editor := &staticView{body: "editor"}
	register(t, o, "editor", Config{
		Render:  editor.render,
		OnLeave: func(context.Context, NavigateOptions) bool { return false },
	})
	registerStatic(t, o, "b")
	require.NoError(t, o.NavigateTo(context.Background(), "editor", NavigateOptions{}))
	changed := record(t, o, EventChanged)

	require.NoError(t, o.NavigateTo(context.Background(), "b", NavigateOptions{}))

	require.Equal(t, "editor", o.CurrentView())
	require.Equal(t, 0, changed.count())
	require.Equal(t, []string{"editor"}, o.HistoryStack())
}

func TestNavigateTo_HookPanicsAreContained(t *testing.T) {
	o := newTestOrchestrator(t)
	register(t, o, "a", Config{
		Render:  (&staticView{body: "a"}).render,
		OnLeave: func(context.Context, NavigateOptions) bool { panic("leave") },
	})
	register(t, o, "b", Config{
		Render:  (&staticView{body: "b"}).render,
		OnEnter: func(context.Context, NavigateOptions) error { panic("enter") },
	})

	require.NoError(t, o.NavigateTo(context.Background(), "a", NavigateOptions{}))
	require.NoError(t, o.NavigateTo(context.Background(), "b", NavigateOptions{}))
	require.Equal(t, "b", o.CurrentView())
	require.False(t, o.IsNavigating())
}

func TestNavigateTo_OverlapIsRejected(t *testing.T) {
	o := newTestOrchestrator(t)
	registerStatic(t, o, "a", "b")
	started := make(chan struct{})
	release := make(chan struct{})
	register(t, o, "slow", Config{Render: func(context.Context, NavigateOptions) (Content, error) {
		close(started)
		<-release
		return Content{Body: "slow"}, nil
	}})
	require.NoError(t, o.NavigateTo(context.Background(), "a", NavigateOptions{}))

	done := make(chan error, 1)
	go func() {
		done <- o.NavigateTo(context.Background(), "slow", NavigateOptions{})
	}()
	<-started
	require.True(t, o.IsNavigating())

	require.NoError(t, o.NavigateTo(context.Background(), "b", NavigateOptions{}))
	err := o.NavigateTo(context.Background(), "b", NavigateOptions{Strict: true})
	require.ErrorIs(t, err, ErrNavigationInProgress)
	require.Equal(t, "a", o.CurrentView())

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, "slow", o.CurrentView())
	require.False(t, o.IsNavigating())
}

func TestNavigateTo_CachedViewReusesElement(t *testing.T) {
	o := newTestOrchestrator(t)
	trips := &staticView{body: "trips"}
	register(t, o, "trips", Config{Render: trips.render, Cache: true})
	registerStatic(t, o, "map")

	ctx := context.Background()
	require.NoError(t, o.NavigateTo(ctx, "trips", NavigateOptions{}))
	reg, _ := o.View("trips")
	first := reg.Element()

	require.NoError(t, o.NavigateTo(ctx, "map", NavigateOptions{}))
	require.Same(t, first, reg.Element())
	require.True(t, first.Hidden())
	require.Equal(t, PhaseInactive, first.Phase())

	require.NoError(t, o.NavigateTo(ctx, "trips", NavigateOptions{}))
	require.Equal(t, int32(1), trips.renders.Load())
	require.Same(t, first, reg.Element())
	require.False(t, first.Hidden())
	require.Equal(t, PhaseActive, first.Phase())

	require.NoError(t, o.Refresh(ctx, NavigateOptions{}))
	require.Equal(t, int32(2), trips.renders.Load())
	require.NotSame(t, first, reg.Element())
	require.Equal(t, 1, o.Stage().ActiveCount())
}

func TestNavigateTo_UncachedViewIsReleased(t *testing.T) {
	o := newTestOrchestrator(t)
	views := registerStatic(t, o, "a", "b")
	ctx := context.Background()

	require.NoError(t, o.NavigateTo(ctx, "a", NavigateOptions{}))
	require.NoError(t, o.NavigateTo(ctx, "b", NavigateOptions{}))
	require.NoError(t, o.NavigateTo(ctx, "a", NavigateOptions{}))

	require.Equal(t, int32(2), views["a"].renders.Load())
	require.Len(t, o.Stage().Elements(), 1)
	regB, _ := o.View("b")
	require.Nil(t, regB.Element())
}

func TestNavigateTo_CleanupRunsOnRelease(t *testing.T) {
	o := newTestOrchestrator(t)
	var cleaned int
	register(t, o, "a", Config{
		Render: (&staticView{body: "a"}).render,
		OnEnter: func(ctx context.Context, _ NavigateOptions) error {
			el := ElementFromContext(ctx)
			require.NotNil(t, el)
			el.OnCleanup(func() { cleaned++ })
			return nil
		},
	})
	registerStatic(t, o, "b")

	require.NoError(t, o.NavigateTo(context.Background(), "a", NavigateOptions{}))
	require.Equal(t, 0, cleaned)
	require.NoError(t, o.NavigateTo(context.Background(), "b", NavigateOptions{}))
	require.Equal(t, 1, cleaned)
}

func TestNavigateTo_TransitionPhases(t *testing.T) {
	o := newTestOrchestrator(t)
	registerStatic(t, o, "a", "b")
	require.NoError(t, o.NavigateTo(context.Background(), "a", NavigateOptions{}))

	type change struct {
		view     string
		from, to Phase
	}
	var changes []change
	o.Stage().Observe(func(el *Element, from, to Phase) {
		changes = append(changes, change{el.View, from, to})
	})

	require.NoError(t, o.NavigateTo(context.Background(), "b", NavigateOptions{}))

	require.Equal(t, []change{
		{"a", PhaseActive, PhaseExiting},
		{"b", PhaseInactive, PhaseEntering},
		{"b", PhaseEntering, PhaseActive},
		{"a", PhaseExiting, PhaseInactive},
	}, changes)
}

func TestNavigateTo_AnimationDelays(t *testing.T) {
	var delays []time.Duration
	sleep := WithSleep(func(_ context.Context, d time.Duration) {
		delays = append(delays, d)
	})

	opts := DefaultOptions()
	opts.DefaultView = "a"
	o := New(opts, sleep)
	t.Cleanup(o.Close)
	registerStatic(t, o, "a", "b")

	require.NoError(t, o.NavigateTo(context.Background(), "a", NavigateOptions{}))
	require.Equal(t, []time.Duration{DefaultSettleDelay, DefaultSettleDelay}, delays)

	delays = nil
	require.NoError(t, o.NavigateTo(context.Background(), "b", NavigateOptions{}))
	require.Equal(t, []time.Duration{DefaultSettleDelay, DefaultSettleDelay, DefaultExitDuration}, delays)

	el := o.Stage().Active()
	require.NotNil(t, el)
	require.Equal(t, VariantFade, el.Variant)
}

func TestNavigateTo_AnimationDisabled(t *testing.T) {
	var delays []time.Duration
	o := newTestOrchestrator(t, WithSleep(func(_ context.Context, d time.Duration) {
		delays = append(delays, d)
	}))
	registerStatic(t, o, "a", "b")

	require.NoError(t, o.NavigateTo(context.Background(), "a", NavigateOptions{}))
	require.NoError(t, o.NavigateTo(context.Background(), "b", NavigateOptions{}))

	for _, d := range delays {
		require.Zero(t, d)
	}
	require.Equal(t, VariantNone, o.Stage().Active().Variant)
}

func TestGoBack(t *testing.T) {
	o := newTestOrchestrator(t)
	registerStatic(t, o, "a", "b", "c")
	ctx := context.Background()

	require.NoError(t, o.GoBack(ctx, NavigateOptions{}))
	require.Equal(t, "a", o.CurrentView())

	require.NoError(t, o.NavigateTo(ctx, "b", NavigateOptions{}))
	require.NoError(t, o.NavigateTo(ctx, "c", NavigateOptions{}))
	require.Equal(t, []string{"c", "b", "a"}, o.HistoryStack())

	require.NoError(t, o.GoBack(ctx, NavigateOptions{}))
	require.Equal(t, "b", o.CurrentView())
	require.Equal(t, []string{"b", "a"}, o.HistoryStack())

	require.NoError(t, o.GoBack(ctx, NavigateOptions{}))
	require.Equal(t, "a", o.CurrentView())
	require.Equal(t, []string{"a"}, o.HistoryStack())
}

func TestHistoryStack_Bounded(t *testing.T) {
	o := New(Options{MaxHistory: 3})
	t.Cleanup(o.Close)
	registerStatic(t, o, "a", "b")

	for i := 0; i < 6; i++ {
		name := "a"
		if i%2 == 1 {
			name = "b"
		}
		require.NoError(t, o.NavigateTo(context.Background(), name, NavigateOptions{}))
	}

	require.Equal(t, []string{"b", "a", "b"}, o.HistoryStack())
}

func TestRefresh_NoCurrentView(t *testing.T) {
	o := newTestOrchestrator(t)
	require.NoError(t, o.Refresh(context.Background(), NavigateOptions{}))
	require.Empty(t, o.CurrentView())
}

func TestUpdateView(t *testing.T) {
	o := newTestOrchestrator(t)
	var got map[string]any
	register(t, o, "a", Config{
		Render: (&staticView{body: "a"}).render,
		Cache:  true,
		OnUpdate: func(_ context.Context, data map[string]any) error {
			got = data
			return nil
		},
	})
	updated := record(t, o, EventUpdated)

	o.UpdateView(context.Background(), map[string]any{"ignored": true})
	require.Nil(t, got)
	require.Equal(t, 0, updated.count())

	require.NoError(t, o.NavigateTo(context.Background(), "a", NavigateOptions{}))
	o.UpdateView(context.Background(), map[string]any{"trip": "porto"})

	require.Equal(t, map[string]any{"trip": "porto"}, got)
	events := updated.all()
	require.Len(t, events, 1)
	require.Equal(t, UpdatedEvent{View: "a", Data: map[string]any{"trip": "porto"}}, events[0].Payload)
}

func TestPreloadView(t *testing.T) {
	o := newTestOrchestrator(t)
	views := registerStatic(t, o, "a", "b")
	preloaded := record(t, o, EventPreloaded)
	ctx := context.Background()

	require.NoError(t, o.NavigateTo(ctx, "a", NavigateOptions{}))
	require.NoError(t, o.PreloadView(ctx, "b", NavigateOptions{}))
	require.Equal(t, int32(1), views["b"].renders.Load())
	require.Equal(t, 1, preloaded.count())
	require.Equal(t, "a", o.CurrentView())

	reg, _ := o.View("b")
	el := reg.Element()
	require.NotNil(t, el)

	require.NoError(t, o.NavigateTo(ctx, "b", NavigateOptions{}))
	require.Equal(t, int32(1), views["b"].renders.Load())
	require.Same(t, el, o.Stage().Active())

	err := o.PreloadView(ctx, "missing", NavigateOptions{})
	require.ErrorIs(t, err, ErrViewNotFound)
}

func TestPreloadView_RenderFailure(t *testing.T) {
	o := newTestOrchestrator(t)
	register(t, o, "broken", Config{Render: func(context.Context, NavigateOptions) (Content, error) {
		return Content{}, errors.New("offline")
	}})

	err := o.PreloadView(context.Background(), "broken", NavigateOptions{})
	require.ErrorIs(t, err, ErrRenderFailed)

	reg, _ := o.View("broken")
	require.Nil(t, reg.Element())
}

func TestClearCache(t *testing.T) {
	o := newTestOrchestrator(t)
	trips := &staticView{body: "trips"}
	register(t, o, "trips", Config{Render: trips.render, Cache: true})
	registerStatic(t, o, "map")
	cleared := record(t, o, EventCacheCleared)
	ctx := context.Background()

	require.NoError(t, o.NavigateTo(ctx, "trips", NavigateOptions{}))
	require.NoError(t, o.NavigateTo(ctx, "map", NavigateOptions{}))
	require.Equal(t, []string{"trips"}, o.CachedViews())

	got := o.ClearCache()
	require.Empty(t, o.CachedViews())
	require.Equal(t, []string{"trips", "map"}, got)
	require.Equal(t, 1, cleared.count())

	reg, _ := o.View("trips")
	require.Nil(t, reg.Element())
	require.Equal(t, 1, o.Stage().ActiveCount())
	require.Len(t, o.Stage().Elements(), 1)

	require.NoError(t, o.NavigateTo(ctx, "trips", NavigateOptions{}))
	require.Equal(t, int32(2), trips.renders.Load())

	require.Empty(t, o.ClearCache("unknown"))
}

// enteringHook returns an orchestrator whose second settle delay of the
// next navigation calls fn, while the incoming element is Entering.
func enteringHook(t *testing.T) (*Orchestrator, func(fn func())) {
	t.Helper()
	var sleeps int
	var hook func()
	opts := DefaultOptions()
	opts.DefaultView = "a"
	o := New(opts, WithSleep(func(context.Context, time.Duration) {
		sleeps++
		if sleeps == 2 && hook != nil {
			hook()
		}
	}))
	t.Cleanup(o.Close)
	return o, func(fn func()) {
		sleeps = 0
		hook = fn
	}
}

func TestClearCache_KeepsElementInTransition(t *testing.T) {
	o, onEntering := enteringHook(t)
	registerStatic(t, o, "a")
	b := &staticView{body: "b"}
	register(t, o, "b", Config{Render: b.render, Cache: true})
	ctx := context.Background()
	require.NoError(t, o.NavigateTo(ctx, "a", NavigateOptions{}))

	reg, _ := o.View("b")
	var phase Phase
	var cleared []string
	onEntering(func() {
		phase = reg.Element().Phase()
		cleared = o.ClearCache()
	})
	require.NoError(t, o.NavigateTo(ctx, "b", NavigateOptions{}))

	require.Equal(t, PhaseEntering, phase)
	require.Equal(t, []string{"a", "b"}, cleared)
	require.Equal(t, "b", o.CurrentView())
	require.False(t, o.IsNavigating())
	require.Equal(t, 1, o.Stage().ActiveCount())
	require.NotNil(t, reg.Element())
	require.Same(t, reg.Element(), o.Stage().Active())

	content, ok := o.ActiveContent()
	require.True(t, ok)
	require.Equal(t, "b", content.Body)
}

func TestPreloadView_SkipsViewInTransition(t *testing.T) {
	o, onEntering := enteringHook(t)
	registerStatic(t, o, "a")
	b := &staticView{body: "b"}
	register(t, o, "b", Config{Render: b.render, Cache: true})
	preloaded := record(t, o, EventPreloaded)
	ctx := context.Background()
	require.NoError(t, o.NavigateTo(ctx, "a", NavigateOptions{}))

	var preloadErr error
	onEntering(func() {
		preloadErr = o.PreloadView(ctx, "b", NavigateOptions{})
	})
	require.NoError(t, o.NavigateTo(ctx, "b", NavigateOptions{}))

	require.NoError(t, preloadErr)
	require.Zero(t, preloaded.count())
	require.Equal(t, int32(1), b.renders.Load())
	require.Equal(t, 1, o.Stage().ActiveCount())
	require.Len(t, o.Stage().Elements(), 1)

	reg, _ := o.View("b")
	require.Same(t, reg.Element(), o.Stage().Active())
}

func TestPreloadView_KeepsOutgoingElement(t *testing.T) {
	o, onEntering := enteringHook(t)
	a := &staticView{body: "a"}
	register(t, o, "a", Config{Render: a.render, Cache: true})
	registerStatic(t, o, "b")
	ctx := context.Background()
	require.NoError(t, o.NavigateTo(ctx, "a", NavigateOptions{}))

	regA, _ := o.View("a")
	outgoing := regA.Element()
	onEntering(func() {
		require.NoError(t, o.PreloadView(ctx, "a", NavigateOptions{}))
	})
	require.NoError(t, o.NavigateTo(ctx, "b", NavigateOptions{}))

	require.Equal(t, 1, o.Stage().ActiveCount())
	require.Equal(t, "b", o.Stage().Active().View)
	require.Same(t, outgoing, regA.Element(), "element on screen during the preload is kept")
	require.True(t, outgoing.Hidden())
}

func TestUnregisterView(t *testing.T) {
	o := newTestOrchestrator(t)
	register(t, o, "trips", Config{Render: (&staticView{body: "trips"}).render, Cache: true})
	registerStatic(t, o, "map")
	unregistered := record(t, o, EventUnregistered)
	ctx := context.Background()

	require.NoError(t, o.NavigateTo(ctx, "trips", NavigateOptions{}))
	require.NoError(t, o.NavigateTo(ctx, "map", NavigateOptions{}))
	require.Len(t, o.Stage().Elements(), 2)

	require.NoError(t, o.UnregisterView("trips"))
	require.Equal(t, 1, unregistered.count())
	require.Len(t, o.Stage().Elements(), 1)
	require.Equal(t, []string{"map"}, o.Views())

	err := o.UnregisterView("trips")
	require.ErrorIs(t, err, ErrViewNotFound)
}

func TestStart_NoDefaultView(t *testing.T) {
	o := New(Options{})
	t.Cleanup(o.Close)
	registerStatic(t, o, "a")

	require.NoError(t, o.Start(context.Background()))
	require.Empty(t, o.CurrentView())
}

func TestState_Snapshot(t *testing.T) {
	o := newTestOrchestrator(t)
	registerStatic(t, o, "a", "b")
	require.NoError(t, o.Start(context.Background()))
	require.NoError(t, o.NavigateTo(context.Background(), "b", NavigateOptions{}))

	state := o.State()
	assert.Equal(t, "b", state.Current)
	assert.Equal(t, "a", state.Previous)
	assert.False(t, state.Navigating)
	assert.Equal(t, []string{"b", "a"}, state.Stack)
	assert.NotEmpty(t, state.Token)
}

func TestClose_ReleasesElements(t *testing.T) {
	o := New(Options{})
	register(t, o, "a", Config{Render: (&staticView{body: "a"}).render, Cache: true})
	registerStatic(t, o, "b")
	require.NoError(t, o.NavigateTo(context.Background(), "a", NavigateOptions{}))
	require.NoError(t, o.NavigateTo(context.Background(), "b", NavigateOptions{}))

	o.Close()

	require.Empty(t, o.Stage().Elements())
	require.Empty(t, o.EventNames())
}

// ===========================================================================
// Property-Based Tests (using pgregory.net/rapid)
// ===========================================================================

func TestProperty_NavigationInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		o := New(Options{DefaultView: "a", MaxHistory: 5})
		defer o.Close()

		names := []string{"a", "b", "c", "broken"}
		for _, name := range names[:3] {
			cached := rapid.Bool().Draw(rt, "cache-"+name)
			require.NoError(rt, o.RegisterView(name, Config{
				Render: (&staticView{body: name}).render,
				Cache:  cached,
			}))
		}
		require.NoError(rt, o.RegisterView("broken", Config{Render: func(context.Context, NavigateOptions) (Content, error) {
			return Content{}, errors.New("broken")
		}}))

		ctx := context.Background()
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0, 1:
				target := rapid.SampledFrom(names).Draw(rt, "target")
				force := rapid.Bool().Draw(rt, "force")
				require.NoError(rt, o.NavigateTo(ctx, target, NavigateOptions{Force: force}))
				require.Equal(rt, target, o.CurrentView())
			case 2:
				require.NoError(rt, o.GoBack(ctx, NavigateOptions{}))
			case 3:
				o.ClearCache()
			}

			require.False(rt, o.IsNavigating())
			if o.CurrentView() != "" {
				require.Equal(rt, 1, o.Stage().ActiveCount())
			}
			require.LessOrEqual(rt, len(o.HistoryStack()), 5)
		}
	})
}
