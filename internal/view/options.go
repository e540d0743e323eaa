package view

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/waypoint/internal/cachemanager"
	"github.com/zjrosen/waypoint/internal/eventbus"
)

// Variant names the transition style recorded on elements. The
// presentation layer decides what each one looks like.
type Variant string

const (
	VariantFade  Variant = "fade"
	VariantSlide Variant = "slide"
	VariantNone  Variant = "none"
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	switch v {
	case VariantFade, VariantSlide, VariantNone:
		return true
	}
	return false
}

const (
	DefaultSettleDelay  = 16 * time.Millisecond
	DefaultExitDuration = 150 * time.Millisecond
	DefaultMaxHistory   = 50
	DefaultContainer    = "main"
)

// Animation controls the transition sequence timing.
type Animation struct {
	Enabled      bool
	Variant      Variant
	SettleDelay  time.Duration
	ExitDuration time.Duration
}

func (a Animation) settle() time.Duration {
	if !a.Enabled {
		return 0
	}
	return a.SettleDelay
}

func (a Animation) exit() time.Duration {
	if !a.Enabled {
		return 0
	}
	return a.ExitDuration
}

func (a Animation) variant() Variant {
	if !a.Enabled || !a.Variant.Valid() {
		return VariantNone
	}
	return a.Variant
}

// Options is the construction-time configuration of an Orchestrator.
type Options struct {
	// Container names the Stage views are mounted into.
	Container   string
	DefaultView string
	Animation   Animation

	// HistoryEnabled mirrors navigations into the History adapter.
	HistoryEnabled bool
	MaxHistory     int

	MaxListeners int
	BufferSize   int

	// CacheTTL bounds how long rendered content of cached views is reused.
	// Zero keeps it until ClearCache or UnregisterView.
	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration
}

// DefaultOptions returns Options with animation and history enabled.
func DefaultOptions() Options {
	return Options{
		Container: DefaultContainer,
		Animation: Animation{
			Enabled:      true,
			Variant:      VariantFade,
			SettleDelay:  DefaultSettleDelay,
			ExitDuration: DefaultExitDuration,
		},
		HistoryEnabled:       true,
		MaxHistory:           DefaultMaxHistory,
		MaxListeners:         eventbus.DefaultMaxListeners,
		BufferSize:           eventbus.DefaultBufferSize,
		CacheCleanupInterval: cachemanager.DefaultCleanupInterval,
	}
}

// NavigateOptions travel with a single navigation. They are handed to
// Render and the lifecycle hooks and included in view-changed.
type NavigateOptions struct {
	Data map[string]any

	// Force re-renders even when the target is already active or cached.
	Force bool

	// ReplaceHistory overwrites the newest history entry instead of
	// pushing a new one.
	ReplaceHistory bool

	// Strict makes an overlapping call return ErrNavigationInProgress
	// instead of nil.
	Strict bool
}

// Option injects a collaborator into an Orchestrator.
type Option func(*Orchestrator)

// WithHistory sets the address history adapter. Without it a
// MemoryHistory is used when history is enabled.
func WithHistory(h History) Option {
	return func(o *Orchestrator) {
		o.history = h
	}
}

// WithStage mounts views into an existing Stage.
func WithStage(s *Stage) Option {
	return func(o *Orchestrator) {
		o.stage = s
	}
}

// WithTracer records a span per navigation and per bus emission.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithContentCache replaces the in-memory content cache.
func WithContentCache(c cachemanager.CacheManager[string, Content]) Option {
	return func(o *Orchestrator) {
		o.cache = c
	}
}

// WithSleep replaces the delay function used between transition steps.
func WithSleep(fn func(ctx context.Context, d time.Duration)) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}
