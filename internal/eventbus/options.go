package eventbus

import (
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultMaxListeners is the per-event listener count above which a
	// leak warning is raised.
	DefaultMaxListeners = 100

	// DefaultBufferSize bounds the number of emissions queued while paused.
	DefaultBufferSize = 256
)

// LeakHandler is called when the listener count of an event exceeds the
// configured ceiling.
type LeakHandler func(event string, count int)

// Option configures a Bus.
type Option func(*busConfig)

type busConfig struct {
	maxListeners int
	bufferSize   int
	tracer       trace.Tracer
	onLeak       LeakHandler
}

func defaultBusConfig() busConfig {
	return busConfig{
		maxListeners: DefaultMaxListeners,
		bufferSize:   DefaultBufferSize,
		tracer:       noop.NewTracerProvider().Tracer("eventbus"),
	}
}

// WithMaxListeners sets the per-event leak warning ceiling. Zero disables
// the warning.
func WithMaxListeners(n int) Option {
	return func(c *busConfig) {
		if n >= 0 {
			c.maxListeners = n
		}
	}
}

// WithBufferSize sets how many emissions are kept while the bus is paused.
func WithBufferSize(n int) Option {
	return func(c *busConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithTracer records a span for every emission.
func WithTracer(t trace.Tracer) Option {
	return func(c *busConfig) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithLeakHandler installs a callback for the listener leak warning.
func WithLeakHandler(h LeakHandler) Option {
	return func(c *busConfig) {
		c.onLeak = h
	}
}

// EmitOption configures a single emission.
type EmitOption func(*emitConfig)

type emitConfig struct {
	throwOnError bool
}

// ThrowOnError stops delivery at the first listener failure and makes Emit
// return a *ListenerError once already-started listeners have settled.
func ThrowOnError() EmitOption {
	return func(c *emitConfig) {
		c.throwOnError = true
	}
}
