package eventbus

import (
	"sync/atomic"
	"time"
)

// Envelope is the record shared by every listener of a single Emit call.
type Envelope struct {
	Name      string
	Payload   any
	Timestamp time.Time

	stopped   atomic.Bool
	prevented atomic.Bool
}

func newEnvelope(name string, payload any) *Envelope {
	return &Envelope{
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// StopPropagation prevents listeners not yet invoked from receiving the event.
func (e *Envelope) StopPropagation() {
	e.stopped.Store(true)
}

// Stopped reports whether a listener called StopPropagation.
func (e *Envelope) Stopped() bool {
	return e.stopped.Load()
}

// PreventDefault marks the event as handled so the emitter can skip its
// default behaviour.
func (e *Envelope) PreventDefault() {
	e.prevented.Store(true)
}

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Envelope) DefaultPrevented() bool {
	return e.prevented.Load()
}
