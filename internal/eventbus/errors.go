package eventbus

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the event bus.
var (
	// ErrInvalidArgument is returned when a registration is malformed
	// (nil callback, empty event name).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTimeout is returned by WaitFor and EmitWithTimeout when the
	// deadline elapses first.
	ErrTimeout = errors.New("timeout")

	// ErrListenerFailed matches any *ListenerError.
	ErrListenerFailed = errors.New("listener failed")

	// ErrListenerPanic matches any *PanicError.
	ErrListenerPanic = errors.New("listener panicked")
)

// ListenerError wraps the first listener failure of an emission made with
// ThrowOnError.
type ListenerError struct {
	// Event is the emitted event name.
	Event string

	// SubscriptionID identifies the failing subscription.
	SubscriptionID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return "listener " + e.SubscriptionID + " failed on event " + e.Event + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match ListenerError with ErrListenerFailed.
func (e *ListenerError) Is(target error) bool {
	return target == ErrListenerFailed
}

// PanicError wraps a listener panic value as an error.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("listener panic: %v", e.Value)
}

// Is allows errors.Is to match PanicError with ErrListenerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrListenerPanic
}

// TimeoutError reports which operation gave up waiting.
type TimeoutError struct {
	Op    string // "wait" or "emit"
	Event string
	After time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %q: timed out after %s", e.Op, e.Event, e.After)
}

// Is allows errors.Is to match TimeoutError with ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
