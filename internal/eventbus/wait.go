package eventbus

import (
	"context"
	"time"
)

// WaitFor blocks until event is emitted and returns its payload. It fails
// with a *TimeoutError once timeout elapses, or with ctx's error if ctx is
// done first. The temporary listener is always removed.
func (b *Bus) WaitFor(ctx context.Context, event string, timeout time.Duration) (any, error) {
	got := make(chan any, 1)
	id, err := b.Once(event, func(_ context.Context, ev *Envelope) error {
		got <- ev.Payload
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer b.Off(id)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload := <-got:
		return payload, nil
	case <-timer.C:
		return nil, &TimeoutError{Op: "wait", Event: event, After: timeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// EmitWithTimeout emits and waits at most timeout for delivery to finish.
// Listeners still running when the deadline passes are not cancelled; their
// outcome is discarded.
func (b *Bus) EmitWithTimeout(ctx context.Context, event string, payload any, timeout time.Duration, opts ...EmitOption) (*Envelope, error) {
	type result struct {
		env *Envelope
		err error
	}
	done := make(chan result, 1)
	go func() {
		env, err := b.Emit(context.WithoutCancel(ctx), event, payload, opts...)
		done <- result{env: env, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.env, r.err
	case <-timer.C:
		return nil, &TimeoutError{Op: "emit", Event: event, After: timeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
