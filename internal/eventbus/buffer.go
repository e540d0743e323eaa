package eventbus

import (
	"context"

	"github.com/zjrosen/waypoint/internal/log"
)

// Pause queues subsequent emissions instead of delivering them.
func (b *Bus) Pause() {
	b.mu.Lock()
	b.paused = true
	b.mu.Unlock()
}

// IsPaused reports whether emissions are being queued.
func (b *Bus) IsPaused() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.paused
}

// Resume delivers queued emissions in the order they were made and returns
// how many were replayed. Errors from ThrowOnError emissions are logged.
func (b *Bus) Resume(ctx context.Context) int {
	b.mu.Lock()
	b.paused = false
	queued := b.queue
	b.queue = nil
	b.mu.Unlock()

	for _, p := range queued {
		if err := b.deliver(ctx, p.env, p.cfg); err != nil {
			log.ErrorErr(log.CatBus, "Replayed emission failed", err, "event", p.env.Name)
		}
	}
	return len(queued)
}

// enqueueLocked appends to the pause queue, dropping the oldest entry when
// the buffer is full. b.mu must be held.
func (b *Bus) enqueueLocked(p pendingEmit) {
	if len(b.queue) >= b.config.bufferSize {
		oldest := b.queue[0]
		b.queue = b.queue[1:]
		b.dropped.Add(1)
		log.Warn(log.CatBus, "Pause buffer full, dropping emission", "event", oldest.env.Name, "size", b.config.bufferSize)
	}
	b.queue = append(b.queue, p)
}
