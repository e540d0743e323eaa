package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/waypoint/internal/eventbus"
	"github.com/zjrosen/waypoint/internal/tracing"
	"github.com/zjrosen/waypoint/internal/view"
)

const activityLimit = 20

type activityEntry struct {
	At     time.Time
	Event  string
	Detail string
}

// activity keeps the most recent bus emissions for the activity view.
type activity struct {
	mu      sync.Mutex
	entries []activityEntry
	limit   int
}

func newActivity(limit int) *activity {
	return &activity{limit: limit}
}

// record is a wildcard bus listener.
func (a *activity) record(ctx context.Context, env *eventbus.Envelope) error {
	if sub := eventbus.SubscriptionFromContext(ctx); sub != nil {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String(tracing.AttrSubscriptionID, sub.ID))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, activityEntry{
		At:     env.Timestamp,
		Event:  env.Name,
		Detail: describe(env.Payload),
	})
	if over := len(a.entries) - a.limit; over > 0 {
		a.entries = append([]activityEntry(nil), a.entries[over:]...)
	}
	return nil
}

// Recent returns entries newest first.
func (a *activity) Recent() []activityEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]activityEntry, len(a.entries))
	for i, e := range a.entries {
		out[len(a.entries)-1-i] = e
	}
	return out
}

func describe(payload any) string {
	switch p := payload.(type) {
	case view.ChangedEvent:
		if p.From == "" {
			return p.To
		}
		return p.From + " → " + p.To
	case view.ErrorEvent:
		return fmt.Sprintf("%s: %v", p.View, p.Err)
	case view.UpdatedEvent:
		return p.View
	case string:
		return p
	case []string:
		return strings.Join(p, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", p)
	}
}
