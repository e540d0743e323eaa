package view

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/waypoint/internal/eventbus"
)

type recorder struct {
	mu     sync.Mutex
	events []*eventbus.Envelope
}

func (r *recorder) all() []*eventbus.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*eventbus.Envelope(nil), r.events...)
}

func (r *recorder) count() int {
	return len(r.all())
}

func record(t *testing.T, o *Orchestrator, event string) *recorder {
	t.Helper()
	r := &recorder{}
	_, err := o.On(event, func(_ context.Context, ev *eventbus.Envelope) error {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	return r
}

// staticView renders a fixed body and counts renders.
type staticView struct {
	body    string
	renders atomic.Int32
}

func (v *staticView) render(_ context.Context, _ NavigateOptions) (Content, error) {
	v.renders.Add(1)
	return Content{Title: v.body, Body: v.body}, nil
}

func newTestOrchestrator(t *testing.T, deps ...Option) *Orchestrator {
	t.Helper()
	o := New(Options{DefaultView: "a", HistoryEnabled: true}, deps...)
	t.Cleanup(o.Close)
	return o
}

func register(t *testing.T, o *Orchestrator, name string, cfg Config) {
	t.Helper()
	require.NoError(t, o.RegisterView(name, cfg))
}

func registerStatic(t *testing.T, o *Orchestrator, names ...string) map[string]*staticView {
	t.Helper()
	views := make(map[string]*staticView, len(names))
	for _, name := range names {
		v := &staticView{body: name}
		views[name] = v
		register(t, o, name, Config{Render: v.render})
	}
	return views
}
