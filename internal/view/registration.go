package view

import (
	"context"
	"sync"
	"time"
)

// Config describes a view at registration time. Only Render is required.
type Config struct {
	Title  string
	Render RenderFunc

	// OnEnter runs after the view becomes active. Errors are logged.
	OnEnter func(ctx context.Context, opts NavigateOptions) error

	// OnLeave runs before the view is replaced. Returning false vetoes the
	// navigation.
	OnLeave func(ctx context.Context, opts NavigateOptions) bool

	// OnUpdate receives data pushed through UpdateView while active.
	OnUpdate func(ctx context.Context, data map[string]any) error

	// Cache retains the rendered element while the view is inactive.
	Cache bool

	// RequiredData lists keys that must be present in NavigateOptions.Data.
	RequiredData []string
}

// Registration is a registered view plus its cached element.
type Registration struct {
	name   string
	config Config

	// renderMu keeps Render from running concurrently with itself.
	renderMu sync.Mutex

	mu         sync.Mutex
	element    *Element
	preloaded  bool
	renderedAt time.Time
}

func newRegistration(name string, cfg Config) *Registration {
	cfg.RequiredData = append([]string(nil), cfg.RequiredData...)
	return &Registration{name: name, config: cfg}
}

// Name returns the registered view name.
func (r *Registration) Name() string { return r.name }

// Title returns the configured title, falling back to the name.
func (r *Registration) Title() string {
	if r.config.Title == "" {
		return r.name
	}
	return r.config.Title
}

// Cached reports whether the view keeps its element between visits.
func (r *Registration) Cached() bool { return r.config.Cache }

// RequiredData returns the navigation data keys the view needs.
func (r *Registration) RequiredData() []string {
	return append([]string(nil), r.config.RequiredData...)
}

// Element returns the cached element, or nil when none is retained.
func (r *Registration) Element() *Element {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.element
}

// RenderedAt returns when Render last succeeded or fell back.
func (r *Registration) RenderedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renderedAt
}

func (r *Registration) missingData(data map[string]any) []string {
	var missing []string
	for _, key := range r.config.RequiredData {
		if _, ok := data[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

type elementKey struct{}

// ElementFromContext returns the element being entered. It is set for
// OnEnter so hooks can register cleanup with Element.OnCleanup.
func ElementFromContext(ctx context.Context) *Element {
	el, _ := ctx.Value(elementKey{}).(*Element)
	return el
}
