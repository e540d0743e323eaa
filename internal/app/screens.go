package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zjrosen/waypoint/internal/log"
	"github.com/zjrosen/waypoint/internal/view"
)

// Registered view names.
const (
	ViewDashboard = "dashboard"
	ViewItinerary = "itinerary"
	ViewDay       = "day"
	ViewActivity  = "activity"
)

// dayKey is the navigation data key of the day view.
const dayKey = "day"

// screens renders the itinerary file into the registered views.
type screens struct {
	path     string
	orch     *view.Orchestrator
	activity *activity

	mu         sync.Mutex
	lastChange time.Time
}

func registerScreens(orch *view.Orchestrator, path string, act *activity) (*screens, error) {
	s := &screens{path: path, orch: orch, activity: act}

	views := []struct {
		name string
		cfg  view.Config
	}{
		{ViewDashboard, view.Config{
			Title:    "Overview",
			Render:   s.renderDashboard,
			OnEnter:  s.preloadItinerary,
			OnUpdate: s.noteChange,
		}},
		{ViewItinerary, view.Config{
			Title:    "Itinerary",
			Render:   s.renderItinerary,
			OnUpdate: s.noteChange,
			Cache:    true,
		}},
		{ViewDay, view.Config{
			Title:        "Day",
			Render:       s.renderDay,
			OnUpdate:     s.noteChange,
			RequiredData: []string{dayKey},
		}},
		{ViewActivity, view.Config{
			Title:  "Activity",
			Render: s.renderActivity,
		}},
	}
	for _, v := range views {
		if err := orch.RegisterView(v.name, v.cfg); err != nil {
			return nil, fmt.Errorf("registering %s view: %w", v.name, err)
		}
	}
	return s, nil
}

func (s *screens) noteChange(_ context.Context, data map[string]any) error {
	at, _ := data["at"].(time.Time)
	if at.IsZero() {
		at = time.Now()
	}
	s.mu.Lock()
	s.lastChange = at
	s.mu.Unlock()
	return nil
}

func (s *screens) changedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastChange
}

// preloadItinerary renders the cached itinerary view in the background of
// the dashboard so switching to it does not hit the file.
func (s *screens) preloadItinerary(ctx context.Context, _ view.NavigateOptions) error {
	reg, ok := s.orch.View(ViewItinerary)
	if !ok || reg.Element() != nil {
		return nil
	}
	return s.orch.PreloadView(ctx, ViewItinerary, view.NavigateOptions{})
}

func (s *screens) renderDashboard(_ context.Context, _ view.NavigateOptions) (view.Content, error) {
	it, err := LoadItinerary(s.path)
	if err != nil {
		return view.Content{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", it.DisplayTitle())
	if it.Intro != "" {
		b.WriteString(it.Intro)
		b.WriteString("\n\n")
	}

	switch len(it.Days) {
	case 0:
		b.WriteString("No days planned yet. Add a `## ` heading per day to the itinerary file.\n")
	case 1:
		b.WriteString("1 day planned.\n\n")
	default:
		fmt.Fprintf(&b, "%d days planned.\n\n", len(it.Days))
	}
	for i, d := range it.Days {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d.Heading)
	}
	if len(it.Days) > 0 {
		b.WriteString("\nPress a day's number to open it.\n")
	}

	fmt.Fprintf(&b, "\n_%s, modified %s_\n", it.Path, it.ModTime.Format(time.DateTime))
	if at := s.changedAt(); !at.IsZero() {
		fmt.Fprintf(&b, "\n_Reloaded after a change at %s_\n", at.Format(time.TimeOnly))
	}

	return view.Content{Title: "Overview", Body: b.String()}, nil
}

func (s *screens) renderItinerary(_ context.Context, _ view.NavigateOptions) (view.Content, error) {
	it, err := LoadItinerary(s.path)
	if err != nil {
		return view.Content{}, err
	}
	log.Debug(log.CatView, "Rendered itinerary", "days", len(it.Days))
	return view.Content{Title: it.DisplayTitle(), Body: it.Raw}, nil
}

func (s *screens) renderDay(_ context.Context, opts view.NavigateOptions) (view.Content, error) {
	n, err := dayNumber(opts.Data[dayKey])
	if err != nil {
		return view.Content{}, err
	}
	it, err := LoadItinerary(s.path)
	if err != nil {
		return view.Content{}, err
	}
	day, ok := it.Day(n)
	if !ok {
		return view.Content{}, fmt.Errorf("day %d not found: itinerary has %d days", n, len(it.Days))
	}

	body := fmt.Sprintf("## %s\n\n%s\n", day.Heading, day.Body)
	return view.Content{Title: fmt.Sprintf("Day %d of %d", n, len(it.Days)), Body: body}, nil
}

func (s *screens) renderActivity(_ context.Context, _ view.NavigateOptions) (view.Content, error) {
	state := s.orch.State()
	stats := s.orch.Stats()

	var b strings.Builder
	b.WriteString("## Navigation\n\n")
	fmt.Fprintf(&b, "- Current: %s\n", orNone(state.Current))
	fmt.Fprintf(&b, "- Previous: %s\n", orNone(state.Previous))
	fmt.Fprintf(&b, "- History: %s\n", orNone(strings.Join(state.Stack, " ← ")))
	fmt.Fprintf(&b, "- Cached: %s\n", orNone(strings.Join(s.orch.CachedViews(), ", ")))

	b.WriteString("\n## Event bus\n\n")
	b.WriteString("| Emitted | Delivered | Failed | Dropped | Subscriptions |\n")
	b.WriteString("|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d |\n",
		stats.Emitted, stats.Delivered, stats.Failed, stats.Dropped, stats.Subscriptions)

	b.WriteString("\n## Recent events\n\n")
	recent := s.activity.Recent()
	if len(recent) == 0 {
		b.WriteString("_none_\n")
	}
	for _, e := range recent {
		line := fmt.Sprintf("- `%s` **%s**", e.At.Format(time.TimeOnly), e.Event)
		if e.Detail != "" {
			line += " " + e.Detail
		}
		b.WriteString(line + "\n")
	}

	return view.Content{Title: "Activity", Body: b.String()}, nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
