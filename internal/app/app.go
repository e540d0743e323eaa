// Package app contains the root application model.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/waypoint/internal/config"
	"github.com/zjrosen/waypoint/internal/eventbus"
	"github.com/zjrosen/waypoint/internal/keys"
	"github.com/zjrosen/waypoint/internal/log"
	"github.com/zjrosen/waypoint/internal/pubsub"
	"github.com/zjrosen/waypoint/internal/tracing"
	"github.com/zjrosen/waypoint/internal/ui/logoverlay"
	"github.com/zjrosen/waypoint/internal/ui/markdown"
	"github.com/zjrosen/waypoint/internal/ui/styles"
	"github.com/zjrosen/waypoint/internal/ui/toaster"
	"github.com/zjrosen/waypoint/internal/view"
	"github.com/zjrosen/waypoint/internal/watcher"
)

const defaultWidth = 80

// Operations reported back through navResultMsg.
const (
	opStart    = "start"
	opNavigate = "navigate"
	opBack     = "back"
	opRefresh  = "refresh"
	opReload   = "reload"
	opHistory  = "history"
)

// navResultMsg carries the outcome of an orchestrator call made off the
// update loop.
type navResultMsg struct {
	op   string
	view string
	err  error
}

// defaultSavedMsg reports the outcome of persisting the default view.
type defaultSavedMsg struct {
	view string
	err  error
}

// Options wires the model to its collaborators.
type Options struct {
	Orchestrator *view.Orchestrator
	Config       config.Config

	// ConfigPath is where SetDefault persists default_view. Empty disables
	// it.
	ConfigPath string

	// Tracer wraps the activity listener in spans. Nil disables tracing.
	Tracer trace.Tracer

	// Debug enables the log overlay (Ctrl+X toggle).
	Debug bool
}

// Model is the root application state.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	orch       *view.Orchestrator
	screens    *screens
	cfg        config.Config
	configPath string

	width    int
	height   int
	renderer *markdown.Renderer
	viewport viewport.Model
	help     help.Model

	// Content of the active view as last synced from the orchestrator.
	title    string
	fallback bool
	data     map[string]any

	toaster toaster.Model

	debugMode    bool
	logOverlay   logoverlay.Model
	logListenCmd tea.Cmd

	busListener *pubsub.ContinuousListener[*eventbus.Envelope]

	// File watcher for auto-refresh (pubsub-based)
	watcherHandle   *watcher.Watcher
	watcherListener *pubsub.ContinuousListener[watcher.Change]
}

// New registers the itinerary views on opts.Orchestrator and returns the
// root model. The orchestrator is started from Init.
func New(opts Options) (Model, error) {
	if opts.Orchestrator == nil {
		return Model{}, errors.New("app: nil orchestrator")
	}
	orch := opts.Orchestrator
	cfg := opts.Config

	renderer, err := markdown.New(cfg.UI.MarkdownStyle, defaultWidth)
	if err != nil {
		return Model{}, err
	}

	act := newActivity(activityLimit)
	if _, err := orch.OnAny(tracing.Wrap(opts.Tracer, tracing.SpanListener, act.record)); err != nil {
		return Model{}, fmt.Errorf("subscribing activity listener: %w", err)
	}
	s, err := registerScreens(orch, cfg.ItineraryFile, act)
	if err != nil {
		return Model{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		ctx:         ctx,
		cancel:      cancel,
		orch:        orch,
		screens:     s,
		cfg:         cfg,
		configPath:  opts.ConfigPath,
		renderer:    renderer,
		viewport:    viewport.New(defaultWidth, 0),
		help:        help.New(),
		toaster:     toaster.New(),
		debugMode:   opts.Debug,
		logOverlay:  logoverlay.New(),
		busListener: pubsub.NewChannelListener(ctx, orch.Stream(ctx, view.EventChanged, view.EventError)),
	}

	if cfg.AutoRefresh && cfg.ItineraryFile != "" {
		m.startWatcher(cfg.ItineraryFile)
	}
	if opts.Debug {
		m.logListenCmd = m.logOverlay.StartListening(ctx)
	}
	return m, nil
}

// startWatcher watches the itinerary file. Failures are logged; the app
// works without auto-refresh.
func (m *Model) startWatcher(path string) {
	w, err := watcher.New(watcher.DefaultConfig(path))
	if err != nil {
		log.Warn(log.CatWatcher, "Auto-refresh disabled", "path", path, "error", err)
		return
	}
	if err := w.Start(); err != nil {
		log.Warn(log.CatWatcher, "Auto-refresh disabled", "path", path, "error", err)
		_ = w.Stop()
		return
	}
	m.watcherHandle = w
	m.watcherListener = pubsub.NewChannelListener(m.ctx, w.Subscribe(m.ctx))
}

// Init implements tea.Model. It shows the restored or default view and
// starts the event listeners.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.run(opStart, "", func(ctx context.Context) error { return m.orch.Start(ctx) }),
		m.busListener.Listen(),
	}
	if cmd := m.listenWatcher(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if m.logListenCmd != nil {
		cmds = append(cmds, m.logListenCmd)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logOverlay.SetSize(msg.Width, msg.Height)
		m.resizeRenderer()
		m.layout()
		m.syncContent()
		return m, nil

	case tea.MouseMsg:
		if m.logOverlay.Visible() {
			var cmd tea.Cmd
			m.logOverlay, cmd = m.logOverlay.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case log.LogEvent:
		var cmd tea.Cmd
		m.logOverlay, cmd = m.logOverlay.Update(msg)
		return m, cmd

	case logoverlay.CloseMsg:
		m.logOverlay.Hide()
		return m, nil

	case toaster.DismissMsg:
		m.toaster = m.toaster.Update(msg)
		return m, nil

	case pubsub.Event[*eventbus.Envelope]:
		var cmd tea.Cmd
		m, cmd = m.handleBusEvent(msg.Payload)
		return m, tea.Batch(cmd, m.busListener.Listen())

	case pubsub.Event[watcher.Change]:
		log.Debug(log.CatWatcher, "Itinerary changed, refreshing", "path", msg.Payload.Path, "view", m.orch.CurrentView())
		return m, tea.Batch(m.reloadCmd(msg.Payload), m.listenWatcher())

	case navResultMsg:
		return m.handleNavResult(msg)

	case defaultSavedMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatConfig, "Failed to save default view", msg.err, "view", msg.view)
			return m.showToast("Could not save default view: "+msg.err.Error(), toaster.StyleError)
		}
		m.cfg.DefaultView = msg.view
		log.Info(log.CatConfig, "Saved default view", "view", msg.view, "path", m.configPath)
		return m.showToast("Default view set to "+msg.view, toaster.StyleSuccess)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.debugMode && key.Matches(msg, keys.App.ToggleLogs) {
		m.logOverlay.Toggle()
		return m, nil
	}

	// If the debug log overlay is visible it takes precedence for updates
	if m.logOverlay.Visible() {
		var cmd tea.Cmd
		m.logOverlay, cmd = m.logOverlay.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.App.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.App.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	case key.Matches(msg, keys.App.NextView):
		return m, m.navigateTo(m.cycleTab(1), view.NavigateOptions{})

	case key.Matches(msg, keys.App.PrevView):
		return m, m.navigateTo(m.cycleTab(-1), view.NavigateOptions{})

	case key.Matches(msg, keys.App.JumpView):
		n := keys.Digit(msg.String())
		if n == 0 {
			return m, nil
		}
		return m, m.navigateTo(ViewDay, view.NavigateOptions{
			Data:  map[string]any{dayKey: n},
			Force: m.orch.CurrentView() == ViewDay,
		})

	case key.Matches(msg, keys.App.Back):
		return m, m.run(opBack, "", func(ctx context.Context) error {
			return m.orch.GoBack(ctx, view.NavigateOptions{})
		})

	case key.Matches(msg, keys.App.HistoryBack):
		return m, m.stepHistory(false)

	case key.Matches(msg, keys.App.HistoryForward):
		return m, m.stepHistory(true)

	case key.Matches(msg, keys.App.Refresh):
		data := m.data
		return m, m.run(opRefresh, m.orch.CurrentView(), func(ctx context.Context) error {
			return m.orch.Refresh(ctx, view.NavigateOptions{Data: data})
		})

	case key.Matches(msg, keys.App.ClearCache):
		cleared := m.orch.ClearCache()
		return m.showToast(fmt.Sprintf("Cleared %d cached views", len(cleared)), toaster.StyleInfo)

	case key.Matches(msg, keys.App.SetDefault):
		return m.setDefault()

	case key.Matches(msg, keys.App.ScrollUp):
		m.viewport.ScrollUp(1)
		return m, nil

	case key.Matches(msg, keys.App.ScrollDown):
		m.viewport.ScrollDown(1)
		return m, nil
	}
	return m, nil
}

// handleBusEvent syncs the screen with orchestrator events.
func (m Model) handleBusEvent(env *eventbus.Envelope) (Model, tea.Cmd) {
	if env == nil {
		return m, nil
	}
	switch p := env.Payload.(type) {
	case view.ChangedEvent:
		m.data = p.Options.Data
		m.syncContent()
		log.Debug(log.CatUI, "View changed", "from", p.From, "to", p.To, "fallback", m.fallback)
	case view.ErrorEvent:
		return m.showToast(fmt.Sprintf("%s: %v", p.View, p.Err), toaster.StyleError)
	}
	return m, nil
}

func (m Model) handleNavResult(msg navResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		// Structural failures were already surfaced through view-error.
		log.Debug(log.CatUI, "Orchestrator call failed", "op", msg.op, "view", msg.view, "error", msg.err)
		return m, nil
	}
	if msg.op == opReload {
		return m.showToast("Itinerary reloaded", toaster.StyleInfo)
	}
	return m, nil
}

// reloadCmd pushes a file change into the active view and re-renders it.
// Cached views are cleared so they pick up the new file on next visit.
func (m Model) reloadCmd(change watcher.Change) tea.Cmd {
	orch, data := m.orch, m.data
	return m.run(opReload, orch.CurrentView(), func(ctx context.Context) error {
		orch.UpdateView(ctx, map[string]any{"path": change.Path, "at": change.At})
		orch.ClearCache()
		return orch.Refresh(ctx, view.NavigateOptions{Data: data})
	})
}

// stepHistory moves the address history. The orchestrator follows the
// change through its external-change subscription.
func (m Model) stepHistory(forward bool) tea.Cmd {
	h := m.orch.History()
	if h == nil {
		return nil
	}
	return m.run(opHistory, "", func(context.Context) error {
		moved, err := stepHistory(h, forward)
		if err == nil && !moved {
			log.Debug(log.CatHistory, "No history entry in that direction", "forward", forward)
		}
		return err
	})
}

// stepHistory calls Back or Forward on adapters that support them. The
// in-memory adapter reports only whether it moved; the sqlite one can also
// fail.
func stepHistory(h view.History, forward bool) (bool, error) {
	switch h := h.(type) {
	case interface {
		Back() (bool, error)
		Forward() (bool, error)
	}:
		if forward {
			return h.Forward()
		}
		return h.Back()
	case interface {
		Back() bool
		Forward() bool
	}:
		if forward {
			return h.Forward(), nil
		}
		return h.Back(), nil
	}
	return false, nil
}

func (m Model) setDefault() (tea.Model, tea.Cmd) {
	name := m.orch.CurrentView()
	if name == "" || m.configPath == "" {
		return m, nil
	}
	if reg, ok := m.orch.View(name); ok && len(reg.RequiredData()) > 0 {
		return m.showToast(reg.Title()+" needs data and cannot be the default view", toaster.StyleWarn)
	}
	path := m.configPath
	return m, func() tea.Msg {
		return defaultSavedMsg{view: name, err: config.SaveDefaultView(path, name)}
	}
}

func (m Model) navigateTo(name string, opts view.NavigateOptions) tea.Cmd {
	if name == "" {
		return nil
	}
	return m.run(opNavigate, name, func(ctx context.Context) error {
		return m.orch.NavigateTo(ctx, name, opts)
	})
}

// run calls fn off the update loop so transition delays do not block
// rendering. The active content is synced when view-changed arrives.
func (m Model) run(op, name string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return navResultMsg{op: op, view: name, err: fn(ctx)}
	}
}

func (m Model) listenWatcher() tea.Cmd {
	if m.watcherListener == nil {
		return nil
	}
	return m.watcherListener.Listen()
}

func (m Model) showToast(message string, style toaster.Style) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.toaster, cmd = m.toaster.Show(message, style)
	return m, cmd
}

// tabs returns the views reachable without navigation data, in
// registration order.
func (m Model) tabs() []string {
	var out []string
	for _, name := range m.orch.Views() {
		if reg, ok := m.orch.View(name); ok && len(reg.RequiredData()) == 0 {
			out = append(out, name)
		}
	}
	return out
}

// cycleTab returns the tab delta steps away from the active one. From a
// view that is not a tab it returns the first tab.
func (m Model) cycleTab(delta int) string {
	tabs := m.tabs()
	if len(tabs) == 0 {
		return ""
	}
	i := slices.Index(tabs, m.orch.CurrentView())
	if i < 0 {
		return tabs[0]
	}
	return tabs[((i+delta)%len(tabs)+len(tabs))%len(tabs)]
}

// syncContent renders the active element into the viewport.
func (m *Model) syncContent() {
	content, ok := m.orch.ActiveContent()
	if !ok {
		return
	}
	m.title = content.Title
	m.fallback = content.Fallback

	body, err := m.renderer.Render(content.Body)
	if err != nil {
		log.ErrorErr(log.CatUI, "Failed to render markdown", err, "view", m.orch.CurrentView())
		body = styles.Wrap(content.Body, m.contentWidth())
	}
	m.viewport.SetContent(body)
	m.viewport.GotoTop()
}

func (m Model) contentWidth() int {
	if m.width == 0 {
		return defaultWidth
	}
	return max(m.width-4, 10)
}

func (m *Model) resizeRenderer() {
	width := m.contentWidth()
	if m.renderer != nil && m.renderer.Width() == width {
		return
	}
	r, err := markdown.New(m.cfg.UI.MarkdownStyle, width)
	if err != nil {
		log.ErrorErr(log.CatUI, "Failed to resize markdown renderer", err, "width", width)
		return
	}
	m.renderer = r
}

// layout sizes the viewport to the space between the tab bar and the
// status bar.
func (m *Model) layout() {
	m.help.Width = m.width
	frameHeight := m.height - 1 - lipgloss.Height(m.statusBar())
	m.viewport.Width = max(m.width-2, 1)
	m.viewport.Height = max(frameHeight-2, 1)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	tabs := m.tabBar()
	status := m.statusBar()
	frame := styles.Frame{
		Title:  m.title,
		Note:   m.frameNote(),
		Width:  m.width,
		Height: m.height - lipgloss.Height(tabs) - lipgloss.Height(status),
	}
	if m.fallback {
		frame.BorderColor = styles.FallbackBorderColor
		frame.TitleColor = styles.StatusErrorColor
	}

	out := lipgloss.JoinVertical(lipgloss.Left, tabs, frame.Render(m.viewport.View()), status)

	// Overlay toaster on top of the active view
	if m.toaster.Visible() {
		out = m.toaster.Overlay(out, m.width, m.height)
	}

	// Overlay log viewer on top (only in debug mode when visible)
	if m.debugMode && m.logOverlay.Visible() {
		out = m.logOverlay.Overlay(out)
	}

	return out
}

func (m Model) tabBar() string {
	current := m.orch.CurrentView()
	tabs := m.tabs()

	var parts []string
	for _, name := range tabs {
		reg, ok := m.orch.View(name)
		if !ok {
			continue
		}
		if name == current {
			parts = append(parts, styles.ActiveTabStyle.Render(reg.Title()))
			continue
		}
		parts = append(parts, styles.TabStyle.Render(reg.Title()))
	}
	if current != "" && !slices.Contains(tabs, current) {
		parts = append(parts, styles.ActiveTabStyle.Render(m.title))
	}
	return styles.Truncate(lipgloss.JoinHorizontal(lipgloss.Top, parts...), m.width)
}

func (m Model) statusBar() string {
	return styles.StatusBarStyle.Render(m.help.View(keys.App))
}

func (m Model) frameNote() string {
	parts := []string{}
	if depth := len(m.orch.HistoryStack()); depth > 1 {
		parts = append(parts, fmt.Sprintf("history %d", depth))
	}
	if m.viewport.TotalLineCount() > m.viewport.Height {
		parts = append(parts, fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100))
	}
	return strings.Join(parts, " · ")
}

// Close releases resources held by the application. The orchestrator is
// owned by the caller.
func (m *Model) Close() error {
	if m.cancel != nil {
		m.cancel()
	}

	// Close watcher if we own it
	if m.watcherHandle != nil {
		if err := m.watcherHandle.Stop(); err != nil {
			return err
		}
	}
	return nil
}
