// Package config provides configuration types and defaults for waypoint.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/waypoint/internal/log"
	"github.com/zjrosen/waypoint/internal/tracing"
	"github.com/zjrosen/waypoint/internal/view"
)

// Config holds all configuration options for waypoint.
type Config struct {
	Container     string `mapstructure:"container"`
	DefaultView   string `mapstructure:"default_view"`
	ItineraryFile string `mapstructure:"itinerary_file"`
	AutoRefresh   bool   `mapstructure:"auto_refresh"`

	Animation AnimationConfig `mapstructure:"animation"`
	History   HistoryConfig   `mapstructure:"history"`
	Bus       BusConfig       `mapstructure:"bus"`
	Cache     CacheConfig     `mapstructure:"cache"`
	UI        UIConfig        `mapstructure:"ui"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
}

// AnimationConfig controls view transitions.
type AnimationConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Variant      string        `mapstructure:"variant"` // fade (default), slide, none
	SettleDelay  time.Duration `mapstructure:"settle_delay"`
	ExitDuration time.Duration `mapstructure:"exit_duration"`
}

// HistoryConfig controls navigation history.
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Persist stores history in sqlite so the last view survives restarts.
	Persist bool `mapstructure:"persist"`

	// Path is the sqlite database. Default: ~/.config/waypoint/history.db
	Path       string `mapstructure:"path"`
	MaxEntries int    `mapstructure:"max_entries"`
}

// BusConfig holds event bus limits.
type BusConfig struct {
	MaxListeners int `mapstructure:"max_listeners"`
	BufferSize   int `mapstructure:"buffer_size"`
}

// CacheConfig holds rendered content cache settings.
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"` // 0 = until cleared
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// UIConfig holds user interface configuration options.
type UIConfig struct {
	MarkdownStyle string `mapstructure:"markdown_style"` // "dark" (default) or "light"
}

// DefaultConfigDir returns ~/.config/waypoint, or "" if the home directory
// is unavailable.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "waypoint")
}

// DefaultHistoryPath returns the default sqlite path for persisted history.
func DefaultHistoryPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "history.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
func DefaultTracesFilePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	opts := view.DefaultOptions()
	tc := tracing.DefaultConfig()
	tc.FilePath = DefaultTracesFilePath()

	return Config{
		Container:     opts.Container,
		DefaultView:   "dashboard",
		ItineraryFile: "itinerary.txt",
		AutoRefresh:   true,
		Animation: AnimationConfig{
			Enabled:      opts.Animation.Enabled,
			Variant:      string(opts.Animation.Variant),
			SettleDelay:  opts.Animation.SettleDelay,
			ExitDuration: opts.Animation.ExitDuration,
		},
		History: HistoryConfig{
			Enabled:    opts.HistoryEnabled,
			Persist:    true,
			Path:       DefaultHistoryPath(),
			MaxEntries: opts.MaxHistory,
		},
		Bus: BusConfig{
			MaxListeners: opts.MaxListeners,
			BufferSize:   opts.BufferSize,
		},
		Cache: CacheConfig{
			TTL:             opts.CacheTTL,
			CleanupInterval: opts.CacheCleanupInterval,
		},
		UI: UIConfig{
			MarkdownStyle: "dark",
		},
		Tracing: tc,
	}
}

// ViewOptions converts c into orchestrator construction options.
func (c Config) ViewOptions() view.Options {
	return view.Options{
		Container:   c.Container,
		DefaultView: c.DefaultView,
		Animation: view.Animation{
			Enabled:      c.Animation.Enabled,
			Variant:      view.Variant(c.Animation.Variant),
			SettleDelay:  c.Animation.SettleDelay,
			ExitDuration: c.Animation.ExitDuration,
		},
		HistoryEnabled:       c.History.Enabled,
		MaxHistory:           c.History.MaxEntries,
		MaxListeners:         c.Bus.MaxListeners,
		BufferSize:           c.Bus.BufferSize,
		CacheTTL:             c.Cache.TTL,
		CacheCleanupInterval: c.Cache.CleanupInterval,
	}
}

// Validate checks the whole configuration. Empty values use defaults and
// are accepted.
func (c Config) Validate() error {
	if err := ValidateAnimation(c.Animation); err != nil {
		return err
	}
	if err := ValidateHistory(c.History); err != nil {
		return err
	}
	if c.Bus.MaxListeners < 0 {
		return fmt.Errorf("bus.max_listeners must not be negative, got %d", c.Bus.MaxListeners)
	}
	if c.Bus.BufferSize < 0 {
		return fmt.Errorf("bus.buffer_size must not be negative, got %d", c.Bus.BufferSize)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	}
	switch c.UI.MarkdownStyle {
	case "", "dark", "light":
	default:
		return fmt.Errorf("ui.markdown_style must be \"dark\" or \"light\", got %q", c.UI.MarkdownStyle)
	}
	return ValidateTracing(c.Tracing)
}

// ValidateAnimation checks animation configuration for errors.
func ValidateAnimation(a AnimationConfig) error {
	if a.Variant != "" && !view.Variant(a.Variant).Valid() {
		return fmt.Errorf("animation.variant must be \"fade\", \"slide\", or \"none\", got %q", a.Variant)
	}
	if a.SettleDelay < 0 {
		return fmt.Errorf("animation.settle_delay must not be negative, got %s", a.SettleDelay)
	}
	if a.ExitDuration < 0 {
		return fmt.Errorf("animation.exit_duration must not be negative, got %s", a.ExitDuration)
	}
	return nil
}

// ValidateHistory checks history configuration for errors.
func ValidateHistory(h HistoryConfig) error {
	if h.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative, got %d", h.MaxEntries)
	}
	if h.Path != "" && !filepath.IsAbs(h.Path) {
		return fmt.Errorf("history.path must be an absolute path, got %q", h.Path)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tc tracing.Config) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}

	switch tc.Exporter {
	case "", tracing.ExporterNone, tracing.ExporterFile, tracing.ExporterStdout, tracing.ExporterOTLP:
	default:
		return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tc.Exporter)
	}

	if tc.Enabled {
		if tc.Exporter == tracing.ExporterFile && tc.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tc.Exporter == tracing.ExporterOTLP && tc.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Waypoint Configuration

# Name of the area views are mounted into
container: main

# View shown on startup when history has nothing to restore
default_view: dashboard

# Itinerary file rendered by the views and watched for changes
itinerary_file: itinerary.txt

# Re-render the current view when the itinerary file changes
auto_refresh: true

# View transitions
animation:
  enabled: true
  variant: fade          # fade (default), slide, or none
  settle_delay: 16ms     # pause between transition steps
  exit_duration: 150ms   # how long the outgoing view lingers

# Navigation history
history:
  enabled: true
  persist: true          # remember the last view across restarts
  # path: ~/.config/waypoint/history.db
  max_entries: 50

# Event bus limits
bus:
  max_listeners: 100     # warn when one event has more listeners than this
  buffer_size: 256       # emissions held while the bus is paused

# Rendered content cache for views with cache enabled
cache:
  ttl: 0                 # 0 keeps content until it is cleared
  cleanup_interval: 30m

ui:
  markdown_style: dark   # "dark" (default) or "light"

# Tracing of navigations and bus emissions
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/waypoint/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
