package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/waypoint/internal/tracing"
	"github.com/zjrosen/waypoint/internal/view"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.Equal(t, "main", cfg.Container)
	require.Equal(t, "dashboard", cfg.DefaultView)
	require.True(t, cfg.AutoRefresh)
	require.True(t, cfg.Animation.Enabled)
	require.Equal(t, "fade", cfg.Animation.Variant)
	require.Equal(t, 16*time.Millisecond, cfg.Animation.SettleDelay)
	require.Equal(t, 150*time.Millisecond, cfg.Animation.ExitDuration)
	require.True(t, cfg.History.Enabled)
	require.Equal(t, 50, cfg.History.MaxEntries)
	require.Equal(t, 100, cfg.Bus.MaxListeners)
	require.Equal(t, 256, cfg.Bus.BufferSize)
	require.Equal(t, "dark", cfg.UI.MarkdownStyle)
	require.False(t, cfg.Tracing.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestViewOptions(t *testing.T) {
	cfg := Defaults()
	cfg.Animation.Variant = "slide"
	cfg.Cache.TTL = time.Minute

	opts := cfg.ViewOptions()
	require.Equal(t, "main", opts.Container)
	require.Equal(t, "dashboard", opts.DefaultView)
	require.Equal(t, view.VariantSlide, opts.Animation.Variant)
	require.True(t, opts.HistoryEnabled)
	require.Equal(t, 50, opts.MaxHistory)
	require.Equal(t, time.Minute, opts.CacheTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown variant", func(c *Config) { c.Animation.Variant = "spin" }, "animation.variant"},
		{"negative settle", func(c *Config) { c.Animation.SettleDelay = -time.Millisecond }, "animation.settle_delay"},
		{"negative exit", func(c *Config) { c.Animation.ExitDuration = -time.Millisecond }, "animation.exit_duration"},
		{"negative history", func(c *Config) { c.History.MaxEntries = -1 }, "history.max_entries"},
		{"relative history path", func(c *Config) { c.History.Path = "history.db" }, "history.path"},
		{"negative listeners", func(c *Config) { c.Bus.MaxListeners = -1 }, "bus.max_listeners"},
		{"negative buffer", func(c *Config) { c.Bus.BufferSize = -1 }, "bus.buffer_size"},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Second }, "cache.ttl"},
		{"markdown style", func(c *Config) { c.UI.MarkdownStyle = "neon" }, "ui.markdown_style"},
		{"sample rate", func(c *Config) { c.Tracing.SampleRate = 1.5 }, "tracing.sample_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateTracing(t *testing.T) {
	require.NoError(t, ValidateTracing(tracing.Config{}))
	require.NoError(t, ValidateTracing(tracing.Config{Enabled: true, Exporter: tracing.ExporterStdout}))

	err := ValidateTracing(tracing.Config{Exporter: "jaeger"})
	require.ErrorContains(t, err, "tracing.exporter")

	err = ValidateTracing(tracing.Config{Enabled: true, Exporter: tracing.ExporterFile})
	require.ErrorContains(t, err, "tracing.file_path is required")

	err = ValidateTracing(tracing.Config{Enabled: true, Exporter: tracing.ExporterOTLP})
	require.ErrorContains(t, err, "tracing.otlp_endpoint is required")

	require.NoError(t, ValidateTracing(tracing.Config{Exporter: tracing.ExporterFile}), "paths only matter when enabled")
}

func TestWriteDefaultConfig_RoundTripsThroughViper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	require.Equal(t, "main", cfg.Container)
	require.Equal(t, "dashboard", cfg.DefaultView)
	require.Equal(t, "itinerary.txt", cfg.ItineraryFile)
	require.True(t, cfg.AutoRefresh)
	require.Equal(t, "fade", cfg.Animation.Variant)
	require.Equal(t, 16*time.Millisecond, cfg.Animation.SettleDelay)
	require.Equal(t, 150*time.Millisecond, cfg.Animation.ExitDuration)
	require.Equal(t, 50, cfg.History.MaxEntries)
	require.Equal(t, 256, cfg.Bus.BufferSize)
	require.Equal(t, 30*time.Minute, cfg.Cache.CleanupInterval)
	require.Equal(t, "dark", cfg.UI.MarkdownStyle)
}
