package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/waypoint/internal/app"
	"github.com/zjrosen/waypoint/internal/config"
	"github.com/zjrosen/waypoint/internal/infrastructure/sqlite"
	"github.com/zjrosen/waypoint/internal/log"
	"github.com/zjrosen/waypoint/internal/tracing"
	"github.com/zjrosen/waypoint/internal/view"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

// envPrefix namespaces environment overrides, e.g. WAYPOINT_DEFAULT_VIEW
// or WAYPOINT_ANIMATION_ENABLED.
const envPrefix = "WAYPOINT"

// localConfigPath is checked before the user config directory.
const localConfigPath = ".waypoint/config.yaml"

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "waypoint",
	Short: "A terminal ui for trip itineraries",
	Long: `A terminal user interface for browsing a trip itinerary file: an overview,
the full plan, one screen per day, and a live activity view. The screens
refresh when the file changes on disk.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/waypoint/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write debug.log and enable the log overlay (ctrl+x)")
	rootCmd.Flags().StringP("itinerary", "i", "",
		"itinerary file to display (overrides itinerary_file)")
	rootCmd.Flags().String("view", "",
		"view to open at startup (overrides default_view)")
	rootCmd.Flags().Bool("no-auto-refresh", false,
		"disable refreshing when the itinerary file changes")

	// Bind flags to viper
	_ = viper.BindPFlag("itinerary_file", rootCmd.Flags().Lookup("itinerary"))
	_ = viper.BindPFlag("default_view", rootCmd.Flags().Lookup("view"))
}

func initConfig() {
	configureViper(viper.GetViper(), config.Defaults())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .waypoint/config.yaml (current directory)
		// 2. ~/.config/waypoint/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else if dir := config.DefaultConfigDir(); dir != "" {
			viper.AddConfigPath(dir)
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create the user default
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if defaultPath := defaultConfigPath(); defaultPath != "" {
				if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
					viper.SetConfigFile(defaultPath)
					_ = viper.ReadInConfig()
				}
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// configureViper registers every key's default, which also lets
// AutomaticEnv resolve nested keys during Unmarshal.
func configureViper(v *viper.Viper, d config.Config) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("container", d.Container)
	v.SetDefault("default_view", d.DefaultView)
	v.SetDefault("itinerary_file", d.ItineraryFile)
	v.SetDefault("auto_refresh", d.AutoRefresh)

	v.SetDefault("animation.enabled", d.Animation.Enabled)
	v.SetDefault("animation.variant", d.Animation.Variant)
	v.SetDefault("animation.settle_delay", d.Animation.SettleDelay)
	v.SetDefault("animation.exit_duration", d.Animation.ExitDuration)

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.persist", d.History.Persist)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("history.max_entries", d.History.MaxEntries)

	v.SetDefault("bus.max_listeners", d.Bus.MaxListeners)
	v.SetDefault("bus.buffer_size", d.Bus.BufferSize)

	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)

	v.SetDefault("ui.markdown_style", d.UI.MarkdownStyle)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

func defaultConfigPath() string {
	dir := config.DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

func runApp(cmd *cobra.Command, _ []string) error {
	// Initialize logging if debug mode enabled (via flag or env var)
	debug := os.Getenv(envPrefix+"_DEBUG") != "" || debugFlag
	if debug {
		logPath := os.Getenv(envPrefix + "_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}

		cleanup, err := log.InitWithTeaLog(logPath, "waypoint")
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		defer cleanup()

		log.Info(log.CatConfig, "Waypoint starting", "debug", true, "logPath", logPath, "version", version)
	}

	// Handle --no-auto-refresh flag (negated logic)
	if noAutoRefresh, _ := cmd.Flags().GetBool("no-auto-refresh"); noAutoRefresh {
		cfg.AutoRefresh = false
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := checkItinerary(cfg.ItineraryFile); err != nil {
		return err
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "Failed to flush traces", err)
		}
	}()

	deps := []view.Option{view.WithTracer(provider.Tracer())}
	if cfg.History.Enabled && cfg.History.Persist {
		db, store, err := openHistory(cfg.History, cfg.ItineraryFile)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		deps = append(deps, view.WithHistory(store))
	}

	orch := view.New(cfg.ViewOptions(), deps...)
	defer orch.Close()

	// Store the config file path for saving the default view
	configFilePath := viper.ConfigFileUsed()
	if configFilePath == "" {
		configFilePath = defaultConfigPath()
	}

	var listenerTracer trace.Tracer
	if provider.Enabled() {
		listenerTracer = provider.Tracer()
	}

	model, err := app.New(app.Options{
		Orchestrator: orch,
		Config:       cfg,
		ConfigPath:   configFilePath,
		Tracer:       listenerTracer,
		Debug:        debug,
	})
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()

	// Clean up watcher resources
	if closeErr := model.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// checkItinerary fails early with a hint when the itinerary file is
// missing, instead of opening on a fallback panel.
func checkItinerary(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("itinerary file: %w\nCreate it or pass --itinerary", err)
	}
	if info.IsDir() {
		return fmt.Errorf("itinerary file %s is a directory", path)
	}
	return nil
}

// openHistory opens the persisted history database. Entries are scoped by
// the itinerary's absolute path so each trip restores its own last view.
func openHistory(h config.HistoryConfig, itinerary string) (*sqlite.DB, *sqlite.HistoryStore, error) {
	path := h.Path
	if path == "" {
		path = config.DefaultHistoryPath()
	}
	if path == "" {
		return nil, nil, errors.New("history.path is not set and the home directory is unavailable")
	}

	scope, err := filepath.Abs(itinerary)
	if err != nil {
		scope = itinerary
	}

	db, err := sqlite.NewDB(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history database: %w", err)
	}
	return db, db.HistoryStore(scope, h.MaxEntries), nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
