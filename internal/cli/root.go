// Package cli provides the command-line interface for the chart
// analysis application.
package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chartwatch/internal/analysis"
	"chartwatch/internal/capture"
	"chartwatch/internal/config"
	"chartwatch/internal/consolidate"
	"chartwatch/internal/logging"
	"chartwatch/internal/notify"
	"chartwatch/internal/pipeline"
	"chartwatch/internal/providers"
	"chartwatch/internal/report"
	"chartwatch/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dbPath := filepath.Join(cfg.ConfigDir(), "chartwatch.db")
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, history will be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", dbPath).Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "chartwatch",
		Short: "Chartwatch - multi-provider AI chart analysis",
		Long: `Chartwatch captures trading chart screenshots and sends them to
multiple AI vision providers for trend-change analysis.

Provider results are consolidated into a single consensus and trading
decision; significant trend changes trigger email, webhook, or Telegram
alerts. In watch mode the cycle repeats during market hours.

Use 'chartwatch help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/chartwatch)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newCaptureCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newProvidersCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))

	return rootCmd
}

// newPipeline assembles the full analysis pipeline. The provider
// registry needs a context because the Google client dials on creation.
func (app *App) newPipeline(ctx context.Context, terminal bool) (*pipeline.Pipeline, error) {
	registry := providers.NewRegistry(ctx, app.Config, app.Logger)
	if len(registry.Providers()) == 0 {
		return nil, fmt.Errorf("no analysis providers available: check credentials.toml and providers.toml")
	}

	capSvc := capture.NewService(app.Config.Capture, app.Logger)
	analyzer := analysis.NewAnalyzer(registry, app.Config.Providers.EmailAlertThreshold, app.Logger)
	consolidator := consolidate.NewService(registry.Consolidator(), app.Logger)
	reports := report.NewWriter(app.Config.Report.HTMLEnabled, app.Config.Report.TextEnabled)

	var notifier notify.Notifier
	if app.Config.Notifications.Enabled {
		mn := notify.NewMultiNotifier(&app.Config.Notifications)
		if terminal {
			mn.AddChannel(notify.NewTerminalChannel(app.Config.UI.ColorEnabled, true))
		}
		notifier = mn
	} else {
		notifier = notify.NewNoOpNotifier()
	}

	return pipeline.New(app.Config, capSvc, analyzer, consolidator, reports,
		app.Store, notifier, app.Logger), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Chartwatch v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": app.Config.ConfigDir()})
			} else {
				output.Println(app.Config.ConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Capture Configuration")
	output.Printf("  Screenshot Dir:  %s\n", cfg.Capture.ScreenshotDir)
	output.Printf("  Workspace URL:   %s\n", cfg.Capture.WorkspaceURL)
	output.Printf("  Reuse Existing:  %v\n", cfg.Capture.ReuseExisting)
	output.Printf("  Enabled Views:   %d\n", len(cfg.EnabledViews()))
	output.Println()

	output.Bold("Schedule Configuration")
	output.Printf("  Enabled:         %v\n", cfg.Schedule.Enabled)
	output.Printf("  Interval:        %s\n", cfg.Schedule.Interval())
	output.Printf("  Market Hours:    %s - %s (%s)\n",
		cfg.Schedule.MarketOpen, cfg.Schedule.MarketClose, cfg.Schedule.Timezone)
	output.Println()

	output.Bold("Provider Configuration")
	output.Printf("  OpenAI:          %v (%s)\n", cfg.Providers.OpenAI.Enabled, cfg.Providers.OpenAI.Model)
	output.Printf("  Anthropic:       %v (%s)\n", cfg.Providers.Anthropic.Enabled, cfg.Providers.Anthropic.Model)
	output.Printf("  Google:          %v (%s)\n", cfg.Providers.Google.Enabled, cfg.Providers.Google.Model)
	output.Printf("  Perplexity:      %v (%s)\n", cfg.Providers.Perplexity.Enabled, cfg.Providers.Perplexity.Model)
	output.Printf("  Grok:            %v (%s)\n", cfg.Providers.Grok.Enabled, cfg.Providers.Grok.Model)
	output.Printf("  Consolidation:   %s\n", cfg.Providers.ConsolidationProvider)
	output.Printf("  Alert Threshold: %.0f%%\n", cfg.Providers.EmailAlertThreshold)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:         %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:           %s\n", cfg.Notifications.Level)
	output.Printf("  Webhook:         %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Telegram:        %v\n", cfg.Notifications.Telegram.Enabled)
	output.Printf("  Email:           %v\n", cfg.Notifications.Email.Enabled)

	return nil
}
