// Package cli provides the command-line interface for the trading bot.
package cli

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"kite-levels-trader/internal/config"
	"kite-levels-trader/internal/logging"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies shared by commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "trader",
		Short: "Level-retest options trading bot for Indian markets",
		Long: `An automated trading bot for NSE/BSE/MCX instruments.

It streams live ticks over Zerodha Kite Connect, builds fixed-interval
candles, detects support/resistance levels, and trades level retests
confirmed at bar close, with ATR-based stops, trailing, and scaled
targets. Operator control and notifications run over Telegram.`,
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

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/kite-levels-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newLevelsCmd(app))
	rootCmd.AddCommand(newExportCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("kite-levels-trader v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
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
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
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
			for _, s := range app.Config.Strategies {
				if err := app.Config.ValidateStrategy(s); err != nil {
					output.Warn("Strategy %s will be disabled: %v", s.Name, err)
				}
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Trading")
	output.Printf("  Mode:             %s\n", cfg.Trading.Mode)
	output.Printf("  Default Exchange: %s\n", cfg.Trading.DefaultExchange)
	output.Printf("  Candle Capacity:  %d\n", cfg.Trading.CandleCapacity)
	output.Printf("  Backfill Days:    %d\n", cfg.Trading.BackfillDays)
	output.Println()

	output.Bold("Risk")
	output.Printf("  Max Daily Loss:   %.2f\n", cfg.Risk.MaxDailyLoss)
	output.Printf("  Max Daily Profit: %.2f\n", cfg.Risk.MaxDailyProfit)
	output.Printf("  Halt On Limit:    %v\n", cfg.Risk.HaltOnLimit)
	output.Printf("  Cooldown:         %d min\n", cfg.Risk.CooldownMinutes)
	output.Println()

	output.Bold("Strategies")
	for _, s := range cfg.Strategies {
		output.Printf("  %s: %s/%s %dm", s.Name, s.Exchange, s.Underlying, s.IntervalMinutes)
		if s.OptionMapped {
			output.Printf(" (options, %s, %s)", s.ExpiryPreference, s.EntryPolicy)
		}
		output.Println()
	}
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Telegram: %v\n", cfg.Notifications.Telegram.Enabled)

	return nil
}

// dbPath returns the session database location.
func dbPath() string {
	return filepath.Join(config.DefaultConfigDir(), "trader.db")
}
