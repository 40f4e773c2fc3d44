package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/calvinmclean/autotune/config"
)

// appID keys the fyne preferences store
const appID = "com.calvinmclean.autotune"

var (
	flagConfig string

	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "autotune",
		Short: "Host tools for the relay antenna tuner",
		Long: `autotune runs the tuning controller against a simulated antenna, follows a real tuner
over its serial console and measures how the fine search window size affects tuning.

Set ENABLE_UI=true with simulate or monitor to show the front panel.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file. Defaults are used when empty")

	rootCmd.AddCommand(
		simulateCommand(),
		monitorCommand(),
		uiCommand(),
		calibrateCommand(),
		portsCommand(),
		configCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func loadConfig(*cobra.Command, []string) error {
	cfg = config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		cfg = loaded
	}

	level := new(slog.LevelVar)
	level.Set(cfg.LogLevel())
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}
