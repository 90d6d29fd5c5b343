// Package cli provides the command-line interface for beersync.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"BeerSync/internal/config"
	"BeerSync/internal/domain"
	"BeerSync/internal/logging"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configPath string

	cfg       config.Config
	logger    *slog.Logger
	closeLogs func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "beersync",
	Short: "Enrich the beer catalog from public directories",
	Long: `beersync reads the curated beer list, enriches it with brewery data from
Open Brewery DB and product data from Open Food Facts, applies manual
overrides and writes the enriched snapshot plus a quality report.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger, closeLogs, err = logging.NewWithFile(cfg.Logging.Level, cfg.Logging.File)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLogs != nil {
			if err := closeLogs(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps a command error to the process exit status. Degraded runs
// return nil and exit 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) && !stageErr.Fatal {
		return 0
	}
	return 1
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config (default $BEERSYNC_CONFIG)")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(serveCmd)
}
