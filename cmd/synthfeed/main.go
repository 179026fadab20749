package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"synthfeed/internal/config"
	"synthfeed/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgPath string
	verbose bool
	timeout time.Duration

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "synthfeed",
	Short: "synthfeed - fabricated comment threads for real headlines",
	Long: `synthfeed pulls a headline from an RSS/Atom feed, has a language model
write a Reddit-style comment thread about it in the voice of a persona roster,
and renders every thread into a static HTML page.

Run "synthfeed run" from cron to add one thread per invocation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded

		if err := logging.Initialize(cfg.Logging.Options(verbose)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = logging.Base()
		logger.Debug("Configuration loaded", zap.String("path", cfgPath), zap.Strings("feeds", cfg.Feeds))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(sanitizeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(personasCmd)
	rootCmd.AddCommand(chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext returns a context bounded by --timeout and cancelled on
// SIGINT/SIGTERM.
func commandContext(parent context.Context, withTimeout bool) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if !withTimeout || timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
