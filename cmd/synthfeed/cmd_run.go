package main

import (
	"errors"
	"fmt"

	"synthfeed/internal/cycle"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var dryRunFile string

// runCmd executes one generation cycle
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate one comment thread and re-render the page",
	Long: `Runs a single cycle:
  1. Fetch every configured feed and pick a headline not used before
  2. Download the headline image, if any
  3. Ask the generator for a comment thread written by the personas
  4. Recover the JSON thread, repairing truncated output when possible
  5. Optionally cluster and de-duplicate comments by embedding
  6. Save to the history file and archive, then render the page

A cycle that ends without new content (no fresh headline, unusable response)
exits with status 0.`,
	Args: cobra.NoArgs,
	RunE: runCycle,
}

func init() {
	runCmd.Flags().StringVar(&dryRunFile, "dry-run", "", "Replay FILE instead of calling the generator")
}

func runCycle(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(dryRunFile == ""); err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd.Context(), true)
	defer cancel()

	svc, err := cycle.Open(ctx, cfg, cycle.Options{DryRunFile: dryRunFile})
	if err != nil {
		return err
	}
	defer svc.Close()

	out, err := svc.Runner.Run(ctx)
	if errors.Is(err, cycle.ErrCycleSkipped) {
		logger.Warn("Cycle skipped", zap.Error(err))
		fmt.Fprintf(cmd.OutOrStdout(), "Skipped: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("Cycle complete",
		zap.String("id", out.Cycle.ID),
		zap.String("headline", out.Cycle.Headline.Title),
		zap.String("method", string(out.Method)),
		zap.Int("comments", out.Attempt.CommentCount))
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n  %d comments (%s) -> %s\n",
		out.Cycle.Headline.Title, out.Attempt.CommentCount, out.Method, cfg.Render.OutputPath)
	return nil
}
