package main

import (
	"context"
	"fmt"

	"synthfeed/internal/render"

	"github.com/spf13/cobra"
)

var watchHistory bool

// renderCmd rebuilds the page from the history file
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the history file to HTML",
	Long: `Renders every stored cycle to the configured output page.

With --watch, keeps running and re-renders whenever the history file changes.`,
	Args: cobra.NoArgs,
	RunE: renderPage,
}

func init() {
	renderCmd.Flags().BoolVarP(&watchHistory, "watch", "w", false, "Re-render when the history file changes")
}

func renderPage(cmd *cobra.Command, args []string) error {
	r, err := render.New(render.Options{Title: cfg.Render.Title, MaxCycles: cfg.Render.MaxCycles})
	if err != nil {
		return err
	}
	historyPath, outputPath := cfg.Storage.HistoryPath, cfg.Render.OutputPath

	if err := r.RenderHistory(historyPath, outputPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s\n", outputPath)

	if !watchHistory {
		return nil
	}

	ctx, cancel := commandContext(cmd.Context(), false)
	defer cancel()

	w, err := render.NewWatcher(historyPath, 0, func(context.Context) error {
		return r.RenderHistory(historyPath, outputPath)
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", historyPath)
	<-w.Done()
	stats := w.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "Stopped after %d renders\n", stats.Renders)
	return nil
}
