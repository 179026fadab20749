package main

import (
	"fmt"
	"strconv"

	"synthfeed/internal/store"
	"synthfeed/internal/types"

	"github.com/spf13/cobra"
)

// historyCmd lists stored cycles
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the cycles in the history file, newest first",
	Args:  cobra.NoArgs,
	RunE:  listHistory,
}

func listHistory(cmd *cobra.Command, args []string) error {
	cycles, err := store.LoadCycles(cfg.Storage.HistoryPath)
	if err != nil {
		return err
	}
	if len(cycles) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No cycles yet.")
		return nil
	}

	t := newTable("WHEN", "COMMENTS", "DEPTH", "HEADLINE")
	for _, c := range cycles {
		when := "-"
		if !c.Timestamp.IsZero() {
			when = c.Timestamp.Local().Format("2006-01-02 15:04")
		}
		t.Row(when, strconv.Itoa(types.CountComments(c.Comments)), strconv.Itoa(types.MaxDepth(c.Comments)), c.Headline.Title)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}
