package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"synthfeed/internal/store"

	"github.com/spf13/cobra"
)

var (
	archiveStatus string
	archiveLimit  int
)

// archiveCmd inspects the generation archive
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect archived generation attempts",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent attempts",
	Args:  cobra.NoArgs,
	RunE:  archiveList,
}

var archiveShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one attempt, including the raw response",
	Args:  cobra.ExactArgs(1),
	RunE:  archiveShow,
}

func init() {
	archiveListCmd.Flags().StringVar(&archiveStatus, "status", "", "Filter by status: ok, skipped, failed")
	archiveListCmd.Flags().IntVarP(&archiveLimit, "limit", "n", 20, "Maximum attempts to list")

	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
}

func openArchive() (*store.Archive, error) {
	if cfg.Storage.ArchivePath == "" {
		return nil, fmt.Errorf("storage.archive_path is not configured")
	}
	return store.OpenArchive(cfg.Storage.ArchivePath)
}

func archiveList(cmd *cobra.Command, args []string) error {
	switch store.Status(archiveStatus) {
	case "", store.StatusOK, store.StatusSkipped, store.StatusFailed:
	default:
		return fmt.Errorf("unknown status %q", archiveStatus)
	}

	a, err := openArchive()
	if err != nil {
		return err
	}
	defer a.Close()

	attempts, err := a.List(archiveLimit, store.Status(archiveStatus))
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No attempts archived.")
		return nil
	}

	t := newTable("ID", "WHEN", "STATUS", "METHOD", "COMMENTS", "HEADLINE")
	for _, at := range attempts {
		method := at.Method
		if method == "" {
			method = "-"
		}
		t.Row(at.ID, at.Timestamp.Local().Format("2006-01-02 15:04"),
			string(at.Status), method, strconv.Itoa(at.CommentCount), at.Headline.Title)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())

	counts, err := a.Counts()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nTotals: ok=%d skipped=%d failed=%d\n",
		counts[store.StatusOK], counts[store.StatusSkipped], counts[store.StatusFailed])
	return nil
}

func archiveShow(cmd *cobra.Command, args []string) error {
	a, err := openArchive()
	if err != nil {
		return err
	}
	defer a.Close()

	at, err := a.Get(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:        %s\n", at.ID)
	fmt.Fprintf(out, "When:      %s\n", at.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Status:    %s\n", at.Status)
	fmt.Fprintf(out, "Headline:  %s\n", at.Headline.Title)
	fmt.Fprintf(out, "Link:      %s\n", at.Headline.Link)
	fmt.Fprintf(out, "Model:     %s\n", at.Model)
	fmt.Fprintf(out, "Method:    %s\n", at.Method)
	fmt.Fprintf(out, "Comments:  %d\n", at.CommentCount)
	fmt.Fprintf(out, "Duration:  %v\n", at.Duration)
	if at.Error != "" {
		fmt.Fprintf(out, "Error:     %s\n", at.Error)
	}
	if at.Raw != "" {
		fmt.Fprintf(out, "\n--- raw response ---\n%s\n", at.Raw)
	}
	if at.Repaired != "" {
		fmt.Fprintf(out, "\n--- repaired text ---\n%s\n", at.Repaired)
	}
	if len(at.Comments) > 0 {
		data, err := json.MarshalIndent(at.Comments, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n--- comments ---\n%s\n", data)
	}
	return nil
}
