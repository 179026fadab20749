package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"synthfeed/internal/articulation"

	"github.com/spf13/cobra"
)

// sanitizeCmd runs the response sanitizer over a saved response
var sanitizeCmd = &cobra.Command{
	Use:   "sanitize [FILE|-]",
	Short: "Recover a comment thread from a raw generator response",
	Long: `Reads a raw generator response from FILE (or stdin when FILE is "-" or
omitted), recovers the comment array and prints it as indented JSON.

Exits non-zero when the response cannot be salvaged.`,
	Args: cobra.MaximumNArgs(1),
	RunE: sanitizeResponse,
}

func sanitizeResponse(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	strategy, err := articulation.ParseStrategy(cfg.Sanitizer.Repair)
	if err != nil {
		return err
	}
	res, err := articulation.NewSanitizer(strategy).Recover(string(data))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Tree); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "method: %s\n", res.Method)
	return nil
}
