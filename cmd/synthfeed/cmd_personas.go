package main

import (
	"fmt"

	"synthfeed/internal/persona"

	"github.com/spf13/cobra"
)

var printExample bool

// personasCmd lists the persona roster
var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the personas in the roster",
	Long: `Lists the personas loaded from personas.path.

With --example, prints a sample roster to start a personas file from.`,
	Args: cobra.NoArgs,
	RunE: listPersonas,
}

func init() {
	personasCmd.Flags().BoolVar(&printExample, "example", false, "Print an example personas file")
}

func listPersonas(cmd *cobra.Command, args []string) error {
	if printExample {
		_, err := cmd.OutOrStdout().Write(persona.ExampleYAML())
		return err
	}

	roster, err := persona.Load(cfg.Personas.Path)
	if err != nil {
		return err
	}
	if len(roster) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No personas in %s (try: synthfeed personas --example > %s)\n",
			cfg.Personas.Path, cfg.Personas.Path)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d personas in %s:\n", len(roster), cfg.Personas.Path)
	for _, p := range roster {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s (%d attributes)\n", p.Name, len(p.Attributes))
	}
	return nil
}
