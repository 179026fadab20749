package main

import (
	"fmt"

	"synthfeed/cmd/synthfeed/chat"
	internalchat "synthfeed/internal/chat"
	"synthfeed/internal/perception"
	"synthfeed/internal/persona"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var chatPersona string

// chatCmd starts an interactive persona chat
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with one of the personas",
	Long: `Opens an interactive chat with a persona from the roster. Without
--persona, or when the name is not in the roster, the default assistant is used.

Type "history" to see the session log and "exit" to leave.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatPersona, "persona", "p", "", "Persona name (case-insensitive)")
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(true); err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd.Context(), false)
	defer cancel()

	roster, err := persona.Load(cfg.Personas.Path)
	if err != nil {
		return err
	}
	var selected *persona.Persona
	if chatPersona != "" {
		if p, ok := roster.Find(chatPersona); ok {
			selected = &p
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "No such chatter %q. Using default chatter.\n", chatPersona)
		}
	}

	gen, err := perception.NewGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	session := internalchat.NewSession(gen, selected, cfg.LLM.ContextWindow)

	model := chat.New(ctx, session, roster.Names())
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
