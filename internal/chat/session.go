// Package chat runs free-form conversations with a single persona.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"synthfeed/internal/logging"
	"synthfeed/internal/perception"
	"synthfeed/internal/persona"
	"synthfeed/internal/prompt"
)

// DefaultOpening starts sessions that have no persona.
const DefaultOpening = "You are an AI assistant."

const (
	userPrefix      = "USER: "
	assistantPrefix = "Assistant: "
)

// ErrEmptyInput is returned by Send for blank input.
var ErrEmptyInput = errors.New("empty chat input")

// Command is what a line of user input asks the session to do.
type Command int

const (
	CommandMessage Command = iota
	CommandHistory
	CommandExit
)

// ParseCommand classifies input. "history" and "exit" match case-insensitively.
func ParseCommand(input string) Command {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "history":
		return CommandHistory
	case "exit":
		return CommandExit
	default:
		return CommandMessage
	}
}

// Session is one chat conversation. The log starts with the opening prompt
// and alternates user and assistant lines.
type Session struct {
	mu        sync.Mutex
	gen       perception.Generator
	persona   *persona.Persona
	log       []string
	maxWords  int
	keepWords int
}

// NewSession starts a session. A nil persona uses DefaultOpening.
// contextWindow bounds the words sent per request (0 = unbounded).
func NewSession(gen perception.Generator, p *persona.Persona, contextWindow int) *Session {
	opening := DefaultOpening
	if p != nil {
		opening = p.OpeningPrompt()
	}
	s := &Session{
		gen:       gen,
		persona:   p,
		log:       []string{opening},
		maxWords:  contextWindow,
		keepWords: contextWindow,
	}
	logging.Chat("Chat session started with %s", s.PersonaName())
	return s
}

// PersonaName returns the persona's name, or "default".
func (s *Session) PersonaName() string {
	if s.persona == nil || s.persona.Name == "" {
		return "default"
	}
	return s.persona.Name
}

// Send appends input to the log, asks the generator for a reply over the
// budgeted log and appends the reply. A failed request leaves the log as it was.
func (s *Session) Send(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines := append(append([]string(nil), s.log...), userPrefix+input)
	contents := prompt.Budget(strings.Join(lines, "\n"), s.maxWords, s.keepWords)

	reply, err := s.gen.Generate(ctx, perception.Request{Prompt: contents})
	if err != nil {
		logging.Get(logging.CategoryChat).Warn("Chat request failed: %v", err)
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	reply = strings.TrimSpace(reply)

	s.log = append(lines, assistantPrefix+reply)
	logging.Get(logging.CategoryChat).Debug("Chat log now %d lines", len(s.log))
	return reply, nil
}

// History returns the log, opening prompt first.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}
