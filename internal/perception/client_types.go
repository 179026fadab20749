// Package perception talks to the language model that writes comment threads
// and persona chat replies.
package perception

import (
	"context"

	"synthfeed/internal/media"
)

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one prior message in a multi-turn request.
type Turn struct {
	Role Role
	Text string
}

// Request is a single generation request.
type Request struct {
	// System is the system instruction. Empty uses the provider default.
	System string
	// Prompt is the final user message.
	Prompt string
	// Image is attached to the final user message when set.
	Image *media.Image
	// History holds earlier turns, oldest first.
	History []Turn
	// JSON asks the provider for application/json output.
	JSON bool
}

// Generator produces text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}
