package perception

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Static replays canned responses in order. The last response repeats once
// the list is exhausted. It backs --dry-run and tests.
type Static struct {
	mu        sync.Mutex
	responses []string
	next      int
	requests  []Request
}

// NewStatic creates a generator that returns responses in order.
func NewStatic(responses ...string) *Static {
	return &Static{responses: responses}
}

// NewStaticFromFile creates a generator that always returns the file content.
func NewStaticFromFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read canned response: %w", err)
	}
	return NewStatic(string(data)), nil
}

// Name identifies the generator.
func (s *Static) Name() string {
	return "static"
}

// Generate returns the next canned response.
func (s *Static) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return "", fmt.Errorf("static generator has no responses")
	}
	resp := s.responses[s.next]
	if s.next < len(s.responses)-1 {
		s.next++
	}
	return resp, nil
}

// Requests returns every request seen so far.
func (s *Static) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}
