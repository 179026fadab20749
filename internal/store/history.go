// Package store persists generation cycles: a JSON history file that feeds
// the rendered page, and a SQLite archive of every generation attempt.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"synthfeed/internal/logging"
	"synthfeed/internal/types"
)

// =============================================================================
// HISTORY FILE
// =============================================================================

// History is the newest-first list of completed cycles, backed by a JSON file.
type History struct {
	path string
	max  int

	mu     sync.RWMutex
	cycles []types.Cycle
	keys   map[string]bool
}

// OpenHistory loads the history at path. A missing file is an empty history.
// max caps the number of cycles kept on Prepend (0 = unlimited).
func OpenHistory(path string, max int) (*History, error) {
	cycles, err := LoadCycles(path)
	if err != nil {
		return nil, err
	}

	h := &History{path: path, max: max, cycles: cycles}
	h.reindex()
	logging.StoreDebug("Opened history %s with %d cycles", path, len(cycles))
	return h, nil
}

// LoadCycles reads a history file without holding it open.
func LoadCycles(path string) ([]types.Cycle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []types.Cycle{}, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if len(data) == 0 {
		return []types.Cycle{}, nil
	}

	var cycles []types.Cycle
	if err := json.Unmarshal(data, &cycles); err != nil {
		return nil, fmt.Errorf("failed to parse history %s: %w", path, err)
	}
	if cycles == nil {
		cycles = []types.Cycle{}
	}
	return cycles, nil
}

// Path returns the history file path.
func (h *History) Path() string {
	return h.path
}

// Len returns the number of stored cycles.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.cycles)
}

// Cycles returns a copy of the stored cycles, newest first.
func (h *History) Cycles() []types.Cycle {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]types.Cycle(nil), h.cycles...)
}

// Seen reports whether a cycle already used the headline with this key
// (see types.Headline.Key).
func (h *History) Seen(key string) bool {
	if key == "" {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.keys[key]
}

// Prepend adds c as the newest cycle, trims to the cap and rewrites the file.
// The in-memory list is only updated once the write succeeds.
func (h *History) Prepend(c types.Cycle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := make([]types.Cycle, 0, len(h.cycles)+1)
	next = append(next, c)
	next = append(next, h.cycles...)
	if h.max > 0 && len(next) > h.max {
		logging.StoreDebug("Trimming history from %d to %d cycles", len(next), h.max)
		next = next[:h.max]
	}

	if err := writeJSONAtomic(h.path, next); err != nil {
		return err
	}

	h.cycles = next
	h.reindex()
	logging.Store("History now holds %d cycles (%s)", len(next), h.path)
	return nil
}

func (h *History) reindex() {
	h.keys = make(map[string]bool, len(h.cycles))
	for _, c := range h.cycles {
		if key := c.Headline.Key(); key != "" {
			h.keys[key] = true
		}
	}
}

// writeJSONAtomic writes v as indented JSON via a temp file and rename.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic replaces path with data so readers never see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
