package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"synthfeed/internal/logging"
	"synthfeed/internal/types"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// =============================================================================
// GENERATION ARCHIVE
// =============================================================================

// Status is the outcome of a generation attempt.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// ErrNotFound is returned when an archived attempt does not exist.
var ErrNotFound = errors.New("attempt not found")

// Attempt is one archived generation attempt, successful or not.
type Attempt struct {
	ID        string
	Timestamp time.Time
	Status    Status
	Headline  types.Headline
	Model     string
	// Method is the sanitizer recovery method, empty on failure.
	Method       string
	CommentCount int
	Comments     []types.Comment
	// Raw is the generator response exactly as received.
	Raw string
	// Repaired is the text after truncation repair, when one was attempted.
	Repaired string
	Error    string
	Duration time.Duration
}

// Archive records every generation attempt in SQLite.
type Archive struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// OpenArchive creates or opens the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &Archive{db: db, dbPath: path}
	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.StoreDebug("Opened archive %s", path)
	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Path returns the database file path.
func (a *Archive) Path() string {
	return a.dbPath
}

func (a *Archive) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		status TEXT NOT NULL,
		headline_title TEXT NOT NULL,
		headline_link TEXT,
		headline_json TEXT,
		model TEXT,
		method TEXT,
		comment_count INTEGER NOT NULL DEFAULT 0,
		comments_json TEXT,
		raw_response TEXT,
		repaired_text TEXT,
		error TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_timestamp ON attempts(timestamp);
	CREATE INDEX IF NOT EXISTS idx_attempts_status ON attempts(status);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Record stores an attempt, assigning an ID and timestamp when missing.
func (a *Archive) Record(at *Attempt) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if at.ID == "" {
		at.ID = uuid.NewString()
	}
	if at.Timestamp.IsZero() {
		at.Timestamp = time.Now()
	}
	at.Timestamp = at.Timestamp.UTC()
	switch at.Status {
	case StatusOK, StatusSkipped, StatusFailed:
	default:
		return fmt.Errorf("invalid attempt status %q", at.Status)
	}

	headlineJSON, err := json.Marshal(at.Headline)
	if err != nil {
		return fmt.Errorf("failed to marshal headline: %w", err)
	}
	var commentsJSON []byte
	if at.Comments != nil {
		if commentsJSON, err = json.Marshal(at.Comments); err != nil {
			return fmt.Errorf("failed to marshal comments: %w", err)
		}
	}

	_, err = a.db.Exec(`
		INSERT INTO attempts (id, timestamp, status, headline_title, headline_link, headline_json,
			model, method, comment_count, comments_json, raw_response, repaired_text, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, at.ID, at.Timestamp, string(at.Status), at.Headline.Title, at.Headline.Link, string(headlineJSON),
		at.Model, at.Method, at.CommentCount, nullString(string(commentsJSON)), at.Raw, at.Repaired, at.Error,
		at.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	logging.StoreDebug("Archived attempt %s (%s)", at.ID, at.Status)
	return nil
}

const attemptColumns = `id, timestamp, status, headline_json, model, method, comment_count,
	comments_json, raw_response, repaired_text, error, duration_ms`

// Get returns one attempt by ID.
func (a *Archive) Get(id string) (*Attempt, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	row := a.db.QueryRow(`SELECT `+attemptColumns+` FROM attempts WHERE id = ?`, id)
	at, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return at, nil
}

// List returns up to limit attempts, newest first. An empty status lists all.
func (a *Archive) List(limit int, status Status) ([]Attempt, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = a.db.Query(`SELECT `+attemptColumns+` FROM attempts
			ORDER BY timestamp DESC LIMIT ?`, limit)
	} else {
		rows, err = a.db.Query(`SELECT `+attemptColumns+` FROM attempts
			WHERE status = ? ORDER BY timestamp DESC LIMIT ?`, string(status), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		at, err := scanAttempt(rows)
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("Skipping unreadable archive row: %v", err)
			continue
		}
		attempts = append(attempts, *at)
	}
	return attempts, rows.Err()
}

// Counts returns the number of attempts per status.
func (a *Archive) Counts() (map[Status]int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rows, err := a.db.Query(`SELECT status, COUNT(*) FROM attempts GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[Status(s)] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(s scanner) (*Attempt, error) {
	var at Attempt
	var status string
	var headlineJSON, model, method, commentsJSON, raw, repaired, errText sql.NullString
	var durationMs int64

	if err := s.Scan(&at.ID, &at.Timestamp, &status, &headlineJSON, &model, &method, &at.CommentCount,
		&commentsJSON, &raw, &repaired, &errText, &durationMs); err != nil {
		return nil, err
	}

	at.Status = Status(status)
	at.Model = model.String
	at.Method = method.String
	at.Raw = raw.String
	at.Repaired = repaired.String
	at.Error = errText.String
	at.Duration = time.Duration(durationMs) * time.Millisecond

	if headlineJSON.Valid {
		if err := json.Unmarshal([]byte(headlineJSON.String), &at.Headline); err != nil {
			return nil, fmt.Errorf("attempt %s: bad headline: %w", at.ID, err)
		}
	}
	if commentsJSON.Valid {
		if err := json.Unmarshal([]byte(commentsJSON.String), &at.Comments); err != nil {
			return nil, fmt.Errorf("attempt %s: bad comments: %w", at.ID, err)
		}
	}
	return &at, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
