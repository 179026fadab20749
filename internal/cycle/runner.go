// Package cycle runs one generation cycle: pick a fresh headline, have the
// generator write a comment thread about it, then persist and render it.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"synthfeed/internal/articulation"
	"synthfeed/internal/config"
	"synthfeed/internal/embedding"
	"synthfeed/internal/feed"
	"synthfeed/internal/logging"
	"synthfeed/internal/media"
	"synthfeed/internal/perception"
	"synthfeed/internal/persona"
	"synthfeed/internal/prompt"
	"synthfeed/internal/store"
	"synthfeed/internal/types"

	"github.com/google/uuid"
)

// ErrCycleSkipped marks a cycle that ended without new content for a
// recoverable reason (no fresh headline, unusable response). Callers treat
// it as a normal exit.
var ErrCycleSkipped = errors.New("cycle skipped")

// =============================================================================
// COLLABORATORS
// =============================================================================

// HeadlineSource fetches candidate headlines from every feed.
type HeadlineSource interface {
	FetchAll(ctx context.Context, urls []string) ([]feed.Result, error)
}

// ArticleSource fills in story text for a selected headline.
type ArticleSource interface {
	Enrich(ctx context.Context, h types.Headline) (types.Headline, error)
}

// ImageSource downloads and normalizes a headline image.
type ImageSource interface {
	Fetch(ctx context.Context, url string) (*media.Image, error)
}

// Arranger reorders a generated thread.
type Arranger interface {
	Arrange(ctx context.Context, comments []types.Comment) ([]types.Comment, embedding.Report)
}

// History is the persisted list of completed cycles.
type History interface {
	Seen(key string) bool
	Prepend(c types.Cycle) error
	Cycles() []types.Cycle
}

// Archive records every attempt.
type Archive interface {
	Record(at *store.Attempt) error
}

// PageWriter renders the history to the output page.
type PageWriter interface {
	WriteFile(path string, cycles []types.Cycle) error
}

// Deps are the runner's collaborators. Articles, Images, Arranger, Archive
// and Renderer are optional.
type Deps struct {
	Feeds     HeadlineSource
	Articles  ArticleSource
	Images    ImageSource
	Generator perception.Generator
	Arranger  Arranger
	History   History
	Archive   Archive
	Renderer  PageWriter
	Roster    persona.Roster
	Rand      *rand.Rand
	Now       func() time.Time
}

// Outcome describes a completed cycle.
type Outcome struct {
	Cycle   types.Cycle
	Method  articulation.Method
	Arrange embedding.Report
	Attempt *store.Attempt
}

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes generation cycles. Run calls are serialized.
type Runner struct {
	cfg       *config.Config
	deps      Deps
	sanitizer *articulation.Sanitizer

	mu sync.Mutex
}

// NewRunner validates the collaborators and builds a runner.
func NewRunner(cfg *config.Config, deps Deps) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if deps.Feeds == nil || deps.Generator == nil || deps.History == nil {
		return nil, errors.New("cycle runner needs feeds, a generator and a history")
	}
	strategy, err := articulation.ParseStrategy(cfg.Sanitizer.Repair)
	if err != nil {
		return nil, err
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Runner{
		cfg:       cfg,
		deps:      deps,
		sanitizer: articulation.NewSanitizer(strategy),
	}, nil
}

// Sanitizer exposes the runner's sanitizer for stats.
func (r *Runner) Sanitizer() *articulation.Sanitizer {
	return r.sanitizer
}

// Run executes one cycle. It returns an error wrapping ErrCycleSkipped when
// there is nothing new to show, and other errors for hard failures.
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryCycle, "Run")
	defer timer.Stop()
	start := r.deps.Now()

	// 1. Headline
	results, err := r.deps.Feeds.FetchAll(ctx, r.cfg.Feeds)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feeds: %w", err)
	}
	headline, err := feed.Select(results, r.deps.History.Seen, r.deps.Rand)
	if err != nil {
		logging.CycleWarn("No fresh headline: %v", err)
		r.archive(&store.Attempt{Status: store.StatusSkipped, Error: err.Error(), Duration: time.Since(start)})
		return nil, fmt.Errorf("%w: %w", ErrCycleSkipped, err)
	}
	logging.Cycle("Selected headline: %s", headline.Title)
	if r.deps.Articles != nil {
		enriched, err := r.deps.Articles.Enrich(ctx, headline)
		if err != nil {
			logging.CycleWarn("Continuing with feed text only: %v", err)
		} else {
			headline = enriched
		}
	}

	// 2. Image
	img := r.fetchImage(ctx, headline)

	// 3. Prompt
	roster := r.deps.Roster.Sample(r.cfg.Personas.Max, r.deps.Rand)
	text, err := prompt.BuildThread(headline, roster, prompt.Options{
		Style:          r.cfg.Prompt.Style,
		MinUpvotes:     r.cfg.Prompt.MinUpvotes,
		MaxUpvotes:     r.cfg.Prompt.MaxUpvotes,
		ShortFormWords: r.cfg.Prompt.ShortFormWords,
		ShortFormRatio: r.cfg.Prompt.ShortFormRatio,
		HasImage:       img != nil,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}
	text = prompt.Budget(text, r.cfg.LLM.ContextWindow, r.cfg.LLM.ContextWindow)
	logging.Get(logging.CategoryCycle).Debug("Prompt: %d words, %d personas", prompt.WordCount(text), len(roster))

	// 4. Generate
	attempt := &store.Attempt{
		ID:       uuid.NewString(),
		Headline: headline,
		Model:    r.deps.Generator.Name(),
	}
	raw, err := r.deps.Generator.Generate(ctx, perception.Request{
		System: prompt.SystemInstruction,
		Prompt: text,
		Image:  img,
		JSON:   true,
	})
	if err != nil {
		attempt.Status = store.StatusFailed
		attempt.Error = err.Error()
		attempt.Duration = time.Since(start)
		r.archive(attempt)
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	attempt.Raw = raw

	// 5. Sanitize
	res, err := r.sanitizer.Recover(raw)
	if err != nil {
		attempt.Status = store.StatusFailed
		attempt.Error = err.Error()
		var re *articulation.RecoveryError
		if errors.As(err, &re) {
			attempt.Repaired = re.Repaired
		}
		attempt.Duration = time.Since(start)
		r.archive(attempt)
		logging.CycleWarn("Skipping cycle, response unusable: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrCycleSkipped, err)
	}
	comments := res.Comments()
	attempt.Method = string(res.Method)
	attempt.Repaired = res.Repaired
	if len(comments) == 0 {
		attempt.Status = store.StatusSkipped
		attempt.Error = "response held no comments"
		attempt.Duration = time.Since(start)
		r.archive(attempt)
		logging.CycleWarn("Skipping cycle, response held no comments")
		return nil, fmt.Errorf("%w: empty thread", ErrCycleSkipped)
	}

	// 6. Arrange
	var report embedding.Report
	if r.deps.Arranger != nil {
		comments, report = r.deps.Arranger.Arrange(ctx, comments)
	}

	// 7. Persist
	c := types.Cycle{
		ID:        attempt.ID,
		Timestamp: r.deps.Now().UTC(),
		Headline:  headline,
		Comments:  comments,
		Image:     r.saveImage(img, attempt.ID),
	}
	if err := r.deps.History.Prepend(c); err != nil {
		attempt.Status = store.StatusFailed
		attempt.Error = err.Error()
		attempt.Duration = time.Since(start)
		r.archive(attempt)
		return nil, fmt.Errorf("failed to save history: %w", err)
	}

	attempt.Status = store.StatusOK
	attempt.Timestamp = c.Timestamp
	attempt.Comments = comments
	attempt.CommentCount = types.CountComments(comments)
	attempt.Duration = time.Since(start)
	r.archive(attempt)

	// 8. Render
	if r.deps.Renderer != nil {
		if err := r.deps.Renderer.WriteFile(r.cfg.Render.OutputPath, r.deps.History.Cycles()); err != nil {
			return nil, fmt.Errorf("failed to render page: %w", err)
		}
	}

	logging.Cycle("Cycle %s complete: %d comments via %s", c.ID, attempt.CommentCount, res.Method)
	return &Outcome{Cycle: c, Method: res.Method, Arrange: report, Attempt: attempt}, nil
}

func (r *Runner) fetchImage(ctx context.Context, h types.Headline) *media.Image {
	if r.deps.Images == nil || h.ImageURL == "" {
		return nil
	}
	img, err := r.deps.Images.Fetch(ctx, h.ImageURL)
	if err != nil {
		logging.CycleWarn("Continuing without image %s: %v", h.ImageURL, err)
		return nil
	}
	return img
}

// saveImage stores the thumbnail and returns its path relative to the page.
func (r *Runner) saveImage(img *media.Image, id string) string {
	if img == nil || r.cfg.Media.Dir == "" {
		return ""
	}
	path, err := img.Save(r.cfg.Media.Dir, id)
	if err != nil {
		logging.CycleWarn("Failed to save image: %v", err)
		return ""
	}
	rel, err := filepath.Rel(filepath.Dir(r.cfg.Render.OutputPath), path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

// archive records an attempt. Archive failures never fail the cycle.
func (r *Runner) archive(at *store.Attempt) {
	if r.deps.Archive == nil {
		return
	}
	if err := r.deps.Archive.Record(at); err != nil {
		logging.Get(logging.CategoryCycle).Warn("Failed to archive attempt: %v", err)
	}
}
