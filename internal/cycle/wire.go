package cycle

import (
	"context"
	"net/http"

	"synthfeed/internal/config"
	"synthfeed/internal/embedding"
	"synthfeed/internal/feed"
	"synthfeed/internal/logging"
	"synthfeed/internal/media"
	"synthfeed/internal/perception"
	"synthfeed/internal/persona"
	"synthfeed/internal/render"
	"synthfeed/internal/store"
)

// Options adjusts how Open builds the collaborators.
type Options struct {
	// DryRunFile replaces the generator with the file's content.
	DryRunFile string
	// HTTPClient is shared by the feed, article and image fetchers.
	HTTPClient *http.Client
}

// Services bundles a runner with the stores it writes to.
type Services struct {
	Runner   *Runner
	History  *store.History
	Archive  *store.Archive
	Renderer *render.Renderer
}

// Open builds every collaborator from cfg.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Services, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "cycle.Open")
	defer timer.Stop()

	roster, err := persona.Load(cfg.Personas.Path)
	if err != nil {
		return nil, err
	}

	var gen perception.Generator
	if opts.DryRunFile != "" {
		gen, err = perception.NewStaticFromFile(opts.DryRunFile)
		logging.Boot("Dry run: replaying %s", opts.DryRunFile)
	} else {
		gen, err = perception.NewGenerator(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	history, err := store.OpenHistory(cfg.Storage.HistoryPath, cfg.Storage.MaxHistory)
	if err != nil {
		return nil, err
	}

	var archive *store.Archive
	if cfg.Storage.ArchivePath != "" {
		archive, err = store.OpenArchive(cfg.Storage.ArchivePath)
		if err != nil {
			return nil, err
		}
	}

	renderer, err := render.New(render.Options{Title: cfg.Render.Title, MaxCycles: cfg.Render.MaxCycles})
	if err != nil {
		closeArchive(archive)
		return nil, err
	}

	deps := Deps{
		Feeds: feed.NewFetcher(feed.Config{
			HeadlinesPerFeed: cfg.Feed.HeadlinesPerFeed,
			UserAgent:        cfg.Feed.UserAgent,
			Timeout:          cfg.GetFeedTimeout(),
			Concurrency:      cfg.Feed.Concurrency,
		}, opts.HTTPClient),
		Generator: gen,
		History:   history,
		Renderer:  renderer,
		Roster:    roster,
	}
	if archive != nil {
		// A nil *Archive must not become a non-nil interface.
		deps.Archive = archive
	}
	if cfg.Feed.FetchArticles {
		deps.Articles = feed.NewArticleReader(feed.ArticleConfig{
			MinBodyWords: cfg.Feed.MinBodyWords,
			MaxWords:     cfg.Feed.ArticleMaxWords,
			UserAgent:    cfg.Feed.UserAgent,
			Timeout:      cfg.GetFeedTimeout(),
		}, opts.HTTPClient)
	}
	if cfg.Media.Enabled {
		deps.Images = media.NewDownloader(media.Config{
			MaxDimension: cfg.Media.MaxDimension,
			MaxBytes:     cfg.Media.MaxBytes,
			MaxPixels:    cfg.Media.MaxPixels,
			Timeout:      cfg.GetMediaTimeout(),
			UserAgent:    cfg.Feed.UserAgent,
		}, opts.HTTPClient)
	}
	if cfg.Embedding.Enabled {
		engine, err := embedding.NewEngine(ctx, embedding.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.Embedding.Model,
			TaskType: cfg.Embedding.TaskType,
		})
		if err != nil {
			logging.Get(logging.CategoryBoot).Warn("Clustering disabled: %v", err)
		} else {
			deps.Arranger = embedding.NewClusterer(engine, cfg.Embedding.ClusterThreshold, cfg.Embedding.DedupeThreshold)
		}
	}

	runner, err := NewRunner(cfg, deps)
	if err != nil {
		closeArchive(archive)
		return nil, err
	}

	return &Services{Runner: runner, History: history, Archive: archive, Renderer: renderer}, nil
}

// Close releases the archive.
func (s *Services) Close() error {
	if s == nil || s.Archive == nil {
		return nil
	}
	return s.Archive.Close()
}

func closeArchive(a *store.Archive) {
	if a == nil {
		return
	}
	if err := a.Close(); err != nil {
		logging.Get(logging.CategoryStore).Warn("Failed to close archive: %v", err)
	}
}
