// Package feed pulls headlines from RSS and Atom feeds.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"synthfeed/internal/logging"
	"synthfeed/internal/types"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

// maxFeedBytes caps a single feed download.
const maxFeedBytes = 4 << 20

// ErrNoFreshHeadline is returned by Select when every headline was already used.
var ErrNoFreshHeadline = errors.New("no unused headline in any feed")

// Config configures a Fetcher.
type Config struct {
	HeadlinesPerFeed int
	UserAgent        string
	Timeout          time.Duration
	// Concurrency bounds parallel fetches in FetchAll.
	Concurrency int
}

// Result is the outcome of fetching one feed.
type Result struct {
	URL       string
	Headlines []types.Headline
	Err       error
}

// Fetcher downloads and parses feeds.
type Fetcher struct {
	cfg    Config
	client *http.Client
}

// NewFetcher creates a fetcher. A nil client uses a client with cfg.Timeout.
func NewFetcher(cfg Config, client *http.Client) *Fetcher {
	if cfg.HeadlinesPerFeed <= 0 {
		cfg.HeadlinesPerFeed = 3
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{cfg: cfg, client: client}
}

// Fetch returns the first HeadlinesPerFeed entries of the feed at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]types.Headline, error) {
	timer := logging.StartTimer(logging.CategoryFeed, "Fetch")
	defer timer.Stop()

	logging.Feed("Fetching %s", url)

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("error parsing feed: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil, fmt.Errorf("no entries found in feed %s", url)
	}

	items := parsed.Items
	if len(items) > f.cfg.HeadlinesPerFeed {
		items = items[:f.cfg.HeadlinesPerFeed]
	}

	headlines := make([]types.Headline, 0, len(items))
	for _, item := range items {
		headlines = append(headlines, toHeadline(parsed, item, url))
	}

	logging.FeedDebug("Parsed %d/%d entries from %s", len(headlines), len(parsed.Items), url)
	return headlines, nil
}

// FetchAll fetches every feed concurrently. Results come back in input order.
// Failed feeds are logged and carried in Result.Err; the returned error is
// non-nil only when every feed failed.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]Result, error) {
	results := make([]Result, len(urls))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(f.cfg.Concurrency)

	for i, url := range urls {
		i, url := i, url
		eg.Go(func() error {
			headlines, err := f.Fetch(egCtx, url)
			results[i] = Result{URL: url, Headlines: headlines, Err: err}
			if err != nil {
				logging.FeedWarn("Feed %s failed: %v", url, err)
			}
			return nil
		})
	}
	_ = eg.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	if len(urls) > 0 && len(errs) == len(urls) {
		return results, fmt.Errorf("all %d feeds failed: %w", len(urls), errors.Join(errs...))
	}
	return results, nil
}

// Select picks a headline nobody has commented on yet. Feeds are visited in
// random order; within a feed, entries are tried in feed order. seen is
// asked about each entry's Key.
func Select(results []Result, seen func(key string) bool, rng *rand.Rand) (types.Headline, error) {
	for _, i := range rng.Perm(len(results)) {
		for _, h := range results[i].Headlines {
			if seen == nil || !seen(h.Key()) {
				return h, nil
			}
			logging.FeedDebug("Skipping already used headline: %s", h.Title)
		}
	}
	return types.Headline{}, ErrNoFreshHeadline
}

func toHeadline(parsed *gofeed.Feed, item *gofeed.Item, feedURL string) types.Headline {
	h := types.Headline{
		Title: strings.TrimSpace(item.Title),
		Link:  item.Link,
		Feed:  feedURL,
	}
	if h.Link == "" && len(item.Links) > 0 {
		h.Link = item.Links[0]
	}

	switch {
	case item.Author != nil && item.Author.Name != "":
		h.Author = item.Author.Name
	case len(item.Authors) > 0 && item.Authors[0] != nil:
		h.Author = item.Authors[0].Name
	default:
		h.Author = parsed.Title
	}

	raw := item.Content
	if raw == "" {
		raw = item.Description
	}
	h.Body = plainText(raw)
	h.ImageURL = imageOf(item, raw)

	return h
}
