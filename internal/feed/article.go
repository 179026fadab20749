package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"synthfeed/internal/logging"
	"synthfeed/internal/types"

	readability "github.com/go-shiori/go-readability"
)

const maxArticleBytes = 5 << 20

// ArticleConfig configures story-text enrichment.
type ArticleConfig struct {
	// MinBodyWords is the entry body length below which the linked page is read.
	MinBodyWords int
	// MaxWords caps the extracted text.
	MaxWords  int
	UserAgent string
	Timeout   time.Duration
}

// ArticleReader fills thin headline bodies from the linked page.
type ArticleReader struct {
	cfg    ArticleConfig
	client *http.Client
}

// NewArticleReader creates an ArticleReader. A nil client uses one with cfg.Timeout.
func NewArticleReader(cfg ArticleConfig, client *http.Client) *ArticleReader {
	if cfg.MinBodyWords <= 0 {
		cfg.MinBodyWords = 40
	}
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = 600
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &ArticleReader{cfg: cfg, client: client}
}

// Enrich returns h with Body replaced by the page's readable text when the
// feed body is shorter than MinBodyWords. The page image fills ImageURL when
// the entry had none.
func (a *ArticleReader) Enrich(ctx context.Context, h types.Headline) (types.Headline, error) {
	if len(strings.Fields(h.Body)) >= a.cfg.MinBodyWords {
		return h, nil
	}
	pageURL, err := url.Parse(h.Link)
	if err != nil || pageURL.Scheme == "" || pageURL.Host == "" {
		return h, fmt.Errorf("headline link is not an absolute URL: %q", h.Link)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.Link, nil)
	if err != nil {
		return h, fmt.Errorf("failed to create request: %w", err)
	}
	if a.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", a.cfg.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := a.client.Do(req)
	if err != nil {
		return h, fmt.Errorf("failed to fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return h, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return h, fmt.Errorf("article is %s, not HTML", ct)
	}

	art, err := readability.FromReader(io.LimitReader(resp.Body, maxArticleBytes), pageURL)
	if err != nil {
		return h, fmt.Errorf("readability extract: %w", err)
	}

	words := strings.Fields(art.TextContent)
	if len(words) <= len(strings.Fields(h.Body)) {
		logging.FeedDebug("Article %s added nothing over the feed body", h.Link)
		return h, nil
	}
	if len(words) > a.cfg.MaxWords {
		words = words[:a.cfg.MaxWords]
	}

	h.Body = strings.Join(words, " ")
	if h.ImageURL == "" && isRemote(art.Image) {
		h.ImageURL = art.Image
	}
	logging.Feed("Read %d words of story text from %s", len(words), h.Link)
	return h, nil
}
