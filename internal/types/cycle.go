package types

import (
	"strings"
	"time"
)

// Headline is a feed entry chosen as the subject of a generation cycle.
type Headline struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Body     string `json:"body"`
	Author   string `json:"author,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	// Feed is the URL of the feed the entry came from.
	Feed string `json:"feed,omitempty"`
}

// Key identifies the headline for reuse checks: the link, or the title when
// the entry has no link. It is empty when both are.
func (h Headline) Key() string {
	if h.Link != "" {
		return h.Link
	}
	if title := strings.TrimSpace(h.Title); title != "" {
		return "title:" + title
	}
	return ""
}

// Cycle is one persisted generation: a headline and its fabricated thread.
type Cycle struct {
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Headline  Headline  `json:"headline"`
	Comments  []Comment `json:"comments"`
	// Image is the path of the stored thumbnail, relative to the rendered page.
	Image string `json:"image,omitempty"`
}
