package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthfeed/internal/types"
)

func articlePage(paragraphs int) string {
	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html><head><title>Sequel announced</title>`)
	sb.WriteString(`<meta property="og:image" content="https://img.example.com/og.jpg">`)
	sb.WriteString(`</head><body><nav><a href="/">Home</a> <a href="/news">News</a></nav><article><h1>Sequel announced</h1>`)
	for i := 0; i < paragraphs; i++ {
		sb.WriteString(`<p>The studio confirmed today that the second season is in production, `)
		sb.WriteString(`with the original director returning and a release window set for next spring. `)
		sb.WriteString(`Fans have waited years for this news and the trailer already has millions of views.</p>`)
	}
	sb.WriteString(`</article><footer>Copyright</footer></body></html>`)
	return sb.String()
}

func newArticleServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/story", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articlePage(6)))
	})
	mux.HandleFunc("/image", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestArticleReader_FillsThinBody(t *testing.T) {
	srv := newArticleServer(t)
	a := NewArticleReader(ArticleConfig{MinBodyWords: 10, MaxWords: 50}, srv.Client())

	got, err := a.Enrich(context.Background(), types.Headline{
		Title: "Sequel announced",
		Link:  srv.URL + "/story",
		Body:  "Big news.",
	})
	require.NoError(t, err)

	assert.Contains(t, got.Body, "second season is in production")
	assert.Len(t, strings.Fields(got.Body), 50)
	assert.Equal(t, "https://img.example.com/og.jpg", got.ImageURL)
}

func TestArticleReader_KeepsExistingImage(t *testing.T) {
	srv := newArticleServer(t)
	a := NewArticleReader(ArticleConfig{MinBodyWords: 10}, srv.Client())

	got, err := a.Enrich(context.Background(), types.Headline{
		Link:     srv.URL + "/story",
		ImageURL: "https://img.example.com/feed.jpg",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got.Body)
	assert.Equal(t, "https://img.example.com/feed.jpg", got.ImageURL)
}

func TestArticleReader_LongBodyUntouched(t *testing.T) {
	a := NewArticleReader(ArticleConfig{MinBodyWords: 3}, nil)

	// No request is made, so the unreachable link never matters.
	h := types.Headline{Link: "http://127.0.0.1:1/story", Body: "already plenty of words"}
	got, err := a.Enrich(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestArticleReader_Errors(t *testing.T) {
	srv := newArticleServer(t)
	a := NewArticleReader(ArticleConfig{}, srv.Client())

	for name, link := range map[string]string{
		"not html":     srv.URL + "/image",
		"bad status":   srv.URL + "/gone",
		"relative url": "/story",
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			h := types.Headline{Title: "x", Link: link, Body: "thin"}
			got, err := a.Enrich(context.Background(), h)
			assert.Error(t, err)
			assert.Equal(t, h, got, "headline is returned unchanged on error")
		})
	}
}
