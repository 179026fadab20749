package perception

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthfeed/internal/config"
	"synthfeed/internal/media"
)

type fakeGemini struct {
	calls    atomic.Int32
	failures int32 // number of leading 429s

	mu       sync.Mutex
	lastBody map[string]interface{}
	lastPath string
	lastKey  string
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := f.calls.Add(1)
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.lastPath = r.URL.Path
	f.lastKey = r.Header.Get("x-goog-api-key")
	f.lastBody = nil
	_ = json.Unmarshal(body, &f.lastBody)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if n <= f.failures {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"slow down","status":"RESOURCE_EXHAUSTED"}}`))
		return
	}
	_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"[{\"author\":\"Kai\"}]"}]}}]}`))
}

func newTestClient(t *testing.T, fake *fakeGemini) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := DefaultGeminiConfig("test-key")
	cfg.BaseURL = srv.URL
	cfg.Timeout = 5 * time.Second
	cfg.HTTPClient = srv.Client()

	c, err := NewGeminiClient(context.Background(), cfg)
	require.NoError(t, err)
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func TestGeminiClient_Generate(t *testing.T) {
	fake := &fakeGemini{}
	c := newTestClient(t, fake)

	out, err := c.Generate(context.Background(), Request{
		System: "be terse",
		Prompt: "write comments",
		Image:  &media.Image{Data: []byte{1, 2, 3}, MIMEType: "image/jpeg"},
		History: []Turn{
			{Role: RoleUser, Text: "hi"},
			{Role: RoleModel, Text: "hello"},
		},
		JSON: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"author":"Kai"}]`, out)

	fake.mu.Lock()
	defer fake.mu.Unlock()

	assert.True(t, strings.HasSuffix(fake.lastPath, "models/gemini-2.5-flash-lite:generateContent"), fake.lastPath)
	assert.Equal(t, "test-key", fake.lastKey)

	contents, ok := fake.lastBody["contents"].([]interface{})
	require.True(t, ok, "contents missing: %v", fake.lastBody)
	require.Len(t, contents, 3)
	last := contents[2].(map[string]interface{})
	assert.Equal(t, "user", last["role"])
	assert.Len(t, last["parts"], 2, "text and inline image")
	assert.Equal(t, "model", contents[1].(map[string]interface{})["role"])

	gen, ok := fake.lastBody["generationConfig"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "application/json", gen["responseMimeType"])

	sys, ok := fake.lastBody["systemInstruction"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, sys["parts"].([]interface{})[0].(map[string]interface{})["text"], "be terse")
}

func TestGeminiClient_RetriesRateLimit(t *testing.T) {
	fake := &fakeGemini{failures: 2}
	c := newTestClient(t, fake)

	out, err := c.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.EqualValues(t, 3, fake.calls.Load())
}

func TestGeminiClient_GivesUp(t *testing.T) {
	fake := &fakeGemini{failures: 100}
	c := newTestClient(t, fake)

	_, err := c.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.EqualValues(t, 4, fake.calls.Load())
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), DefaultGeminiConfig(""))
	assert.Error(t, err)
}

func TestNewGenerator(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.APIKey = "k"
	cfg.LLM.Model = "gemini-2.5-pro"

	g, err := NewGenerator(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "gemini:gemini-2.5-pro", g.Name())

	cfg.LLM.Provider = "ollama"
	_, err = NewGenerator(context.Background(), cfg)
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	s := NewStatic("one", "two")
	ctx := context.Background()

	for _, want := range []string{"one", "two", "two"} {
		got, err := s.Generate(ctx, Request{Prompt: want})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Len(t, s.Requests(), 3)

	_, err := NewStatic().Generate(ctx, Request{})
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Generate(cancelled, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resp.txt")
	require.NoError(t, os.WriteFile(path, []byte("```json\n[]\n```"), 0644))

	s, err := NewStaticFromFile(path)
	require.NoError(t, err)
	got, err := s.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "```json\n[]\n```", got)

	_, err = NewStaticFromFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
