package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthfeed/internal/config"
	"synthfeed/internal/store"
)

const cannedThread = "```json\n" + `[
  {"author": "Kai", "comment": "peak fiction", "upvotes": 120, "replies": [
    {"author": "Mina", "comment": "ratio", "upvotes": 7, "replies": []}
  ]},
  {"author": "Rex", "comment": "mid", "upvo`

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	// Flag-bound globals survive between Execute calls.
	dryRunFile, watchHistory, printExample = "", false, false
	archiveStatus, archiveLimit, chatPersona = "", 20, ""

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

type workspace struct {
	dir     string
	cfgPath string
	cfg     *config.Config
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>News</title>
<item><title>Sequel announced</title><link>https://example.com/1</link><description>Season two.</description></item>
</channel></rss>`))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	c := config.DefaultConfig()
	c.Feeds = []string{srv.URL}
	c.Personas.Path = filepath.Join(dir, "personas.yml")
	c.Storage.HistoryPath = filepath.Join(dir, "history.json")
	c.Storage.ArchivePath = filepath.Join(dir, "archive.db")
	c.Render.OutputPath = filepath.Join(dir, "site", "index.html")
	c.Media.Enabled = false
	c.Logging.Dir = filepath.Join(dir, "logs")

	ws := &workspace{dir: dir, cfgPath: filepath.Join(dir, "synthfeed.yaml"), cfg: c}
	require.NoError(t, c.Save(ws.cfgPath))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "canned.txt"), []byte(cannedThread), 0644))
	return ws
}

func (ws *workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(t, "", append([]string{"--config", ws.cfgPath}, args...)...)
}

func TestSanitizeCommand_Stdin(t *testing.T) {
	out, err := execute(t, cannedThread, "--config", filepath.Join(t.TempDir(), "none.yaml"), "sanitize", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"author": "Kai"`)
	assert.Contains(t, out, `"comment": "ratio"`)
	assert.NotContains(t, out, "Rex")
}

func TestSanitizeCommand_KeepsMarkupCharacters(t *testing.T) {
	in := `[{"author":"Kai","comment":"<b>this & that</b>","upvotes":1,"replies":[]}]`
	out, err := execute(t, in, "--config", filepath.Join(t.TempDir(), "none.yaml"), "sanitize", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"comment": "<b>this & that</b>"`)
	assert.NotContains(t, out, `\u003c`)
}

func TestSanitizeCommand_Unrecoverable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("Sorry, no."), 0644))

	_, err := execute(t, "", "--config", filepath.Join(t.TempDir(), "none.yaml"), "sanitize", path)
	assert.Error(t, err)
}

func TestRunCommand_RequiresKey(t *testing.T) {
	ws := newWorkspace(t)
	_, err := ws.run(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestRunCommand_DryRunPipeline(t *testing.T) {
	ws := newWorkspace(t)
	canned := filepath.Join(ws.dir, "canned.txt")

	out, err := ws.run(t, "run", "--dry-run", canned)
	require.NoError(t, err)
	assert.Contains(t, out, "Sequel announced")
	assert.Contains(t, out, "truncation")

	page, err := os.ReadFile(ws.cfg.Render.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "peak fiction")

	// The only headline is used now.
	out, err = ws.run(t, "run", "--dry-run", canned)
	require.NoError(t, err)
	assert.Contains(t, out, "Skipped")

	out, err = ws.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Sequel announced")

	out, err = ws.run(t, "archive", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ok=1 skipped=1 failed=0")

	out, err = ws.run(t, "archive", "list", "--status", "skipped")
	require.NoError(t, err)
	assert.NotContains(t, out, "Sequel announced")

	_, err = ws.run(t, "archive", "list", "--status", "bogus")
	assert.Error(t, err)

	cycles, err := store.LoadCycles(ws.cfg.Storage.HistoryPath)
	require.NoError(t, err)
	require.Len(t, cycles, 1)

	out, err = ws.run(t, "archive", "show", cycles[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Method:    truncation")
	assert.Contains(t, out, "--- raw response ---")

	_, err = ws.run(t, "archive", "show", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRenderCommand(t *testing.T) {
	ws := newWorkspace(t)

	out, err := ws.run(t, "render")
	require.NoError(t, err)
	assert.Contains(t, out, "Rendered")

	page, err := os.ReadFile(ws.cfg.Render.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Nothing generated yet.")
}

func TestPersonasCommand(t *testing.T) {
	ws := newWorkspace(t)

	out, err := ws.run(t, "personas")
	require.NoError(t, err)
	assert.Contains(t, out, "No personas")

	example, err := ws.run(t, "personas", "--example")
	require.NoError(t, err)
	assert.Contains(t, example, "character:")
	require.NoError(t, os.WriteFile(ws.cfg.Personas.Path, []byte(example), 0644))

	out, err = ws.run(t, "personas")
	require.NoError(t, err)
	assert.Contains(t, out, "Kai")
}

func TestHistoryCommand_Empty(t *testing.T) {
	ws := newWorkspace(t)
	out, err := ws.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No cycles yet.")
}
