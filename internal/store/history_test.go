package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthfeed/internal/types"
)

func cycle(link string) types.Cycle {
	return types.Cycle{
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Headline:  types.Headline{Title: "t " + link, Link: link},
		Comments: []types.Comment{
			{Author: "Kai", Body: "first", Upvotes: types.IntPtr(3), Replies: []types.Comment{}},
		},
	}
}

func TestOpenHistory_Missing(t *testing.T) {
	t.Parallel()

	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.json"), 10)
	require.NoError(t, err)
	assert.Zero(t, h.Len())
	assert.Empty(t, h.Cycles())
	assert.False(t, h.Seen("x"))
}

func TestHistory_PrependNewestFirst(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "history.json")
	h, err := OpenHistory(path, 0)
	require.NoError(t, err)

	require.NoError(t, h.Prepend(cycle("a")))
	require.NoError(t, h.Prepend(cycle("b")))

	got := h.Cycles()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Headline.Link)
	assert.True(t, h.Seen("a"))
	assert.False(t, h.Seen(""))

	reopened, err := OpenHistory(path, 0)
	require.NoError(t, err)
	assert.Equal(t, got, reopened.Cycles())
}

func TestHistory_SeenWithoutLink(t *testing.T) {
	t.Parallel()

	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.json"), 0)
	require.NoError(t, err)
	require.NoError(t, h.Prepend(types.Cycle{Headline: types.Headline{Title: "No link here"}}))

	used := types.Headline{Title: "No link here"}
	assert.True(t, h.Seen(used.Key()))
	assert.False(t, h.Seen(types.Headline{Title: "Another"}.Key()))
	assert.False(t, h.Seen(types.Headline{}.Key()))
}

func TestHistory_Cap(t *testing.T) {
	t.Parallel()

	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.json"), 2)
	require.NoError(t, err)
	for _, l := range []string{"a", "b", "c"} {
		require.NoError(t, h.Prepend(cycle(l)))
	}

	assert.Equal(t, 2, h.Len())
	assert.False(t, h.Seen("a"), "trimmed cycles are forgotten")
	assert.True(t, h.Seen("c"))
}

func TestHistory_FileShape(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")
	h, err := OpenHistory(path, 0)
	require.NoError(t, err)
	require.NoError(t, h.Prepend(cycle("a")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{
		"timestamp": "2025-01-02T03:04:05Z",
		"headline": {"title": "t a", "link": "a", "body": ""},
		"comments": [{"author": "Kai", "comment": "first", "upvotes": 3, "replies": []}]
	}]`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLoadCycles_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadCycles(path)
	assert.Error(t, err)
	_, err = OpenHistory(path, 0)
	assert.Error(t, err)
}

func TestLoadCycles_EmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	got, err := LoadCycles(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteFileAtomic_Replaces(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.html")
	require.NoError(t, WriteFileAtomic(path, []byte("one")))
	require.NoError(t, WriteFileAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}
