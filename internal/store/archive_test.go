package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthfeed/internal/types"
)

func newArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := OpenArchive(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestArchive_RecordAndGet(t *testing.T) {
	t.Parallel()
	a := newArchive(t)

	comments := []types.Comment{{Author: "Kai", Body: "hi", Upvotes: types.IntPtr(1), Replies: []types.Comment{}}}
	at := &Attempt{
		Status:       StatusOK,
		Headline:     types.Headline{Title: "Sequel", Link: "https://x/1", ImageURL: "https://x/1.jpg"},
		Model:        "gemini:gemini-2.5-flash-lite",
		Method:       "truncation",
		CommentCount: 1,
		Comments:     comments,
		Raw:          `[{"author":"Kai","comment":"hi","upvotes":1,"replies":[]},{"auth`,
		Repaired:     "[{...}\n]",
		Duration:     1500 * time.Millisecond,
	}
	require.NoError(t, a.Record(at))
	require.NotEmpty(t, at.ID)
	require.False(t, at.Timestamp.IsZero())

	got, err := a.Get(at.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, at.Headline, got.Headline)
	assert.Equal(t, at.Raw, got.Raw)
	assert.Equal(t, at.Repaired, got.Repaired)
	assert.Equal(t, at.Duration, got.Duration)
	assert.WithinDuration(t, at.Timestamp, got.Timestamp, time.Millisecond)
	if diff := cmp.Diff(comments, got.Comments); diff != "" {
		t.Errorf("comments mismatch (-want +got):\n%s", diff)
	}
}

func TestArchive_GetMissing(t *testing.T) {
	t.Parallel()
	a := newArchive(t)

	_, err := a.Get("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestArchive_RejectsUnknownStatus(t *testing.T) {
	t.Parallel()
	a := newArchive(t)

	assert.Error(t, a.Record(&Attempt{Status: "maybe"}))
}

func TestArchive_ListAndCounts(t *testing.T) {
	t.Parallel()
	a := newArchive(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, st := range []Status{StatusOK, StatusFailed, StatusOK, StatusSkipped} {
		require.NoError(t, a.Record(&Attempt{
			Status:    st,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Headline:  types.Headline{Title: string(st)},
			Error:     map[bool]string{true: "boom"}[st == StatusFailed],
		}))
	}

	all, err := a.List(10, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, StatusSkipped, all[0].Status, "newest first")
	assert.Nil(t, all[0].Comments)

	failed, err := a.List(10, StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].Error)

	limited, err := a.List(1, StatusOK)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.True(t, limited[0].Timestamp.Equal(base.Add(2*time.Minute)))

	counts, err := a.Counts()
	require.NoError(t, err)
	assert.Equal(t, map[Status]int{StatusOK: 2, StatusFailed: 1, StatusSkipped: 1}, counts)
}

func TestArchive_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "archive.db")
	a, err := OpenArchive(path)
	require.NoError(t, err)
	require.NoError(t, a.Record(&Attempt{ID: "fixed", Status: StatusSkipped}))
	require.NoError(t, a.Close())

	b, err := OpenArchive(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	assert.Equal(t, path, b.Path())

	got, err := b.Get("fixed")
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, got.Status)
}
