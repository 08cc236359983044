package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-downloader/zen/internal/engine/types"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestURLHash(t *testing.T) {
	h := URLHash("https://example.com/v")
	assert.Len(t, h, 16)
	assert.Equal(t, h, URLHash("https://example.com/v"))
	assert.NotEqual(t, h, URLHash("https://example.com/w"))
}

func TestStore_RecordAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"a.mp4", "b.mp4", "c.mp3"} {
		require.NoError(t, s.Record(ctx, types.HistoryEntry{
			TaskID:   "t" + name,
			URL:      "https://example.com/" + name,
			Filename: name,
			Path:     "/downloads/" + name,
			Size:     int64(100 * (i + 1)),
			SavedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c.mp3", all[0].Filename, "newest first")
	assert.Equal(t, int64(300), all[0].Size)
	assert.True(t, all[0].SavedAt.Equal(base.Add(2*time.Minute)))

	limited, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStore_FindByURLAndRemove(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, types.HistoryEntry{URL: "https://example.com/v", Filename: "v.mp4", Path: "/d/v.mp4"}))
	require.NoError(t, s.Record(ctx, types.HistoryEntry{URL: "https://example.com/other", Filename: "o.mp4", Path: "/d/o.mp4"}))

	found, err := s.FindByURL(ctx, "https://example.com/v")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "v.mp4", found[0].Filename)

	require.NoError(t, s.Remove(ctx, found[0].ID))
	found, err = s.FindByURL(ctx, "https://example.com/v")
	require.NoError(t, err)
	assert.Empty(t, found)

	assert.Error(t, s.Remove(ctx, 9999))
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), types.HistoryEntry{URL: "u", Filename: "f", Path: "p"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	entries, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
