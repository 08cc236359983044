package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-downloader/zen/internal/core"
	"github.com/zen-downloader/zen/internal/engine/types"
	"github.com/zen-downloader/zen/internal/session"
	"github.com/zen-downloader/zen/internal/testutil"
)

func newStore(t *testing.T, opts ...testutil.BackendOption) (*Store, *testutil.Backend) {
	t.Helper()
	backend := testutil.NewBackendT(t, opts...)
	return NewStore(core.NewRemoteService(backend.URL(), ""), session.New()), backend
}

func TestSave_CacheEqualsServerEcho(t *testing.T) {
	s, backend := newStore(t, testutil.WithSettings(types.Settings{
		DownloadPath:        "/srv/videos",
		AppDownloadPath:     "/app/downloads",
		ConcurrentDownloads: 1,
		DefaultQuality:      "1080p",
	}))

	n := 3
	got, err := s.Save(context.Background(), types.SettingsUpdate{ConcurrentDownloads: &n})
	require.NoError(t, err)

	// Fields absent from the update come from the server, not from defaults
	want := backend.Settings()
	assert.Equal(t, want, got)
	assert.Equal(t, 3, got.ConcurrentDownloads)
	assert.Equal(t, "/srv/videos", got.DownloadPath)

	cached, ok := s.Cached()
	require.True(t, ok)
	assert.Equal(t, want, cached)
}

func TestLoad_ReplacesCache(t *testing.T) {
	s, _ := newStore(t, testutil.WithBareSettings(), testutil.WithSettings(types.Settings{DefaultQuality: "720p"}))

	_, ok := s.Cached()
	assert.False(t, ok)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "720p", got.DefaultQuality)

	cached, _ := s.Cached()
	assert.Equal(t, got, cached)
}

func TestSave_Rejects(t *testing.T) {
	s, backend := newStore(t)

	_, err := s.Save(context.Background(), types.SettingsUpdate{})
	assert.ErrorIs(t, err, ErrNothingToSave)

	n := 42
	_, err = s.Save(context.Background(), types.SettingsUpdate{ConcurrentDownloads: &n})
	assert.EqualError(t, err, "concurrent_downloads must be at most 10")
	assert.Empty(t, backend.Requests())
}
