package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-downloader/zen/internal/engine/types"
	"github.com/zen-downloader/zen/internal/testutil"
)

func newService(t *testing.T, opts ...testutil.BackendOption) (*RemoteService, *testutil.Backend) {
	t.Helper()
	backend := testutil.NewBackendT(t, opts...)
	return NewRemoteService(backend.URL()+"/", ""), backend
}

// =============================================================================
// Request plumbing
// =============================================================================

func TestRemoteService_Headers(t *testing.T) {
	backend := testutil.NewBackendT(t, testutil.WithToken("tok"))
	svc := NewRemoteService(backend.URL(), "tok")

	_, err := svc.Check(context.Background())
	require.NoError(t, err)

	reqs := backend.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer tok", reqs[0].Header.Get("Authorization"))

	_, err = uuid.Parse(reqs[0].Header.Get("X-Request-ID"))
	assert.NoError(t, err, "X-Request-ID must be a uuid")
}

func TestRemoteService_Unauthorized(t *testing.T) {
	backend := testutil.NewBackendT(t, testutil.WithToken("tok"))
	svc := NewRemoteService(backend.URL(), "wrong")

	_, err := svc.Queue(context.Background())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "Unauthorized", statusErr.Body)
}

func TestRemoteService_ErrorField(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"400 with error field", http.StatusBadRequest},
		{"200 with error field", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, backend := newService(t)
			backend.Fail(http.MethodPost, "/api/queue", testutil.Failure{
				Status: tt.status,
				Body:   `{"error":"invalid url"}`,
			})

			_, err := svc.AddToQueue(context.Background(), types.QueueItem{URL: "https://example.com/v"})
			var serverErr *ServerError
			require.ErrorAs(t, err, &serverErr)
			assert.Equal(t, "invalid url", serverErr.Message)
			assert.Equal(t, "invalid url", UserMessage(err, "Failed"))
		})
	}
}

func TestRemoteService_TransportError(t *testing.T) {
	svc := NewRemoteService("http://127.0.0.1:1", "")

	_, err := svc.Queue(context.Background())
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "GET /api/queue", transportErr.Op)
	assert.Equal(t, "Failed to load queue", UserMessage(err, "Failed to load queue"))
}

// =============================================================================
// Endpoints
// =============================================================================

func TestRemoteService_Info(t *testing.T) {
	svc, backend := newService(t)
	backend.SetInfo("https://example.com/v", types.MediaInfo{
		Type:  types.MediaVideo,
		Title: "Clip",
		Formats: []types.Format{
			{FormatID: "22", Ext: "mp4", Resolution: "720p"},
			{FormatID: "136", Ext: "mp4", Resolution: "720p"},
		},
	})

	info, err := svc.Info(context.Background(), "  https://example.com/v ")
	require.NoError(t, err)
	assert.Equal(t, "Clip", info.Title)
	assert.Len(t, info.UniqueFormats(), 1)
}

func TestRemoteService_InfoTimeout(t *testing.T) {
	backend := testutil.NewBackendT(t, testutil.WithInfoLatency(2*time.Second))
	svc := NewRemoteService(backend.URL(), "", WithInfoTimeout(50*time.Millisecond))

	_, err := svc.Info(context.Background(), "https://example.com/slow")
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, TimeoutMessage, UserMessage(err, "Failed to fetch video info"))
}

func TestRemoteService_StartDownload(t *testing.T) {
	svc, backend := newService(t)

	id, err := svc.StartDownload(context.Background(), types.DownloadRequest{
		URL:       "https://example.com/v",
		FormatID:  "best",
		AudioOnly: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(backend.LastBody(http.MethodPost, "/api/download"), &sent))
	assert.Equal(t, "best", sent["format_id"])
	assert.Equal(t, true, sent["audio_only"])
	assert.Equal(t, false, sent["playlist_mode"])
}

func TestRemoteService_FetchArtifact(t *testing.T) {
	svc, backend := newService(t)
	backend.SetArtifact("t1", "Clip.mp4", "video/mp4", []byte("payload"))

	art, err := svc.FetchArtifact(context.Background(), "t1")
	require.NoError(t, err)
	defer func() { _ = art.Body.Close() }()

	assert.Equal(t, "Clip.mp4", art.Filename)
	assert.Equal(t, "video/mp4", art.ContentType)
	assert.Equal(t, int64(7), art.Size)

	data, err := io.ReadAll(art.Body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestRemoteService_FetchArtifactMissing(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.FetchArtifact(context.Background(), "nope")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestRemoteService_InfoOutlivesRequestTimeout(t *testing.T) {
	backend := testutil.NewBackendT(t, testutil.WithInfoLatency(500*time.Millisecond))
	backend.SetInfo("https://example.com/slow", types.MediaInfo{Type: types.MediaPlaylist, Title: "Long list"})
	svc := NewRemoteService(backend.URL(), "",
		WithRequestTimeout(200*time.Millisecond),
		WithInfoTimeout(2*time.Second),
	)

	info, err := svc.Info(context.Background(), "https://example.com/slow")
	require.NoError(t, err)
	assert.Equal(t, "Long list", info.Title)
}

func TestRemoteService_FetchArtifactSlowBody(t *testing.T) {
	const chunks = 5
	chunk := strings.Repeat("x", 1024)
	srv := testutil.NewHTTPServerT(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for i := 0; i < chunks; i++ {
			if _, err := io.WriteString(w, chunk); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			time.Sleep(100 * time.Millisecond)
		}
	}))
	defer srv.Close()

	svc := NewRemoteService(srv.URL, "", WithRequestTimeout(200*time.Millisecond))
	art, err := svc.FetchArtifact(context.Background(), "t1")
	require.NoError(t, err)
	defer func() { _ = art.Body.Close() }()

	n, err := io.Copy(io.Discard, art.Body)
	require.NoError(t, err)
	assert.Equal(t, int64(chunks*len(chunk)), n)
}

func TestRemoteService_FetchArtifactCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := testutil.NewHTTPServerT(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	svc := NewRemoteService(srv.URL, "")
	art, err := svc.FetchArtifact(ctx, "t1")
	require.NoError(t, err)
	defer func() { _ = art.Body.Close() }()

	time.AfterFunc(50*time.Millisecond, cancel)
	_, err = io.Copy(io.Discard, art.Body)
	assert.Error(t, err)
}

func TestRemoteService_RequestTimeoutOption(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	svc := NewRemoteService("http://127.0.0.1:1", "",
		WithHTTPClient(shared),
		WithRequestTimeout(5*time.Second),
	)

	if shared.Timeout != time.Minute {
		t.Errorf("shared client timeout changed to %v", shared.Timeout)
	}
	if svc.Client.Timeout != 5*time.Second {
		t.Errorf("service client timeout = %v, want 5s", svc.Client.Timeout)
	}
	if svc.StreamClient.Timeout != 0 {
		t.Errorf("stream client has a timeout: %v", svc.StreamClient.Timeout)
	}

	plain := NewRemoteService("http://127.0.0.1:1", "")
	assert.Equal(t, DefaultRequestTimeout, plain.Client.Timeout)
}

func TestRemoteService_Settings(t *testing.T) {
	for _, bare := range []bool{false, true} {
		var opts []testutil.BackendOption
		if bare {
			opts = append(opts, testutil.WithBareSettings())
		}
		svc, _ := newService(t, append(opts, testutil.WithSettings(types.Settings{
			DownloadPath:        "/data",
			ConcurrentDownloads: 2,
			DefaultQuality:      "720p",
		}))...)

		settings, err := svc.GetSettings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "/data", settings.DownloadPath, "bare=%v", bare)
		assert.Equal(t, 2, settings.ConcurrentDownloads, "bare=%v", bare)
	}
}

func TestRemoteService_SaveSettingsEcho(t *testing.T) {
	svc, backend := newService(t)

	n := 3
	settings, err := svc.SaveSettings(context.Background(), types.SettingsUpdate{ConcurrentDownloads: &n})
	require.NoError(t, err)
	assert.Equal(t, backend.Settings(), *settings)
	assert.JSONEq(t, `{"concurrent_downloads":3}`, string(backend.LastBody(http.MethodPost, "/api/settings")))
}

func TestRemoteService_QueueOperations(t *testing.T) {
	svc, backend := newService(t)
	ctx := context.Background()

	id, err := svc.AddToQueue(ctx, types.QueueItem{URL: "https://example.com/a", Title: "A"})
	require.NoError(t, err)
	_, err = svc.AddToQueue(ctx, types.QueueItem{URL: "https://example.com/b"})
	require.NoError(t, err)

	snap, err := svc.Queue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, 2, snap.Pending)

	require.NoError(t, svc.StartQueue(ctx))
	assert.Equal(t, 1, backend.QueueStarts())

	require.NoError(t, svc.RemoveFromQueue(ctx, id))
	assert.Equal(t, 1, backend.Count(http.MethodDelete, "/api/queue/"+id))

	backend.SetAllStatus(types.StatusCompleted)
	require.NoError(t, svc.ClearQueue(ctx, "completed"))
	assert.JSONEq(t, `{"type":"completed"}`, string(backend.LastBody(http.MethodPost, "/api/queue/clear")))
	assert.Empty(t, backend.Tasks())
}

func TestRemoteService_StartDiscovery(t *testing.T) {
	svc, backend := newService(t)

	id, err := svc.StartDiscovery(context.Background(), "https://example.com/@chan", 25)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.JSONEq(t, `{"url":"https://example.com/@chan","max_videos":25}`,
		string(backend.LastBody(http.MethodPost, "/api/discover")))
}

func TestRemoteService_OpenStream(t *testing.T) {
	svc, backend := newService(t)
	backend.ScriptProgress("t1", `{"status":"completed","filename":"a.mp4"}`)

	body, err := svc.OpenStream(context.Background(), "/api/progress/t1")
	require.NoError(t, err)
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `data: {"status":"completed","filename":"a.mp4"}`)

	reqs := backend.Requests()
	assert.Equal(t, "text/event-stream", reqs[len(reqs)-1].Header.Get("Accept"))
}

func TestRemoteService_OpenStreamStatus(t *testing.T) {
	svc, backend := newService(t)
	backend.Fail(http.MethodGet, "/api/progress/t1", testutil.Failure{Status: http.StatusNotFound, Body: "gone"})

	_, err := svc.OpenStream(context.Background(), "/api/progress/t1")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
