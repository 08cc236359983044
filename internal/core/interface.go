package core

import (
	"context"
	"io"

	"github.com/zen-downloader/zen/internal/engine/types"
)

// Service is the request/response contract of the download server.
// RemoteService is the HTTP implementation; components depend on this
// interface so tests can swap the transport.
type Service interface {
	// Info fetches metadata for a video or playlist URL.
	Info(ctx context.Context, url string) (*types.MediaInfo, error)

	// Check reports whether the server's external tools are installed.
	Check(ctx context.Context) (*types.ToolStatus, error)

	// StartDownload submits an immediate download and returns its task id.
	StartDownload(ctx context.Context, req types.DownloadRequest) (string, error)

	// FetchArtifact retrieves the produced file of a completed task.
	FetchArtifact(ctx context.Context, taskID string) (*Artifact, error)

	// Cleanup asks the server to drop a task and its file.
	Cleanup(ctx context.Context, taskID string) error

	// GetSettings returns the server's current preferences.
	GetSettings(ctx context.Context) (*types.Settings, error)

	// SaveSettings applies a partial update and returns the resulting settings.
	SaveSettings(ctx context.Context, update types.SettingsUpdate) (*types.Settings, error)

	// Queue returns the full queue state.
	Queue(ctx context.Context) (*types.QueueSnapshot, error)

	// AddToQueue submits one queue item and returns its task id.
	AddToQueue(ctx context.Context, item types.QueueItem) (string, error)

	// StartQueue tells the server to begin draining pending tasks.
	StartQueue(ctx context.Context) error

	// RemoveFromQueue deletes one task from the queue.
	RemoveFromQueue(ctx context.Context, taskID string) error

	// ClearQueue removes every task of the given kind, e.g. "completed".
	ClearQueue(ctx context.Context, kind string) error

	// StartDiscovery begins crawling a channel or playlist URL.
	StartDiscovery(ctx context.Context, url string, maxVideos int) (string, error)

	// OpenStream opens a push channel body for a server path.
	OpenStream(ctx context.Context, path string) (io.ReadCloser, error)
}

// Artifact is a produced file streamed back from the server.
type Artifact struct {
	Body        io.ReadCloser
	Filename    string // from Content-Disposition, may be empty
	ContentType string
	Size        int64 // -1 when unknown
}
