package events

import (
	"encoding/json"
	"errors"

	"github.com/zen-downloader/zen/internal/engine/types"
)

// Fallback messages used when a terminal error event carries no text.
const (
	DefaultDownloadError  = "Download failed"
	DefaultDiscoveryError = "Discovery failed"
)

// ProgressMsg represents an intermediate progress update for a task
type ProgressMsg struct {
	TaskID       string
	Status       types.TaskStatus
	Progress     float64 // percentage 0-100
	Speed        string  // server formatted, e.g. "1.2MiB/s"
	CurrentVideo int     // playlist position, 0 when not a playlist
	TotalVideos  int
}

// DownloadCompleteMsg signals that the server finished producing the artifact
type DownloadCompleteMsg struct {
	TaskID   string
	Filename string
}

// DownloadErrorMsg signals that the task failed on the server
type DownloadErrorMsg struct {
	TaskID string
	Err    error
}

func (m DownloadErrorMsg) MarshalJSON() ([]byte, error) {
	type encoded struct {
		TaskID string `json:"task_id"`
		Err    string `json:"error,omitempty"`
	}
	out := encoded{TaskID: m.TaskID}
	if m.Err != nil {
		out.Err = m.Err.Error()
	}
	return json.Marshal(out)
}

func (m *DownloadErrorMsg) UnmarshalJSON(data []byte) error {
	var aux struct {
		TaskID string          `json:"task_id"`
		Err    json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.TaskID = aux.TaskID
	m.Err = nil
	if len(aux.Err) == 0 {
		return nil
	}

	var errStr string
	if err := json.Unmarshal(aux.Err, &errStr); err == nil {
		if errStr != "" {
			m.Err = errors.New(errStr)
		}
		return nil
	}

	raw := string(aux.Err)
	if raw != "" && raw != "null" {
		m.Err = errors.New(raw)
	}
	return nil
}

// SoftFailureMsg reports an artifact that could not be retrieved after the
// server marked the task completed. The task has already been reset.
type SoftFailureMsg struct {
	TaskID   string
	Filename string
	Err      error
}

// PlaylistDoneMsg is emitted instead of an artifact save when the server
// finished a playlist batch into its own download folder.
type PlaylistDoneMsg struct {
	TaskID string
	Notice string
}

// ArtifactSavedMsg is emitted once the artifact is on local disk.
type ArtifactSavedMsg struct {
	TaskID string
	Path   string
	Size   int64
}

// QueueSnapshotMsg carries a freshly reloaded queue
type QueueSnapshotMsg struct {
	Snapshot types.QueueSnapshot
	Expanded bool // queue panel open state after the reload
}

// DiscoveryVideoMsg is emitted for every video found during a crawl
type DiscoveryVideoMsg struct {
	SessionID string
	Video     types.DiscoveredVideo
	Count     int // running total including this video
}

// DiscoveryCompleteMsg ends a discovery session
type DiscoveryCompleteMsg struct {
	SessionID string
	Count     int
}

// DiscoveryErrorMsg ends a discovery session with a failure
type DiscoveryErrorMsg struct {
	SessionID string
	Err       error
}
