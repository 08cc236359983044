package types

import "time"

// TaskStatus is the lifecycle state reported by the server for a download task.
type TaskStatus string

const (
	StatusPending     TaskStatus = "pending"
	StatusDownloading TaskStatus = "downloading"
	StatusCompleted   TaskStatus = "completed"
	StatusError       TaskStatus = "error"

	// Intermediate labels the server emits while post-processing.
	StatusProcessing     TaskStatus = "processing"
	StatusMerging        TaskStatus = "merging"
	StatusPostprocessing TaskStatus = "postprocessing"
)

// IsActive reports whether the task is being worked on by the server.
func (s TaskStatus) IsActive() bool {
	switch s {
	case StatusDownloading, StatusProcessing, StatusMerging, StatusPostprocessing:
		return true
	}
	return false
}

// IsTerminal reports whether no further progress is expected.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// TaskKind distinguishes immediate downloads from queue-managed ones.
type TaskKind string

const (
	KindSingle TaskKind = "single"
	KindQueued TaskKind = "queued"
)

// Task is one download unit as reported by the server.
type Task struct {
	ID           string     `json:"id"`
	Kind         TaskKind   `json:"kind,omitempty"`
	Status       TaskStatus `json:"status"`
	Progress     float64    `json:"progress"` // Percentage 0-100
	Speed        string     `json:"speed,omitempty"`
	Filename     string     `json:"filename,omitempty"`
	Error        string     `json:"error,omitempty"`
	CurrentVideo int        `json:"current_video,omitempty"`
	TotalVideos  int        `json:"total_videos,omitempty"`

	// Submission parameters echoed back by the queue endpoint.
	URL          string `json:"url,omitempty"`
	Title        string `json:"title,omitempty"`
	FormatID     string `json:"format_id,omitempty"`
	AudioOnly    bool   `json:"audio_only,omitempty"`
	DownloadPath string `json:"download_path,omitempty"`
}

// QueueSnapshot is a full read of the server-resident queue.
type QueueSnapshot struct {
	Total       int    `json:"total"`
	Pending     int    `json:"pending"`
	Downloading int    `json:"downloading"`
	Completed   int    `json:"completed"`
	Queue       []Task `json:"queue"`
}

// AllTerminal reports whether nothing in the snapshot is pending or in flight.
func (q *QueueSnapshot) AllTerminal() bool {
	if q.Pending > 0 || q.Downloading > 0 {
		return false
	}
	for _, t := range q.Queue {
		if !t.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// Find returns the task with the given id.
func (q *QueueSnapshot) Find(id string) (Task, bool) {
	for _, t := range q.Queue {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// DownloadRequest starts an immediate download.
type DownloadRequest struct {
	URL          string `json:"url" validate:"required,media_url"`
	FormatID     string `json:"format_id"`
	AudioOnly    bool   `json:"audio_only"`
	DownloadPath string `json:"download_path,omitempty"`
	PlaylistMode bool   `json:"playlist_mode"`
}

// QueueItem is one entry submitted to the server queue.
type QueueItem struct {
	URL          string `json:"url" validate:"required,media_url"`
	FormatID     string `json:"format_id"`
	AudioOnly    bool   `json:"audio_only"`
	DownloadPath string `json:"download_path,omitempty"`
	Title        string `json:"title,omitempty"`
}

// ItemFromTask rebuilds the submission parameters of a queued task.
// ok is false when the server did not echo the source URL.
func ItemFromTask(t Task) (QueueItem, bool) {
	if t.URL == "" {
		return QueueItem{}, false
	}
	return QueueItem{
		URL:          t.URL,
		FormatID:     t.FormatID,
		AudioOnly:    t.AudioOnly,
		DownloadPath: t.DownloadPath,
		Title:        t.Title,
	}, true
}

// Settings mirrors the server-side user preferences.
type Settings struct {
	DownloadPath        string `json:"download_path"`
	AppDownloadPath     string `json:"app_download_path"`
	ConcurrentDownloads int    `json:"concurrent_downloads"`
	DefaultQuality      string `json:"default_quality"`
}

// SettingsUpdate carries only the fields the caller wants to change.
type SettingsUpdate struct {
	DownloadPath        *string `json:"download_path,omitempty"`
	ConcurrentDownloads *int    `json:"concurrent_downloads,omitempty" validate:"omitempty,min=1,max=10"`
	DefaultQuality      *string `json:"default_quality,omitempty" validate:"omitempty,min=1"`
}

// IsEmpty reports whether the update changes nothing.
func (u SettingsUpdate) IsEmpty() bool {
	return u.DownloadPath == nil && u.ConcurrentDownloads == nil && u.DefaultQuality == nil
}

// DiscoveredVideo is one entry found while crawling a channel or playlist.
type DiscoveredVideo struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Duration  string `json:"duration"`
}

// ToolStatus is the server's report on its external tooling.
type ToolStatus struct {
	FFmpeg  bool   `json:"ffmpeg"`
	YtDlp   bool   `json:"yt-dlp"`
	Message string `json:"message"`
}

// HistoryEntry is one artifact saved on the local machine.
type HistoryEntry struct {
	ID       int64     `json:"id"`
	TaskID   string    `json:"task_id"`
	URL      string    `json:"url"`
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	SavedAt  time.Time `json:"saved_at"`
}
