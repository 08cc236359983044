// Package download drives a single immediate download from submission to a
// saved artifact on the local machine.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/zen-downloader/zen/internal/core"
	"github.com/zen-downloader/zen/internal/engine/events"
	"github.com/zen-downloader/zen/internal/engine/stream"
	"github.com/zen-downloader/zen/internal/engine/types"
	"github.com/zen-downloader/zen/internal/session"
	"github.com/zen-downloader/zen/internal/utils"
	"github.com/zen-downloader/zen/internal/validation"
)

// PlaylistMarker prefixes the completed filename of a playlist batch. Such
// tasks have no single artifact to retrieve.
const PlaylistMarker = "playlist:"

var (
	// ErrArtifactUnavailable wraps any failure to retrieve or save the
	// artifact of a completed task.
	ErrArtifactUnavailable = errors.New("artifact unavailable")

	// ErrNotTracking is returned by Track when no download is attached.
	ErrNotTracking = errors.New("no download in progress")

	// ErrDetached is returned by Track when its channel was replaced by a
	// newer download.
	ErrDetached = errors.New("download detached by a newer task")
)

// TaskError is a failure reported by the server on the progress channel.
// Its message is the server's text.
type TaskError struct {
	TaskID  string
	Message string
}

func (e *TaskError) Error() string {
	return e.Message
}

// Verbatim marks the message for display as is.
func (e *TaskError) Verbatim() bool {
	return true
}

// Outcome is the result of a finished download.
type Outcome struct {
	TaskID   string
	Path     string // local path of the saved artifact
	Filename string
	Size     int64

	// Playlist batches report a notice instead of an artifact.
	Playlist bool
	Notice   string

	// SoftFailure is set when the task completed but its artifact could not
	// be retrieved or saved. It wraps ErrArtifactUnavailable.
	SoftFailure error
}

// Recorder keeps a local history of saved artifacts.
type Recorder interface {
	Record(ctx context.Context, entry types.HistoryEntry) error
}

// Controller runs immediate downloads against a Service. Only one download is
// tracked at a time; starting another detaches the previous one.
type Controller struct {
	svc      core.Service
	sess     *session.Session
	saver    Saver
	recorder Recorder
	events   chan<- any
	logger   *slog.Logger

	mu   sync.Mutex
	urls map[string]string
}

// Option configures a Controller.
type Option func(*Controller)

// WithEvents forwards every message to ch. Sends never block; messages are
// dropped when ch is full.
func WithEvents(ch chan<- any) Option {
	return func(c *Controller) {
		c.events = ch
	}
}

// WithRecorder records saved artifacts.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// NewController creates a controller sharing sess with the other components.
func NewController(svc core.Service, sess *session.Session, saver Saver, opts ...Option) *Controller {
	c := &Controller{
		svc:    svc,
		sess:   sess,
		saver:  saver,
		logger: slog.Default(),
		urls:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProgressPath is the push channel path of a task.
func ProgressPath(taskID string) string {
	return "/api/progress/" + taskID
}

func progressDecoder(taskID string) stream.Decoder {
	return func(data []byte) (any, bool, error) {
		return events.DecodeProgress(taskID, data)
	}
}

// Start submits req and attaches its progress channel. A server-reported
// error is returned as *core.ServerError and nothing is attached. When the
// channel cannot be opened the server-side task is cleaned up.
func (c *Controller) Start(ctx context.Context, req types.DownloadRequest) (string, error) {
	req.URL = strings.TrimSpace(req.URL)
	if err := validation.Struct(req); err != nil {
		return "", err
	}

	taskID, err := c.svc.StartDownload(ctx, req)
	if err != nil {
		return "", err
	}

	sub, err := stream.Subscribe(ctx, c.svc, taskID, ProgressPath(taskID), progressDecoder(taskID))
	if err != nil {
		c.cleanup(ctx, taskID)
		return taskID, fmt.Errorf("subscribe to progress of %s: %w", taskID, err)
	}

	c.mu.Lock()
	c.urls[taskID] = req.URL
	c.mu.Unlock()

	c.sess.SetTaskID(taskID)
	c.sess.ProgressSlot.Attach(sub)
	c.logger.Debug("download started", "task_id", taskID, "url", req.URL)
	return taskID, nil
}

// Track consumes the attached progress channel until a terminal event.
//
// A completed task yields an Outcome. A failed task yields a *TaskError.
// A channel that ends early yields stream.ErrDropped and leaves the task
// state as is.
func (c *Controller) Track(ctx context.Context) (*Outcome, error) {
	sub := c.sess.ProgressSlot.Active()
	if sub == nil {
		return nil, ErrNotTracking
	}
	taskID := sub.ID()

	stop := context.AfterFunc(ctx, func() { _ = sub.Close() })
	defer stop()

	for {
		msg, err := sub.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, ErrDetached
			}
			c.logger.Warn("progress channel ended early", "task_id", taskID, "error", err)
			return nil, err
		}

		c.emit(msg)

		switch m := msg.(type) {
		case events.DownloadCompleteMsg:
			return c.complete(ctx, taskID, m.Filename), nil
		case events.DownloadErrorMsg:
			c.sess.ClearTask(taskID)
			c.forget(taskID)
			return nil, &TaskError{TaskID: taskID, Message: m.Err.Error()}
		}
	}
}

// Run starts req and tracks it to the end.
func (c *Controller) Run(ctx context.Context, req types.DownloadRequest) (*Outcome, error) {
	if _, err := c.Start(ctx, req); err != nil {
		return nil, err
	}
	return c.Track(ctx)
}

// Reset drops the tracked download and asks the server to clean it up.
func (c *Controller) Reset(ctx context.Context) {
	taskID := c.sess.ResetTask()
	if taskID == "" {
		return
	}
	c.forget(taskID)
	c.cleanup(ctx, taskID)
}

func (c *Controller) complete(ctx context.Context, taskID, filename string) *Outcome {
	out := &Outcome{TaskID: taskID}

	if strings.HasPrefix(filename, PlaylistMarker) {
		out.Playlist = true
		out.Notice = playlistNotice(filename)
		c.emit(events.PlaylistDoneMsg{TaskID: taskID, Notice: out.Notice})
		c.reset(ctx, taskID)
		return out
	}

	path, name, size, err := c.retrieve(ctx, taskID, filename)
	if err != nil {
		out.SoftFailure = fmt.Errorf("%w: %v", ErrArtifactUnavailable, err)
		c.logger.Warn("could not retrieve artifact", "task_id", taskID, "error", err)
		c.emit(events.SoftFailureMsg{TaskID: taskID, Filename: filename, Err: out.SoftFailure})
	} else {
		out.Path, out.Filename, out.Size = path, name, size
		c.emit(events.ArtifactSavedMsg{TaskID: taskID, Path: path, Size: size})
		c.record(ctx, taskID, name, path, size)
	}

	c.reset(ctx, taskID)
	return out
}

func (c *Controller) retrieve(ctx context.Context, taskID, filename string) (path, name string, size int64, err error) {
	art, err := c.svc.FetchArtifact(ctx, taskID)
	if err != nil {
		return "", "", 0, err
	}
	defer func() { _ = art.Body.Close() }()

	name = utils.PickFilename(filename, art.Filename)
	path, size, err = c.saver.Save(name, art.Body)
	if err != nil {
		return "", name, size, err
	}
	return path, name, size, nil
}

func (c *Controller) record(ctx context.Context, taskID, name, path string, size int64) {
	if c.recorder == nil {
		return
	}
	c.mu.Lock()
	url := c.urls[taskID]
	c.mu.Unlock()

	err := c.recorder.Record(ctx, types.HistoryEntry{
		TaskID:   taskID,
		URL:      url,
		Filename: name,
		Path:     path,
		Size:     size,
		SavedAt:  time.Now(),
	})
	if err != nil {
		c.logger.Warn("could not record history", "task_id", taskID, "error", err)
	}
}

// reset clears task state if taskID is still tracked, then cleans up.
func (c *Controller) reset(ctx context.Context, taskID string) {
	c.sess.ClearTask(taskID)
	c.forget(taskID)
	c.cleanup(ctx, taskID)
}

func (c *Controller) cleanup(ctx context.Context, taskID string) {
	if err := c.svc.Cleanup(context.WithoutCancel(ctx), taskID); err != nil {
		c.logger.Debug("cleanup failed", "task_id", taskID, "error", err)
	}
}

func (c *Controller) forget(taskID string) {
	c.mu.Lock()
	delete(c.urls, taskID)
	c.mu.Unlock()
}

func (c *Controller) emit(msg any) {
	if c.events == nil {
		return
	}
	select {
	case c.events <- msg:
	default:
	}
}

func playlistNotice(filename string) string {
	detail := strings.TrimSpace(strings.TrimPrefix(filename, PlaylistMarker))
	if detail == "" {
		return "Playlist download complete"
	}
	return "Playlist download complete: " + detail
}
