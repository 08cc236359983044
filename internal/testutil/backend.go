// Package testutil provides test doubles for the zen download client.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zen-downloader/zen/internal/engine/types"
)

// Request is one call recorded by Backend.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Failure is a canned error response for a route.
type Failure struct {
	Status int
	Body   string // written verbatim, e.g. `{"error":"invalid url"}`
}

type artifact struct {
	filename    string
	contentType string
	data        []byte
}

type script struct {
	frames []string
	hold   bool // keep the connection open after the last frame
}

// Backend is an in-memory download server speaking the client's HTTP API.
// Tasks never advance on their own; tests drive state with SetStatus and
// scripted push frames.
type Backend struct {
	Server *httptest.Server

	Token       string
	InfoLatency time.Duration

	mu          sync.Mutex
	requests    []Request
	failures    map[string]Failure
	tasks       []types.Task
	nextID      int
	progress    map[string]script
	discovery   map[string]script
	artifacts   map[string]artifact
	info        map[string]types.MediaInfo
	settings    types.Settings
	bareGet     bool
	tools       types.ToolStatus
	queueStarts int
}

// BackendOption configures a Backend.
type BackendOption func(*Backend)

// WithToken makes the backend reject requests without this bearer token.
func WithToken(token string) BackendOption {
	return func(b *Backend) {
		b.Token = token
	}
}

// WithInfoLatency delays every /api/info response.
func WithInfoLatency(d time.Duration) BackendOption {
	return func(b *Backend) {
		b.InfoLatency = d
	}
}

// WithSettings sets the initial server preferences.
func WithSettings(s types.Settings) BackendOption {
	return func(b *Backend) {
		b.settings = s
	}
}

// WithBareSettings makes GET /api/settings answer without the envelope.
func WithBareSettings() BackendOption {
	return func(b *Backend) {
		b.bareGet = true
	}
}

func newBackend(opts ...BackendOption) *Backend {
	b := &Backend{
		failures:  make(map[string]Failure),
		progress:  make(map[string]script),
		discovery: make(map[string]script),
		artifacts: make(map[string]artifact),
		info:      make(map[string]types.MediaInfo),
		settings: types.Settings{
			DownloadPath:        "/downloads",
			ConcurrentDownloads: 1,
			DefaultQuality:      "best",
		},
		tools: types.ToolStatus{FFmpeg: true, YtDlp: true, Message: "All tools installed"},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewBackend starts a fake server on an IPv4 listener.
func NewBackend(opts ...BackendOption) *Backend {
	b := newBackend(opts...)
	b.Server = NewHTTPServer(b.Router())
	return b
}

// NewBackendT starts a fake server and skips the test if binding fails.
// The server is closed when the test ends.
func NewBackendT(t *testing.T, opts ...BackendOption) *Backend {
	t.Helper()
	b := newBackend(opts...)
	b.Server = NewHTTPServerT(t, b.Router())
	t.Cleanup(b.Close)
	return b
}

// URL returns the server's base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Close shuts down the server.
func (b *Backend) Close() {
	if b.Server != nil {
		b.Server.Close()
	}
}

// Router builds the chi routes of the fake API.
func (b *Backend) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)
	r.Use(b.authorize)
	r.Use(b.inject)

	r.Post("/api/info", b.handleInfo)
	r.Get("/api/check", b.handleCheck)
	r.Post("/api/download", b.handleDownload)
	r.Get("/api/progress/{taskID}", b.handleProgress)
	r.Get("/download/{taskID}", b.handleArtifact)
	r.Post("/api/cleanup/{taskID}", b.handleCleanup)

	r.Get("/api/settings", b.handleGetSettings)
	r.Post("/api/settings", b.handleSaveSettings)

	r.Route("/api/queue", func(r chi.Router) {
		r.Get("/", b.handleQueue)
		r.Post("/", b.handleEnqueue)
		r.Post("/start", b.handleQueueStart)
		r.Post("/clear", b.handleQueueClear)
		r.Delete("/{taskID}", b.handleQueueRemove)
	})

	r.Post("/api/discover", b.handleDiscover)
	r.Get("/api/discover/{taskID}", b.handleDiscoveryStream)
	return r
}

// =============================================================================
// Test controls
// =============================================================================

// Fail makes every request to method+path answer with f until cleared.
func (b *Backend) Fail(method, path string, f Failure) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = f
}

// ClearFailures removes every canned failure.
func (b *Backend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = make(map[string]Failure)
}

// SetTasks replaces the queue contents.
func (b *Backend) SetTasks(tasks ...types.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = append([]types.Task(nil), tasks...)
}

// Tasks returns a copy of the queue contents.
func (b *Backend) Tasks() []types.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]types.Task(nil), b.tasks...)
}

// SetStatus changes the status of one task.
func (b *Backend) SetStatus(id string, status types.TaskStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			b.tasks[i].Status = status
		}
	}
}

// SetAllStatus changes the status of every task.
func (b *Backend) SetAllStatus(status types.TaskStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.tasks {
		b.tasks[i].Status = status
	}
}

// ScriptProgress sets the frames served on the progress channel of id.
// Each frame is a JSON payload written as one `data:` event.
func (b *Backend) ScriptProgress(id string, frames ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progress[id] = script{frames: frames}
}

// HoldProgress serves frames then keeps the channel open until the client
// goes away.
func (b *Backend) HoldProgress(id string, frames ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progress[id] = script{frames: frames, hold: true}
}

// ScriptDiscovery sets the frames served on the discovery channel of id.
func (b *Backend) ScriptDiscovery(id string, frames ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.discovery[id] = script{frames: frames}
}

// SetArtifact registers the produced file for a task. An empty filename
// omits the Content-Disposition header.
func (b *Backend) SetArtifact(id, filename, contentType string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.artifacts[id] = artifact{filename: filename, contentType: contentType, data: data}
}

// SetInfo registers the metadata returned for url.
func (b *Backend) SetInfo(url string, info types.MediaInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.info[url] = info
}

// SetTools sets the /api/check answer.
func (b *Backend) SetTools(s types.ToolStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tools = s
}

// Settings returns the server-side preferences.
func (b *Backend) Settings() types.Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings
}

// QueueStarts returns how many times processing was started.
func (b *Backend) QueueStarts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queueStarts
}

// Requests returns every recorded call in arrival order.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Count returns how many calls hit method+path.
func (b *Backend) Count(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// LastBody returns the body of the latest call to method+path.
func (b *Backend) LastBody(method, path string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		r := b.requests[i]
		if r.Method == method && r.Path == path {
			return r.Body
		}
	}
	return nil
}

// =============================================================================
// Middleware
// =============================================================================

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			_ = r.Body.Close()
			r.Body = io.NopCloser(strings.NewReader(string(body)))
		}
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Token != "" && r.Header.Get("Authorization") != "Bearer "+b.Token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		f, ok := b.failures[r.Method+" "+r.URL.Path]
		b.mu.Unlock()
		if ok {
			if strings.HasPrefix(strings.TrimSpace(f.Body), "{") {
				w.Header().Set("Content-Type", "application/json")
			}
			w.WriteHeader(f.Status)
			_, _ = io.WriteString(w, f.Body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Handlers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (b *Backend) newID(prefix string) string {
	b.nextID++
	return prefix + strconv.Itoa(b.nextID)
}

func (b *Backend) handleInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	if b.InfoLatency > 0 {
		select {
		case <-time.After(b.InfoLatency):
		case <-r.Context().Done():
			return
		}
	}

	b.mu.Lock()
	info, ok := b.info[req.URL]
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "Unsupported URL: "+req.URL)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (b *Backend) handleCheck(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	tools := b.tools
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, tools)
}

func (b *Backend) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req types.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	b.mu.Lock()
	id := b.newID("d")
	b.tasks = append(b.tasks, types.Task{
		ID:           id,
		Kind:         types.KindSingle,
		Status:       types.StatusDownloading,
		URL:          req.URL,
		FormatID:     req.FormatID,
		AudioOnly:    req.AudioOnly,
		DownloadPath: req.DownloadPath,
	})
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"task_id": id})
}

func (b *Backend) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	b.mu.Lock()
	s := b.progress[id]
	b.mu.Unlock()
	serveScript(w, r, s)
}

func (b *Backend) handleDiscoveryStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	b.mu.Lock()
	s := b.discovery[id]
	b.mu.Unlock()
	serveScript(w, r, s)
}

func serveScript(w http.ResponseWriter, r *http.Request, s script) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	_, _ = io.WriteString(w, ": connected\n\n")
	flush()
	for _, frame := range s.frames {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
			return
		}
		flush()
	}

	if s.hold {
		<-r.Context().Done()
	}
}

func (b *Backend) handleArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	b.mu.Lock()
	a, ok := b.artifacts[id]
	b.mu.Unlock()
	if !ok {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	contentType := a.contentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.data)))
	if a.filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, a.filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.data)
}

func (b *Backend) handleCleanup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	b.mu.Lock()
	b.removeTask(id)
	delete(b.artifacts, id)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (b *Backend) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	settings, bare := b.settings, b.bareGet
	b.mu.Unlock()
	if bare {
		writeJSON(w, http.StatusOK, settings)
		return
	}
	writeJSON(w, http.StatusOK, map[string]types.Settings{"settings": settings})
}

func (b *Backend) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var update types.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid settings")
		return
	}

	b.mu.Lock()
	if update.DownloadPath != nil {
		b.settings.DownloadPath = *update.DownloadPath
	}
	if update.ConcurrentDownloads != nil {
		b.settings.ConcurrentDownloads = *update.ConcurrentDownloads
	}
	if update.DefaultQuality != nil {
		b.settings.DefaultQuality = *update.DefaultQuality
	}
	settings := b.settings
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "settings": settings})
}

func (b *Backend) snapshot() types.QueueSnapshot {
	snap := types.QueueSnapshot{Queue: append([]types.Task{}, b.tasks...)}
	for _, t := range b.tasks {
		snap.Total++
		switch t.Status {
		case types.StatusPending:
			snap.Pending++
		case types.StatusDownloading:
			snap.Downloading++
		case types.StatusCompleted:
			snap.Completed++
		}
	}
	return snap
}

func (b *Backend) handleQueue(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	snap := b.snapshot()
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

func (b *Backend) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var item types.QueueItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil || item.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	b.mu.Lock()
	id := b.newID("q")
	b.tasks = append(b.tasks, types.Task{
		ID:           id,
		Kind:         types.KindQueued,
		Status:       types.StatusPending,
		URL:          item.URL,
		Title:        item.Title,
		FormatID:     item.FormatID,
		AudioOnly:    item.AudioOnly,
		DownloadPath: item.DownloadPath,
	})
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"task_id": id})
}

func (b *Backend) handleQueueStart(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	b.queueStarts++
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (b *Backend) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	kept := b.tasks[:0]
	for _, t := range b.tasks {
		if string(t.Status) == req.Type {
			continue
		}
		kept = append(kept, t)
	}
	b.tasks = kept
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (b *Backend) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	b.mu.Lock()
	found := b.removeTask(id)
	b.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// removeTask deletes id from the queue. Caller holds mu.
func (b *Backend) removeTask(id string) bool {
	for i, t := range b.tasks {
		if t.ID == id {
			b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Backend) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL       string `json:"url"`
		MaxVideos int    `json:"max_videos"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	b.mu.Lock()
	id := b.newID("s")
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"task_id": id})
}
