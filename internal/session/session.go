// Package session holds the client-side state shared by the download,
// queue, discovery and settings components.
package session

import (
	"sync"

	"github.com/zen-downloader/zen/internal/engine/stream"
	"github.com/zen-downloader/zen/internal/engine/types"
)

// Discovery is the state of the current discovery session.
type Discovery struct {
	ID     string
	Videos []types.DiscoveredVideo
	Count  int
	Done   bool
	Err    string
}

// Session is the single owner of client state. The poller goroutine and
// command goroutines share it, so every field is guarded by mu.
type Session struct {
	// Each slot holds at most one live push channel.
	ProgressSlot  stream.Slot
	DiscoverySlot stream.Slot

	mu            sync.Mutex
	taskID        string
	settings      *types.Settings
	snapshot      types.QueueSnapshot
	queueExpanded bool
	discovery     Discovery
	submitted     map[string]types.QueueItem
}

// New returns an empty session.
func New() *Session {
	return &Session{
		submitted: make(map[string]types.QueueItem),
	}
}

// TaskID is the id of the tracked immediate download, if any.
func (s *Session) TaskID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskID
}

// SetTaskID records the tracked immediate download.
func (s *Session) SetTaskID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskID = id
}

// ResetTask clears every task-scoped field and closes the progress channel.
// It returns the id that was tracked.
func (s *Session) ResetTask() string {
	s.mu.Lock()
	id := s.taskID
	s.taskID = ""
	s.mu.Unlock()

	s.ProgressSlot.Release()
	return id
}

// ClearTask resets task state only if id is still the tracked task.
func (s *Session) ClearTask(id string) bool {
	s.mu.Lock()
	if s.taskID != id {
		s.mu.Unlock()
		return false
	}
	s.taskID = ""
	s.mu.Unlock()

	s.ProgressSlot.Release()
	return true
}

// Settings returns the cached server preferences, or nil before the first load.
func (s *Session) Settings() *types.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return nil
	}
	copied := *s.settings
	return &copied
}

// SetSettings replaces the cached preferences.
func (s *Session) SetSettings(settings types.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
}

// Snapshot returns the last queue snapshot.
func (s *Session) Snapshot() types.QueueSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot
	snap.Queue = append([]types.Task(nil), s.snapshot.Queue...)
	return snap
}

// ReplaceSnapshot swaps in a new snapshot wholesale. A snapshot with active
// downloads forces the queue panel open; the resulting panel state is
// returned.
func (s *Session) ReplaceSnapshot(snap types.QueueSnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	if snap.Downloading > 0 {
		s.queueExpanded = true
	}
	return s.queueExpanded
}

// QueueExpanded reports whether the queue panel is open.
func (s *Session) QueueExpanded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queueExpanded
}

// SetQueueExpanded opens or closes the queue panel.
func (s *Session) SetQueueExpanded(expanded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queueExpanded = expanded
}

// Remember stores the parameters a queue task was submitted with.
func (s *Session) Remember(id string, item types.QueueItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted[id] = item
}

// Submitted returns the remembered parameters of a queue task.
func (s *Session) Submitted(id string) (types.QueueItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.submitted[id]
	return item, ok
}

// Forget drops the remembered parameters of a queue task.
func (s *Session) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.submitted, id)
}

// Discovery returns a copy of the discovery state.
func (s *Session) Discovery() Discovery {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.discovery
	d.Videos = append([]types.DiscoveredVideo(nil), s.discovery.Videos...)
	return d
}

// BeginDiscovery resets discovery state for a new session id and closes any
// previous discovery channel.
func (s *Session) BeginDiscovery(id string) {
	s.DiscoverySlot.Release()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.discovery = Discovery{ID: id}
}

// AddDiscovered appends a video to the current session. Videos for a stale
// session id are dropped; ok reports whether it was kept.
func (s *Session) AddDiscovered(id string, v types.DiscoveredVideo) (count int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discovery.ID != id || s.discovery.Done {
		return s.discovery.Count, false
	}
	s.discovery.Videos = append(s.discovery.Videos, v)
	s.discovery.Count = len(s.discovery.Videos)
	return s.discovery.Count, true
}

// FinishDiscovery marks the session done with the server's final count, or
// with an error text.
func (s *Session) FinishDiscovery(id string, count int, errText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discovery.ID != id {
		return
	}
	s.discovery.Done = true
	s.discovery.Err = errText
	if errText == "" {
		s.discovery.Count = count
	}
}
