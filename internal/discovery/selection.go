package discovery

import "github.com/zen-downloader/zen/internal/engine/types"

// Selection tracks which discovered videos will be queued. Every video
// starts selected.
type Selection struct {
	videos   []types.DiscoveredVideo
	selected []bool
}

// NewSelection selects all of videos.
func NewSelection(videos []types.DiscoveredVideo) *Selection {
	s := &Selection{
		videos:   videos,
		selected: make([]bool, len(videos)),
	}
	s.SelectAll()
	return s
}

// Len is the number of videos.
func (s *Selection) Len() int {
	return len(s.videos)
}

// Video returns the i-th video.
func (s *Selection) Video(i int) types.DiscoveredVideo {
	return s.videos[i]
}

// IsSelected reports whether the i-th video is selected.
func (s *Selection) IsSelected(i int) bool {
	return i >= 0 && i < len(s.selected) && s.selected[i]
}

// Toggle flips the i-th video. Out of range indexes are ignored.
func (s *Selection) Toggle(i int) {
	if i >= 0 && i < len(s.selected) {
		s.selected[i] = !s.selected[i]
	}
}

// SelectAll selects every video.
func (s *Selection) SelectAll() {
	for i := range s.selected {
		s.selected[i] = true
	}
}

// SelectNone clears the selection.
func (s *Selection) SelectNone() {
	for i := range s.selected {
		s.selected[i] = false
	}
}

// Count is the number of selected videos.
func (s *Selection) Count() int {
	n := 0
	for _, sel := range s.selected {
		if sel {
			n++
		}
	}
	return n
}

// Items maps the selected videos, in discovery order, to queue items that
// share the download parameters of defaults.
func (s *Selection) Items(defaults types.QueueItem) []types.QueueItem {
	items := make([]types.QueueItem, 0, s.Count())
	for i, v := range s.videos {
		if !s.selected[i] {
			continue
		}
		item := defaults
		item.URL = v.URL
		item.Title = v.Title
		items = append(items, item)
	}
	return items
}
