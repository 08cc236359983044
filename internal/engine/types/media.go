package types

import "fmt"

const (
	MediaVideo    = "video"
	MediaPlaylist = "playlist"
)

// Format is one downloadable rendition of a video.
type Format struct {
	FormatID   string `json:"format_id"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution"`
	Height     int    `json:"height"`
	Filesize   int64  `json:"filesize"`
	VCodec     string `json:"vcodec"`
	ACodec     string `json:"acodec"`
}

// Label is the user-facing name of the format, e.g. "1080p (mp4)".
func (f Format) Label() string {
	return fmt.Sprintf("%s (%s)", f.Resolution, f.Ext)
}

// PlaylistEntry is one video listed inside a playlist.
type PlaylistEntry struct {
	ID        string `json:"id"`
	URL       string `json:"url,omitempty"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Duration  string `json:"duration"`
}

// MediaInfo is the metadata returned for a URL. Type selects which fields are set.
type MediaInfo struct {
	Type string `json:"type"`

	ID        string   `json:"id,omitempty"`
	Title     string   `json:"title"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Duration  string   `json:"duration,omitempty"`
	Uploader  string   `json:"uploader,omitempty"`
	ViewCount int64    `json:"view_count,omitempty"`
	Formats   []Format `json:"formats,omitempty"`

	Videos []PlaylistEntry `json:"videos,omitempty"`
}

// IsPlaylist reports whether the info describes a playlist.
func (m *MediaInfo) IsPlaylist() bool {
	return m.Type == MediaPlaylist
}

// UniqueFormats drops formats whose label was already seen, keeping server order.
func (m *MediaInfo) UniqueFormats() []Format {
	seen := make(map[string]bool, len(m.Formats))
	out := make([]Format, 0, len(m.Formats))
	for _, f := range m.Formats {
		label := f.Label()
		if seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, f)
	}
	return out
}
