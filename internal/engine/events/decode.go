package events

import (
	"encoding/json"
	"errors"

	"github.com/zen-downloader/zen/internal/engine/types"
)

// ProgressPayload is the wire shape of one progress push message.
type ProgressPayload struct {
	Status       string   `json:"status"`
	Progress     *float64 `json:"progress"`
	Speed        string   `json:"speed"`
	Filename     string   `json:"filename"`
	Error        string   `json:"error"`
	CurrentVideo int      `json:"current_video"`
	TotalVideos  int      `json:"total_videos"`
}

// DiscoveryPayload is the wire shape of one discovery push message.
type DiscoveryPayload struct {
	Type   string                 `json:"type"`
	Video  *types.DiscoveredVideo `json:"video"`
	Status string                 `json:"status"`
	Count  *int                   `json:"count"`
	Error  string                 `json:"error"`
}

// DecodeProgress turns a progress frame into a message. The first matching
// rule wins: completed, error, then progress. msg is nil for frames that
// match no rule; terminal is true for completed and error.
func DecodeProgress(taskID string, data []byte) (msg any, terminal bool, err error) {
	var p ProgressPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, err
	}

	switch {
	case p.Status == string(types.StatusCompleted):
		return DownloadCompleteMsg{TaskID: taskID, Filename: p.Filename}, true, nil
	case p.Status == string(types.StatusError):
		text := p.Error
		if text == "" {
			text = DefaultDownloadError
		}
		return DownloadErrorMsg{TaskID: taskID, Err: errors.New(text)}, true, nil
	case p.Progress != nil:
		return ProgressMsg{
			TaskID:       taskID,
			Status:       types.TaskStatus(p.Status),
			Progress:     *p.Progress,
			Speed:        p.Speed,
			CurrentVideo: p.CurrentVideo,
			TotalVideos:  p.TotalVideos,
		}, false, nil
	}
	return nil, false, nil
}

// DiscoveryDecoder returns a decoder for one discovery session. It keeps the
// running count so every video message reports the total so far.
func DiscoveryDecoder(sessionID string) func(data []byte) (any, bool, error) {
	count := 0
	return func(data []byte) (any, bool, error) {
		var p DiscoveryPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, false, err
		}

		switch {
		case p.Type == "video" && p.Video != nil:
			count++
			return DiscoveryVideoMsg{SessionID: sessionID, Video: *p.Video, Count: count}, false, nil
		case p.Status == string(types.StatusCompleted):
			final := count
			if p.Count != nil {
				final = *p.Count
			}
			return DiscoveryCompleteMsg{SessionID: sessionID, Count: final}, true, nil
		case p.Status == string(types.StatusError):
			text := p.Error
			if text == "" {
				text = DefaultDiscoveryError
			}
			return DiscoveryErrorMsg{SessionID: sessionID, Err: errors.New(text)}, true, nil
		}
		return nil, false, nil
	}
}
