package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zen-downloader/zen/internal/engine/types"
)

// =============================================================================
// DecodeProgress Tests
// =============================================================================

func TestDecodeProgress_Dispatch(t *testing.T) {
	testCases := []struct {
		name     string
		data     string
		want     any
		terminal bool
	}{
		{
			name:     "completed",
			data:     `{"status":"completed","filename":"v.mp4","progress":100}`,
			want:     DownloadCompleteMsg{TaskID: "t1", Filename: "v.mp4"},
			terminal: true,
		},
		{
			name: "progress with playlist position",
			data: `{"status":"downloading","progress":42.5,"speed":"1.2MiB/s","current_video":2,"total_videos":5}`,
			want: ProgressMsg{
				TaskID: "t1", Status: types.StatusDownloading, Progress: 42.5,
				Speed: "1.2MiB/s", CurrentVideo: 2, TotalVideos: 5,
			},
		},
		{
			name: "progress zero is still progress",
			data: `{"status":"merging","progress":0}`,
			want: ProgressMsg{TaskID: "t1", Status: types.StatusMerging},
		},
		{
			name: "no progress field is skipped",
			data: `{"status":"unknown"}`,
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg, terminal, err := DecodeProgress("t1", []byte(tc.data))
			require.NoError(t, err)
			assert.Equal(t, tc.want, msg)
			assert.Equal(t, tc.terminal, terminal)
		})
	}
}

func TestDecodeProgress_ErrorFallback(t *testing.T) {
	msg, terminal, err := DecodeProgress("t1", []byte(`{"status":"error"}`))
	require.NoError(t, err)
	assert.True(t, terminal)

	m, ok := msg.(DownloadErrorMsg)
	require.True(t, ok, "expected DownloadErrorMsg, got %T", msg)
	assert.Equal(t, DefaultDownloadError, m.Err.Error())

	msg, _, _ = DecodeProgress("t1", []byte(`{"status":"error","error":"ERROR: private video","progress":30}`))
	assert.Equal(t, "ERROR: private video", msg.(DownloadErrorMsg).Err.Error())
}

func TestDecodeProgress_CompletedWinsOverError(t *testing.T) {
	// status decides, not the presence of an error field
	msg, terminal, err := DecodeProgress("t1", []byte(`{"status":"completed","error":"stale"}`))
	require.NoError(t, err)
	assert.True(t, terminal)
	assert.IsType(t, DownloadCompleteMsg{}, msg)
}

func TestDecodeProgress_Malformed(t *testing.T) {
	_, _, err := DecodeProgress("t1", []byte(`{not json`))
	assert.Error(t, err)
}

// =============================================================================
// DiscoveryDecoder Tests
// =============================================================================

func TestDiscoveryDecoder_RunningCount(t *testing.T) {
	decode := DiscoveryDecoder("d1")

	for i := 1; i <= 3; i++ {
		data := fmt.Sprintf(`{"type":"video","video":{"url":"https://x/v%d","title":"V%d"}}`, i, i)
		msg, terminal, err := decode([]byte(data))
		require.NoError(t, err)
		assert.False(t, terminal)

		m := msg.(DiscoveryVideoMsg)
		assert.Equal(t, i, m.Count)
		assert.Equal(t, fmt.Sprintf("V%d", i), m.Video.Title)
	}

	msg, terminal, err := decode([]byte(`{"status":"completed","count":3}`))
	require.NoError(t, err)
	assert.True(t, terminal)
	assert.Equal(t, DiscoveryCompleteMsg{SessionID: "d1", Count: 3}, msg)
}

func TestDiscoveryDecoder_CompletedWithoutCount(t *testing.T) {
	decode := DiscoveryDecoder("d1")
	_, _, _ = decode([]byte(`{"type":"video","video":{"url":"https://x/a"}}`))

	msg, _, err := decode([]byte(`{"status":"completed"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, msg.(DiscoveryCompleteMsg).Count)
}

func TestDiscoveryDecoder_Error(t *testing.T) {
	decode := DiscoveryDecoder("d1")

	msg, terminal, err := decode([]byte(`{"status":"error"}`))
	require.NoError(t, err)
	assert.True(t, terminal)
	assert.Equal(t, DefaultDiscoveryError, msg.(DiscoveryErrorMsg).Err.Error())
}

// =============================================================================
// DownloadErrorMsg JSON
// =============================================================================

func TestDownloadErrorMsg_JSON(t *testing.T) {
	data, err := json.Marshal(DownloadErrorMsg{TaskID: "t1", Err: errors.New("boom")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"task_id":"t1","error":"boom"}`, string(data))

	var decoded DownloadErrorMsg
	require.NoError(t, json.Unmarshal([]byte(`{"task_id":"t2","error":{"code":1}}`), &decoded))
	assert.Equal(t, "t2", decoded.TaskID)
	assert.Equal(t, `{"code":1}`, decoded.Err.Error())

	require.NoError(t, json.Unmarshal([]byte(`{"task_id":"t3","error":null}`), &decoded))
	assert.Nil(t, decoded.Err)
}

// =============================================================================
// Message Type Assertions
// =============================================================================

func TestMessageTypes_AreDistinct(t *testing.T) {
	messages := []interface{}{
		ProgressMsg{TaskID: "progress"},
		DownloadCompleteMsg{TaskID: "complete"},
		DownloadErrorMsg{TaskID: "error"},
		SoftFailureMsg{TaskID: "soft"},
		PlaylistDoneMsg{TaskID: "playlist"},
		ArtifactSavedMsg{TaskID: "saved"},
		QueueSnapshotMsg{},
		DiscoveryVideoMsg{},
		DiscoveryCompleteMsg{},
		DiscoveryErrorMsg{},
	}

	typeNames := make(map[string]bool)
	for _, msg := range messages {
		typeName := fmt.Sprintf("%T", msg)
		if typeNames[typeName] {
			t.Errorf("Duplicate type: %s", typeName)
		}
		typeNames[typeName] = true
	}

	if len(typeNames) != len(messages) {
		t.Errorf("Expected %d distinct types, got %d", len(messages), len(typeNames))
	}
}
