package validation

import (
	"testing"

	"github.com/zen-downloader/zen/internal/engine/types"
)

func TestMediaURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "https video", input: "https://www.youtube.com/watch?v=abc", wantErr: false},
		{name: "http with port", input: "http://media.local:8080/v/1", wantErr: false},
		{name: "empty", input: "", wantErr: true},
		{name: "ftp scheme", input: "ftp://example.com/file", wantErr: true},
		{name: "missing host", input: "https:///path", wantErr: true},
		{name: "not a url", input: "just words", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MediaURL(tt.input)
			if tt.wantErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestStruct_QueueItem(t *testing.T) {
	if err := Struct(types.QueueItem{URL: "https://x/video", FormatID: "best"}); err != nil {
		t.Fatalf("valid item rejected: %v", err)
	}

	err := Struct(types.QueueItem{FormatID: "best"})
	if err == nil || err.Error() != "url is required" {
		t.Errorf("expected 'url is required', got %v", err)
	}

	err = Struct(types.QueueItem{URL: "nope"})
	if err == nil || err.Error() != `invalid URL "nope"` {
		t.Errorf("expected invalid URL error, got %v", err)
	}
}

func TestStruct_SettingsUpdate(t *testing.T) {
	tooMany := 11
	err := Struct(types.SettingsUpdate{ConcurrentDownloads: &tooMany})
	if err == nil {
		t.Fatal("expected error for concurrent_downloads=11")
	}
	if err.Error() != "concurrent_downloads must be at most 10" {
		t.Errorf("unexpected message: %v", err)
	}

	three := 3
	if err := Struct(types.SettingsUpdate{ConcurrentDownloads: &three}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := Struct(types.SettingsUpdate{}); err != nil {
		t.Errorf("empty update should be valid: %v", err)
	}
}
