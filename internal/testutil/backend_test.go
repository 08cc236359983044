package testutil

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/zen-downloader/zen/internal/engine/types"
)

func TestBackend_EnqueueAndSnapshot(t *testing.T) {
	b := NewBackendT(t)

	resp, err := http.Post(b.URL()+"/api/queue", "application/json",
		strings.NewReader(`{"url":"https://example.com/v","title":"V"}`))
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	_ = resp.Body.Close()

	resp, err = http.Get(b.URL() + "/api/queue")
	if err != nil {
		t.Fatalf("queue failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var snap types.QueueSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if snap.Total != 1 || snap.Pending != 1 {
		t.Errorf("expected 1 pending task, got total=%d pending=%d", snap.Total, snap.Pending)
	}
	if snap.Queue[0].Title != "V" {
		t.Errorf("expected title echoed, got %q", snap.Queue[0].Title)
	}
	if got := b.Count(http.MethodPost, "/api/queue"); got != 1 {
		t.Errorf("expected 1 recorded enqueue, got %d", got)
	}
}

func TestBackend_Fail(t *testing.T) {
	b := NewBackendT(t)
	b.Fail(http.MethodPost, "/api/queue", Failure{Status: http.StatusBadRequest, Body: `{"error":"invalid url"}`})

	resp, err := http.Post(b.URL()+"/api/queue", "application/json", strings.NewReader(`{"url":"x"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "invalid url") {
		t.Errorf("unexpected body %q", body)
	}
	if len(b.Tasks()) != 0 {
		t.Error("failed request must not create a task")
	}
}

func TestBackend_Token(t *testing.T) {
	b := NewBackendT(t, WithToken("secret"))

	resp, err := http.Get(b.URL() + "/api/check")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, b.URL()+"/api/check", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestBackend_ScriptedStream(t *testing.T) {
	b := NewBackendT(t)
	b.ScriptProgress("t1", `{"progress":50}`, `{"status":"completed","filename":"v.mp4"}`)

	resp, err := http.Get(b.URL() + "/api/progress/t1")
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type %q", ct)
	}

	var data []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
	}
	if len(data) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(data))
	}
	if data[1] != `{"status":"completed","filename":"v.mp4"}` {
		t.Errorf("unexpected terminal frame %q", data[1])
	}
}
