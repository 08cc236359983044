package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vfaronov/httpheader"

	"github.com/zen-downloader/zen/internal/engine/types"
)

const (
	DefaultInfoTimeout    = 120 * time.Second
	DefaultRequestTimeout = 30 * time.Second

	// Limit error body read to 1KB
	maxErrorBody = 1024
)

// RemoteService implements Service against the download server's HTTP API.
type RemoteService struct {
	BaseURL string
	Token   string

	// Client carries the request timeout and serves plain API calls.
	Client *http.Client
	// StreamClient has no overall timeout. Push channels, artifact bodies and
	// the metadata request use it and end only through their context.
	StreamClient *http.Client

	InfoTimeout    time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger
}

// Option configures a RemoteService.
type Option func(*RemoteService)

// WithHTTPClient replaces the client used for plain requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *RemoteService) {
		s.Client = c
	}
}

// WithRequestTimeout sets the timeout of plain requests. It is applied to a
// copy of the client, so a client passed to WithHTTPClient is left as is.
// Push channels, artifacts and the metadata request are not affected.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *RemoteService) {
		s.requestTimeout = d
	}
}

// WithInfoTimeout sets the deadline of the metadata request.
func WithInfoTimeout(d time.Duration) Option {
	return func(s *RemoteService) {
		s.InfoTimeout = d
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(s *RemoteService) {
		s.logger = l
	}
}

// NewRemoteService creates a client for the server at baseURL.
func NewRemoteService(baseURL string, token string, opts ...Option) *RemoteService {
	s := &RemoteService{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Token:       token,
		Client:       &http.Client{Timeout: DefaultRequestTimeout},
		StreamClient: &http.Client{},
		InfoTimeout:  DefaultInfoTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.requestTimeout > 0 {
		c := *s.Client
		c.Timeout = s.requestTimeout
		s.Client = &c
	}
	return s
}

var _ Service = (*RemoteService)(nil)

func (s *RemoteService) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(s.Token) != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (s *RemoteService) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	return s.doRequestWith(ctx, s.Client, method, path, body)
}

func (s *RemoteService) doRequestWith(ctx context.Context, client *http.Client, method, path string, body interface{}) (*http.Response, error) {
	req, err := s.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("api request", "method", method, "path", path, "request_id", req.Header.Get("X-Request-ID"))

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if msg := errorField(bodyBytes); msg != "" {
			return nil, &ServerError{StatusCode: resp.StatusCode, Message: msg}
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	return resp, nil
}

// doJSON performs a request and decodes a JSON response into out. A body with
// a non-empty `error` field becomes a *ServerError whatever the status code.
func (s *RemoteService) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	return s.doJSONWith(ctx, s.Client, method, path, body, out)
}

func (s *RemoteService) doJSONWith(ctx context.Context, client *http.Client, method, path string, body, out interface{}) error {
	resp, err := s.doRequestWith(ctx, client, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	if msg := errorField(data); msg != "" {
		return &ServerError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func errorField(data []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &envelope) != nil {
		return ""
	}
	return envelope.Error
}

type taskIDResponse struct {
	TaskID string `json:"task_id"`
}

func (s *RemoteService) postForTaskID(ctx context.Context, path string, body interface{}) (string, error) {
	var result taskIDResponse
	if err := s.doJSON(ctx, http.MethodPost, path, body, &result); err != nil {
		return "", err
	}
	if result.TaskID == "" {
		return "", fmt.Errorf("%s: server returned no task id", path)
	}
	return result.TaskID, nil
}

// Info fetches metadata for url. Its only deadline is InfoTimeout, which may
// exceed the request timeout; exceeding it yields ErrTimeout.
func (s *RemoteService) Info(ctx context.Context, rawURL string) (*types.MediaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.InfoTimeout)
	defer cancel()

	var info types.MediaInfo
	err := s.doJSONWith(ctx, s.StreamClient, http.MethodPost, "/api/info", map[string]string{"url": strings.TrimSpace(rawURL)}, &info)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("fetch info: %w", ErrTimeout)
		}
		return nil, err
	}
	return &info, nil
}

// Check reports the server's tooling status.
func (s *RemoteService) Check(ctx context.Context) (*types.ToolStatus, error) {
	var status types.ToolStatus
	if err := s.doJSON(ctx, http.MethodGet, "/api/check", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// StartDownload submits an immediate download.
func (s *RemoteService) StartDownload(ctx context.Context, req types.DownloadRequest) (string, error) {
	return s.postForTaskID(ctx, "/api/download", req)
}

// FetchArtifact opens the produced file of a completed task. The body is
// read without a timeout, so only ctx ends a slow transfer. The caller
// closes Artifact.Body.
func (s *RemoteService) FetchArtifact(ctx context.Context, taskID string) (*Artifact, error) {
	resp, err := s.doRequestWith(ctx, s.StreamClient, http.MethodGet, "/download/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	_, filename, _ := httpheader.ContentDisposition(resp.Header)
	return &Artifact{
		Body:        resp.Body,
		Filename:    filename,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}, nil
}

// Cleanup asks the server to forget a task.
func (s *RemoteService) Cleanup(ctx context.Context, taskID string) error {
	return s.doJSON(ctx, http.MethodPost, "/api/cleanup/"+url.PathEscape(taskID), nil, nil)
}

type settingsEnvelope struct {
	Settings *types.Settings `json:"settings"`
}

// GetSettings returns the server preferences. Both a bare object and a
// {"settings": {...}} envelope are accepted.
func (s *RemoteService) GetSettings(ctx context.Context) (*types.Settings, error) {
	var raw json.RawMessage
	if err := s.doJSON(ctx, http.MethodGet, "/api/settings", nil, &raw); err != nil {
		return nil, err
	}

	var envelope settingsEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Settings != nil {
		return envelope.Settings, nil
	}
	var settings types.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings posts a partial update and returns the server's full result.
func (s *RemoteService) SaveSettings(ctx context.Context, update types.SettingsUpdate) (*types.Settings, error) {
	var envelope settingsEnvelope
	if err := s.doJSON(ctx, http.MethodPost, "/api/settings", update, &envelope); err != nil {
		return nil, err
	}
	if envelope.Settings == nil {
		return nil, errors.New("server did not echo settings")
	}
	return envelope.Settings, nil
}

// Queue returns the full queue state.
func (s *RemoteService) Queue(ctx context.Context) (*types.QueueSnapshot, error) {
	var snapshot types.QueueSnapshot
	if err := s.doJSON(ctx, http.MethodGet, "/api/queue", nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// AddToQueue submits one item to the queue.
func (s *RemoteService) AddToQueue(ctx context.Context, item types.QueueItem) (string, error) {
	return s.postForTaskID(ctx, "/api/queue", item)
}

// StartQueue begins server-side processing of pending tasks.
func (s *RemoteService) StartQueue(ctx context.Context) error {
	return s.doJSON(ctx, http.MethodPost, "/api/queue/start", nil, nil)
}

// RemoveFromQueue deletes one task.
func (s *RemoteService) RemoveFromQueue(ctx context.Context, taskID string) error {
	return s.doJSON(ctx, http.MethodDelete, "/api/queue/"+url.PathEscape(taskID), nil, nil)
}

// ClearQueue removes every task of the given kind.
func (s *RemoteService) ClearQueue(ctx context.Context, kind string) error {
	return s.doJSON(ctx, http.MethodPost, "/api/queue/clear", map[string]string{"type": kind}, nil)
}

// StartDiscovery begins crawling url for up to maxVideos entries.
func (s *RemoteService) StartDiscovery(ctx context.Context, rawURL string, maxVideos int) (string, error) {
	body := map[string]interface{}{
		"url":        strings.TrimSpace(rawURL),
		"max_videos": maxVideos,
	}
	return s.postForTaskID(ctx, "/api/discover", body)
}

// OpenStream opens a server-sent event channel. The body stays open until
// the server ends it or the caller closes it.
func (s *RemoteService) OpenStream(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := s.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	resp, err := s.StreamClient.Do(req)
	if err != nil {
		if isCanceled(err) {
			return nil, err
		}
		return nil, &TransportError{Op: "GET " + path, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("failed to connect to event stream: %w",
			&StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))})
	}

	return resp.Body, nil
}
