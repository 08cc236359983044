// Package queue manages the server-resident download queue. The queue is
// never mutated locally: every change is followed by a full reload.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zen-downloader/zen/internal/core"
	"github.com/zen-downloader/zen/internal/engine/events"
	"github.com/zen-downloader/zen/internal/engine/types"
	"github.com/zen-downloader/zen/internal/session"
	"github.com/zen-downloader/zen/internal/validation"
)

const (
	DefaultPollInterval = time.Second
	DefaultSettleDelay  = 500 * time.Millisecond
)

// ErrRetryUnknown is returned when the parameters of a task to retry are not
// known to the client.
var ErrRetryUnknown = errors.New("cannot retry: original request is unknown")

// ItemError is one failed submission of a batch.
type ItemError struct {
	Item types.QueueItem
	Err  error
}

// BatchResult reports the outcome of EnqueueBatch.
type BatchResult struct {
	IDs    []string // ids of accepted items, in submission order
	Failed []ItemError
}

// Client is the queue facade over a Service.
type Client struct {
	svc    core.Service
	sess   *session.Session
	events chan<- any
	logger *slog.Logger

	PollInterval time.Duration
	SettleDelay  time.Duration

	pollMu sync.Mutex
	poller *Poller
}

// Option configures a Client.
type Option func(*Client)

// WithEvents forwards every snapshot to ch without blocking.
func WithEvents(ch chan<- any) Option {
	return func(c *Client) {
		c.events = ch
	}
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithPollInterval sets the poller period.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.PollInterval = d
	}
}

// WithSettleDelay sets the pause between a batch and its reload.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Client) {
		c.SettleDelay = d
	}
}

// NewClient creates a queue client sharing sess with the other components.
func NewClient(svc core.Service, sess *session.Session, opts ...Option) *Client {
	c := &Client{
		svc:          svc,
		sess:         sess,
		logger:       slog.Default(),
		PollInterval: DefaultPollInterval,
		SettleDelay:  DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reload fetches the queue and replaces the session snapshot wholesale.
func (c *Client) Reload(ctx context.Context) (*types.QueueSnapshot, error) {
	snap, err := c.svc.Queue(ctx)
	if err != nil {
		return nil, err
	}
	expanded := c.sess.ReplaceSnapshot(*snap)
	c.emit(events.QueueSnapshotMsg{Snapshot: *snap, Expanded: expanded})
	return snap, nil
}

func (c *Client) reloadAfter(ctx context.Context, op string) {
	if _, err := c.Reload(ctx); err != nil {
		c.logger.Warn("queue reload failed", "after", op, "error", err)
	}
}

func (c *Client) submit(ctx context.Context, item types.QueueItem) (string, error) {
	item.URL = strings.TrimSpace(item.URL)
	if err := validation.Struct(item); err != nil {
		return "", err
	}
	id, err := c.svc.AddToQueue(ctx, item)
	if err != nil {
		return "", err
	}
	c.sess.Remember(id, item)
	return id, nil
}

// Enqueue submits one item and reloads. A server-reported error is returned
// as *core.ServerError and no reload happens.
func (c *Client) Enqueue(ctx context.Context, item types.QueueItem) (string, error) {
	id, err := c.submit(ctx, item)
	if err != nil {
		return "", err
	}
	c.reloadAfter(ctx, "enqueue")
	return id, nil
}

// EnqueueBatch submits items one after another. Failures are collected and
// do not stop the batch. A single reload follows once SettleDelay has passed.
func (c *Client) EnqueueBatch(ctx context.Context, items []types.QueueItem) (*BatchResult, error) {
	result := &BatchResult{}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(1)
	for _, item := range items {
		item := item
		g.Go(func() error {
			id, err := c.submit(ctx, item)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, ItemError{Item: item, Err: err})
				return nil
			}
			result.IDs = append(result.IDs, id)
			return nil
		})
	}
	_ = g.Wait()

	if len(result.Failed) > 0 {
		c.logger.Warn("batch enqueue had failures", "failed", len(result.Failed), "total", len(items))
	}

	select {
	case <-time.After(c.SettleDelay):
	case <-ctx.Done():
		return result, ctx.Err()
	}

	if _, err := c.Reload(ctx); err != nil {
		return result, fmt.Errorf("reload queue: %w", err)
	}
	return result, nil
}

// StartProcessing tells the server to drain pending tasks and starts the
// poller. Any running poller is stopped first.
func (c *Client) StartProcessing(ctx context.Context) (*Poller, error) {
	if err := c.svc.StartQueue(ctx); err != nil {
		return nil, err
	}
	return c.startPoller(ctx), nil
}

// StopProcessing stops the poller, if any. The server keeps processing.
func (c *Client) StopProcessing() {
	c.pollMu.Lock()
	p := c.poller
	c.poller = nil
	c.pollMu.Unlock()

	if p != nil {
		p.Stop()
	}
}

// Watch polls without asking the server to start processing.
func (c *Client) Watch(ctx context.Context) *Poller {
	return c.startPoller(ctx)
}

func (c *Client) startPoller(ctx context.Context) *Poller {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	if c.poller != nil {
		c.poller.Stop()
	}
	c.poller = newPoller(ctx, c.PollInterval, c.pollOnce, c.logger)
	return c.poller
}

// pollOnce reloads and reports whether polling should stop.
func (c *Client) pollOnce(ctx context.Context) bool {
	snap, err := c.Reload(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("queue poll failed", "error", err)
		}
		return false
	}
	return snap.AllTerminal()
}

// Remove deletes a task and reloads.
func (c *Client) Remove(ctx context.Context, id string) error {
	if err := c.svc.RemoveFromQueue(ctx, id); err != nil {
		return err
	}
	c.sess.Forget(id)
	c.reloadAfter(ctx, "remove")
	return nil
}

// ClearCompleted removes every completed task and reloads.
func (c *Client) ClearCompleted(ctx context.Context) error {
	if err := c.svc.ClearQueue(ctx, string(types.StatusCompleted)); err != nil {
		return err
	}
	c.reloadAfter(ctx, "clear")
	return nil
}

// Discard drops a failed task without resubmitting it.
func (c *Client) Discard(ctx context.Context, id string) error {
	return c.Remove(ctx, id)
}

// Retry resubmits a task with its original parameters, then removes the old
// entry. The old entry stays queued when the resubmission fails. The
// parameters come from the last snapshot, else from what this client
// submitted.
//
// If the old entry cannot be removed, the new id is returned together with
// the error.
func (c *Client) Retry(ctx context.Context, id string) (string, error) {
	item, ok := c.retryItem(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRetryUnknown, id)
	}

	newID, err := c.submit(ctx, item)
	if err != nil {
		return "", err
	}

	if err := c.svc.RemoveFromQueue(ctx, id); err != nil {
		c.reloadAfter(ctx, "retry")
		return newID, fmt.Errorf("retried as %s, old entry %s kept: %w", newID, id, err)
	}
	c.sess.Forget(id)
	c.reloadAfter(ctx, "retry")
	return newID, nil
}

func (c *Client) retryItem(id string) (types.QueueItem, bool) {
	snap := c.sess.Snapshot()
	if task, ok := snap.Find(id); ok {
		if item, ok := types.ItemFromTask(task); ok {
			return item, true
		}
	}
	return c.sess.Submitted(id)
}

func (c *Client) emit(msg any) {
	if c.events == nil {
		return
	}
	select {
	case c.events <- msg:
	default:
	}
}
