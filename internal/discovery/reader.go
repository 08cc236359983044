// Package discovery enumerates the videos of a channel or playlist through a
// server push channel.
package discovery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/zen-downloader/zen/internal/core"
	"github.com/zen-downloader/zen/internal/engine/events"
	"github.com/zen-downloader/zen/internal/engine/stream"
	"github.com/zen-downloader/zen/internal/session"
	"github.com/zen-downloader/zen/internal/validation"
)

const (
	DefaultMaxVideos = 50
	MaxVideosLimit   = 500
)

var (
	// ErrNoSession is returned by Collect when no discovery is attached.
	ErrNoSession = errors.New("no discovery in progress")

	// ErrSuperseded is returned by Collect when a newer discovery replaced
	// the one being collected.
	ErrSuperseded = errors.New("discovery superseded by a newer session")
)

// Error is a failure reported by the server on the discovery channel.
type Error struct {
	SessionID string
	Message   string
}

func (e *Error) Error() string {
	return e.Message
}

// Verbatim marks the message for display as is.
func (e *Error) Verbatim() bool {
	return true
}

// Reader starts discovery sessions and collects their results into the
// shared session.
type Reader struct {
	svc    core.Service
	sess   *session.Session
	events chan<- any
	logger *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithEvents forwards every message to ch without blocking.
func WithEvents(ch chan<- any) Option {
	return func(r *Reader) {
		r.events = ch
	}
}

// WithLogger sets the reader's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = l
	}
}

// NewReader creates a discovery reader sharing sess with the other components.
func NewReader(svc core.Service, sess *session.Session, opts ...Option) *Reader {
	r := &Reader{
		svc:    svc,
		sess:   sess,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StreamPath is the push channel path of a discovery session.
func StreamPath(sessionID string) string {
	return "/api/discover/" + sessionID
}

// Start begins a discovery and attaches its channel, closing any previous
// one. maxVideos outside 1..MaxVideosLimit falls back to the default or the
// limit.
func (r *Reader) Start(ctx context.Context, url string, maxVideos int) (string, error) {
	url = strings.TrimSpace(url)
	if err := validation.MediaURL(url); err != nil {
		return "", err
	}
	switch {
	case maxVideos <= 0:
		maxVideos = DefaultMaxVideos
	case maxVideos > MaxVideosLimit:
		maxVideos = MaxVideosLimit
	}

	id, err := r.svc.StartDiscovery(ctx, url, maxVideos)
	if err != nil {
		return "", err
	}

	r.sess.BeginDiscovery(id)
	sub, err := stream.Subscribe(ctx, r.svc, id, StreamPath(id), events.DiscoveryDecoder(id))
	if err != nil {
		return id, err
	}
	r.sess.DiscoverySlot.Attach(sub)
	r.logger.Debug("discovery started", "session_id", id, "url", url, "max_videos", maxVideos)
	return id, nil
}

// Collect consumes the attached channel until the server reports completion
// or failure, and returns the accumulated session. Completion is driven only
// by the channel.
func (r *Reader) Collect(ctx context.Context) (session.Discovery, error) {
	sub := r.sess.DiscoverySlot.Active()
	if sub == nil {
		return session.Discovery{}, ErrNoSession
	}
	id := sub.ID()

	stop := context.AfterFunc(ctx, func() { _ = sub.Close() })
	defer stop()

	for {
		msg, err := sub.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if ctx.Err() != nil {
					return r.sess.Discovery(), ctx.Err()
				}
				return r.sess.Discovery(), ErrSuperseded
			}
			return r.sess.Discovery(), err
		}

		switch m := msg.(type) {
		case events.DiscoveryVideoMsg:
			count, ok := r.sess.AddDiscovered(id, m.Video)
			if !ok {
				continue
			}
			m.Count = count
			r.emit(m)
		case events.DiscoveryCompleteMsg:
			r.sess.FinishDiscovery(id, m.Count, "")
			r.emit(m)
			return r.sess.Discovery(), nil
		case events.DiscoveryErrorMsg:
			r.sess.FinishDiscovery(id, 0, m.Err.Error())
			r.emit(m)
			return r.sess.Discovery(), &Error{SessionID: id, Message: m.Err.Error()}
		}
	}
}

// Run starts a discovery and collects it.
func (r *Reader) Run(ctx context.Context, url string, maxVideos int) (session.Discovery, error) {
	if _, err := r.Start(ctx, url, maxVideos); err != nil {
		return session.Discovery{}, err
	}
	return r.Collect(ctx)
}

func (r *Reader) emit(msg any) {
	if r.events == nil {
		return
	}
	select {
	case r.events <- msg:
	default:
	}
}
