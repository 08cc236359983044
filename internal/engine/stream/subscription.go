// Package stream consumes server push channels as finite, ordered sequences
// of typed messages.
package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrDropped is returned when the channel ends before a terminal event.
// There is no reconnect; the caller keeps whatever state it had.
var ErrDropped = errors.New("push channel closed before a terminal event")

// Opener opens a push channel body for a server path.
type Opener interface {
	OpenStream(ctx context.Context, path string) (io.ReadCloser, error)
}

// Decoder turns one frame payload into a message. A nil message is skipped.
// terminal ends the subscription after the message is delivered.
type Decoder func(data []byte) (msg any, terminal bool, err error)

// Subscription is a live push channel for one task or session. Messages are
// read in server order by whoever calls Next; it is not safe to call Next
// from more than one goroutine.
type Subscription struct {
	id     string
	body   io.ReadCloser
	reader *Reader
	decode Decoder
	cancel context.CancelFunc
	logger *slog.Logger

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

// Subscribe opens path and returns a subscription decoding with decode.
func Subscribe(ctx context.Context, opener Opener, id, path string, decode Decoder) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	body, err := opener.OpenStream(ctx, path)
	if err != nil {
		cancel()
		return nil, err
	}
	return newSubscription(id, body, decode, cancel), nil
}

// FromReader builds a subscription over an already open body, e.g. a
// scripted sequence in tests.
func FromReader(id string, body io.ReadCloser, decode Decoder) *Subscription {
	return newSubscription(id, body, decode, func() {})
}

func newSubscription(id string, body io.ReadCloser, decode Decoder, cancel context.CancelFunc) *Subscription {
	return &Subscription{
		id:     id,
		body:   body,
		reader: NewReader(body),
		decode: decode,
		cancel: cancel,
		logger: slog.Default(),
	}
}

// ID is the task or session identifier the channel is scoped to.
func (s *Subscription) ID() string {
	return s.id
}

// Next blocks for the next message. After a terminal message, or once the
// subscription is closed, it returns io.EOF. A channel that ends early
// yields ErrDropped.
func (s *Subscription) Next() (any, error) {
	for {
		if s.closed.Load() {
			return nil, io.EOF
		}

		frame, err := s.reader.Next()
		if err != nil {
			if s.closed.Load() {
				return nil, io.EOF
			}
			_ = s.Close()
			if err == io.EOF {
				return nil, ErrDropped
			}
			return nil, err
		}

		msg, terminal, err := s.decode(frame.Data)
		if err != nil {
			s.logger.Debug("skipping malformed push frame", "id", s.id, "error", err)
			continue
		}
		if terminal {
			_ = s.Close()
		}
		if msg == nil {
			continue
		}
		return msg, nil
	}
}

// Close releases the connection. It is safe to call more than once; the
// body is closed exactly once.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

// Closed reports whether Close has run.
func (s *Subscription) Closed() bool {
	return s.closed.Load()
}
