// Package settings reads and writes the server-side user preferences.
package settings

import (
	"context"
	"errors"

	"github.com/zen-downloader/zen/internal/core"
	"github.com/zen-downloader/zen/internal/engine/types"
	"github.com/zen-downloader/zen/internal/session"
	"github.com/zen-downloader/zen/internal/validation"
)

// ErrNothingToSave is returned by Save for an empty update.
var ErrNothingToSave = errors.New("no settings to update")

// Store caches the server preferences in the session. The cache only ever
// holds what the server returned.
type Store struct {
	svc  core.Service
	sess *session.Session
}

// NewStore creates a settings store.
func NewStore(svc core.Service, sess *session.Session) *Store {
	return &Store{svc: svc, sess: sess}
}

// Load fetches the preferences and replaces the cache.
func (s *Store) Load(ctx context.Context) (types.Settings, error) {
	settings, err := s.svc.GetSettings(ctx)
	if err != nil {
		return types.Settings{}, err
	}
	s.sess.SetSettings(*settings)
	return *settings, nil
}

// Save applies a partial update. The server's echo becomes the cache as is.
func (s *Store) Save(ctx context.Context, update types.SettingsUpdate) (types.Settings, error) {
	if update.IsEmpty() {
		return types.Settings{}, ErrNothingToSave
	}
	if err := validation.Struct(update); err != nil {
		return types.Settings{}, err
	}

	settings, err := s.svc.SaveSettings(ctx, update)
	if err != nil {
		return types.Settings{}, err
	}
	s.sess.SetSettings(*settings)
	return *settings, nil
}

// Cached returns the last server value, or false before the first load.
func (s *Store) Cached() (types.Settings, bool) {
	cached := s.sess.Settings()
	if cached == nil {
		return types.Settings{}, false
	}
	return *cached, true
}
