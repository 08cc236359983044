package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/zen-downloader/zen/internal/config"
)

// ErrAlreadyWatching is returned when another process polls the queue.
var ErrAlreadyWatching = errors.New("another zen process is already watching the queue")

// AcquireLock takes the per-config-dir poller lock without blocking.
func AcquireLock() (*flock.Flock, error) {
	path := config.GetLockPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock dir: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrAlreadyWatching
	}
	return fl, nil
}

// ReleaseLock releases a lock taken by AcquireLock.
func ReleaseLock(fl *flock.Flock) error {
	if fl == nil {
		return nil
	}
	return fl.Unlock()
}
