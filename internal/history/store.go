// Package history keeps a local record of saved artifacts in SQLite.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zen-downloader/zen/internal/engine/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id    TEXT    NOT NULL,
	url        TEXT    NOT NULL,
	url_hash   TEXT    NOT NULL,
	filename   TEXT    NOT NULL,
	path       TEXT    NOT NULL,
	size       INTEGER NOT NULL DEFAULT 0,
	saved_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS downloads_url_hash ON downloads(url_hash);
`

// URLHash returns a short hash of the URL for lookups by source.
func URLHash(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:8]) // 16 chars
}

// Store is the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	// A single connection serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate history: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends an entry.
func (s *Store) Record(ctx context.Context, e types.HistoryEntry) error {
	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO downloads (task_id, url, url_hash, filename, path, size, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.TaskID, e.URL, URLHash(e.URL), e.Filename, e.Path, e.Size, e.SavedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// List returns the newest entries first. limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	query := `SELECT id, task_id, url, filename, path, size, saved_at FROM downloads ORDER BY saved_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// FindByURL returns every entry saved from url, newest first.
func (s *Store) FindByURL(ctx context.Context, url string) ([]types.HistoryEntry, error) {
	return s.query(ctx,
		`SELECT id, task_id, url, filename, path, size, saved_at FROM downloads
		 WHERE url_hash = ? AND url = ? ORDER BY saved_at DESC, id DESC`,
		URLHash(url), url)
}

// Remove deletes one entry. The file on disk is left alone.
func (s *Store) Remove(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM downloads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove history entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("history entry %d not found", id)
	}
	return nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]types.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []types.HistoryEntry
	for rows.Next() {
		var e types.HistoryEntry
		var savedAt int64
		if err := rows.Scan(&e.ID, &e.TaskID, &e.URL, &e.Filename, &e.Path, &e.Size, &savedAt); err != nil {
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		e.SavedAt = time.Unix(savedAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
