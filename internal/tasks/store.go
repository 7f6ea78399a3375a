package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soracane/lastgen/internal/shared"
)

// ResolvedStore memoizes (title, artist) → track URI resolutions in sqlite so
// repeated playlist runs skip catalog searches for tracks already resolved.
type ResolvedStore struct {
	db     *sql.DB
	logger *log.Logger
}

// NewResolvedStore creates a store backed by the given database.
func NewResolvedStore(db *sql.DB, logger *log.Logger) *ResolvedStore {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ResolvedStore{db: db, logger: logger}
}

// Lookup returns the memoized URI for the pair, or ok=false when absent.
func (s *ResolvedStore) Lookup(ctx context.Context, title, artist string) (string, bool, error) {
	var uri string
	err := s.db.QueryRowContext(ctx,
		"SELECT uri FROM resolved_tracks WHERE title = ? AND artist = ?",
		title, artist,
	).Scan(&uri)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query resolved track: %w", err)
	}
	return uri, true, nil
}

// Save memoizes a resolution, replacing any previous URI for the pair.
func (s *ResolvedStore) Save(ctx context.Context, title, artist, uri string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO resolved_tracks (title, artist, uri, resolved_at) VALUES (?, ?, ?, ?)",
		title, artist, uri, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save resolved track: %w", err)
	}
	return nil
}
