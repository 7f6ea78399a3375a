package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/soracane/lastgen/internal/shared"
)

// Fetcher retrieves scrobbles from the remote tracking service.
//
// Implemented by the Last.fm client in internal/services.
type Fetcher interface {
	// UserExists verifies the user identity with the remote service.
	UserExists(ctx context.Context, user string) error

	// Scrobbles fetches all events with since <= timestamp <= until, newest first.
	// Zero bounds mean an open-ended range.
	Scrobbles(ctx context.Context, user string, since, until int64) ([]Event, error)
}

// Cache is the durable per-user scrobble store: one JSON file per user,
// events newest-first. Concurrent writers for the same user are not
// supported; callers serialize access.
type Cache struct {
	dir    string
	logger *log.Logger
}

// NewCache creates a cache rooted at dir; files live under dir/scrobbles/.
func NewCache(dir string, logger *log.Logger) *Cache {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Cache{dir: dir, logger: logger}
}

// Path returns the cache file location for a user.
func (c *Cache) Path(user string) string {
	return filepath.Join(c.dir, "scrobbles", user+".json")
}

// Exists reports whether a durable cache exists for the user.
func (c *Cache) Exists(user string) bool {
	_, err := os.Stat(c.Path(user))
	return err == nil
}

// Read returns the cached history for the user, newest first.
// Returns [shared.ErrCacheMissing] when no cache file exists.
func (c *Cache) Read(user string) ([]Event, error) {
	data, err := os.ReadFile(c.Path(user))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: user %s", shared.ErrCacheMissing, user)
		}
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("cache file %s is corrupt: %w", c.Path(user), err)
	}

	return events, nil
}

// Write replaces the user's durable state with the given sequence.
//
// The sequence is assembled fully in memory by the caller and written to a
// temp file that is renamed into place, so a reader never observes a partial
// write.
func (c *Cache) Write(user string, events []Event) error {
	path := c.Path(user)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), user+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	c.logger.Debug("cache written", "user", user, "events", len(events))
	return nil
}

// Service combines the remote fetcher with the local cache.
type Service struct {
	fetcher Fetcher
	cache   *Cache
	logger  *log.Logger
}

// NewService creates a history service backed by the given fetcher and cache.
func NewService(fetcher Fetcher, cache *Cache, logger *log.Logger) *Service {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Service{fetcher: fetcher, cache: cache, logger: logger}
}

// Cache exposes the underlying store (for read-only inspection in the CLI/TUI).
func (s *Service) Cache() *Cache {
	return s.cache
}

// History returns the user's scrobbles, newest first.
//
// With refetch set, any existing durable state is discarded and the entire
// history is fetched anew. With update set, only events newer than the cached
// head are fetched and prepended. With neither, the durable state is returned
// unchanged and a missing cache is an error.
func (s *Service) History(ctx context.Context, user string, update, refetch bool) ([]Event, error) {
	if update || refetch {
		if err := s.refresh(ctx, user, refetch); err != nil {
			return nil, err
		}
	}

	return s.cache.Read(user)
}

// refresh fetches remote events and rewrites the durable state.
// The user identity is verified before any fetch; on failure no mutation occurs.
func (s *Service) refresh(ctx context.Context, user string, refetch bool) error {
	if err := s.fetcher.UserExists(ctx, user); err != nil {
		return err
	}

	var existing []Event
	var since int64

	if !refetch && s.cache.Exists(user) {
		cached, err := s.cache.Read(user)
		if err != nil {
			return err
		}
		existing = cached
		if len(cached) > 0 {
			since = cached[0].Timestamp + 1
		}
	}

	fetched, err := s.fetcher.Scrobbles(ctx, user, since, 0)
	if err != nil {
		return err
	}

	if len(fetched) == 0 && existing != nil {
		s.logger.Debug("no new scrobbles", "user", user)
		return nil
	}

	// Fetched events are newer than everything cached, so the merge is a
	// plain prepend; existing entries keep their order.
	merged := append(fetched, existing...)
	return s.cache.Write(user, merged)
}
