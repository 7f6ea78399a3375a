// package tasks implements playlist generation from listening history.
//
// The core abstraction is Engine, which orchestrates history refreshes, play
// counting, catalog resolution, and playlist assembly. Operations emit
// progress updates via channels for non-blocking status reporting to CLI/UI
// layers.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soracane/lastgen/internal/history"
	"github.com/soracane/lastgen/internal/services"
	"github.com/soracane/lastgen/internal/shared"
)

// Catalog is the slice of the Spotify client the engine depends on.
// This abstraction allows for easier testing and decoupling from concrete implementation.
type Catalog interface {
	UserProfile(ctx context.Context) (*services.SpotifyUser, error)
	GetPlaylists(ctx context.Context) ([]services.SpotifyPlaylist, error)
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*services.SpotifyPlaylist, error)
	ChangePlaylistDetails(ctx context.Context, playlistID, description string) error
	AddPlaylistItems(ctx context.Context, playlistID string, uris []string) error
	ClearPlaylist(ctx context.Context, playlistID string) error
	GetAudioFeatures(ctx context.Context, ids []string) ([]services.AudioFeatures, error)
}

// TrackResolver maps a (title, artist) pair to a catalog track URI.
type TrackResolver interface {
	Resolve(ctx context.Context, title, artist string) (string, error)
}

// RankedTrack pairs a resolved catalog URI with its play-count identity.
type RankedTrack struct {
	Key   history.Key
	Count int
	URI   string
}

// TopTracksResult contains all data from a top-tracks computation.
type TopTracksResult struct {
	Period     string        // Human-readable window label
	Since      int64         // Window lower bound (inclusive)
	Until      int64         // Window upper bound (exclusive)
	Tracks     []RankedTrack // Resolved tracks, most-played first
	Unresolved int           // Distinct tracks that matched nothing in the catalog
}

// Engine orchestrates playlist generation.
type Engine struct {
	history  *history.Service
	catalog  Catalog
	resolver TrackResolver
	store    *ResolvedStore
	cfg      shared.GeneratorConfig
	logger   *log.Logger
}

// NewEngine creates an Engine with the provided services. store may be nil,
// in which case resolutions are not memoized.
func NewEngine(historySvc *history.Service, catalog Catalog, resolver TrackResolver, store *ResolvedStore, cfg shared.GeneratorConfig, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		history:  historySvc,
		catalog:  catalog,
		resolver: resolver,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// resolve maps an identity to a catalog URI, consulting the memo store first.
func (e *Engine) resolve(ctx context.Context, title, artist string) (string, error) {
	if e.store != nil {
		if uri, ok, err := e.store.Lookup(ctx, title, artist); err != nil {
			e.logger.Warn("memo lookup failed", "title", title, "error", err)
		} else if ok {
			return uri, nil
		}
	}

	uri, err := e.resolver.Resolve(ctx, title, artist)
	if err != nil {
		return "", err
	}

	if e.store != nil {
		if err := e.store.Save(ctx, title, artist, uri); err != nil {
			e.logger.Warn("memo save failed", "title", title, "error", err)
		}
	}
	return uri, nil
}

// TopTracksOpts control a top-tracks computation.
type TopTracksOpts struct {
	Update  bool // refresh the history cache first
	Refetch bool // discard and refetch the entire history first
	Count   int  // max tracks returned; 0 means the configured track_count
}

// TopTracks computes the most-played tracks of the two-month window starting
// at startMonth and resolves them against the catalog, most-played first.
// Tracks the catalog cannot match are skipped and counted in Unresolved.
// Distinct identities resolving to the same catalog track (case-variant
// titles, retagged albums) are merged: each URI appears at most once and
// duplicates do not consume a slot.
func (e *Engine) TopTracks(ctx context.Context, progress chan<- ProgressUpdate, user string, year int, startMonth time.Month, opts TopTracksOpts) (*TopTracksResult, error) {
	if e.history == nil {
		return nil, fmt.Errorf("%w: history service not initialized", shared.ErrServiceUnavailable)
	}
	if e.resolver == nil {
		return nil, fmt.Errorf("%w: resolver not initialized", shared.ErrServiceUnavailable)
	}

	count := opts.Count
	if count <= 0 {
		count = e.cfg.TrackCount
	}

	loc := e.cfg.Location()
	since, until := history.BimonthRange(year, startMonth, loc)
	period := fmt.Sprintf("%d-%02d/%02d", year, int(startMonth), int(startMonth)+1)

	e.sendProgress(progress, fetchHistoryUpdate(user))

	counter, err := e.history.Counter(ctx, user, since, until, history.CountOpts{
		IgnoreAlbum: true,
		Update:      opts.Update,
		Refetch:     opts.Refetch,
	})
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, countPlaysUpdate(period, counter.Len()))

	result := &TopTracksResult{Period: period, Since: since, Until: until}
	ranked := counter.MostCommon()
	seen := make(map[string]bool, count)

	total := min(len(ranked), count)
	for i, entry := range ranked {
		if len(result.Tracks) >= count {
			break
		}

		step := min(i+1, total)
		e.sendProgress(progress, resolveTrackUpdate(step, total, entry.Key.Artist, entry.Key.Title))

		uri, err := e.resolve(ctx, entry.Key.Title, entry.Key.Artist)
		if err != nil {
			result.Unresolved++
			e.logger.Warn("track not resolved", "artist", entry.Key.Artist, "title", entry.Key.Title, "error", err)
			e.sendProgress(progress, resolveFailedUpdate(step, total, entry.Key.Artist, entry.Key.Title))
			continue
		}

		if seen[uri] {
			e.logger.Debug("already in playlist, skipping", "artist", entry.Key.Artist, "title", entry.Key.Title, "uri", uri)
			continue
		}
		seen[uri] = true

		result.Tracks = append(result.Tracks, RankedTrack{Key: entry.Key, Count: entry.Count, URI: uri})
	}

	e.logger.Info("top tracks resolved", "user", user, "period", period,
		"resolved", len(result.Tracks), "unresolved", result.Unresolved)
	return result, nil
}
