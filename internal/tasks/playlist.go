package tasks

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/soracane/lastgen/internal/shared"
)

// GenerateOpts control a bulk playlist generation run.
type GenerateOpts struct {
	SinceYear int  // earliest year to generate for; 0 means the first scrobble's year
	UpdateOld bool // regenerate playlists that already exist
	Public    bool // create playlists as public
	Update    bool // refresh the history cache first
	Refetch   bool // discard and refetch the entire history first
}

// PlaylistRunResult contains all data from a bulk generation run.
type PlaylistRunResult struct {
	Created []string // Names of playlists created
	Updated []string // Names of playlists regenerated in place
	Skipped []string // Names of playlists left untouched
}

// playlistName formats the canonical name of a two-month window's playlist.
// startMonth is the window's first month (January, March, ... November).
func playlistName(year int, startMonth time.Month) string {
	return fmt.Sprintf("%d%02d_Top Tracks %d_#%d", year, int(startMonth), year, int(startMonth)/2+1)
}

// trackIDFromURI extracts the bare id from a "spotify:track:{id}" URI.
func trackIDFromURI(uri string) string {
	return uri[strings.LastIndex(uri, ":")+1:]
}

// orderByTempo sorts the URIs by ascending track tempo, then rotates the
// sequence by a random offset so consecutive playlists don't all open with
// their slowest track. URIs without audio features sort first.
func (e *Engine) orderByTempo(ctx context.Context, uris []string) ([]string, error) {
	if len(uris) < 2 {
		return uris, nil
	}

	ids := make([]string, len(uris))
	for i, uri := range uris {
		ids[i] = trackIDFromURI(uri)
	}

	features, err := e.catalog.GetAudioFeatures(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch audio features: %v", shared.ErrAPIRequest, err)
	}

	tempo := make(map[string]float64, len(features))
	for _, f := range features {
		tempo[f.ID] = f.Tempo
	}

	ordered := make([]string, len(uris))
	copy(ordered, uris)
	sort.SliceStable(ordered, func(i, j int) bool {
		return tempo[trackIDFromURI(ordered[i])] < tempo[trackIDFromURI(ordered[j])]
	})

	offset := rand.Intn(len(ordered))
	return append(ordered[offset:], ordered[:offset]...), nil
}

// generateOne assembles the playlist for one two-month window. existing maps
// playlist name to id for playlists the user already owns.
func (e *Engine) generateOne(ctx context.Context, progress chan<- ProgressUpdate, userID, user string, year int, startMonth time.Month, existing map[string]string, opts GenerateOpts, result *PlaylistRunResult) error {
	name := playlistName(year, startMonth)

	playlistID, exists := existing[name]
	if exists && !opts.UpdateOld {
		e.sendProgress(progress, skipPlaylistUpdate(name))
		result.Skipped = append(result.Skipped, name)
		return nil
	}

	top, err := e.TopTracks(ctx, progress, user, year, startMonth, TopTracksOpts{})
	if err != nil {
		return err
	}
	if len(top.Tracks) == 0 {
		e.logger.Info("no plays in window, skipping", "playlist", name)
		result.Skipped = append(result.Skipped, name)
		return nil
	}

	uris := make([]string, len(top.Tracks))
	for i, t := range top.Tracks {
		uris[i] = t.URI
	}

	e.sendProgress(progress, sortTracksUpdate(len(uris)))
	ordered, err := e.orderByTempo(ctx, uris)
	if err != nil {
		e.logger.Warn("tempo ordering unavailable, keeping play-count order", "playlist", name, "error", err)
		ordered = uris
	}

	description := fmt.Sprintf("%s most played, generated %s", top.Period, time.Now().In(e.cfg.Location()).Format("2006-01-02"))

	if exists {
		if err := e.catalog.ClearPlaylist(ctx, playlistID); err != nil {
			return fmt.Errorf("failed to clear playlist %s: %w", name, err)
		}
		if err := e.catalog.ChangePlaylistDetails(ctx, playlistID, description); err != nil {
			return fmt.Errorf("failed to update playlist %s: %w", name, err)
		}
		result.Updated = append(result.Updated, name)
	} else {
		e.sendProgress(progress, createPlaylistUpdate(name))
		playlist, err := e.catalog.CreatePlaylist(ctx, userID, name, description, opts.Public)
		if err != nil {
			return fmt.Errorf("failed to create playlist %s: %w", name, err)
		}
		playlistID = playlist.ID
		result.Created = append(result.Created, name)
	}

	if err := e.catalog.AddPlaylistItems(ctx, playlistID, ordered); err != nil {
		return fmt.Errorf("failed to add tracks to %s: %w", name, err)
	}

	e.sendProgress(progress, addTracksUpdate(name, len(ordered)))
	return nil
}

// GenerateWindow assembles the playlist for a single two-month window.
func (e *Engine) GenerateWindow(ctx context.Context, progress chan<- ProgressUpdate, user string, year int, startMonth time.Month, opts GenerateOpts) (*PlaylistRunResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog service not initialized", shared.ErrServiceUnavailable)
	}

	profile, err := e.catalog.UserProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch profile: %v", shared.ErrAPIRequest, err)
	}

	playlists, err := e.catalog.GetPlaylists(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list playlists: %v", shared.ErrAPIRequest, err)
	}
	existing := make(map[string]string, len(playlists))
	for _, p := range playlists {
		existing[p.Name] = p.ID
	}

	result := &PlaylistRunResult{}
	if err := e.generateOne(ctx, progress, profile.ID, user, year, startMonth, existing, opts, result); err != nil {
		return result, err
	}
	return result, nil
}

// GenerateBimonthly creates one top-tracks playlist per two-month window of
// the user's history, from the first scrobble (or opts.SinceYear) through the
// window in progress, which is built from whatever plays it has so far.
// Existing playlists are skipped unless opts.UpdateOld, in which case they
// are cleared and refilled.
func (e *Engine) GenerateBimonthly(ctx context.Context, progress chan<- ProgressUpdate, user string, opts GenerateOpts) (*PlaylistRunResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog service not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, fetchHistoryUpdate(user))
	events, err := e.history.History(ctx, user, opts.Update, opts.Refetch)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: %s has no scrobbles", shared.ErrCacheMissing, user)
	}

	loc := e.cfg.Location()
	// History is newest-first; the last event is the oldest scrobble.
	oldest := time.Unix(events[len(events)-1].Timestamp, 0).In(loc)

	startYear := oldest.Year()
	startMonth := time.Month((int(oldest.Month())-1)/2*2 + 1)
	if opts.SinceYear > 0 && opts.SinceYear > startYear {
		startYear, startMonth = opts.SinceYear, time.January
	}

	profile, err := e.catalog.UserProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch profile: %v", shared.ErrAPIRequest, err)
	}

	playlists, err := e.catalog.GetPlaylists(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list playlists: %v", shared.ErrAPIRequest, err)
	}
	existing := make(map[string]string, len(playlists))
	for _, p := range playlists {
		existing[p.Name] = p.ID
	}

	result := &PlaylistRunResult{}
	now := time.Now().In(loc)

	for year, month := startYear, startMonth; ; {
		windowStart := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		if !windowStart.Before(now) {
			break
		}

		// The bulk run never refetches per window; history is already loaded.
		if err := e.generateOne(ctx, progress, profile.ID, user, year, month, existing, opts, result); err != nil {
			return result, err
		}

		month += 2
		if month > time.December {
			year, month = year+1, time.January
		}
	}

	e.logger.Info("playlist run complete", "user", user,
		"created", len(result.Created), "updated", len(result.Updated), "skipped", len(result.Skipped))
	return result, nil
}
