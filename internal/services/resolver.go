package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/soracane/lastgen/internal/shared"
)

// searchLimit is the candidate count requested per catalog search.
const searchLimit = 20

// Resolver maps a (title, artist) pair to a catalog track URI.
//
// Catalog search is not exact-match: localized releases index the same track
// under different display names per language, so the resolver queries each
// configured locale in turn and keeps the first that produces a usable
// candidate.
type Resolver struct {
	searcher TrackSearcher
	locales  []string
	logger   *log.Logger
}

// NewResolver creates a resolver that searches primary first, then secondary.
func NewResolver(searcher TrackSearcher, primary, secondary string, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	locales := make([]string, 0, 2)
	for _, l := range []string{primary, secondary} {
		if l != "" {
			locales = append(locales, l)
		}
	}
	if len(locales) == 0 {
		locales = []string{"en"}
	}

	return &Resolver{searcher: searcher, locales: locales, logger: logger}
}

// Resolve returns the track URI for the given title and artist, or
// [shared.ErrNoMatch] when no candidate survives disambiguation in any locale.
func (r *Resolver) Resolve(ctx context.Context, title, artist string) (string, error) {
	query := title + " " + artist

	for _, locale := range r.locales {
		candidates, err := r.searcher.SearchTracks(ctx, query, searchLimit, locale)
		if err != nil {
			r.logger.Error("catalog search failed", "locale", locale, "title", title, "artist", artist, "error", err)
			continue
		}

		if track := selectCandidate(candidates, title, artist); track != nil {
			return track.URI, nil
		}
	}

	return "", fmt.Errorf("%w: %s - %s", shared.ErrNoMatch, artist, title)
}

// matchesExactly reports whether the candidate's name and primary artist both
// equal the wanted values, ignoring case.
func matchesExactly(track SpotifyTrack, title, artist string) bool {
	if !strings.EqualFold(track.Name, title) {
		return false
	}
	return len(track.Artists) > 0 && strings.EqualFold(track.Artists[0].Name, artist)
}

// albumArtistMatches reports whether the release's primary artist equals the
// track artist, ignoring case. Fails for releases without artists (rare
// catalog gaps) and for various-artists releases, whose album artist differs.
func albumArtistMatches(track SpotifyTrack, artist string) bool {
	return len(track.Album.Artists) > 0 && strings.EqualFold(track.Album.Artists[0].Name, artist)
}

// selectCandidate picks the canonical release among candidates that exactly
// match the wanted title and artist.
//
// Preference order:
//  1. a track on the artist's own full-length album (first one wins);
//  2. failing that, the non-compilation release by the artist with the most
//     tracks, favoring albums and EPs over singles;
//  3. failing that, the first exact match of any kind.
//
// Returns nil when nothing matches exactly.
func selectCandidate(candidates []SpotifyTrack, title, artist string) *SpotifyTrack {
	var matched []SpotifyTrack
	for _, c := range candidates {
		if matchesExactly(c, title, artist) {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	for i := range matched {
		if matched[i].Album.AlbumType == "album" && albumArtistMatches(matched[i], artist) {
			return &matched[i]
		}
	}

	var best *SpotifyTrack
	maxTracks := 0
	for i := range matched {
		c := &matched[i]
		if c.Album.AlbumType != "compilation" && albumArtistMatches(*c, artist) && c.Album.TotalTracks > maxTracks {
			best = c
			maxTracks = c.Album.TotalTracks
		}
	}
	if best != nil {
		return best
	}

	return &matched[0]
}
