package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/soracane/lastgen/internal/shared"
)

type mockSearcher struct {
	results map[string][]SpotifyTrack // keyed by locale
	errs    map[string]error
	queries []string
	locales []string
}

func (m *mockSearcher) SearchTracks(ctx context.Context, query string, limit int, locale string) ([]SpotifyTrack, error) {
	m.queries = append(m.queries, query)
	m.locales = append(m.locales, locale)
	if err, ok := m.errs[locale]; ok {
		return nil, err
	}
	return m.results[locale], nil
}

// candidate builds a search result with the given release attributes.
func candidate(name, artist, albumType, albumArtist string, totalTracks int, uri string) SpotifyTrack {
	return SpotifyTrack{
		Name:    name,
		Artists: []SpotifyArtist{{Name: artist}},
		Album: SpotifyAlbum{
			AlbumType:   albumType,
			Artists:     []SpotifyArtist{{Name: albumArtist}},
			TotalTracks: totalTracks,
		},
		URI: uri,
	}
}

func TestSelectCandidateExactMatchOnly(t *testing.T) {
	candidates := []SpotifyTrack{
		candidate("Song (Remix)", "Band", "album", "Band", 10, "spotify:track:remix"),
		candidate("Song", "Other Band", "album", "Other Band", 10, "spotify:track:wrong-artist"),
	}

	if got := selectCandidate(candidates, "Song", "Band"); got != nil {
		t.Errorf("selectCandidate = %v, want nil when nothing matches exactly", got.URI)
	}
}

func TestSelectCandidateCaseInsensitive(t *testing.T) {
	candidates := []SpotifyTrack{
		candidate("SONG", "BAND", "single", "BAND", 1, "spotify:track:caps"),
	}

	got := selectCandidate(candidates, "song", "band")
	if got == nil || got.URI != "spotify:track:caps" {
		t.Errorf("selectCandidate = %v, want case-insensitive match", got)
	}
}

func TestSelectCandidateAlbumPreferred(t *testing.T) {
	candidates := []SpotifyTrack{
		candidate("Song", "Band", "single", "Band", 1, "spotify:track:single"),
		candidate("Song", "Band", "compilation", "Various Artists", 40, "spotify:track:comp"),
		candidate("Song", "Band", "album", "Band", 12, "spotify:track:album"),
		candidate("Song", "Band", "album", "Band", 15, "spotify:track:album2"),
	}

	got := selectCandidate(candidates, "Song", "Band")
	if got == nil || got.URI != "spotify:track:album" {
		t.Errorf("selectCandidate = %v, want first own-album candidate", got)
	}
}

func TestSelectCandidateAlbumRequiresOwnership(t *testing.T) {
	// A full-length release by someone else must not win tier 1.
	candidates := []SpotifyTrack{
		candidate("Song", "Band", "album", "Various Artists", 30, "spotify:track:va-album"),
		candidate("Song", "Band", "single", "Band", 3, "spotify:track:single"),
	}

	got := selectCandidate(candidates, "Song", "Band")
	if got == nil || got.URI != "spotify:track:single" {
		t.Errorf("selectCandidate = %v, want the artist's own single", got)
	}
}

func TestSelectCandidateLargestNonCompilation(t *testing.T) {
	candidates := []SpotifyTrack{
		candidate("Song", "Band", "single", "Band", 2, "spotify:track:small"),
		candidate("Song", "Band", "compilation", "Band", 50, "spotify:track:comp"),
		candidate("Song", "Band", "single", "Band", 6, "spotify:track:ep"),
	}

	got := selectCandidate(candidates, "Song", "Band")
	if got == nil || got.URI != "spotify:track:ep" {
		t.Errorf("selectCandidate = %v, want the largest non-compilation release", got)
	}
}

func TestSelectCandidateFallbackToFirst(t *testing.T) {
	candidates := []SpotifyTrack{
		candidate("Song", "Band", "compilation", "Various Artists", 40, "spotify:track:comp"),
		candidate("Song", "Band", "compilation", "Various Artists", 20, "spotify:track:comp2"),
	}

	got := selectCandidate(candidates, "Song", "Band")
	if got == nil || got.URI != "spotify:track:comp" {
		t.Errorf("selectCandidate = %v, want first exact match as last resort", got)
	}
}

func TestSelectCandidateDeterministic(t *testing.T) {
	candidates := []SpotifyTrack{
		candidate("Song", "Band", "single", "Band", 4, "spotify:track:a"),
		candidate("Song", "Band", "single", "Band", 4, "spotify:track:b"),
	}

	first := selectCandidate(candidates, "Song", "Band")
	for i := 0; i < 10; i++ {
		if got := selectCandidate(candidates, "Song", "Band"); got.URI != first.URI {
			t.Fatalf("selection not deterministic: %s vs %s", got.URI, first.URI)
		}
	}
}

func TestResolvePrimaryLocaleWins(t *testing.T) {
	searcher := &mockSearcher{
		results: map[string][]SpotifyTrack{
			"ja": {candidate("Song", "Band", "album", "Band", 10, "spotify:track:ja")},
			"en": {candidate("Song", "Band", "album", "Band", 10, "spotify:track:en")},
		},
	}
	r := NewResolver(searcher, "ja", "en", nil)

	uri, err := r.Resolve(context.Background(), "Song", "Band")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if uri != "spotify:track:ja" {
		t.Errorf("uri = %q, want the primary-locale result", uri)
	}
	if len(searcher.locales) != 1 || searcher.locales[0] != "ja" {
		t.Errorf("locales queried = %v, want just ja", searcher.locales)
	}
	if searcher.queries[0] != "Song Band" {
		t.Errorf("query = %q, want title and artist joined", searcher.queries[0])
	}
}

func TestResolveFallsBackToSecondaryLocale(t *testing.T) {
	searcher := &mockSearcher{
		results: map[string][]SpotifyTrack{
			"ja": {}, // nothing under the primary locale
			"en": {candidate("Song", "Band", "single", "Band", 1, "spotify:track:en")},
		},
	}
	r := NewResolver(searcher, "ja", "en", nil)

	uri, err := r.Resolve(context.Background(), "Song", "Band")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if uri != "spotify:track:en" {
		t.Errorf("uri = %q, want the secondary-locale result", uri)
	}
	if len(searcher.locales) != 2 {
		t.Errorf("locales queried = %v, want ja then en", searcher.locales)
	}
}

func TestResolveSearchErrorContinues(t *testing.T) {
	searcher := &mockSearcher{
		errs: map[string]error{"ja": fmt.Errorf("%w: down", shared.ErrAPIRequest)},
		results: map[string][]SpotifyTrack{
			"en": {candidate("Song", "Band", "single", "Band", 1, "spotify:track:en")},
		},
	}
	r := NewResolver(searcher, "ja", "en", nil)

	uri, err := r.Resolve(context.Background(), "Song", "Band")
	if err != nil {
		t.Fatalf("Resolve = %v, want fallback past the failed locale", err)
	}
	if uri != "spotify:track:en" {
		t.Errorf("uri = %q", uri)
	}
}

func TestResolveNoMatch(t *testing.T) {
	searcher := &mockSearcher{results: map[string][]SpotifyTrack{}}
	r := NewResolver(searcher, "ja", "en", nil)

	_, err := r.Resolve(context.Background(), "Song", "Band")
	if !errors.Is(err, shared.ErrNoMatch) {
		t.Errorf("Resolve = %v, want ErrNoMatch", err)
	}
}
