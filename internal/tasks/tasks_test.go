package tasks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/soracane/lastgen/internal/history"
	"github.com/soracane/lastgen/internal/services"
	"github.com/soracane/lastgen/internal/shared"
)

// stubFetcher satisfies history.Fetcher for engines running purely off the cache.
type stubFetcher struct{}

func (stubFetcher) UserExists(ctx context.Context, user string) error { return nil }
func (stubFetcher) Scrobbles(ctx context.Context, user string, since, until int64) ([]history.Event, error) {
	return nil, nil
}

type mockCatalog struct {
	profile       services.SpotifyUser
	playlists     []services.SpotifyPlaylist
	features      []services.AudioFeatures
	created       []string
	addedURIs     map[string][]string
	cleared       []string
	redescribed   []string
	createErr     error
	featuresErr   error
	nextID        int
}

func (m *mockCatalog) UserProfile(ctx context.Context) (*services.SpotifyUser, error) {
	return &m.profile, nil
}

func (m *mockCatalog) GetPlaylists(ctx context.Context) ([]services.SpotifyPlaylist, error) {
	return m.playlists, nil
}

func (m *mockCatalog) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*services.SpotifyPlaylist, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	m.created = append(m.created, name)
	return &services.SpotifyPlaylist{ID: fmt.Sprintf("pl%d", m.nextID), Name: name}, nil
}

func (m *mockCatalog) ChangePlaylistDetails(ctx context.Context, playlistID, description string) error {
	m.redescribed = append(m.redescribed, playlistID)
	return nil
}

func (m *mockCatalog) AddPlaylistItems(ctx context.Context, playlistID string, uris []string) error {
	if m.addedURIs == nil {
		m.addedURIs = make(map[string][]string)
	}
	m.addedURIs[playlistID] = append(m.addedURIs[playlistID], uris...)
	return nil
}

func (m *mockCatalog) ClearPlaylist(ctx context.Context, playlistID string) error {
	m.cleared = append(m.cleared, playlistID)
	return nil
}

func (m *mockCatalog) GetAudioFeatures(ctx context.Context, ids []string) ([]services.AudioFeatures, error) {
	if m.featuresErr != nil {
		return nil, m.featuresErr
	}
	return m.features, nil
}

// mockResolver maps every title to a synthetic URI, failing listed titles.
// Titles present in uris resolve to that URI instead.
type mockResolver struct {
	failing map[string]bool
	uris    map[string]string
	calls   int
}

func (m *mockResolver) Resolve(ctx context.Context, title, artist string) (string, error) {
	m.calls++
	if m.failing[title] {
		return "", fmt.Errorf("%w: %s", shared.ErrNoMatch, title)
	}
	if uri, ok := m.uris[title]; ok {
		return uri, nil
	}
	return "spotify:track:" + title, nil
}

func testGenerator() shared.GeneratorConfig {
	return shared.GeneratorConfig{
		TrackCount:      45,
		PrimaryLocale:   "ja",
		SecondaryLocale: "en",
		UTCOffsetHours:  9,
	}
}

// seedHistory writes a cache for user and returns the backing service.
func seedHistory(t *testing.T, user string, events []history.Event) *history.Service {
	t.Helper()
	cache := history.NewCache(t.TempDir(), nil)
	if err := cache.Write(user, events); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	return history.NewService(stubFetcher{}, cache, nil)
}

func tsAt(year int, month time.Month, day int) int64 {
	loc := testGenerator().Location()
	return time.Date(year, month, day, 12, 0, 0, 0, loc).Unix()
}

func TestTopTracksRanksAndResolves(t *testing.T) {
	// Newest first, as the cache stores them.
	events := []history.Event{
		{Title: "Out Of Window", Artist: "Band", Timestamp: tsAt(2024, time.March, 1)},
		{Title: "Hit", Artist: "Band", Timestamp: tsAt(2024, time.February, 10)},
		{Title: "Hit", Artist: "Band", Timestamp: tsAt(2024, time.February, 5)},
		{Title: "Hit", Artist: "Band", Timestamp: tsAt(2024, time.January, 20)},
		{Title: "Deep Cut", Artist: "Band", Timestamp: tsAt(2024, time.January, 10)},
	}

	resolver := &mockResolver{}
	engine := NewEngine(seedHistory(t, "alice", events), &mockCatalog{}, resolver, nil, testGenerator(), nil)

	result, err := engine.TopTracks(context.Background(), nil, "alice", 2024, time.January, TopTracksOpts{})
	if err != nil {
		t.Fatalf("TopTracks: %v", err)
	}

	if len(result.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(result.Tracks))
	}
	if result.Tracks[0].Key.Title != "Hit" || result.Tracks[0].Count != 3 {
		t.Errorf("top track = %+v, want Hit with 3 plays", result.Tracks[0])
	}
	if result.Tracks[1].Key.Title != "Deep Cut" {
		t.Errorf("second track = %+v", result.Tracks[1])
	}
	if result.Tracks[0].URI != "spotify:track:Hit" {
		t.Errorf("URI = %q", result.Tracks[0].URI)
	}
}

func TestTopTracksSkipsUnresolved(t *testing.T) {
	events := []history.Event{
		{Title: "Obscure", Artist: "Band", Timestamp: tsAt(2024, time.January, 15)},
		{Title: "Known", Artist: "Band", Timestamp: tsAt(2024, time.January, 10)},
	}

	resolver := &mockResolver{failing: map[string]bool{"Obscure": true}}
	engine := NewEngine(seedHistory(t, "alice", events), &mockCatalog{}, resolver, nil, testGenerator(), nil)

	result, err := engine.TopTracks(context.Background(), nil, "alice", 2024, time.January, TopTracksOpts{})
	if err != nil {
		t.Fatalf("TopTracks: %v", err)
	}
	if len(result.Tracks) != 1 || result.Tracks[0].Key.Title != "Known" {
		t.Errorf("tracks = %+v, want only Known", result.Tracks)
	}
	if result.Unresolved != 1 {
		t.Errorf("Unresolved = %d, want 1", result.Unresolved)
	}
}

func TestTopTracksDeduplicatesURIs(t *testing.T) {
	// Case-variant titles the catalog maps to one track must land in the
	// playlist once, and the duplicate must not consume a slot.
	events := []history.Event{
		{Title: "SONG", Artist: "Band", Timestamp: tsAt(2024, time.February, 10)},
		{Title: "Song", Artist: "Band", Timestamp: tsAt(2024, time.February, 5)},
		{Title: "Other", Artist: "Band", Timestamp: tsAt(2024, time.January, 20)},
	}

	resolver := &mockResolver{uris: map[string]string{
		"SONG": "spotify:track:one",
		"Song": "spotify:track:one",
	}}
	engine := NewEngine(seedHistory(t, "alice", events), &mockCatalog{}, resolver, nil, testGenerator(), nil)

	result, err := engine.TopTracks(context.Background(), nil, "alice", 2024, time.January, TopTracksOpts{Count: 2})
	if err != nil {
		t.Fatalf("TopTracks: %v", err)
	}

	if len(result.Tracks) != 2 {
		t.Fatalf("tracks = %+v, want 2 distinct URIs", result.Tracks)
	}
	if result.Tracks[0].URI != "spotify:track:one" || result.Tracks[1].URI != "spotify:track:Other" {
		t.Errorf("URIs = %q, %q; duplicate crowded out a distinct track",
			result.Tracks[0].URI, result.Tracks[1].URI)
	}
	if result.Unresolved != 0 {
		t.Errorf("Unresolved = %d, want 0 (duplicates are resolved, just merged)", result.Unresolved)
	}
}

func TestTopTracksHonorsCount(t *testing.T) {
	var events []history.Event
	for i := 0; i < 10; i++ {
		events = append(events, history.Event{
			Title:     fmt.Sprintf("Track %02d", i),
			Artist:    "Band",
			Timestamp: tsAt(2024, time.January, 20) - int64(i),
		})
	}

	resolver := &mockResolver{}
	engine := NewEngine(seedHistory(t, "alice", events), &mockCatalog{}, resolver, nil, testGenerator(), nil)

	result, err := engine.TopTracks(context.Background(), nil, "alice", 2024, time.January, TopTracksOpts{Count: 3})
	if err != nil {
		t.Fatalf("TopTracks: %v", err)
	}
	if len(result.Tracks) != 3 {
		t.Errorf("tracks = %d, want 3", len(result.Tracks))
	}
	if resolver.calls != 3 {
		t.Errorf("resolver calls = %d, want 3 (no resolution past the cap)", resolver.calls)
	}
}

func TestTopTracksProgressUpdates(t *testing.T) {
	events := []history.Event{
		{Title: "Hit", Artist: "Band", Timestamp: tsAt(2024, time.January, 15)},
	}

	engine := NewEngine(seedHistory(t, "alice", events), &mockCatalog{}, &mockResolver{}, nil, testGenerator(), nil)

	progress := make(chan ProgressUpdate, 50)
	if _, err := engine.TopTracks(context.Background(), progress, "alice", 2024, time.January, TopTracksOpts{}); err != nil {
		t.Fatalf("TopTracks: %v", err)
	}
	close(progress)

	phases := map[Phase]bool{}
	for update := range progress {
		phases[update.Phase] = true
	}
	for _, want := range []Phase{FetchHistory, CountPlays, ResolveTracks} {
		if !phases[want] {
			t.Errorf("missing progress phase %s", want)
		}
	}
}
