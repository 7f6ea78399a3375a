// Spotify API client
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soracane/lastgen/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// chunkSize is the id-count cap on playlist mutation and audio-features calls.
const chunkSize = 100

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents the release containing a track.
// AlbumType is one of "album", "single", "compilation".
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	AlbumType   string          `json:"album_type"`
	Artists     []SpotifyArtist `json:"artists"`
	TotalTracks int             `json:"total_tracks"`
	URI         string          `json:"uri"`
}

// SpotifyTrack represents a candidate track from the catalog.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Album   SpotifyAlbum    `json:"album"`
	URI     string          `json:"uri"`
	Type    string          `json:"type"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksTotal struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      playlistTracksTotal `json:"tracks"`
	URI         string              `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifyPlaylist `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Next   *string           `json:"next"`
}

// SpotifyPlaylistItem represents a track within a playlist context.
type SpotifyPlaylistItem struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedItems represents a paginated response of playlist items.
type SpotifyPaginatedItems struct {
	Items  []SpotifyPlaylistItem `json:"items"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
	Next   *string               `json:"next"`
}

// AudioFeatures represents the audio-features attributes of one track.
type AudioFeatures struct {
	ID               string  `json:"id"`
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Tempo            float64 `json:"tempo"`
	Valence          float64 `json:"valence"`
	URI              string  `json:"uri"`
}

// SpotifyService is the catalog-service client.
// Uses [oauth2] for authentication; the authorized session is supplied by the
// auth flow in cmd and stored in the config.
type SpotifyService struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	baseURL    string
	retry      RetryPolicy
	logger     *log.Logger
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, logger *log.Logger) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
		retry:      RetryPolicy{MaxAttempts: 3, Delay: 1500 * time.Millisecond},
		logger:     logger,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig exposes the OAuth2 configuration for the callback server.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// OAuthenticate installs an [oauth2.Token]; the HTTP client refreshes it
// automatically when a refresh token is present.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrNotAuthenticated)
	}
	s.token = token
	s.httpClient = s.config.Client(ctx, token)
	return nil
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an
// "access_token" (with optional "refresh_token") or an "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		return s.OAuthenticate(ctx, &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
			TokenType:    "Bearer",
		})
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("failed to exchange auth code: %w", err)
		}
		return s.OAuthenticate(ctx, token)
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrNotAuthenticated)
}

// doRequest performs an authenticated HTTP request against the Spotify API.
//
// A non-empty locale is sent as Accept-Language and selects the language
// variant of localized metadata in the response. 429 and 5xx responses are
// classified transient; 401 surfaces as [shared.ErrTokenExpired].
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any, locale string) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if locale != "" {
		req.Header.Set("Accept-Language", locale)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status 401", shared.ErrTokenExpired)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("spotify API error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	err := s.retry.Do(ctx, s.logger, "GET /me", func() error {
		return s.doRequest(ctx, http.MethodGet, "/me", nil, &user, "")
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// searchEnvelope wraps the track-search response. Pointer fields distinguish
// a missing envelope key from an empty result list.
type searchEnvelope struct {
	Tracks *struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SearchTracks searches the catalog for tracks matching the free-text query.
// The result list is capped at limit (the API maximum is 50; callers here use 20).
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int, locale string) ([]SpotifyTrack, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = 20
	}

	endpoint := fmt.Sprintf("/search?type=track&q=%s&limit=%d", url.QueryEscape(query), limit)

	var items []SpotifyTrack
	err := s.retry.Do(ctx, s.logger, "GET /search", func() error {
		var envelope searchEnvelope
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &envelope, locale); err != nil {
			return err
		}
		if envelope.Tracks == nil {
			s.logger.Error("unexpected search response", "query", query)
			return fmt.Errorf("%w: search envelope", shared.ErrProtocolViolation)
		}
		items = envelope.Tracks.Items
		return nil
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedPlaylists
	err := s.retry.Do(ctx, s.logger, "GET /me/playlists", func() error {
		return s.doRequest(ctx, http.MethodGet, endpoint, nil, &response, "")
	})
	if err != nil {
		return nil, err
	}

	return &response, nil
}

// GetPlaylists retrieves all playlists for the authenticated user.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]SpotifyPlaylist, error) {
	var all []SpotifyPlaylist
	limit, offset := 50, 0

	for {
		response, err := s.UserPlaylists(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		all = append(all, response.Items...)

		if response.Next == nil {
			break
		}
		offset += limit
	}

	return all, nil
}

// CreatePlaylist creates a playlist owned by the given user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*SpotifyPlaylist, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var playlist SpotifyPlaylist
	err := s.retry.Do(ctx, s.logger, "POST "+endpoint, func() error {
		return s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist, "")
	})
	if err != nil {
		return nil, err
	}

	return &playlist, nil
}

// ChangePlaylistDetails updates a playlist's description.
func (s *SpotifyService) ChangePlaylistDetails(ctx context.Context, playlistID, description string) error {
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))
	body := map[string]any{"description": description}

	return s.retry.Do(ctx, s.logger, "PUT "+endpoint, func() error {
		return s.doRequest(ctx, http.MethodPut, endpoint, body, nil, "")
	})
}

// PlaylistItems retrieves one page of a playlist's tracks.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedItems, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), limit, offset)

	var response SpotifyPaginatedItems
	err := s.retry.Do(ctx, s.logger, "GET /playlists/{id}/tracks", func() error {
		return s.doRequest(ctx, http.MethodGet, endpoint, nil, &response, "")
	})
	if err != nil {
		return nil, err
	}

	return &response, nil
}

// PlaylistTrackURIs retrieves the URIs of every track in a playlist.
func (s *SpotifyService) PlaylistTrackURIs(ctx context.Context, playlistID string) ([]string, error) {
	var uris []string
	fetched, total := 0, 1

	for fetched < total {
		page, err := s.PlaylistItems(ctx, playlistID, 50, fetched)
		if err != nil {
			return nil, err
		}

		total = page.Total
		fetched += page.Limit

		for _, item := range page.Items {
			if item.Track.Type == "track" && item.Track.URI != "" {
				uris = append(uris, item.Track.URI)
			}
		}
	}

	return uris, nil
}

// chunked splits ids into slices of at most chunkSize.
func chunked(ids []string) [][]string {
	var chunks [][]string
	for len(ids) > 0 {
		n := min(len(ids), chunkSize)
		chunks = append(chunks, ids[:n])
		ids = ids[n:]
	}
	return chunks
}

// AddPlaylistItems appends the given track URIs to a playlist, in order,
// batched at the API's 100-id cap.
func (s *SpotifyService) AddPlaylistItems(ctx context.Context, playlistID string, uris []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	for _, chunk := range chunked(uris) {
		body := map[string]any{"uris": chunk}
		err := s.retry.Do(ctx, s.logger, "POST "+endpoint, func() error {
			return s.doRequest(ctx, http.MethodPost, endpoint, body, nil, "")
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// RemovePlaylistItems removes all occurrences of the given track URIs,
// batched at the API's 100-id cap.
func (s *SpotifyService) RemovePlaylistItems(ctx context.Context, playlistID string, uris []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	for _, chunk := range chunked(uris) {
		tracks := make([]map[string]string, len(chunk))
		for i, uri := range chunk {
			tracks[i] = map[string]string{"uri": uri}
		}

		body := map[string]any{"tracks": tracks}
		err := s.retry.Do(ctx, s.logger, "DELETE "+endpoint, func() error {
			return s.doRequest(ctx, http.MethodDelete, endpoint, body, nil, "")
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// ClearPlaylist removes every track from a playlist.
func (s *SpotifyService) ClearPlaylist(ctx context.Context, playlistID string) error {
	uris, err := s.PlaylistTrackURIs(ctx, playlistID)
	if err != nil {
		return err
	}
	if len(uris) == 0 {
		return nil
	}
	return s.RemovePlaylistItems(ctx, playlistID, uris)
}

// GetAudioFeatures retrieves audio features for the given track ids,
// batched at the API's 100-id cap. Order follows the input ids.
func (s *SpotifyService) GetAudioFeatures(ctx context.Context, ids []string) ([]AudioFeatures, error) {
	var features []AudioFeatures

	for _, chunk := range chunked(ids) {
		endpoint := "/audio-features?ids=" + url.QueryEscape(strings.Join(chunk, ","))

		var response struct {
			AudioFeatures []AudioFeatures `json:"audio_features"`
		}
		err := s.retry.Do(ctx, s.logger, "GET /audio-features", func() error {
			return s.doRequest(ctx, http.MethodGet, endpoint, nil, &response, "")
		})
		if err != nil {
			return nil, err
		}

		features = append(features, response.AudioFeatures...)
	}

	return features, nil
}
