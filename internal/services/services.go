// package services defines clients for the remote HTTP APIs
//
// Last.fm (scrobble history), Spotify (catalog & playlists)
package services

import (
	"context"

	"golang.org/x/oauth2"
)

// TrackSearcher searches the music catalog for candidate tracks.
//
// locale selects the language variant of localized metadata in the results;
// it never changes the query text.
type TrackSearcher interface {
	SearchTracks(ctx context.Context, query string, limit int, locale string) ([]SpotifyTrack, error)
}

// OAuthService is implemented by services that authenticate with the OAuth2
// authorization-code flow through a local callback server.
type OAuthService interface {
	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}
