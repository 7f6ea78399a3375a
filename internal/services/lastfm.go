// Last.fm API client built on the paginated fetch engine.
//
// Endpoint reference: https://www.last.fm/api/show/user.getRecentTracks
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soracane/lastgen/internal/history"
	"github.com/soracane/lastgen/internal/shared"
	"golang.org/x/time/rate"
)

const lastfmBaseURL = "http://ws.audioscrobbler.com/2.0/"

// pageLimit is the track count requested per recent-tracks page.
const pageLimit = 200

// concurrentPages bounds simultaneously in-flight page requests.
const concurrentPages = 3

// LastFMService fetches a user's listening history from the Last.fm API.
//
// Implements [history.Fetcher].
type LastFMService struct {
	apiKey     string
	userAgent  string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryPolicy
	logger     *log.Logger
}

// NewLastFMService creates a Last.fm client with the given credentials.
func NewLastFMService(cfg shared.LastFMConfig, logger *log.Logger) (*LastFMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing Last.fm api_key", shared.ErrMissingCredentials)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &LastFMService{
		apiKey:     cfg.APIKey,
		userAgent:  cfg.UserAgent,
		baseURL:    lastfmBaseURL,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
		retry:      RetryPolicy{MaxAttempts: 5, Delay: 2 * time.Second},
		logger:     logger,
	}, nil
}

func (s *LastFMService) Name() string {
	return "Last.fm"
}

// get performs a rate-limited GET against the Last.fm API and returns the raw body.
//
// Transport failures, 429 and 5xx responses are classified transient.
func (s *LastFMService) get(ctx context.Context, query url.Values) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query.Set("api_key", s.apiKey)
	query.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("last.fm error: status %d: %s", resp.StatusCode, body)
	}

	return body, nil
}

// userInfoEnvelope wraps the user.getinfo response.
type userInfoEnvelope struct {
	User *struct {
		Name      string `json:"name"`
		PlayCount string `json:"playcount"`
	} `json:"user"`
}

// UserExists verifies the user identity with Last.fm.
// Any final failure is reported as [shared.ErrUserNotFound].
func (s *LastFMService) UserExists(ctx context.Context, user string) error {
	query := url.Values{}
	query.Set("method", "user.getinfo")
	query.Set("user", user)

	err := s.retry.Do(ctx, s.logger, "user.getinfo", func() error {
		body, err := s.get(ctx, query)
		if err != nil {
			return err
		}

		var envelope userInfoEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil || envelope.User == nil {
			s.logger.Error("unexpected user.getinfo response", "payload", string(body))
			return fmt.Errorf("%w: user.getinfo", shared.ErrProtocolViolation)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrUserNotFound, user, err)
	}
	return nil
}

// recentTracksEnvelope wraps one page of the recent-tracks response.
// Attribute values arrive as JSON strings.
type recentTracksEnvelope struct {
	RecentTracks *struct {
		Track []json.RawMessage `json:"track"`
		Attr  *struct {
			TotalPages json.Number `json:"totalPages"`
			Total      json.Number `json:"total"`
		} `json:"@attr"`
	} `json:"recenttracks"`
}

// trackAttr marks transient track entries (the currently playing one).
type trackAttr struct {
	Attr struct {
		NowPlaying string `json:"nowplaying"`
	} `json:"@attr"`
}

// recentTracksPage fetches one page of a user's recent tracks and normalizes
// its records. Records lacking the required fields are skipped and logged.
func (s *LastFMService) recentTracksPage(ctx context.Context, user string, page int, since, until int64) ([]history.Event, int, error) {
	query := url.Values{}
	query.Set("method", "user.getrecenttracks")
	query.Set("user", user)
	query.Set("limit", strconv.Itoa(pageLimit))
	query.Set("page", strconv.Itoa(page))
	query.Set("extended", "1")
	if since > 0 {
		query.Set("from", strconv.FormatInt(since, 10))
	}
	if until > 0 {
		query.Set("to", strconv.FormatInt(until, 10))
	}

	body, err := s.get(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	var envelope recentTracksEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil ||
		envelope.RecentTracks == nil || envelope.RecentTracks.Attr == nil {
		s.logger.Error("unexpected recent-tracks response", "payload", string(body))
		return nil, 0, fmt.Errorf("%w: user.getrecenttracks page %d", shared.ErrProtocolViolation, page)
	}

	totalPages, err := envelope.RecentTracks.Attr.TotalPages.Int64()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: bad totalPages: %v", shared.ErrProtocolViolation, err)
	}

	events := make([]history.Event, 0, len(envelope.RecentTracks.Track))
	for _, raw := range envelope.RecentTracks.Track {
		var attr trackAttr
		if err := json.Unmarshal(raw, &attr); err == nil && attr.Attr.NowPlaying == "true" {
			continue
		}

		var event history.Event
		if err := json.Unmarshal(raw, &event); err != nil || !event.Valid() {
			s.logger.Warn("skipping malformed track record", "user", user, "page", page, "record", string(raw))
			continue
		}
		events = append(events, event)
	}

	return events, int(totalPages), nil
}

// Scrobbles fetches all of a user's scrobbles in [since, until], newest
// first. Zero bounds leave the range open. An abandoned page contributes
// nothing; the fetch as a whole only fails when the first page does.
func (s *LastFMService) Scrobbles(ctx context.Context, user string, since, until int64) ([]history.Event, error) {
	pages, err := FetchPages(ctx, s.logger, s.retry, concurrentPages, func(ctx context.Context, page int) ([]history.Event, int, error) {
		return s.recentTracksPage(ctx, user, page, since, until)
	})
	if err != nil {
		return nil, err
	}

	var events []history.Event
	for _, page := range pages {
		events = append(events, page...)
	}

	s.logger.Info("fetched scrobbles", "user", user, "pages", len(pages), "events", len(events))
	return events, nil
}
