package main

import (
	"context"
	"errors"
	"os"

	"github.com/soracane/lastgen/internal/services"
	"github.com/soracane/lastgen/internal/shared"
	"github.com/soracane/lastgen/internal/tasks"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var lastfmService *services.LastFMService
	if svc, err := services.NewLastFMService(config.Credentials.LastFM, logger); err == nil {
		lastfmService = svc
	}

	var spotifyService *services.SpotifyService
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map(), logger); err == nil {
			if token := config.Credentials.Spotify.Token(); token != nil {
				if err := svc.OAuthenticate(context.Background(), token); err != nil {
					logger.Warn("stored Spotify token rejected", "error", err)
				}
			}
			spotifyService = svc
		}
	}

	var store *tasks.ResolvedStore
	if db, err := shared.NewDatabase(config.Database.Path); err == nil {
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
		store = tasks.NewResolvedStore(db, logger)
	} else {
		logger.Debug("resolution memo unavailable", "error", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		LastFM:  lastfmService,
		Spotify: spotifyService,
		Store:   store,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "lastgen",
		Usage:    "Generate Spotify playlists from Last.fm listening history",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
