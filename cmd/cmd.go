// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "Last.fm account (defaults to credentials.lastfm.user)",
	}
}

// setupCommand initializes the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize config file, database and migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand handles Spotify login.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authenticate with Spotify using OAuth2",
		Flags:  []cli.Flag{configFlag()},
		Action: r.SpotifyAuth,
	}
}

// historyCommand handles the local scrobble cache.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"hist"},
		Usage:   "Manage the local scrobble cache",
		Commands: []*cli.Command{
			{
				Name:  "update",
				Usage: "Fetch scrobbles newer than the cached head",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.BoolFlag{
						Name:  "refetch",
						Usage: "Discard the cache and fetch the entire history",
					},
				},
				Action: r.HistoryUpdate,
			},
			{
				Name:  "show",
				Usage: "Show cache statistics",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "variants",
				Usage: "Find titles scrobbled under multiple attributions",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the report to a CSV file",
					},
					&cli.FloatFlag{
						Name:  "similar",
						Usage: "Also report distinct titles above this similarity (0 disables)",
						Value: 0,
					},
				},
				Action: r.Variants,
			},
		},
	}
}

// topCommand reports the most played tracks of a window.
func topCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "top",
		Usage: "Show the most played tracks of a two-month window",
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.IntFlag{
				Name:     "year",
				Usage:    "Window year",
				Required: true,
			},
			&cli.IntFlag{
				Name:     "month",
				Usage:    "Window start month (1, 3, 5, 7, 9 or 11)",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "count",
				Usage: "Number of tracks to show",
			},
			&cli.BoolFlag{
				Name:  "update",
				Usage: "Refresh the cache before counting",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the ranking to a CSV file",
			},
		},
		Action: r.Top,
	}
}

// playlistCommand generates Spotify playlists.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Generate top-track playlists on Spotify",
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Create one playlist per completed two-month window",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.IntFlag{
						Name:  "since-year",
						Usage: "Earliest year to generate for",
					},
					&cli.BoolFlag{
						Name:  "update-old",
						Usage: "Regenerate playlists that already exist",
					},
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Create playlists as public",
					},
					&cli.BoolFlag{
						Name:  "update",
						Usage: "Refresh the history cache first",
						Value: true,
					},
				},
				Action: r.PlaylistGenerate,
			},
		},
	}
}

// variantsCommand is a top-level alias for history variants.
func variantsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "variants",
		Usage: "Find titles scrobbled under multiple attributions",
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to a CSV file",
			},
			&cli.FloatFlag{
				Name:  "similar",
				Usage: "Also report distinct titles above this similarity (0 disables)",
				Value: 0,
			},
		},
		Action: r.Variants,
	}
}

// tuiCommand launches the interactive interface.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse listening periods and generate playlists interactively",
		Flags:  []cli.Flag{configFlag(), userFlag()},
		Action: r.TUI,
	}
}
