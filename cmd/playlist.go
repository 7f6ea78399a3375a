package main

import (
	"context"
	"fmt"

	"github.com/soracane/lastgen/internal/shared"
	"github.com/soracane/lastgen/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistGenerate creates one top-tracks playlist per completed two-month
// window of the user's history.
func (r *Runner) PlaylistGenerate(ctx context.Context, cmd *cli.Command) error {
	if r.engine == nil {
		return fmt.Errorf("%w: playlist engine not initialized (configure Last.fm and Spotify credentials)", shared.ErrServiceUnavailable)
	}

	user, err := r.user(cmd)
	if err != nil {
		return err
	}

	opts := tasks.GenerateOpts{
		SinceYear: cmd.Int("since-year"),
		UpdateOld: cmd.Bool("update-old"),
		Public:    cmd.Bool("public"),
		Update:    cmd.Bool("update"),
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := r.engine.GenerateBimonthly(ctx, progress, user, opts)
	close(progress)
	<-done

	if err != nil {
		if reauthed, authErr := r.handleSpotifyAuthError(ctx, err, cmd); reauthed {
			if authErr != nil {
				return authErr
			}
			// Progress already streamed once; rerun quietly.
			result, err = r.engine.GenerateBimonthly(ctx, nil, user, opts)
			if err != nil {
				return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
			}
		} else {
			return err
		}
	}

	r.writePlainln("✓ Playlist run complete")
	r.writePlain("  Created: %d\n", len(result.Created))
	for _, name := range result.Created {
		r.writePlain("    %s\n", name)
	}
	if len(result.Updated) > 0 {
		r.writePlain("  Updated: %d\n", len(result.Updated))
		for _, name := range result.Updated {
			r.writePlain("    %s\n", name)
		}
	}
	r.writePlain("  Skipped: %d\n", len(result.Skipped))
	return nil
}
