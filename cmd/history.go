package main

import (
	"context"
	"fmt"
	"time"

	"github.com/soracane/lastgen/internal/formatter"
	"github.com/soracane/lastgen/internal/shared"
	"github.com/soracane/lastgen/internal/tasks"
	"github.com/urfave/cli/v3"
)

// HistoryUpdate refreshes the local scrobble cache.
func (r *Runner) HistoryUpdate(ctx context.Context, cmd *cli.Command) error {
	refetch := cmd.Bool("refetch")

	if r.history == nil {
		return fmt.Errorf("%w: Last.fm service not initialized (set credentials.lastfm.api_key)", shared.ErrServiceUnavailable)
	}

	user, err := r.user(cmd)
	if err != nil {
		return err
	}

	if refetch {
		r.logger.Info("refetching entire history", "user", user)
	} else {
		r.logger.Info("updating history", "user", user)
	}

	events, err := r.history.History(ctx, user, true, refetch)
	if err != nil {
		return fmt.Errorf("failed to update history: %w", err)
	}

	r.writePlain("✓ Cache updated: %s\n", r.history.Cache().Path(user))
	r.writePlain("  Scrobbles: %d\n", len(events))
	if len(events) > 0 {
		newest := time.Unix(events[0].Timestamp, 0).In(r.config.Generator.Location())
		oldest := time.Unix(events[len(events)-1].Timestamp, 0).In(r.config.Generator.Location())
		r.writePlain("  Range: %s — %s\n", oldest.Format("2006-01-02"), newest.Format("2006-01-02"))
	}
	return nil
}

// historyStats is the JSON shape of the history show command.
type historyStats struct {
	User      string `json:"user"`
	Path      string `json:"path"`
	Scrobbles int    `json:"scrobbles"`
	Oldest    string `json:"oldest,omitempty"`
	Newest    string `json:"newest,omitempty"`
}

// HistoryShow prints cache statistics without touching the network.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")

	if r.history == nil {
		return fmt.Errorf("%w: Last.fm service not initialized", shared.ErrServiceUnavailable)
	}

	user, err := r.user(cmd)
	if err != nil {
		return err
	}

	events, err := r.history.History(ctx, user, false, false)
	if err != nil {
		return err
	}

	stats := historyStats{
		User:      user,
		Path:      r.history.Cache().Path(user),
		Scrobbles: len(events),
	}
	if len(events) > 0 {
		loc := r.config.Generator.Location()
		stats.Newest = time.Unix(events[0].Timestamp, 0).In(loc).Format(time.RFC3339)
		stats.Oldest = time.Unix(events[len(events)-1].Timestamp, 0).In(loc).Format(time.RFC3339)
	}

	if useJSON {
		return r.writeJSON(stats, true)
	}

	r.writePlain("User: %s\n", stats.User)
	r.writePlain("Cache: %s\n", stats.Path)
	r.writePlain("Scrobbles: %d\n", stats.Scrobbles)
	if stats.Oldest != "" {
		r.writePlain("Oldest: %s\n", stats.Oldest)
		r.writePlain("Newest: %s\n", stats.Newest)
	}
	return nil
}

// Variants reports titles scrobbled under multiple (artist, album) attributions.
func (r *Runner) Variants(ctx context.Context, cmd *cli.Command) error {
	outputFile := cmd.String("output")
	similar := cmd.Float("similar")

	if r.history == nil {
		return fmt.Errorf("%w: Last.fm service not initialized", shared.ErrServiceUnavailable)
	}

	user, err := r.user(cmd)
	if err != nil {
		return err
	}

	events, err := r.history.History(ctx, user, false, false)
	if err != nil {
		return err
	}

	variants := tasks.FindVariants(events)

	if outputFile != "" {
		data, err := formatter.VariantsToCSV(variants)
		if err != nil {
			return err
		}
		if err := formatter.WriteFile(outputFile, data); err != nil {
			return err
		}
		r.writePlain("✓ Variant report written to %s (%d titles)\n", outputFile, len(variants))
	} else {
		data, err := formatter.VariantsToText(variants)
		if err != nil {
			return err
		}
		r.writePlain("%s", string(data))
	}

	if similar > 0 {
		pairs := tasks.SimilarTitles(events, similar)
		r.writePlainln("Near-identical titles (similarity ≥ %.2f): %d", similar, len(pairs))
		for _, p := range pairs {
			r.writePlain("  %.3f  %q / %q\n", p.Similarity, p.A, p.B)
		}
	}

	return nil
}
