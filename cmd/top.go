package main

import (
	"context"
	"fmt"
	"time"

	"github.com/soracane/lastgen/internal/formatter"
	"github.com/soracane/lastgen/internal/history"
	"github.com/soracane/lastgen/internal/shared"
	"github.com/urfave/cli/v3"
)

// Top shows the most played tracks of a two-month window.
func (r *Runner) Top(ctx context.Context, cmd *cli.Command) error {
	year := cmd.Int("year")
	month := cmd.Int("month")
	count := cmd.Int("count")
	update := cmd.Bool("update")
	useJSON := cmd.Bool("json")
	outputFile := cmd.String("output")

	if r.history == nil {
		return fmt.Errorf("%w: Last.fm service not initialized", shared.ErrServiceUnavailable)
	}
	if month < 1 || month > 12 || month%2 == 0 {
		return fmt.Errorf("%w: --month must be an odd month number (1, 3, 5, 7, 9 or 11)", shared.ErrInvalidArgument)
	}

	user, err := r.user(cmd)
	if err != nil {
		return err
	}

	if count <= 0 {
		count = r.config.Generator.TrackCount
	}

	loc := r.config.Generator.Location()
	counter, err := r.history.CounterForBimonth(ctx, user, int(year), time.Month(month), loc, history.CountOpts{
		IgnoreAlbum: true,
		Update:      update,
	})
	if err != nil {
		return err
	}

	entries := counter.MostCommon()
	if len(entries) > int(count) {
		entries = entries[:count]
	}

	title := fmt.Sprintf("%s: top tracks %d-%02d/%02d", user, year, month, month+1)

	if outputFile != "" {
		data, err := formatter.CountsToCSV(entries)
		if err != nil {
			return err
		}
		if err := formatter.WriteFile(outputFile, data); err != nil {
			return err
		}
		r.writePlain("✓ Ranking written to %s (%d tracks)\n", outputFile, len(entries))
		return nil
	}

	if useJSON {
		return r.writeJSON(entries, true)
	}

	data, err := formatter.CountsToText(title, entries)
	if err != nil {
		return err
	}
	return r.writePlain("%s", string(data))
}
