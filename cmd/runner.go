package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/soracane/lastgen/internal/history"
	"github.com/soracane/lastgen/internal/services"
	"github.com/soracane/lastgen/internal/shared"
	"github.com/soracane/lastgen/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	lastfm  *services.LastFMService
	spotify *services.SpotifyService
	history *history.Service
	engine  *tasks.Engine
	store   *tasks.ResolvedStore
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	LastFM  *services.LastFMService
	Spotify *services.SpotifyService
	History *history.Service
	Store   *tasks.ResolvedStore
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:  opts.Config,
		lastfm:  opts.LastFM,
		spotify: opts.Spotify,
		history: opts.History,
		store:   opts.Store,
		logger:  opts.Logger,
		output:  opts.Output,
	}

	if r.history == nil && r.lastfm != nil {
		cache := history.NewCache(opts.Config.Cache.Dir, opts.Logger)
		r.history = history.NewService(r.lastfm, cache, opts.Logger)
	}

	if r.spotify != nil && r.history != nil {
		resolver := services.NewResolver(r.spotify,
			opts.Config.Generator.PrimaryLocale, opts.Config.Generator.SecondaryLocale, opts.Logger)
		r.engine = tasks.NewEngine(r.history, r.spotify, resolver, r.store, opts.Config.Generator, opts.Logger)
	}

	return r
}

// SetLogger swaps the runner's logger (used by the TUI to redirect logs to a file).
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// user resolves the Last.fm account for a command: the --user flag when set,
// otherwise the configured default.
func (r *Runner) user(cmd *cli.Command) (string, error) {
	if u := cmd.String("user"); u != "" {
		return u, nil
	}
	if u := r.config.Credentials.LastFM.User; u != "" {
		return u, nil
	}
	return "", fmt.Errorf("%w: no Last.fm user given (set --user or credentials.lastfm.user)", shared.ErrMissingArgument)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, historyCommand, topCommand, playlistCommand, variantsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
