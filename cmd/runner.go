package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibe/internal/repositories"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/desertthunder/vibe/internal/store"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	api        *services.APIService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	persister  store.Persister

	db    *sql.DB
	store *store.Store
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	API        *services.APIService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// Persister replaces the SQLite state database, mainly for tests.
	Persister store.Persister
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.API.Timeout()}
	}
	if opts.API == nil {
		opts.API = services.NewAPIService(opts.Config.API.BaseURL, opts.HTTPClient)
	}
	opts.API.SetLogger(opts.Logger)

	return &Runner{
		config:     opts.Config,
		api:        opts.API,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		persister:  opts.Persister,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, songsCommand, likesCommand, playCommand, lyricsCommand, volumeCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and everything it opens afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.api.SetLogger(l)
}

// openStore restores the saved client state, opening the state database on first use.
func (r *Runner) openStore() (*store.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	persister := r.persister
	if persister == nil {
		db, err := shared.OpenStateDatabase(r.config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open state database: %w", err)
		}
		r.db = db
		persister = repositories.NewStateRepository(db)
	}

	s := store.New(r.api, persister, r.logger)
	s.SetPageLimit(r.config.API.PageLimit)
	if err := s.Restore(); err != nil {
		r.logger.Warn("starting from a clean state", "error", err)
	}

	r.store = s
	return s, nil
}

// requireSession opens the store and fails unless a session is active.
func (r *Runner) requireSession() (*store.Store, error) {
	s, err := r.openStore()
	if err != nil {
		return nil, err
	}
	if !s.Snapshot().Authenticated() {
		return nil, fmt.Errorf("%w: run 'vibe auth login' first", shared.ErrNotAuthenticated)
	}
	return s, nil
}

// Close saves the client state and releases the state database.
func (r *Runner) Close() error {
	var errs []error
	if r.store != nil {
		errs = append(errs, r.store.Close())
		r.store = nil
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	return errors.Join(errs...)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
