package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/librix/internal/events"
	"github.com/desertthunder/librix/internal/filecache"
	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/repositories"
	"github.com/desertthunder/librix/internal/services"
	"github.com/desertthunder/librix/internal/shared"
	"github.com/desertthunder/librix/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PosterCache is the file cache the poster commands read and fill.
type PosterCache interface {
	tasks.PosterStore
	Count(kind models.FileKind) (int, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	posters    tasks.PosterSource
	db         *sql.DB
	files      PosterCache
	bus        *events.Bus
	logger     *log.Logger
	output     io.Writer
	outputMu   sync.Mutex
}

// RunnerOpts contains configuration options for creating a Runner.
//
// DB and Files are opened from the config on first use when nil.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog
	Posters    tasks.PosterSource
	DB         *sql.DB
	Files      PosterCache
	Logger     *log.Logger
	Output     io.Writer
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
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		posters:    opts.Posters,
		db:         opts.DB,
		files:      opts.Files,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.bus = events.NewBus(r.logger)
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, changesCommand, releasesCommand, postersCommand, browseCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by commands and the event bus.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.bus = events.NewBus(logger)
}

// database returns the open database, opening and migrating it on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", r.config.Database.Path, err)
	}
	r.db = db
	return db, nil
}

// fileCache returns the poster cache, opening it on first use.
func (r *Runner) fileCache() (PosterCache, error) {
	if r.files != nil {
		return r.files, nil
	}

	store, err := filecache.Open(r.config.Cache.Path)
	if err != nil {
		return nil, err
	}
	r.files = store
	return store, nil
}

// Close releases the database and file cache.
func (r *Runner) Close() error {
	var errs []error
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	if c, ok := r.files.(io.Closer); ok {
		errs = append(errs, c.Close())
		r.files = nil
	}
	return errors.Join(errs...)
}

func (r *Runner) releaseRepository() (*repositories.ReleaseRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewReleaseRepository(db), nil
}

func (r *Runner) changesRepository() (*repositories.ChangesRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewChangesRepository(db), nil
}

// synchronizer wires the catalog, storage, file cache and event bus into a [tasks.Synchronizer].
func (r *Runner) synchronizer() (*tasks.Synchronizer, error) {
	if r.catalog == nil {
		return nil, fmt.Errorf("%w: catalog client not initialized", shared.ErrServiceUnavailable)
	}

	db, err := r.database()
	if err != nil {
		return nil, err
	}
	files, err := r.fileCache()
	if err != nil {
		return nil, err
	}

	return tasks.NewSynchronizer(tasks.SynchronizerOpts{
		Catalog:   r.catalog,
		Releases:  repositories.NewReleaseRepository(db),
		Favorites: repositories.NewFavoritesRepository(db),
		Changes:   repositories.NewChangesRepository(db),
		Files:     files,
		Notifier:  r.bus,
		Localizer: events.NewLocalizer(r.config.Sync.Locale),
		Logger:    r.logger,
		PageSize:  r.config.API.PageSize,
	}), nil
}

// write sends p to the output. Progress printers and event handlers write from other goroutines.
func (r *Runner) write(p []byte) error {
	r.outputMu.Lock()
	defer r.outputMu.Unlock()
	_, err := r.output.Write(p)
	return err
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

	if err := r.write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if err := r.write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if err := r.write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if err := r.write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if err := r.write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
