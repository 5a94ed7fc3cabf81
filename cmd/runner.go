package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/evanheo/podwire/internal/artwork"
	"github.com/evanheo/podwire/internal/pipeline"
	"github.com/evanheo/podwire/internal/repositories"
	"github.com/evanheo/podwire/internal/services"
	"github.com/evanheo/podwire/internal/shared"
	"github.com/evanheo/podwire/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	supervisor *pipeline.Supervisor
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Supervisor *pipeline.Supervisor
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
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
	if opts.Supervisor == nil {
		opts.Supervisor = pipeline.NewSupervisor(opts.Config.Pipeline, opts.Config.Castopod, opts.Logger)
	}

	return &Runner{
		config:     opts.Config,
		supervisor: opts.Supervisor,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, runCommand, addCommand, statusCommand, jobsCommand, tuiCommand, migrateCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// database opens the configured database on first use and reuses it afterwards.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.db = db
	return db, nil
}

// Close releases the database handle if a command opened one.
func (r *Runner) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// jobRepository opens the database and returns the jobs repository.
func (r *Runner) jobRepository() (*repositories.JobRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewJobRepository(db), nil
}

// buildOrchestrator wires the playlist orchestrator against the configured
// source and podcast host. Missing Castopod credentials disable uploads.
func (r *Runner) buildOrchestrator(db *sql.DB, opts tasks.Options) *tasks.Orchestrator {
	source := services.NewYTDLPSource("", r.logger)

	var host tasks.PodcastHost
	if r.config.Castopod.Enabled() {
		host = services.NewCastopodClient(r.config.Castopod, r.logger)
	} else {
		r.logger.Info("castopod credentials missing, uploads disabled")
	}

	return tasks.NewOrchestrator(
		source,
		host,
		repositories.NewChannelRepository(db),
		repositories.NewPlaylistRepository(db),
		repositories.NewRunRepository(db),
		repositories.NewJobRepository(db),
		artwork.NewGenerator(nil),
		opts,
		r.logger,
	)
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
