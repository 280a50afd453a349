package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mindx/internal/services"
	"github.com/desertthunder/mindx/internal/shared"
	"github.com/desertthunder/mindx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, migrateCommand, adminCommand, ingestCommand, targetsCommand, tokenCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig replaces the runner's config with the file at path (when it exists) overlaid by the environment.
//
// Runs before every command.
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path != "" {
		r.configPath = path
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(r.configPath); err == nil {
		if config, err = shared.LoadConfig(r.configPath); err != nil {
			return ctx, err
		}
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	if err := shared.ApplyEnv(config); err != nil {
		return ctx, fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
	}

	level := config.Log.Level
	if cmd.Bool("verbose") {
		level = "debug"
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))

	r.config = config
	return ctx, nil
}

// openBackend validates the config and builds the selected backend.
//
// The returned close function releases the local database, if any.
func (r *Runner) openBackend() (*services.Backend, func(), error) {
	if err := r.config.Validate(); err != nil {
		return nil, nil, err
	}

	var db *sql.DB
	closeFn := func() {}
	if r.config.Backend == shared.BackendLocal {
		var err error
		if db, err = shared.OpenAndMigrate(r.config.Database); err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		closeFn = func() { db.Close() }
	}

	backend, err := services.NewBackend(r.config, db)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return backend, closeFn, nil
}

// newIngestor builds a [tasks.TargetIngestor] over backend with the configured compiler.
func (r *Runner) newIngestor(backend *services.Backend) (*tasks.TargetIngestor, error) {
	compiler, err := services.NewDescriptorCompiler(r.config.Compiler, r.httpClient)
	if err != nil {
		return nil, err
	}

	return tasks.NewTargetIngestor(tasks.IngestorOpts{
		Store:             backend.Artifacts,
		Compiler:          compiler,
		Catalog:           backend.Catalog,
		Storage:           r.config.Storage,
		HTTPClient:        r.httpClient,
		MaxImageBytes:     r.config.Server.MaxUploadBytes,
		AllowPrivateHosts: r.config.Server.AllowPrivateFetch,
		Logger:            shared.WithLogger(r.logger, "component", "ingest"),
	}), nil
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

// writeRendered writes text produced by the ui package verbatim.
func (r *Runner) writeRendered(text string) error {
	if _, err := io.WriteString(r.output, text); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
