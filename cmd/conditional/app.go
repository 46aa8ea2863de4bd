package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"mercator-hq/conditional/pkg/cli"
	"mercator-hq/conditional/pkg/config"
	defgit "mercator-hq/conditional/pkg/definition/git"
	"mercator-hq/conditional/pkg/journal"
	"mercator-hq/conditional/pkg/report"
	"mercator-hq/conditional/pkg/security/secrets"
	"mercator-hq/conditional/pkg/service"
	"mercator-hq/conditional/pkg/telemetry/logging"
	"mercator-hq/conditional/pkg/telemetry/metrics"
	"mercator-hq/conditional/pkg/telemetry/tracing"
	"mercator-hq/conditional/pkg/watch"
)

// app holds the components a command needs.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	collector *metrics.Collector
	tracer    *tracing.Tracer
	repo      *defgit.Repository
	store     journal.Store
	service   *service.Service
}

type appOptions struct {
	// journal opens the configured store.
	journal bool
	// metrics creates a Prometheus collector.
	metrics bool
	// quiet raises the log level to at least warn unless --verbose or
	// --log-level is set.
	quiet bool
	// noDefinitions skips building the service.
	noDefinitions bool
}

// loadConfig loads the config file (or defaults) with environment and flag
// overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}
	if definitionsPath != "" {
		cfg.Definitions.Path = definitionsPath
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, quiet bool, w io.Writer) (*slog.Logger, error) {
	level := cfg.Telemetry.Logging.Level
	format := cfg.Telemetry.Logging.Format
	if quiet && !verbose && logLevel == "" && (level == "debug" || level == "info") {
		level = "warn"
	}
	if verbose && logLevel == "" {
		level = "debug"
	}
	if quiet {
		format = string(logging.FormatConsole)
	}

	logger, err := logging.New(logging.Config{
		Level:     level,
		Format:    format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Writer:    w,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

func newApp(opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, opts.quiet, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	if err := resolveSecrets(cfg, logger); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	svcOpts := []service.Option{
		service.WithLogger(logger),
		service.WithObserver(logging.NewObserver(logger)),
	}
	if opts.metrics && cfg.Telemetry.Metrics.Enabled {
		a.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		svcOpts = append(svcOpts,
			service.WithObserver(a.collector),
			service.WithRunRecorder(a.collector),
			service.WithPoolObserver(a.collector),
		)
	}
	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithServiceVersion(Version))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}
	a.tracer = tracer
	if tracer.Enabled() {
		svcOpts = append(svcOpts, service.WithObserver(tracer.Observer()))
	}
	if opts.journal && cfg.Journal.Enabled {
		store, err := openJournal(&cfg.Journal)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = store
		svcOpts = append(svcOpts, service.WithStore(store))
	}

	if opts.noDefinitions {
		return a, nil
	}
	if a.repo, err = checkoutDefinitions(cfg, logger); err != nil {
		a.Close()
		return nil, err
	}
	svc, err := service.New(cfg, svcOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load definitions from %s: %w", cfg.Definitions.Path, err)
	}
	a.service = svc
	return a, nil
}

// resolveSecrets replaces ${secret:name} references in credential fields.
func resolveSecrets(cfg *config.Config, logger *slog.Logger) error {
	m, err := secrets.NewFromConfig(&cfg.Secrets, logger)
	if err != nil {
		return cli.NewConfigError("secrets", err.Error())
	}
	fields := map[string]*string{
		"definitions.git.auth.token":              &cfg.Definitions.Git.Auth.Token,
		"definitions.git.auth.ssh_key_passphrase": &cfg.Definitions.Git.Auth.SSHKeyPassphrase,
	}
	if cfg.Server.Auth.Enabled {
		for i := range cfg.Server.Auth.Keys {
			fields[fmt.Sprintf("server.auth.keys[%d].key", i)] = &cfg.Server.Auth.Keys[i].Key
		}
	}
	if err := m.ResolveFields(context.Background(), fields); err != nil {
		return cli.NewConfigError("secrets", err.Error())
	}
	return nil
}

// checkoutDefinitions clones the configured definitions repository and
// points cfg.Definitions.Path at the document inside it. It returns nil
// when no repository is configured.
func checkoutDefinitions(cfg *config.Config, logger *slog.Logger) (*defgit.Repository, error) {
	if cfg.Definitions.Git.Repository == "" {
		return nil, nil
	}
	repo, err := defgit.NewRepository(&cfg.Definitions.Git)
	if err != nil {
		return nil, cli.NewConfigError("definitions.git", err.Error())
	}
	if err := repo.Clone(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to fetch definitions: %w", err)
	}
	cfg.Definitions.Path = repo.DocumentPath()
	if head, err := repo.Head(); err == nil {
		logger.Info("definitions checked out",
			"repository", cfg.Definitions.Git.Repository,
			"branch", cfg.Definitions.Git.Branch,
			"commit", head.Short())
	}
	return repo, nil
}

// definitionWatcher reports definition changes.
type definitionWatcher interface {
	Watch(ctx context.Context, onChange func() error) error
}

// newDefinitionWatcher polls the definitions repository when one is
// configured and watches the definitions file otherwise. The returned
// func releases the watcher.
func (a *app) newDefinitionWatcher() (definitionWatcher, func(), error) {
	if a.repo != nil {
		return defgit.NewPoller(a.repo, a.cfg.Definitions.Git.PollInterval, a.logger), func() {}, nil
	}
	watcher, err := watch.NewFileWatcher(&watch.Config{
		Path:     a.cfg.Definitions.Path,
		Debounce: a.cfg.Definitions.Debounce,
	}, a.logger)
	if err != nil {
		return nil, nil, err
	}
	return watcher, func() { _ = watcher.Stop() }, nil
}

func openJournal(cfg *config.JournalConfig) (journal.Store, error) {
	if cfg.Driver != journal.DriverMemory && cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	store, err := journal.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return store, nil
}

// Close releases the service pools, the journal and the tracer.
func (a *app) Close() {
	if a.service != nil {
		if err := a.service.Close(); err != nil {
			a.logger.Warn("failed to stop runners", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close journal", "error", err)
		}
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Telemetry.Tracing.Timeout)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("failed to flush traces", "error", err)
		}
	}
}

// formatter builds the formatter selected by --output and --style.
func formatter() (cli.Formatter, error) {
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	var renderer *report.Renderer
	if format == cli.FormatPretty {
		renderer, err = report.NewRenderer(report.Style(reportStyle), 0)
		if err != nil {
			return nil, cli.NewConfigError("style", err.Error())
		}
	}
	return cli.NewFormatter(format, renderer)
}
