package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/conditional/pkg/cli"
	"mercator-hq/conditional/pkg/journal"
	"mercator-hq/conditional/pkg/limits"
	"mercator-hq/conditional/pkg/security/auth"
	sectls "mercator-hq/conditional/pkg/security/tls"
	"mercator-hq/conditional/pkg/server"
)

var serveFlags struct {
	listenAddress string
	watch         bool
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the evaluation API",
	Long: `Start the HTTP API for evaluating definitions and querying runs.

The server exposes Prometheus metrics, reloads definitions on change when
watching is enabled (pulling the definitions repository when one is
configured), and prunes the journal on the retention schedule. With
server.tls enabled it serves HTTPS and picks up rotated certificates;
server.auth requires an API key on /v1 routes and server.limits
throttles them per client.

Examples:
  # Start with default config
  conditional serve

  # Override listen address and watch definitions
  conditional serve --listen 0.0.0.0:8090 --watch

  # Validate config and definitions without starting
  conditional serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().BoolVar(&serveFlags.watch, "watch", false, "reload definitions when the file changes")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config and definitions without starting")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{journal: true, metrics: true})
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	securityOpts, err := serverSecurity(ctx, a, !serveFlags.dryRun)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	if serveFlags.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration valid (%d definitions)\n", len(a.service.Names()))
		return nil
	}

	if a.store != nil && cfg.Journal.Retention.PruneSchedule != "" {
		var opts []journal.PrunerOption
		if a.collector != nil {
			opts = append(opts, journal.WithPruneHook(a.collector.RecordPruned))
		}
		pruner := journal.NewPruner(a.store, &cfg.Journal.Retention, opts...)
		if err := pruner.Start(ctx); err != nil {
			a.logger.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer pruner.Stop()
			if next := pruner.NextPruning(); next != nil {
				a.logger.Debug("journal retention scheduler started", "next_pruning", next)
			}
		}
	}

	if serveFlags.watch || cfg.Definitions.Watch {
		watcher, release, err := a.newDefinitionWatcher()
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer release()
		go func() {
			if err := watcher.Watch(ctx, a.service.Reload); err != nil {
				a.logger.Error("definition watcher stopped", "error", err)
			}
		}()
	}

	opts := []server.Option{
		server.WithLogger(a.logger),
		server.WithVersion(Version, GitCommit, BuildDate),
	}
	if a.store != nil {
		opts = append(opts, server.WithHealthCheck("journal", func(ctx context.Context) error {
			_, err := a.store.Count(ctx, journal.Filter{Limit: 1})
			return err
		}))
	}
	if a.collector != nil {
		opts = append(opts, server.WithMetrics(cfg.Telemetry.Metrics.Path, a.collector.Handler()))
	}
	if a.tracer.Enabled() {
		opts = append(opts, server.WithMiddleware(a.tracer.Middleware))
	}
	opts = append(opts, securityOpts...)
	srv := server.New(&cfg.Server, a.service, opts...)

	a.logger.Info("serving definitions",
		"address", cfg.Server.ListenAddress,
		"definitions", len(a.service.Names()),
		"journal", cfg.Journal.Enabled,
		"metrics", a.collector != nil,
		"tls", cfg.Server.TLS.Enabled,
		"auth", cfg.Server.Auth.Enabled,
		"limits", cfg.Server.Limits.Enabled,
	)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}

// serverSecurity loads the TLS key pair, API keys and per-client limits.
// With watch set the key pair is polled for rotation until ctx is done.
func serverSecurity(ctx context.Context, a *app, watch bool) ([]server.Option, error) {
	var opts []server.Option
	cfg := &a.cfg.Server

	if cfg.TLS.Enabled {
		reloader := sectls.NewCertificateReloader(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.ReloadInterval, a.logger)
		load := reloader.Load
		if watch {
			load = func() error { return reloader.Start(ctx) }
		}
		if err := load(); err != nil {
			return nil, fmt.Errorf("tls: %w", err)
		}
		tlsConfig, err := sectls.NewServerConfig(&cfg.TLS, reloader)
		if err != nil {
			return nil, fmt.Errorf("tls: %w", err)
		}
		opts = append(opts, server.WithTLS(tlsConfig))
	}

	if cfg.Auth.Enabled {
		validator := auth.NewValidator(cfg.Auth.Keys)
		mw := auth.NewMiddleware(validator, auth.SourcesFromConfig(cfg.Auth.Sources), a.logger)
		opts = append(opts, server.WithAuth(mw.Handle))
	}

	if cfg.Limits.Enabled {
		var mwOpts []limits.MiddlewareOption
		if a.collector != nil {
			mwOpts = append(mwOpts, limits.WithRejectHook(a.collector.RecordThrottled))
		}
		mw := limits.NewMiddleware(limits.NewManager(&cfg.Limits), a.logger, mwOpts...)
		opts = append(opts, server.WithLimiter(mw.Handle))
	}

	return opts, nil
}
