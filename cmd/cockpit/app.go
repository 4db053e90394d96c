package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/backend"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cache"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cockpit"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/config"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/pipeline"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/session"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/store"
)

// app is the wired cockpit for one process.
type app struct {
	cfg *config.Config

	cache cache.Cache
	pool  *pgxpool.Pool
	runs  store.Store

	client    *backend.HTTPClient
	sessions  *session.Provider
	refresher *cockpit.Refresher
	exporter  *cockpit.Exporter
	engine    *cockpit.Engine

	closers []func()
}

// newApp connects the optional cache and run ledger and builds the engine.
// Redis and Postgres are only used when their URLs are configured.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("create redis cache: %w", err)
		}
		if err := rc.Ping(ctx); err != nil {
			rc.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		a.cache = rc
		a.closers = append(a.closers, func() { rc.Close() })
		slog.Info("redis connected")
	} else {
		a.cache = cache.NewMemoryCache()
	}

	if cfg.Database.URL != "" {
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.pool = pool
		a.closers = append(a.closers, pool.Close)
		slog.Info("database connected")

		if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
			a.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations applied")
		a.runs = store.NewPostgresStore(pool)
	}

	a.client = backend.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	a.sessions = session.NewProvider(a.client, cfg.Backend.DemoEmail, cfg.Backend.DemoPassword)
	a.refresher = cockpit.NewRefresher(a.client, a.sessions, a.cache)
	a.exporter = cockpit.NewExporter(a.client, a.sessions, cfg.Export.Dir)

	poller := pipeline.NewPoller(a.client, a.sessions,
		pipeline.WithInterval(cfg.Polling.Interval),
		pipeline.WithMaxAttempts(cfg.Polling.MaxAttempts),
		pipeline.WithStatusCache(a.cache),
	)
	a.engine = cockpit.NewEngine(
		a.sessions,
		pipeline.NewSubmitter(a.client, a.sessions),
		poller,
		a.refresher,
		a.runs,
		cfg.Stages.Interval,
	)

	slog.Info("cockpit ready",
		"api_base_url", cfg.Backend.BaseURL,
		"run_ledger", a.runs != nil,
		"redis", cfg.Redis.URL != "",
	)
	return a, nil
}

// Close waits for background work and releases connections.
func (a *app) Close() {
	if a.engine != nil {
		a.engine.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
