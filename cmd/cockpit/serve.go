package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/api"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/api/handler"
	mw "github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/api/middleware"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/metrics"
)

const (
	shutdownTimeout = 30 * time.Second
	runRateScope    = "runs"
)

type ServeOptions struct {
	GlobalOptions
	Polling pollingFlags

	Port int
}

func NewCmdServe() *cobra.Command {
	o := &ServeOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cockpit HTTP API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ServeOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.Polling.Bind(fs)
	fs.IntVarP(&o.Port, "port", "p", 0, "Listen port (overrides COCKPIT_PORT)")
}

func (o *ServeOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	o.Polling.apply(o.cfg)
	if o.Port > 0 {
		o.cfg.Server.Port = o.Port
	}
	return nil
}

func (o *ServeOptions) Run(ctx context.Context) error {
	closeLogs, err := o.SetupLogging(false)
	if err != nil {
		return err
	}
	defer closeLogs()

	cfg := o.cfg
	slog.Info("config loaded", "env", cfg.Server.Env, "api_base_url", cfg.Backend.BaseURL)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	auth := mw.NewAuth(cfg.Server.APIKeyHash)
	if !auth.Enabled() {
		slog.Warn("COCKPIT_API_KEY_HASH not set, API is unauthenticated")
	}

	router := api.NewRouter(newDependencies(ctx, a, auth))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newDependencies wires handlers to the app. Runs started over HTTP use base
// so they survive the request but stop on shutdown.
func newDependencies(base context.Context, a *app, auth *mw.Auth) api.Dependencies {
	health := map[string]handler.Pinger{"cache": a.cache, "database": nil}
	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: mw.NewRateLimit(a.cache, runRateScope, a.cfg.Server.RunsPerMinute),

		MetricsHandler:    metrics.Handler(),
		StartRunHandler:   handler.NewStartRunHandler(base, a.engine),
		CurrentRunHandler: handler.NewCurrentRunHandler(a.engine),
		ListSubmissions:   handler.NewListSubmissionsHandler(a.engine),
		GetAudit:          handler.NewAuditHandler(a.engine),
		ExportSubmission:  handler.NewExportHandler(a.exporter, a.cfg.Export.Format),
	}
	if a.runs != nil {
		health["database"] = a.runs
		deps.ListRunsHandler = handler.NewListRunsHandler(a.runs)
	}
	deps.HealthHandler = handler.NewHealthHandler(health)
	return deps
}
