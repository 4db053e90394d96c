package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/config"
)

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cockpit",
		Short: "cockpit drives submission packets through the underwriting pipeline.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}
	cmd.AddCommand(NewCmdRun())
	cmd.AddCommand(NewCmdWatch())
	cmd.AddCommand(NewCmdServe())
	cmd.AddCommand(NewCmdSubmissions())
	cmd.AddCommand(NewCmdAudit())
	cmd.AddCommand(NewCmdExport())
	cmd.AddCommand(NewCmdMigrate())
	return cmd
}

// GlobalOptions are shared by every subcommand. Unset flags keep the values
// loaded from the environment.
type GlobalOptions struct {
	APIBaseURL    string
	LogLevel      string
	LogFile       string
	MigrationsDir string

	cfg *config.Config
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.APIBaseURL, "api-url", "", "Base URL of the pipeline API (overrides COCKPIT_API_BASE_URL)")
	fs.StringVar(&o.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides COCKPIT_LOG_LEVEL)")
	fs.StringVar(&o.LogFile, "log-file", "", "Write logs to this file instead of stderr")
	fs.StringVar(&o.MigrationsDir, "migrations-dir", "", "Directory holding the run ledger migrations (overrides DATABASE_MIGRATIONS_DIR)")
}

// Complete loads the environment configuration and applies flag overrides.
func (o *GlobalOptions) Complete(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.APIBaseURL != "" {
		cfg.Backend.BaseURL = strings.TrimRight(o.APIBaseURL, "/")
	}
	if o.LogLevel != "" {
		cfg.Server.LogLevel = strings.ToLower(o.LogLevel)
	}
	if o.MigrationsDir != "" {
		cfg.Database.MigrationsDir = o.MigrationsDir
	}
	o.cfg = cfg
	return nil
}

func (o *GlobalOptions) Validate(_ []string) error {
	if o.cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	return o.cfg.Validate()
}

// Config returns the completed configuration.
func (o *GlobalOptions) Config() *config.Config {
	return o.cfg
}

// SetupLogging installs the default slog logger. quiet discards logs unless a
// log file was requested, which keeps the terminal view clean.
func (o *GlobalOptions) SetupLogging(quiet bool) (func(), error) {
	var out io.Writer = os.Stderr
	closer := func() {}

	switch {
	case o.LogFile != "":
		f, err := os.OpenFile(o.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closer = func() { f.Close() }
	case quiet:
		out = io.Discard
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: parseLevel(o.cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)
	return closer, nil
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// pollingFlags override the poll cadence for commands that run the pipeline.
type pollingFlags struct {
	Interval    time.Duration
	MaxAttempts int
}

func (p *pollingFlags) Bind(fs *pflag.FlagSet) {
	fs.DurationVar(&p.Interval, "poll-interval", 0, "Delay between job status checks (overrides COCKPIT_POLL_INTERVAL)")
	fs.IntVar(&p.MaxAttempts, "poll-max-attempts", 0, "Maximum job status checks before giving up (overrides COCKPIT_POLL_MAX_ATTEMPTS)")
}

func (p *pollingFlags) apply(cfg *config.Config) {
	if p.Interval > 0 {
		cfg.Polling.Interval = p.Interval
	}
	if p.MaxAttempts > 0 {
		cfg.Polling.MaxAttempts = p.MaxAttempts
	}
}
