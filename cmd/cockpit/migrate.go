package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/store"
)

type MigrateOptions struct {
	GlobalOptions

	Dir   string
	Steps int
}

func NewCmdMigrate() *cobra.Command {
	o := &MigrateOptions{}
	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back run ledger migrations.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *MigrateOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVar(&o.Dir, "dir", "", "Directory holding the migration files (defaults to --migrations-dir)")
	fs.IntVar(&o.Steps, "steps", 0, "Number of migrations to apply; 0 applies all (up) or one (down)")
}

func (o *MigrateOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required to migrate")
	}
	if o.Steps < 0 {
		return fmt.Errorf("--steps must not be negative")
	}
	return nil
}

func (o *MigrateOptions) Run(args []string) error {
	closeLogs, err := o.SetupLogging(false)
	if err != nil {
		return err
	}
	defer closeLogs()

	direction := "up"
	if len(args) == 1 {
		direction = args[0]
	}
	steps := o.Steps
	if direction == "down" && steps == 0 {
		steps = 1
	}

	dir := o.Dir
	if dir == "" {
		dir = o.cfg.Database.MigrationsDir
	}
	if err := store.Migrate(o.cfg.Database.URL, dir, direction, steps); err != nil {
		return err
	}
	slog.Info("migrations applied", "direction", direction, "steps", steps)
	return nil
}
