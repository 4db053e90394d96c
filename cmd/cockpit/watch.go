package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/pipeline"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/tui"
)

type WatchOptions struct {
	GlobalOptions
	Polling pollingFlags
}

func NewCmdWatch() *cobra.Command {
	o := &WatchOptions{}
	cmd := &cobra.Command{
		Use:   "watch [FILE]",
		Short: "Open the terminal cockpit, optionally starting a run for FILE.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *WatchOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.Polling.Bind(fs)
}

func (o *WatchOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	o.Polling.apply(o.cfg)
	return nil
}

func (o *WatchOptions) Run(ctx context.Context, args []string) error {
	closeLogs, err := o.SetupLogging(true)
	if err != nil {
		return err
	}
	defer closeLogs()

	a, err := newApp(ctx, o.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read packet: %w", err)
		}
		if err := a.engine.Start(ctx, &pipeline.Artifact{Name: filepath.Base(args[0]), Data: data}); err != nil {
			return errors.New(pipeline.Describe(err))
		}
	}

	model := tui.New(a.engine, a.exporter, tui.Options{ExportFormat: o.cfg.Export.Format})
	if _, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal view: %w", err)
	}
	return nil
}
