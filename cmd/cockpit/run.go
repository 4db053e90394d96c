package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cockpit"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/pipeline"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/tui"
)

type RunOptions struct {
	GlobalOptions
	Polling pollingFlags

	Watch  bool
	Export string
}

func NewCmdRun() *cobra.Command {
	o := &RunOptions{}
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Upload a submission packet and wait for the structured result.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *RunOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.Polling.Bind(fs)
	fs.BoolVarP(&o.Watch, "watch", "w", false, "Show the terminal cockpit while the packet is processed")
	fs.StringVar(&o.Export, "export", "", "Export the result when done: markdown, json or pdf")
}

func (o *RunOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	o.Polling.apply(o.cfg)
	return nil
}

func (o *RunOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Export != "" {
		if _, err := cockpit.ExportFilename("x", o.Export); err != nil {
			return err
		}
	}
	return nil
}

func (o *RunOptions) Run(ctx context.Context, out io.Writer, args []string) error {
	closeLogs, err := o.SetupLogging(o.Watch)
	if err != nil {
		return err
	}
	defer closeLogs()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read packet: %w", err)
	}
	artifact := &pipeline.Artifact{Name: filepath.Base(args[0]), Data: data}

	a, err := newApp(ctx, o.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var snap cockpit.Snapshot
	if o.Watch {
		if err := a.engine.Start(ctx, artifact); err != nil {
			return errors.New(pipeline.Describe(err))
		}
		model := tui.New(a.engine, a.exporter, tui.Options{ExportFormat: o.cfg.Export.Format, QuitWhenDone: true})
		if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("terminal view: %w", err)
		}
		a.engine.Wait()
		snap = a.engine.Snapshot()
	} else {
		snap, _ = a.engine.Run(ctx, artifact)
	}

	printSummary(out, snap)
	if snap.Error != "" {
		return errors.New(snap.Error)
	}

	if o.Export != "" && snap.Job != nil {
		path, err := a.exporter.Save(ctx, snap.Job.SubmissionID, o.Export)
		if err != nil {
			return errors.New(cockpit.ExportMessage(o.Export, err))
		}
		fmt.Fprintf(out, "\nExported %s\n", path)
	}
	return nil
}

func printSummary(out io.Writer, snap cockpit.Snapshot) {
	fmt.Fprintf(out, "%s: %s\n", snap.SubmissionName, snap.StageLabel)
	if snap.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", snap.Error)
		return
	}
	if snap.Job != nil {
		fmt.Fprintf(out, "Submission: %s (job %s)\n", snap.Job.SubmissionID, snap.Job.JobID)
	}

	dm := snap.Metrics
	fmt.Fprintf(out, "Status: %s  Completeness: %d%%  Confidence: %d%%\n",
		snap.OverallStatus, dm.CompletenessPct, dm.ConfidencePct)
	fmt.Fprintf(out, "Renewal: %s  Revenue: %s  Payroll: %s\n", dm.RenewalDelta, snap.Revenue, snap.Payroll)

	if len(dm.MissingFields) > 0 {
		fields := make([]string, 0, len(dm.MissingFields))
		for _, f := range dm.MissingFields {
			fields = append(fields, f.Field)
		}
		fmt.Fprintf(out, "Missing: %s\n", strings.Join(fields, ", "))
	}

	if snap.EmailDraft != "" {
		fmt.Fprintf(out, "\nFollow-up email draft:\n%s\n", snap.EmailDraft)
	}
}
