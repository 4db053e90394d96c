package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cockpit"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/stage"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

const (
	tableFormat = "table"
	jsonFormat  = "json"
)

type outputFlag struct {
	Output string
}

func (f *outputFlag) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.Output, "output", "o", tableFormat, "Output format. One of: (table, json).")
}

func (f *outputFlag) validate() error {
	if f.Output != tableFormat && f.Output != jsonFormat {
		return fmt.Errorf("output format must be one of table, json")
	}
	return nil
}

type SubmissionsOptions struct {
	GlobalOptions
	outputFlag
}

func NewCmdSubmissions() *cobra.Command {
	o := &SubmissionsOptions{}
	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "List submissions known to the pipeline.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *SubmissionsOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.outputFlag.Bind(fs)
}

func (o *SubmissionsOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return o.outputFlag.validate()
}

func (o *SubmissionsOptions) Run(ctx context.Context, out io.Writer) error {
	closeLogs, err := o.SetupLogging(false)
	if err != nil {
		return err
	}
	defer closeLogs()

	a, err := newApp(ctx, o.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := a.refresher.Submissions(ctx)
	if err != nil {
		if !errors.Is(err, cockpit.ErrStale) {
			return fmt.Errorf("list submissions: %w", err)
		}
		slog.Warn("showing cached submissions", "error", err)
	}
	return writeSubmissions(out, o.Output, rows)
}

func writeSubmissions(out io.Writer, format string, rows []models.SubmissionListItem) error {
	if format == jsonFormat {
		return writeJSON(out, rows)
	}

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILENAME\tSTATUS\tJOB\tPROGRESS\tCREATED")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s (%s)\t%s\t%d%%\t%s\n",
			r.SubmissionID,
			r.Filename,
			r.Status,
			stage.Tone(r.Status),
			r.JobStatus,
			stage.SubmissionProgress(r.JobStatus),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
