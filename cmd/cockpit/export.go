package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cockpit"
)

type ExportOptions struct {
	GlobalOptions

	Format string
	Dir    string
}

func NewCmdExport() *cobra.Command {
	o := &ExportOptions{}
	cmd := &cobra.Command{
		Use:   "export SUBMISSION_ID",
		Short: "Download a rendered submission as markdown, json or pdf.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ExportOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVarP(&o.Format, "format", "f", "", "Export format: markdown, json or pdf (overrides COCKPIT_EXPORT_FORMAT)")
	fs.StringVarP(&o.Dir, "dir", "d", "", "Directory to write the export to (overrides COCKPIT_EXPORT_DIR)")
}

func (o *ExportOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	if o.Format != "" {
		o.cfg.Export.Format = o.Format
	}
	if o.Dir != "" {
		o.cfg.Export.Dir = o.Dir
	}
	return nil
}

func (o *ExportOptions) Run(ctx context.Context, out io.Writer, submissionID string) error {
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

	format := o.cfg.Export.Format
	path, err := a.exporter.Save(ctx, submissionID, format)
	if err != nil {
		if errors.Is(err, cockpit.ErrExport) || errors.Is(err, cockpit.ErrExportFormat) ||
			errors.Is(err, cockpit.ErrSubmissionID) {
			return errors.New(cockpit.ExportMessage(format, err))
		}
		return err
	}
	fmt.Fprintln(out, path)
	return nil
}
