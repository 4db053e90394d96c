package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cockpit"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

type AuditOptions struct {
	GlobalOptions
	outputFlag
}

func NewCmdAudit() *cobra.Command {
	o := &AuditOptions{}
	cmd := &cobra.Command{
		Use:   "audit SUBMISSION_ID",
		Short: "Show the audit trail of a submission.",
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

func (o *AuditOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.outputFlag.Bind(fs)
}

func (o *AuditOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return o.outputFlag.validate()
}

func (o *AuditOptions) Run(ctx context.Context, out io.Writer, submissionID string) error {
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

	items, err := a.refresher.Audit(ctx, submissionID)
	if err != nil {
		if !errors.Is(err, cockpit.ErrStale) {
			return fmt.Errorf("load audit trail: %w", err)
		}
		slog.Warn("showing cached audit trail", "submission_id", submissionID, "error", err)
	}
	return writeAudit(out, o.Output, items)
}

func writeAudit(out io.Writer, format string, items []models.AuditLogItem) error {
	if format == jsonFormat {
		return writeJSON(out, items)
	}

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tEVENT\tDETAILS")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", it.CreatedAt.Local().Format("2006-01-02 15:04:05"), it.EventType, it.Details)
	}
	return w.Flush()
}
