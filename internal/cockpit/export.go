package cockpit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/backend"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/session"
)

var (
	ErrExport       = errors.New("export failed")
	ErrExportFormat = errors.New("unsupported export format")
	ErrSubmissionID = errors.New("invalid submission id")
)

var exportExtensions = map[string]string{
	"markdown": "md",
	"json":     "json",
	"pdf":      "pdf",
}

// ExportFilename is the name an exported artifact is saved under. The
// submission ID must be a single path element.
func ExportFilename(submissionID, format string) (string, error) {
	if strings.ContainsAny(submissionID, `/\`) || strings.Contains(submissionID, "..") {
		return "", fmt.Errorf("%w: %q", ErrSubmissionID, submissionID)
	}
	ext, ok := exportExtensions[format]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrExportFormat, format)
	}
	return submissionID + "." + ext, nil
}

// Exporter downloads rendered submission artifacts into a directory.
type Exporter struct {
	client   backend.Client
	sessions session.Source
	dir      string
}

func NewExporter(client backend.Client, sessions session.Source, dir string) *Exporter {
	return &Exporter{client: client, sessions: sessions, dir: dir}
}

// Fetch returns the artifact bytes and the filename they belong under.
func (x *Exporter) Fetch(ctx context.Context, submissionID, format string) ([]byte, string, error) {
	if submissionID == "" {
		return nil, "", fmt.Errorf("%w: no submission selected", ErrExport)
	}
	name, err := ExportFilename(submissionID, format)
	if err != nil {
		return nil, "", err
	}

	sess, err := x.sessions.EnsureSession(ctx)
	if err != nil {
		return nil, "", err
	}

	data, err := x.client.Export(ctx, sess, submissionID, format)
	if err != nil {
		slog.Warn("export failed", "submission_id", submissionID, "format", format, "error", err)
		return nil, "", fmt.Errorf("%w: %s: %v", ErrExport, format, err)
	}
	return data, name, nil
}

// Save fetches the artifact and writes it into the export directory,
// returning the written path.
func (x *Exporter) Save(ctx context.Context, submissionID, format string) (string, error) {
	data, name, err := x.Fetch(ctx, submissionID, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	path := filepath.Join(x.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}

	slog.Info("submission exported", "submission_id", submissionID, "format", format, "path", path, "bytes", len(data))
	return path, nil
}

// ExportMessage is the user-facing text for an export error.
func ExportMessage(format string, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExportFormat):
		return fmt.Sprintf("Unsupported export format %q", format)
	case errors.Is(err, ErrSubmissionID):
		return "Invalid submission ID"
	default:
		return fmt.Sprintf("Export %s failed", format)
	}
}
