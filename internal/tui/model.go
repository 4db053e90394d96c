// Package tui renders the cockpit in a terminal and lets the operator browse
// submissions while a run is in flight.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cockpit"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/stage"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

const (
	refreshInterval  = 250 * time.Millisecond
	commandTimeout   = 30 * time.Second
	maxMissingFields = 5
	maxAuditRows     = 8
)

// Source is the cockpit state the view renders.
type Source interface {
	Snapshot() cockpit.Snapshot
	RefreshSubmissions(ctx context.Context) error
	SelectSubmission(ctx context.Context, submissionID string) error
}

// Saver writes a submission export to disk.
type Saver interface {
	Save(ctx context.Context, submissionID, format string) (string, error)
}

type Options struct {
	ExportFormat string
	// QuitWhenDone exits once a run that was in flight has finished.
	QuitWhenDone bool
}

type Model struct {
	src    Source
	saver  Saver
	opts   Options
	snap   cockpit.Snapshot
	cursor int
	width  int
	status string

	sawRunning bool
	quitting   bool

	spinner spinner.Model
	bar     progress.Model
	help    help.Model
}

// New creates a Model. saver may be nil to disable exports.
func New(src Source, saver Saver, opts Options) Model {
	if opts.ExportFormat == "" {
		opts.ExportFormat = "markdown"
	}
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = SpinnerStyle

	return Model{
		src:     src,
		saver:   saver,
		opts:    opts,
		snap:    src.Snapshot(),
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(16), progress.WithoutPercentage()),
		help:    help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick(), m.refresh())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) refresh() tea.Cmd {
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return refreshedMsg{Err: src.RefreshSubmissions(ctx)}
	}
}

func (m Model) selectSubmission(id string) tea.Cmd {
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return selectedMsg{SubmissionID: id, Err: src.SelectSubmission(ctx, id)}
	}
}

func (m Model) export(id string) tea.Cmd {
	saver, format := m.saver, m.opts.ExportFormat
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		path, err := saver.Save(ctx, id, format)
		return exportedMsg{Path: path, Format: format, Err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.snap = m.src.Snapshot()
		m.clampCursor()
		if m.snap.Running {
			m.sawRunning = true
		} else if m.opts.QuitWhenDone && m.sawRunning {
			m.quitting = true
			return m, tea.Quit
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshedMsg:
		m.snap = m.src.Snapshot()
		m.clampCursor()
		switch {
		case msg.Err == nil:
			m.status = fmt.Sprintf("%d submissions", len(m.snap.Submissions))
		case errors.Is(msg.Err, cockpit.ErrStale):
			m.status = "Backend unreachable, showing last known submissions"
		default:
			m.status = "Failed to refresh submissions"
		}
		return m, nil

	case selectedMsg:
		m.snap = m.src.Snapshot()
		if msg.Err != nil && !errors.Is(msg.Err, cockpit.ErrStale) {
			m.status = "Failed to load audit trail"
		} else {
			m.status = "Audit trail for " + msg.SubmissionID
		}
		return m, nil

	case exportedMsg:
		if msg.Err != nil {
			m.status = cockpit.ExportMessage(msg.Format, msg.Err)
		} else {
			m.status = "Saved " + msg.Path
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, Keys.Down):
		m.cursor++
		m.clampCursor()
	case key.Matches(msg, Keys.Up):
		m.cursor--
		m.clampCursor()
	case key.Matches(msg, Keys.Refresh):
		m.status = "Refreshing..."
		return m, m.refresh()
	case key.Matches(msg, Keys.Select):
		if id := m.cursorID(); id != "" {
			return m, m.selectSubmission(id)
		}
	case key.Matches(msg, Keys.Export):
		if m.saver == nil {
			m.status = "Export disabled"
			return m, nil
		}
		id := m.snap.SelectedSubmissionID
		if id == "" {
			id = m.cursorID()
		}
		if id == "" {
			m.status = "Select a submission to export"
			return m, nil
		}
		m.status = fmt.Sprintf("Exporting %s as %s...", id, m.opts.ExportFormat)
		return m, m.export(id)
	}
	return m, nil
}

func (m *Model) clampCursor() {
	if n := len(m.snap.Submissions); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) cursorID() string {
	if m.cursor < len(m.snap.Submissions) {
		return m.snap.Submissions[m.cursor].SubmissionID
	}
	return ""
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Submission Cockpit"))
	b.WriteString("  ")
	b.WriteString(SubtitleStyle.Render(m.snap.SubmissionName))
	b.WriteString("\n\n")

	b.WriteString(m.viewStages())
	b.WriteString("\n")
	if m.snap.Error != "" {
		b.WriteString(ErrorStyle.Render(m.snap.Error))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		PanelStyle.Render(m.viewMetrics()),
		PanelStyle.Render(m.viewSubmissions()),
	))
	b.WriteString("\n")

	if len(m.snap.Audit) > 0 {
		b.WriteString(PanelStyle.Render(m.viewAudit()))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(StatusBarStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(Keys))
	return b.String()
}

func (m Model) viewStages() string {
	rail := []stage.Stage{stage.Uploading, stage.Parsing, stage.Structuring, stage.Scoring}
	cur := m.snap.Stage

	parts := make([]string, 0, len(rail)+1)
	for _, s := range rail {
		switch {
		case cur.Terminal() || (cur.Active() && s < cur):
			parts = append(parts, StageDoneStyle.Render("✓ "+s.Label()))
		case s == cur:
			parts = append(parts, StageCurrentStyle.Render(m.spinner.View()+" "+s.Label()))
		default:
			parts = append(parts, StagePendingStyle.Render("· "+s.Label()))
		}
	}

	final := StagePendingStyle.Render("· Ready")
	if cur.Terminal() {
		final = ToneStyle(stage.Tone(cur.String())).Render("● " + cur.Label())
	} else if cur == stage.Idle && !m.snap.Running {
		final = DimStyle.Render(cur.Label())
	}
	parts = append(parts, final)

	return strings.Join(parts, DimStyle.Render("  →  "))
}

func (m Model) viewMetrics() string {
	dm := m.snap.Metrics
	row := func(label, value string) string {
		return LabelStyle.Render(label) + ValueStyle.Render(value) + "\n"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Risk profile"))
	b.WriteString("\n")
	b.WriteString(row("Status", ToneStyle(stage.Tone(m.snap.OverallStatus)).Render(m.snap.OverallStatus)))
	b.WriteString(row("Completeness", fmt.Sprintf("%d%%", dm.CompletenessPct)))
	b.WriteString(row("Confidence", fmt.Sprintf("%d%%", dm.ConfidencePct)))
	b.WriteString(row("Renewal", dm.RenewalDelta))
	b.WriteString(row("Revenue", m.snap.Revenue))
	b.WriteString(row("Payroll", m.snap.Payroll))
	if m.snap.Job != nil {
		b.WriteString(row("Job", m.snap.Job.JobID))
	}

	if len(dm.MissingFields) > 0 {
		b.WriteString("\n")
		b.WriteString(SubtitleStyle.Render("Missing"))
		b.WriteString("\n")
		for i, f := range dm.MissingFields {
			if i == maxMissingFields {
				b.WriteString(DimStyle.Render(fmt.Sprintf("  +%d more", len(dm.MissingFields)-i)))
				b.WriteString("\n")
				break
			}
			tone := "warn"
			if f.Severity == models.SeverityBlocker {
				tone = "bad"
			}
			b.WriteString(ToneStyle(tone).Render("  " + f.Field))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewSubmissions() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Submissions"))
	b.WriteString("\n")
	if len(m.snap.Submissions) == 0 {
		b.WriteString(DimStyle.Render("No submissions yet"))
		return b.String()
	}

	for i, s := range m.snap.Submissions {
		marker := "  "
		if s.SubmissionID == m.snap.SelectedSubmissionID {
			marker = "▸ "
		}
		line := fmt.Sprintf("%s%-24s %s %s",
			marker,
			truncate(s.Filename, 24),
			ToneStyle(stage.Tone(s.Status)).Render(fmt.Sprintf("%-10s", s.Status)),
			m.bar.ViewAs(float64(stage.SubmissionProgress(s.JobStatus))/100),
		)
		if i == m.cursor {
			line = CursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewAudit() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Audit trail"))
	b.WriteString("\n")
	for i, a := range m.snap.Audit {
		if i == maxAuditRows {
			b.WriteString(DimStyle.Render(fmt.Sprintf("+%d earlier events", len(m.snap.Audit)-i)))
			break
		}
		fmt.Fprintf(&b, "%s  %s  %s\n",
			DimStyle.Render(a.CreatedAt.Local().Format("Jan 02 15:04")),
			ValueStyle.Render(a.EventType),
			SubtitleStyle.Render(a.Details),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
