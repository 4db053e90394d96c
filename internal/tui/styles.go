package tui

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle     lipgloss.Style
	SubtitleStyle  lipgloss.Style
	LabelStyle     lipgloss.Style
	ValueStyle     lipgloss.Style
	DimStyle       lipgloss.Style
	CursorStyle    lipgloss.Style
	ErrorStyle     lipgloss.Style
	StatusBarStyle lipgloss.Style
	SpinnerStyle   lipgloss.Style
	PanelStyle     lipgloss.Style

	// Stage rail
	StageDoneStyle    lipgloss.Style
	StageCurrentStyle lipgloss.Style
	StagePendingStyle lipgloss.Style

	toneStyles map[string]lipgloss.Style
)

func init() {
	InitStyles()
}

// InitStyles builds the cockpit palette.
func InitStyles() {
	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#E6EDF3"))

	SubtitleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#8B949E"))

	LabelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#8B949E")).
		Width(14)

	ValueStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#E6EDF3"))

	DimStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6E7681"))

	CursorStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("#30363D"))

	ErrorStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#F85149"))

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#C9D1D9")).
		Background(lipgloss.Color("#21262D")).
		Padding(0, 1)

	SpinnerStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#D29922"))

	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#30363D")).
		Padding(0, 1)

	StageDoneStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3FB950"))

	StageCurrentStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#D29922"))

	StagePendingStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6E7681"))

	toneStyles = map[string]lipgloss.Style{
		"ok":      lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950")),
		"warn":    lipgloss.NewStyle().Foreground(lipgloss.Color("#D29922")),
		"bad":     lipgloss.NewStyle().Foreground(lipgloss.Color("#F85149")),
		"neutral": lipgloss.NewStyle().Foreground(lipgloss.Color("#8B949E")),
	}
}

// ToneStyle returns the style for a stage.Tone value.
func ToneStyle(tone string) lipgloss.Style {
	if s, ok := toneStyles[tone]; ok {
		return s
	}
	return toneStyles["neutral"]
}
