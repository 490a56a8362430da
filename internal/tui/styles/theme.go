package styles

import (
	"github.com/allbin/devlink/internal/tui/colors"
	"github.com/allbin/devlink/session"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Pane titles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Padding(0, 1)

	FocusedTitleStyle = TitleStyle.
				Foreground(colors.Base).
				Background(colors.Mauve)

	PhaseIdleStyle = lipgloss.NewStyle().
			Foreground(colors.Overlay0)

	PhaseBusyStyle = lipgloss.NewStyle().
			Foreground(colors.Yellow).
			Bold(true)

	PhaseConnectedStyle = lipgloss.NewStyle().
				Foreground(colors.Green).
				Bold(true)

	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface1)

	FocusedPaneStyle = PaneStyle.
				BorderForeground(colors.Lavender)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colors.Text)

	TableHighlightStyle = lipgloss.NewStyle().
				Foreground(colors.Text).
				Background(colors.Surface1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)
)

// PhaseStyle colors a connection phase.
func PhaseStyle(p session.Phase) lipgloss.Style {
	switch p {
	case session.Connected:
		return PhaseConnectedStyle
	case session.Discovering, session.Connecting:
		return PhaseBusyStyle
	default:
		return PhaseIdleStyle
	}
}
