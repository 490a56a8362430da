package components

import (
	"fmt"

	"github.com/allbin/devlink/internal/tui/colors"
	"github.com/allbin/devlink/internal/tui/styles"
	"github.com/allbin/devlink/session"
	"github.com/charmbracelet/lipgloss"
)

type StatusBar struct {
	width int
	state session.State
}

func NewStatusBar() *StatusBar {
	return &StatusBar{}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetState(state session.State) {
	sb.state = state
}

// usbSummary names the held USB device, or the phase when none is held.
func (sb *StatusBar) usbSummary() string {
	s := sb.state
	text := "usb " + s.UsbPhase.String()
	if s.ConnectedDevice != nil {
		text = "usb " + s.ConnectedDevice.ID()
	}
	return styles.PhaseStyle(s.UsbPhase).Render(text)
}

func (sb *StatusBar) serialSummary() string {
	s := sb.state
	text := "serial " + s.SerialPhase.String()
	if s.ConnectedPort != nil {
		text = fmt.Sprintf("%s @ %d", s.ConnectedPort.Path, session.SerialBaudRate)
	}
	return styles.PhaseStyle(s.SerialPhase).Render(text)
}

// View renders a single line: mode, bridge, connections, error and clock.
func (sb *StatusBar) View(inputMode, sendingMode, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeStyle := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(colors.Blue).
		Bold(true).
		Padding(0, 1)
	if inputMode == "INSERT" {
		modeStyle = modeStyle.Background(colors.Green)
	}
	mode := modeStyle.Render(inputMode)

	bridge := lipgloss.NewStyle().Foreground(colors.Green).Padding(0, 1).Render("● bridge")
	if !sb.state.BridgeAvailable {
		bridge = lipgloss.NewStyle().Foreground(colors.Red).Padding(0, 1).Render("✗ bridge")
	}

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	left := []string{mode, bridge, sb.usbSummary(), divider, sb.serialSummary()}
	if inputMode == "INSERT" {
		left = append(left, lipgloss.NewStyle().
			Foreground(colors.Peach).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", sendingMode)))
	}
	if sb.state.Loading {
		left = append(left, lipgloss.NewStyle().Foreground(colors.Yellow).Padding(0, 1).Render("…"))
	}
	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)
	rightSide := clock
	if sb.state.Error != "" {
		rightSide = lipgloss.JoinHorizontal(lipgloss.Left,
			styles.ErrorStyle.Padding(0, 1).Render(sb.state.Error), divider, clock)
	}

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
