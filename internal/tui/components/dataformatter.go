package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/devlink/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// Direction tells where a log entry came from.
type Direction int

const (
	RX Direction = iota
	TX
	// System entries are operation results and transport errors.
	System
)

// TxStatus tracks an outbound entry.
type TxStatus int

const (
	TxPending TxStatus = iota
	TxWritten
	TxFailed
)

// Entry is one line of the data log.
type Entry struct {
	ID        uint64
	Timestamp time.Time
	Direction Direction
	Data      []byte
	Status    TxStatus

	// Text is used instead of Data for System entries.
	Text string
	Err  bool
}

type DisplayMode struct {
	ShowHex   bool
	ShowASCII bool
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(showHex, showASCII bool) *DataFormatter {
	return &DataFormatter{
		mode: DisplayMode{
			ShowHex:   showHex,
			ShowASCII: showASCII,
		},
	}
}

func (df *DataFormatter) SetDisplayMode(showHex, showASCII bool) {
	df.mode.ShowHex = showHex
	df.mode.ShowASCII = showASCII
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}

// Printable replaces everything outside printable ASCII with dots, so no
// control sequence from the device reaches the terminal.
func Printable(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func (df *DataFormatter) indicator(e Entry) string {
	var color lipgloss.Color
	var text string

	switch e.Direction {
	case TX:
		switch e.Status {
		case TxPending:
			color, text = colors.Yellow, "↗ TX ○"
		case TxWritten:
			color, text = colors.Green, "↗ TX ✓"
		default:
			color, text = colors.Red, "↗ TX ✗"
		}
	case System:
		if e.Err {
			color, text = colors.Red, "✗ ERR"
		} else {
			color, text = colors.Lavender, "● SYS"
		}
	default:
		color, text = colors.Sky, "↙ RX"
	}

	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(text)
}

func (df *DataFormatter) FormatEntry(e Entry) string {
	timestamp := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render(fmt.Sprintf("[%s]", e.Timestamp.Format("15:04:05.000")))

	if e.Direction == System {
		return fmt.Sprintf("%s %s: %s", timestamp, df.indicator(e), Printable([]byte(e.Text)))
	}

	var parts []string
	if df.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", e.Data))
	}
	if df.mode.ShowASCII {
		parts = append(parts, "ASCII: "+Printable(e.Data))
	}
	if !df.mode.ShowHex && !df.mode.ShowASCII {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(e.Data)))
	}

	return fmt.Sprintf("%s %s: %s", timestamp, df.indicator(e), strings.Join(parts, "  "))
}

func (df *DataFormatter) FormatEntries(entries []Entry) []string {
	formatted := make([]string, len(entries))
	for i, e := range entries {
		formatted[i] = df.FormatEntry(e)
	}
	return formatted
}
