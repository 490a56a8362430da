package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// MaxLogEntries bounds the data log; the oldest entries are dropped first.
const MaxLogEntries = 2000

// DataLog is a scrolling viewport over log entries.
type DataLog struct {
	viewport  viewport.Model
	formatter *DataFormatter
	entries   []Entry
	follow    bool
}

func NewDataLog(width, height int) *DataLog {
	return &DataLog{
		viewport:  viewport.New(width, height),
		formatter: NewDataFormatter(true, true),
		follow:    true,
	}
}

func (l *DataLog) SetSize(width, height int) {
	l.viewport.Width = width
	l.viewport.Height = height
	l.render()
}

func (l *DataLog) Width() int {
	return l.viewport.Width
}

func (l *DataLog) Entries() []Entry {
	return l.entries
}

func (l *DataLog) Add(e Entry) {
	l.entries = append(l.entries, e)
	if n := len(l.entries) - MaxLogEntries; n > 0 {
		l.entries = append([]Entry(nil), l.entries[n:]...)
	}
	l.render()
}

// SetStatus updates the outbound entry with the given id.
func (l *DataLog) SetStatus(id uint64, status TxStatus) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].ID == id {
			l.entries[i].Status = status
			l.render()
			return
		}
	}
}

func (l *DataLog) Clear() {
	l.entries = nil
	l.viewport.SetContent("")
}

func (l *DataLog) ToggleHex() {
	l.formatter.ToggleHex()
	l.render()
}

func (l *DataLog) ToggleASCII() {
	l.formatter.ToggleASCII()
	l.render()
}

func (l *DataLog) GetDisplayMode() DisplayMode {
	return l.formatter.GetDisplayMode()
}

func (l *DataLog) GotoTop() {
	l.follow = false
	l.viewport.GotoTop()
}

func (l *DataLog) GotoBottom() {
	l.follow = true
	l.viewport.GotoBottom()
}

func (l *DataLog) ScrollUp() {
	l.follow = false
	l.viewport.ScrollUp(1)
}

func (l *DataLog) ScrollDown() {
	l.viewport.ScrollDown(1)
	l.follow = l.viewport.AtBottom()
}

func (l *DataLog) render() {
	l.viewport.SetContent(strings.Join(l.formatter.FormatEntries(l.entries), "\n"))
	if l.follow {
		l.viewport.GotoBottom()
	}
}

func (l *DataLog) Update(msg tea.Msg) tea.Cmd {
	// Key presses are handled by the owning model.
	if _, ok := msg.(tea.WindowSizeMsg); !ok {
		return nil
	}
	var cmd tea.Cmd
	l.viewport, cmd = l.viewport.Update(msg)
	return cmd
}

func (l *DataLog) View() string {
	return l.viewport.View()
}
