package models

import (
	"slices"
	"sync"
	"time"

	"github.com/allbin/devlink/session"
	tea "github.com/charmbracelet/bubbletea"
)

// DataMsg carries inbound serial data into the program.
type DataMsg struct {
	At   time.Time
	Data []byte
}

// StateChangedMsg tells the console to re-read the session state.
type StateChangedMsg struct{}

// Feed moves session callbacks onto the Bubble Tea loop. Data beyond the
// buffer is dropped and state notifications coalesce, so session callbacks
// never block.
type Feed struct {
	data    chan DataMsg
	changed chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewFeed(size int) *Feed {
	return &Feed{
		data:    make(chan DataMsg, size),
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// SerialData is a session.WithSerialDataHandler callback.
func (f *Feed) SerialData(data []byte) {
	select {
	case f.data <- DataMsg{At: time.Now(), Data: slices.Clone(data)}:
	default:
	}
}

// State is a session.Client.OnChange callback.
func (f *Feed) State(session.State) {
	select {
	case f.changed <- struct{}{}:
	default:
	}
}

// Next waits for the next message. It returns nil once the feed is closed.
func (f *Feed) Next() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-f.data:
			return msg
		case <-f.changed:
			return StateChangedMsg{}
		case <-f.done:
			return nil
		}
	}
}

func (f *Feed) Close() {
	f.once.Do(func() { close(f.done) })
}
