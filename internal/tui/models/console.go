package models

import (
	"context"
	"fmt"
	"time"

	"github.com/allbin/devlink/host"
	"github.com/allbin/devlink/internal/tui/components"
	"github.com/allbin/devlink/internal/tui/keys"
	"github.com/allbin/devlink/internal/tui/styles"
	"github.com/allbin/devlink/session"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	if m == InputModeInsert {
		return "INSERT"
	}
	return "NORMAL"
}

// Pane is the part of the console that receives navigation keys.
type Pane int

const (
	PaneUsb Pane = iota
	PaneSerial
	PaneLog
)

// ResultMsg is the outcome of a session operation started from the console.
type ResultMsg struct {
	Action string
	Result host.Result

	// TxID is set for sends and names the log entry to update.
	TxID uint64
}

// Layout heights in lines.
const (
	devicePaneHeight = 12
	inputHeight      = 3
	statusBarHeight  = 1
	helpHeight       = 1
	minLogHeight     = 3
)

// Console is the interactive view over a session client.
type Console struct {
	ctx    context.Context
	client *session.Client
	feed   *Feed
	unsub  func()

	state       session.State
	usbTable    *components.DeviceTable
	serialTable *components.DeviceTable
	log         *components.DataLog
	input       *components.Input
	statusBar   *components.StatusBar
	help        help.Model
	keys        keys.ConsoleKeys

	pane      Pane
	inputMode InputMode
	ready     bool
	width     int
	nextTxID  uint64
}

// NewConsole builds the view. The feed must also be installed as the
// client's serial data handler for inbound data to show up.
func NewConsole(ctx context.Context, client *session.Client, feed *Feed) *Console {
	m := &Console{
		ctx:         ctx,
		client:      client,
		feed:        feed,
		usbTable:    components.NewUsbTable(),
		serialTable: components.NewSerialTable(),
		log:         components.NewDataLog(0, 0),
		input:       components.NewInput(),
		statusBar:   components.NewStatusBar(),
		help:        help.New(),
		keys:        keys.NewConsoleKeys(),
	}
	m.unsub = client.OnChange(feed.State)
	m.applyState(client.State())
	m.usbTable.SetFocused(true)
	return m
}

// Close detaches the console from the client.
func (m *Console) Close() {
	m.unsub()
	m.feed.Close()
}

func (m *Console) Init() tea.Cmd {
	return tea.Batch(m.feed.Next(), m.refresh())
}

func (m *Console) InputMode() InputMode { return m.inputMode }

func (m *Console) Pane() Pane { return m.pane }

func (m *Console) Log() *components.DataLog { return m.log }

func (m *Console) applyState(s session.State) {
	m.state = s
	m.usbTable.SetUsbDevices(s.UsbDevices, s.ConnectedDevice)
	m.serialTable.SetSerialPorts(s.SerialPorts, s.ConnectedPort)
	m.statusBar.SetState(s)
}

func (m *Console) refresh() tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		client.Refresh(ctx)
		return nil
	}
}

func (m *Console) run(action string, txID uint64, fn func(context.Context) host.Result) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return ResultMsg{Action: action, TxID: txID, Result: fn(ctx)}
	}
}

func (m *Console) system(text string, isErr bool) {
	m.log.Add(components.Entry{
		Timestamp: time.Now(),
		Direction: components.System,
		Text:      text,
		Err:       isErr,
	})
}

func (m *Console) setPane(p Pane) {
	m.pane = p
	m.usbTable.SetFocused(p == PaneUsb)
	m.serialTable.SetFocused(p == PaneSerial)
}

func (m *Console) resize(width, height int) {
	m.width = width
	half := width / 2
	// Pane borders take two columns.
	m.usbTable.SetWidth(half - 2)
	m.serialTable.SetWidth(width - half - 2)

	logHeight := height - devicePaneHeight - inputHeight - statusBarHeight - helpHeight - 1
	if logHeight < minLogHeight {
		logHeight = minLogHeight
	}
	m.log.SetSize(width, logHeight)
	m.input.SetWidth(width)
	m.statusBar.SetWidth(width)
	m.help.Width = width
	m.ready = true
}

func (m *Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, m.log.Update(msg)

	case DataMsg:
		m.log.Add(components.Entry{Timestamp: msg.At, Direction: components.RX, Data: msg.Data})
		return m, m.feed.Next()

	case StateChangedMsg:
		m.applyState(m.client.State())
		return m, m.feed.Next()

	case ResultMsg:
		if msg.TxID != 0 {
			status := components.TxWritten
			if !msg.Result.Success {
				status = components.TxFailed
				m.system(msg.Result.Message, true)
			}
			m.log.SetStatus(msg.TxID, status)
			return m, nil
		}
		text := msg.Result.Message
		if text == "" {
			text = msg.Action
		}
		m.system(text, !msg.Result.Success)
		return m, nil

	case tea.KeyMsg:
		if m.inputMode == InputModeInsert {
			return m, m.updateInsert(msg)
		}
		return m, m.updateNormal(msg)
	}

	return m, nil
}

func (m *Console) updateInsert(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.inputMode = InputModeNormal
		m.input.Blur()
		return nil

	case key.Matches(msg, m.keys.Enter):
		return m.send()

	case msg.Type == tea.KeyUp:
		m.input.NavigateHistoryUp()
		return nil

	case msg.Type == tea.KeyDown:
		m.input.NavigateHistoryDown()
		return nil

	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Console) send() tea.Cmd {
	value := m.input.Value()
	if value == "" {
		return nil
	}

	payload, err := m.input.Payload()
	if err != nil {
		m.system(fmt.Sprintf("Invalid %s input: %v", m.input.GetSendingMode(), err), true)
		return nil
	}

	m.nextTxID++
	id := m.nextTxID
	m.log.Add(components.Entry{
		ID:        id,
		Timestamp: time.Now(),
		Direction: components.TX,
		Data:      payload,
		Status:    components.TxPending,
	})
	m.input.AddToHistory(value)
	m.input.SetValue("")

	client := m.client
	return m.run("send", id, func(ctx context.Context) host.Result {
		return client.SendSerialData(ctx, payload)
	})
}

func (m *Console) updateNormal(msg tea.KeyMsg) tea.Cmd {
	client := m.client

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.InsertMode):
		m.inputMode = InputModeInsert
		return m.input.Focus()

	case key.Matches(msg, m.keys.NextPane):
		m.setPane((m.pane + 1) % 3)

	case key.Matches(msg, m.keys.Refresh):
		return m.refresh()

	case key.Matches(msg, m.keys.Clear):
		m.log.Clear()

	case key.Matches(msg, m.keys.ToggleHex):
		m.log.ToggleHex()

	case key.Matches(msg, m.keys.ToggleASCII):
		m.log.ToggleASCII()

	case key.Matches(msg, m.keys.Connect):
		switch m.pane {
		case PaneUsb:
			if d, ok := m.usbTable.SelectedUsbDevice(); ok {
				return m.run("connect USB device", 0, func(ctx context.Context) host.Result {
					return client.ConnectUsbDevice(ctx, d.VendorID, d.ProductID)
				})
			}
		case PaneSerial:
			if p, ok := m.serialTable.SelectedSerialPort(); ok {
				return m.run("connect serial port", 0, func(ctx context.Context) host.Result {
					return client.ConnectSerialPort(ctx, p.Path)
				})
			}
		}

	case key.Matches(msg, m.keys.Disconnect):
		switch m.pane {
		case PaneUsb:
			return m.run("disconnect USB device", 0, client.DisconnectUsbDevice)
		case PaneSerial:
			return m.run("disconnect serial port", 0, client.DisconnectSerialPort)
		}

	default:
		return m.navigate(msg)
	}
	return nil
}

func (m *Console) navigate(msg tea.KeyMsg) tea.Cmd {
	switch m.pane {
	case PaneUsb:
		return m.usbTable.Update(msg)
	case PaneSerial:
		return m.serialTable.Update(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.log.ScrollUp()
	case key.Matches(msg, m.keys.Down):
		m.log.ScrollDown()
	case key.Matches(msg, m.keys.GotoTop):
		m.log.GotoTop()
	case key.Matches(msg, m.keys.GotoBottom):
		m.log.GotoBottom()
	}
	return nil
}

func (m *Console) paneView(title, body string, width int, focused bool, phase session.Phase) string {
	titleStyle, paneStyle := styles.TitleStyle, styles.PaneStyle
	if focused {
		titleStyle, paneStyle = styles.FocusedTitleStyle, styles.FocusedPaneStyle
	}
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render(title),
		" ",
		styles.PhaseStyle(phase).Render(phase.String()))
	return paneStyle.
		Width(width - 2).
		Height(devicePaneHeight - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, body))
}

func (m *Console) View() string {
	if !m.ready {
		return "Initializing..."
	}

	half := m.width / 2
	devices := lipgloss.JoinHorizontal(lipgloss.Top,
		m.paneView("USB devices", m.usbTable.View(), half, m.pane == PaneUsb, m.state.UsbPhase),
		m.paneView("Serial ports", m.serialTable.View(), m.width-half, m.pane == PaneSerial, m.state.SerialPhase),
	)

	logStyle := styles.ContentBorderStyle
	if m.pane == PaneLog {
		logStyle = logStyle.BorderForeground(styles.FocusedPaneStyle.GetBorderTopForeground())
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		devices,
		logStyle.Render(m.log.View()),
		m.input.View(m.inputMode == InputModeInsert),
		m.statusBar.View(m.inputMode.String(), m.input.GetSendingMode().String(), time.Now().Format("15:04:05")),
		m.help.View(m.keys),
	)
}
