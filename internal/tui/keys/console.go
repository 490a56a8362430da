package keys

import "github.com/charmbracelet/bubbles/key"

// ConsoleKeys adds device selection and sending to the log keys.
// Help is rendered from ShortHelp and FullHelp.
type ConsoleKeys struct {
	LogKeys
	Enter          key.Binding
	Connect        key.Binding
	Disconnect     key.Binding
	Refresh        key.Binding
	NextPane       key.Binding
	ToggleSendMode key.Binding
	Up             key.Binding
	Down           key.Binding
	GotoTop        key.Binding
	GotoBottom     key.Binding
}

func NewConsoleKeys() ConsoleKeys {
	return ConsoleKeys{
		LogKeys: NewLogKeys(),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send message"),
		),
		Connect: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "connect selected"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "disconnect"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r", "ctrl+r"),
			key.WithHelp("r", "refresh devices"),
		),
		NextPane: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next pane"),
		),
		ToggleSendMode: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "toggle send mode"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		GotoTop: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "goto top"),
		),
		GotoBottom: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "goto bottom"),
		),
	}
}

func (k ConsoleKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.NextPane, k.Connect, k.Disconnect, k.InsertMode, k.Quit}
}

func (k ConsoleKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextPane, k.Connect, k.Disconnect, k.Refresh},
		{k.InsertMode, k.Escape, k.ToggleSendMode, k.Enter},
		{k.Clear, k.ToggleHex, k.ToggleASCII},
		{k.Up, k.Down, k.GotoTop, k.GotoBottom},
		{k.Help, k.Quit},
	}
}
