package keys

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
)

func TestConsoleHelpListsEveryBinding(t *testing.T) {
	k := NewConsoleKeys()

	listed := map[string]bool{}
	for _, row := range k.FullHelp() {
		for _, b := range row {
			listed[b.Help().Desc] = true
		}
	}

	all := []key.Binding{
		k.Quit, k.Help, k.InsertMode, k.Escape,
		k.Clear, k.ToggleHex, k.ToggleASCII,
		k.Enter, k.Connect, k.Disconnect, k.Refresh, k.NextPane, k.ToggleSendMode,
		k.Up, k.Down, k.GotoTop, k.GotoBottom,
	}
	for _, b := range all {
		if !listed[b.Help().Desc] {
			t.Errorf("binding %q (%v) missing from FullHelp", b.Help().Desc, b.Keys())
		}
	}
}

func TestConsoleShortHelpIsSubsetOfFullHelp(t *testing.T) {
	k := NewConsoleKeys()

	full := map[string]bool{}
	for _, row := range k.FullHelp() {
		for _, b := range row {
			full[b.Help().Desc] = true
		}
	}
	for _, b := range k.ShortHelp() {
		if !full[b.Help().Desc] {
			t.Errorf("short help entry %q not in FullHelp", b.Help().Desc)
		}
	}
}

func TestLogKeys(t *testing.T) {
	k := NewLogKeys()

	tests := []struct {
		name    string
		binding key.Binding
		want    string
	}{
		{"clear", k.Clear, "c"},
		{"hex", k.ToggleHex, "h"},
		{"ascii", k.ToggleASCII, "a"},
		{"insert", k.InsertMode, "i"},
		{"escape", k.Escape, "esc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.binding.Keys()[0]; got != tt.want {
				t.Errorf("first key = %q, want %q", got, tt.want)
			}
		})
	}
}
