package components

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/allbin/devlink/serial"
	"github.com/allbin/devlink/usb"
	tea "github.com/charmbracelet/bubbletea"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		input   string
		want    []byte
		wantErr bool
	}{
		{"48656C6C6F", []byte("Hello"), false},
		{"48 65 6c 6c 6f", []byte("Hello"), false},
		{"  0206000300000099 ", []byte{0x02, 0x06, 0x00, 0x03, 0x00, 0x00, 0x00, 0x99}, false},
		{"", nil, true},
		{"ABC", nil, true},
		{"zz", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseHex(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHex(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("ParseHex(%q) = %v, expected %v", tt.input, got, tt.want)
		}
	}
}

func TestPrintable(t *testing.T) {
	tests := []struct {
		input    []byte
		expected string
	}{
		{[]byte("OK"), "OK"},
		{[]byte("OK\r\n"), "OK.."},
		{[]byte{0x1b, '[', '2', 'J'}, ".[2J"},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := Printable(tt.input); got != tt.expected {
			t.Errorf("Printable(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatEntry(t *testing.T) {
	df := NewDataFormatter(true, true)
	e := Entry{Timestamp: time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC), Direction: RX, Data: []byte("Hi")}

	line := df.FormatEntry(e)
	for _, want := range []string{"12:30:00.000", "RX", "HEX: 48 69", "ASCII: Hi"} {
		if !strings.Contains(line, want) {
			t.Errorf("FormatEntry() = %q, missing %q", line, want)
		}
	}

	df.ToggleHex()
	df.ToggleASCII()
	if line := df.FormatEntry(e); !strings.Contains(line, "BYTES: 2") {
		t.Errorf("FormatEntry() with no display mode = %q, expected byte count", line)
	}

	sys := df.FormatEntry(Entry{Direction: System, Text: "Data sent successfully"})
	if !strings.Contains(sys, "Data sent successfully") {
		t.Errorf("FormatEntry() for system entry = %q", sys)
	}
}

func TestDataLogStatusAndLimit(t *testing.T) {
	l := NewDataLog(80, 10)

	l.Add(Entry{ID: 1, Direction: TX, Data: []byte("a"), Status: TxPending})
	l.SetStatus(1, TxWritten)
	if got := l.Entries()[0].Status; got != TxWritten {
		t.Errorf("Status = %v, expected TxWritten", got)
	}

	for i := 0; i < MaxLogEntries+10; i++ {
		l.Add(Entry{Direction: RX, Data: []byte{byte(i)}})
	}
	if got := len(l.Entries()); got != MaxLogEntries {
		t.Errorf("len(Entries) = %d, expected %d", got, MaxLogEntries)
	}

	l.Clear()
	if got := len(l.Entries()); got != 0 {
		t.Errorf("len(Entries) after Clear = %d", got)
	}
}

func TestInputPayload(t *testing.T) {
	in := NewInput()

	in.SetValue("AT")
	got, err := in.Payload()
	if err != nil || string(got) != "AT\n" {
		t.Errorf("ASCII Payload() = %q, %v", got, err)
	}

	in.ToggleSendingMode()
	if in.GetSendingMode() != SendingModeHex {
		t.Fatalf("sending mode = %v, expected HEX", in.GetSendingMode())
	}
	in.SetValue("41 54")
	got, err = in.Payload()
	if err != nil || string(got) != "AT" {
		t.Errorf("hex Payload() = %q, %v", got, err)
	}

	in.SetValue("4")
	if _, err := in.Payload(); err == nil {
		t.Error("expected error for odd hex digits")
	}
}

func TestInputHistory(t *testing.T) {
	in := NewInput()
	in.AddToHistory("first")
	in.AddToHistory("second")
	in.AddToHistory("second")
	in.AddToHistory("   ")

	in.SetValue("draft")
	in.NavigateHistoryUp()
	if in.Value() != "second" {
		t.Errorf("after up = %q, expected second", in.Value())
	}
	in.NavigateHistoryUp()
	in.NavigateHistoryUp()
	if in.Value() != "first" {
		t.Errorf("after up x3 = %q, expected first", in.Value())
	}
	in.NavigateHistoryDown()
	in.NavigateHistoryDown()
	if in.Value() != "draft" {
		t.Errorf("after down past end = %q, expected draft", in.Value())
	}
}

func TestUsbTableSelection(t *testing.T) {
	tbl := NewUsbTable()
	if _, ok := tbl.SelectedUsbDevice(); ok {
		t.Error("empty table should have no selection")
	}

	devices := []usb.Descriptor{
		{VendorID: 0x0403, ProductID: 0x6001, Manufacturer: "FTDI"},
		{VendorID: 0x2341, ProductID: 0x0043, Manufacturer: "Arduino"},
	}
	tbl.SetUsbDevices(devices, &devices[1])
	tbl.SetFocused(true)

	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, expected 2", tbl.Len())
	}
	d, ok := tbl.SelectedUsbDevice()
	if !ok || d.ID() != "403:6001" {
		t.Errorf("SelectedUsbDevice() = %v, %v", d, ok)
	}

	tbl.Update(tea.KeyMsg{Type: tea.KeyDown})
	d, ok = tbl.SelectedUsbDevice()
	if !ok || d.ID() != "2341:43" {
		t.Errorf("SelectedUsbDevice() after down = %v, %v", d, ok)
	}

	if view := tbl.View(); !strings.Contains(view, "Arduino") {
		t.Errorf("View() missing device row:\n%s", view)
	}
}

func TestSerialTableSelection(t *testing.T) {
	tbl := NewSerialTable()
	ports := []serial.PortDescriptor{
		{Path: "/dev/ttyACM0", VendorID: "2341", ProductID: "0043"},
		{Path: "/dev/ttyS0"},
	}
	tbl.SetSerialPorts(ports, nil)

	p, ok := tbl.SelectedSerialPort()
	if !ok || p.Path != "/dev/ttyACM0" {
		t.Errorf("SelectedSerialPort() = %v, %v", p, ok)
	}
	if _, ok := tbl.SelectedUsbDevice(); ok {
		t.Error("serial table should not yield a USB device")
	}
}
