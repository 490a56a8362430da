package cmd

import (
	"bytes"
	"testing"

	"github.com/allbin/devlink/serial"
)

func TestParseHexString(t *testing.T) {
	tests := []struct {
		input   string
		want    []byte
		wantErr bool
	}{
		{"48656c6c6f", []byte("Hello"), false},
		{"0x48 0x69", []byte("Hi"), false},
		{"02 06 00 99", []byte{0x02, 0x06, 0x00, 0x99}, false},
		{"486", nil, true},
		{"", nil, true},
		{"zz", nil, true},
	}

	for _, tt := range tests {
		got, err := parseHexString(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseHexString(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("parseHexString(%q) = %v, expected %v", tt.input, got, tt.want)
		}
	}
}

func TestFilterPorts(t *testing.T) {
	ports := []serial.PortDescriptor{
		{Path: "/dev/ttyUSB0"},
		{Path: "/dev/ttyACM0"},
		{Path: "/dev/ttyS0"},
		{Path: "/dev/ttyAMA0"},
	}

	tests := []struct {
		filter   string
		expected int
	}{
		{"", 4},
		{"all", 4},
		{"usb", 2},
		{"standard", 1},
		{"arm", 1},
		{"bogus", 0},
	}

	for _, tt := range tests {
		if got := filterPorts(ports, tt.filter); len(got) != tt.expected {
			t.Errorf("filterPorts(%q) returned %d ports, expected %d", tt.filter, len(got), tt.expected)
		}
	}
}

func TestGetPortType(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"ttyUSB0", "USB Serial"},
		{"ttyACM1", "USB CDC/ACM"},
		{"ttyS0", "Standard Serial"},
		{"ttyAMA0", "ARM Serial"},
		{"ttyXYZ", "Serial Port"},
	}

	for _, tt := range tests {
		if got := getPortType(tt.name); got != tt.expected {
			t.Errorf("getPortType(%q) = %q, expected %q", tt.name, got, tt.expected)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := preview([]byte("OK\r\n")); got != "OK··" {
		t.Errorf("preview() = %q", got)
	}
	long := bytes.Repeat([]byte("a"), 60)
	if got := preview(long); len([]rune(got)) != 53 {
		t.Errorf("preview() of 60 bytes has %d runes, expected 53", len([]rune(got)))
	}
}
