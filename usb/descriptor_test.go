package usb

import (
	"errors"
	"testing"
)

func TestFormatID(t *testing.T) {
	tests := []struct {
		vid, pid uint16
		expected string
	}{
		{0x1234, 0x5678, "1234:5678"},
		{0x0403, 0x6001, "403:6001"},
		{0x0001, 0x0002, "1:2"},
		{0xffff, 0x0000, "ffff:0"},
	}

	for _, tt := range tests {
		if got := FormatID(tt.vid, tt.pid); got != tt.expected {
			t.Errorf("FormatID(%#04x, %#04x) = %q, expected %q", tt.vid, tt.pid, got, tt.expected)
		}
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		id       string
		vid, pid uint16
		wantErr  bool
	}{
		{"1234:5678", 0x1234, 0x5678, false},
		{"403:6001", 0x0403, 0x6001, false},
		{"0403:6001", 0x0403, 0x6001, false},
		{"ABCD:EF01", 0xabcd, 0xef01, false},
		{"1234", 0, 0, true},
		{"zz:1", 0, 0, true},
		{"1:10000", 0, 0, true},
		{"", 0, 0, true},
	}

	for _, tt := range tests {
		vid, pid, err := ParseID(tt.id)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidID) {
				t.Errorf("ParseID(%q): expected ErrInvalidID, got %v", tt.id, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseID(%q) unexpected error: %v", tt.id, err)
			continue
		}
		if vid != tt.vid || pid != tt.pid {
			t.Errorf("ParseID(%q) = %#04x:%#04x, expected %#04x:%#04x", tt.id, vid, pid, tt.vid, tt.pid)
		}
	}
}

func TestDescriptorID(t *testing.T) {
	d := Descriptor{VendorID: 0x1234, ProductID: 0x5678, Manufacturer: "Acme"}
	vid, pid, err := ParseID(d.ID())
	if err != nil {
		t.Fatalf("ParseID(%q) failed: %v", d.ID(), err)
	}
	if vid != d.VendorID || pid != d.ProductID {
		t.Errorf("ID() did not round-trip: got %#04x:%#04x", vid, pid)
	}
}
