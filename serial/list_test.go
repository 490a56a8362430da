package serial

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestListPorts(t *testing.T) {
	ports, err := ListPorts()
	if err != nil {
		t.Errorf("ListPorts failed: %v", err)
	}

	for _, port := range ports {
		if !strings.HasPrefix(port, "/dev/") {
			t.Errorf("Port path doesn't start with /dev/: %s", port)
		}
		if !isCharacterDevice(port) {
			t.Errorf("Port is not a character device: %s", port)
		}
	}

	for i := 1; i < len(ports); i++ {
		if ports[i-1] > ports[i] {
			t.Errorf("Ports are not sorted: %s > %s", ports[i-1], ports[i])
		}
	}
}

func TestIsCharacterDevice(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/dev/null", true},
		{"/dev/zero", true},
		{"/tmp", false},
		{"/nonexistent", false},
	}

	for _, test := range tests {
		result := isCharacterDevice(test.path)
		if result != test.expected {
			t.Errorf("isCharacterDevice(%s) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestGetPortDescription(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"ttyUSB0", "USB Serial Port"},
		{"ttyACM0", "USB CDC/ACM Device"},
		{"ttyS0", "Standard Serial Port"},
		{"ttyAMA0", "ARM Serial Port"},
		{"ttymxc0", "i.MX Serial Port"},
		{"ttyO0", "OMAP Serial Port"},
		{"ttySAC0", "Samsung Serial Port"},
		{"ttyTHS0", "Tegra Serial Port"},
		{"unknown", "Serial Port"},
	}

	for _, test := range tests {
		result := getPortDescription(test.name)
		if result != test.expected {
			t.Errorf("getPortDescription(%s) = %s, expected %s", test.name, result, test.expected)
		}
	}
}

func TestGetPortInfo(t *testing.T) {
	// /dev/null always exists and is a character device
	info, err := GetPortInfo("/dev/null")
	if err != nil {
		t.Fatalf("GetPortInfo failed for /dev/null: %v", err)
	}
	if info.Name != "null" {
		t.Errorf("Expected name 'null', got '%s'", info.Name)
	}
	if info.Path != "/dev/null" {
		t.Errorf("Expected path '/dev/null', got '%s'", info.Path)
	}
	if info.Description == "" {
		t.Error("Description should not be empty")
	}

	_, err = GetPortInfo("/dev/nonexistent")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestIsSerialName(t *testing.T) {
	tests := []struct {
		name        string
		shouldMatch bool
	}{
		{"ttyUSB0", true},
		{"ttyUSB1", true},
		{"ttyACM0", true},
		{"ttyS0", true},
		{"ttyAMA0", true},
		{"tty1", false},
		{"tty2", false},
		{"console", false},
		{"ptmx", false},
		{"ptyp0", false},
		{"random", false},
		{"urandom", false},
	}

	for _, tt := range tests {
		if got := isSerialName(tt.name); got != tt.shouldMatch {
			t.Errorf("isSerialName(%q) = %v, expected %v", tt.name, got, tt.shouldMatch)
		}
	}
}

func TestFindAlias(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "ttyUSB0")
	if err := os.WriteFile(target, nil, 0644); err != nil {
		t.Fatalf("Failed to create target: %v", err)
	}
	byID := filepath.Join(tmpDir, "by-id")
	if err := os.MkdirAll(byID, 0755); err != nil {
		t.Fatalf("Failed to create by-id: %v", err)
	}
	alias := "usb-FTDI_FT232R_USB_UART_A50285BI-if00-port0"
	if err := os.Symlink(target, filepath.Join(byID, alias)); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	if got := findAlias(byID, target); got != alias {
		t.Errorf("findAlias() = %q, expected %q", got, alias)
	}
	if got := findAlias(byID, filepath.Join(tmpDir, "ttyUSB1")); got != "" {
		t.Errorf("findAlias() for unknown target = %q, expected empty", got)
	}
	if got := findAlias(filepath.Join(tmpDir, "missing"), target); got != "" {
		t.Errorf("findAlias() on missing dir = %q, expected empty", got)
	}
}

func TestDescribe(t *testing.T) {
	info := &PortInfo{
		Name:         "ttyUSB0",
		Path:         "/dev/ttyUSB0",
		VendorID:     "0403",
		ProductID:    "6001",
		SerialNumber: "A50285BI",
		Manufacturer: "FTDI",
		ByID:         "usb-FTDI_FT232R_USB_UART_A50285BI-if00-port0",
		ByPath:       "pci-0000:00:14.0-usb-0:2:1.0-port0",
	}

	got := Describe(info)
	want := PortDescriptor{
		Path:         "/dev/ttyUSB0",
		Manufacturer: "FTDI",
		SerialNumber: "A50285BI",
		PnpID:        "usb-FTDI_FT232R_USB_UART_A50285BI-if00-port0",
		LocationID:   "pci-0000:00:14.0-usb-0:2:1.0-port0",
		ProductID:    "6001",
		VendorID:     "0403",
	}
	if got != want {
		t.Errorf("Describe() = %+v, expected %+v", got, want)
	}
}

// TestListPortsIntegration is an integration test that requires actual system
func TestListPortsIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	descriptors, err := Discover()
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	t.Logf("Found %d serial ports:", len(descriptors))
	for i, d := range descriptors {
		t.Logf("  %d. %s (vid=%s pid=%s)", i+1, d.Path, d.VendorID, d.ProductID)
	}
}
