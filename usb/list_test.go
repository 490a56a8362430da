package usb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// mockDevices writes a /sys/bus/usb/devices tree into a temp dir.
func mockDevices(t *testing.T, devices map[string]map[string]string) string {
	t.Helper()
	root := t.TempDir()
	base := filepath.Join(root, "bus", "usb", "devices")

	for name, attrs := range devices {
		dir := filepath.Join(base, name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
		for attr, value := range attrs {
			if err := os.WriteFile(filepath.Join(dir, attr), []byte(value+"\n"), 0644); err != nil {
				t.Fatalf("Failed to write %s/%s: %v", name, attr, err)
			}
		}
	}

	prev := sysfsRoot
	sysfsRoot = root
	t.Cleanup(func() { sysfsRoot = prev })
	return root
}

func TestList(t *testing.T) {
	mockDevices(t, map[string]map[string]string{
		"usb1": {"idVendor": "1d6b", "idProduct": "0002", "busnum": "1", "devnum": "1", "product": "xHCI Host Controller"},
		"1-2": {
			"idVendor": "1234", "idProduct": "5678", "busnum": "1", "devnum": "4",
			"manufacturer": "Acme", "product": "Embosser", "serial": "E-001",
		},
		"2-1": {"idVendor": "0403", "idProduct": "6001", "busnum": "2", "devnum": "3"},
		// interface directories are not devices
		"1-2:1.0": {"bInterfaceNumber": "00"},
		// no idVendor
		"1-3": {"busnum": "1", "devnum": "9"},
	})

	devices, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("Expected 3 devices, got %d: %+v", len(devices), devices)
	}

	expected := []string{"1d6b:2", "1234:5678", "403:6001"}
	for i, id := range expected {
		if devices[i].ID() != id {
			t.Errorf("devices[%d].ID() = %q, expected %q", i, devices[i].ID(), id)
		}
	}

	acme := devices[1]
	if acme.Manufacturer != "Acme" || acme.Product != "Embosser" || acme.SerialNumber != "E-001" {
		t.Errorf("Unexpected descriptor: %+v", acme.Descriptor)
	}
	if acme.BusNumber != 1 || acme.DeviceNumber != 4 {
		t.Errorf("Unexpected location: bus=%d dev=%d", acme.BusNumber, acme.DeviceNumber)
	}
}

func TestListMissingSysfs(t *testing.T) {
	prev := sysfsRoot
	sysfsRoot = filepath.Join(t.TempDir(), "missing")
	defer func() { sysfsRoot = prev }()

	if _, err := List(); err == nil {
		t.Error("Expected error when sysfs is missing")
	}
}

func TestFindByIDs(t *testing.T) {
	devices := []Device{
		{Descriptor: Descriptor{VendorID: 0x0403, ProductID: 0x6001}},
		{Descriptor: Descriptor{VendorID: 0x1234, ProductID: 0x5678, Manufacturer: "Acme"}},
	}

	dev, err := FindByIDs(devices, 0x1234, 0x5678)
	if err != nil {
		t.Fatalf("FindByIDs failed: %v", err)
	}
	if dev.Manufacturer != "Acme" {
		t.Errorf("Expected Acme, got %q", dev.Manufacturer)
	}

	_, err = FindByIDs(devices, 0xdead, 0xbeef)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestNodePath(t *testing.T) {
	dev := Device{BusNumber: 1, DeviceNumber: 14}
	if got := dev.NodePath(); got != "/dev/bus/usb/001/014" {
		t.Errorf("NodePath() = %q", got)
	}
	if got := ResetPath(3, 7); got != "003/007" {
		t.Errorf("ResetPath() = %q", got)
	}
}

func TestOpenMissingNode(t *testing.T) {
	prev := devRoot
	devRoot = t.TempDir()
	defer func() { devRoot = prev }()

	_, err := Open(Device{BusNumber: 1, DeviceNumber: 2})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestHandleDoubleClose(t *testing.T) {
	prev := devRoot
	devRoot = t.TempDir()
	defer func() { devRoot = prev }()

	busDir := filepath.Join(devRoot, "bus", "usb", "001")
	if err := os.MkdirAll(busDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(busDir, "002"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	h, err := Open(Device{BusNumber: 1, DeviceNumber: 2})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if h.Device().DeviceNumber != 2 {
		t.Errorf("Device() returned %+v", h.Device())
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := h.Close(); err != ErrHandleClosed {
		t.Errorf("Expected ErrHandleClosed on second close, got %v", err)
	}
}
