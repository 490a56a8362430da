package usb

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Filesystem roots, swapped out by tests.
var (
	devRoot   = "/dev"
	sysfsRoot = "/sys"
)

// ErrDeviceNotFound is returned when no device matches a lookup.
var ErrDeviceNotFound = errors.New("USB device not found")

// Device is a USB device found on the bus together with its location.
type Device struct {
	Descriptor

	BusNumber    int
	DeviceNumber int
	SysPath      string
}

// NodePath returns the usbfs character device of the device.
func (d Device) NodePath() string {
	return filepath.Join(devRoot, "bus", "usb", pad3(d.BusNumber), pad3(d.DeviceNumber))
}

func pad3(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

// List enumerates USB devices from /sys/bus/usb/devices.
// Interface entries ("1-1:1.0") and anything without idVendor are skipped.
// The result is ordered by bus and device number.
func List() ([]Device, error) {
	base := filepath.Join(sysfsRoot, "bus", "usb", "devices")
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}

	var devices []Device
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ":") {
			continue
		}
		dir := filepath.Join(base, entry.Name())
		dev, ok := readDevice(dir)
		if !ok {
			continue
		}
		devices = append(devices, dev)
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].BusNumber != devices[j].BusNumber {
			return devices[i].BusNumber < devices[j].BusNumber
		}
		return devices[i].DeviceNumber < devices[j].DeviceNumber
	})
	return devices, nil
}

func readDevice(dir string) (Device, bool) {
	vid, err := strconv.ParseUint(readSysfsFile(filepath.Join(dir, "idVendor")), 16, 16)
	if err != nil {
		return Device{}, false
	}
	pid, err := strconv.ParseUint(readSysfsFile(filepath.Join(dir, "idProduct")), 16, 16)
	if err != nil {
		return Device{}, false
	}
	bus, _ := strconv.Atoi(readSysfsFile(filepath.Join(dir, "busnum")))
	num, _ := strconv.Atoi(readSysfsFile(filepath.Join(dir, "devnum")))

	return Device{
		Descriptor: Descriptor{
			VendorID:     uint16(vid),
			ProductID:    uint16(pid),
			Manufacturer: readSysfsFile(filepath.Join(dir, "manufacturer")),
			Product:      readSysfsFile(filepath.Join(dir, "product")),
			SerialNumber: readSysfsFile(filepath.Join(dir, "serial")),
		},
		BusNumber:    bus,
		DeviceNumber: num,
		SysPath:      dir,
	}, true
}

func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// FindByIDs returns the first device with the given vendor and product id.
func FindByIDs(devices []Device, vendorID, productID uint16) (Device, error) {
	for _, d := range devices {
		if d.VendorID == vendorID && d.ProductID == productID {
			return d, nil
		}
	}
	return Device{}, ErrDeviceNotFound
}

// Descriptors strips location data from a device list.
func Descriptors(devices []Device) []Descriptor {
	out := make([]Descriptor, len(devices))
	for i, d := range devices {
		out[i] = d.Descriptor
	}
	return out
}
