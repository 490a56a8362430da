package serial

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Filesystem roots, swapped out by tests.
var (
	devRoot   = "/dev"
	sysfsRoot = "/sys"
)

// Regular expressions for different types of serial devices
var portPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
	regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
	regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
	regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
	regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
}

// ListPorts returns a list of available serial ports on the system
// Filters for communication-capable devices and excludes virtual terminals
func ListPorts() ([]string, error) {
	entries, err := os.ReadDir(devRoot)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		name := entry.Name()
		if !isSerialName(name) {
			continue
		}
		fullPath := filepath.Join(devRoot, name)
		if isCharacterDevice(fullPath) {
			ports = append(ports, fullPath)
		}
	}

	sort.Strings(ports)
	return ports, nil
}

func isSerialName(name string) bool {
	for _, pattern := range portPatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// PortInfo holds detailed information about a serial port
type PortInfo struct {
	Name        string
	Path        string
	Description string

	// USB metadata, empty for on-board UARTs
	VendorID        string
	ProductID       string
	SerialNumber    string
	Manufacturer    string
	Product         string
	InterfaceNumber string
	BusNumber       string
	DeviceNumber    string

	// Stable udev aliases under /dev/serial
	ByID   string
	ByPath string
}

// GetPortInfo returns detailed information about a specific port
func GetPortInfo(portPath string) (*PortInfo, error) {
	if !isCharacterDevice(portPath) {
		return nil, ErrDeviceNotFound
	}

	name := filepath.Base(portPath)
	info := &PortInfo{
		Name:        name,
		Path:        portPath,
		Description: getPortDescription(name),
	}

	if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") {
		enrichUSBInfo(info)
	}
	info.ByID = findAlias(filepath.Join(devRoot, "serial", "by-id"), portPath)
	info.ByPath = findAlias(filepath.Join(devRoot, "serial", "by-path"), portPath)

	return info, nil
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}

// enrichUSBInfo fills USB metadata from sysfs.
//
// /sys/class/tty/<name>/device resolves to the USB interface directory
// (ttyACM) or to a child of it (ttyUSB); the USB device directory holding
// idVendor is its parent.
func enrichUSBInfo(info *PortInfo) {
	devicePath := filepath.Join(sysfsRoot, "class", "tty", info.Name, "device")
	resolvedPath, err := filepath.EvalSymlinks(devicePath)
	if err != nil {
		return
	}

	interfacePath := ""
	for dir, i := resolvedPath, 0; i < 3; dir, i = filepath.Dir(dir), i+1 {
		if number := readSysfsFile(filepath.Join(dir, "bInterfaceNumber")); number != "" {
			interfacePath = dir
			info.InterfaceNumber = number
			break
		}
	}
	if interfacePath == "" {
		return
	}

	usbDevicePath := filepath.Dir(interfacePath)
	info.VendorID = readSysfsFile(filepath.Join(usbDevicePath, "idVendor"))
	info.ProductID = readSysfsFile(filepath.Join(usbDevicePath, "idProduct"))
	info.SerialNumber = readSysfsFile(filepath.Join(usbDevicePath, "serial"))
	info.Manufacturer = readSysfsFile(filepath.Join(usbDevicePath, "manufacturer"))
	info.Product = readSysfsFile(filepath.Join(usbDevicePath, "product"))
	info.BusNumber = readSysfsFile(filepath.Join(usbDevicePath, "busnum"))
	info.DeviceNumber = readSysfsFile(filepath.Join(usbDevicePath, "devnum"))
}

// readSysfsFile returns the trimmed content of a sysfs attribute, or "" if unreadable
func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// findAlias returns the name of the symlink in dir that points at target.
func findAlias(dir, target string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	want, err := filepath.EvalSymlinks(target)
	if err != nil {
		want = target
	}
	for _, entry := range entries {
		resolved, err := filepath.EvalSymlinks(filepath.Join(dir, entry.Name()))
		if err == nil && resolved == want {
			return entry.Name()
		}
	}
	return ""
}

// Discover lists every serial port together with its descriptor.
// Ports that vanish between listing and inspection are skipped.
func Discover() ([]PortDescriptor, error) {
	paths, err := ListPorts()
	if err != nil {
		return nil, err
	}

	descriptors := make([]PortDescriptor, 0, len(paths))
	for _, path := range paths {
		info, err := GetPortInfo(path)
		if err != nil {
			continue
		}
		descriptors = append(descriptors, Describe(info))
	}
	return descriptors, nil
}
