package host

import (
	"fmt"
	"io"
	"time"

	"github.com/allbin/devlink/internal/config"
	"github.com/allbin/devlink/serial"
	"github.com/allbin/devlink/usb"
)

// UsbTransport enumerates and opens USB devices.
type UsbTransport interface {
	List() ([]usb.Device, error)
	Open(dev usb.Device) (io.Closer, error)
}

// SerialTransport enumerates and opens serial ports.
type SerialTransport interface {
	List() ([]serial.PortDescriptor, error)
	Open(path string, baudRate int) (io.ReadWriteCloser, error)
}

// SysfsUSB is the Linux USB transport: sysfs for enumeration, usbfs for handles.
type SysfsUSB struct{}

func (SysfsUSB) List() ([]usb.Device, error) { return usb.List() }

func (SysfsUSB) Open(dev usb.Device) (io.Closer, error) { return usb.Open(dev) }

// NativeSerial opens ports through termios.
type NativeSerial struct {
	ReadTimeout time.Duration
}

func (NativeSerial) List() ([]serial.PortDescriptor, error) { return serial.Discover() }

func (t NativeSerial) Open(path string, baudRate int) (io.ReadWriteCloser, error) {
	return serial.Open(path, serial.WithBaudRate(baudRate), serial.WithReadTimeout(t.ReadTimeout))
}

// PortableSerial opens ports through go.bug.st/serial.
type PortableSerial struct {
	ReadTimeout time.Duration
}

func (PortableSerial) List() ([]serial.PortDescriptor, error) { return serial.DiscoverPortable() }

func (t PortableSerial) Open(path string, baudRate int) (io.ReadWriteCloser, error) {
	return serial.OpenPortable(path, serial.WithBaudRate(baudRate), serial.WithReadTimeout(t.ReadTimeout))
}

// NewSerialTransport picks the serial backend named in cfg.
func NewSerialTransport(cfg config.SerialConfig) (SerialTransport, error) {
	switch cfg.Backend {
	case config.BackendNative, "":
		return NativeSerial{ReadTimeout: cfg.ReadTimeout}, nil
	case config.BackendPortable:
		return PortableSerial{ReadTimeout: cfg.ReadTimeout}, nil
	default:
		return nil, fmt.Errorf("unknown serial backend %q", cfg.Backend)
	}
}
