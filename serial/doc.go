// Package serial opens and enumerates serial ports on Linux.
//
// Two backends are provided. Open configures the tty directly through termios
// ioctls and returns a Port. OpenPortable goes through go.bug.st/serial and is
// used where the termios layout differs or the native path misbehaves. Both
// map open failures onto the same sentinel errors, so callers can treat them
// interchangeably.
//
// # Basic Usage
//
//	port, err := serial.Open("/dev/ttyUSB0", serial.WithBaudRate(9600))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	n, err := port.Write([]byte("Hello"))
//	buffer := make([]byte, 256)
//	n, err = port.Read(buffer)
//
// Reads return after ReadTimeout (VTIME, 100ms resolution) even when no data
// arrived, so a reader loop notices Close within one timeout.
//
// # Port Discovery
//
// Discover lists ports as PortDescriptor values, with USB metadata taken from
// sysfs and stable aliases from /dev/serial/by-id and /dev/serial/by-path:
//
//	ports, err := serial.Discover()
//	for _, p := range ports {
//	    fmt.Printf("%s vid=%s pid=%s\n", p.Path, p.VendorID, p.ProductID)
//	}
//
// # USB Device Reset
//
//	err := serial.ResetUSBDevice("/dev/ttyUSB0")
//	err = serial.ResetUSBDeviceBySerial("FT123456")
//
// Requires the usbreset utility from usbutils and root permissions.
//
// # Errors
//
// Use errors.Is against ErrDeviceNotFound, ErrPermissionDenied,
// ErrDeviceInUse and ErrPortClosed.
package serial
