package host

import (
	"context"
	"io"
	"sync"
)

// usbConn is the held USB handle.
type usbConn struct {
	id     string
	handle io.Closer
}

// serialConn is the held serial handle and its relay.
type serialConn struct {
	path     string
	baudRate int
	port     io.ReadWriteCloser
	cancel   context.CancelFunc
}

// close stops the relay before closing the port so the relay treats the
// resulting read error as intentional.
func (c *serialConn) close() error {
	c.cancel()
	return c.port.Close()
}

// Session holds at most one handle per transport kind. Each kind has its
// own lock so USB and serial operations never wait on each other.
type Session struct {
	usbMu sync.Mutex
	usb   *usbConn

	serialMu sync.Mutex
	serial   *serialConn
}

// Snapshot describes what the session currently holds.
type Snapshot struct {
	UsbDevice  string `json:"usbDevice,omitempty"`
	SerialPort string `json:"serialPort,omitempty"`
	BaudRate   int    `json:"baudRate,omitempty"`
}

// Snapshot returns the held connections.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot

	s.usbMu.Lock()
	if s.usb != nil {
		snap.UsbDevice = s.usb.id
	}
	s.usbMu.Unlock()

	s.serialMu.Lock()
	if s.serial != nil {
		snap.SerialPort = s.serial.path
		snap.BaudRate = s.serial.baudRate
	}
	s.serialMu.Unlock()

	return snap
}
