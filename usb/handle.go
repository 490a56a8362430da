package usb

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrHandleClosed is returned by operations on a closed handle.
var ErrHandleClosed = errors.New("USB handle is closed")

// Handle is an open usbfs node. Holding it keeps the device claimed by this process.
type Handle struct {
	mu     sync.Mutex
	fd     int
	device Device
	closed bool
}

// Open opens the usbfs node of dev for reading and writing.
func Open(dev Device) (*Handle, error) {
	path := dev.NodePath()
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s (%s): %w", dev.ID(), path, err)
	}
	return &Handle{fd: fd, device: dev}, nil
}

// Device returns the device this handle was opened for.
func (h *Handle) Device() Device {
	return h.device
}

// Close releases the device.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHandleClosed
	}
	h.closed = true
	return unix.Close(h.fd)
}
