package host

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/allbin/devlink/serial"
	"github.com/allbin/devlink/usb"
)

// recorder keeps the order of open/close calls across fakes.
type recorder struct {
	mu   sync.Mutex
	ops  []string
	open int
}

func (r *recorder) add(op string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	r.open += delta
}

func (r *recorder) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...), r.open
}

type fakeUSB struct {
	rec      *recorder
	devices  []usb.Device
	listErr  error
	openErr  error
	closeErr error
	panicOn  string
}

func (f *fakeUSB) List() ([]usb.Device, error) {
	if f.panicOn == "list" {
		panic("enumeration exploded")
	}
	return f.devices, f.listErr
}

func (f *fakeUSB) Open(dev usb.Device) (io.Closer, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.rec.add("open "+dev.ID(), 1)
	return &fakeHandle{id: dev.ID(), rec: f.rec, closeErr: f.closeErr}, nil
}

type fakeHandle struct {
	id       string
	rec      *recorder
	closeErr error
}

func (h *fakeHandle) Close() error {
	h.rec.add("close "+h.id, -1)
	return h.closeErr
}

type fakeSerial struct {
	rec     *recorder
	ports   []serial.PortDescriptor
	listErr error
	openErr error

	mu     sync.Mutex
	opened []*fakePort
}

func (f *fakeSerial) List() ([]serial.PortDescriptor, error) {
	return f.ports, f.listErr
}

func (f *fakeSerial) Open(path string, baud int) (io.ReadWriteCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.rec.add(fmt.Sprintf("open %s@%d", path, baud), 1)
	p := newFakePort(path, baud, f.rec)
	f.mu.Lock()
	f.opened = append(f.opened, p)
	f.mu.Unlock()
	return p, nil
}

func (f *fakeSerial) last() *fakePort {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.opened) == 0 {
		return nil
	}
	return f.opened[len(f.opened)-1]
}

// fakePort blocks in Read until data, an injected error, or Close.
type fakePort struct {
	path string
	baud int
	rec  *recorder

	incoming chan []byte
	failures chan error
	closed   chan struct{}
	once     sync.Once

	mu       sync.Mutex
	written  [][]byte
	writeErr error
}

func newFakePort(path string, baud int, rec *recorder) *fakePort {
	return &fakePort{
		path:     path,
		baud:     baud,
		rec:      rec,
		incoming: make(chan []byte, 8),
		failures: make(chan error, 1),
		closed:   make(chan struct{}),
	}
}

func (p *fakePort) Read(buf []byte) (int, error) {
	select {
	case data := <-p.incoming:
		return copy(buf, data), nil
	case err := <-p.failures:
		return 0, err
	case <-p.closed:
		return 0, serial.ErrPortClosed
	}
}

func (p *fakePort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, append([]byte(nil), data...))
	return len(data), nil
}

func (p *fakePort) Close() error {
	err := serial.ErrPortClosed
	p.once.Do(func() {
		close(p.closed)
		p.rec.add("close "+p.path, -1)
		err = nil
	})
	return err
}

func (p *fakePort) writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.written...)
}

var errPermission = errors.New("Permission denied")

func acmeDevices() []usb.Device {
	return []usb.Device{
		{Descriptor: usb.Descriptor{VendorID: 0x1234, ProductID: 0x5678, Manufacturer: "Acme"}, BusNumber: 1, DeviceNumber: 4},
		{Descriptor: usb.Descriptor{VendorID: 0x0403, ProductID: 0x6001, Manufacturer: "FTDI"}, BusNumber: 1, DeviceNumber: 5},
	}
}
