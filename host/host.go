// Package host is the privileged side of devlink. It enumerates USB and
// serial devices, holds at most one open connection per kind, writes
// outbound serial data and relays inbound serial data and errors as events.
//
// Handlers never return Go errors. Every outcome, including recovered
// panics, is reported as a Result so nothing escapes into a bridge
// dispatcher.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/allbin/devlink/serial"
	"github.com/allbin/devlink/usb"
)

// DefaultBaudRate is used when ConnectSerial is called without a baud rate.
const DefaultBaudRate = 9600

// Messages reported in failed or successful results.
const (
	MsgDeviceNotFound        = "Device not found"
	MsgNoUsbConnection       = "No active USB connection"
	MsgNoSerialConnection    = "No active serial connection"
	MsgSerialNotConnected    = "Serial port not connected"
	MsgDataSent              = "Data sent successfully"
	MsgSerialConnected       = "Serial port connected successfully"
	MsgUsbDisconnected       = "Disconnected from USB device"
	MsgSerialDisconnected    = "Disconnected from serial port"
	msgUsbConnectedPrefix    = "Connected to USB device: "
	msgInternalErrorTemplate = "internal error in %s: %v"
)

// Result is the outcome of a connect, disconnect or send.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func ok(message string) Result   { return Result{Success: true, Message: message} }
func fail(message string) Result { return Result{Success: false, Message: message} }

// SerialOptions selects the port to open. A zero BaudRate means the default.
type SerialOptions struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baudRate,omitempty"`
}

// Host implements the device operations.
type Host struct {
	usb    UsbTransport
	serial SerialTransport
	events *Events
	log    *slog.Logger

	defaultBaud int
	session     Session
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger. The default discards output.
func WithLogger(log *slog.Logger) Option {
	return func(h *Host) { h.log = log }
}

// WithDefaultBaudRate overrides DefaultBaudRate.
func WithDefaultBaudRate(baud int) Option {
	return func(h *Host) {
		if baud > 0 {
			h.defaultBaud = baud
		}
	}
}

// WithEvents makes the host publish on an existing set of topics.
func WithEvents(events *Events) Option {
	return func(h *Host) { h.events = events }
}

// New creates a host over the given transports.
func New(usbTransport UsbTransport, serialTransport SerialTransport, opts ...Option) *Host {
	h := &Host{
		usb:         usbTransport,
		serial:      serialTransport,
		log:         slog.New(slog.DiscardHandler),
		defaultBaud: DefaultBaudRate,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.events == nil {
		h.events = NewEvents()
	}
	return h
}

// Events returns the topics the host publishes on.
func (h *Host) Events() *Events {
	return h.events
}

// Snapshot returns the currently held connections.
func (h *Host) Snapshot() Snapshot {
	return h.session.Snapshot()
}

// recoverResult turns a panic inside a handler into a failed result.
func (h *Host) recoverResult(op string, res *Result) {
	if r := recover(); r != nil {
		h.log.Error("handler panicked", "op", op, "panic", r)
		*res = fail(fmt.Sprintf(msgInternalErrorTemplate, op, r))
	}
}

// ListUsbDevices enumerates USB devices. Enumeration failures are logged and
// yield an empty list. The list is also published on UsbDevicesList.
func (h *Host) ListUsbDevices() (list []usb.Descriptor) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("handler panicked", "op", "listUsbDevices", "panic", r)
			list = []usb.Descriptor{}
		}
	}()

	devices, err := h.usb.List()
	if err != nil {
		h.log.Error("failed to list USB devices", "error", err)
		return []usb.Descriptor{}
	}
	list = usb.Descriptors(devices)
	h.events.UsbDevicesList.Publish(list)
	return list
}

// ListSerialPorts enumerates serial ports. Enumeration failures are logged and
// yield an empty list.
func (h *Host) ListSerialPorts() (list []serial.PortDescriptor) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("handler panicked", "op", "listSerialPorts", "panic", r)
			list = []serial.PortDescriptor{}
		}
	}()

	ports, err := h.serial.List()
	if err != nil {
		h.log.Error("failed to list serial ports", "error", err)
		return []serial.PortDescriptor{}
	}
	if ports == nil {
		ports = []serial.PortDescriptor{}
	}
	return ports
}

// ConnectUsb opens the first device matching the "vid:pid" id. A held USB
// handle is closed first; a failure to close it is logged and does not stop
// the new attempt. An unknown id leaves the held handle alone, but once the
// device is found a failed open leaves nothing held.
func (h *Host) ConnectUsb(deviceID string) (res Result) {
	defer h.recoverResult("connectUsb", &res)

	vid, pid, err := usb.ParseID(deviceID)
	if err != nil {
		h.log.Warn("rejected USB device id", "id", deviceID, "error", err)
		return fail(MsgDeviceNotFound)
	}
	devices, err := h.usb.List()
	if err != nil {
		h.log.Error("failed to list USB devices", "error", err)
		return fail(MsgDeviceNotFound)
	}
	dev, err := usb.FindByIDs(devices, vid, pid)
	if err != nil {
		return fail(MsgDeviceNotFound)
	}

	h.session.usbMu.Lock()
	defer h.session.usbMu.Unlock()

	if prev := h.session.usb; prev != nil {
		h.session.usb = nil
		if err := prev.handle.Close(); err != nil {
			h.log.Warn("failed to close previous USB device", "id", prev.id, "error", err)
		}
	}

	handle, err := h.usb.Open(dev)
	if err != nil {
		h.log.Error("failed to open USB device", "id", deviceID, "error", err)
		return fail(err.Error())
	}
	h.session.usb = &usbConn{id: deviceID, handle: handle}
	h.log.Info("USB device connected", "id", deviceID, "bus", dev.BusNumber, "device", dev.DeviceNumber)

	h.events.UsbConnected.Publish(deviceID)
	return ok(msgUsbConnectedPrefix + deviceID)
}

// DisconnectUsb closes the held USB handle.
func (h *Host) DisconnectUsb() (res Result) {
	defer h.recoverResult("disconnectUsb", &res)

	h.session.usbMu.Lock()
	defer h.session.usbMu.Unlock()

	conn := h.session.usb
	if conn == nil {
		return fail(MsgNoUsbConnection)
	}
	h.session.usb = nil
	if err := conn.handle.Close(); err != nil {
		h.log.Warn("failed to close USB device", "id", conn.id, "error", err)
		return fail(err.Error())
	}
	h.log.Info("USB device disconnected", "id", conn.id)
	return ok(MsgUsbDisconnected)
}

// ConnectSerial opens a serial port and starts relaying its inbound data. A
// held handle on another port is released only once the new port is open,
// so a failed attempt leaves the previous connection in place. Reopening the
// held path closes it first.
func (h *Host) ConnectSerial(opts SerialOptions) (res Result) {
	defer h.recoverResult("connectSerial", &res)

	baud := opts.BaudRate
	if baud <= 0 {
		baud = h.defaultBaud
	}

	h.session.serialMu.Lock()
	defer h.session.serialMu.Unlock()

	if prev := h.session.serial; prev != nil && prev.path == opts.Port {
		h.session.serial = nil
		h.closePreviousSerial(prev)
	}

	port, err := h.serial.Open(opts.Port, baud)
	if err != nil {
		h.log.Error("failed to open serial port", "port", opts.Port, "baud", baud, "error", err)
		return fail(err.Error())
	}

	if prev := h.session.serial; prev != nil {
		h.session.serial = nil
		h.closePreviousSerial(prev)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.session.serial = &serialConn{path: opts.Port, baudRate: baud, port: port, cancel: cancel}
	go h.relay(ctx, opts.Port, port)

	h.log.Info("serial port connected", "port", opts.Port, "baud", baud)
	return ok(MsgSerialConnected)
}

func (h *Host) closePreviousSerial(prev *serialConn) {
	if err := prev.close(); err != nil {
		h.log.Warn("failed to close previous serial port", "port", prev.path, "error", err)
	}
}

// DisconnectSerial closes the held serial handle.
func (h *Host) DisconnectSerial() (res Result) {
	defer h.recoverResult("disconnectSerial", &res)

	h.session.serialMu.Lock()
	defer h.session.serialMu.Unlock()

	conn := h.session.serial
	if conn == nil {
		return fail(MsgNoSerialConnection)
	}
	h.session.serial = nil
	if err := conn.close(); err != nil {
		h.log.Warn("failed to close serial port", "port", conn.path, "error", err)
		return fail(err.Error())
	}
	h.log.Info("serial port disconnected", "port", conn.path)
	return ok(MsgSerialDisconnected)
}

// SendSerialData writes data verbatim to the held serial port.
func (h *Host) SendSerialData(data []byte) (res Result) {
	defer h.recoverResult("sendSerialData", &res)

	h.session.serialMu.Lock()
	defer h.session.serialMu.Unlock()

	conn := h.session.serial
	if conn == nil {
		return fail(MsgSerialNotConnected)
	}
	if _, err := conn.port.Write(data); err != nil {
		h.log.Error("failed to write to serial port", "port", conn.path, "error", err)
		return fail(err.Error())
	}
	h.log.Debug("serial data sent", "port", conn.path, "bytes", len(data))
	return ok(MsgDataSent)
}

// relay publishes everything read from r until the connection is closed.
// Read errors after an intentional close are not reported.
func (h *Host) relay(ctx context.Context, path string, r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if ctx.Err() != nil {
			return
		}
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if dropped := h.events.SerialData.Publish(data); dropped > 0 {
				h.log.Warn("serial data dropped for slow subscribers", "port", path, "subscribers", dropped)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("%s: device closed the connection", path)
			}
			h.log.Error("serial read failed", "port", path, "error", err)
			h.events.SerialError.Publish(err.Error())
			return
		}
	}
}

// Close releases every held handle. Events stay open so late subscribers
// can still detach.
func (h *Host) Close() error {
	var errs []error

	h.session.usbMu.Lock()
	if conn := h.session.usb; conn != nil {
		h.session.usb = nil
		if err := conn.handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close USB device %s: %w", conn.id, err))
		}
	}
	h.session.usbMu.Unlock()

	h.session.serialMu.Lock()
	if conn := h.session.serial; conn != nil {
		h.session.serial = nil
		if err := conn.close(); err != nil {
			errs = append(errs, fmt.Errorf("close serial port %s: %w", conn.path, err))
		}
	}
	h.session.serialMu.Unlock()

	return errors.Join(errs...)
}
