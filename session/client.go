// Package session tracks device discovery and connection state on the UI
// side of the bridge. Views read State and subscribe with OnChange; all
// mutations go through Client methods and the bridge event listeners.
package session

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/allbin/devlink/bridge"
	"github.com/allbin/devlink/host"
	"github.com/allbin/devlink/internal/pubsub"
	"github.com/allbin/devlink/serial"
	"github.com/allbin/devlink/usb"
)

// SerialBaudRate is the baud rate ConnectSerialPort always requests.
const SerialBaudRate = 9600

// Messages set on State.Error by client-side checks.
const (
	MsgBridgeUnavailable = "device bridge not available"
	MsgNoSerialPort      = "No serial port connected"
)

// Phase is where one transport kind is in its connection lifecycle.
type Phase int

const (
	Idle Phase = iota
	Discovering
	Connecting
	Connected
)

func (p Phase) String() string {
	switch p {
	case Discovering:
		return "discovering"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "idle"
	}
}

// State is a snapshot of the session. Slices and pointers are copies.
type State struct {
	UsbDevices      []usb.Descriptor
	SerialPorts     []serial.PortDescriptor
	ConnectedDevice *usb.Descriptor
	ConnectedPort   *serial.PortDescriptor
	Loading         bool
	Error           string
	BridgeAvailable bool
	UsbPhase        Phase
	SerialPhase     Phase
}

func (s State) clone() State {
	s.UsbDevices = slices.Clone(s.UsbDevices)
	s.SerialPorts = slices.Clone(s.SerialPorts)
	if s.ConnectedDevice != nil {
		d := *s.ConnectedDevice
		s.ConnectedDevice = &d
	}
	if s.ConnectedPort != nil {
		p := *s.ConnectedPort
		s.ConnectedPort = &p
	}
	return s
}

// Client drives a Bridge and keeps State in sync with it.
type Client struct {
	bridge          bridge.Bridge
	bridgeAvailable bool
	log             *slog.Logger
	onSerialData    func([]byte)

	mu       sync.Mutex
	state    State
	inFlight int

	changes *pubsub.Topic[State]
	unsubs  []bridge.Unsubscribe
	closed  sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithSerialDataHandler receives inbound serial data. The data does not
// change the session state.
func WithSerialDataHandler(fn func([]byte)) Option {
	return func(c *Client) { c.onSerialData = fn }
}

// New creates a client. A nil bridge makes every method fail without a host
// call; availability is decided here, once.
func New(b bridge.Bridge, opts ...Option) *Client {
	c := &Client{
		bridge:          b,
		bridgeAvailable: b != nil,
		log:             slog.New(slog.DiscardHandler),
		changes:         pubsub.NewLatestTopic[State](),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.state.BridgeAvailable = c.bridgeAvailable
	if !c.bridgeAvailable {
		c.log.Warn("device bridge not available, running without host")
		c.state.Error = MsgBridgeUnavailable + " - running without host"
		return c
	}

	c.unsubs = []bridge.Unsubscribe{
		b.OnSerialData(c.handleSerialData),
		b.OnSerialError(c.handleSerialError),
		b.OnUsbDevicesList(c.handleUsbDevicesList),
	}
	return c
}

// Close detaches the bridge listeners and every OnChange subscriber.
func (c *Client) Close() {
	c.closed.Do(func() {
		for _, unsub := range c.unsubs {
			unsub()
		}
		c.changes.Close()
	})
}

// State returns a snapshot of the session.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// OnChange calls fn with a snapshot after state changes. Delivery is
// asynchronous and coalesced: a subscriber that falls behind skips
// intermediate snapshots but always receives the most recent one.
func (c *Client) OnChange(fn func(State)) bridge.Unsubscribe {
	return c.changes.Subscribe(fn)
}

// update applies fn and notifies subscribers, both under the lock.
func (c *Client) update(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
	// Publishing under the lock keeps snapshots in order; Publish never blocks.
	c.changes.Publish(c.state.clone())
}

// begin marks an operation in flight and clears the error.
func (c *Client) begin(fn func(*State)) {
	c.update(func(s *State) {
		c.inFlight++
		s.Loading = true
		s.Error = ""
		fn(s)
	})
}

// end finishes an operation; loading drops once nothing is in flight.
func (c *Client) end(fn func(*State)) {
	c.update(func(s *State) {
		c.inFlight--
		s.Loading = c.inFlight > 0
		fn(s)
	})
}

func (c *Client) unavailable(action string) host.Result {
	msg := MsgBridgeUnavailable + " - cannot " + action
	c.update(func(s *State) { s.Error = msg })
	return host.Result{Success: false, Message: msg}
}

// GetUsbDevices refreshes the USB device list.
func (c *Client) GetUsbDevices(ctx context.Context) {
	if !c.bridgeAvailable {
		c.unavailable("list USB devices")
		return
	}

	c.begin(func(s *State) { s.UsbPhase = Discovering })
	devices, err := c.bridge.ListUsbDevices(ctx)
	c.end(func(s *State) {
		s.UsbPhase = restingPhase(s.ConnectedDevice != nil)
		if err != nil {
			c.log.Error("failed to list USB devices", "error", err)
			s.Error = "Failed to list USB devices: " + err.Error()
			return
		}
		s.UsbDevices = devices
	})
}

// GetSerialPorts refreshes the serial port list.
func (c *Client) GetSerialPorts(ctx context.Context) {
	if !c.bridgeAvailable {
		c.unavailable("list serial ports")
		return
	}

	c.begin(func(s *State) { s.SerialPhase = Discovering })
	ports, err := c.bridge.ListSerialPorts(ctx)
	c.end(func(s *State) {
		s.SerialPhase = restingPhase(s.ConnectedPort != nil)
		if err != nil {
			c.log.Error("failed to list serial ports", "error", err)
			s.Error = "Failed to list serial ports: " + err.Error()
			return
		}
		s.SerialPorts = ports
	})
}

// Refresh lists both device kinds.
func (c *Client) Refresh(ctx context.Context) {
	c.GetUsbDevices(ctx)
	c.GetSerialPorts(ctx)
}

// ConnectUsbDevice connects the device with the given ids. On success the
// connected device is looked up in the cached list; when the list is stale
// and lacks it, ConnectedDevice stays nil even though the host holds it.
func (c *Client) ConnectUsbDevice(ctx context.Context, vendorID, productID uint16) host.Result {
	if !c.bridgeAvailable {
		return c.unavailable("connect to USB device")
	}

	deviceID := usb.FormatID(vendorID, productID)
	c.begin(func(s *State) { s.UsbPhase = Connecting })
	res, err := c.bridge.ConnectUsb(ctx, deviceID)
	if err != nil {
		res = host.Result{Success: false, Message: "Failed to connect to USB device: " + err.Error()}
	}

	c.end(func(s *State) {
		if !res.Success {
			s.Error = res.Message
			// The host only keeps its USB handle when the id matched nothing.
			if res.Message != host.MsgDeviceNotFound {
				s.ConnectedDevice = nil
			}
			s.UsbPhase = restingPhase(s.ConnectedDevice != nil)
			return
		}
		s.UsbPhase = Connected
		s.ConnectedDevice = nil
		if i := slices.IndexFunc(s.UsbDevices, func(d usb.Descriptor) bool {
			return d.VendorID == vendorID && d.ProductID == productID
		}); i >= 0 {
			d := s.UsbDevices[i]
			s.ConnectedDevice = &d
		} else {
			c.log.Warn("connected USB device missing from cached list", "id", deviceID)
		}
	})
	return res
}

// ConnectSerialPort connects the port at path at SerialBaudRate.
func (c *Client) ConnectSerialPort(ctx context.Context, path string) host.Result {
	if !c.bridgeAvailable {
		return c.unavailable("connect to serial port")
	}

	c.begin(func(s *State) { s.SerialPhase = Connecting })
	res, err := c.bridge.ConnectSerial(ctx, host.SerialOptions{Port: path, BaudRate: SerialBaudRate})
	if err != nil {
		res = host.Result{Success: false, Message: "Failed to connect to serial port: " + err.Error()}
	}

	c.end(func(s *State) {
		if !res.Success {
			s.Error = res.Message
			// Reopening the held path releases it even when the open fails.
			if s.ConnectedPort != nil && s.ConnectedPort.Path == path {
				s.ConnectedPort = nil
			}
			s.SerialPhase = restingPhase(s.ConnectedPort != nil)
			return
		}
		s.SerialPhase = Connected
		s.ConnectedPort = nil
		if i := slices.IndexFunc(s.SerialPorts, func(p serial.PortDescriptor) bool {
			return p.Path == path
		}); i >= 0 {
			p := s.SerialPorts[i]
			s.ConnectedPort = &p
		} else {
			c.log.Warn("connected serial port missing from cached list", "port", path)
		}
	})
	return res
}

// SendSerialData writes data to the connected port.
func (c *Client) SendSerialData(ctx context.Context, data []byte) host.Result {
	if !c.bridgeAvailable {
		return c.unavailable("send data")
	}

	c.mu.Lock()
	connected := c.state.ConnectedPort != nil
	c.mu.Unlock()
	if !connected {
		c.update(func(s *State) { s.Error = MsgNoSerialPort })
		return host.Result{Success: false, Message: MsgNoSerialPort}
	}

	c.begin(func(*State) {})
	res, err := c.bridge.SendSerialData(ctx, data)
	if err != nil {
		res = host.Result{Success: false, Message: "Failed to send data: " + err.Error()}
	}
	c.end(func(s *State) {
		if !res.Success {
			s.Error = res.Message
		}
	})
	return res
}

// DisconnectUsbDevice releases the held USB device.
func (c *Client) DisconnectUsbDevice(ctx context.Context) host.Result {
	if !c.bridgeAvailable {
		return c.unavailable("disconnect USB device")
	}

	c.begin(func(*State) {})
	res, err := c.bridge.DisconnectUsb(ctx)
	if err != nil {
		res = host.Result{Success: false, Message: "Failed to disconnect USB device: " + err.Error()}
	}
	c.end(func(s *State) {
		if !res.Success {
			s.Error = res.Message
			return
		}
		s.ConnectedDevice = nil
		s.UsbPhase = Idle
	})
	return res
}

// DisconnectSerialPort releases the held serial port.
func (c *Client) DisconnectSerialPort(ctx context.Context) host.Result {
	if !c.bridgeAvailable {
		return c.unavailable("disconnect serial port")
	}

	c.begin(func(*State) {})
	res, err := c.bridge.DisconnectSerial(ctx)
	if err != nil {
		res = host.Result{Success: false, Message: "Failed to disconnect serial port: " + err.Error()}
	}
	c.end(func(s *State) {
		if !res.Success {
			s.Error = res.Message
			return
		}
		s.ConnectedPort = nil
		s.SerialPhase = Idle
	})
	return res
}

func (c *Client) handleSerialData(data []byte) {
	c.log.Debug("serial data received", "bytes", len(data))
	if c.onSerialData != nil {
		c.onSerialData(data)
	}
}

func (c *Client) handleSerialError(msg string) {
	c.log.Error("serial error", "error", msg)
	c.update(func(s *State) { s.Error = msg })
}

func (c *Client) handleUsbDevicesList(devices []usb.Descriptor) {
	c.update(func(s *State) { s.UsbDevices = devices })
}

func restingPhase(connected bool) Phase {
	if connected {
		return Connected
	}
	return Idle
}
