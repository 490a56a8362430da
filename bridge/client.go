package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/allbin/devlink/host"
	"github.com/allbin/devlink/internal/pubsub"
	"github.com/allbin/devlink/serial"
	"github.com/allbin/devlink/usb"
)

// ErrClientClosed is returned by calls on a client whose connection is gone.
var ErrClientClosed = errors.New("bridge connection closed")

// RemoteError is a failure reported by the server for one request.
type RemoteError struct {
	Method  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}

// Client is a Bridge backed by a websocket connection to a Server.
type Client struct {
	ws     *websocket.Conn
	logger *slog.Logger
	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan Frame
	err     error
	done    chan struct{}

	serialData     *pubsub.Topic[[]byte]
	serialError    *pubsub.Topic[string]
	usbDevicesList *pubsub.Topic[[]usb.Descriptor]
	usbConnected   *pubsub.Topic[string]
}

var _ Bridge = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// Dial connects to a server listening on addr (host:port).
func Dial(ctx context.Context, addr, token string, opts ...ClientOption) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: BridgePath}
	if token != "" {
		u.RawQuery = url.Values{"token": {token}}.Encode()
	}

	ws, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial bridge %s: %w", addr, err)
	}
	ws.SetReadLimit(maxMessageSize)

	c := &Client{
		ws:             ws,
		logger:         slog.New(slog.DiscardHandler),
		pending:        make(map[uint64]chan Frame),
		done:           make(chan struct{}),
		serialData:     pubsub.NewTopic[[]byte](pubsub.DefaultBuffer),
		serialError:    pubsub.NewTopic[string](pubsub.DefaultBuffer),
		usbDevicesList: pubsub.NewTopic[[]usb.Descriptor](pubsub.DefaultBuffer),
		usbConnected:   pubsub.NewTopic[string](pubsub.DefaultBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c, nil
}

// Close closes the connection and detaches every listener.
func (c *Client) Close() error {
	err := c.ws.Close(websocket.StatusNormalClosure, "")
	<-c.done
	c.serialData.Close()
	c.serialError.Close()
	c.usbDevicesList.Close()
	c.usbConnected.Close()
	return err
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) readLoop() {
	var err error
	for {
		var frame Frame
		if err = wsjson.Read(context.Background(), c.ws, &frame); err != nil {
			break
		}
		switch frame.Type {
		case FrameTypeResponse:
			c.mu.Lock()
			ch, ok := c.pending[frame.ID]
			delete(c.pending, frame.ID)
			c.mu.Unlock()
			if ok {
				ch <- frame
			}
		case FrameTypeEvent:
			c.dispatchEvent(frame)
		}
	}

	c.mu.Lock()
	c.err = fmt.Errorf("%w: %v", ErrClientClosed, err)
	c.pending = make(map[uint64]chan Frame)
	c.mu.Unlock()
	close(c.done)
}

func (c *Client) dispatchEvent(frame Frame) {
	var err error
	switch frame.Method {
	case EventSerialData:
		var data []byte
		if err = json.Unmarshal(frame.Payload, &data); err == nil {
			c.serialData.Publish(data)
		}
	case EventSerialError:
		var msg string
		if err = json.Unmarshal(frame.Payload, &msg); err == nil {
			c.serialError.Publish(msg)
		}
	case EventUsbDevicesList:
		var list []usb.Descriptor
		if err = json.Unmarshal(frame.Payload, &list); err == nil {
			c.usbDevicesList.Publish(list)
		}
	case EventUsbConnected:
		var id string
		if err = json.Unmarshal(frame.Payload, &id); err == nil {
			c.usbConnected.Publish(id)
		}
	default:
		c.logger.Debug("ignoring unknown event", "event", frame.Method)
	}
	if err != nil {
		c.logger.Warn("failed to decode event", "event", frame.Method, "error", err)
	}
}

// call sends one request and waits for its response.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	req := Frame{Type: FrameTypeRequest, ID: c.nextID.Add(1), Method: method}
	if params != nil {
		payload, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode %s params: %w", method, err)
		}
		req.Payload = payload
	}

	ch := make(chan Frame, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}

	if err := wsjson.Write(ctx, c.ws, req); err != nil {
		forget()
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return &RemoteError{Method: method, Message: resp.Error}
		}
		if out == nil || len(resp.Payload) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Payload, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		forget()
		return ctx.Err()
	case <-c.done:
		c.mu.Lock()
		err := c.err
		c.mu.Unlock()
		return err
	}
}

func (c *Client) callResult(ctx context.Context, method string, params any) (host.Result, error) {
	var res host.Result
	err := c.call(ctx, method, params, &res)
	return res, err
}

func (c *Client) ListUsbDevices(ctx context.Context) ([]usb.Descriptor, error) {
	var list []usb.Descriptor
	if err := c.call(ctx, OpListUsbDevices, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) ConnectUsb(ctx context.Context, deviceID string) (host.Result, error) {
	return c.callResult(ctx, OpConnectUsb, connectUsbParams{DeviceID: deviceID})
}

func (c *Client) DisconnectUsb(ctx context.Context) (host.Result, error) {
	return c.callResult(ctx, OpDisconnectUsb, nil)
}

func (c *Client) ListSerialPorts(ctx context.Context) ([]serial.PortDescriptor, error) {
	var list []serial.PortDescriptor
	if err := c.call(ctx, OpListSerialPorts, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) ConnectSerial(ctx context.Context, opts host.SerialOptions) (host.Result, error) {
	return c.callResult(ctx, OpConnectSerial, opts)
}

func (c *Client) DisconnectSerial(ctx context.Context) (host.Result, error) {
	return c.callResult(ctx, OpDisconnectSerial, nil)
}

func (c *Client) SendSerialData(ctx context.Context, data []byte) (host.Result, error) {
	return c.callResult(ctx, OpSendSerialData, sendSerialDataParams{Data: data})
}

func (c *Client) OnSerialData(fn func([]byte)) Unsubscribe {
	return c.serialData.Subscribe(fn)
}

func (c *Client) OnSerialError(fn func(string)) Unsubscribe {
	return c.serialError.Subscribe(fn)
}

func (c *Client) OnUsbDevicesList(fn func([]usb.Descriptor)) Unsubscribe {
	return c.usbDevicesList.Subscribe(fn)
}

func (c *Client) OnUsbConnected(fn func(string)) Unsubscribe {
	return c.usbConnected.Subscribe(fn)
}
