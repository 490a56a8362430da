package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/allbin/devlink/host"
	"github.com/allbin/devlink/usb"
)

func startTestServer(t *testing.T, b Bridge, opts ...ServerOption) *Server {
	t.Helper()
	srv := NewServer(b, "127.0.0.1:0", opts...)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}
	return srv
}

func dialTestClient(t *testing.T, srv *Server, token string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, srv.BoundAddr(), token)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestServer_RoundTrip(t *testing.T) {
	h, ss := newTestHost(t)
	srv := startTestServer(t, NewLocal(h))
	c := dialTestClient(t, srv, "")
	ctx := context.Background()

	devices, err := c.ListUsbDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, usb.Descriptor{VendorID: 0x1234, ProductID: 0x5678, Manufacturer: "Acme"}, devices[0])

	ports, err := c.ListSerialPorts(ctx)
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, "/dev/ttyUSB0", ports[0].Path)

	res, err := c.ConnectUsb(ctx, "1234:5678")
	require.NoError(t, err)
	assert.Equal(t, host.Result{Success: true, Message: "Connected to USB device: 1234:5678"}, res)

	res, err = c.DisconnectSerial(ctx)
	require.NoError(t, err)
	assert.Equal(t, host.Result{Success: false, Message: "No active serial connection"}, res)

	res, err = c.ConnectSerial(ctx, host.SerialOptions{Port: "/dev/denied"})
	require.NoError(t, err)
	assert.Equal(t, host.Result{Success: false, Message: "Permission denied"}, res)

	res, err = c.ConnectSerial(ctx, host.SerialOptions{Port: "/dev/ttyUSB0"})
	require.NoError(t, err)
	assert.True(t, res.Success)

	payload := []byte{0x00, 0x01, 0xfe, 0xff}
	res, err = c.SendSerialData(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, host.Result{Success: true, Message: "Data sent successfully"}, res)
	assert.Equal(t, payload, ss.current().bytes())

	res, err = c.DisconnectUsb(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestServer_Events(t *testing.T) {
	h, ss := newTestHost(t)
	srv := startTestServer(t, NewLocal(h))
	c := dialTestClient(t, srv, "")
	ctx := context.Background()

	connected := make(chan string, 1)
	lists := make(chan []usb.Descriptor, 1)
	data := make(chan []byte, 1)
	c.OnUsbConnected(func(id string) { connected <- id })
	c.OnUsbDevicesList(func(l []usb.Descriptor) { lists <- l })
	c.OnSerialData(func(b []byte) { data <- b })

	_, err := c.ListUsbDevices(ctx)
	require.NoError(t, err)
	assert.Len(t, recv(t, lists), 1)

	_, err = c.ConnectUsb(ctx, "1234:5678")
	require.NoError(t, err)
	assert.Equal(t, "1234:5678", recv(t, connected))

	res, err := c.ConnectSerial(ctx, host.SerialOptions{Port: "/dev/ttyUSB0"})
	require.NoError(t, err)
	require.True(t, res.Success)
	ss.current().incoming <- []byte("READY\n")
	assert.Equal(t, []byte("READY\n"), recv(t, data))
}

func TestServer_UnknownOperation(t *testing.T) {
	h, _ := newTestHost(t)
	srv := startTestServer(t, NewLocal(h))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ws, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s%s", srv.BoundAddr(), BridgePath), nil)
	require.NoError(t, err)
	defer ws.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, wsjson.Write(ctx, ws, Frame{Type: FrameTypeRequest, ID: 7, Method: "exec"}))

	var resp Frame
	require.NoError(t, wsjson.Read(ctx, ws, &resp))
	assert.Equal(t, FrameTypeResponse, resp.Type)
	assert.Equal(t, uint64(7), resp.ID)
	assert.Equal(t, "unknown operation: exec", resp.Error)
}

func TestServer_InvalidParams(t *testing.T) {
	h, _ := newTestHost(t)
	srv := startTestServer(t, NewLocal(h))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ws, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s%s", srv.BoundAddr(), BridgePath), nil)
	require.NoError(t, err)
	defer ws.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, wsjson.Write(ctx, ws, Frame{Type: FrameTypeRequest, ID: 1, Method: OpConnectUsb, Payload: []byte(`"1234:5678"`)}))

	var resp Frame
	require.NoError(t, wsjson.Read(ctx, ws, &resp))
	assert.Contains(t, resp.Error, "invalid params")
}

func TestServer_Token(t *testing.T) {
	h, _ := newTestHost(t)
	srv := startTestServer(t, NewLocal(h), WithToken("kiosk-secret"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Dial(ctx, srv.BoundAddr(), "wrong")
	assert.Error(t, err)

	_, err = Dial(ctx, srv.BoundAddr(), "")
	assert.Error(t, err)

	c := dialTestClient(t, srv, "kiosk-secret")
	_, err = c.ListSerialPorts(ctx)
	assert.NoError(t, err)
}

func TestServer_Spans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	h, _ := newTestHost(t)
	srv := startTestServer(t, NewLocal(h))
	c := dialTestClient(t, srv, "")

	_, err := c.DisconnectUsb(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.Ended()) > 0 }, time.Second, 10*time.Millisecond)
	span := rec.Ended()[0]
	assert.Equal(t, "bridge.disconnectUsb", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "No active USB connection", span.Status().Description)
}

func TestClient_ServerGone(t *testing.T) {
	h, _ := newTestHost(t)
	srv := NewServer(NewLocal(h), "127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()
	<-srv.Ready()

	c, err := Dial(context.Background(), srv.BoundAddr(), "")
	require.NoError(t, err)

	cancel()
	<-errCh
	recv(t, c.Done())

	_, err = c.ListUsbDevices(context.Background())
	assert.ErrorIs(t, err, ErrClientClosed)
	_ = c.Close()
}

func newQueuedConn(size int) *clientConn {
	return &clientConn{id: "queued", sendCh: make(chan Frame, size), done: make(chan struct{})}
}

func TestServer_ResponseWaitsForFullQueue(t *testing.T) {
	h, _ := newTestHost(t)
	srv := NewServer(NewLocal(h), "127.0.0.1:0")
	cc := newQueuedConn(2)
	srv.clients.Store(cc.id, cc)

	srv.broadcast(EventSerialData, []byte("a"))
	srv.broadcast(EventSerialData, []byte("b"))
	srv.broadcast(EventSerialData, []byte("c"))
	require.Len(t, cc.sendCh, 2)

	sent := make(chan struct{})
	go func() {
		srv.respond(cc, 42, []byte(`{"success":true}`), nil)
		close(sent)
	}()

	select {
	case <-sent:
		t.Fatal("response returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	for _, want := range []string{"a", "b"} {
		frame := <-cc.sendCh
		assert.Equal(t, FrameTypeEvent, frame.Type)
		var data []byte
		require.NoError(t, json.Unmarshal(frame.Payload, &data))
		assert.Equal(t, want, string(data))
	}

	resp := recv[Frame](t, cc.sendCh)
	assert.Equal(t, FrameTypeResponse, resp.Type)
	assert.Equal(t, uint64(42), resp.ID)
	recv[struct{}](t, sent)
}

func TestServer_ResponseToClosedClient(t *testing.T) {
	h, _ := newTestHost(t)
	srv := NewServer(NewLocal(h), "127.0.0.1:0")
	cc := newQueuedConn(1)
	cc.sendCh <- Frame{Type: FrameTypeEvent, Method: EventSerialError}

	sent := make(chan struct{})
	go func() {
		srv.respond(cc, 7, nil, ErrUnknownOperation)
		close(sent)
	}()
	cc.close()
	recv[struct{}](t, sent)
}
