package bridge

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/allbin/devlink/host"
	"github.com/allbin/devlink/internal/tracer"
	"github.com/allbin/devlink/usb"
)

// ErrUnknownOperation is reported for requests outside the allow-list.
var ErrUnknownOperation = errors.New("unknown operation")

// sendQueueSize is the per-connection outbound frame queue.
const sendQueueSize = 64

// operation handles one allow-listed request.
type operation func(ctx context.Context, payload json.RawMessage) (any, error)

// clientConn tracks a single WebSocket connection.
type clientConn struct {
	id        string
	ws        *websocket.Conn
	sendCh    chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

func (cc *clientConn) close() {
	cc.closeOnce.Do(func() { close(cc.done) })
}

// Server exposes a Bridge over WebSocket.
type Server struct {
	bridge Bridge
	ops    map[string]operation
	token  string
	addr   string
	logger *slog.Logger

	clients sync.Map // conn id -> *clientConn

	mu        sync.Mutex
	httpSrv   *http.Server
	boundAddr string
	ready     chan struct{}
	unsubs    []Unsubscribe
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithToken requires clients to present token.
func WithToken(token string) ServerOption {
	return func(s *Server) { s.token = token }
}

// WithServerLogger sets the logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a server that listens on addr and serves b.
func NewServer(b Bridge, addr string, opts ...ServerOption) *Server {
	s := &Server{
		bridge: b,
		ops:    newOperations(b),
		addr:   addr,
		logger: slog.New(slog.DiscardHandler),
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newOperations builds the fixed operation table.
func newOperations(b Bridge) map[string]operation {
	return map[string]operation{
		OpListUsbDevices: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return b.ListUsbDevices(ctx)
		},
		OpConnectUsb: func(ctx context.Context, payload json.RawMessage) (any, error) {
			var p connectUsbParams
			if err := decodeParams(payload, &p); err != nil {
				return nil, err
			}
			return b.ConnectUsb(ctx, p.DeviceID)
		},
		OpDisconnectUsb: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return b.DisconnectUsb(ctx)
		},
		OpListSerialPorts: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return b.ListSerialPorts(ctx)
		},
		OpConnectSerial: func(ctx context.Context, payload json.RawMessage) (any, error) {
			var p host.SerialOptions
			if err := decodeParams(payload, &p); err != nil {
				return nil, err
			}
			return b.ConnectSerial(ctx, p)
		},
		OpDisconnectSerial: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return b.DisconnectSerial(ctx)
		},
		OpSendSerialData: func(ctx context.Context, payload json.RawMessage) (any, error) {
			var p sendSerialDataParams
			if err := decodeParams(payload, &p); err != nil {
				return nil, err
			}
			return b.SendSerialData(ctx, p.Data)
		},
	}
}

func decodeParams(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// Start begins accepting WebSocket connections. Blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(BridgePath, s.handleUpgrade)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bridge listen: %w", err)
	}

	s.mu.Lock()
	s.boundAddr = listener.Addr().String()
	s.httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	s.unsubs = []Unsubscribe{
		s.bridge.OnSerialData(func(data []byte) { s.broadcast(EventSerialData, data) }),
		s.bridge.OnSerialError(func(msg string) { s.broadcast(EventSerialError, msg) }),
		s.bridge.OnUsbDevicesList(func(list []usb.Descriptor) { s.broadcast(EventUsbDevicesList, list) }),
		s.bridge.OnUsbConnected(func(id string) { s.broadcast(EventUsbConnected, id) }),
	}
	httpSrv := s.httpSrv
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("bridge started", "addr", s.BoundAddr())

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("bridge serve: %w", err)
	}
	return nil
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// BoundAddr returns the actual address the server bound to. Only valid after Ready.
func (s *Server) BoundAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}

// Stop detaches from the bridge events, closes every client and shuts the
// HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	httpSrv := s.httpSrv
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}

	s.clients.Range(func(key, value any) bool {
		cc := value.(*clientConn)
		cc.close()
		cc.ws.Close(websocket.StatusGoingAway, "server shutting down")
		s.clients.Delete(key)
		return true
	})

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
	return nil
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) == 1
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{
			"localhost",
			"localhost:*",
			"127.0.0.1",
			"127.0.0.1:*",
			"[::1]",
			"[::1]:*",
		},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	ws.SetReadLimit(maxMessageSize)

	cc := &clientConn{
		id:     ulid.Make().String(),
		ws:     ws,
		sendCh: make(chan Frame, sendQueueSize),
		done:   make(chan struct{}),
	}
	s.clients.Store(cc.id, cc)
	s.logger.Info("bridge client connected", "conn_id", cc.id, "remote", r.RemoteAddr)

	go s.writeLoop(cc)
	s.readLoop(r.Context(), cc)

	cc.close()
	s.clients.Delete(cc.id)
	ws.Close(websocket.StatusNormalClosure, "")
	s.logger.Info("bridge client disconnected", "conn_id", cc.id)
}

func (s *Server) readLoop(ctx context.Context, cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		default:
		}

		var frame Frame
		if err := wsjson.Read(ctx, cc.ws, &frame); err != nil {
			return
		}
		if frame.Type != FrameTypeRequest {
			continue
		}
		go s.dispatch(ctx, cc, frame)
	}
}

func (s *Server) writeLoop(cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		case frame := <-cc.sendCh:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := wsjson.Write(ctx, cc.ws, frame)
			cancel()
			if err != nil {
				cc.close()
				return
			}
		}
	}
}

func (s *Server) dispatch(ctx context.Context, cc *clientConn, req Frame) {
	ctx, span := tracer.StartSpan(ctx, "bridge."+req.Method)
	defer span.End()
	span.SetAttributes(tracer.StringAttr("bridge.conn_id", cc.id))

	op, ok := s.ops[req.Method]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownOperation, req.Method)
		s.logger.Warn("rejected request", "conn_id", cc.id, "method", req.Method)
		tracer.RecordError(span, err)
		s.respond(cc, req.ID, nil, err)
		return
	}

	result, err := op(ctx, req.Payload)
	if err != nil {
		tracer.RecordError(span, err)
		s.respond(cc, req.ID, nil, err)
		return
	}
	if res, isResult := result.(host.Result); isResult && !res.Success {
		tracer.RecordFailure(span, res.Message)
	} else {
		tracer.SetOK(span)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		tracer.RecordError(span, err)
		s.respond(cc, req.ID, nil, fmt.Errorf("encode result: %w", err))
		return
	}
	s.respond(cc, req.ID, payload, nil)
}

func (s *Server) respond(cc *clientConn, id uint64, result json.RawMessage, err error) {
	resp := Frame{
		Type:    FrameTypeResponse,
		ID:      id,
		Payload: result,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	// Unlike events, a response is never dropped: the caller is waiting for
	// it. A client too slow to drain the queue is closed by writeLoop.
	select {
	case cc.sendCh <- resp:
	case <-cc.done:
		s.logger.Debug("response for closed client discarded", "conn_id", cc.id, "frame_id", id)
	}
}

func (s *Server) broadcast(event string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}
	frame := Frame{Type: FrameTypeEvent, Method: event, Payload: payload}
	s.clients.Range(func(_, value any) bool {
		cc := value.(*clientConn)
		select {
		case cc.sendCh <- frame:
		default:
			s.logger.Warn("dropped event for slow client", "conn_id", cc.id, "event", event)
		}
		return true
	})
}
