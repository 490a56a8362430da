package bridge

import "encoding/json"

// FrameType identifies the kind of frame sent over the WebSocket connection.
type FrameType string

const (
	FrameTypeRequest  FrameType = "request"
	FrameTypeResponse FrameType = "response"
	FrameTypeEvent    FrameType = "event"
)

// Frame is the envelope exchanged between client and server over WebSocket.
type Frame struct {
	Type    FrameType       `json:"type"`
	ID      uint64          `json:"id,omitempty"`      // request/response correlation ID
	Method  string          `json:"method,omitempty"`  // operation (request) or event name (event)
	Payload json.RawMessage `json:"payload,omitempty"` // params, result or event value
	Error   string          `json:"error,omitempty"`   // transport-level failure (response only)
}

// connectUsbParams and sendSerialDataParams are the request payloads of the
// operations that take arguments. connectSerial takes host.SerialOptions.
type connectUsbParams struct {
	DeviceID string `json:"deviceId"`
}

type sendSerialDataParams struct {
	Data []byte `json:"data"`
}

// BridgePath is the HTTP path of the websocket endpoint.
const BridgePath = "/bridge"

// maxMessageSize bounds a single frame in either direction.
const maxMessageSize = 4 << 20
