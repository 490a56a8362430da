// Package bridge is the capability surface between the host and a UI
// process. It exposes a fixed set of device operations and event streams
// and nothing else: there is no way to invoke an operation by an arbitrary
// name or to reach the transports behind the host.
package bridge

import (
	"context"

	"github.com/allbin/devlink/host"
	"github.com/allbin/devlink/serial"
	"github.com/allbin/devlink/usb"
)

// Operation names.
const (
	OpListUsbDevices   = "listUsbDevices"
	OpConnectUsb       = "connectUsb"
	OpDisconnectUsb    = "disconnectUsb"
	OpListSerialPorts  = "listSerialPorts"
	OpConnectSerial    = "connectSerial"
	OpDisconnectSerial = "disconnectSerial"
	OpSendSerialData   = "sendSerialData"
)

// Event names.
const (
	EventSerialData     = "serial-data"
	EventSerialError    = "serial-error"
	EventUsbDevicesList = "usb-devices-list"
	EventUsbConnected   = "usb-connected"
)

// Operations lists every operation name in allow-list order.
var Operations = []string{
	OpListUsbDevices,
	OpConnectUsb,
	OpDisconnectUsb,
	OpListSerialPorts,
	OpConnectSerial,
	OpDisconnectSerial,
	OpSendSerialData,
}

// Unsubscribe removes exactly the listener it was returned for. Calls after
// the first are no-ops.
type Unsubscribe func()

// Bridge is what a UI process can do. Operation errors are transport errors
// only; device failures come back inside host.Result.
type Bridge interface {
	ListUsbDevices(ctx context.Context) ([]usb.Descriptor, error)
	ConnectUsb(ctx context.Context, deviceID string) (host.Result, error)
	DisconnectUsb(ctx context.Context) (host.Result, error)
	ListSerialPorts(ctx context.Context) ([]serial.PortDescriptor, error)
	ConnectSerial(ctx context.Context, opts host.SerialOptions) (host.Result, error)
	DisconnectSerial(ctx context.Context) (host.Result, error)
	SendSerialData(ctx context.Context, data []byte) (host.Result, error)

	OnSerialData(func([]byte)) Unsubscribe
	OnSerialError(func(string)) Unsubscribe
	OnUsbDevicesList(func([]usb.Descriptor)) Unsubscribe
	OnUsbConnected(func(string)) Unsubscribe
}
