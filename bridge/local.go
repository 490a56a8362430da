package bridge

import (
	"context"

	"github.com/allbin/devlink/host"
	"github.com/allbin/devlink/serial"
	"github.com/allbin/devlink/usb"
)

// Local calls a host in the same process.
type Local struct {
	host *host.Host
}

var _ Bridge = (*Local)(nil)

// NewLocal wraps h.
func NewLocal(h *host.Host) *Local {
	return &Local{host: h}
}

func (l *Local) ListUsbDevices(ctx context.Context) ([]usb.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.host.ListUsbDevices(), nil
}

func (l *Local) ConnectUsb(ctx context.Context, deviceID string) (host.Result, error) {
	if err := ctx.Err(); err != nil {
		return host.Result{}, err
	}
	return l.host.ConnectUsb(deviceID), nil
}

func (l *Local) DisconnectUsb(ctx context.Context) (host.Result, error) {
	if err := ctx.Err(); err != nil {
		return host.Result{}, err
	}
	return l.host.DisconnectUsb(), nil
}

func (l *Local) ListSerialPorts(ctx context.Context) ([]serial.PortDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.host.ListSerialPorts(), nil
}

func (l *Local) ConnectSerial(ctx context.Context, opts host.SerialOptions) (host.Result, error) {
	if err := ctx.Err(); err != nil {
		return host.Result{}, err
	}
	return l.host.ConnectSerial(opts), nil
}

func (l *Local) DisconnectSerial(ctx context.Context) (host.Result, error) {
	if err := ctx.Err(); err != nil {
		return host.Result{}, err
	}
	return l.host.DisconnectSerial(), nil
}

func (l *Local) SendSerialData(ctx context.Context, data []byte) (host.Result, error) {
	if err := ctx.Err(); err != nil {
		return host.Result{}, err
	}
	return l.host.SendSerialData(data), nil
}

func (l *Local) OnSerialData(fn func([]byte)) Unsubscribe {
	return l.host.Events().SerialData.Subscribe(fn)
}

func (l *Local) OnSerialError(fn func(string)) Unsubscribe {
	return l.host.Events().SerialError.Subscribe(fn)
}

func (l *Local) OnUsbDevicesList(fn func([]usb.Descriptor)) Unsubscribe {
	return l.host.Events().UsbDevicesList.Subscribe(fn)
}

func (l *Local) OnUsbConnected(fn func(string)) Unsubscribe {
	return l.host.Events().UsbConnected.Subscribe(fn)
}
