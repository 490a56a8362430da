package serial

import (
	"errors"
	"fmt"
	"io"
	"sort"

	bugst "go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// OpenPortable opens a port through go.bug.st/serial, which works on
// platforms without termios ioctls. Flow control and write mode are not
// supported by that backend and are ignored.
func OpenPortable(device string, opts ...Option) (io.ReadWriteCloser, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	mode := &bugst.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		Parity:   portableParity(config.Parity),
		StopBits: bugst.OneStopBit,
	}
	if config.StopBits == 2 {
		mode.StopBits = bugst.TwoStopBits
	}
	if config.InitialRTS != nil || config.InitialDTR != nil {
		bits := &bugst.ModemOutputBits{RTS: true, DTR: true}
		if config.InitialRTS != nil {
			bits.RTS = *config.InitialRTS
		}
		if config.InitialDTR != nil {
			bits.DTR = *config.InitialDTR
		}
		mode.InitialStatusBits = bits
	}

	p, err := bugst.Open(device, mode)
	if err != nil {
		return nil, portableError(device, err)
	}

	if err := p.SetReadTimeout(config.ReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return p, nil
}

func portableParity(p Parity) bugst.Parity {
	switch p {
	case ParityOdd:
		return bugst.OddParity
	case ParityEven:
		return bugst.EvenParity
	case ParityMark:
		return bugst.MarkParity
	case ParitySpace:
		return bugst.SpaceParity
	default:
		return bugst.NoParity
	}
}

func portableError(device string, err error) error {
	var portErr *bugst.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case bugst.PortNotFound:
			return fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
		case bugst.PermissionDenied:
			return fmt.Errorf("%w: %s", ErrPermissionDenied, device)
		case bugst.PortBusy:
			return fmt.Errorf("%w: %s", ErrDeviceInUse, device)
		case bugst.InvalidSpeed:
			return ErrInvalidBaudRate
		}
	}
	return fmt.Errorf("failed to open %s: %w", device, err)
}

// DiscoverPortable lists ports through the go.bug.st enumerator.
func DiscoverPortable() ([]PortDescriptor, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	descriptors := make([]PortDescriptor, 0, len(details))
	for _, d := range details {
		desc := PortDescriptor{Path: d.Name}
		if d.IsUSB {
			desc.VendorID = d.VID
			desc.ProductID = d.PID
			desc.SerialNumber = d.SerialNumber
		}
		descriptors = append(descriptors, desc)
	}
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Path < descriptors[j].Path })
	return descriptors, nil
}
