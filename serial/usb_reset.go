package serial

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/allbin/devlink/usb"
)

// ResetUSBDevice performs a USB-level reset of the adapter behind a port.
// This can recover hardware that is in a hung/unresponsive state.
//
// Returns:
// - nil if reset successful
// - ErrUSBResetNotAvailable if usbreset utility not found
// - ErrUSBInfoNotAvailable if device is not USB or metadata unavailable
// - error if reset fails
func ResetUSBDevice(portPath string) error {
	info, err := GetPortInfo(portPath)
	if err != nil {
		return fmt.Errorf("failed to get port info: %w", err)
	}

	bus, busErr := strconv.Atoi(info.BusNumber)
	dev, devErr := strconv.Atoi(info.DeviceNumber)
	if busErr != nil || devErr != nil {
		return ErrUSBInfoNotAvailable
	}

	if err := usb.Reset(bus, dev); err != nil {
		if errors.Is(err, usb.ErrResetNotAvailable) {
			return ErrUSBResetNotAvailable
		}
		return err
	}
	return nil
}

// ResetUSBDeviceBySerial resets a USB device by its serial number
// Useful when device paths change after reboot or when multiple devices are connected
func ResetUSBDeviceBySerial(serialNumber string) error {
	ports, err := ListPorts()
	if err != nil {
		return err
	}

	for _, portPath := range ports {
		info, err := GetPortInfo(portPath)
		if err != nil {
			continue
		}
		if info.SerialNumber == serialNumber {
			return ResetUSBDevice(portPath)
		}
	}

	return fmt.Errorf("device with serial %s not found", serialNumber)
}
