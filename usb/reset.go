package usb

import (
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrResetNotAvailable is returned when the usbreset utility is missing.
var ErrResetNotAvailable = errors.New("usbreset utility not available")

// settleDelay is how long a reset device usually needs to re-enumerate.
var settleDelay = 2 * time.Second

// Reset performs a USB-level reset of the device at bus/device.
//
// Requirements:
// - usbreset utility must be installed (from usbutils package)
// - Requires appropriate permissions (typically root/sudo)
func Reset(busNumber, deviceNumber int) error {
	if !IsResetAvailable() {
		return ErrResetNotAvailable
	}

	// usbreset expects zero-padded 3-digit bus and device numbers
	cmd := exec.Command("usbreset", ResetPath(busNumber, deviceNumber))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("usbreset failed: %w (output: %s)", err, string(output))
	}

	time.Sleep(settleDelay)
	return nil
}

// ResetPath formats the BBB/DDD argument understood by usbreset.
func ResetPath(busNumber, deviceNumber int) string {
	return pad3(busNumber) + "/" + pad3(deviceNumber)
}

// IsResetAvailable checks if usbreset utility is available in PATH
func IsResetAvailable() bool {
	_, err := exec.LookPath("usbreset")
	return err == nil
}
