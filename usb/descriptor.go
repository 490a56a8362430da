// Package usb enumerates USB devices through sysfs and opens them through
// usbfs. It is Linux-only and needs no cgo.
package usb

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when a device id is not a "vid:pid" hex pair.
var ErrInvalidID = errors.New("invalid USB device id")

// Descriptor is an immutable snapshot of a discovered USB device.
type Descriptor struct {
	VendorID     uint16 `json:"vendorId"`
	ProductID    uint16 `json:"productId"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Product      string `json:"product,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
}

// ID returns the identity key of the descriptor.
func (d Descriptor) ID() string {
	return FormatID(d.VendorID, d.ProductID)
}

// FormatID renders a vendor/product pair as unpadded lowercase hex joined by ':'.
func FormatID(vendorID, productID uint16) string {
	return strconv.FormatUint(uint64(vendorID), 16) + ":" + strconv.FormatUint(uint64(productID), 16)
}

// ParseID is the inverse of FormatID. Leading zeros and upper case digits are accepted.
func ParseID(id string) (vendorID, productID uint16, err error) {
	vid, pid, ok := strings.Cut(id, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(vid), 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: vendor %q", ErrInvalidID, vid)
	}
	p, err := strconv.ParseUint(strings.TrimSpace(pid), 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: product %q", ErrInvalidID, pid)
	}
	return uint16(v), uint16(p), nil
}
