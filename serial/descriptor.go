package serial

// PortDescriptor is an immutable snapshot of a discovered serial port.
// Path is the identity key.
type PortDescriptor struct {
	Path         string `json:"path"`
	Manufacturer string `json:"manufacturer,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
	PnpID        string `json:"pnpId,omitempty"`
	LocationID   string `json:"locationId,omitempty"`
	ProductID    string `json:"productId,omitempty"`
	VendorID     string `json:"vendorId,omitempty"`
}

// Describe converts port information into a descriptor.
func Describe(info *PortInfo) PortDescriptor {
	return PortDescriptor{
		Path:         info.Path,
		Manufacturer: info.Manufacturer,
		SerialNumber: info.SerialNumber,
		PnpID:        info.ByID,
		LocationID:   info.ByPath,
		ProductID:    info.ProductID,
		VendorID:     info.VendorID,
	}
}
