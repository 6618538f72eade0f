package models

// DeviceEntry is one flattened device emitted by enumeration.
type DeviceEntry struct {
	ID        string
	Name      string
	ProductID string
}

// DeviceID returns the flattened discovery identifier <device_key>_<product_id>.
func (d DeviceEntry) DeviceID() string {
	return d.ID + "_" + d.ProductID
}

// DeviceListing is the device-discovery response payload. Both slices are
// index-aligned and never nil so an empty listing serializes as [] not null.
type DeviceListing struct {
	Names     []string `json:"name"`
	DeviceIDs []string `json:"device_id"`
}

// NewDeviceListing flattens entries preserving their order.
func NewDeviceListing(entries []DeviceEntry) *DeviceListing {
	listing := &DeviceListing{
		Names:     make([]string, 0, len(entries)),
		DeviceIDs: make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		listing.Names = append(listing.Names, e.Name)
		listing.DeviceIDs = append(listing.DeviceIDs, e.DeviceID())
	}
	return listing
}
