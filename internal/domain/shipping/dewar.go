package shipping

import "strings"

// Dewar is an insulated transport vessel belonging to a shipment.
// Dewars may exist without a shipment, so the parent reference is optional.
type Dewar struct {
	ID         uint32
	ShipmentID *uint32
	Code       string
}

// NewDewar creates a dewar attached to the given shipment
func NewDewar(shipmentID uint32, code string) (*Dewar, error) {
	if err := ValidateCode("Dewar", code); err != nil {
		return nil, err
	}
	return &Dewar{
		ShipmentID: &shipmentID,
		Code:       strings.TrimSpace(code),
	}, nil
}
