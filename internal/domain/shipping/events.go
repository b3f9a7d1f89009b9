package shipping

import "github.com/shipping/backend/internal/domain/shared"

// Aggregate type constant
const AggregateTypeShipment = "Shipment"

// Event type constants
const (
	EventTypeShipmentCreated = "ShipmentCreated"
	EventTypeShipmentDeleted = "ShipmentDeleted"
)

// MutationType describes what happened to a shipment
type MutationType string

const (
	MutationCreated MutationType = "CREATED"
	MutationDeleted MutationType = "DELETED"
)

// ShipmentEvent is broadcast after a shipment mutation has been committed.
// It carries a value copy of the shipment as re-read from the store.
type ShipmentEvent struct {
	shared.BaseDomainEvent
	Mutation MutationType `json:"mutation"`
	Shipment Shipment     `json:"shipment"`
}

// NewShipmentCreatedEvent creates a ShipmentEvent for a freshly created shipment
func NewShipmentCreatedEvent(shipment Shipment) *ShipmentEvent {
	return &ShipmentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentCreated, AggregateTypeShipment, shipment.ID),
		Mutation:        MutationCreated,
		Shipment:        shipment,
	}
}

// Clone returns a copy that shares no memory with the receiver
func (e *ShipmentEvent) Clone() *ShipmentEvent {
	out := *e
	out.Shipment = e.Shipment.Clone()
	return &out
}

// Ensure *ShipmentEvent satisfies DomainEvent
var _ shared.DomainEvent = (*ShipmentEvent)(nil)
