package shipping

import "context"

// Repository errors: implementations return shared.ErrNotFound for missing rows
// and wrap every other store failure in *shared.PersistenceError.

// ShipmentRepository defines persistence for shipments
type ShipmentRepository interface {
	// Insert stores a new shipment and returns its generated id
	Insert(ctx context.Context, shipment *Shipment) (uint32, error)
	// FindByID finds a shipment by id
	FindByID(ctx context.Context, id uint32) (*Shipment, error)
	// FindAll lists shipments, optionally restricted to one proposal
	FindAll(ctx context.Context, proposalID *uint32) ([]Shipment, error)
}

// DewarRepository defines persistence for dewars
type DewarRepository interface {
	Insert(ctx context.Context, dewar *Dewar) (uint32, error)
	FindByID(ctx context.Context, id uint32) (*Dewar, error)
	// FindAll lists dewars, optionally restricted to one shipment
	FindAll(ctx context.Context, shipmentID *uint32) ([]Dewar, error)
}

// ContainerRepository defines persistence for containers
type ContainerRepository interface {
	Insert(ctx context.Context, container *Container) (uint32, error)
	FindByID(ctx context.Context, id uint32) (*Container, error)
	// FindAll lists containers, optionally restricted to one dewar and/or one container type
	FindAll(ctx context.Context, dewarID *uint32, containerType *string) ([]Container, error)
}

// SampleRepository defines persistence for samples
type SampleRepository interface {
	Insert(ctx context.Context, sample *Sample) (uint32, error)
	FindByID(ctx context.Context, id uint32) (*Sample, error)
	// FindAll lists samples, optionally restricted to one container
	FindAll(ctx context.Context, containerID *uint32) ([]Sample, error)
}

// ProposalRepository provides read access to proposals
type ProposalRepository interface {
	FindByID(ctx context.Context, id uint32) (*Proposal, error)
	FindAll(ctx context.Context, id *uint32) ([]Proposal, error)
}

// PersonRepository provides read access to people
type PersonRepository interface {
	FindByID(ctx context.Context, id uint32) (*Person, error)
	FindAll(ctx context.Context, id *uint32) ([]Person, error)
}
