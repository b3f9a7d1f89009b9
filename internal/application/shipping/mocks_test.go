package shipping

import (
	"context"

	"github.com/shipping/backend/internal/domain/shipping"
	"github.com/stretchr/testify/mock"
)

// ============================================================================
// Mocks
// ============================================================================

// MockShipmentRepository is a mock implementation of ShipmentRepository
type MockShipmentRepository struct {
	mock.Mock
}

func (m *MockShipmentRepository) Insert(ctx context.Context, s *shipping.Shipment) (uint32, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(uint32), args.Error(1)
}

func (m *MockShipmentRepository) FindByID(ctx context.Context, id uint32) (*shipping.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) FindAll(ctx context.Context, proposalID *uint32) ([]shipping.Shipment, error) {
	args := m.Called(ctx, proposalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shipping.Shipment), args.Error(1)
}

// MockDewarRepository is a mock implementation of DewarRepository
type MockDewarRepository struct {
	mock.Mock
}

func (m *MockDewarRepository) Insert(ctx context.Context, d *shipping.Dewar) (uint32, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(uint32), args.Error(1)
}

func (m *MockDewarRepository) FindByID(ctx context.Context, id uint32) (*shipping.Dewar, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Dewar), args.Error(1)
}

func (m *MockDewarRepository) FindAll(ctx context.Context, shipmentID *uint32) ([]shipping.Dewar, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shipping.Dewar), args.Error(1)
}

// MockContainerRepository is a mock implementation of ContainerRepository
type MockContainerRepository struct {
	mock.Mock
}

func (m *MockContainerRepository) Insert(ctx context.Context, c *shipping.Container) (uint32, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(uint32), args.Error(1)
}

func (m *MockContainerRepository) FindByID(ctx context.Context, id uint32) (*shipping.Container, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Container), args.Error(1)
}

func (m *MockContainerRepository) FindAll(ctx context.Context, dewarID *uint32, containerType *string) ([]shipping.Container, error) {
	args := m.Called(ctx, dewarID, containerType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shipping.Container), args.Error(1)
}

// MockSampleRepository is a mock implementation of SampleRepository
type MockSampleRepository struct {
	mock.Mock
}

func (m *MockSampleRepository) Insert(ctx context.Context, s *shipping.Sample) (uint32, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(uint32), args.Error(1)
}

func (m *MockSampleRepository) FindByID(ctx context.Context, id uint32) (*shipping.Sample, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Sample), args.Error(1)
}

func (m *MockSampleRepository) FindAll(ctx context.Context, containerID *uint32) ([]shipping.Sample, error) {
	args := m.Called(ctx, containerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shipping.Sample), args.Error(1)
}

// MockProposalRepository is a mock implementation of ProposalRepository
type MockProposalRepository struct {
	mock.Mock
}

func (m *MockProposalRepository) FindByID(ctx context.Context, id uint32) (*shipping.Proposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Proposal), args.Error(1)
}

func (m *MockProposalRepository) FindAll(ctx context.Context, id *uint32) ([]shipping.Proposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shipping.Proposal), args.Error(1)
}

// MockPersonRepository is a mock implementation of PersonRepository
type MockPersonRepository struct {
	mock.Mock
}

func (m *MockPersonRepository) FindByID(ctx context.Context, id uint32) (*shipping.Person, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Person), args.Error(1)
}

func (m *MockPersonRepository) FindAll(ctx context.Context, id *uint32) ([]shipping.Person, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shipping.Person), args.Error(1)
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mock.Mock
}

func (p *recordingPublisher) Publish(event *shipping.ShipmentEvent) {
	p.Called(event)
}

func (p *recordingPublisher) events() []*shipping.ShipmentEvent {
	var out []*shipping.ShipmentEvent
	for _, call := range p.Calls {
		if call.Method == "Publish" {
			out = append(out, call.Arguments.Get(0).(*shipping.ShipmentEvent))
		}
	}
	return out
}
