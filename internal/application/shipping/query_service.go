package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/shipping/backend/internal/domain/shared"
	"github.com/shipping/backend/internal/domain/shipping"
)

// QueryService serves the read side of the shipping hierarchy
type QueryService struct {
	shipments  shipping.ShipmentRepository
	dewars     shipping.DewarRepository
	containers shipping.ContainerRepository
	samples    shipping.SampleRepository
	proposals  shipping.ProposalRepository
	people     shipping.PersonRepository
}

// NewQueryService creates a new QueryService
func NewQueryService(
	shipments shipping.ShipmentRepository,
	dewars shipping.DewarRepository,
	containers shipping.ContainerRepository,
	samples shipping.SampleRepository,
	proposals shipping.ProposalRepository,
	people shipping.PersonRepository,
) *QueryService {
	return &QueryService{
		shipments:  shipments,
		dewars:     dewars,
		containers: containers,
		samples:    samples,
		proposals:  proposals,
		people:     people,
	}
}

// ListShipments lists shipments, optionally for one proposal
func (s *QueryService) ListShipments(ctx context.Context, proposalID *uint32) ([]ShipmentResponse, error) {
	shipments, err := s.shipments.FindAll(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	return toResponses(shipments, ToShipmentResponse), nil
}

// GetShipment returns a shipment with its proposal and the proposal's person
func (s *QueryService) GetShipment(ctx context.Context, id uint32) (*ShipmentDetailResponse, error) {
	shipment, err := s.shipments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	proposal, err := s.GetProposal(ctx, shipment.ProposalID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	return &ShipmentDetailResponse{
		ShipmentResponse: ToShipmentResponse(shipment),
		Proposal:         proposal,
	}, nil
}

// ListDewars lists dewars, optionally for one shipment
func (s *QueryService) ListDewars(ctx context.Context, shipmentID *uint32) ([]DewarResponse, error) {
	dewars, err := s.dewars.FindAll(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	return toResponses(dewars, ToDewarResponse), nil
}

// ListContainers lists containers of any type, optionally for one dewar
func (s *QueryService) ListContainers(ctx context.Context, dewarID *uint32) ([]ContainerResponse, error) {
	containers, err := s.containers.FindAll(ctx, dewarID, nil)
	if err != nil {
		return nil, err
	}
	return toResponses(containers, ToContainerResponse), nil
}

// ListPucks lists puck containers, optionally for one dewar
func (s *QueryService) ListPucks(ctx context.Context, dewarID *uint32) ([]ContainerResponse, error) {
	puck := shipping.ContainerTypePuck
	containers, err := s.containers.FindAll(ctx, dewarID, &puck)
	if err != nil {
		return nil, err
	}
	return toResponses(containers, ToContainerResponse), nil
}

// ListPins lists samples, optionally for one puck
func (s *QueryService) ListPins(ctx context.Context, puckID *uint32) ([]SampleResponse, error) {
	samples, err := s.samples.FindAll(ctx, puckID)
	if err != nil {
		return nil, err
	}
	return toResponses(samples, ToSampleResponse), nil
}

// ListProposals lists proposals, optionally restricted to one id
func (s *QueryService) ListProposals(ctx context.Context, id *uint32) ([]ProposalResponse, error) {
	proposals, err := s.proposals.FindAll(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toResponses(proposals, ToProposalResponse)
	for i := range out {
		person, err := s.findPerson(ctx, proposals[i].PersonID)
		if err != nil {
			return nil, err
		}
		out[i].Person = person
	}
	return out, nil
}

// GetProposal returns a proposal with its person resolved
func (s *QueryService) GetProposal(ctx context.Context, id uint32) (*ProposalResponse, error) {
	proposal, err := s.proposals.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProposalResponse(proposal)
	if resp.Person, err = s.findPerson(ctx, proposal.PersonID); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPeople lists people, optionally restricted to one id
func (s *QueryService) ListPeople(ctx context.Context, id *uint32) ([]PersonResponse, error) {
	people, err := s.people.FindAll(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponses(people, ToPersonResponse), nil
}

// BuildManifest assembles the full packing list of a shipment
func (s *QueryService) BuildManifest(ctx context.Context, shipmentID uint32) (*ShipmentManifest, error) {
	detail, err := s.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	dewars, err := s.dewars.FindAll(ctx, &shipmentID)
	if err != nil {
		return nil, err
	}

	manifest := &ShipmentManifest{
		Shipment:    detail.ShipmentResponse,
		Proposal:    detail.Proposal,
		Dewars:      make([]ManifestDewar, 0, len(dewars)),
		GeneratedAt: time.Now().UTC(),
	}
	for i := range dewars {
		md := ManifestDewar{DewarResponse: ToDewarResponse(&dewars[i]), Containers: []ManifestContainer{}}
		containers, err := s.containers.FindAll(ctx, &dewars[i].ID, nil)
		if err != nil {
			return nil, err
		}
		for j := range containers {
			samples, err := s.samples.FindAll(ctx, &containers[j].ID)
			if err != nil {
				return nil, err
			}
			md.Containers = append(md.Containers, ManifestContainer{
				ContainerResponse: ToContainerResponse(&containers[j]),
				Samples:           toResponses(samples, ToSampleResponse),
			})
		}
		manifest.Dewars = append(manifest.Dewars, md)
	}
	return manifest, nil
}

// findPerson resolves an optional person; a dangling reference yields nil
func (s *QueryService) findPerson(ctx context.Context, id uint32) (*PersonResponse, error) {
	if id == 0 {
		return nil, nil
	}
	person, err := s.people.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	resp := ToPersonResponse(person)
	return &resp, nil
}
