package shipping

import (
	"time"

	"github.com/shipping/backend/internal/domain/shipping"
)

// CreateShipmentRequest describes a shipment and the full tree of dewars,
// containers and samples to create beneath it
type CreateShipmentRequest struct {
	ProposalID uint32       `json:"proposal_id" binding:"required"`
	Name       *string      `json:"name" binding:"omitempty,max=45"`
	Comments   *string      `json:"comments" binding:"omitempty,max=255"`
	Dewars     []DewarInput `json:"dewars" binding:"omitempty,dive"`
}

// DewarInput describes a dewar to create
type DewarInput struct {
	Code       string           `json:"code" binding:"required,max=45"`
	Containers []ContainerInput `json:"containers" binding:"omitempty,dive"`
}

// ContainerInput describes a puck to create
type ContainerInput struct {
	Code    string        `json:"code" binding:"required,max=45"`
	Samples []SampleInput `json:"samples" binding:"omitempty,dive"`
}

// SampleInput describes a sample (pin) to create
type SampleInput struct {
	Code string `json:"code" binding:"required,max=45"`
}

// InsertResult is the generated id of a created entity together with the
// results of its children, in the order they were requested
type InsertResult struct {
	ID       uint32         `json:"id"`
	Children []InsertResult `json:"children"`
}

// CreateShipmentResponse is returned after a successful create
type CreateShipmentResponse struct {
	Shipment ShipmentResponse `json:"shipment"`
	Tree     InsertResult     `json:"tree"`
}

// ShipmentResponse represents a shipment in API responses and subscriptions
type ShipmentResponse struct {
	ID         uint32    `json:"id"`
	ProposalID uint32    `json:"proposal_id"`
	Name       *string   `json:"name"`
	Comments   *string   `json:"comments"`
	CreatedAt  time.Time `json:"created_at"`
}

// ShipmentDetailResponse is a shipment with its proposal resolved
type ShipmentDetailResponse struct {
	ShipmentResponse
	Proposal *ProposalResponse `json:"proposal"`
}

// DewarResponse represents a dewar in API responses
type DewarResponse struct {
	ID         uint32  `json:"id"`
	ShipmentID *uint32 `json:"shipment_id"`
	Code       string  `json:"code"`
}

// ContainerResponse represents a container (puck) in API responses
type ContainerResponse struct {
	ID            uint32 `json:"id"`
	DewarID       uint32 `json:"dewar_id"`
	Code          string `json:"code"`
	ContainerType string `json:"container_type"`
}

// SampleResponse represents a sample (pin) in API responses
type SampleResponse struct {
	ID          uint32 `json:"id"`
	ContainerID uint32 `json:"container_id"`
	Code        string `json:"code"`
}

// ProposalResponse represents a proposal in API responses
type ProposalResponse struct {
	ID        uint32          `json:"id"`
	Title     *string         `json:"title"`
	Code      *string         `json:"code"`
	Number    *string         `json:"number"`
	State     *string         `json:"state"`
	Reference string          `json:"reference"`
	Person    *PersonResponse `json:"person,omitempty"`
}

// PersonResponse represents a person in API responses
type PersonResponse struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// ShipmentManifest is the exported packing list of a shipment
type ShipmentManifest struct {
	Shipment    ShipmentResponse  `json:"shipment"`
	Proposal    *ProposalResponse `json:"proposal,omitempty"`
	Dewars      []ManifestDewar   `json:"dewars"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// ManifestDewar is a dewar and its containers within a manifest
type ManifestDewar struct {
	DewarResponse
	Containers []ManifestContainer `json:"containers"`
}

// ManifestContainer is a container and its samples within a manifest
type ManifestContainer struct {
	ContainerResponse
	Samples []SampleResponse `json:"samples"`
}

// ToShipmentResponse converts a domain Shipment to ShipmentResponse
func ToShipmentResponse(s *shipping.Shipment) ShipmentResponse {
	return ShipmentResponse{
		ID:         s.ID,
		ProposalID: s.ProposalID,
		Name:       s.Name,
		Comments:   s.Comments,
		CreatedAt:  s.CreatedAt,
	}
}

// ToDewarResponse converts a domain Dewar to DewarResponse
func ToDewarResponse(d *shipping.Dewar) DewarResponse {
	return DewarResponse{ID: d.ID, ShipmentID: d.ShipmentID, Code: d.Code}
}

// ToContainerResponse converts a domain Container to ContainerResponse
func ToContainerResponse(c *shipping.Container) ContainerResponse {
	return ContainerResponse{ID: c.ID, DewarID: c.DewarID, Code: c.Code, ContainerType: c.ContainerType}
}

// ToSampleResponse converts a domain Sample to SampleResponse
func ToSampleResponse(s *shipping.Sample) SampleResponse {
	return SampleResponse{ID: s.ID, ContainerID: s.ContainerID, Code: s.Code}
}

// ToProposalResponse converts a domain Proposal to ProposalResponse.
// Unknown states are reported as null.
func ToProposalResponse(p *shipping.Proposal) ProposalResponse {
	resp := ProposalResponse{
		ID:        p.ID,
		Title:     p.Title,
		Code:      p.Code,
		Number:    p.Number,
		Reference: p.Reference(),
	}
	if p.State.IsValid() {
		state := string(p.State)
		resp.State = &state
	}
	return resp
}

// ToPersonResponse converts a domain Person to PersonResponse
func ToPersonResponse(p *shipping.Person) PersonResponse {
	return PersonResponse{ID: p.ID, Name: p.DisplayName()}
}

func toResponses[T, R any](items []T, convert func(*T) R) []R {
	out := make([]R, len(items))
	for i := range items {
		out[i] = convert(&items[i])
	}
	return out
}
