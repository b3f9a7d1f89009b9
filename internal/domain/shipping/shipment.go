package shipping

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shipping/backend/internal/domain/shared"
)

// Field limits mirror the column widths of the shipping schema, in characters
const (
	MaxShipmentNameLength = 45
	MaxCommentsLength     = 255
	MaxCodeLength         = 45
)

// Shipment is the root of the shipping hierarchy: a consignment of dewars
// registered against a proposal.
type Shipment struct {
	ID         uint32
	ProposalID uint32
	Name       *string
	Comments   *string
	CreatedAt  time.Time
}

// NewShipment validates the fields of a shipment that has not been stored yet
func NewShipment(proposalID uint32, name, comments *string) (*Shipment, error) {
	if proposalID == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Proposal ID is required")
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if utf8.RuneCountInString(trimmed) > MaxShipmentNameLength {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Shipment name cannot exceed 45 characters")
		}
		name = &trimmed
	}
	if comments != nil && utf8.RuneCountInString(*comments) > MaxCommentsLength {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Shipment comments cannot exceed 255 characters")
	}
	return &Shipment{
		ProposalID: proposalID,
		Name:       name,
		Comments:   comments,
	}, nil
}

// Clone returns a deep copy so that a broadcast delivery can be handed to
// several consumers without sharing the optional string fields.
func (s Shipment) Clone() Shipment {
	out := s
	out.Name = cloneString(s.Name)
	out.Comments = cloneString(s.Comments)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// ValidateCode checks a dewar, container or sample code
func ValidateCode(kind, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, kind+" code cannot be empty")
	}
	if utf8.RuneCountInString(code) > MaxCodeLength {
		return shared.NewDomainError(shared.CodeInvalidInput, kind+" code cannot exceed 45 characters")
	}
	return nil
}
