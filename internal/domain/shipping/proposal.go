package shipping

import "fmt"

// ProposalState represents the lifecycle state of a proposal
type ProposalState string

const (
	ProposalStateOpen      ProposalState = "Open"
	ProposalStateClosed    ProposalState = "Closed"
	ProposalStateCancelled ProposalState = "Cancelled"
)

// IsValid checks if the state is a known proposal state
func (s ProposalState) IsValid() bool {
	switch s {
	case ProposalStateOpen, ProposalStateClosed, ProposalStateCancelled:
		return true
	}
	return false
}

// Proposal is a beamtime proposal that shipments are registered against
type Proposal struct {
	ID       uint32
	PersonID uint32
	Title    *string
	Code     *string
	Number   *string
	State    ProposalState
}

// Reference returns the human facing proposal reference, e.g. "mx12345"
func (p *Proposal) Reference() string {
	var code, number string
	if p.Code != nil {
		code = *p.Code
	}
	if p.Number != nil {
		number = *p.Number
	}
	if code == "" && number == "" {
		return fmt.Sprintf("proposal-%d", p.ID)
	}
	return code + number
}

// IsOpen reports whether new shipments may be registered
func (p *Proposal) IsOpen() bool {
	return p.State == ProposalStateOpen
}
