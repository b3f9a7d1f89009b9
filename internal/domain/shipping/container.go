package shipping

import "strings"

// Container types known to the shipping schema
const (
	ContainerTypePuck = "Puck"
)

// Container is a sample holder (puck) placed inside a dewar
type Container struct {
	ID            uint32
	DewarID       uint32
	Code          string
	ContainerType string
}

// NewPuck creates a puck container inside the given dewar
func NewPuck(dewarID uint32, code string) (*Container, error) {
	if err := ValidateCode("Container", code); err != nil {
		return nil, err
	}
	return &Container{
		DewarID:       dewarID,
		Code:          strings.TrimSpace(code),
		ContainerType: ContainerTypePuck,
	}, nil
}

// IsPuck reports whether the container is a puck
func (c *Container) IsPuck() bool {
	return c.ContainerType == ContainerTypePuck
}
