package shipping

import "strings"

// Sample is a single specimen mounted on a pin inside a puck
type Sample struct {
	ID          uint32
	ContainerID uint32
	Code        string
}

// NewSample creates a sample in the given container
func NewSample(containerID uint32, code string) (*Sample, error) {
	if err := ValidateCode("Sample", code); err != nil {
		return nil, err
	}
	return &Sample{
		ContainerID: containerID,
		Code:        strings.TrimSpace(code),
	}, nil
}
