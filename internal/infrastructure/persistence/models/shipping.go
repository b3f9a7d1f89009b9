package models

import (
	"time"

	"github.com/shipping/backend/internal/domain/shipping"
)

// ShipmentModel is the persistence model for shipments
type ShipmentModel struct {
	ID         uint32    `gorm:"primaryKey;autoIncrement"`
	ProposalID uint32    `gorm:"not null;index"`
	Name       *string   `gorm:"type:varchar(45)"`
	Comments   *string   `gorm:"type:varchar(255)"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ShipmentModel) TableName() string {
	return "shipments"
}

// ToDomain converts the persistence model to a domain Shipment
func (m *ShipmentModel) ToDomain() *shipping.Shipment {
	return &shipping.Shipment{
		ID:         m.ID,
		ProposalID: m.ProposalID,
		Name:       m.Name,
		Comments:   m.Comments,
		CreatedAt:  m.CreatedAt,
	}
}

// ShipmentModelFromDomain creates a persistence model from a domain Shipment
func ShipmentModelFromDomain(s *shipping.Shipment) *ShipmentModel {
	return &ShipmentModel{
		ID:         s.ID,
		ProposalID: s.ProposalID,
		Name:       s.Name,
		Comments:   s.Comments,
		CreatedAt:  s.CreatedAt,
	}
}

// DewarModel is the persistence model for dewars
type DewarModel struct {
	ID         uint32  `gorm:"primaryKey;autoIncrement"`
	ShipmentID *uint32 `gorm:"index"`
	Code       *string `gorm:"type:varchar(45)"`
}

// TableName returns the table name for GORM
func (DewarModel) TableName() string {
	return "dewars"
}

// ToDomain converts the persistence model to a domain Dewar
func (m *DewarModel) ToDomain() *shipping.Dewar {
	return &shipping.Dewar{
		ID:         m.ID,
		ShipmentID: m.ShipmentID,
		Code:       deref(m.Code),
	}
}

// DewarModelFromDomain creates a persistence model from a domain Dewar
func DewarModelFromDomain(d *shipping.Dewar) *DewarModel {
	return &DewarModel{
		ID:         d.ID,
		ShipmentID: d.ShipmentID,
		Code:       &d.Code,
	}
}

// ContainerModel is the persistence model for containers
type ContainerModel struct {
	ID            uint32  `gorm:"primaryKey;autoIncrement"`
	DewarID       uint32  `gorm:"not null;index"`
	Code          *string `gorm:"type:varchar(45)"`
	ContainerType *string `gorm:"type:varchar(20)"`
}

// TableName returns the table name for GORM
func (ContainerModel) TableName() string {
	return "containers"
}

// ToDomain converts the persistence model to a domain Container
func (m *ContainerModel) ToDomain() *shipping.Container {
	return &shipping.Container{
		ID:            m.ID,
		DewarID:       m.DewarID,
		Code:          deref(m.Code),
		ContainerType: deref(m.ContainerType),
	}
}

// ContainerModelFromDomain creates a persistence model from a domain Container
func ContainerModelFromDomain(c *shipping.Container) *ContainerModel {
	return &ContainerModel{
		ID:            c.ID,
		DewarID:       c.DewarID,
		Code:          &c.Code,
		ContainerType: &c.ContainerType,
	}
}

// SampleModel is the persistence model for samples
type SampleModel struct {
	ID          uint32  `gorm:"primaryKey;autoIncrement"`
	ContainerID uint32  `gorm:"not null;index"`
	Code        *string `gorm:"type:varchar(45)"`
}

// TableName returns the table name for GORM
func (SampleModel) TableName() string {
	return "samples"
}

// ToDomain converts the persistence model to a domain Sample
func (m *SampleModel) ToDomain() *shipping.Sample {
	return &shipping.Sample{
		ID:          m.ID,
		ContainerID: m.ContainerID,
		Code:        deref(m.Code),
	}
}

// SampleModelFromDomain creates a persistence model from a domain Sample
func SampleModelFromDomain(s *shipping.Sample) *SampleModel {
	return &SampleModel{
		ID:          s.ID,
		ContainerID: s.ContainerID,
		Code:        &s.Code,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
