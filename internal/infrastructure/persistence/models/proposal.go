package models

import "github.com/shipping/backend/internal/domain/shipping"

// ProposalModel is the persistence model for proposals
type ProposalModel struct {
	ID       uint32  `gorm:"primaryKey;autoIncrement"`
	PersonID uint32  `gorm:"not null;index"`
	Title    *string `gorm:"type:varchar(200)"`
	Code     *string `gorm:"type:varchar(45)"`
	Number   *string `gorm:"type:varchar(45)"`
	State    *string `gorm:"type:varchar(20)"`
}

// TableName returns the table name for GORM
func (ProposalModel) TableName() string {
	return "proposals"
}

// ToDomain converts the persistence model to a domain Proposal
func (m *ProposalModel) ToDomain() *shipping.Proposal {
	return &shipping.Proposal{
		ID:       m.ID,
		PersonID: m.PersonID,
		Title:    m.Title,
		Code:     m.Code,
		Number:   m.Number,
		State:    shipping.ProposalState(deref(m.State)),
	}
}

// PersonModel is the persistence model for people
type PersonModel struct {
	ID         uint32  `gorm:"primaryKey;autoIncrement"`
	GivenName  *string `gorm:"type:varchar(45)"`
	FamilyName *string `gorm:"type:varchar(100)"`
	Title      *string `gorm:"type:varchar(45)"`
}

// TableName returns the table name for GORM
func (PersonModel) TableName() string {
	return "people"
}

// ToDomain converts the persistence model to a domain Person
func (m *PersonModel) ToDomain() *shipping.Person {
	return &shipping.Person{
		ID:         m.ID,
		GivenName:  m.GivenName,
		FamilyName: m.FamilyName,
		Title:      m.Title,
	}
}
