package persistence

import (
	"context"

	"github.com/shipping/backend/internal/domain/shipping"
	"github.com/shipping/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProposalRepository implements ProposalRepository using GORM
type GormProposalRepository struct {
	db *gorm.DB
}

// NewGormProposalRepository creates a new GormProposalRepository
func NewGormProposalRepository(db *gorm.DB) *GormProposalRepository {
	return &GormProposalRepository{db: db}
}

// FindByID finds a proposal by its ID
func (r *GormProposalRepository) FindByID(ctx context.Context, id uint32) (*shipping.Proposal, error) {
	var model models.ProposalModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find", "Proposal", err)
	}
	return model.ToDomain(), nil
}

// FindAll lists proposals ordered by id, optionally restricted to one id
func (r *GormProposalRepository) FindAll(ctx context.Context, id *uint32) ([]shipping.Proposal, error) {
	query := r.db.WithContext(ctx).Model(&models.ProposalModel{})
	if id != nil {
		query = query.Where("id = ?", *id)
	}

	var rows []models.ProposalModel
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, translateError("find", "Proposal", err)
	}

	proposals := make([]shipping.Proposal, len(rows))
	for i := range rows {
		proposals[i] = *rows[i].ToDomain()
	}
	return proposals, nil
}

// GormPersonRepository implements PersonRepository using GORM
type GormPersonRepository struct {
	db *gorm.DB
}

// NewGormPersonRepository creates a new GormPersonRepository
func NewGormPersonRepository(db *gorm.DB) *GormPersonRepository {
	return &GormPersonRepository{db: db}
}

// FindByID finds a person by its ID
func (r *GormPersonRepository) FindByID(ctx context.Context, id uint32) (*shipping.Person, error) {
	var model models.PersonModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find", "Person", err)
	}
	return model.ToDomain(), nil
}

// FindAll lists people ordered by id, optionally restricted to one id
func (r *GormPersonRepository) FindAll(ctx context.Context, id *uint32) ([]shipping.Person, error) {
	query := r.db.WithContext(ctx).Model(&models.PersonModel{})
	if id != nil {
		query = query.Where("id = ?", *id)
	}

	var rows []models.PersonModel
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, translateError("find", "Person", err)
	}

	people := make([]shipping.Person, len(rows))
	for i := range rows {
		people[i] = *rows[i].ToDomain()
	}
	return people, nil
}

var (
	_ shipping.ProposalRepository = (*GormProposalRepository)(nil)
	_ shipping.PersonRepository   = (*GormPersonRepository)(nil)
)
