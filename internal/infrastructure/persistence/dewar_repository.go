package persistence

import (
	"context"

	"github.com/shipping/backend/internal/domain/shipping"
	"github.com/shipping/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const entityDewar = "Dewar"

// GormDewarRepository implements DewarRepository using GORM
type GormDewarRepository struct {
	db *gorm.DB
}

// NewGormDewarRepository creates a new GormDewarRepository
func NewGormDewarRepository(db *gorm.DB) *GormDewarRepository {
	return &GormDewarRepository{db: db}
}

// Insert stores a new dewar and returns the generated id
func (r *GormDewarRepository) Insert(ctx context.Context, dewar *shipping.Dewar) (uint32, error) {
	model := models.DewarModelFromDomain(dewar)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, translateError("insert", entityDewar, err)
	}
	return model.ID, nil
}

// FindByID finds a dewar by its ID
func (r *GormDewarRepository) FindByID(ctx context.Context, id uint32) (*shipping.Dewar, error) {
	var model models.DewarModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find", entityDewar, err)
	}
	return model.ToDomain(), nil
}

// FindAll lists dewars ordered by id, optionally for one shipment
func (r *GormDewarRepository) FindAll(ctx context.Context, shipmentID *uint32) ([]shipping.Dewar, error) {
	query := r.db.WithContext(ctx).Model(&models.DewarModel{})
	if shipmentID != nil {
		query = query.Where("shipment_id = ?", *shipmentID)
	}

	var rows []models.DewarModel
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, translateError("find", entityDewar, err)
	}

	dewars := make([]shipping.Dewar, len(rows))
	for i := range rows {
		dewars[i] = *rows[i].ToDomain()
	}
	return dewars, nil
}

// Ensure GormDewarRepository implements DewarRepository
var _ shipping.DewarRepository = (*GormDewarRepository)(nil)
