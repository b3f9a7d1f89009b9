package persistence

import (
	"context"

	"github.com/shipping/backend/internal/domain/shipping"
	"github.com/shipping/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormShipmentRepository implements ShipmentRepository using GORM
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewGormShipmentRepository creates a new GormShipmentRepository
func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// Insert stores a new shipment and returns the generated id
func (r *GormShipmentRepository) Insert(ctx context.Context, shipment *shipping.Shipment) (uint32, error) {
	model := models.ShipmentModelFromDomain(shipment)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, translateError("insert", shipping.AggregateTypeShipment, err)
	}
	return model.ID, nil
}

// FindByID finds a shipment by its ID
func (r *GormShipmentRepository) FindByID(ctx context.Context, id uint32) (*shipping.Shipment, error) {
	var model models.ShipmentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find", shipping.AggregateTypeShipment, err)
	}
	return model.ToDomain(), nil
}

// FindAll lists shipments ordered by id, optionally for one proposal
func (r *GormShipmentRepository) FindAll(ctx context.Context, proposalID *uint32) ([]shipping.Shipment, error) {
	query := r.db.WithContext(ctx).Model(&models.ShipmentModel{})
	if proposalID != nil {
		query = query.Where("proposal_id = ?", *proposalID)
	}

	var rows []models.ShipmentModel
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, translateError("find", shipping.AggregateTypeShipment, err)
	}

	shipments := make([]shipping.Shipment, len(rows))
	for i := range rows {
		shipments[i] = *rows[i].ToDomain()
	}
	return shipments, nil
}

// Ensure GormShipmentRepository implements ShipmentRepository
var _ shipping.ShipmentRepository = (*GormShipmentRepository)(nil)
