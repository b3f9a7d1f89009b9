package persistence

import (
	"context"

	"github.com/shipping/backend/internal/domain/shipping"
	"github.com/shipping/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const entityContainer = "Container"

// GormContainerRepository implements ContainerRepository using GORM
type GormContainerRepository struct {
	db *gorm.DB
}

// NewGormContainerRepository creates a new GormContainerRepository
func NewGormContainerRepository(db *gorm.DB) *GormContainerRepository {
	return &GormContainerRepository{db: db}
}

// Insert stores a new container and returns the generated id
func (r *GormContainerRepository) Insert(ctx context.Context, container *shipping.Container) (uint32, error) {
	model := models.ContainerModelFromDomain(container)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, translateError("insert", entityContainer, err)
	}
	return model.ID, nil
}

// FindByID finds a container by its ID
func (r *GormContainerRepository) FindByID(ctx context.Context, id uint32) (*shipping.Container, error) {
	var model models.ContainerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find", entityContainer, err)
	}
	return model.ToDomain(), nil
}

// FindAll lists containers ordered by id, optionally restricted by dewar and type
func (r *GormContainerRepository) FindAll(ctx context.Context, dewarID *uint32, containerType *string) ([]shipping.Container, error) {
	query := r.db.WithContext(ctx).Model(&models.ContainerModel{})
	if dewarID != nil {
		query = query.Where("dewar_id = ?", *dewarID)
	}
	if containerType != nil {
		query = query.Where("container_type = ?", *containerType)
	}

	var rows []models.ContainerModel
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, translateError("find", entityContainer, err)
	}

	containers := make([]shipping.Container, len(rows))
	for i := range rows {
		containers[i] = *rows[i].ToDomain()
	}
	return containers, nil
}

// Ensure GormContainerRepository implements ContainerRepository
var _ shipping.ContainerRepository = (*GormContainerRepository)(nil)
