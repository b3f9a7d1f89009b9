package persistence

import (
	"context"

	"github.com/shipping/backend/internal/domain/shipping"
	"github.com/shipping/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const entitySample = "Sample"

// GormSampleRepository implements SampleRepository using GORM
type GormSampleRepository struct {
	db *gorm.DB
}

// NewGormSampleRepository creates a new GormSampleRepository
func NewGormSampleRepository(db *gorm.DB) *GormSampleRepository {
	return &GormSampleRepository{db: db}
}

// Insert stores a new sample and returns the generated id
func (r *GormSampleRepository) Insert(ctx context.Context, sample *shipping.Sample) (uint32, error) {
	model := models.SampleModelFromDomain(sample)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, translateError("insert", entitySample, err)
	}
	return model.ID, nil
}

// FindByID finds a sample by its ID
func (r *GormSampleRepository) FindByID(ctx context.Context, id uint32) (*shipping.Sample, error) {
	var model models.SampleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find", entitySample, err)
	}
	return model.ToDomain(), nil
}

// FindAll lists samples ordered by id, optionally for one container
func (r *GormSampleRepository) FindAll(ctx context.Context, containerID *uint32) ([]shipping.Sample, error) {
	query := r.db.WithContext(ctx).Model(&models.SampleModel{})
	if containerID != nil {
		query = query.Where("container_id = ?", *containerID)
	}

	var rows []models.SampleModel
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, translateError("find", entitySample, err)
	}

	samples := make([]shipping.Sample, len(rows))
	for i := range rows {
		samples[i] = *rows[i].ToDomain()
	}
	return samples, nil
}

// Ensure GormSampleRepository implements SampleRepository
var _ shipping.SampleRepository = (*GormSampleRepository)(nil)
