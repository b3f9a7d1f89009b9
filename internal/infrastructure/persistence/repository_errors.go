package persistence

import (
	"errors"

	"github.com/shipping/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps GORM errors onto domain errors: a missing row becomes
// shared.ErrNotFound, anything else a *shared.PersistenceError.
func translateError(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return shared.NewPersistenceError(op, entity, err)
}
