package repositories

import (
	"errors"

	"gorm.io/gorm"

	"recruitflow/assessment-api/internal/apperrors"
)

// storageErr wraps a gorm failure, turning a missing row into a NotFound error.
func storageErr(op string, err error, notFoundMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("%s", notFoundMsg)
	}
	return apperrors.Storage(op, err)
}
