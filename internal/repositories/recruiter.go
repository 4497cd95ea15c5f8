package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"recruitflow/assessment-api/internal/apperrors"
	"recruitflow/assessment-api/internal/models"
)

type RecruiterRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Recruiter, error)
	FindOrCreateByEmail(ctx context.Context, recruiter *models.Recruiter) (*models.Recruiter, error)
}

type recruiterRepository struct {
	db *gorm.DB
}

func NewRecruiterRepository(db *gorm.DB) RecruiterRepository {
	return &recruiterRepository{db: db}
}

func (r *recruiterRepository) FindByID(ctx context.Context, id uint) (*models.Recruiter, error) {
	var recruiter models.Recruiter
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&recruiter).Error; err != nil {
		return nil, storageErr("find recruiter", err, fmt.Sprintf("recruiter %d not found", id))
	}
	return &recruiter, nil
}

func (r *recruiterRepository) FindOrCreateByEmail(ctx context.Context, recruiter *models.Recruiter) (*models.Recruiter, error) {
	var found models.Recruiter
	err := r.db.WithContext(ctx).
		Where(models.Recruiter{Email: recruiter.Email}).
		Attrs(models.Recruiter{
			FullName:    recruiter.FullName,
			CompanyName: recruiter.CompanyName,
			Status:      recruiter.Status,
		}).
		FirstOrCreate(&found).Error
	if err != nil {
		return nil, apperrors.Storage("find or create recruiter", err)
	}
	return &found, nil
}
