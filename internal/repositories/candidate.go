package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"recruitflow/assessment-api/internal/apperrors"
	"recruitflow/assessment-api/internal/models"
)

// CandidateProfile holds the contact fields extracted from a CV or confirmed by the candidate.
type CandidateProfile struct {
	FullName string
	Email    string
	Phone    string
	Address  string
}

type CandidateRepository interface {
	CreateMinimal(ctx context.Context) (*models.Candidate, error)
	FindByID(ctx context.Context, id uint) (*models.Candidate, error)
	UpdateFromExtraction(ctx context.Context, id uint, profile CandidateProfile) error
	UpdateReview(ctx context.Context, id uint, profile CandidateProfile) error
}

type candidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

func (r *candidateRepository) CreateMinimal(ctx context.Context) (*models.Candidate, error) {
	candidate := &models.Candidate{}
	if err := r.db.WithContext(ctx).Create(candidate).Error; err != nil {
		return nil, apperrors.Storage("create candidate", err)
	}
	return candidate, nil
}

func (r *candidateRepository) FindByID(ctx context.Context, id uint) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&candidate).Error; err != nil {
		return nil, storageErr("find candidate", err, fmt.Sprintf("candidate %d not found", id))
	}
	return &candidate, nil
}

// UpdateFromExtraction writes only the non-empty fields, so values already on file survive a
// partial extraction.
func (r *candidateRepository) UpdateFromExtraction(ctx context.Context, id uint, profile CandidateProfile) error {
	updates := map[string]interface{}{}
	if profile.FullName != "" {
		updates["full_name"] = profile.FullName
	}
	if profile.Email != "" {
		updates["email"] = profile.Email
	}
	if profile.Phone != "" {
		updates["phone"] = profile.Phone
	}
	if profile.Address != "" {
		updates["address"] = profile.Address
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()

	if err := r.db.WithContext(ctx).Model(&models.Candidate{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return apperrors.Storage("update candidate from extraction", err)
	}
	return nil
}

func (r *candidateRepository) UpdateReview(ctx context.Context, id uint, profile CandidateProfile) error {
	result := r.db.WithContext(ctx).Model(&models.Candidate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"full_name":  profile.FullName,
			"email":      profile.Email,
			"phone":      profile.Phone,
			"address":    profile.Address,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return apperrors.Storage("update candidate review", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("candidate %d not found", id)
	}
	return nil
}
