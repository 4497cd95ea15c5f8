package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"recruitflow/assessment-api/internal/apperrors"
	"recruitflow/assessment-api/internal/models"
)

type CvRepository interface {
	Create(ctx context.Context, applicationID uint, url string, size *int64, mime *string) (*models.CvRecord, error)
	FindByApplication(ctx context.Context, applicationID uint) (*models.CvRecord, error)
	UpdateAnalysis(ctx context.Context, applicationID uint, text, keywords string, score *int) error
	IsAnalysisComplete(ctx context.Context, applicationID uint, fallbackAge time.Duration, now time.Time) (bool, error)
	FindUnprocessed(ctx context.Context, limit int) ([]models.CvRecord, error)
}

type cvRepository struct {
	db *gorm.DB
}

func NewCvRepository(db *gorm.DB) CvRepository {
	return &cvRepository{db: db}
}

func (r *cvRepository) Create(ctx context.Context, applicationID uint, url string, size *int64, mime *string) (*models.CvRecord, error) {
	record := &models.CvRecord{
		ApplicationID:  applicationID,
		CvURL:          url,
		FileSize:       size,
		MimeType:       mime,
		CvText:         "",
		ParsedKeywords: "",
		UploadedAt:     time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, apperrors.Storage("create cv record", err)
	}
	return record, nil
}

func (r *cvRepository) FindByApplication(ctx context.Context, applicationID uint) (*models.CvRecord, error) {
	var record models.CvRecord
	if err := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&record).Error; err != nil {
		return nil, storageErr("find cv record", err, fmt.Sprintf("cv for application %d not found", applicationID))
	}
	return &record, nil
}

// UpdateAnalysis overwrites the analysis columns. Calling it again replaces the previous result.
func (r *cvRepository) UpdateAnalysis(ctx context.Context, applicationID uint, text, keywords string, score *int) error {
	if err := r.db.WithContext(ctx).Model(&models.CvRecord{}).
		Where("application_id = ?", applicationID).
		Updates(map[string]interface{}{
			"cv_text":         text,
			"parsed_keywords": keywords,
			"technical_score": score,
		}).Error; err != nil {
		return apperrors.Storage("update cv analysis", err)
	}
	return nil
}

type cvCompletionRow struct {
	TechnicalScore *int
	CvText         string
	UploadedAt     time.Time
	FullName       *string
}

// IsAnalysisComplete reports whether the CV stage has produced something observable: a score,
// non-blank text, an extracted candidate name, or an upload older than fallbackAge. An
// application without a CV record has nothing pending.
func (r *cvRepository) IsAnalysisComplete(ctx context.Context, applicationID uint, fallbackAge time.Duration, now time.Time) (bool, error) {
	var rows []cvCompletionRow
	err := r.db.WithContext(ctx).
		Table("cv_data AS cv").
		Select("cv.technical_score AS technical_score, cv.cv_text AS cv_text, cv.uploaded_at AS uploaded_at, c.full_name AS full_name").
		Joins("LEFT JOIN candidate_applications AS a ON a.id = cv.application_id").
		Joins("LEFT JOIN candidates AS c ON c.id = a.candidate_id").
		Where("cv.application_id = ?", applicationID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return false, apperrors.Storage("check cv analysis", err)
	}
	if len(rows) == 0 {
		return true, nil
	}

	row := rows[0]
	switch {
	case row.TechnicalScore != nil:
		return true, nil
	case strings.TrimSpace(row.CvText) != "":
		return true, nil
	case row.FullName != nil && strings.TrimSpace(*row.FullName) != "":
		return true, nil
	}
	return now.Sub(row.UploadedAt) >= fallbackAge, nil
}

// FindUnprocessed returns CV records that no analysis run has finalized yet.
func (r *cvRepository) FindUnprocessed(ctx context.Context, limit int) ([]models.CvRecord, error) {
	var records []models.CvRecord
	if err := r.db.WithContext(ctx).
		Where("cv_text = ? AND technical_score IS NULL", "").
		Order("uploaded_at ASC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, apperrors.Storage("find unprocessed cv records", err)
	}
	return records, nil
}
