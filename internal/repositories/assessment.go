package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recruitflow/assessment-api/internal/apperrors"
	"recruitflow/assessment-api/internal/models"
)

// CVAssessmentFields are the assessment columns owned by the CV stage.
type CVAssessmentFields struct {
	CvScore            *int
	CvRecommendation   *string
	CvMatchingAnalysis *string
	CvReasonSummary    *string
	CvJdOutput         datatypes.JSON
}

// SpeechAssessmentFields are the deprecated assessment-level video columns.
type SpeechAssessmentFields struct {
	ConfidenceScore *int
	Clarity         *int
	AnswerRelevance *int
	SpeechAnalysis  *string
	SpeechLLMOutput datatypes.JSON
}

type AssessmentRepository interface {
	InsertEmpty(ctx context.Context, applicationID uint) error
	UpsertCVFields(ctx context.Context, applicationID uint, fields CVAssessmentFields) error
	UpdateLegacySpeech(ctx context.Context, applicationID uint, fields SpeechAssessmentFields) error
	UpdateScores(ctx context.Context, applicationID uint, videoScore, totalScore *int) error
	FindByApplication(ctx context.Context, applicationID uint) (*models.Assessment, error)
}

type assessmentRepository struct {
	db *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

func (r *assessmentRepository) InsertEmpty(ctx context.Context, applicationID uint) error {
	row := &models.Assessment{ApplicationID: applicationID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error; err != nil {
		return apperrors.Storage("insert empty assessment", err)
	}
	return nil
}

// UpsertCVFields creates the row if needed and otherwise touches only the cv_* columns.
func (r *assessmentRepository) UpsertCVFields(ctx context.Context, applicationID uint, fields CVAssessmentFields) error {
	now := time.Now()
	row := &models.Assessment{
		ApplicationID:      applicationID,
		CvScore:            fields.CvScore,
		CvRecommendation:   fields.CvRecommendation,
		CvMatchingAnalysis: fields.CvMatchingAnalysis,
		CvReasonSummary:    fields.CvReasonSummary,
		CvJdOutput:         fields.CvJdOutput,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "application_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cv_score", "cv_recommendation", "cv_matching_analysis", "cv_reason_summary", "cv_jd_output", "updated_at",
		}),
	}).Create(row).Error; err != nil {
		return apperrors.Storage("upsert cv assessment", err)
	}
	return nil
}

// UpdateLegacySpeech is kept so the video stage keeps its call shape. The speech columns are
// deprecated and per-question metrics are stored on the video submission, so nothing is written.
func (r *assessmentRepository) UpdateLegacySpeech(ctx context.Context, applicationID uint, fields SpeechAssessmentFields) error {
	return nil
}

func (r *assessmentRepository) UpdateScores(ctx context.Context, applicationID uint, videoScore, totalScore *int) error {
	if err := r.db.WithContext(ctx).Model(&models.Assessment{}).
		Where("application_id = ?", applicationID).
		Updates(map[string]interface{}{
			"video_score": videoScore,
			"total_score": totalScore,
			"updated_at":  time.Now(),
		}).Error; err != nil {
		return apperrors.Storage("update assessment scores", err)
	}
	return nil
}

func (r *assessmentRepository) FindByApplication(ctx context.Context, applicationID uint) (*models.Assessment, error) {
	var row models.Assessment
	if err := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&row).Error; err != nil {
		return nil, storageErr("find assessment", err, fmt.Sprintf("assessment for application %d not found", applicationID))
	}
	return &row, nil
}
