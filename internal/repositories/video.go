package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recruitflow/assessment-api/internal/apperrors"
	"recruitflow/assessment-api/internal/models"
)

type VideoUpload struct {
	ApplicationID uint
	QuestionIndex int
	QuestionText  string
	VideoURL      string
	FileKey       *string
	FileSize      *int64
	MimeType      *string
}

// VideoMetrics are the per-question results written by the video stage.
type VideoMetrics struct {
	Transcript            *string
	FacePresenceRatio     *float64
	CameraEngagementRatio *float64
	YawVariance           *float64
	ConfidenceScore       *int
	Clarity               *int
	AnswerRelevance       *int
	Summary               *string
}

type VideoRepository interface {
	Upsert(ctx context.Context, upload VideoUpload) (*models.VideoSubmission, error)
	UpdateMetrics(ctx context.Context, applicationID uint, questionIndex int, metrics VideoMetrics) error
	ListByApplication(ctx context.Context, applicationID uint) ([]models.VideoSubmission, error)
	CountAnalyzed(ctx context.Context, applicationID uint) (int64, error)
}

type videoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &videoRepository{db: db}
}

// Upsert inserts the submission or, when (application_id, question_index) already exists,
// replaces its upload metadata, refreshes created_at and clears the previous analysis.
func (r *videoRepository) Upsert(ctx context.Context, upload VideoUpload) (*models.VideoSubmission, error) {
	row := &models.VideoSubmission{
		ApplicationID: upload.ApplicationID,
		QuestionIndex: upload.QuestionIndex,
		QuestionText:  upload.QuestionText,
		VideoURL:      upload.VideoURL,
		VideoFileKey:  upload.FileKey,
		FileSize:      upload.FileSize,
		MimeType:      upload.MimeType,
		CreatedAt:     time.Now(),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "application_id"}, {Name: "question_index"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"question_text", "video_url", "video_file_key", "file_size", "mime_type", "created_at",
			"audio_transcript", "face_presence_ratio", "camera_engagement_ratio", "yaw_variance",
			"confidence_score", "clarity", "answer_relevance", "summary",
		}),
	}).Create(row).Error
	if err != nil {
		return nil, apperrors.Storage("upsert video submission", err)
	}

	var saved models.VideoSubmission
	if err := r.db.WithContext(ctx).
		Where("application_id = ? AND question_index = ?", upload.ApplicationID, upload.QuestionIndex).
		First(&saved).Error; err != nil {
		return nil, storageErr("reload video submission", err,
			fmt.Sprintf("video for application %d question %d not found", upload.ApplicationID, upload.QuestionIndex))
	}
	return &saved, nil
}

// UpdateMetrics is update-only; a missing row is left alone.
func (r *videoRepository) UpdateMetrics(ctx context.Context, applicationID uint, questionIndex int, metrics VideoMetrics) error {
	if err := r.db.WithContext(ctx).Model(&models.VideoSubmission{}).
		Where("application_id = ? AND question_index = ?", applicationID, questionIndex).
		Updates(map[string]interface{}{
			"audio_transcript":        metrics.Transcript,
			"face_presence_ratio":     metrics.FacePresenceRatio,
			"camera_engagement_ratio": metrics.CameraEngagementRatio,
			"yaw_variance":            metrics.YawVariance,
			"confidence_score":        metrics.ConfidenceScore,
			"clarity":                 metrics.Clarity,
			"answer_relevance":        metrics.AnswerRelevance,
			"summary":                 metrics.Summary,
		}).Error; err != nil {
		return apperrors.Storage("update video metrics", err)
	}
	return nil
}

func (r *videoRepository) ListByApplication(ctx context.Context, applicationID uint) ([]models.VideoSubmission, error) {
	var rows []models.VideoSubmission
	if err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("question_index ASC").
		Find(&rows).Error; err != nil {
		return nil, apperrors.Storage("list video submissions", err)
	}
	return rows, nil
}

// CountAnalyzed counts submissions carrying at least one analysis result.
func (r *videoRepository) CountAnalyzed(ctx context.Context, applicationID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.VideoSubmission{}).
		Where("application_id = ?", applicationID).
		Where(`(audio_transcript IS NOT NULL OR face_presence_ratio IS NOT NULL
			OR camera_engagement_ratio IS NOT NULL OR yaw_variance IS NOT NULL
			OR confidence_score IS NOT NULL OR clarity IS NOT NULL OR answer_relevance IS NOT NULL)`).
		Count(&count).Error; err != nil {
		return 0, apperrors.Storage("count analyzed videos", err)
	}
	return count, nil
}
