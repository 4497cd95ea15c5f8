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

// Decision values accepted from recruiters.
const (
	DecisionAccept    = "accept"
	DecisionReject    = "reject"
	DecisionInterview = "interview"
)

var decisionStatus = map[string]models.ApplicationStatus{
	DecisionAccept:    models.StatusAccepted,
	DecisionReject:    models.StatusRejected,
	DecisionInterview: models.StatusSentToInterview,
}

// StatusForDecision maps a recruiter decision to the resulting application status.
func StatusForDecision(decision string) (models.ApplicationStatus, error) {
	status, ok := decisionStatus[decision]
	if !ok {
		return "", apperrors.Validation("decision must be one of accept, reject, interview (got %q)", decision)
	}
	return status, nil
}

type ApplicationRepository interface {
	Create(ctx context.Context, candidateID, jobID uint) (*models.Application, error)
	FindByID(ctx context.Context, id uint) (*models.Application, error)
	SetNeedsReview(ctx context.Context, id uint, needsReview bool) error
	RecordDecision(ctx context.Context, id uint, decision string) (*models.Application, error)
	ListForJob(ctx context.Context, jobID uint) ([]models.ApplicantRow, error)
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, candidateID, jobID uint) (*models.Application, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", jobID).Count(&count).Error; err != nil {
		return nil, apperrors.Storage("check job", err)
	}
	if count == 0 {
		return nil, apperrors.NotFound("job %d not found", jobID)
	}

	app := &models.Application{
		CandidateID: candidateID,
		JobID:       jobID,
		Status:      models.StatusPending,
	}
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		return nil, apperrors.Storage("create application", err)
	}
	return app, nil
}

func (r *applicationRepository) FindByID(ctx context.Context, id uint) (*models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&app).Error; err != nil {
		return nil, storageErr("find application", err, fmt.Sprintf("application %d not found", id))
	}
	return &app, nil
}

func (r *applicationRepository) SetNeedsReview(ctx context.Context, id uint, needsReview bool) error {
	if err := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tag_needs_review": needsReview,
			"updated_at":       time.Now(),
		}).Error; err != nil {
		return apperrors.Storage("tag application for review", err)
	}
	return nil
}

// RecordDecision sets the application status and upserts the decision audit row in one
// transaction. The application, its job and the job's recruiter must all resolve, otherwise a
// NotFound error is returned. Repeating the same decision leaves the same state.
func (r *applicationRepository) RecordDecision(ctx context.Context, id uint, decision string) (*models.Application, error) {
	status, err := StatusForDecision(decision)
	if err != nil {
		return nil, err
	}

	var app models.Application
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&app).Error; err != nil {
			return storageErr("find application", err, fmt.Sprintf("application %d not found", id))
		}

		var job models.Job
		if err := tx.Where("id = ?", app.JobID).First(&job).Error; err != nil {
			return storageErr("find job", err, fmt.Sprintf("job %d not found", app.JobID))
		}
		if job.RecruiterID == nil {
			return apperrors.NotFound("job %d has no recruiter", job.ID)
		}
		var recruiter models.Recruiter
		if err := tx.Where("id = ?", *job.RecruiterID).First(&recruiter).Error; err != nil {
			return storageErr("find recruiter", err, fmt.Sprintf("recruiter %d not found", *job.RecruiterID))
		}

		now := time.Now()
		if err := tx.Model(&models.Application{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     status,
				"updated_at": now,
			}).Error; err != nil {
			return apperrors.Storage("update application status", err)
		}

		audit := models.ApplicationDecision{
			ApplicationID: id,
			RecruiterID:   recruiter.ID,
			Decision:      decision,
			Status:        status,
			DecidedAt:     now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "application_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"recruiter_id", "decision", "status", "decided_at"}),
		}).Create(&audit).Error; err != nil {
			return apperrors.Storage("record decision", err)
		}

		app.Status = status
		app.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &app, nil
}

// ListForJob returns one row per application with the candidate name and assessment scores.
func (r *applicationRepository) ListForJob(ctx context.Context, jobID uint) ([]models.ApplicantRow, error) {
	var rows []models.ApplicantRow
	err := r.db.WithContext(ctx).
		Table("candidate_applications AS a").
		Select(`a.id AS application_id,
			a.candidate_id AS candidate_id,
			a.job_id AS job_id,
			a.status AS status,
			a.tag_needs_review AS needs_review,
			c.full_name AS candidate_name,
			s.cv_score AS cv_score,
			s.video_score AS video_score,
			s.total_score AS total_score`).
		Joins("LEFT JOIN candidates AS c ON c.id = a.candidate_id").
		Joins("LEFT JOIN ai_assessments AS s ON s.application_id = a.id").
		Where("a.job_id = ?", jobID).
		Order("a.created_at DESC, a.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Storage("list applications for job", err)
	}
	return rows, nil
}
