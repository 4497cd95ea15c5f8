package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"recruitflow/assessment-api/internal/apperrors"
	"recruitflow/assessment-api/internal/models"
)

// JobFields is the editable part of a job posting.
type JobFields struct {
	RecruiterID         *uint
	Title               string
	CompanyName         string
	BranchName          string
	Location            string
	WorkMode            string
	Salary              int
	MinExperience       int
	Skills              []string
	OtherRequirements   string
	CVScoreWeightage    int
	VideoScoreWeightage int
}

type JobRepository interface {
	Create(ctx context.Context, fields JobFields, questions []string) (*models.Job, error)
	Update(ctx context.Context, id uint, fields JobFields, questions []string) (*models.Job, error)
	FindByID(ctx context.Context, id uint) (*models.Job, error)
	ListOpen(ctx context.Context) ([]models.Job, error)
	ListForRecruiter(ctx context.Context, recruiterID uint) ([]models.Job, error)
	UpdateStatus(ctx context.Context, id uint, status models.JobStatus) (*models.Job, error)
	Delete(ctx context.Context, id uint) error
	CountQuestions(ctx context.Context, id uint) (int64, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

// ValidateWeightage enforces that the CV and video weights split the total score exactly.
func ValidateWeightage(cvWeight, videoWeight int) error {
	if cvWeight+videoWeight != 100 {
		return apperrors.Validation(
			"cv_score_weightage and video_score_weightage must sum to 100 (got %d + %d = %d)",
			cvWeight, videoWeight, cvWeight+videoWeight,
		)
	}
	return nil
}

// BuildJobDescription renders the description sent to the CV scorer.
func BuildJobDescription(title string, skills []string, otherRequirements string) string {
	if skills == nil {
		skills = []string{}
	}
	raw, _ := json.Marshal(map[string]interface{}{
		"job_title":          title,
		"skills":             skills,
		"other_requirements": otherRequirements,
	})
	return string(raw)
}

func cleanQuestions(questions []string) []string {
	cleaned := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			cleaned = append(cleaned, q)
		}
	}
	return cleaned
}

func questionRows(jobID uint, questions []string) []models.JobQuestion {
	rows := make([]models.JobQuestion, 0, len(questions))
	for i, q := range questions {
		rows = append(rows, models.JobQuestion{JobID: jobID, Position: i, QuestionText: q})
	}
	return rows
}

func skillsJSON(skills []string) datatypes.JSON {
	if skills == nil {
		skills = []string{}
	}
	raw, _ := json.Marshal(skills)
	return datatypes.JSON(raw)
}

func (r *jobRepository) Create(ctx context.Context, fields JobFields, questions []string) (*models.Job, error) {
	if err := ValidateWeightage(fields.CVScoreWeightage, fields.VideoScoreWeightage); err != nil {
		return nil, err
	}

	job := &models.Job{
		RecruiterID:            fields.RecruiterID,
		Title:                  fields.Title,
		CompanyName:            fields.CompanyName,
		BranchName:             fields.BranchName,
		JobDescription:         BuildJobDescription(fields.Title, fields.Skills, fields.OtherRequirements),
		Status:                 models.JobStatusOpen,
		Skills:                 skillsJSON(fields.Skills),
		MinimumExperienceYears: fields.MinExperience,
		OtherRequirements:      fields.OtherRequirements,
		Location:               fields.Location,
		WorkMode:               fields.WorkMode,
		SalaryMonthly:          fields.Salary,
		CVScoreWeightage:       fields.CVScoreWeightage,
		VideoScoreWeightage:    fields.VideoScoreWeightage,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Questions").Create(job).Error; err != nil {
			return err
		}
		rows := questionRows(job.ID, cleanQuestions(questions))
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		job.Questions = rows
		return nil
	})
	if err != nil {
		return nil, apperrors.Storage("create job", err)
	}

	return job, nil
}

// Update rewrites the job fields and replaces its question list.
func (r *jobRepository) Update(ctx context.Context, id uint, fields JobFields, questions []string) (*models.Job, error) {
	if err := ValidateWeightage(fields.CVScoreWeightage, fields.VideoScoreWeightage); err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Job{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"title":                    fields.Title,
				"company_name":             fields.CompanyName,
				"branch_name":              fields.BranchName,
				"job_description":          BuildJobDescription(fields.Title, fields.Skills, fields.OtherRequirements),
				"skills":                   skillsJSON(fields.Skills),
				"minimum_experience_years": fields.MinExperience,
				"other_requirements":       fields.OtherRequirements,
				"location":                 fields.Location,
				"work_mode":                fields.WorkMode,
				"salary_monthly":           fields.Salary,
				"cv_score_weightage":       fields.CVScoreWeightage,
				"video_score_weightage":    fields.VideoScoreWeightage,
				"updated_at":               time.Now(),
			})
		if result.Error != nil {
			return apperrors.Storage("update job", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.NotFound("job %d not found", id)
		}

		if err := tx.Where("job_id = ?", id).Delete(&models.JobQuestion{}).Error; err != nil {
			return apperrors.Storage("delete job questions", err)
		}
		rows := questionRows(id, cleanQuestions(questions))
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return apperrors.Storage("insert job questions", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.FindByID(ctx, id)
}

func (r *jobRepository) FindByID(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&job).Error
	if err != nil {
		return nil, storageErr("find job", err, fmt.Sprintf("job %d not found", id))
	}
	return &job, nil
}

func (r *jobRepository) ListOpen(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := r.db.WithContext(ctx).
		Where("status = ?", models.JobStatusOpen).
		Order("id ASC").
		Find(&jobs).Error; err != nil {
		return nil, apperrors.Storage("list open jobs", err)
	}
	return jobs, nil
}

func (r *jobRepository) ListForRecruiter(ctx context.Context, recruiterID uint) ([]models.Job, error) {
	var jobs []models.Job
	if err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("recruiter_id = ?", recruiterID).
		Order("created_at DESC").
		Find(&jobs).Error; err != nil {
		return nil, apperrors.Storage("list recruiter jobs", err)
	}
	return jobs, nil
}

func (r *jobRepository) UpdateStatus(ctx context.Context, id uint, status models.JobStatus) (*models.Job, error) {
	if status != models.JobStatusOpen && status != models.JobStatusClosed {
		return nil, apperrors.Validation("status must be 'open' or 'closed'")
	}

	result := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, apperrors.Storage("update job status", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.NotFound("job %d not found", id)
	}

	return r.FindByID(ctx, id)
}

// Delete removes the job together with its questions and every application made against it.
func (r *jobRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appIDs := tx.Model(&models.Application{}).Select("id").Where("job_id = ?", id)

		for _, model := range []interface{}{
			&models.ApplicationDecision{},
			&models.Assessment{},
			&models.VideoSubmission{},
			&models.CvRecord{},
		} {
			if err := tx.Where("application_id IN (?)", appIDs).Delete(model).Error; err != nil {
				return apperrors.Storage("delete job applications", err)
			}
		}
		if err := tx.Where("job_id = ?", id).Delete(&models.Application{}).Error; err != nil {
			return apperrors.Storage("delete job applications", err)
		}
		if err := tx.Where("job_id = ?", id).Delete(&models.JobQuestion{}).Error; err != nil {
			return apperrors.Storage("delete job questions", err)
		}

		result := tx.Where("id = ?", id).Delete(&models.Job{})
		if result.Error != nil {
			return apperrors.Storage("delete job", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.NotFound("job %d not found", id)
		}
		return nil
	})
}

func (r *jobRepository) CountQuestions(ctx context.Context, id uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.JobQuestion{}).
		Where("job_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, apperrors.Storage("count job questions", err)
	}
	return count, nil
}
