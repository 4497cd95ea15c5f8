package services

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"recruitflow/assessment-api/internal/apperrors"
	"recruitflow/assessment-api/internal/models"
	"recruitflow/assessment-api/internal/repositories"
)

type JobService struct {
	jobs       repositories.JobRepository
	apps       repositories.ApplicationRepository
	recruiters repositories.RecruiterRepository
	status     *StatusProjector
	logger     *zap.Logger
}

func NewJobService(stores Stores, status *StatusProjector, logger *zap.Logger) *JobService {
	return &JobService{
		jobs:       stores.Jobs,
		apps:       stores.Applications,
		recruiters: stores.Recruiters,
		status:     status,
		logger:     logger,
	}
}

func jobFields(req models.JobRequest) (repositories.JobFields, error) {
	if strings.TrimSpace(req.Title) == "" {
		return repositories.JobFields{}, apperrors.Validation("title is required")
	}
	fields := repositories.JobFields{
		Title:               strings.TrimSpace(req.Title),
		CompanyName:         strings.TrimSpace(req.CompanyName),
		BranchName:          strings.TrimSpace(req.BranchName),
		Location:            strings.TrimSpace(req.Location),
		WorkMode:            strings.Join(req.WorkMode, ","),
		Salary:              req.Salary,
		MinExperience:       req.MinExperience,
		Skills:              req.Skills,
		OtherRequirements:   strings.TrimSpace(req.OtherRequirements),
		CVScoreWeightage:    req.CVWeight,
		VideoScoreWeightage: req.VideoWeight,
	}
	if req.RecruiterID != 0 {
		id := req.RecruiterID
		fields.RecruiterID = &id
	}
	return fields, repositories.ValidateWeightage(req.CVWeight, req.VideoWeight)
}

func (s *JobService) CreateJob(ctx context.Context, req models.JobRequest) (*models.Job, error) {
	fields, err := jobFields(req)
	if err != nil {
		return nil, err
	}
	if fields.RecruiterID != nil {
		if _, err := s.recruiters.FindByID(ctx, *fields.RecruiterID); err != nil {
			return nil, err
		}
	}
	job, err := s.jobs.Create(ctx, fields, req.Questions)
	if err != nil {
		return nil, err
	}
	s.logger.Info("job created", zap.Uint("job_id", job.ID), zap.Int("questions", len(job.Questions)))
	return job, nil
}

func (s *JobService) UpdateJob(ctx context.Context, id uint, req models.JobRequest) (*models.Job, error) {
	fields, err := jobFields(req)
	if err != nil {
		return nil, err
	}
	return s.jobs.Update(ctx, id, fields, req.Questions)
}

func (s *JobService) GetJob(ctx context.Context, id uint) (*models.Job, error) {
	return s.jobs.FindByID(ctx, id)
}

func (s *JobService) ListJobsForRecruiter(ctx context.Context, recruiterID uint) ([]models.Job, error) {
	return s.jobs.ListForRecruiter(ctx, recruiterID)
}

func (s *JobService) UpdateJobStatus(ctx context.Context, id uint, status string) (*models.Job, error) {
	return s.jobs.UpdateStatus(ctx, id, models.JobStatus(strings.ToLower(strings.TrimSpace(status))))
}

func (s *JobService) DeleteJob(ctx context.Context, id uint) error {
	return s.jobs.Delete(ctx, id)
}

func splitWorkMode(s string) []string {
	modes := []string{}
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			modes = append(modes, m)
		}
	}
	return modes
}

// ListOpenJobs returns the jobs a candidate can pick from.
func (s *JobService) ListOpenJobs(ctx context.Context) ([]models.JobForCandidate, error) {
	jobs, err := s.jobs.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.JobForCandidate, 0, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		skills := job.SkillList()
		if skills == nil {
			skills = []string{}
		}
		workModes := splitWorkMode(job.WorkMode)
		jobType := ""
		if len(workModes) > 0 {
			jobType = workModes[0]
		}
		out = append(out, models.JobForCandidate{
			ID:                  strconv.FormatUint(uint64(job.ID), 10),
			Title:               job.Title,
			CompanyName:         job.CompanyName,
			BranchName:          job.BranchName,
			JobDescription:      job.JobDescription,
			Status:              string(job.Status),
			Location:            job.Location,
			Type:                jobType,
			MinExperience:       job.MinimumExperienceYears,
			Skills:              skills,
			WorkMode:            workModes,
			Salary:              job.SalaryMonthly,
			OtherRequirements:   job.OtherRequirements,
			CVScoreWeightage:    job.CVScoreWeightage,
			VideoScoreWeightage: job.VideoScoreWeightage,
		})
	}
	return out, nil
}

// QuestionsForJob lists the interview questions of an open job in order. Closed jobs are
// reported as not found.
func (s *JobService) QuestionsForJob(ctx context.Context, id uint) ([]string, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusOpen {
		return nil, apperrors.NotFound("job %d is not open", id)
	}

	questions := make([]string, 0, len(job.Questions))
	for _, q := range job.Questions {
		questions = append(questions, q.QuestionText)
	}
	return questions, nil
}

// ListApplicants returns the job's applications with scores and video progress. Progress is
// computed concurrently per application.
func (s *JobService) ListApplicants(ctx context.Context, jobID uint) ([]models.ApplicantRow, error) {
	if _, err := s.jobs.FindByID(ctx, jobID); err != nil {
		return nil, err
	}
	rows, err := s.apps.ListForJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range rows {
		row := &rows[i]
		g.Go(func() error {
			progress, err := s.status.VideoProgress(gctx, row.ApplicationID)
			if err != nil {
				return err
			}
			row.VideoProgress = &progress
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}
