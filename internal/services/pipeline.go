package services

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"recruitflow/assessment-api/internal/apperrors"
	"recruitflow/assessment-api/internal/models"
	"recruitflow/assessment-api/internal/repositories"
)

// Pipeline drives a candidate's application from job selection through CV and video
// submission. Submissions persist synchronously and hand the analysis to the dispatcher.
type Pipeline struct {
	stores     Stores
	flows      FlowStore
	dispatcher Dispatcher
	status     *StatusProjector
	logger     *zap.Logger
}

func NewPipeline(stores Stores, flows FlowStore, dispatcher Dispatcher, status *StatusProjector, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		stores:     stores,
		flows:      flows,
		dispatcher: dispatcher,
		status:     status,
		logger:     logger,
	}
}

func (p *Pipeline) SelectJob(ctx context.Context, sessionID string, job models.SelectedJob) error {
	if strings.TrimSpace(job.JobID) == "" {
		return apperrors.Validation("job_id is required")
	}

	state, err := p.flows.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	state.SelectedJob = &job
	return p.flows.Save(ctx, sessionID, state)
}

// GetSelectedJob returns nil when the session has not picked a job.
func (p *Pipeline) GetSelectedJob(ctx context.Context, sessionID string) (*models.SelectedJob, error) {
	state, err := p.flows.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return state.SelectedJob, nil
}

// SubmitCV creates a candidate and their application for the session's selected job.
func (p *Pipeline) SubmitCV(ctx context.Context, sessionID string, req models.CVURLRequest) (*models.CVSubmission, error) {
	state, err := p.flows.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.SelectedJob == nil {
		return nil, apperrors.Validation("no job selected, select a job before uploading a CV")
	}
	jobID, err := strconv.ParseUint(strings.TrimSpace(state.SelectedJob.JobID), 10, 64)
	if err != nil {
		return nil, apperrors.Validation("selected job id %q is not valid", state.SelectedJob.JobID)
	}
	if strings.TrimSpace(req.FileURL) == "" {
		return nil, apperrors.Validation("file_url is required")
	}

	candidate, err := p.stores.Candidates.CreateMinimal(ctx)
	if err != nil {
		return nil, err
	}

	jobDescription := ""
	if state.SelectedJob.JobDescription != nil {
		jobDescription = *state.SelectedJob.JobDescription
	}

	submission, err := p.SubmitCVFor(ctx, candidate.ID, uint(jobID), req, jobDescription)
	if err != nil {
		return nil, err
	}
	submission.Candidate = candidate

	appID := submission.Application.ID
	state.LatestApplicationID = &appID
	if err := p.flows.Save(ctx, sessionID, state); err != nil {
		return nil, err
	}
	return submission, nil
}

// SubmitCVFor creates the application, its CV record and an empty assessment, then schedules
// the CV stage. It returns before the stage starts.
func (p *Pipeline) SubmitCVFor(
	ctx context.Context,
	candidateID, jobID uint,
	req models.CVURLRequest,
	jobDescription string,
) (*models.CVSubmission, error) {
	app, err := p.stores.Applications.Create(ctx, candidateID, jobID)
	if err != nil {
		return nil, err
	}
	record, err := p.stores.CVs.Create(ctx, app.ID, req.FileURL, req.FileSize, req.MimeType)
	if err != nil {
		return nil, err
	}
	if err := p.stores.Assessments.InsertEmpty(ctx, app.ID); err != nil {
		return nil, err
	}

	if err := p.dispatcher.Dispatch(ctx, NewCVStageJob(app.ID, jobDescription)); err != nil {
		// the recovery poller picks up unfinalized CV records
		p.logger.Error("failed to schedule cv stage", zap.Uint("application_id", app.ID), zap.Error(err))
	}

	p.logger.Info("cv submitted", zap.Uint("application_id", app.ID), zap.Uint("job_id", jobID))
	return &models.CVSubmission{Application: app, CvRecord: record}, nil
}

func (p *Pipeline) latestApplicationID(ctx context.Context, sessionID string) (uint, bool, error) {
	state, err := p.flows.Get(ctx, sessionID)
	if err != nil {
		return 0, false, err
	}
	if state.LatestApplicationID == nil {
		return 0, false, nil
	}
	return *state.LatestApplicationID, true, nil
}

// SubmitVideo stores one interview answer for the session's application and schedules its
// analysis. Resubmitting a question replaces the earlier answer.
func (p *Pipeline) SubmitVideo(ctx context.Context, sessionID string, req models.VideoURLRequest) (*models.VideoSubmissionResult, error) {
	appID, ok, err := p.latestApplicationID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Validation("no application in this flow, upload a CV first")
	}
	if req.QuestionIndex == nil || *req.QuestionIndex < 0 {
		return nil, apperrors.Validation("question_index is required")
	}
	if strings.TrimSpace(req.FileURL) == "" {
		return nil, apperrors.Validation("file_url is required")
	}

	return p.SubmitVideoFor(ctx, appID, *req.QuestionIndex, req)
}

func (p *Pipeline) SubmitVideoFor(ctx context.Context, applicationID uint, questionIndex int, req models.VideoURLRequest) (*models.VideoSubmissionResult, error) {
	video, err := p.stores.Videos.Upsert(ctx, repositories.VideoUpload{
		ApplicationID: applicationID,
		QuestionIndex: questionIndex,
		QuestionText:  req.QuestionText,
		VideoURL:      req.FileURL,
		FileKey:       req.FileKey,
		FileSize:      req.FileSize,
		MimeType:      req.MimeType,
	})
	if err != nil {
		return nil, err
	}

	if err := p.dispatcher.Dispatch(ctx, NewVideoStageJob(applicationID, questionIndex)); err != nil {
		p.logger.Error("failed to schedule video stage",
			zap.Uint("application_id", applicationID), zap.Int("question_index", questionIndex), zap.Error(err))
	}

	return &models.VideoSubmissionResult{
		ApplicationID: applicationID,
		QuestionIndex: questionIndex,
		Video:         video,
	}, nil
}

func derefTrim(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// CandidateOverview returns the profile of the session's candidate, with empty strings for
// anything not known yet.
func (p *Pipeline) CandidateOverview(ctx context.Context, sessionID string) (models.CandidateOverview, error) {
	appID, ok, err := p.latestApplicationID(ctx, sessionID)
	if err != nil || !ok {
		return models.CandidateOverview{}, err
	}
	app, err := p.stores.Applications.FindByID(ctx, appID)
	if err != nil {
		return models.CandidateOverview{}, err
	}
	candidate, err := p.stores.Candidates.FindByID(ctx, app.CandidateID)
	if err != nil {
		return models.CandidateOverview{}, err
	}
	return models.CandidateOverview{
		Name:    derefTrim(candidate.FullName),
		Phone:   derefTrim(candidate.Phone),
		Email:   derefTrim(candidate.Email),
		Address: derefTrim(candidate.Address),
	}, nil
}

// SubmitReview overwrites the candidate's profile with the values they confirmed.
func (p *Pipeline) SubmitReview(ctx context.Context, sessionID string, req models.ReviewInfoRequest) error {
	appID, ok, err := p.latestApplicationID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Validation("no active application in this flow")
	}
	app, err := p.stores.Applications.FindByID(ctx, appID)
	if err != nil {
		return err
	}
	return p.stores.Candidates.UpdateReview(ctx, app.CandidateID, repositories.CandidateProfile{
		FullName: strings.TrimSpace(req.FullName),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Address:  strings.TrimSpace(req.Address),
	})
}

// AnalysisStatus reports the CV stage of the session's application. A session without an
// application has nothing pending.
func (p *Pipeline) AnalysisStatus(ctx context.Context, sessionID string) (models.AnalysisStatusResponse, error) {
	appID, ok, err := p.latestApplicationID(ctx, sessionID)
	if err != nil || !ok {
		return models.AnalysisStatusResponse{Pending: false}, err
	}
	return models.AnalysisStatusResponse{Pending: p.status.CVAnalysisPending(ctx, appID)}, nil
}

func (p *Pipeline) SessionVideoProgress(ctx context.Context, sessionID string) (models.VideoProgress, error) {
	appID, ok, err := p.latestApplicationID(ctx, sessionID)
	if err != nil {
		return models.VideoProgress{}, err
	}
	if !ok {
		return models.VideoProgress{}, apperrors.Validation("no active application in this flow")
	}
	return p.status.VideoProgress(ctx, appID)
}

func (p *Pipeline) ListVideos(ctx context.Context, applicationID uint) ([]models.VideoSubmission, error) {
	if _, err := p.stores.Applications.FindByID(ctx, applicationID); err != nil {
		return nil, err
	}
	return p.stores.Videos.ListByApplication(ctx, applicationID)
}

func (p *Pipeline) GetAssessment(ctx context.Context, applicationID uint) (*models.Assessment, error) {
	return p.stores.Assessments.FindByApplication(ctx, applicationID)
}

// RecordDecision applies accept, reject or interview. An application whose job or recruiter
// cannot be resolved is a NotFound error.
func (p *Pipeline) RecordDecision(ctx context.Context, applicationID uint, decision string) (*models.Application, error) {
	decision = strings.ToLower(strings.TrimSpace(decision))
	if _, err := repositories.StatusForDecision(decision); err != nil {
		return nil, err
	}
	app, err := p.stores.Applications.RecordDecision(ctx, applicationID, decision)
	if err != nil {
		return nil, err
	}
	p.logger.Info("decision recorded",
		zap.Uint("application_id", applicationID), zap.String("decision", decision), zap.String("status", string(app.Status)))
	return app, nil
}
