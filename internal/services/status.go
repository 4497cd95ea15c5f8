package services

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"recruitflow/assessment-api/internal/models"
	"recruitflow/assessment-api/internal/repositories"
)

// StatusProjector answers the polling questions the candidate UI asks while stages run.
type StatusProjector struct {
	cvRepo       repositories.CvRepository
	appRepo      repositories.ApplicationRepository
	jobRepo      repositories.JobRepository
	videoRepo    repositories.VideoRepository
	fallbackAge  time.Duration
	checkTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

func NewStatusProjector(stores Stores, fallbackAge, checkTimeout time.Duration, logger *zap.Logger) *StatusProjector {
	return &StatusProjector{
		cvRepo:       stores.CVs,
		appRepo:      stores.Applications,
		jobRepo:      stores.Jobs,
		videoRepo:    stores.Videos,
		fallbackAge:  fallbackAge,
		checkTimeout: checkTimeout,
		now:          time.Now,
		logger:       logger,
	}
}

// CVAnalysisPending reports whether the CV stage is still expected to produce results. Store
// errors and timeouts report false so a client never polls forever.
func (p *StatusProjector) CVAnalysisPending(ctx context.Context, applicationID uint) bool {
	ctx, cancel := context.WithTimeout(ctx, p.checkTimeout)
	defer cancel()

	type outcome struct {
		complete bool
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		complete, err := p.cvRepo.IsAnalysisComplete(ctx, applicationID, p.fallbackAge, p.now())
		done <- outcome{complete: complete, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			p.logger.Warn("cv status check failed, reporting not pending",
				zap.Uint("application_id", applicationID), zap.Error(res.err))
			return false
		}
		return !res.complete
	case <-ctx.Done():
		p.logger.Warn("cv status check timed out, reporting not pending",
			zap.Uint("application_id", applicationID), zap.Duration("timeout", p.checkTimeout))
		return false
	}
}

// VideoProgress is the share of the job's questions whose answer has been analyzed.
func (p *StatusProjector) VideoProgress(ctx context.Context, applicationID uint) (models.VideoProgress, error) {
	app, err := p.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return models.VideoProgress{}, err
	}
	total, err := p.jobRepo.CountQuestions(ctx, app.JobID)
	if err != nil {
		return models.VideoProgress{}, err
	}
	if total == 0 {
		return models.VideoProgress{Percent: 100, Complete: true}, nil
	}

	analyzed, err := p.videoRepo.CountAnalyzed(ctx, applicationID)
	if err != nil {
		return models.VideoProgress{}, err
	}
	return ComputeVideoProgress(analyzed, total), nil
}

func ComputeVideoProgress(analyzed, total int64) models.VideoProgress {
	if total <= 0 {
		return models.VideoProgress{Percent: 100, Complete: true}
	}
	percent := int(math.Round(100 * float64(analyzed) / float64(total)))
	if percent > 100 {
		percent = 100
	}
	return models.VideoProgress{Percent: percent, Complete: percent >= 100}
}
