package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"recruitflow/assessment-api/internal/apperrors"
	"recruitflow/assessment-api/internal/repositories"
)

// Stores groups the repositories the pipeline reads and writes.
type Stores struct {
	Candidates   repositories.CandidateRepository
	Jobs         repositories.JobRepository
	Applications repositories.ApplicationRepository
	CVs          repositories.CvRepository
	Videos       repositories.VideoRepository
	Assessments  repositories.AssessmentRepository
	Recruiters   repositories.RecruiterRepository
}

type stageRunner struct {
	stores  Stores
	gateway InferenceGateway
	media   MediaFetcher
	logger  *zap.Logger
}

func NewStageRunner(stores Stores, gateway InferenceGateway, media MediaFetcher, logger *zap.Logger) StageRunner {
	return &stageRunner{stores: stores, gateway: gateway, media: media, logger: logger}
}

// cleanExtracted treats placeholder answers from the model as absent.
func cleanExtracted(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "not provided", "n/a", "na", "none", "null":
		return ""
	}
	return v
}

func nilIfEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// RunCVStage downloads and scores the CV. Once a file is local, the CV record and the
// assessment are written on every exit path, panics included.
func (s *stageRunner) RunCVStage(ctx context.Context, applicationID uint, jobDescription string) (err error) {
	log := s.logger.With(zap.Uint("application_id", applicationID), zap.String("stage", "cv"))

	record, err := s.stores.CVs.FindByApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(jobDescription) == "" {
		jobDescription = s.jobDescriptionFor(ctx, applicationID)
	}

	path, err := s.media.Fetch(ctx, record.CvURL, CVFileName(applicationID))
	if err != nil {
		log.Error("cv download failed, leaving record as submitted", zap.Error(err))
		return fmt.Errorf("download cv: %w", err)
	}

	var (
		cvText   string
		keywords = "[]"
		score    *int
		result   *CVAnalysisResult
	)

	defer func() {
		text := cvText
		if strings.TrimSpace(text) == "" {
			text = " "
		}
		if uerr := s.stores.CVs.UpdateAnalysis(ctx, applicationID, text, keywords, score); uerr != nil {
			log.Error("failed to finalize cv record", zap.Error(uerr))
			if err == nil {
				err = uerr
			}
		}
		if result == nil {
			return
		}
		if uerr := s.stores.Assessments.UpsertCVFields(ctx, applicationID, cvAssessmentFields(*result)); uerr != nil {
			log.Error("failed to write cv assessment", zap.Error(uerr))
			if err == nil {
				err = uerr
			}
			return
		}
		s.rollUpScores(ctx, applicationID)
	}()

	analysis := s.gateway.AnalyzeCV(ctx, path, jobDescription)
	result = &analysis
	if analysis.Error != "" {
		log.Warn("cv analysis returned an error", zap.String("error", analysis.Error))
	}

	cvText = analysis.Description
	score = analysis.TotalScore
	if raw, merr := json.Marshal(analysis.MatchingAnalysis); merr == nil {
		keywords = string(raw)
	}

	if app, ferr := s.stores.Applications.FindByID(ctx, applicationID); ferr == nil {
		profile := repositories.CandidateProfile{
			FullName: cleanExtracted(analysis.Name),
			Email:    cleanExtracted(analysis.Email),
			Phone:    cleanExtracted(analysis.PhoneNumber),
			Address:  cleanExtracted(analysis.Address),
		}
		if uerr := s.stores.Candidates.UpdateFromExtraction(ctx, app.CandidateID, profile); uerr != nil {
			log.Warn("failed to update candidate from cv", zap.Error(uerr))
		}
	} else {
		log.Warn("application lookup failed, candidate not updated", zap.Error(ferr))
	}

	log.Info("cv analysis finished", zap.Any("score", score))
	return nil
}

func cvAssessmentFields(r CVAnalysisResult) repositories.CVAssessmentFields {
	fields := repositories.CVAssessmentFields{
		CvScore:          r.TotalScore,
		CvRecommendation: nilIfEmpty(r.Recommendation),
		CvReasonSummary:  nilIfEmpty(r.Description),
	}

	var lines []string
	for _, item := range r.MatchingAnalysis {
		if line := toText(item); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		joined := strings.Join(lines, "\n")
		fields.CvMatchingAnalysis = &joined
	}

	if raw, err := json.Marshal(r.Raw()); err == nil {
		fields.CvJdOutput = datatypes.JSON(raw)
	}
	return fields
}

func (s *stageRunner) jobDescriptionFor(ctx context.Context, applicationID uint) string {
	app, err := s.stores.Applications.FindByID(ctx, applicationID)
	if err != nil {
		return ""
	}
	job, err := s.stores.Jobs.FindByID(ctx, app.JobID)
	if err != nil {
		return ""
	}
	return job.JobDescription
}

// roleFor resolves the job title used as role context. Lookup failures yield "".
func (s *stageRunner) roleFor(ctx context.Context, applicationID uint) string {
	app, err := s.stores.Applications.FindByID(ctx, applicationID)
	if err != nil {
		return ""
	}
	job, err := s.stores.Jobs.FindByID(ctx, app.JobID)
	if err != nil {
		return ""
	}
	return job.Title
}

func (s *stageRunner) RunVideoStage(ctx context.Context, applicationID uint, questionIndex int) error {
	log := s.logger.With(
		zap.Uint("application_id", applicationID),
		zap.Int("question_index", questionIndex),
		zap.String("stage", "video"),
	)

	videos, err := s.stores.Videos.ListByApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	var videoURL, question string
	found := false
	for _, v := range videos {
		if v.QuestionIndex == questionIndex {
			videoURL, question, found = v.VideoURL, v.QuestionText, true
			break
		}
	}
	if !found {
		return apperrors.NotFound("video for application %d question %d not found", applicationID, questionIndex)
	}

	path, err := s.media.Fetch(ctx, videoURL, VideoFileName(applicationID, questionIndex))
	if err != nil {
		log.Error("video download failed", zap.Error(err))
		return fmt.Errorf("download video: %w", err)
	}

	analysis := s.gateway.AnalyzeVideo(ctx, path, s.roleFor(ctx, applicationID), question)
	if analysis.Error != "" {
		log.Warn("video analysis returned an error", zap.String("error", analysis.Error))
		return fmt.Errorf("analyze video: %s", analysis.Error)
	}

	if err := s.stores.Videos.UpdateMetrics(ctx, applicationID, questionIndex, repositories.VideoMetrics{
		Transcript:            analysis.Transcript,
		FacePresenceRatio:     analysis.FacePresenceRatio,
		CameraEngagementRatio: analysis.CameraEngagementRatio,
		YawVariance:           analysis.YawVariance,
		ConfidenceScore:       analysis.ConfidenceScore,
		Clarity:               analysis.Clarity,
		AnswerRelevance:       analysis.Relevance,
		Summary:               analysis.Summary,
	}); err != nil {
		return err
	}

	if err := s.stores.Assessments.UpdateLegacySpeech(ctx, applicationID, repositories.SpeechAssessmentFields{
		ConfidenceScore: analysis.ConfidenceScore,
		Clarity:         analysis.Clarity,
		AnswerRelevance: analysis.Relevance,
		SpeechAnalysis:  analysis.Summary,
	}); err != nil {
		log.Warn("legacy speech update failed", zap.Error(err))
	}

	if analysis.NeedsReview {
		if err := s.stores.Applications.SetNeedsReview(ctx, applicationID, true); err != nil {
			log.Warn("failed to flag application for review", zap.Error(err))
		}
	}

	s.rollUpScores(ctx, applicationID)
	log.Info("video analysis finished", zap.Any("confidence", analysis.ConfidenceScore))
	return nil
}

// rollUpScores recomputes video_score and total_score. Failures are logged; the per-stage
// writes already happened.
func (s *stageRunner) rollUpScores(ctx context.Context, applicationID uint) {
	log := s.logger.With(zap.Uint("application_id", applicationID))

	app, err := s.stores.Applications.FindByID(ctx, applicationID)
	if err != nil {
		log.Warn("score roll-up skipped", zap.Error(err))
		return
	}
	job, err := s.stores.Jobs.FindByID(ctx, app.JobID)
	if err != nil {
		log.Warn("score roll-up skipped", zap.Error(err))
		return
	}
	videos, err := s.stores.Videos.ListByApplication(ctx, applicationID)
	if err != nil {
		log.Warn("score roll-up skipped", zap.Error(err))
		return
	}

	var confidences []int
	for _, v := range videos {
		if v.ConfidenceScore != nil {
			confidences = append(confidences, *v.ConfidenceScore)
		}
	}

	var cvScore *int
	if assessment, err := s.stores.Assessments.FindByApplication(ctx, applicationID); err == nil {
		cvScore = assessment.CvScore
	}

	videoScore := MeanScore(confidences)
	total := TotalScore(cvScore, videoScore, job.CVScoreWeightage, job.VideoScoreWeightage)
	if err := s.stores.Assessments.UpdateScores(ctx, applicationID, videoScore, total); err != nil {
		log.Warn("failed to write rolled-up scores", zap.Error(err))
	}
}

// MeanScore is the rounded mean, or nil for no scores.
func MeanScore(scores []int) *int {
	if len(scores) == 0 {
		return nil
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	mean := int(math.Round(float64(sum) / float64(len(scores))))
	return &mean
}

// TotalScore weights the CV and video scores by the job's weightage. With only one side
// present that side is the total.
func TotalScore(cvScore, videoScore *int, cvWeight, videoWeight int) *int {
	switch {
	case cvScore != nil && videoScore != nil:
		total := int(math.Round(float64(*cvScore*cvWeight+*videoScore*videoWeight) / 100))
		return &total
	case cvScore != nil:
		v := *cvScore
		return &v
	case videoScore != nil:
		v := *videoScore
		return &v
	}
	return nil
}
