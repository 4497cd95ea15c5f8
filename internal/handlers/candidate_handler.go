package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"recruitflow/assessment-api/internal/models"
	"recruitflow/assessment-api/internal/services"
)

// CandidateHandler serves the candidate flow: pick a job, submit a CV, review the extracted
// profile, then answer the interview questions on video.
type CandidateHandler struct {
	pipeline *services.Pipeline
	jobs     *services.JobService
	logger   *zap.Logger
}

func NewCandidateHandler(pipeline *services.Pipeline, jobs *services.JobService, logger *zap.Logger) *CandidateHandler {
	return &CandidateHandler{
		pipeline: pipeline,
		jobs:     jobs,
		logger:   logger,
	}
}

func (h *CandidateHandler) Register(router fiber.Router) {
	router.Get("/jobs", h.HandleListJobs)
	router.Get("/jobs/:id/questions", h.HandleJobQuestions)
	router.Post("/select-job", h.HandleSelectJob)
	router.Get("/selected-job", h.HandleSelectedJob)
	router.Post("/cv", h.HandleSubmitCV)
	router.Get("/analysis-status", h.HandleAnalysisStatus)
	router.Get("/overview", h.HandleOverview)
	router.Post("/review", h.HandleReview)
	router.Post("/video", h.HandleSubmitVideo)
	router.Get("/video-progress", h.HandleVideoProgress)
}

// HandleListJobs handles GET /candidate/jobs
func (h *CandidateHandler) HandleListJobs(c *fiber.Ctx) error {
	jobs, err := h.jobs.ListOpenJobs(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(jobs)
}

// HandleJobQuestions handles GET /candidate/jobs/:id/questions
func (h *CandidateHandler) HandleJobQuestions(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	questions, err := h.jobs.QuestionsForJob(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"job_id":    id,
		"questions": questions,
	})
}

// HandleSelectJob handles POST /candidate/select-job
func (h *CandidateHandler) HandleSelectJob(c *fiber.Ctx) error {
	var req models.SelectedJob
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	if err := h.pipeline.SelectJob(c.UserContext(), sessionID(c), req); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "job selected",
		"job_id":  req.JobID,
	})
}

// HandleSelectedJob handles GET /candidate/selected-job
func (h *CandidateHandler) HandleSelectedJob(c *fiber.Ctx) error {
	job, err := h.pipeline.GetSelectedJob(c.UserContext(), sessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"selected_job": job})
}

// HandleSubmitCV handles POST /candidate/cv. Analysis runs in the background; poll
// /candidate/analysis-status for completion.
func (h *CandidateHandler) HandleSubmitCV(c *fiber.Ctx) error {
	var req models.CVURLRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	submission, err := h.pipeline.SubmitCV(c.UserContext(), sessionID(c), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(submission)
}

// HandleAnalysisStatus handles GET /candidate/analysis-status
func (h *CandidateHandler) HandleAnalysisStatus(c *fiber.Ctx) error {
	status, err := h.pipeline.AnalysisStatus(c.UserContext(), sessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

// HandleOverview handles GET /candidate/overview
func (h *CandidateHandler) HandleOverview(c *fiber.Ctx) error {
	overview, err := h.pipeline.CandidateOverview(c.UserContext(), sessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(overview)
}

// HandleReview handles POST /candidate/review
func (h *CandidateHandler) HandleReview(c *fiber.Ctx) error {
	var req models.ReviewInfoRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	if err := h.pipeline.SubmitReview(c.UserContext(), sessionID(c), req); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "candidate info updated"})
}

// HandleSubmitVideo handles POST /candidate/video
func (h *CandidateHandler) HandleSubmitVideo(c *fiber.Ctx) error {
	var req models.VideoURLRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	result, err := h.pipeline.SubmitVideo(c.UserContext(), sessionID(c), req)
	if err != nil {
		return respondError(c, err)
	}

	h.logger.Debug("video accepted",
		zap.Uint("application_id", result.ApplicationID), zap.Int("question_index", result.QuestionIndex))
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleVideoProgress handles GET /candidate/video-progress
func (h *CandidateHandler) HandleVideoProgress(c *fiber.Ctx) error {
	progress, err := h.pipeline.SessionVideoProgress(c.UserContext(), sessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(progress)
}
