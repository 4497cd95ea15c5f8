package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"recruitflow/assessment-api/internal/models"
	"recruitflow/assessment-api/internal/services"
)

type RecruiterHandler struct {
	jobs     *services.JobService
	pipeline *services.Pipeline
}

func NewRecruiterHandler(jobs *services.JobService, pipeline *services.Pipeline) *RecruiterHandler {
	return &RecruiterHandler{
		jobs:     jobs,
		pipeline: pipeline,
	}
}

func (h *RecruiterHandler) Register(router fiber.Router) {
	router.Post("/jobs", h.HandleCreateJob)
	router.Get("/jobs", h.HandleListJobs)
	router.Get("/jobs/:id", h.HandleGetJob)
	router.Put("/jobs/:id", h.HandleUpdateJob)
	router.Patch("/jobs/:id/status", h.HandleUpdateJobStatus)
	router.Delete("/jobs/:id", h.HandleDeleteJob)
	router.Get("/jobs/:id/applicants", h.HandleListApplicants)

	router.Get("/applications/:id/assessment", h.HandleGetAssessment)
	router.Get("/applications/:id/videos", h.HandleListVideos)
	router.Post("/applications/:id/decision", h.HandleDecision)
}

// HandleCreateJob handles POST /recruiter/jobs
func (h *RecruiterHandler) HandleCreateJob(c *fiber.Ctx) error {
	var req models.JobRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	job, err := h.jobs.CreateJob(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(job)
}

// HandleListJobs handles GET /recruiter/jobs?recruiter_id=
func (h *RecruiterHandler) HandleListJobs(c *fiber.Ctx) error {
	recruiterID, err := strconv.ParseUint(c.Query("recruiter_id"), 10, 64)
	if err != nil {
		return badRequest(c, "recruiter_id is required")
	}

	jobs, err := h.jobs.ListJobsForRecruiter(c.UserContext(), uint(recruiterID))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(jobs)
}

func (h *RecruiterHandler) HandleGetJob(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	job, err := h.jobs.GetJob(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(job)
}

// HandleUpdateJob handles PUT /recruiter/jobs/:id. The question list is replaced as a whole.
func (h *RecruiterHandler) HandleUpdateJob(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.JobRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	job, err := h.jobs.UpdateJob(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(job)
}

func (h *RecruiterHandler) HandleUpdateJobStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.JobStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	job, err := h.jobs.UpdateJobStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(job)
}

func (h *RecruiterHandler) HandleDeleteJob(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.jobs.DeleteJob(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleListApplicants handles GET /recruiter/jobs/:id/applicants
func (h *RecruiterHandler) HandleListApplicants(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	rows, err := h.jobs.ListApplicants(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// HandleGetAssessment handles GET /recruiter/applications/:id/assessment
func (h *RecruiterHandler) HandleGetAssessment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	assessment, err := h.pipeline.GetAssessment(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(assessment)
}

func (h *RecruiterHandler) HandleListVideos(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	videos, err := h.pipeline.ListVideos(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(videos)
}

// HandleDecision handles POST /recruiter/applications/:id/decision with accept, reject or
// interview.
func (h *RecruiterHandler) HandleDecision(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	app, err := h.pipeline.RecordDecision(c.UserContext(), id, req.Decision)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"application_id": app.ID,
		"status":         app.Status,
	})
}
