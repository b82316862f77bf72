package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dbpilot/dbpilot/internal/db/models"
	"github.com/dbpilot/dbpilot/internal/services"
)

// JobHandler handles HTTP requests for job operations
type JobHandler struct {
	service *services.Job
}

// NewJobHandler creates a new job handler instance
func NewJobHandler(s *services.Job) *JobHandler {
	return &JobHandler{service: s}
}

// List handles the request to list jobs
func (h *JobHandler) List(c *fiber.Ctx) error {
	var status models.JobStatus
	if raw := c.Query("status"); raw != "" {
		status = models.JobStatus(raw)
	}

	jobs, err := h.service.List(c.Context(), status, listOptions(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
	}
	return c.JSON(ok(jobs))
}

// Get handles the request to fetch one job
func (h *JobHandler) Get(c *fiber.Ctx) error {
	id, valid := parseIDParam(c)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid job id"))
	}

	job, err := h.service.Get(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
	}
	if job == nil {
		return c.Status(fiber.StatusNotFound).JSON(errNotFound("job not found"))
	}
	return c.JSON(ok(job))
}

// Stats handles the request for per-status job counts
func (h *JobHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
	}
	return c.JSON(ok(stats))
}

// Cancel handles the request to abort a job
func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	id, valid := parseIDParam(c)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid job id"))
	}

	job, err := h.service.Cancel(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(err.Error()))
	}
	if job == nil {
		return c.Status(fiber.StatusNotFound).JSON(errNotFound("job not found"))
	}
	return c.JSON(ok(job))
}

// Retry handles the request to reset a failed or canceled job
func (h *JobHandler) Retry(c *fiber.Ctx) error {
	id, valid := parseIDParam(c)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid job id"))
	}

	job, err := h.service.Retry(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(err.Error()))
	}
	if job == nil {
		return c.Status(fiber.StatusNotFound).JSON(errNotFound("job not found"))
	}
	return c.JSON(ok(job))
}
