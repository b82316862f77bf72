package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/dbpilot/dbpilot/internal/db/models"
	"github.com/dbpilot/dbpilot/internal/services"
)

// ClusterHandler handles HTTP requests for cluster operations
type ClusterHandler struct {
	service *services.Cluster
}

// NewClusterHandler creates a new cluster handler instance
func NewClusterHandler(s *services.Cluster) *ClusterHandler {
	return &ClusterHandler{service: s}
}

func parseIDParam(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func listOptions(c *fiber.Ctx) *models.ListOptions {
	return &models.ListOptions{
		Limit:  c.QueryInt("limit", models.DefaultLimit),
		Offset: c.QueryInt("offset", 0),
	}
}

// Create handles the request to provision a new cluster
func (h *ClusterHandler) Create(c *fiber.Ctx) error {
	var req services.CreateClusterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid request body"))
	}

	cluster, job, err := h.service.Create(c.Context(), req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(err.Error()))
	}

	return c.Status(fiber.StatusCreated).JSON(ok(fiber.Map{
		"cluster": cluster,
		"job":     job,
	}))
}

// List handles the request to list clusters
func (h *ClusterHandler) List(c *fiber.Ctx) error {
	projectID := uint(c.QueryInt("project_id", 0))

	clusters, err := h.service.List(c.Context(), projectID, listOptions(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
	}
	return c.JSON(ok(clusters))
}

// Get handles the request to fetch one cluster
func (h *ClusterHandler) Get(c *fiber.Ctx) error {
	id, valid := parseIDParam(c)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid cluster id"))
	}

	cluster, err := h.service.Get(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(errNotFound(err.Error()))
	}
	return c.JSON(ok(cluster))
}

// Delete handles the request to tear a cluster down
func (h *ClusterHandler) Delete(c *fiber.Ctx) error {
	id, valid := parseIDParam(c)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid cluster id"))
	}

	job, err := h.service.Delete(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(errNotFound(err.Error()))
	}
	return c.Status(fiber.StatusAccepted).JSON(ok(job))
}

// Resize handles the request to move a cluster to another tier
func (h *ClusterHandler) Resize(c *fiber.Ctx) error {
	id, valid := parseIDParam(c)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid cluster id"))
	}

	var body struct {
		Plan string `json:"plan"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid request body"))
	}
	plan, err := models.ParsePlanTier(body.Plan)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(err.Error()))
	}

	job, err := h.service.Resize(c.Context(), id, plan)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(err.Error()))
	}
	return c.Status(fiber.StatusAccepted).JSON(ok(job))
}

// Pause handles the request to scale a cluster to zero
func (h *ClusterHandler) Pause(c *fiber.Ctx) error {
	id, valid := parseIDParam(c)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid cluster id"))
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.BodyParser(&body)

	job, err := h.service.Pause(c.Context(), id, body.Reason)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(err.Error()))
	}
	return c.Status(fiber.StatusAccepted).JSON(ok(job))
}

// Resume handles the request to scale a paused cluster back up
func (h *ClusterHandler) Resume(c *fiber.Ctx) error {
	id, valid := parseIDParam(c)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid cluster id"))
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.BodyParser(&body)

	job, err := h.service.Resume(c.Context(), id, body.Reason)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(err.Error()))
	}
	return c.Status(fiber.StatusAccepted).JSON(ok(job))
}

// Backup handles the request to back a cluster up
func (h *ClusterHandler) Backup(c *fiber.Ctx) error {
	id, valid := parseIDParam(c)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid cluster id"))
	}

	backup, job, err := h.service.Backup(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(err.Error()))
	}
	return c.Status(fiber.StatusAccepted).JSON(ok(fiber.Map{
		"backup": backup,
		"job":    job,
	}))
}

// ListBackups handles the request to list a cluster's backups
func (h *ClusterHandler) ListBackups(c *fiber.Ctx) error {
	id, valid := parseIDParam(c)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid cluster id"))
	}

	backups, err := h.service.Backups(c.Context(), id, listOptions(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
	}
	return c.JSON(ok(backups))
}

// Restore handles the request to restore a backup into its cluster
func (h *ClusterHandler) Restore(c *fiber.Ctx) error {
	id, valid := parseIDParam(c)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid backup id"))
	}

	job, err := h.service.Restore(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(err.Error()))
	}
	return c.Status(fiber.StatusAccepted).JSON(ok(job))
}

// Events handles the request to read a cluster's timeline
func (h *ClusterHandler) Events(c *fiber.Ctx) error {
	id, valid := parseIDParam(c)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid cluster id"))
	}

	events, err := h.service.Events(c.Context(), id, listOptions(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
	}
	return c.JSON(ok(events))
}
