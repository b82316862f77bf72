// Package routes wires the v1 API routes to their handlers
package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dbpilot/dbpilot/internal/api/v1/handlers"
)

// SetupRoutes configures all the v1 routes
func SetupRoutes(router fiber.Router, clusters *handlers.ClusterHandler, jobs *handlers.JobHandler) {
	clusterGroup := router.Group("/clusters")
	clusterGroup.Post("/", clusters.Create)
	clusterGroup.Get("/", clusters.List)
	clusterGroup.Get("/:id", clusters.Get)
	clusterGroup.Delete("/:id", clusters.Delete)
	clusterGroup.Post("/:id/resize", clusters.Resize)
	clusterGroup.Post("/:id/pause", clusters.Pause)
	clusterGroup.Post("/:id/resume", clusters.Resume)
	clusterGroup.Post("/:id/backup", clusters.Backup)
	clusterGroup.Get("/:id/backups", clusters.ListBackups)
	clusterGroup.Get("/:id/events", clusters.Events)

	backupGroup := router.Group("/backups")
	backupGroup.Post("/:id/restore", clusters.Restore)

	jobGroup := router.Group("/jobs")
	jobGroup.Get("/", jobs.List)
	jobGroup.Get("/stats", jobs.Stats)
	jobGroup.Get("/:id", jobs.Get)
	jobGroup.Post("/:id/cancel", jobs.Cancel)
	jobGroup.Post("/:id/retry", jobs.Retry)
}

// Register registers the v1 routes under /api/v1
func Register(app *fiber.App, clusters *handlers.ClusterHandler, jobs *handlers.JobHandler) {
	v1Group := app.Group("/api/v1")
	SetupRoutes(v1Group, clusters, jobs)
}
