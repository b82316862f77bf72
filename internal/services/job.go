package services

import (
	"context"

	"github.com/dbpilot/dbpilot/internal/db/models"
	"github.com/dbpilot/dbpilot/internal/db/repos"
)

// Job provides the read and control surface over the job store
type Job struct {
	repo *repos.JobRepository
}

// NewJobService creates a new job service instance
func NewJobService(repo *repos.JobRepository) *Job {
	return &Job{repo: repo}
}

// List retrieves jobs, optionally filtered by status
func (s *Job) List(ctx context.Context, status models.JobStatus, opts *models.ListOptions) ([]models.Job, error) {
	return s.repo.List(ctx, status, opts)
}

// Get retrieves a job by ID
func (s *Job) Get(ctx context.Context, id uint) (*models.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// Stats returns the per-status job counts
func (s *Job) Stats(ctx context.Context) (map[models.JobStatus]int64, error) {
	return s.repo.Stats(ctx)
}

// Cancel aborts a non-terminal job
func (s *Job) Cancel(ctx context.Context, id uint) (*models.Job, error) {
	return s.repo.Cancel(ctx, id)
}

// Retry resets a failed or canceled job to pending
func (s *Job) Retry(ctx context.Context, id uint) (*models.Job, error) {
	return s.repo.Retry(ctx, id)
}
