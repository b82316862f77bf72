// Package repos handles database operations for the control plane models
package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dbpilot/dbpilot/internal/db/models"
)

// JobRepository is the durable store for cluster-operation jobs. State
// transitions that race with other claimants (Start in particular) are
// expressed as conditional updates so a missed claim is observable rather
// than silently double-executed.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository instance
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create persists a new job. Jobs always begin pending with zero attempts;
// callers are responsible for not enqueueing duplicate work against the same
// cluster.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	job.Status = models.JobStatusPending
	job.Attempts = 0
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves a job by its ID. Returns (nil, nil) when no such job exists.
func (r *JobRepository) GetByID(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).First(&job, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// FindPending returns up to limit pending jobs in strict creation order
func (r *JobRepository) FindPending(ctx context.Context, limit int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where(&models.Job{Status: models.JobStatusPending}).
		Order(models.JobCreatedAtField + " ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	return jobs, nil
}

// List returns jobs, optionally filtered by status, newest first
func (r *JobRepository) List(ctx context.Context, status models.JobStatus, opts *models.ListOptions) ([]models.Job, error) {
	var jobs []models.Job
	query := r.db.WithContext(ctx).Model(&models.Job{})
	if status != "" {
		query = query.Where(&models.Job{Status: status})
	}
	if opts != nil {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}
	err := query.Order(models.JobCreatedAtField + " DESC").Find(&jobs).Error
	return jobs, err
}

// Start claims a pending job: it atomically flips the status to in_progress,
// stamps started_at and increments attempts by exactly one. The conditional
// WHERE clause makes the claim safe against a concurrent claimant. Returns
// (nil, nil) when the job does not exist or was not pending.
func (r *JobRepository) Start(ctx context.Context, id uint) (*models.Job, error) {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, models.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     models.JobStatusInProgress,
			"started_at": time.Now(),
			"attempts":   gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to start job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// Complete marks a job successful and stores its result
func (r *JobRepository) Complete(ctx context.Context, id uint, result models.JSONMap) (*models.Job, error) {
	job, err := r.GetByID(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).Model(job).Updates(map[string]interface{}{
		"status":       models.JobStatusSuccess,
		"result":       result,
		"completed_at": time.Now(),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to complete job: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Fail records a failed attempt. While the retry budget lasts and shouldRetry
// is set, the job goes back to pending to be re-claimed on a later tick; once
// attempts have reached max_attempts it becomes terminally failed.
func (r *JobRepository) Fail(ctx context.Context, id uint, jobErr string, shouldRetry bool) (*models.Job, error) {
	job, err := r.GetByID(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}

	updates := map[string]interface{}{"last_error": jobErr}
	if shouldRetry && job.Attempts < job.MaxAttempts {
		updates["status"] = models.JobStatusPending
	} else {
		updates["status"] = models.JobStatusFailed
		updates["completed_at"] = time.Now()
	}

	if err := r.db.WithContext(ctx).Model(job).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to fail job: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Cancel aborts a job that has not reached a terminal state
func (r *JobRepository) Cancel(ctx context.Context, id uint) (*models.Job, error) {
	job, err := r.GetByID(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, fmt.Errorf("cannot cancel job %d in terminal status %s", id, job.Status)
	}
	err = r.db.WithContext(ctx).Model(job).Updates(map[string]interface{}{
		"status":       models.JobStatusCanceled,
		"completed_at": time.Now(),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to cancel job: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Retry resets a failed or canceled job to pending with a fresh retry budget
// and a cleared error
func (r *JobRepository) Retry(ctx context.Context, id uint) (*models.Job, error) {
	job, err := r.GetByID(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	if job.Status != models.JobStatusFailed && job.Status != models.JobStatusCanceled {
		return nil, fmt.Errorf("cannot retry job %d in status %s", id, job.Status)
	}
	err = r.db.WithContext(ctx).Model(job).Updates(map[string]interface{}{
		"status":       models.JobStatusPending,
		"attempts":     0,
		"last_error":   "",
		"completed_at": nil,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retry job: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Stats returns the number of jobs per status. Every known status appears in
// the result, defaulting to zero.
func (r *JobRepository) Stats(ctx context.Context) (map[models.JobStatus]int64, error) {
	type row struct {
		Status models.JobStatus
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate job stats: %w", err)
	}

	stats := make(map[models.JobStatus]int64, len(models.AllJobStatuses))
	for _, s := range models.AllJobStatuses {
		stats[s] = 0
	}
	for _, r := range rows {
		stats[r.Status] = r.Count
	}
	return stats, nil
}
