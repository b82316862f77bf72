package services

import (
	"context"
	"fmt"

	"github.com/dbpilot/dbpilot/internal/db/models"
	"github.com/dbpilot/dbpilot/internal/db/repos"
)

// Cluster handles cluster-facing operations: it owns the cluster records and
// enqueues the jobs that carry out each lifecycle intent
type Cluster struct {
	clusters *repos.ClusterRepository
	backups  *repos.BackupRepository
	jobs     *repos.JobRepository
	events   *repos.EventRepository
}

// NewClusterService creates a new cluster service instance
func NewClusterService(clusters *repos.ClusterRepository, backups *repos.BackupRepository, jobs *repos.JobRepository, events *repos.EventRepository) *Cluster {
	return &Cluster{
		clusters: clusters,
		backups:  backups,
		jobs:     jobs,
		events:   events,
	}
}

// CreateClusterRequest describes a cluster to be provisioned
type CreateClusterRequest struct {
	Name         string          `json:"name"`
	OrgID        uint            `json:"org_id"`
	ProjectID    uint            `json:"project_id"`
	ProjectSlug  string          `json:"project_slug"`
	Plan         models.PlanTier `json:"plan"`
	ContactEmail string          `json:"contact_email,omitempty"`
}

// Create persists the cluster record and enqueues its provisioning job
func (s *Cluster) Create(ctx context.Context, req CreateClusterRequest) (*models.Cluster, *models.Job, error) {
	cluster := &models.Cluster{
		Name:         req.Name,
		OrgID:        req.OrgID,
		ProjectID:    req.ProjectID,
		ProjectSlug:  req.ProjectSlug,
		Plan:         req.Plan,
		ContactEmail: req.ContactEmail,
	}
	if err := s.clusters.Create(ctx, cluster); err != nil {
		return nil, nil, err
	}

	job, err := s.enqueue(ctx, models.JobTypeCreateCluster, cluster, nil)
	if err != nil {
		return nil, nil, err
	}
	return cluster, job, nil
}

// Get retrieves a cluster by ID
func (s *Cluster) Get(ctx context.Context, id uint) (*models.Cluster, error) {
	return s.clusters.GetByID(ctx, id)
}

// List retrieves clusters with pagination
func (s *Cluster) List(ctx context.Context, projectID uint, opts *models.ListOptions) ([]models.Cluster, error) {
	return s.clusters.List(ctx, projectID, opts)
}

// Events retrieves the timeline of a cluster
func (s *Cluster) Events(ctx context.Context, clusterID uint, opts *models.ListOptions) ([]models.Event, error) {
	return s.events.ListByCluster(ctx, clusterID, opts)
}

// Resize enqueues a resize to the given tier
func (s *Cluster) Resize(ctx context.Context, id uint, plan models.PlanTier) (*models.Job, error) {
	if _, err := models.ProfileFor(plan); err != nil {
		return nil, err
	}
	cluster, err := s.clusters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cluster.Plan == plan {
		return nil, fmt.Errorf("cluster %d is already on tier %s", id, plan)
	}
	return s.enqueue(ctx, models.JobTypeResizeCluster, cluster, models.JSONMap{"plan": string(plan)})
}

// Delete flags the cluster as deleting and enqueues its teardown job
func (s *Cluster) Delete(ctx context.Context, id uint) (*models.Job, error) {
	cluster, err := s.clusters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.clusters.UpdateStatus(ctx, cluster.ID, models.ClusterStatusDeleting, nil); err != nil {
		return nil, err
	}
	return s.enqueue(ctx, models.JobTypeDeleteCluster, cluster, nil)
}

// Pause enqueues a pause, carrying an optional human-supplied reason
func (s *Cluster) Pause(ctx context.Context, id uint, reason string) (*models.Job, error) {
	cluster, err := s.clusters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cluster.Paused {
		return nil, fmt.Errorf("cluster %d is already paused", id)
	}
	var payload models.JSONMap
	if reason != "" {
		payload = models.JSONMap{"reason": reason}
	}
	return s.enqueue(ctx, models.JobTypePauseCluster, cluster, payload)
}

// Resume enqueues a resume back onto the cluster's own tier
func (s *Cluster) Resume(ctx context.Context, id uint, reason string) (*models.Job, error) {
	cluster, err := s.clusters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cluster.Paused {
		return nil, fmt.Errorf("cluster %d is not paused", id)
	}
	payload := models.JSONMap{"plan": string(cluster.Plan)}
	if reason != "" {
		payload["reason"] = reason
	}
	return s.enqueue(ctx, models.JobTypeResumeCluster, cluster, payload)
}

// Backup creates a backup record and enqueues the dump job
func (s *Cluster) Backup(ctx context.Context, id uint) (*models.Backup, *models.Job, error) {
	cluster, err := s.clusters.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	backup := &models.Backup{ClusterID: cluster.ID}
	if err := s.backups.Create(ctx, backup); err != nil {
		return nil, nil, err
	}

	job, err := s.enqueue(ctx, models.JobTypeBackupCluster, cluster, models.JSONMap{"backup_id": backup.ID})
	if err != nil {
		return nil, nil, err
	}
	return backup, job, nil
}

// Restore enqueues a restore of the given backup into its cluster
func (s *Cluster) Restore(ctx context.Context, backupID uint) (*models.Job, error) {
	backup, err := s.backups.GetByID(ctx, backupID)
	if err != nil {
		return nil, err
	}
	if backup.Status != models.BackupStatusCompleted && backup.Status != models.BackupStatusRestored {
		return nil, fmt.Errorf("backup %d is not restorable in status %s", backupID, backup.Status)
	}
	cluster, err := s.clusters.GetByID(ctx, backup.ClusterID)
	if err != nil {
		return nil, err
	}
	return s.enqueue(ctx, models.JobTypeRestoreCluster, cluster, models.JSONMap{"backup_id": backup.ID})
}

// Backups retrieves the backups of a cluster
func (s *Cluster) Backups(ctx context.Context, clusterID uint, opts *models.ListOptions) ([]models.Backup, error) {
	return s.backups.ListByCluster(ctx, clusterID, opts)
}

func (s *Cluster) enqueue(ctx context.Context, jobType models.JobType, cluster *models.Cluster, payload models.JSONMap) (*models.Job, error) {
	job := &models.Job{
		Type:            jobType,
		TargetClusterID: cluster.ID,
		TargetProjectID: cluster.ProjectID,
		TargetOrgID:     cluster.OrgID,
		Payload:         payload,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}
