package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dbpilot/dbpilot/internal/db/models"
)

// ClusterRepository handles database operations for clusters
type ClusterRepository struct {
	db *gorm.DB
}

// NewClusterRepository creates a new cluster repository instance
func NewClusterRepository(db *gorm.DB) *ClusterRepository {
	return &ClusterRepository{db: db}
}

// Create creates a new cluster in the database
func (r *ClusterRepository) Create(ctx context.Context, cluster *models.Cluster) error {
	return r.db.WithContext(ctx).Create(cluster).Error
}

// GetByID retrieves a cluster by its ID
func (r *ClusterRepository) GetByID(ctx context.Context, id uint) (*models.Cluster, error) {
	var cluster models.Cluster
	err := r.db.WithContext(ctx).First(&cluster, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cluster not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster: %w", err)
	}
	return &cluster, nil
}

// GetBySlug retrieves a cluster by its slug
func (r *ClusterRepository) GetBySlug(ctx context.Context, slug string) (*models.Cluster, error) {
	var cluster models.Cluster
	err := r.db.WithContext(ctx).Where(&models.Cluster{Slug: slug}).First(&cluster).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster by slug: %w", err)
	}
	return &cluster, nil
}

// List retrieves clusters, optionally scoped to a project, with pagination
func (r *ClusterRepository) List(ctx context.Context, projectID uint, opts *models.ListOptions) ([]models.Cluster, error) {
	var clusters []models.Cluster
	query := r.db.WithContext(ctx).Model(&models.Cluster{})
	if projectID != 0 {
		query = query.Where(&models.Cluster{ProjectID: projectID})
	}
	if opts != nil {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}
	err := query.Order("created_at DESC").Find(&clusters).Error
	return clusters, err
}

// UpdateStatus updates the status of a cluster, optionally recording the
// connection coordinates that came back from the orchestration layer
func (r *ClusterRepository) UpdateStatus(ctx context.Context, id uint, status models.ClusterStatus, conn *models.ConnectionInfo) error {
	updates := map[string]interface{}{"status": status}
	if conn != nil {
		updates["host"] = conn.Host
		updates["port"] = conn.Port
		updates["replica_set"] = conn.ReplicaSet
		updates["uri"] = conn.URI
	}
	return r.db.WithContext(ctx).Model(&models.Cluster{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdatePlan updates the stored plan tier of a cluster
func (r *ClusterRepository) UpdatePlan(ctx context.Context, id uint, plan models.PlanTier) error {
	if _, err := models.ProfileFor(plan); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&models.Cluster{}).
		Where("id = ?", id).
		Update("plan", plan).Error
}

// MarkPaused flags a cluster as paused
func (r *ClusterRepository) MarkPaused(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Cluster{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"paused":    true,
			"paused_at": time.Now(),
			"status":    models.ClusterStatusPaused,
		}).Error
}

// MarkResumed clears the paused flag of a cluster
func (r *ClusterRepository) MarkResumed(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Cluster{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"paused":    false,
			"paused_at": nil,
			"status":    models.ClusterStatusReady,
		}).Error
}

// HardDelete removes a cluster record permanently
func (r *ClusterRepository) HardDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&models.Cluster{}, id).Error
}
