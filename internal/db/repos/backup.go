package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dbpilot/dbpilot/internal/db/models"
)

// BackupRepository handles database operations for backups
type BackupRepository struct {
	db *gorm.DB
}

// NewBackupRepository creates a new backup repository instance
func NewBackupRepository(db *gorm.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// Create creates a new backup record
func (r *BackupRepository) Create(ctx context.Context, backup *models.Backup) error {
	return r.db.WithContext(ctx).Create(backup).Error
}

// GetByID retrieves a backup by its ID
func (r *BackupRepository) GetByID(ctx context.Context, id uint) (*models.Backup, error) {
	var backup models.Backup
	err := r.db.WithContext(ctx).First(&backup, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("backup not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backup: %w", err)
	}
	return &backup, nil
}

// ListByCluster retrieves all backups for a cluster
func (r *BackupRepository) ListByCluster(ctx context.Context, clusterID uint, opts *models.ListOptions) ([]models.Backup, error) {
	var backups []models.Backup
	query := r.db.WithContext(ctx).Where(&models.Backup{ClusterID: clusterID})
	if opts != nil {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}
	err := query.Order("created_at DESC").Find(&backups).Error
	return backups, err
}

// Start marks a backup as running
func (r *BackupRepository) Start(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Backup{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.BackupStatusRunning,
			"started_at": time.Now(),
		}).Error
}

// Complete marks a backup as completed and stores its statistics
func (r *BackupRepository) Complete(ctx context.Context, id uint, stats models.BackupStats) error {
	return r.db.WithContext(ctx).Model(&models.Backup{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           models.BackupStatusCompleted,
			"completed_at":     time.Now(),
			"size_bytes":       stats.SizeBytes,
			"compressed_bytes": stats.CompressedBytes,
			"storage_path":     stats.StoragePath,
			"databases":        stats.Databases,
			"collections":      stats.Collections,
			"documents":        stats.Documents,
			"indexes":          stats.Indexes,
		}).Error
}

// CompleteRestore marks a backup as restored into its cluster
func (r *BackupRepository) CompleteRestore(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Backup{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":               models.BackupStatusRestored,
			"restore_completed_at": time.Now(),
		}).Error
}
