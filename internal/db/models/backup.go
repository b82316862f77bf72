package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BackupStatus represents the current state of a backup
type BackupStatus string

// Backup status constants
const (
	// BackupStatusPending indicates the backup has been requested
	BackupStatusPending BackupStatus = "pending"
	// BackupStatusRunning indicates the dump job has started
	BackupStatusRunning BackupStatus = "running"
	// BackupStatusCompleted indicates the backup finished
	BackupStatusCompleted BackupStatus = "completed"
	// BackupStatusFailed indicates the backup failed
	BackupStatusFailed BackupStatus = "failed"
	// BackupStatusRestored indicates the backup was restored into its cluster
	BackupStatusRestored BackupStatus = "restored"
)

// BackupStats carries the completion statistics of a backup
type BackupStats struct {
	SizeBytes       int64  `json:"size_bytes"`
	CompressedBytes int64  `json:"compressed_bytes"`
	StoragePath     string `json:"storage_path"`
	Databases       int    `json:"databases"`
	Collections     int    `json:"collections"`
	Documents       int64  `json:"documents"`
	Indexes         int    `json:"indexes"`
}

// Backup represents a point-in-time dump of a cluster
type Backup struct {
	gorm.Model
	Slug               string       `json:"slug" gorm:"not null; uniqueIndex"`
	ClusterID          uint         `json:"cluster_id" gorm:"not null; index"`
	Status             BackupStatus `json:"status" gorm:"not null; index"`
	StartedAt          *time.Time   `json:"started_at,omitempty"`
	CompletedAt        *time.Time   `json:"completed_at,omitempty"`
	SizeBytes          int64        `json:"size_bytes"`
	CompressedBytes    int64        `json:"compressed_bytes"`
	StoragePath        string       `json:"storage_path,omitempty" gorm:"type:text"`
	Databases          int          `json:"databases"`
	Collections        int          `json:"collections"`
	Documents          int64        `json:"documents"`
	Indexes            int          `json:"indexes"`
	RestoreCompletedAt *time.Time   `json:"restore_completed_at,omitempty"`
	CreatedAt          time.Time    `json:"created_at" gorm:"index"`
}

// BeforeCreate is a GORM hook that runs before creating a new backup
func (b *Backup) BeforeCreate(_ *gorm.DB) error {
	if b.Slug == "" {
		b.Slug = fmt.Sprintf("bk-%s", uuid.NewString()[:8])
	}
	if b.Status == "" {
		b.Status = BackupStatusPending
	}
	if b.ClusterID == 0 {
		return fmt.Errorf("backup must reference a cluster")
	}
	return nil
}
