package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// EventSeverity represents how serious a timeline event is
type EventSeverity string

// Event severity constants
const (
	// SeverityInfo marks routine lifecycle events
	SeverityInfo EventSeverity = "info"
	// SeverityWarning marks events that may need attention
	SeverityWarning EventSeverity = "warning"
	// SeverityError marks failed operations
	SeverityError EventSeverity = "error"
)

// Timeline event types
const (
	// EventClusterReady is recorded when a cluster becomes reachable
	EventClusterReady = "CLUSTER_READY"
	// EventClusterResized is recorded when a cluster changes tier
	EventClusterResized = "CLUSTER_RESIZED"
	// EventClusterDeleted is recorded when a cluster is torn down
	EventClusterDeleted = "CLUSTER_DELETED"
	// EventClusterPaused is recorded when a cluster is scaled to zero
	EventClusterPaused = "CLUSTER_PAUSED"
	// EventClusterResumed is recorded when a paused cluster is scaled back up
	EventClusterResumed = "CLUSTER_RESUMED"
	// EventBackupRestoreCompleted is recorded when a restore finishes
	EventBackupRestoreCompleted = "BACKUP_RESTORE_COMPLETED"
	// EventClusterOperationFailed is recorded when a job exhausts its retries
	EventClusterOperationFailed = "CLUSTER_OPERATION_FAILED"
)

// Event is an entry on a tenant-visible timeline
type Event struct {
	gorm.Model
	OrgID     uint          `json:"org_id" gorm:"not null; index"`
	ProjectID uint          `json:"project_id,omitempty" gorm:"index"`
	ClusterID uint          `json:"cluster_id,omitempty" gorm:"index"`
	Type      string        `json:"type" gorm:"not null; index"`
	Severity  EventSeverity `json:"severity" gorm:"not null"`
	Message   string        `json:"message" gorm:"type:text"`
	Metadata  JSONMap       `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time     `json:"created_at" gorm:"index"`
}

// BeforeCreate is a GORM hook that runs before creating a new event
func (e *Event) BeforeCreate(_ *gorm.DB) error {
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	if e.Type == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	return nil
}
