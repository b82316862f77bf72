package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Field names for the job model
const (
	// JobStatusField is the field name for job status
	JobStatusField = "status"
	// JobCreatedAtField is the field name for the job creation timestamp
	JobCreatedAtField = "created_at"
)

// DefaultMaxAttempts is the retry budget assigned to a job unless overridden
const DefaultMaxAttempts = 3

// JobType identifies the cluster lifecycle intent a job carries. The set is
// closed: adding a type requires registering a matching handler.
type JobType string

// Job type constants
const (
	// JobTypeCreateCluster provisions a new cluster
	JobTypeCreateCluster JobType = "create_cluster"
	// JobTypeResizeCluster moves a cluster to a different plan tier
	JobTypeResizeCluster JobType = "resize_cluster"
	// JobTypeDeleteCluster tears a cluster down and removes its record
	JobTypeDeleteCluster JobType = "delete_cluster"
	// JobTypePauseCluster scales a cluster to zero replicas
	JobTypePauseCluster JobType = "pause_cluster"
	// JobTypeResumeCluster scales a paused cluster back to its tier replica count
	JobTypeResumeCluster JobType = "resume_cluster"
	// JobTypeBackupCluster takes a backup of a cluster
	JobTypeBackupCluster JobType = "backup_cluster"
	// JobTypeRestoreCluster restores a cluster from a backup
	JobTypeRestoreCluster JobType = "restore_cluster"
	// JobTypeSyncStatus mirrors the orchestration-platform status onto the cluster record
	JobTypeSyncStatus JobType = "sync_status"
)

// AllJobTypes lists every known job type. The processor validates its
// dispatch table against this slice at construction.
var AllJobTypes = []JobType{
	JobTypeCreateCluster,
	JobTypeResizeCluster,
	JobTypeDeleteCluster,
	JobTypePauseCluster,
	JobTypeResumeCluster,
	JobTypeBackupCluster,
	JobTypeRestoreCluster,
	JobTypeSyncStatus,
}

// ParseJobType converts a string to a JobType
func ParseJobType(str string) (JobType, error) {
	for _, t := range AllJobTypes {
		if str == string(t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid job type: %s", str)
}

// JobStatus represents the current state of a job
type JobStatus string

// Job status constants
const (
	// JobStatusPending indicates the job is waiting to be claimed
	JobStatusPending JobStatus = "pending"
	// JobStatusInProgress indicates the job is currently being processed
	JobStatusInProgress JobStatus = "in_progress"
	// JobStatusSuccess indicates the job finished successfully
	JobStatusSuccess JobStatus = "success"
	// JobStatusFailed indicates the job exhausted its retry budget
	JobStatusFailed JobStatus = "failed"
	// JobStatusCanceled indicates the job was canceled before completion
	JobStatusCanceled JobStatus = "canceled"
)

// AllJobStatuses lists every known job status
var AllJobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusInProgress,
	JobStatusSuccess,
	JobStatusFailed,
	JobStatusCanceled,
}

// Terminal reports whether the status is a terminal one
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed || s == JobStatusCanceled
}

// String returns the string representation of the job status
func (s JobStatus) String() string {
	return string(s)
}

// Job represents a durable, retryable unit of deferred work for one cluster
// lifecycle intent
type Job struct {
	gorm.Model
	Type            JobType    `json:"type" gorm:"not null; index"`
	Status          JobStatus  `json:"status" gorm:"not null; index"`
	TargetClusterID uint       `json:"target_cluster_id,omitempty" gorm:"index"`
	TargetProjectID uint       `json:"target_project_id,omitempty" gorm:"index"`
	TargetOrgID     uint       `json:"target_org_id,omitempty" gorm:"index"`
	Payload         JSONMap    `json:"payload,omitempty" gorm:"type:jsonb"`
	Result          JSONMap    `json:"result,omitempty" gorm:"type:jsonb"`
	LastError       string     `json:"last_error,omitempty" gorm:"type:text"`
	Attempts        int        `json:"attempts" gorm:"not null;default:0"`
	MaxAttempts     int        `json:"max_attempts" gorm:"not null;default:3"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at" gorm:"index"`
}

// Validate ensures that the job data is valid
func (j *Job) Validate() error {
	if _, err := ParseJobType(string(j.Type)); err != nil {
		return err
	}
	if j.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive, got %d", j.MaxAttempts)
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new job
func (j *Job) BeforeCreate(_ *gorm.DB) error {
	if j.Status == "" {
		j.Status = JobStatusPending
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = DefaultMaxAttempts
	}
	return j.Validate()
}
