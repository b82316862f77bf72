package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClusterStatus represents the current state of a cluster
type ClusterStatus string

// Cluster status constants
const (
	// ClusterStatusProvisioning indicates the cluster is being created
	ClusterStatusProvisioning ClusterStatus = "provisioning"
	// ClusterStatusReady indicates the cluster is serving traffic
	ClusterStatusReady ClusterStatus = "ready"
	// ClusterStatusFailed indicates a lifecycle operation exhausted its retries
	ClusterStatusFailed ClusterStatus = "failed"
	// ClusterStatusPaused indicates the cluster is scaled to zero
	ClusterStatusPaused ClusterStatus = "paused"
	// ClusterStatusDeleting indicates the cluster is being torn down
	ClusterStatusDeleting ClusterStatus = "deleting"
)

// ConnectionInfo carries the connection coordinates returned by the
// orchestration layer once a cluster is reachable
type ConnectionInfo struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	ReplicaSet string `json:"replica_set,omitempty"`
	URI        string `json:"uri,omitempty"`
}

// Cluster represents a logical managed database deployment owned by a project
type Cluster struct {
	gorm.Model
	Name         string        `json:"name" gorm:"not null; index"`
	Slug         string        `json:"slug" gorm:"not null; uniqueIndex"`
	OrgID        uint          `json:"org_id" gorm:"not null; index"`
	ProjectID    uint          `json:"project_id" gorm:"not null; index"`
	ProjectSlug  string        `json:"project_slug" gorm:"not null; index"`
	Plan         PlanTier      `json:"plan" gorm:"not null"`
	Status       ClusterStatus `json:"status" gorm:"not null; index"`
	Host         string        `json:"host,omitempty"`
	Port         int           `json:"port,omitempty"`
	ReplicaSet   string        `json:"replica_set,omitempty"`
	URI          string        `json:"uri,omitempty" gorm:"type:text"`
	Paused       bool          `json:"paused" gorm:"not null;default:false"`
	PausedAt     *time.Time    `json:"paused_at,omitempty"`
	ContactEmail string        `json:"contact_email,omitempty"`
	CreatedAt    time.Time     `json:"created_at" gorm:"index"`
}

// Validate ensures that the cluster data is valid
func (c *Cluster) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("cluster name cannot be empty")
	}
	if c.ProjectID == 0 {
		return fmt.Errorf("cluster must belong to a project")
	}
	if _, err := ProfileFor(c.Plan); err != nil {
		return err
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new cluster
func (c *Cluster) BeforeCreate(_ *gorm.DB) error {
	if c.Slug == "" {
		c.Slug = fmt.Sprintf("c-%s", uuid.NewString()[:8])
	}
	if c.Status == "" {
		c.Status = ClusterStatusProvisioning
	}
	return c.Validate()
}
