// Package orchestrator translates cluster intents into Kubernetes operations.
//
// Two deployment strategies exist: operator-managed replica sets (a
// MongoDBCommunity custom resource owned by the community operator) for tiers
// that need multi-member consensus, and a plain statefulset with a headless
// service for single-node tiers. The strategy is derived from the plan
// profile, never stored.
//
// When no cluster credentials are available, or the connectivity probe fails,
// the package falls back to a simulated implementation that returns synthetic
// results after a short delay. Both implementations satisfy the same
// interface; callers never branch on the mode.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/dbpilot/dbpilot/internal/db/models"
	"github.com/dbpilot/dbpilot/internal/logger"
)

// MongoPort is the port every managed cluster listens on
const MongoPort = 27017

// PhaseNotFound is the normalized phase reported when neither a custom
// resource nor a workload exists for a cluster
const PhaseNotFound = "NotFound"

// Mode identifies how orchestration calls are executed
type Mode string

// Execution modes
const (
	// ModeLive executes against a reachable Kubernetes API
	ModeLive Mode = "live"
	// ModeSimulated short-circuits every mutation with synthetic results
	ModeSimulated Mode = "simulated"
)

// Config carries the orchestrator configuration
type Config struct {
	// Kubeconfig is the path to a kubeconfig file. Empty means in-cluster.
	Kubeconfig string
	// NamespacePrefix prefixes every per-project namespace name
	NamespacePrefix string
	// BackupVolumeClaim names the PVC mounted by backup and restore jobs
	BackupVolumeClaim string
	// SimulatedDelay is the artificial latency of simulated operations
	SimulatedDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.NamespacePrefix == "" {
		c.NamespacePrefix = "proj-"
	}
	if c.BackupVolumeClaim == "" {
		c.BackupVolumeClaim = "dbpilot-backups"
	}
	if c.SimulatedDelay == 0 {
		c.SimulatedDelay = 500 * time.Millisecond
	}
	return c
}

// ClusterRef identifies a cluster and the project that owns it
type ClusterRef struct {
	ClusterID string
	ProjectID string
}

// ClusterSpec describes a cluster to be created
type ClusterSpec struct {
	ClusterID     string
	ProjectID     string
	Plan          models.PlanTier
	AdminUser     string
	AdminPassword string
}

// Status is the normalized view of a cluster's orchestration-platform state
type Status struct {
	Phase         string `json:"phase"`
	Ready         bool   `json:"ready"`
	Replicas      int32  `json:"replicas"`
	ReadyReplicas int32  `json:"ready_replicas"`
}

// Metrics is the aggregated resource usage of a cluster's pods
type Metrics struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemoryMB   float64 `json:"memory_mb"`
	Pods       int     `json:"pods"`
}

// DatabaseUser describes a database-level user on an operator-managed cluster
type DatabaseUser struct {
	Username string
	Password string
	Roles    []string
}

// Orchestrator performs idempotent operations against the orchestration
// platform
type Orchestrator interface {
	Mode() Mode
	EnsureNamespace(ctx context.Context, projectID string) error
	CreateCluster(ctx context.Context, spec ClusterSpec) (*models.ConnectionInfo, error)
	ResizeCluster(ctx context.Context, ref ClusterRef, oldPlan, newPlan models.PlanTier) error
	DeleteCluster(ctx context.Context, ref ClusterRef) error
	PauseCluster(ctx context.Context, ref ClusterRef) error
	ResumeCluster(ctx context.Context, ref ClusterRef, plan models.PlanTier) error
	CreateDatabaseUser(ctx context.Context, ref ClusterRef, user DatabaseUser) error
	UpdateDatabaseUser(ctx context.Context, ref ClusterRef, user DatabaseUser) error
	DeleteDatabaseUser(ctx context.Context, ref ClusterRef, username string) error
	UpdateNetworkPolicy(ctx context.Context, ref ClusterRef, allowedCIDRs []string) error
	GetClusterStatus(ctx context.Context, ref ClusterRef) (*Status, error)
	CreateBackup(ctx context.Context, ref ClusterRef, backupID string) error
	RestoreBackup(ctx context.Context, ref ClusterRef, backupID string) error
	GetClusterMetrics(ctx context.Context, ref ClusterRef, plan models.PlanTier) (*Metrics, error)
}

// NamespaceName derives the namespace for a project. One namespace per
// project, shared by all of its clusters.
func NamespaceName(prefix, projectID string) string {
	return strings.ToLower(prefix + projectID)
}

// ResourceName derives the orchestration resource name for a cluster
func ResourceName(clusterID string) string {
	return strings.ToLower("mongo-" + clusterID)
}

// ServiceHost derives the in-cluster DNS name of a cluster's service
func ServiceHost(clusterID, namespace string) string {
	return ResourceName(clusterID) + "-svc." + namespace + ".svc.cluster.local"
}

// New builds an orchestrator. It probes the Kubernetes API once at startup
// and falls back to the simulated implementation when the platform is not
// reachable, so the rest of the system runs unchanged in local development.
func New(cfg Config) Orchestrator {
	cfg = cfg.withDefaults()

	restCfg, err := buildRestConfig(cfg.Kubeconfig)
	if err != nil {
		logger.Warnf("No orchestration credentials available, running in simulated mode: %v", err)
		return newSimulated(cfg)
	}

	clients, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		logger.Warnf("Failed to build Kubernetes client, running in simulated mode: %v", err)
		return newSimulated(cfg)
	}
	dyn, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		logger.Warnf("Failed to build dynamic client, running in simulated mode: %v", err)
		return newSimulated(cfg)
	}
	metrics, err := metricsclient.NewForConfig(restCfg)
	if err != nil {
		logger.Warnf("Failed to build metrics client, running in simulated mode: %v", err)
		return newSimulated(cfg)
	}

	if _, err := clients.Discovery().ServerVersion(); err != nil {
		logger.Warnf("Orchestration connectivity probe failed, running in simulated mode: %v", err)
		return newSimulated(cfg)
	}

	logger.Info("Orchestrator connected to Kubernetes API")
	return newLive(cfg, clients, dyn, metrics)
}

func buildRestConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	return rest.InClusterConfig()
}
