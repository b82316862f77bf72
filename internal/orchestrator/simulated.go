package orchestrator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/dbpilot/dbpilot/internal/db/models"
	"github.com/dbpilot/dbpilot/internal/logger"
)

// simulated short-circuits every orchestration call with deterministic
// synthetic results after a small artificial delay. It lets jobs, billing and
// events be developed and tested without a live platform. Failure is not
// modeled.
type simulated struct {
	cfg Config

	mu   sync.Mutex
	rand *rand.Rand
}

func newSimulated(cfg Config) *simulated {
	return &simulated{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Mode returns the execution mode
func (o *simulated) Mode() Mode {
	return ModeSimulated
}

// delay sleeps for the configured artificial latency, honoring cancellation
func (o *simulated) delay(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(o.cfg.SimulatedDelay):
		return nil
	}
}

// EnsureNamespace simulates namespace creation
func (o *simulated) EnsureNamespace(ctx context.Context, projectID string) error {
	return o.delay(ctx)
}

// CreateCluster simulates cluster creation and returns the fixed host pattern
func (o *simulated) CreateCluster(ctx context.Context, spec ClusterSpec) (*models.ConnectionInfo, error) {
	if err := o.delay(ctx); err != nil {
		return nil, err
	}

	profile, err := models.ProfileFor(spec.Plan)
	if err != nil {
		return nil, err
	}

	ns := NamespaceName(o.cfg.NamespacePrefix, spec.ProjectID)
	conn := &models.ConnectionInfo{
		Host: ServiceHost(spec.ClusterID, ns),
		Port: MongoPort,
	}
	if profile.OperatorManaged() {
		conn.ReplicaSet = ResourceName(spec.ClusterID)
	}
	logger.InfoWithFields("Simulated cluster created", map[string]interface{}{
		"cluster_id": spec.ClusterID,
		"host":       conn.Host,
	})
	return conn, nil
}

// ResizeCluster simulates a resize, enforcing the same strategy-boundary rule
// as the live implementation
func (o *simulated) ResizeCluster(ctx context.Context, ref ClusterRef, oldPlan, newPlan models.PlanTier) error {
	if err := o.delay(ctx); err != nil {
		return err
	}
	oldProfile, err := models.ProfileFor(oldPlan)
	if err != nil {
		return err
	}
	newProfile, err := models.ProfileFor(newPlan)
	if err != nil {
		return err
	}
	if oldProfile.OperatorManaged() != newProfile.OperatorManaged() {
		return ErrUnsupportedResize
	}
	return nil
}

// DeleteCluster simulates cluster deletion
func (o *simulated) DeleteCluster(ctx context.Context, ref ClusterRef) error {
	return o.delay(ctx)
}

// PauseCluster simulates scaling to zero
func (o *simulated) PauseCluster(ctx context.Context, ref ClusterRef) error {
	return o.delay(ctx)
}

// ResumeCluster simulates scaling back up
func (o *simulated) ResumeCluster(ctx context.Context, ref ClusterRef, plan models.PlanTier) error {
	if err := o.delay(ctx); err != nil {
		return err
	}
	_, err := models.ProfileFor(plan)
	return err
}

// CreateDatabaseUser simulates user creation
func (o *simulated) CreateDatabaseUser(ctx context.Context, ref ClusterRef, user DatabaseUser) error {
	return o.delay(ctx)
}

// UpdateDatabaseUser simulates a user update
func (o *simulated) UpdateDatabaseUser(ctx context.Context, ref ClusterRef, user DatabaseUser) error {
	return o.delay(ctx)
}

// DeleteDatabaseUser simulates user removal
func (o *simulated) DeleteDatabaseUser(ctx context.Context, ref ClusterRef, username string) error {
	return o.delay(ctx)
}

// UpdateNetworkPolicy simulates an ingress rule rebuild
func (o *simulated) UpdateNetworkPolicy(ctx context.Context, ref ClusterRef, allowedCIDRs []string) error {
	return o.delay(ctx)
}

// GetClusterStatus reports every simulated cluster as running
func (o *simulated) GetClusterStatus(ctx context.Context, ref ClusterRef) (*Status, error) {
	if err := o.delay(ctx); err != nil {
		return nil, err
	}
	return &Status{Phase: "Running", Ready: true, Replicas: 1, ReadyReplicas: 1}, nil
}

// CreateBackup simulates a dump job
func (o *simulated) CreateBackup(ctx context.Context, ref ClusterRef, backupID string) error {
	return o.delay(ctx)
}

// RestoreBackup simulates a restore job
func (o *simulated) RestoreBackup(ctx context.Context, ref ClusterRef, backupID string) error {
	return o.delay(ctx)
}

// GetClusterMetrics returns randomized but plausible usage numbers
func (o *simulated) GetClusterMetrics(ctx context.Context, ref ClusterRef, plan models.PlanTier) (*Metrics, error) {
	if err := o.delay(ctx); err != nil {
		return nil, err
	}
	profile, err := models.ProfileFor(plan)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	cpu := 5 + o.rand.Float64()*55
	mem := 64 + o.rand.Float64()*192
	o.mu.Unlock()

	return &Metrics{
		CPUPercent: cpu,
		MemoryMB:   mem * float64(profile.Replicas),
		Pods:       int(profile.Replicas),
	}, nil
}
