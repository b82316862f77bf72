package orchestrator

import (
	"context"
	"fmt"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"

	corev1 "k8s.io/api/core/v1"

	"github.com/dbpilot/dbpilot/internal/db/models"
	"github.com/dbpilot/dbpilot/internal/logger"
)

// live executes orchestration calls against a reachable Kubernetes API
type live struct {
	cfg     Config
	clients kubernetes.Interface
	dynamic dynamic.Interface
	metrics metricsclient.Interface
}

func newLive(cfg Config, clients kubernetes.Interface, dyn dynamic.Interface, metrics metricsclient.Interface) *live {
	return &live{cfg: cfg, clients: clients, dynamic: dyn, metrics: metrics}
}

// Mode returns the execution mode
func (o *live) Mode() Mode {
	return ModeLive
}

func (o *live) namespace(projectID string) string {
	return NamespaceName(o.cfg.NamespacePrefix, projectID)
}

// EnsureNamespace is idempotent: it reads first and only creates the
// namespace plus its RBAC bootstrap when absent
func (o *live) EnsureNamespace(ctx context.Context, projectID string) error {
	ns := o.namespace(projectID)

	_, err := o.clients.CoreV1().Namespaces().Get(ctx, ns, metav1.GetOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return classify("get namespace", err)
	}

	logger.Infof("Creating namespace %s", ns)
	if _, err := o.clients.CoreV1().Namespaces().Create(ctx, buildNamespace(ns), metav1.CreateOptions{}); err != nil {
		if !apierrors.IsAlreadyExists(err) {
			return classify("create namespace", err)
		}
	}

	if _, err := o.clients.CoreV1().ServiceAccounts(ns).Create(ctx, buildServiceAccount(ns), metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
		return classify("create service account", err)
	}
	if _, err := o.clients.RbacV1().Roles(ns).Create(ctx, buildRole(ns), metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
		return classify("create role", err)
	}
	if _, err := o.clients.RbacV1().RoleBindings(ns).Create(ctx, buildRoleBinding(ns), metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
		return classify("create role binding", err)
	}

	return nil
}

// upsertSecret reads first and replaces the secret when present, creates it on 404
func (o *live) upsertSecret(ctx context.Context, namespace string, secret *corev1.Secret) error {
	existing, err := o.clients.CoreV1().Secrets(namespace).Get(ctx, secret.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err = o.clients.CoreV1().Secrets(namespace).Create(ctx, secret, metav1.CreateOptions{})
		return classify("create secret", err)
	}
	if err != nil {
		return classify("get secret", err)
	}

	secret.ResourceVersion = existing.ResourceVersion
	_, err = o.clients.CoreV1().Secrets(namespace).Update(ctx, secret, metav1.UpdateOptions{})
	return classify("update secret", err)
}

// CreateCluster ensures the project namespace, writes the admin credentials
// secret, creates the strategy-appropriate workload and the default network
// policy, and returns the connection coordinates
func (o *live) CreateCluster(ctx context.Context, spec ClusterSpec) (*models.ConnectionInfo, error) {
	profile, err := models.ProfileFor(spec.Plan)
	if err != nil {
		return nil, err
	}
	ns := o.namespace(spec.ProjectID)
	name := ResourceName(spec.ClusterID)

	if err := o.EnsureNamespace(ctx, spec.ProjectID); err != nil {
		return nil, err
	}

	secretName := name + "-admin"
	secret := buildCredentialsSecret(secretName, ns, name, spec.AdminUser, spec.AdminPassword)
	if err := o.upsertSecret(ctx, ns, secret); err != nil {
		return nil, err
	}

	if profile.OperatorManaged() {
		cr := buildMongoCommunityResource(name, ns, profile, secretName, spec.AdminUser)
		_, err := o.dynamic.Resource(mongoCommunityGVR).Namespace(ns).Create(ctx, cr, metav1.CreateOptions{})
		if err != nil && !apierrors.IsAlreadyExists(err) {
			return nil, classify("create mongodb resource", err)
		}
	} else {
		sts := buildStatefulSet(name, ns, profile, secretName)
		if _, err := o.clients.AppsV1().StatefulSets(ns).Create(ctx, sts, metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
			return nil, classify("create statefulset", err)
		}
		svc := buildHeadlessService(name, ns)
		if _, err := o.clients.CoreV1().Services(ns).Create(ctx, svc, metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
			return nil, classify("create service", err)
		}
	}

	if err := o.upsertNetworkPolicy(ctx, ns, name, nil); err != nil {
		return nil, err
	}

	conn := &models.ConnectionInfo{
		Host: ServiceHost(spec.ClusterID, ns),
		Port: MongoPort,
	}
	if profile.OperatorManaged() {
		conn.ReplicaSet = name
		conn.URI = fmt.Sprintf("mongodb+srv://%s-svc.%s.svc.cluster.local", name, ns)
	} else {
		conn.URI = fmt.Sprintf("mongodb://%s:%d", conn.Host, conn.Port)
	}
	return conn, nil
}

// ResizeCluster moves an operator-managed cluster to a new tier by mutating
// member count and container sizing on the custom resource. Resizes that
// would cross the strategy boundary are rejected.
func (o *live) ResizeCluster(ctx context.Context, ref ClusterRef, oldPlan, newPlan models.PlanTier) error {
	oldProfile, err := models.ProfileFor(oldPlan)
	if err != nil {
		return err
	}
	newProfile, err := models.ProfileFor(newPlan)
	if err != nil {
		return err
	}
	if oldProfile.OperatorManaged() != newProfile.OperatorManaged() {
		return fmt.Errorf("%w: %s -> %s", ErrUnsupportedResize, oldPlan, newPlan)
	}
	if !newProfile.OperatorManaged() {
		return fmt.Errorf("%w: single-node tiers cannot be resized in place", ErrUnsupportedResize)
	}

	ns := o.namespace(ref.ProjectID)
	name := ResourceName(ref.ClusterID)

	cr, err := o.dynamic.Resource(mongoCommunityGVR).Namespace(ns).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return classify("get mongodb resource", err)
	}

	if err := unstructured.SetNestedField(cr.Object, int64(newProfile.Replicas), "spec", "members"); err != nil {
		return fmt.Errorf("failed to set member count: %w", err)
	}
	if err := unstructured.SetNestedMap(cr.Object, buildStatefulSetOverlay(newProfile), "spec", "statefulSet"); err != nil {
		return fmt.Errorf("failed to set statefulset overlay: %w", err)
	}

	_, err = o.dynamic.Resource(mongoCommunityGVR).Namespace(ns).Update(ctx, cr, metav1.UpdateOptions{})
	return classify("update mongodb resource", err)
}

// DeleteCluster removes whichever workload exists plus the labeled secrets
// and the network policy. 404s are tolerated as already-deleted.
func (o *live) DeleteCluster(ctx context.Context, ref ClusterRef) error {
	ns := o.namespace(ref.ProjectID)
	name := ResourceName(ref.ClusterID)

	err := o.dynamic.Resource(mongoCommunityGVR).Namespace(ns).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return classify("delete mongodb resource", err)
	}

	err = o.clients.AppsV1().StatefulSets(ns).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return classify("delete statefulset", err)
	}

	err = o.clients.CoreV1().Services(ns).Delete(ctx, name+"-svc", metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return classify("delete service", err)
	}

	err = o.clients.CoreV1().Secrets(ns).DeleteCollection(ctx, metav1.DeleteOptions{}, metav1.ListOptions{
		LabelSelector: clusterSelector(name),
	})
	if err != nil && !apierrors.IsNotFound(err) {
		return classify("delete secrets", err)
	}

	err = o.clients.NetworkingV1().NetworkPolicies(ns).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return classify("delete network policy", err)
	}

	return nil
}

// PauseCluster scales the workload to zero through the scale subresource
func (o *live) PauseCluster(ctx context.Context, ref ClusterRef) error {
	return o.scaleTo(ctx, ref, 0)
}

// ResumeCluster scales the workload back to the tier's replica count
func (o *live) ResumeCluster(ctx context.Context, ref ClusterRef, plan models.PlanTier) error {
	profile, err := models.ProfileFor(plan)
	if err != nil {
		return err
	}
	return o.scaleTo(ctx, ref, profile.Replicas)
}

// scaleTo read-modify-writes the statefulset scale subresource. The operator
// names its statefulset after the custom resource, so the target name is the
// same on both strategies.
func (o *live) scaleTo(ctx context.Context, ref ClusterRef, replicas int32) error {
	ns := o.namespace(ref.ProjectID)
	name := ResourceName(ref.ClusterID)

	scale, err := o.clients.AppsV1().StatefulSets(ns).GetScale(ctx, name, metav1.GetOptions{})
	if err != nil {
		return classify("get scale", err)
	}
	scale.Spec.Replicas = replicas
	_, err = o.clients.AppsV1().StatefulSets(ns).UpdateScale(ctx, name, scale, metav1.UpdateOptions{})
	return classify("update scale", err)
}

// CreateDatabaseUser writes the per-user credentials secret and appends the
// user to the custom resource's user list. Only meaningful on the operator
// strategy.
func (o *live) CreateDatabaseUser(ctx context.Context, ref ClusterRef, user DatabaseUser) error {
	return o.writeDatabaseUser(ctx, ref, user, false)
}

// UpdateDatabaseUser replaces the per-user credentials secret and the user's
// entry in the custom resource's user list
func (o *live) UpdateDatabaseUser(ctx context.Context, ref ClusterRef, user DatabaseUser) error {
	return o.writeDatabaseUser(ctx, ref, user, true)
}

func (o *live) writeDatabaseUser(ctx context.Context, ref ClusterRef, user DatabaseUser, replace bool) error {
	ns := o.namespace(ref.ProjectID)
	name := ResourceName(ref.ClusterID)

	secretName := userSecretName(name, user.Username)
	secret := buildCredentialsSecret(secretName, ns, name, user.Username, user.Password)
	if err := o.upsertSecret(ctx, ns, secret); err != nil {
		return err
	}

	cr, err := o.dynamic.Resource(mongoCommunityGVR).Namespace(ns).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return classify("get mongodb resource", err)
	}

	users, _, err := unstructured.NestedSlice(cr.Object, "spec", "users")
	if err != nil {
		return fmt.Errorf("failed to read user list: %w", err)
	}

	entry := operatorUserEntry(user.Username, secretName, user.Roles)
	replaced := false
	for i, u := range users {
		um, ok := u.(map[string]interface{})
		if !ok {
			continue
		}
		if um["name"] == user.Username {
			users[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		if replace {
			return fmt.Errorf("database user %s not found on cluster %s", user.Username, ref.ClusterID)
		}
		users = append(users, entry)
	}

	if err := unstructured.SetNestedSlice(cr.Object, users, "spec", "users"); err != nil {
		return fmt.Errorf("failed to write user list: %w", err)
	}
	_, err = o.dynamic.Resource(mongoCommunityGVR).Namespace(ns).Update(ctx, cr, metav1.UpdateOptions{})
	return classify("update mongodb resource", err)
}

// DeleteDatabaseUser removes the user's entry from the custom resource and
// deletes its credentials secret
func (o *live) DeleteDatabaseUser(ctx context.Context, ref ClusterRef, username string) error {
	ns := o.namespace(ref.ProjectID)
	name := ResourceName(ref.ClusterID)

	cr, err := o.dynamic.Resource(mongoCommunityGVR).Namespace(ns).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return classify("get mongodb resource", err)
	}

	users, _, err := unstructured.NestedSlice(cr.Object, "spec", "users")
	if err != nil {
		return fmt.Errorf("failed to read user list: %w", err)
	}

	kept := make([]interface{}, 0, len(users))
	for _, u := range users {
		if um, ok := u.(map[string]interface{}); ok && um["name"] == username {
			continue
		}
		kept = append(kept, u)
	}

	if err := unstructured.SetNestedSlice(cr.Object, kept, "spec", "users"); err != nil {
		return fmt.Errorf("failed to write user list: %w", err)
	}
	if _, err := o.dynamic.Resource(mongoCommunityGVR).Namespace(ns).Update(ctx, cr, metav1.UpdateOptions{}); err != nil {
		return classify("update mongodb resource", err)
	}

	err = o.clients.CoreV1().Secrets(ns).Delete(ctx, userSecretName(name, username), metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return classify("delete user secret", err)
	}
	return nil
}

// UpdateNetworkPolicy rebuilds the full ingress rule set for a cluster
func (o *live) UpdateNetworkPolicy(ctx context.Context, ref ClusterRef, allowedCIDRs []string) error {
	ns := o.namespace(ref.ProjectID)
	name := ResourceName(ref.ClusterID)
	return o.upsertNetworkPolicy(ctx, ns, name, allowedCIDRs)
}

func (o *live) upsertNetworkPolicy(ctx context.Context, namespace, name string, allowedCIDRs []string) error {
	policy := buildNetworkPolicy(name, namespace, allowedCIDRs)

	existing, err := o.clients.NetworkingV1().NetworkPolicies(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err = o.clients.NetworkingV1().NetworkPolicies(namespace).Create(ctx, policy, metav1.CreateOptions{})
		return classify("create network policy", err)
	}
	if err != nil {
		return classify("get network policy", err)
	}

	policy.ResourceVersion = existing.ResourceVersion
	_, err = o.clients.NetworkingV1().NetworkPolicies(namespace).Update(ctx, policy, metav1.UpdateOptions{})
	return classify("update network policy", err)
}

// GetClusterStatus reads the operator resource's status first, falls back to
// the plain workload, and reports a normalized NotFound when neither exists
func (o *live) GetClusterStatus(ctx context.Context, ref ClusterRef) (*Status, error) {
	ns := o.namespace(ref.ProjectID)
	name := ResourceName(ref.ClusterID)

	cr, err := o.dynamic.Resource(mongoCommunityGVR).Namespace(ns).Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		phase, _, _ := unstructured.NestedString(cr.Object, "status", "phase")
		if phase == "" {
			phase = "Pending"
		}
		members, _, _ := unstructured.NestedInt64(cr.Object, "spec", "members")
		current, _, _ := unstructured.NestedInt64(cr.Object, "status", "currentMongoDBMembers")
		return &Status{
			Phase:         phase,
			Ready:         phase == "Running",
			Replicas:      int32(members),
			ReadyReplicas: int32(current),
		}, nil
	}
	if !apierrors.IsNotFound(err) {
		return nil, classify("get mongodb resource", err)
	}

	sts, err := o.clients.AppsV1().StatefulSets(ns).Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		var replicas int32
		if sts.Spec.Replicas != nil {
			replicas = *sts.Spec.Replicas
		}
		ready := replicas > 0 && sts.Status.ReadyReplicas == replicas
		phase := "Pending"
		if ready {
			phase = "Running"
		}
		return &Status{
			Phase:         phase,
			Ready:         ready,
			Replicas:      replicas,
			ReadyReplicas: sts.Status.ReadyReplicas,
		}, nil
	}
	if !apierrors.IsNotFound(err) {
		return nil, classify("get statefulset", err)
	}

	return &Status{Phase: PhaseNotFound, Ready: false}, nil
}

// CreateBackup runs a one-shot dump job against the cluster's service address
func (o *live) CreateBackup(ctx context.Context, ref ClusterRef, backupID string) error {
	return o.runArchiveJob(ctx, ref, backupID, "mongodump")
}

// RestoreBackup runs a one-shot restore job from the backup archive
func (o *live) RestoreBackup(ctx context.Context, ref ClusterRef, backupID string) error {
	return o.runArchiveJob(ctx, ref, backupID, "mongorestore")
}

func (o *live) runArchiveJob(ctx context.Context, ref ClusterRef, backupID, command string) error {
	ns := o.namespace(ref.ProjectID)
	name := ResourceName(ref.ClusterID)

	jobName := strings.ToLower(fmt.Sprintf("%s-%s-%s", name, command, backupID))
	archivePath := BackupArchivePath(ref.ClusterID, backupID)
	host := ServiceHost(ref.ClusterID, ns)

	job := buildBackupJob(jobName, ns, name, host, archivePath, o.cfg.BackupVolumeClaim, command)
	_, err := o.clients.BatchV1().Jobs(ns).Create(ctx, job, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return classify("create "+command+" job", err)
	}
	return nil
}

func userSecretName(resourceName, username string) string {
	return strings.ToLower(fmt.Sprintf("%s-user-%s", resourceName, username))
}

// BackupArchivePath derives the archive location of a backup on the shared
// backup volume
func BackupArchivePath(clusterID, backupID string) string {
	return fmt.Sprintf("%s/%s/%s.archive.gz", backupMountPath, ResourceName(clusterID), strings.ToLower(backupID))
}
