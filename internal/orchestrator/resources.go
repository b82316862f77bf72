package orchestrator

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/dbpilot/dbpilot/internal/db/models"
)

// Resource labels
const (
	labelManagedBy = "app.kubernetes.io/managed-by"
	labelCluster   = "dbpilot.io/cluster"
	managedByValue = "dbpilot"

	mongoImage         = "mongo:7.0"
	databaseSAName     = "mongodb-database"
	backupToolsImage   = "mongo:7.0"
	backupMountPath    = "/backups"
	jobBackoffLimit    = int32(2)
	jobTTLSecondsAfter = int32(3600)
)

// mongoCommunityGVR addresses the database operator's custom resource kind
var mongoCommunityGVR = schema.GroupVersionResource{
	Group:    "mongodbcommunity.mongodb.com",
	Version:  "v1",
	Resource: "mongodbcommunity",
}

func clusterLabels(name string) map[string]string {
	return map[string]string{
		labelManagedBy: managedByValue,
		labelCluster:   name,
	}
}

func clusterSelector(name string) string {
	return fmt.Sprintf("%s=%s", labelCluster, name)
}

func buildNamespace(name string) *corev1.Namespace {
	return &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: map[string]string{labelManagedBy: managedByValue},
		},
	}
}

// buildServiceAccount, buildRole and buildRoleBinding make up the RBAC
// bootstrap the database operator expects inside every managed namespace.
func buildServiceAccount(namespace string) *corev1.ServiceAccount {
	return &corev1.ServiceAccount{
		ObjectMeta: metav1.ObjectMeta{
			Name:      databaseSAName,
			Namespace: namespace,
			Labels:    map[string]string{labelManagedBy: managedByValue},
		},
	}
}

func buildRole(namespace string) *rbacv1.Role {
	return &rbacv1.Role{
		ObjectMeta: metav1.ObjectMeta{
			Name:      databaseSAName,
			Namespace: namespace,
			Labels:    map[string]string{labelManagedBy: managedByValue},
		},
		Rules: []rbacv1.PolicyRule{
			{
				APIGroups: []string{""},
				Resources: []string{"secrets"},
				Verbs:     []string{"get"},
			},
			{
				APIGroups: []string{""},
				Resources: []string{"pods"},
				Verbs:     []string{"get", "list", "patch"},
			},
		},
	}
}

func buildRoleBinding(namespace string) *rbacv1.RoleBinding {
	return &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{
			Name:      databaseSAName,
			Namespace: namespace,
			Labels:    map[string]string{labelManagedBy: managedByValue},
		},
		Subjects: []rbacv1.Subject{
			{
				Kind:      rbacv1.ServiceAccountKind,
				Name:      databaseSAName,
				Namespace: namespace,
			},
		},
		RoleRef: rbacv1.RoleRef{
			APIGroup: rbacv1.GroupName,
			Kind:     "Role",
			Name:     databaseSAName,
		},
	}
}

func buildCredentialsSecret(secretName, namespace, clusterName, username, password string) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      secretName,
			Namespace: namespace,
			Labels:    clusterLabels(clusterName),
		},
		Type: corev1.SecretTypeOpaque,
		StringData: map[string]string{
			"username": username,
			"password": password,
		},
	}
}

// buildStatefulSet is the single-node strategy: a plain stateful workload
// without operator involvement
func buildStatefulSet(name, namespace string, profile models.ResourceProfile, secretName string) *appsv1.StatefulSet {
	replicas := profile.Replicas
	labels := clusterLabels(name)

	return &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: appsv1.StatefulSetSpec{
			ServiceName: name + "-svc",
			Replicas:    &replicas,
			Selector:    &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  "mongod",
							Image: mongoImage,
							Ports: []corev1.ContainerPort{
								{Name: "mongodb", ContainerPort: MongoPort},
							},
							Env: []corev1.EnvVar{
								{
									Name: "MONGO_INITDB_ROOT_USERNAME",
									ValueFrom: &corev1.EnvVarSource{
										SecretKeyRef: &corev1.SecretKeySelector{
											LocalObjectReference: corev1.LocalObjectReference{Name: secretName},
											Key:                  "username",
										},
									},
								},
								{
									Name: "MONGO_INITDB_ROOT_PASSWORD",
									ValueFrom: &corev1.EnvVarSource{
										SecretKeyRef: &corev1.SecretKeySelector{
											LocalObjectReference: corev1.LocalObjectReference{Name: secretName},
											Key:                  "password",
										},
									},
								},
							},
							Resources: profileResources(profile),
							VolumeMounts: []corev1.VolumeMount{
								{Name: "data", MountPath: "/data/db"},
							},
						},
					},
				},
			},
			VolumeClaimTemplates: []corev1.PersistentVolumeClaim{
				{
					ObjectMeta: metav1.ObjectMeta{Name: "data"},
					Spec: corev1.PersistentVolumeClaimSpec{
						AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
						Resources: corev1.VolumeResourceRequirements{
							Requests: corev1.ResourceList{
								corev1.ResourceStorage: resource.MustParse(profile.StorageSize),
							},
						},
					},
				},
			},
		},
	}
}

func buildHeadlessService(name, namespace string) *corev1.Service {
	labels := clusterLabels(name)
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name + "-svc",
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: corev1.ServiceSpec{
			ClusterIP: corev1.ClusterIPNone,
			Selector:  labels,
			Ports: []corev1.ServicePort{
				{
					Name:       "mongodb",
					Port:       MongoPort,
					TargetPort: intstr.FromInt32(MongoPort),
				},
			},
		},
	}
}

// buildNetworkPolicy produces the full ingress rule set for a cluster:
// same-namespace traffic is always allowed, plus one rule per caller CIDR,
// all scoped to the database port.
func buildNetworkPolicy(name, namespace string, allowedCIDRs []string) *networkingv1.NetworkPolicy {
	port := intstr.FromInt32(MongoPort)
	tcp := corev1.ProtocolTCP
	ports := []networkingv1.NetworkPolicyPort{
		{Protocol: &tcp, Port: &port},
	}

	rules := []networkingv1.NetworkPolicyIngressRule{
		{
			From:  []networkingv1.NetworkPolicyPeer{{PodSelector: &metav1.LabelSelector{}}},
			Ports: ports,
		},
	}
	for _, cidr := range allowedCIDRs {
		rules = append(rules, networkingv1.NetworkPolicyIngressRule{
			From:  []networkingv1.NetworkPolicyPeer{{IPBlock: &networkingv1.IPBlock{CIDR: cidr}}},
			Ports: ports,
		})
	}

	return &networkingv1.NetworkPolicy{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    clusterLabels(name),
		},
		Spec: networkingv1.NetworkPolicySpec{
			PodSelector: metav1.LabelSelector{MatchLabels: clusterLabels(name)},
			PolicyTypes: []networkingv1.PolicyType{networkingv1.PolicyTypeIngress},
			Ingress:     rules,
		},
	}
}

// buildMongoCommunityResource is the operator-managed strategy: a replica-set
// custom resource whose lifecycle the community operator owns
func buildMongoCommunityResource(name, namespace string, profile models.ResourceProfile, secretName, adminUser string) *unstructured.Unstructured {
	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": mongoCommunityGVR.Group + "/" + mongoCommunityGVR.Version,
			"kind":       "MongoDBCommunity",
			"metadata": map[string]interface{}{
				"name":      name,
				"namespace": namespace,
				"labels": map[string]interface{}{
					labelManagedBy: managedByValue,
					labelCluster:   name,
				},
			},
			"spec": map[string]interface{}{
				"members": int64(profile.Replicas),
				"type":    "ReplicaSet",
				"version": "7.0.5",
				"security": map[string]interface{}{
					"authentication": map[string]interface{}{
						"modes": []interface{}{"SCRAM"},
					},
				},
				"users": []interface{}{
					operatorUserEntry(adminUser, secretName, []string{"root"}),
				},
				"statefulSet": buildStatefulSetOverlay(profile),
			},
		},
	}
}

// buildStatefulSetOverlay carries the per-tier sizing into the operator's
// statefulset template. Reused by resize so the mutation matches creation.
func buildStatefulSetOverlay(profile models.ResourceProfile) map[string]interface{} {
	return map[string]interface{}{
		"spec": map[string]interface{}{
			"template": map[string]interface{}{
				"spec": map[string]interface{}{
					"containers": []interface{}{
						map[string]interface{}{
							"name": "mongod",
							"resources": map[string]interface{}{
								"requests": map[string]interface{}{
									"cpu":    profile.CPURequest,
									"memory": profile.MemoryRequest,
								},
								"limits": map[string]interface{}{
									"cpu":    profile.CPULimit,
									"memory": profile.MemoryLimit,
								},
							},
						},
					},
				},
			},
			"volumeClaimTemplates": []interface{}{
				map[string]interface{}{
					"metadata": map[string]interface{}{"name": "data-volume"},
					"spec": map[string]interface{}{
						"accessModes": []interface{}{"ReadWriteOnce"},
						"resources": map[string]interface{}{
							"requests": map[string]interface{}{
								"storage": profile.StorageSize,
							},
						},
					},
				},
			},
		},
	}
}

func operatorUserEntry(username, secretName string, roles []string) map[string]interface{} {
	roleEntries := make([]interface{}, 0, len(roles))
	for _, role := range roles {
		roleEntries = append(roleEntries, map[string]interface{}{
			"name": role,
			"db":   "admin",
		})
	}
	return map[string]interface{}{
		"name": username,
		"db":   "admin",
		"passwordSecretRef": map[string]interface{}{
			"name": secretName,
			"key":  "password",
		},
		"roles":                      roleEntries,
		"scramCredentialsSecretName": username + "-scram",
	}
}

// buildBackupJob creates a one-shot batch job that runs mongodump (or
// mongorestore) against the cluster's in-namespace service address
func buildBackupJob(jobName, namespace, clusterName, host, archivePath, pvcName, command string) *batchv1.Job {
	backoff := jobBackoffLimit
	ttl := jobTTLSecondsAfter

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      jobName,
			Namespace: namespace,
			Labels:    clusterLabels(clusterName),
		},
		Spec: batchv1.JobSpec{
			BackoffLimit:            &backoff,
			TTLSecondsAfterFinished: &ttl,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: clusterLabels(clusterName)},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers: []corev1.Container{
						{
							Name:    command,
							Image:   backupToolsImage,
							Command: []string{command},
							Args: []string{
								fmt.Sprintf("--host=%s:%d", host, MongoPort),
								fmt.Sprintf("--archive=%s", archivePath),
								"--gzip",
							},
							VolumeMounts: []corev1.VolumeMount{
								{Name: "backup-storage", MountPath: backupMountPath},
							},
						},
					},
					Volumes: []corev1.Volume{
						{
							Name: "backup-storage",
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
									ClaimName: pvcName,
								},
							},
						},
					},
				},
			},
		},
	}
}

func profileResources(profile models.ResourceProfile) corev1.ResourceRequirements {
	return corev1.ResourceRequirements{
		Requests: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(profile.CPURequest),
			corev1.ResourceMemory: resource.MustParse(profile.MemoryRequest),
		},
		Limits: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(profile.CPULimit),
			corev1.ResourceMemory: resource.MustParse(profile.MemoryLimit),
		},
	}
}
