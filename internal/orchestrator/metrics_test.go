package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"

	"github.com/dbpilot/dbpilot/internal/db/models"
)

func podMetrics(name, cpu, memory string) metricsv1beta1.PodMetrics {
	return metricsv1beta1.PodMetrics{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Containers: []metricsv1beta1.ContainerMetrics{
			{
				Name: "mongod",
				Usage: corev1.ResourceList{
					corev1.ResourceCPU:    resource.MustParse(cpu),
					corev1.ResourceMemory: resource.MustParse(memory),
				},
			},
		},
	}
}

func TestAggregateMetrics(t *testing.T) {
	profile, err := models.ProfileFor(models.PlanMedium)
	require.NoError(t, err)

	items := []metricsv1beta1.PodMetrics{
		podMetrics("mongo-c1-0", "500m", "512Mi"),
		podMetrics("mongo-c1-1", "500m", "512Mi"),
		podMetrics("mongo-c1-2", "1", "1Gi"),
		podMetrics("mongo-other-0", "2", "4Gi"),
	}

	metrics := aggregateMetrics(items, "mongo-c1", profile)

	assert.Equal(t, 3, metrics.Pods)
	// 2000m used of a 2-core limit across 3 members
	assert.InDelta(t, 2000.0/6000.0*100, metrics.CPUPercent, 0.01)
	assert.InDelta(t, 2048, metrics.MemoryMB, 0.01)
}

func TestAggregateMetricsNoPods(t *testing.T) {
	profile, err := models.ProfileFor(models.PlanDev)
	require.NoError(t, err)

	metrics := aggregateMetrics(nil, "mongo-c1", profile)
	assert.Zero(t, metrics.Pods)
	assert.Zero(t, metrics.CPUPercent)
	assert.Zero(t, metrics.MemoryMB)
}
