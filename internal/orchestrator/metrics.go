package orchestrator

import (
	"context"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"

	"github.com/dbpilot/dbpilot/internal/db/models"
)

// GetClusterMetrics reads pod-level usage from the metrics API, aggregates
// the pods belonging to the cluster by resource-name prefix, and normalizes
// the quantities into a CPU percentage of the tier limit and memory in MB
func (o *live) GetClusterMetrics(ctx context.Context, ref ClusterRef, plan models.PlanTier) (*Metrics, error) {
	profile, err := models.ProfileFor(plan)
	if err != nil {
		return nil, err
	}
	ns := o.namespace(ref.ProjectID)
	name := ResourceName(ref.ClusterID)

	podMetrics, err := o.metrics.MetricsV1beta1().PodMetricses(ns).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, classify("list pod metrics", err)
	}

	return aggregateMetrics(podMetrics.Items, name, profile), nil
}

// aggregateMetrics sums CPU and memory usage across the pods whose name
// carries the cluster's resource-name prefix. Quantity parsing (nanocores,
// millicores, Ki/Mi/Gi) is delegated to the resource.Quantity arithmetic.
func aggregateMetrics(items []metricsv1beta1.PodMetrics, namePrefix string, profile models.ResourceProfile) *Metrics {
	var cpuMilli, memBytes int64
	pods := 0

	for i := range items {
		pm := &items[i]
		if !strings.HasPrefix(pm.Name, namePrefix) {
			continue
		}
		pods++
		for _, c := range pm.Containers {
			cpuMilli += c.Usage.Cpu().MilliValue()
			memBytes += c.Usage.Memory().Value()
		}
	}

	limit := resource.MustParse(profile.CPULimit)
	limitMilli := limit.MilliValue() * int64(profile.Replicas)

	metrics := &Metrics{
		MemoryMB: float64(memBytes) / (1024 * 1024),
		Pods:     pods,
	}
	if limitMilli > 0 {
		metrics.CPUPercent = float64(cpuMilli) / float64(limitMilli) * 100
	}
	return metrics
}
