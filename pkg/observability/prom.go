package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "layerpress"

// PromHooks implements StageHooks and CacheHooks on a private registry.
type PromHooks struct {
	registry *prometheus.Registry

	stageRuns     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	items         *prometheus.CounterVec
	itemDuration  *prometheus.HistogramVec
	cacheOps      *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
	lastRun       prometheus.Gauge
}

// NewPromHooks creates hooks with all collectors registered.
func NewPromHooks() *PromHooks {
	h := &PromHooks{
		registry: prometheus.NewRegistry(),
		stageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Pipeline stage executions by stage and result.",
		}, []string{"stage", "result"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of pipeline stages.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"stage"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Files or records processed by stage and outcome.",
		}, []string{"stage", "outcome"}),
		itemDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "item_duration_seconds",
			Help:      "Per-item processing time.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"stage"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache lookups and writes by key type and operation.",
		}, []string{"key_type", "op"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by key type.",
		}, []string{"key_type"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the metrics file was written.",
		}),
	}
	h.registry.MustRegister(h.stageRuns, h.stageDuration, h.items, h.itemDuration, h.cacheOps, h.cacheBytes, h.lastRun)
	return h
}

// Registry exposes the underlying registry, mainly for tests.
func (h *PromHooks) Registry() *prometheus.Registry {
	return h.registry
}

func (h *PromHooks) OnStageStart(context.Context, string) {}

func (h *PromHooks) OnStageComplete(_ context.Context, stage string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	h.stageRuns.WithLabelValues(stage, result).Inc()
	h.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (h *PromHooks) OnItem(_ context.Context, stage, outcome string, d time.Duration) {
	h.items.WithLabelValues(stage, outcome).Inc()
	h.itemDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (h *PromHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (h *PromHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (h *PromHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheOps.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// WriteTextfile writes all metrics to path in the text exposition format,
// suitable for node_exporter's textfile collector.
func (h *PromHooks) WriteTextfile(path string) error {
	h.lastRun.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, h.registry)
}

var (
	_ StageHooks = (*PromHooks)(nil)
	_ CacheHooks = (*PromHooks)(nil)
)
