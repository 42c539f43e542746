// Package metrics exposes Prometheus instrumentation for the generation
// pipeline and its collaborators.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineRunsTotal counts pipeline runs by outcome
	// (success, degraded, validation_failed, forbidden, generation_failed, error).
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unipost_pipeline_runs_total",
			Help: "Total number of post generation pipeline runs",
		},
		[]string{"outcome"},
	)

	// PipelineDuration tracks full pipeline latency.
	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unipost_pipeline_duration_seconds",
			Help:    "Duration of post generation pipeline runs",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"outcome"},
	)

	// StageDuration tracks each external step.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unipost_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// CacheLookupsTotal counts embedding cache lookups (hit, miss, error).
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unipost_cache_lookups_total",
			Help: "Total number of embedding cache lookups",
		},
		[]string{"result"},
	)

	// DegradationsTotal counts runs that continued without references.
	DegradationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unipost_pipeline_degradations_total",
			Help: "Total number of degraded pipeline steps by reason",
		},
		[]string{"reason"},
	)

	// ApprovalDispatchTotal counts approval dispatch attempts by status.
	ApprovalDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unipost_approval_dispatch_total",
			Help: "Total number of approval dispatch attempts",
		},
		[]string{"status"},
	)

	// PersistenceFailuresTotal counts posts that were generated but not stored.
	PersistenceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "unipost_persistence_failures_total",
			Help: "Total number of generated posts the content API failed to store",
		},
	)
)

// RecordRun records a finished pipeline run.
func RecordRun(outcome string, d time.Duration) {
	PipelineRunsTotal.WithLabelValues(outcome).Inc()
	PipelineDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordStage records one stage duration.
func RecordStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordCacheLookup records a cache lookup result.
func RecordCacheLookup(result string) {
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordDegradation records why a run continued without references.
func RecordDegradation(reason string) {
	DegradationsTotal.WithLabelValues(reason).Inc()
}

// RecordDispatch records an approval dispatch attempt.
func RecordDispatch(ok bool) {
	status := "success"
	if !ok {
		status = "failure"
	}
	ApprovalDispatchTotal.WithLabelValues(status).Inc()
}

// RecordPersistenceFailure records a post the content API failed to store.
func RecordPersistenceFailure() {
	PersistenceFailuresTotal.Inc()
}
