// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_queries_total",
			Help: "Total number of processed queries by intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_stage_duration_seconds",
			Help:    "Duration of each query pipeline stage in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	ClassificationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_classification_fallbacks_total",
			Help: "Number of classifications that defaulted to the general intent",
		},
		[]string{"reason"},
	)

	IndexChunks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_index_chunks",
			Help: "Number of chunks in the active retrieval index",
		},
	)

	IndexRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_index_rebuilds_total",
			Help: "Number of retrieval index builds by status",
		},
		[]string{"status"},
	)

	EmbeddingCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_embedding_cache_total",
			Help: "Embedding cache lookups by layer and result",
		},
		[]string{"layer", "result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "status"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
