package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_share_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Engine metrics
var (
	EngineLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_engine_loads_total",
			Help: "Total number of engine load attempts",
		},
		[]string{"backend", "status"}, // "ok", "unsupported", "load_failed", "init_failed"
	)

	EngineLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_share_engine_load_duration_seconds",
			Help:    "Engine load duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend"},
	)

	SessionWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_share_session_wait_seconds",
			Help:    "Time spent waiting for the engine slot",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	SessionInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_share_session_in_use",
			Help: "1 while an operation holds the engine",
		},
	)
)

// Pipeline metrics
var (
	PipelineOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_pipeline_operations_total",
			Help: "Total number of pipeline operations",
		},
		[]string{"op", "status"}, // status: "success", "failed"
	)

	PipelineOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_share_pipeline_operation_duration_seconds",
			Help:    "Pipeline operation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"op"},
	)

	PipelineOutputBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_share_pipeline_output_bytes",
			Help:    "Size of pipeline outputs in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 10),
		},
		[]string{"op"},
	)

	CleanupWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_cleanup_warnings_total",
			Help: "Total number of staged files that could not be removed",
		},
		[]string{"op"},
	)
)

// Job metrics
var (
	MergeJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_merge_jobs_total",
			Help: "Total number of merge jobs by final state",
		},
		[]string{"state"},
	)

	MergeJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_share_merge_jobs_in_progress",
			Help: "Number of merge jobs currently running",
		},
	)
)
