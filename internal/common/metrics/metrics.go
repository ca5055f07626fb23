package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	ScoresComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_scores_computed_total",
			Help: "Startup scores computed, by outcome (scored, excluded)",
		},
		[]string{"outcome"},
	)

	ScoreDistribution = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_overall_score",
			Help:    "Distribution of overall match scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_status_transitions_total",
			Help: "Match status transitions applied",
		},
		[]string{"from", "to"},
	)

	InteractionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_interactions_recorded_total",
			Help: "Interactions appended to the log",
		},
		[]string{"type"},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_batch_recompute_duration_seconds",
			Help:    "Duration of batch recompute runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	BatchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_batch_recompute_failures_total",
			Help: "Startups that failed during batch recompute",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "matching_http_request_duration_seconds",
			Help: "HTTP request latency by route",
		},
		[]string{"route"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_notifications_total",
			Help: "Founder notifications by channel and result",
		},
		[]string{"channel", "result"},
	)
)
