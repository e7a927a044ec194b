package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Jobs
	JobsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobtracker_jobs_created_total",
			Help: "Total number of job applications added",
		},
	)
	JobMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobtracker_job_mutations_total",
			Help: "Store mutations by operation",
		},
		[]string{"op"}, // op: add|delete|status|source|company|timestamp
	)
	JobStatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobtracker_job_status_changes_total",
			Help: "Number of job status transitions",
		},
		[]string{"from", "to"},
	)
	JobsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobtracker_jobs",
			Help: "Current number of job applications per status",
		},
		[]string{"status"},
	)

	// Repository
	RepoOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobtracker_repository_ops_total",
			Help: "Repository operations performed",
		},
		[]string{"backend", "op"}, // op: load|save
	)
	RepoOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobtracker_repository_op_duration_seconds",
			Help:    "Duration of repository operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobtracker_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		// Jobs
		JobsCreated,
		JobMutations,
		JobStatusChanges,
		JobsByStatus,
		// Repository
		RepoOps,
		RepoOpDurationSeconds,
		// Errors
		Errors,
	)
}

// StartMetricsServer serves /metrics on its own listener.
func StartMetricsServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

// Jobs
func IncJobsCreated() {
	JobsCreated.Inc()
}

func IncJobMutation(op string) {
	JobMutations.WithLabelValues(op).Inc()
}

func IncJobStatusChange(from, to string) {
	JobStatusChanges.WithLabelValues(from, to).Inc()
}

func SetJobsByStatus(status string, n int) {
	JobsByStatus.WithLabelValues(status).Set(float64(n))
}

// Repository
func IncRepoOp(backend, op string) {
	RepoOps.WithLabelValues(backend, op).Inc()
}

func ObserveRepoOp(backend, op string, d time.Duration) {
	RepoOpDurationSeconds.WithLabelValues(backend, op).Observe(d.Seconds())
}

// Errors
func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
