package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobRunsTotal, paymentsExpiredTotal)
}

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_job_runs_total",
			Help: "Background job runs, labeled by job and outcome (completed/failed/skipped).",
		},
		[]string{"job", "outcome"},
	)

	paymentsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_expired_total",
			Help: "PENDING payments terminally expired by the cleanup pass.",
		},
	)
)

func IncJobRun(job, outcome string) {
	jobRunsTotal.WithLabelValues(norm(job), norm(outcome)).Inc()
}

func AddPaymentsExpired(n int64) { paymentsExpiredTotal.Add(float64(n)) }
