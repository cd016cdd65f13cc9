package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics tracks background maintenance runs.
type SchedulerMetrics struct {
	runs     *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	deleted  *prometheus.CounterVec
}

var (
	schedOnce sync.Once
	sched     *SchedulerMetrics
)

// Scheduler returns the process-wide scheduler metrics, registering the
// instruments on first use.
func Scheduler() *SchedulerMetrics {
	schedOnce.Do(func() {
		sched = &SchedulerMetrics{
			runs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "campus_scheduler_job_runs_total",
				Help: "Background job executions by job name.",
			}, []string{"job"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "campus_scheduler_job_errors_total",
				Help: "Background job failures by job name.",
			}, []string{"job"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "campus_scheduler_job_duration_seconds",
				Help:    "Background job duration by job name.",
				Buckets: prometheus.DefBuckets,
			}, []string{"job"}),
			deleted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "campus_scheduler_sessions_deleted_total",
				Help: "Session rows removed by the cleanup sweep.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(sched.runs, sched.errors, sched.duration, sched.deleted)
	})
	return sched
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobError(job string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *SchedulerMetrics) AddSessionsDeleted(reason string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.deleted.WithLabelValues(reason).Add(float64(n))
}
