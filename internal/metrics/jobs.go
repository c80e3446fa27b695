package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobsTotal, stepSeconds, loopErrorsTotal) }

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Jobs reaching a terminal state, by kind and status.",
		},
		[]string{"kind", "status"},
	)

	stepSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_step_seconds",
			Help:      "Duration of individual pipeline steps.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"kind", "step"},
	)

	loopErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_errors_total",
			Help:      "Unexpected worker loop iteration errors, by lane.",
		},
		[]string{"lane"},
	)
)

// IncJob counts a job reaching status.
func IncJob(kind, status string) {
	jobsTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

// ObserveStep records how long a pipeline step took.
func ObserveStep(kind, step string, elapsed time.Duration) {
	stepSeconds.WithLabelValues(norm(kind), norm(step)).Observe(elapsed.Seconds())
}

// IncLoopError counts a failed worker loop iteration.
func IncLoopError(lane string) {
	loopErrorsTotal.WithLabelValues(norm(lane)).Inc()
}
