package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// Job outcomes as recorded by JobOutcomes.
const (
	JobOK        = "ok"
	JobRetry     = "retry"
	JobCancelled = "cancelled"
	JobDiscarded = "discarded"
)

var (
	JobsQueued = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_queued_total",
			Help:      "Background jobs enqueued, by kind and queue",
		},
		[]string{"kind", "queue"},
	)

	JobDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Background job run time in seconds",
			// Mail sends dominate; retention sweeps can take minutes.
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 60, 300},
		},
		[]string{"kind"},
	)

	JobOutcomes = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_outcomes_total",
			Help:      "Background job attempts by kind and outcome (ok, retry, cancelled, discarded)",
		},
		[]string{"kind", "outcome"},
	)
)

// JobMetricsHook records queue and run metrics for every job kind.
type JobMetricsHook struct {
	river.HookDefaults
	started sync.Map // job ID -> time.Time
}

func NewJobMetricsHook() *JobMetricsHook {
	return &JobMetricsHook{}
}

func (h *JobMetricsHook) InsertBegin(ctx context.Context, params *rivertype.JobInsertParams) error {
	queue := params.Queue
	if queue == "" {
		queue = river.QueueDefault
	}
	JobsQueued.WithLabelValues(params.Kind, queue).Inc()
	return nil
}

func (h *JobMetricsHook) WorkBegin(ctx context.Context, job *rivertype.JobRow) error {
	h.started.Store(job.ID, time.Now())
	return nil
}

func (h *JobMetricsHook) WorkEnd(ctx context.Context, job *rivertype.JobRow, err error) error {
	if v, ok := h.started.LoadAndDelete(job.ID); ok {
		JobDuration.WithLabelValues(job.Kind).Observe(time.Since(v.(time.Time)).Seconds())
	}
	JobOutcomes.WithLabelValues(job.Kind, jobOutcome(job, err)).Inc()
	return nil
}

func jobOutcome(job *rivertype.JobRow, err error) string {
	var cancelled *rivertype.JobCancelError
	switch {
	case err == nil:
		return JobOK
	case errors.As(err, &cancelled):
		return JobCancelled
	case job.MaxAttempts > 0 && job.Attempt >= job.MaxAttempts:
		return JobDiscarded
	default:
		return JobRetry
	}
}
