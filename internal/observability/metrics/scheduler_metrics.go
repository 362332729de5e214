package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SchedulerJobReasonDeadlineExceeded = "deadline_exceeded"
	SchedulerJobReasonLockUnavailable  = "lock_unavailable"
	SchedulerJobReasonUnknown          = "unknown"
)

// SchedulerMetrics captures background job health and the history backlog.
type SchedulerMetrics struct {
	jobRuns      *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	jobTimeouts  *prometheus.CounterVec
	jobErrors    *prometheus.CounterVec
	runLoopLag   prometheus.Observer
	historyState *prometheus.GaugeVec
	staleEntries prometheus.Gauge
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the singleton scheduler metrics registry.
func Scheduler() *SchedulerMetrics {
	return SchedulerWithConfig(Config{})
}

// SchedulerWithConfig returns the singleton scheduler metrics registry using config labels.
func SchedulerWithConfig(cfg Config) *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return schedulerMetrics
}

// ResetSchedulerMetricsForTest resets the scheduler metrics singleton for tests.
func ResetSchedulerMetricsForTest() {
	schedulerMetricsOnce = sync.Once{}
	schedulerMetrics = nil
}

func newSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "galette-stripe"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "stripe_scheduler_job_runs_total",
		Help:        "Scheduler job runs by name.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "stripe_scheduler_job_duration_seconds",
		Help:        "Scheduler job latency.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"job"})
	jobTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "stripe_scheduler_job_timeouts_total",
		Help:        "Scheduler job timeouts.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "stripe_scheduler_job_errors_total",
		Help:        "Scheduler job errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "stripe_scheduler_runloop_lag_seconds",
		Help:        "Scheduler run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	})
	historyState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "stripe_history_entries",
		Help:        "History entries by processing state.",
		ConstLabels: constLabels,
	}, []string{"state"})
	staleEntries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "stripe_history_stale_entries",
		Help:        "History entries still unset past the recovery threshold.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(jobRuns, jobDuration, jobTimeouts, jobErrors, runLoopLag, historyState, staleEntries)

	return &SchedulerMetrics{
		jobRuns:      jobRuns,
		jobDuration:  jobDuration,
		jobTimeouts:  jobTimeouts,
		jobErrors:    jobErrors,
		runLoopLag:   runLoopLag,
		historyState: historyState,
		staleEntries: staleEntries,
	}
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(sanitizeLabel(job)).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(sanitizeLabel(job)).Observe(elapsed.Seconds())
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(sanitizeLabel(job)).Inc()
}

func (m *SchedulerMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(sanitizeLabel(job), classifySchedulerError(err)).Inc()
}

func (m *SchedulerMetrics) ObserveRunLoopLag(lag time.Duration) {
	if m == nil || lag <= 0 {
		return
	}
	m.runLoopLag.Observe(lag.Seconds())
}

// SetHistoryState publishes the number of entries currently in state.
func (m *SchedulerMetrics) SetHistoryState(state string, count int64) {
	if m == nil {
		return
	}
	m.historyState.WithLabelValues(sanitizeLabel(state)).Set(float64(count))
}

func (m *SchedulerMetrics) SetStaleEntries(count int64) {
	if m == nil {
		return
	}
	m.staleEntries.Set(float64(count))
}

// ErrLockUnavailable tags a job skipped because another instance holds its lock.
var ErrLockUnavailable = errors.New("lock_unavailable")

func classifySchedulerError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return SchedulerJobReasonDeadlineExceeded
	case errors.Is(err, ErrLockUnavailable):
		return SchedulerJobReasonLockUnavailable
	default:
		return SchedulerJobReasonUnknown
	}
}
