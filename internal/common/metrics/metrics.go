package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_runs_total",
			Help: "Total number of job runs by outcome",
		},
		[]string{"task_type", "status"},
	)

	JobItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_items_total",
			Help: "Items processed by a job, by result",
		},
		[]string{"task_type", "result"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "jobs_duration_seconds",
			Help: "Duration of job runs in seconds",
		},
		[]string{"task_type"},
	)

	JobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobs_active",
			Help: "Number of job runs in progress",
		},
		[]string{"task_type"},
	)

	SMSOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_outcomes_total",
			Help: "SMS gateway responses by outcome",
		},
		[]string{"outcome"},
	)
)

// Item results recorded in JobItems.
const (
	ResultSent    = "sent"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
	ResultDeleted = "deleted"
)

// Push sends the default registry to a Prometheus pushgateway. One-shot CLI
// runs exit before any scrape could happen.
func Push(url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// ObserveRun marks a run of taskType as started. The returned func records
// the outcome and duration.
func ObserveRun(taskType string) func(err error) {
	start := time.Now()
	JobsActive.WithLabelValues(taskType).Inc()
	return func(err error) {
		JobsActive.WithLabelValues(taskType).Dec()
		JobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		status := "completed"
		if err != nil {
			status = "failed"
		}
		JobRuns.WithLabelValues(taskType, status).Inc()
	}
}

// Item counts one processed item of taskType.
func Item(taskType, result string) {
	JobItems.WithLabelValues(taskType, result).Inc()
}
