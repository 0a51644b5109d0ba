// Package observability exposes Prometheus metrics for the pipeline. The
// daemon serves them on /metrics; everything here registers on the default
// registry via promauto.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tome_stage_executions_total",
			Help: "Stage execution outcomes by stage and recorded result",
		},
		[]string{"stage", "result"},
	)

	stageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tome_stage_duration_seconds",
			Help:    "Stage execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tome_documents_total",
			Help: "Documents reaching a terminal status",
		},
		[]string{"status"},
	)

	documentDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tome_document_duration_seconds",
			Help:    "Whole-pipeline duration from lease to terminal status in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tome_queue_depth",
			Help: "Documents in the catalog by status",
		},
		[]string{"status"},
	)

	alertDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tome_alert_deliveries_total",
			Help: "Alert webhook delivery attempts by event and outcome",
		},
		[]string{"event", "outcome"},
	)

	locksSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tome_locks_swept_total",
			Help: "Expired advisory locks removed by the sweep loop",
		},
	)
)

// RecordStageExecution records one pass through the execution envelope.
// Result is the recorded stage result, or "lock_held" for contention skips.
func RecordStageExecution(stage, result string, duration time.Duration) {
	stageExecutionsTotal.WithLabelValues(stage, result).Inc()
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordDocumentOutcome records a document reaching a terminal status.
func RecordDocumentOutcome(status string, duration time.Duration) {
	documentsTotal.WithLabelValues(status).Inc()
	documentDurationSeconds.Observe(duration.Seconds())
}

// SetQueueDepth publishes the current document count for one status. The
// poll loop refreshes these each pass.
func SetQueueDepth(status string, count int) {
	queueDepth.WithLabelValues(status).Set(float64(count))
}

// RecordAlertDelivery records one webhook delivery attempt.
func RecordAlertDelivery(event, outcome string) {
	alertDeliveriesTotal.WithLabelValues(event, outcome).Inc()
}

// RecordLockSweep records expired locks removed in one sweep pass.
func RecordLockSweep(count int) {
	if count > 0 {
		locksSweptTotal.Add(float64(count))
	}
}
