// Package metrics holds the prometheus collectors shared by the pipeline,
// the API server and the worker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "glyph"

var (
	// runsTotal counts finished runs.
	// Labels: status (success, failure, timeout)
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total pipeline runs by outcome",
	}, []string{"status"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "End to end pipeline run duration in seconds",
		Buckets:   []float64{1, 5, 10, 20, 30, 60, 90, 120, 180, 300},
	})

	// stepDuration measures each workflow and pipeline step.
	// Labels: step
	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "workflow",
		Name:      "step_duration_seconds",
		Help:      "Duration of individual steps in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 60},
	}, []string{"step"})

	// providerErrors counts failed provider calls.
	// Labels: provider (search, llm), kind (timeout, provider, parse)
	providerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "workflow",
		Name:      "provider_errors_total",
		Help:      "Total provider call failures by kind",
	}, []string{"provider", "kind"})

	// fallbacks counts heuristic substitutions.
	// Labels: stage (queries, reliability)
	fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "workflow",
		Name:      "fallbacks_total",
		Help:      "Total heuristic fallbacks by stage",
	}, []string{"stage"})

	// queueMessages counts consumed queue messages.
	// Labels: result (ack, retry, dlq)
	queueMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "messages_total",
		Help:      "Total consumed queue messages by result",
	}, []string{"result"})
)

// ObserveStep records how long step took.
func ObserveStep(step string, d time.Duration) {
	stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// ProviderError counts a failed provider call.
func ProviderError(provider, kind string) {
	providerErrors.WithLabelValues(provider, kind).Inc()
}

// Fallback counts a heuristic substitution in stage.
func Fallback(stage string) {
	fallbacks.WithLabelValues(stage).Inc()
}

// RunFinished records a run outcome and its duration.
func RunFinished(status string, d time.Duration) {
	runsTotal.WithLabelValues(status).Inc()
	runDuration.Observe(d.Seconds())
}

// QueueMessage counts a consumed message by its result.
func QueueMessage(result string) {
	queueMessages.WithLabelValues(result).Inc()
}
