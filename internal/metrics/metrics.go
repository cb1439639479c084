// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "rowgen"

	MetricRowsGenerated    = "rows_generated_total"
	MetricNullsInjected    = "nulls_injected_total"
	MetricGenerationErrors = "generation_errors_total"
	MetricRuns             = "runs_total"
	MetricRunsActive       = "runs_active"
	MetricSinkBatches      = "sink_batches_total"
	MetricSinkBatchSeconds = "sink_batch_seconds"
)

var CounterRowsGenerated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricRowsGenerated,
		Help:      "Rows produced by the generation engine.",
	},
	[]string{"entity"},
)

var CounterNullsInjected = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricNullsInjected,
		Help:      "Values replaced by null through a property's null ratio.",
	},
	[]string{"entity", "property"},
)

var CounterGenerationErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricGenerationErrors,
		Help:      "Generation failures by error code.",
	},
	[]string{"code"},
)

var CounterRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricRuns,
		Help:      "Finished runs by terminal status.",
	},
	[]string{"status"},
)

var GaugeRunsActive = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      MetricRunsActive,
		Help:      "Runs currently executing.",
	},
)

var CounterSinkBatches = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricSinkBatches,
		Help:      "Batches written to targets.",
	},
	[]string{"kind"},
)

var HistogramSinkBatchSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      MetricSinkBatchSeconds,
		Help:      "Time spent writing one batch to a target.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	},
	[]string{"kind"},
)

func init() {
	prometheus.MustRegister(CounterRowsGenerated)
	prometheus.MustRegister(CounterNullsInjected)
	prometheus.MustRegister(CounterGenerationErrors)
	prometheus.MustRegister(CounterRuns)
	prometheus.MustRegister(GaugeRunsActive)
	prometheus.MustRegister(CounterSinkBatches)
	prometheus.MustRegister(HistogramSinkBatchSeconds)
}

// Handler serves the default registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
