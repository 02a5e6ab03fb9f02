package extract

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pipelineRunsTotal counts extraction runs by strategy.
	pipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratemyfit",
		Subsystem: "extract",
		Name:      "runs_total",
		Help:      "Total extraction pipeline runs by strategy",
	}, []string{"strategy"})

	// itemsEmittedTotal counts final items by source.
	itemsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratemyfit",
		Subsystem: "extract",
		Name:      "items_total",
		Help:      "Total items emitted by the pipeline by source",
	}, []string{"source"})

	// tagsDroppedTotal counts items discarded by the grammar enforcer.
	tagsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ratemyfit",
		Subsystem: "extract",
		Name:      "tags_dropped_total",
		Help:      "Total tags discarded by the grammar enforcer",
	})

	// sourceErrorsTotal counts failed sources. Labels: source (catalog, ai)
	sourceErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratemyfit",
		Subsystem: "extract",
		Name:      "source_errors_total",
		Help:      "Total extraction source failures by source",
	}, []string{"source"})

	// runDurationSeconds measures end-to-end pipeline latency.
	runDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ratemyfit",
		Subsystem: "extract",
		Name:      "run_duration_seconds",
		Help:      "Extraction pipeline latency by strategy",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"strategy"})
)
