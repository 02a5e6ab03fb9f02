package feedback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// parserOutcomesTotal counts Parse results. Labels: path, mode
	parserOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratemyfit",
		Subsystem: "feedback",
		Name:      "parse_total",
		Help:      "Total feedback parses by terminal path and mode",
	}, []string{"path", "mode"})

	// analysisErrorsTotal counts failed upstream analysis calls by provider.
	analysisErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratemyfit",
		Subsystem: "feedback",
		Name:      "analysis_errors_total",
		Help:      "Total failed image analysis calls by provider",
	}, []string{"provider"})
)
