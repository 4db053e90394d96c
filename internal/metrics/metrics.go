package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	cockpit = "cockpit"

	pollAttemptsTotal = "poll_attempts_total"
	runsTotal         = "runs_total"
	currentStage      = "current_stage"
	backendErrors     = "backend_errors_total"

	// Labels
	jobStatusLabel = "status"
	outcomeLabel   = "outcome"
	stageLabel     = "stage"
	opLabel        = "op"
)

/**
* Metrics definition
**/
var pollAttemptsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: cockpit,
		Name:      pollAttemptsTotal,
		Help:      "number of job status queries, by observed status",
	},
	[]string{jobStatusLabel},
)

var runsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: cockpit,
		Name:      runsTotal,
		Help:      "number of finished pipeline runs, by outcome",
	},
	[]string{outcomeLabel},
)

var stageMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Subsystem: cockpit,
		Name:      currentStage,
		Help:      "1 for the stage the cockpit is showing, 0 otherwise",
	},
	[]string{stageLabel},
)

var backendErrorsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: cockpit,
		Name:      backendErrors,
		Help:      "number of failed backend calls, by operation",
	},
	[]string{opLabel},
)

// IncreasePollAttempts counts one job status query that observed status.
// Transport failures are recorded as "error".
func IncreasePollAttempts(status string) {
	pollAttemptsMetric.With(prometheus.Labels{jobStatusLabel: status}).Inc()
}

// IncreaseRuns counts a finished run. outcome is locked, ready or failed.
func IncreaseRuns(outcome string) {
	runsMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

// IncreaseBackendErrors counts a failed backend call for op.
func IncreaseBackendErrors(op string) {
	backendErrorsMetric.With(prometheus.Labels{opLabel: op}).Inc()
}

// SetStage marks current as the only active stage among all.
func SetStage(current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		stageMetric.With(prometheus.Labels{stageLabel: s}).Set(v)
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(pollAttemptsMetric)
	prometheus.MustRegister(runsMetric)
	prometheus.MustRegister(stageMetric)
	prometheus.MustRegister(backendErrorsMetric)
}
