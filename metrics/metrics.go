// Package metrics exports Prometheus instrumentation for test runs.
package metrics

import (
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/testlane/testlane/types"
)

const (
	MetricsNamespace = "testlane"
)

var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of fatal engine errors",
	}, []string{
		"error",
	})

	unitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "units_total",
		Help:      "Count of executed test units",
	}, []string{
		"run_id",
		"suite",
		"result",
	})

	runUnits = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_units",
		Help:      "Counter totals of the last completed run",
	}, []string{
		"run_id",
		"counter",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall clock duration of the last completed run",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

// RecordError increments the error counter for the given fatal error.
func RecordError(err error) {
	errorsTotal.WithLabelValues(errToLabel(err)).Inc()
}

// RecordUnit records the outcome of a single unit execution.
func RecordUnit(runID, suite string, status types.TestStatus) {
	unitsTotal.WithLabelValues(runID, suite, string(status)).Inc()
}

// RecordRun records the aggregate counters and duration of a run.
func RecordRun(runID string, counters types.Counters, duration time.Duration) {
	runUnits.WithLabelValues(runID, "test").Set(float64(counters.Test))
	runUnits.WithLabelValues(runID, "pass").Set(float64(counters.Pass))
	runUnits.WithLabelValues(runID, "fail").Set(float64(counters.Fail))
	runUnits.WithLabelValues(runID, "error").Set(float64(counters.Error))
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}
