package sqlbase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// queryDuration measures statement execution time.
	// Labels: driver, operation (query, exec, begin, commit, rollback), status (ok, error)
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "phasetrack",
		Subsystem: "store",
		Name:      "query_duration_seconds",
		Help:      "Time spent executing statements against the traceability store",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"driver", "operation", "status"})

	// acquireFailures counts connection acquisitions that did not succeed.
	// Labels: reason (exhausted, connection, canceled)
	acquireFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phasetrack",
		Subsystem: "store",
		Name:      "acquire_failures_total",
		Help:      "Connection acquisitions that failed",
	}, []string{"reason"})
)

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}
