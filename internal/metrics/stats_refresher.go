// Package metrics exposes prometheus collectors for the stats backend.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sigmapool",
		Subsystem: "stats_refresher",
		Name:      "cycles_total",
		Help:      "Count of stats refresh cycles.",
	}, []string{"result", "status"})
	refreshCycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sigmapool",
		Subsystem: "stats_refresher",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of stats refresh cycles.",
		Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"result", "status"})
	refreshLedgerErrors = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sigmapool",
		Subsystem: "stats_refresher",
		Name:      "ledger_walk_errors",
		Help:      "Error count reported by the last completed ledger walk.",
	}, []string{"result"})
)

// StatsRefresher tracks metrics for background stats refresh cycles.
type StatsRefresher struct{}

// NewStatsRefresher creates a StatsRefresher metrics collector.
func NewStatsRefresher() *StatsRefresher {
	return &StatsRefresher{}
}

// ObserveCycle records one refresh of the named result (wallet, epochs).
func (m StatsRefresher) ObserveCycle(result string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	refreshCyclesTotal.WithLabelValues(result, status).Inc()
	refreshCycleDuration.WithLabelValues(result, status).Observe(time.Since(started).Seconds())
}

// SetLedgerErrors publishes the error count of the latest ledger walk.
func (m StatsRefresher) SetLedgerErrors(result string, errorCount int) {
	refreshLedgerErrors.WithLabelValues(result).Set(float64(errorCount))
}
