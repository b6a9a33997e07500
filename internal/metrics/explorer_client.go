package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	explorerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sigmapool",
		Subsystem: "explorer_client",
		Name:      "operations_total",
		Help:      "Count of chain-indexer API operations.",
	}, []string{"operation", "source", "status"})
	explorerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sigmapool",
		Subsystem: "explorer_client",
		Name:      "operation_duration_seconds",
		Help:      "Duration of chain-indexer API operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "source", "status"})
)

// ExplorerClient tracks metrics for ledger client operations.
type ExplorerClient struct{}

// NewExplorerClient creates an ExplorerClient metrics collector.
func NewExplorerClient() *ExplorerClient {
	return &ExplorerClient{}
}

// Observe records duration and status of one upstream call.
func (m ExplorerClient) Observe(operation, source string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	if source == "" {
		source = "unknown"
	}

	explorerRequestsTotal.WithLabelValues(operation, source, status).Inc()
	explorerRequestDuration.WithLabelValues(operation, source, status).Observe(time.Since(started).Seconds())
}
