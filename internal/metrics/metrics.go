package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	RemoteSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_remote_sync_total",
		Help: "Calls made to the external tracking platform, by operation and outcome.",
	}, []string{"operation", "outcome"})

	RemoteSyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleet_remote_sync_duration_seconds",
		Help:    "Latency of calls to the external tracking platform.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	UnitTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_unit_transitions_total",
		Help: "Inventory unit status transitions, by unit kind and target status.",
	}, []string{"kind", "to"})

	Subscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fleet_subscriptions",
		Help: "Current subscriptions per time-left status, as of the last sweep.",
	}, []string{"status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleet_http_request_duration_seconds",
		Help:    "HTTP request latency by route template, method and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "code"})
)

// ObserveRemoteSync records one finished call to the tracking platform.
func ObserveRemoteSync(operation string, started time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	RemoteSyncTotal.WithLabelValues(operation, outcome).Inc()
	RemoteSyncDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
