// Package metrics implements Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SlotsForwardedTotal counts slots copied from a source ring to a sink ring
	SlotsForwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nmbridge_slots_forwarded_total",
			Help: "Total number of slots forwarded",
		},
		[]string{"direction"},
	)

	// BytesForwardedTotal counts payload bytes forwarded
	BytesForwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nmbridge_bytes_forwarded_total",
			Help: "Total number of payload bytes forwarded",
		},
		[]string{"direction"},
	)

	// PassesTotal counts transfer passes by how they ended
	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nmbridge_passes_total",
			Help: "Total number of transfer passes by stop reason",
		},
		[]string{"direction", "stop"},
	)

	// PassDurationSeconds measures one transfer pass
	PassDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nmbridge_pass_duration_seconds",
			Help:    "Duration of transfer passes in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0000001, 2, 20), // 100ns to ~50ms
		},
		[]string{"direction"},
	)

	// PollTotal counts readiness waits by outcome
	PollTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nmbridge_poll_total",
			Help: "Total number of readiness waits by result (ready, timeout, error)",
		},
		[]string{"result"},
	)

	// EndpointErrorsTotal counts error readiness reported per endpoint
	EndpointErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nmbridge_endpoint_errors_total",
			Help: "Total number of error readiness events per endpoint",
		},
		[]string{"endpoint"},
	)

	// RingSlotsPending tracks slots available to the bridge after the last pass
	RingSlotsPending = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nmbridge_ring_slots_pending",
			Help: "Slots between cur and tail per endpoint side after the last pass",
		},
		[]string{"endpoint", "side"},
	)
)

// Poll results.
const (
	PollReady   = "ready"
	PollTimeout = "timeout"
	PollError   = "error"
)

// RecordPass records the outcome of one transfer pass.
func RecordPass(direction, stop string, slots, bytes int, d time.Duration) {
	PassesTotal.WithLabelValues(direction, stop).Inc()
	PassDurationSeconds.WithLabelValues(direction).Observe(d.Seconds())
	if slots == 0 {
		return
	}
	SlotsForwardedTotal.WithLabelValues(direction).Add(float64(slots))
	BytesForwardedTotal.WithLabelValues(direction).Add(float64(bytes))
}
