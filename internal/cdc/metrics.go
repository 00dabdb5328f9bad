package cdc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the consumer's Prometheus instruments.
type Metrics struct {
	consumed        prometheus.Counter
	decodeErrors    prometheus.Counter
	connectFailures prometheus.Counter
	state           prometheus.Gauge
}

// NewMetrics registers the consumer metrics with reg. A nil reg yields
// unregistered instruments.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		consumed: f.NewCounter(prometheus.CounterOpts{
			Name: "cdc_events_consumed_total",
			Help: "Change events decoded and written to the event log.",
		}),
		decodeErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "cdc_decode_errors_total",
			Help: "Messages skipped because their payload was not valid JSON.",
		}),
		connectFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "cdc_connect_failures_total",
			Help: "Failed broker connection attempts.",
		}),
		state: f.NewGauge(prometheus.GaugeOpts{
			Name: "cdc_consumer_state",
			Help: "Current consumer state (0=disconnected 1=connecting 2=connected 3=subscribed 4=consuming).",
		}),
	}
}
