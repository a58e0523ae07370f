// Package metrics exposes Prometheus counters for the signaling core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Joins            prometheus.Counter
	Leaves           prometheus.Counter
	RelaysForwarded  *prometheus.CounterVec
	RelaysDropped    prometheus.Counter
	BroadcastDropped prometheus.Counter
}

func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Joins: factory.NewCounter(prometheus.CounterOpts{
			Name: "meet_joins_total",
			Help: "Participants joined a meeting.",
		}),
		Leaves: factory.NewCounter(prometheus.CounterOpts{
			Name: "meet_leaves_total",
			Help: "Participants left a meeting, explicitly or by disconnect.",
		}),
		RelaysForwarded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meet_relays_forwarded_total",
			Help: "Negotiation payloads forwarded to a resolved connection.",
		}, []string{"kind"}),
		RelaysDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "meet_relays_dropped_total",
			Help: "Negotiation payloads dropped because the target had no live connection.",
		}),
		BroadcastDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "meet_broadcast_dropped_total",
			Help: "Presence events dropped by per-connection backpressure.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
