// Package metrics exposes Prometheus instrumentation for the messaging layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors the server updates at runtime.
type Metrics struct {
	MessagesSent     prometheus.Counter
	PushesDelivered  prometheus.Counter
	PushesSkipped    prometheus.Counter
	ConnectedClients prometheus.Gauge
}

// New registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "gamelink_messages_sent_total",
			Help: "Direct messages persisted by the store.",
		}),
		PushesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "gamelink_pushes_delivered_total",
			Help: "newMessage events handed to a live connection.",
		}),
		PushesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "gamelink_pushes_skipped_total",
			Help: "newMessage events dropped because the receiver was offline or slow.",
		}),
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gamelink_connected_clients",
			Help: "Users with an active push connection.",
		}),
	}
}
