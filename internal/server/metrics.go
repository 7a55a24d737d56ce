package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay's Prometheus collectors on a private registry so
// several hubs can coexist in one process (tests).
type Metrics struct {
	registry    *prometheus.Registry
	connections prometheus.Gauge
	roomMembers *prometheus.GaugeVec
	inbound     *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	dropped     prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roomrelay",
			Name:      "connections",
			Help:      "Registered WebSocket connections.",
		}),
		roomMembers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "roomrelay",
			Name:      "room_members",
			Help:      "Members currently joined to each room.",
		}, []string{"room"}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomrelay",
			Name:      "inbound_events_total",
			Help:      "Decoded client events by kind.",
		}, []string{"kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomrelay",
			Name:      "rejected_events_total",
			Help:      "Client frames rejected, by error code.",
		}, []string{"code"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomrelay",
			Name:      "dropped_deliveries_total",
			Help:      "Outbound frames skipped because the recipient was closed or saturated.",
		}),
	}
	m.registry.MustRegister(m.connections, m.roomMembers, m.inbound, m.rejected, m.dropped)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRooms(sizes map[string]int) {
	for room, n := range sizes {
		m.roomMembers.WithLabelValues(room).Set(float64(n))
	}
}
