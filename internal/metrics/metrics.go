package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the support engine. All
// fields are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	// Turns counts processed turns by detected intent.
	Turns *prometheus.CounterVec
	// TicketsCreated counts successfully finalized support tickets.
	TicketsCreated prometheus.Counter
	// TicketFailures counts ticket finalizations the store rejected.
	TicketFailures prometheus.Counter
	// InboundMessages counts messages received, by channel.
	InboundMessages *prometheus.CounterVec
	// ActiveSessions tracks currently live chat sessions.
	ActiveSessions prometheus.Gauge
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autobot_turns_total",
			Help: "Chat turns processed, by detected intent.",
		}, []string{"intent"}),
		TicketsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "autobot_tickets_created_total",
			Help: "Support tickets finalized and persisted.",
		}),
		TicketFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "autobot_ticket_failures_total",
			Help: "Ticket finalizations rejected by the store.",
		}),
		InboundMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autobot_inbound_messages_total",
			Help: "Messages received from chat channels.",
		}, []string{"channel"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "autobot_active_sessions",
			Help: "Chat sessions currently held in memory.",
		}),
	}
}

// Handler returns an http.Handler serving the metrics in Prometheus text
// format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
