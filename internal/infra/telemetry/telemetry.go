package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gate's Prometheus collectors. A nil *Metrics is a
// valid no-op receiver so the machine can run uninstrumented in tests.
type Metrics struct {
	routeTransitions    *prometheus.CounterVec
	linkEvents          *prometheus.CounterVec
	staleProfileResults prometheus.Counter
}

// NewMetrics registers the gate collectors with the supplied registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		routeTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymtrack",
			Subsystem: "gate",
			Name:      "route_transitions_total",
			Help:      "Resolved route changes, partitioned by destination route.",
		}, []string{"route"}),
		linkEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymtrack",
			Subsystem: "gate",
			Name:      "deep_link_events_total",
			Help:      "Classified deep link events, partitioned by kind.",
		}, []string{"kind"}),
		staleProfileResults: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gymtrack",
			Subsystem: "gate",
			Name:      "stale_profile_results_total",
			Help:      "Profile lookups discarded because the session changed mid-flight.",
		}),
	}
}

// RouteChanged records a resolved-route transition.
func (m *Metrics) RouteChanged(route string) {
	if m == nil {
		return
	}
	m.routeTransitions.WithLabelValues(route).Inc()
}

// LinkReceived records a classified deep link event.
func (m *Metrics) LinkReceived(kind string) {
	if m == nil {
		return
	}
	m.linkEvents.WithLabelValues(kind).Inc()
}

// StaleProfileResultDiscarded records a dropped out-of-date lookup.
func (m *Metrics) StaleProfileResultDiscarded() {
	if m == nil {
		return
	}
	m.staleProfileResults.Inc()
}
