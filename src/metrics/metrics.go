// Package metrics exposes Prometheus instrumentation for the dashboard's load, realtime and
// bulk paths.
//
// All methods are safe on a nil *Metrics so components can be built without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mwa"

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// loadDuration measures collection loads.
	// Labels: outcome (committed, superseded, error)
	loadDuration *prometheus.HistogramVec

	// messages counts push messages handled by the realtime channel.
	// Labels: type (message type, or "unknown"/"malformed")
	messages *prometheus.CounterVec

	// stateChanges counts realtime channel transitions.
	// Labels: state
	stateChanges *prometheus.CounterVec

	// reconnects counts reconnect attempts.
	reconnects prometheus.Counter

	// bulkContacts counts contacts processed by bulk actions.
	// Labels: action, result (succeeded, failed)
	bulkContacts *prometheus.CounterVec

	// bulkErrors counts bulk calls that failed as a whole.
	// Labels: action
	bulkErrors *prometheus.CounterVec

	// collectionSize is the number of contacts held by the store.
	collectionSize prometheus.Gauge

	// relayed counts envelopes mirrored into the broker.
	relayed *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		loadDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "load_duration_seconds",
			Help:      "Time to fetch the full contact collection",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"outcome"}),
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "messages_total",
			Help:      "Push messages received by type",
		}, []string{"type"}),
		stateChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "state_changes_total",
			Help:      "Realtime channel state transitions",
		}, []string{"state"}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "reconnect_attempts_total",
			Help:      "Reconnect attempts made by the realtime channel",
		}),
		bulkContacts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bulk",
			Name:      "contacts_total",
			Help:      "Contacts processed by bulk actions",
		}, []string{"action", "result"}),
		bulkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bulk",
			Name:      "errors_total",
			Help:      "Bulk calls that failed as a whole",
		}, []string{"action"}),
		collectionSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "contacts",
			Help:      "Contacts currently held by the dashboard",
		}),
		relayed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "envelopes_total",
			Help:      "Envelopes mirrored into the broker",
		}, []string{"result"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveLoad(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.loadDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) IncMessage(msgType string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(msgType).Inc()
}

func (m *Metrics) IncStateChange(state string) {
	if m == nil {
		return
	}
	m.stateChanges.WithLabelValues(state).Inc()
}

func (m *Metrics) IncReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// ObserveBulk records the per-contact outcome of one bulk call.
func (m *Metrics) ObserveBulk(action string, succeeded, failed int) {
	if m == nil {
		return
	}
	m.bulkContacts.WithLabelValues(action, "succeeded").Add(float64(succeeded))
	m.bulkContacts.WithLabelValues(action, "failed").Add(float64(failed))
}

func (m *Metrics) IncBulkError(action string) {
	if m == nil {
		return
	}
	m.bulkErrors.WithLabelValues(action).Inc()
}

func (m *Metrics) SetCollectionSize(n int) {
	if m == nil {
		return
	}
	m.collectionSize.Set(float64(n))
}

func (m *Metrics) IncRelayed(result string) {
	if m == nil {
		return
	}
	m.relayed.WithLabelValues(result).Inc()
}
