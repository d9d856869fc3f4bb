// Package metrics exports bus activity in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/philly/ipcbus/internal/platform/eventbus"
)

const namespace = "ipcbus"

// Metrics implements eventbus.Observer. Each instance owns its registry,
// so tests and multiple buses never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	broadcasts     *prometheus.CounterVec
	deliveries     *prometheus.CounterVec
	relays         *prometheus.CounterVec
	requests       *prometheus.CounterVec
	requestLatency prometheus.Histogram
	panics         prometheus.Counter
}

// New creates the collectors, plus the standard Go and process ones.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		broadcasts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Events broadcast by this process",
		}, []string{"role"}),
		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_deliveries_total",
			Help:      "Fan-out deliveries to satellites",
		}, []string{"target", "result"}),
		relays: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relays_total",
			Help:      "Satellite broadcasts relayed to the coordinator",
		}, []string{"result"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_served_total",
			Help:      "Delegated requests executed by the coordinator",
		}, []string{"result"}),
		requestLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Delegated request execution time",
			// 12 buckets from 5ms to 30s.
			Buckets: prometheus.ExponentialBucketsRange(0.005, 30, 12),
		}),
		panics: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_panics_total",
			Help:      "Listeners that panicked during dispatch",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TrackConnectedSatellites exports the number of live satellite links.
func (m *Metrics) TrackConnectedSatellites(count func() int) {
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "satellites_connected",
		Help:      "Satellites with a live connection",
	}, func() float64 { return float64(count()) })
}

func (m *Metrics) Broadcast(role eventbus.Role, _ eventbus.EventType) {
	m.broadcasts.WithLabelValues(role.String()).Inc()
}

func (m *Metrics) Delivered(target string, err error) {
	m.deliveries.WithLabelValues(target, result(err)).Inc()
}

func (m *Metrics) Relayed(err error) {
	m.relays.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) RequestServed(d time.Duration, err error) {
	m.requests.WithLabelValues(result(err)).Inc()
	m.requestLatency.Observe(d.Seconds())
}

func (m *Metrics) ListenerPanicked(eventbus.EventType) {
	m.panics.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var _ eventbus.Observer = (*Metrics)(nil)
