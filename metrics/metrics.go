// Package metrics exposes process counters for the engine, the stream
// sessions, the chat router and the order desk in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stockchat"

// Registry owns a private Prometheus registry. It implements the observer
// interfaces of the live, stream, chat and orders packages.
type Registry struct {
	reg *prometheus.Registry

	passes       prometheus.Counter
	passDuration prometheus.Histogram
	itemFailures *prometheus.CounterVec
	streams      prometheus.Gauge
	pushes       *prometheus.CounterVec
	routes       *prometheus.CounterVec
	orders       *prometheus.CounterVec
}

// New registers all collectors, plus the Go runtime and process collectors.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_passes_total",
			Help:      "Completed tick passes over the live store.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_pass_duration_seconds",
			Help:      "Time spent updating every item in one pass.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		itemFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_item_failures_total",
			Help:      "Item updates that failed and were skipped.",
		}, []string{"kind"}),
		streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Open subscription sessions.",
		}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_pushes_total",
			Help:      "Snapshot messages written to subscribers.",
		}, []string{"type"}),
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_routes_total",
			Help:      "Chat messages by resolved route.",
		}, []string{"route"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Order requests by outcome.",
		}, []string{"outcome"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.passes, r.passDuration, r.itemFailures, r.streams, r.pushes, r.routes, r.orders,
	)
	return r
}

// Gatherer returns the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
