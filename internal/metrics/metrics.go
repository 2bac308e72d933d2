// Package metrics provides Prometheus metrics for ccspend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the server.
type Collector struct {
	LoadsTotal    prometheus.Counter
	LoadDuration  prometheus.Histogram
	EventsLoaded  prometheus.Gauge
	LastLoadTime  prometheus.Gauge
	RequestsTotal *prometheus.CounterVec
}

// New creates a collector registered on the default registry.
func New() *Collector {
	return newWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a collector on a custom registry. Useful for
// tests to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newWith(promauto.With(reg))
}

func newWith(factory promauto.Factory) *Collector {
	return &Collector{
		LoadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ccspend",
			Name:      "loads_total",
			Help:      "Total number of full log scans performed",
		}),
		LoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ccspend",
			Name:      "load_duration_seconds",
			Help:      "Duration of full log scans in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		EventsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ccspend",
			Name:      "events_loaded",
			Help:      "Number of usage events in the current snapshot",
		}),
		LastLoadTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ccspend",
			Name:      "last_load_timestamp",
			Help:      "Unix timestamp of the last completed scan",
		}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ccspend",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests processed",
		}, []string{"method", "path", "status"}),
	}
}
