package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	SearchRequestsTotal    *prometheus.CounterVec
	SearchRequestDuration  prometheus.Histogram
	SearchRequestsInFlight prometheus.Gauge

	ProgressEventsTotal *prometheus.CounterVec
}

// New registers collectors on reg. A nil reg creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		SearchRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exa_search_requests_total",
				Help: "Total number of Exa search requests",
			},
			[]string{"status"},
		),
		SearchRequestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "exa_search_request_duration_seconds",
				Help:    "Exa search request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),
		SearchRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "exa_search_requests_in_flight",
				Help: "Number of Exa searches currently running",
			},
		),

		ProgressEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exa_search_progress_events_total",
				Help: "Total number of progress events emitted",
			},
			[]string{"status"},
		),
	}

	return m
}

// NewRegistry returns a registry preloaded with Go runtime and process
// collectors, for serving alongside the collectors from New.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordSearchRequest(status string, duration time.Duration) {
	m.SearchRequestsTotal.WithLabelValues(status).Inc()
	m.SearchRequestDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordProgressEvent(status string) {
	m.ProgressEventsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncRequestsInFlight() {
	m.SearchRequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.SearchRequestsInFlight.Dec()
}
