package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects booking and Pipedrive call counters on a private registry
type Metrics struct {
	registry        *prometheus.Registry
	bookingsTotal   *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the service metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipcal_bookings_total",
			Help: "Cal.com bookings received, by outcome.",
		}, []string{"outcome"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipcal_pipedrive_requests_total",
			Help: "Requests sent to the Pipedrive API, by endpoint and HTTP status.",
		}, []string{"endpoint", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipcal_pipedrive_request_duration_seconds",
			Help:    "Pipedrive API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	m.registry.MustRegister(m.bookingsTotal, m.requestsTotal, m.requestDuration)
	return m
}

// ObserveBooking counts a handled webhook. outcome is one of
// "synced", "rejected", "failed".
func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one Pipedrive call; status 0 means transport error
func (m *Metrics) ObserveRequest(endpoint string, status int, took time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requestsTotal.WithLabelValues(endpoint, label).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(took.Seconds())
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
