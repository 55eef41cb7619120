// Package metrics holds the Prometheus instruments exported on /metrics.
// Collectors are grouped in one struct and registered against the
// Registerer handed to New, so tests can use a private registry while
// the server uses prometheus.DefaultRegisterer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the full instrument set.  Zero value is invalid.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SubscriptionsTotal       prometheus.Counter
	SubscriptionErrorsTotal  *prometheus.CounterVec
	DatabasePingFailureTotal prometheus.Counter
}

// New builds every collector and registers it with reg.  It panics on a
// duplicate registration, matching prometheus.MustRegister.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Cumulative number of HTTP requests by route, method, and status.",
			}, []string{"route", "method", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by route and method.",
				Buckets: prometheus.DefBuckets,
			}, []string{"route", "method"}),

		SubscriptionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "subscriptions_total",
				Help: "Cumulative number of subscribers stored.",
			}),

		SubscriptionErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscription_errors_total",
				Help: "Cumulative number of rejected or failed subscriptions by reason.",
			}, []string{"reason"}),

		DatabasePingFailureTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "database_ping_failures_total",
				Help: "Cumulative number of failed database health probes.",
			}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SubscriptionsTotal,
		m.SubscriptionErrorsTotal,
		m.DatabasePingFailureTotal,
	)
	return m
}
