// internal/api/router.go
//
// chi router for the newsletter API.
//
// Context
// -------
// Middleware order, outermost first:
//
//  1. RequestID  – request id for logs.
//  2. RealIP     – honour X-Forwarded-For from the proxy.
//  3. RequestLogger, Recoverer, Security, Instrument.
//
// Routes: GET /health_check, POST /subscribe, GET /metrics.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Tombleron/z2p/internal/metrics"
	"github.com/Tombleron/z2p/internal/middleware"
)

// Deps is everything NewRouter needs.  Gatherer defaults to
// prometheus.DefaultGatherer.
type Deps struct {
	DB       sqlx.ExtContext
	Log      *zap.SugaredLogger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// NewRouter builds the chi mux with the middleware stack and all routes.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	h := NewHandlers(d.DB, log, d.Metrics)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security)
	if d.Metrics != nil {
		r.Use(middleware.Instrument(d.Metrics))
	}

	r.Get("/health_check", h.HealthCheck)
	r.Post("/subscribe", h.Subscribe)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}
