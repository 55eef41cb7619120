// internal/middleware/metrics.go
//
// Prometheus request instrumentation.
//
// Context
// -------
// Instrument records one counter sample and one latency observation per
// request, labelled by chi route pattern rather than raw path, so
// `/subscribe?x=1` and `/subscribe` share a series.
//
// Notes
// -----
//   - Mount it with r.Use on the chi router; RoutePattern is only filled
//     in after routing, which is why labels are read after next returns.
//   - Oxford commas, two spaces after periods.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Tombleron/z2p/internal/metrics"
)

// Instrument records request count and latency per chi route pattern.
// Unmatched paths are folded into "unmatched" to keep label cardinality
// bounded.
func Instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
