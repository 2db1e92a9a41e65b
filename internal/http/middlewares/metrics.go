package middlewares

import (
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/passgrant/internal/metrics"
)

// WithMetrics instrumenta requests (contador, latencia, inflight). Con m nil
// no hace nada.
func WithMetrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method := strings.ToUpper(r.Method)
			path := metrics.NormalizePath(r.URL.Path)

			done := m.TrackInflight(method, path)
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				done()
				m.ObserveHTTP(method, path, rec.status, time.Since(start))
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
