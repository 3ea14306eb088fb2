package middleware

import (
	"net/http"
	"strconv"
	"time"

	"utilitybill/backend/services/bill-service/internal/metrics"
)

// Instrument records request duration under a fixed route label.
func Instrument(m *metrics.Metrics, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			m.ObserveRequest(route, r.Method, strconv.Itoa(rec.Status()), time.Since(start))
		})
	}
}
