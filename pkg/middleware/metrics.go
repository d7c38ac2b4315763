// pkg/middleware/metrics.go
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osbridge_http_requests_total",
		Help: "Admin API requests by method and status.",
	}, []string{"method", "status"})
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "osbridge_http_request_duration_seconds",
		Help:    "Admin API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)
			httpRequests.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Inc()
			httpDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
