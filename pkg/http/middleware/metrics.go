package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	applogger "MacroPull/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	opsRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macropull_ops_requests_total",
			Help: "Total number of ops listener requests",
		},
		[]string{"path", "method", "status"},
	)

	opsRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "macropull_ops_request_duration_seconds",
			Help:    "Ops listener request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"path", "method", "status", "class"},
	)

	opsInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "macropull_ops_in_flight_requests",
			Help: "Current number of in-flight ops listener requests",
		},
		[]string{"path", "method"},
	)

	opsResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "macropull_ops_response_size_bytes",
			Help:    "Ops listener response size in bytes",
			Buckets: []float64{200, 500, 1_000, 2_000, 5_000, 10_000, 50_000, 100_000, 500_000, 1_000_000},
		},
		[]string{"path", "method", "status", "class"},
	)

	regOnce sync.Once
)

// Metrics is a net/http middleware that records request metrics. The
// ops listener's routes are fixed paths like "/panel", so the raw URL
// path is a bounded label.
func Metrics(l *applogger.Logger, slowThreshold time.Duration) func(http.Handler) http.Handler {
	regOnce.Do(func() {
		prometheus.MustRegister(opsRequestsTotal, opsRequestDuration, opsInFlight, opsResponseSize)
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			method := r.Method

			opsInFlight.WithLabelValues(path, method).Inc()
			start := time.Now()

			rw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			elapsed := time.Since(start)
			status := strconv.Itoa(rw.status)
			class := statusClass(rw.status)

			opsRequestsTotal.WithLabelValues(path, method, status).Inc()
			opsRequestDuration.WithLabelValues(path, method, status, class).Observe(elapsed.Seconds())
			opsResponseSize.WithLabelValues(path, method, status, class).Observe(float64(rw.written))
			opsInFlight.WithLabelValues(path, method).Dec()

			logOutcome(l, slowThreshold, path, method, status, elapsed, rw)
		})
	}
}

// logOutcome reports 5xx responses as errors and anything slower than
// the threshold as a warning. Healthy fast requests stay quiet; the
// Echo surface already logs every request.
func logOutcome(l *applogger.Logger, slowThreshold time.Duration, path, method, status string, elapsed time.Duration, rw *metricsResponseWriter) {
	if l == nil {
		return
	}

	fields := []applogger.Field{
		applogger.String("path", path),
		applogger.String("method", method),
		applogger.String("status", status),
		applogger.Duration("duration_ms", elapsed),
		applogger.Int("bytes", rw.written),
	}

	switch {
	case rw.status >= 500:
		l.Error("ops request failed", fields...)
	case slowThreshold > 0 && elapsed >= slowThreshold:
		l.Warn("ops request slow", fields...)
	}
}

type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
