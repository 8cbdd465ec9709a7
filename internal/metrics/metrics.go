// Package metrics provides Prometheus instrumentation for the valuation
// engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ValuationsTotal counts valuations, partitioned by trade kind and
	// pricing method ("Payment" for payments).
	ValuationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradeval_valuations_total",
		Help: "Total number of trade valuations performed",
	}, []string{"kind", "method"})

	// RecalculationDuration tracks full recalculation passes over the
	// trade collection. Monte Carlo and binomial cost scales with
	// runs/steps, so buckets reach further than the HTTP ones.
	RecalculationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradeval_recalculation_duration_seconds",
		Help:    "Duration of full recalculation passes in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	})

	// ValuationProblems counts per-trade valuation failures within
	// recalculation batches.
	ValuationProblems = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradeval_valuation_problems_total",
		Help: "Trade valuations that failed within a batch",
	})

	// EditRejections counts edit operations rejected at the validation
	// boundary.
	EditRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradeval_edit_rejections_total",
		Help: "Trade edits rejected by validation",
	}, []string{"field"})

	// ActiveTrades tracks the size of the trade collection.
	ActiveTrades = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradeval_active_trades",
		Help: "Number of trades currently held",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradeval_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradeval_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradeval_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern for the path label to avoid high cardinality:
		// "/api/v1/trades/{tradeID}", not one series per trade id. The
		// pattern is only known after routing, hence read post-serve.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
