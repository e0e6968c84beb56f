package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts successfully executed trades by side
	TradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simex_trades_total",
			Help: "Total number of executed trades",
		},
		[]string{"side"},
	)

	// TradeRejectionsTotal counts rejected trades by reason
	TradeRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simex_trade_rejections_total",
			Help: "Total number of rejected trades",
		},
		[]string{"reason"},
	)

	// TradeDuration observes end-to-end trade execution time
	TradeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "simex_trade_duration_seconds",
			Help:    "Trade execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"side"},
	)

	// SettlementsTotal counts settlement references attached by outcome
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simex_settlements_total",
			Help: "Total number of settlement reference attachments",
		},
		[]string{"outcome"},
	)

	// HTTPRequestsTotal counts HTTP requests by method, path and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simex_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes HTTP request latency by method and path
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "simex_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Handler returns the Prometheus scrape endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latencies. The routed chi
// pattern is used as the path label so IDs don't explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
