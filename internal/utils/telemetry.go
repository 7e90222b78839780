package utils

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roi_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roi_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	importsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roi_imports_total",
		Help: "CSV imports by outcome (success or error name).",
	}, []string{"outcome"})

	importDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "roi_import_duration_seconds",
		Help:    "Wall time of CSV imports, parse through commit.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	datasetRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roi_dataset_rows",
		Help: "Rows in the dataset after the last successful import.",
	})
)

// Metrics records request counts and latency labelled by chi route pattern,
// so path parameters do not explode label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := routePattern(r)
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status(ww))).Inc()
		httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveImport records one finished import. rows is only meaningful on success.
func ObserveImport(outcome string, rows int, elapsed time.Duration) {
	importsTotal.WithLabelValues(outcome).Inc()
	importDuration.Observe(elapsed.Seconds())
	if outcome == "success" {
		datasetRows.Set(float64(rows))
	}
}

func MetricsHandler() http.Handler { return promhttp.Handler() }
