package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// OptimizeRuns counts optimization calls by strategy and outcome
	OptimizeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_optimize_runs_total", Help: "Route optimizations by strategy and outcome."},
		[]string{"strategy", "outcome"},
	)
	// OptimizeDuration tracks solver time in milliseconds
	OptimizeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "route_optimize_duration_ms", Help: "Solver time in ms.", Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000}},
		[]string{"strategy"},
	)
	// OptimizeStops records the problem size handed to each strategy
	OptimizeStops = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "route_optimize_stops", Help: "Stops per optimization.", Buckets: []float64{1, 3, 5, 10, 20, 50, 100, 250, 500}},
		[]string{"strategy"},
	)
	// TourCacheLookups counts cache hits and misses
	TourCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tour_cache_lookups_total", Help: "Tour cache lookups by result."},
		[]string{"result"},
	)
	// CatalogMessages counts MQTT catalog messages by result
	CatalogMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "catalog_messages_total", Help: "Catalog ingest messages by result."},
		[]string{"result"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(OptimizeRuns)
		Registry.MustRegister(OptimizeDuration)
		Registry.MustRegister(OptimizeStops)
		Registry.MustRegister(TourCacheLookups)
		Registry.MustRegister(CatalogMessages)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
