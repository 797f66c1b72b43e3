package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path"},
	)

	// RouteOptimizations counts single-route optimizations by outcome.
	RouteOptimizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_optimizations_total", Help: "Route optimizations by outcome."},
		[]string{"outcome"},
	)
	RouteStops = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "route_stops", Help: "Stops per optimized route.", Buckets: []float64{1, 2, 5, 10, 20, 40, 80}},
	)
	GeocodeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "geocode_failures_total", Help: "Delivery points that could not be geocoded."},
	)

	// Tasks counts batch task creation results by status (created, failed, rolled_back).
	Tasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tasks_total", Help: "Task creation results by status."},
		[]string{"status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers the collectors once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(RouteOptimizations)
		Registry.MustRegister(RouteStops)
		Registry.MustRegister(GeocodeFailures)
		Registry.MustRegister(Tasks)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
