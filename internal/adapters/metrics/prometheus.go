// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jobrunner/georef/internal/ports/output"
)

// Collector implements the MetricsCollector port using Prometheus.
type Collector struct {
	gatherer prometheus.Gatherer

	resolveCounter      *prometheus.CounterVec
	resolveDuration     prometheus.Histogram
	transformedPoints   *prometheus.CounterVec
	transformDuration   prometheus.Histogram
	catalogLoaded       prometheus.Gauge
	catalogReloads      *prometheus.CounterVec
	storageOperations   *prometheus.CounterVec
	storageDuration     *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector registered with the default
// Prometheus registry.
func NewCollector(namespace string) *Collector {
	return NewCollectorWithRegistry(namespace, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewCollectorWithRegistry creates a collector registered with reg and
// served from gatherer.
func NewCollectorWithRegistry(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Collector {
	if namespace == "" {
		namespace = "georef"
	}
	factory := promauto.With(reg)

	return &Collector{
		gatherer: gatherer,

		resolveCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolves_total",
				Help:      "Total number of EPSG code resolutions",
			},
			[]string{"stage", "status"},
		),

		resolveDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolve_duration_seconds",
				Help:      "EPSG resolution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		transformedPoints: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transformed_points_total",
				Help:      "Total number of transformed points",
			},
			[]string{"status"},
		),

		transformDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transform_duration_seconds",
				Help:      "Batch transformation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		catalogLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "catalog_loaded",
				Help:      "1 when an EPSG catalog is open",
			},
		),

		catalogReloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_reloads_total",
				Help:      "Total number of catalog reloads",
			},
			[]string{"status"},
		),

		storageOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),

		storageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// IncResolveCount implements output.MetricsCollector.
func (c *Collector) IncResolveCount(stage string, success bool) {
	c.resolveCounter.WithLabelValues(stage, status(success)).Inc()
}

// ObserveResolveDuration implements output.MetricsCollector.
func (c *Collector) ObserveResolveDuration(duration time.Duration) {
	c.resolveDuration.Observe(duration.Seconds())
}

// AddTransformedPoints implements output.MetricsCollector.
func (c *Collector) AddTransformedPoints(ok, failed int) {
	c.transformedPoints.WithLabelValues("ok").Add(float64(ok))
	c.transformedPoints.WithLabelValues("failed").Add(float64(failed))
}

// ObserveTransformDuration implements output.MetricsCollector.
func (c *Collector) ObserveTransformDuration(duration time.Duration) {
	c.transformDuration.Observe(duration.Seconds())
}

// SetCatalogLoaded implements output.MetricsCollector.
func (c *Collector) SetCatalogLoaded(loaded bool) {
	if loaded {
		c.catalogLoaded.Set(1)
		return
	}
	c.catalogLoaded.Set(0)
}

// IncCatalogReloads implements output.MetricsCollector.
func (c *Collector) IncCatalogReloads(success bool) {
	c.catalogReloads.WithLabelValues(status(success)).Inc()
}

// IncStorageOperations increments storage operation counter.
func (c *Collector) IncStorageOperations(operation string, success bool) {
	c.storageOperations.WithLabelValues(operation, status(success)).Inc()
}

// ObserveStorageDuration records storage operation duration.
func (c *Collector) ObserveStorageDuration(operation string, duration time.Duration) {
	c.storageDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncHTTPRequests increments the HTTP request counter.
func (c *Collector) IncHTTPRequests(method, path, status string) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveHTTPDuration records HTTP request duration.
func (c *Collector) ObserveHTTPDuration(method, path string, duration time.Duration) {
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the Prometheus HTTP handler for the collector's
// registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Middleware returns HTTP middleware for metrics collection.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := routeLabel(r)
		c.IncHTTPRequests(r.Method, path, statusToString(wrapped.statusCode))
		c.ObserveHTTPDuration(r.Method, path, time.Since(start))
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// routeLabel returns the matched route template, so every EPSG code
// shares one label value. Unrouted requests fall back to normalizePath.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath replaces numeric path segments so that every EPSG code
// shares one label value.
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if _, err := strconv.Atoi(s); err == nil {
			segments[i] = "{code}"
		}
	}
	return strings.Join(segments, "/")
}

// statusToString converts HTTP status code to string category.
func statusToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

var _ output.MetricsCollector = (*Collector)(nil)
