package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncResolveCount counts a resolution by the stage that produced it
	// ("cache", "gcs", "pcs", ..., or "failed").
	IncResolveCount(stage string, success bool)

	// ObserveResolveDuration records resolution duration.
	ObserveResolveDuration(duration time.Duration)

	// AddTransformedPoints counts transformed and failed points.
	AddTransformedPoints(ok, failed int)

	// ObserveTransformDuration records batch transformation duration.
	ObserveTransformDuration(duration time.Duration)

	// SetCatalogLoaded reports whether a catalog is open.
	SetCatalogLoaded(loaded bool)

	// IncCatalogReloads counts catalog reloads.
	IncCatalogReloads(success bool)

	// IncStorageOperations increments storage operation counter.
	IncStorageOperations(operation string, success bool)

	// ObserveStorageDuration records storage operation duration.
	ObserveStorageDuration(operation string, duration time.Duration)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncResolveCount implements MetricsCollector.
func (n *NoOpMetrics) IncResolveCount(_ string, _ bool) {}

// ObserveResolveDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveResolveDuration(_ time.Duration) {}

// AddTransformedPoints implements MetricsCollector.
func (n *NoOpMetrics) AddTransformedPoints(_, _ int) {}

// ObserveTransformDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveTransformDuration(_ time.Duration) {}

// SetCatalogLoaded implements MetricsCollector.
func (n *NoOpMetrics) SetCatalogLoaded(_ bool) {}

// IncCatalogReloads implements MetricsCollector.
func (n *NoOpMetrics) IncCatalogReloads(_ bool) {}

// IncStorageOperations implements MetricsCollector.
func (n *NoOpMetrics) IncStorageOperations(_ string, _ bool) {}

// ObserveStorageDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}
