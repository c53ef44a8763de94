package application

import (
	"context"
	"errors"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/ports/input"
	"github.com/jobrunner/georef/internal/ports/output"
)

// HealthService provides health check functionality.
type HealthService struct {
	catalog  output.CatalogStore
	dict     output.DictionaryStore
	engine   output.ProjectionEngine
	registry *CatalogRegistry
}

// NewHealthService creates a new health service. dict and registry may
// be nil.
func NewHealthService(
	catalog output.CatalogStore,
	dict output.DictionaryStore,
	engine output.ProjectionEngine,
	registry *CatalogRegistry,
) *HealthService {
	return &HealthService{
		catalog:  catalog,
		dict:     dict,
		engine:   engine,
		registry: registry,
	}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(_ context.Context) bool {
	return true
}

// IsReady reports whether definitions can be resolved from the catalog
// and transformations can run.
func (s *HealthService) IsReady(_ context.Context) bool {
	return s.catalogLoaded() && s.engineAvailable()
}

func (s *HealthService) catalogLoaded() bool {
	return s.catalog != nil && s.catalog.Loaded()
}

// engineAvailable probes the engine with a trivial geographic system.
func (s *HealthService) engineAvailable() bool {
	if s.engine == nil {
		return false
	}
	h, err := s.engine.Init("+proj=longlat +datum=WGS84 +no_defs")
	if err != nil {
		return !errors.Is(err, domain.ErrEngineUnavailable)
	}
	s.engine.Release(h)
	return true
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	components := map[string]string{
		"catalog": "not loaded",
		"engine":  "unavailable",
	}

	details := input.HealthDetails{
		Healthy:       s.IsHealthy(ctx),
		CatalogLoaded: s.catalogLoaded(),
		Components:    components,
	}
	if details.CatalogLoaded {
		components["catalog"] = "ok"
		details.CatalogPath = s.catalog.Path()
	}
	if s.engine != nil {
		details.Engine = s.engine.Name()
	}
	if s.engineAvailable() {
		components["engine"] = "ok"
	}
	if s.dict != nil {
		components["dictionary"] = "empty"
		if s.dict.Len() > 0 {
			components["dictionary"] = "ok"
		}
	}
	if s.registry != nil && s.registry.storage != nil {
		components["storage"] = "ok"
	}

	details.Ready = details.CatalogLoaded && components["engine"] == "ok"
	return details
}

// CatalogFiles returns the files the registry has loaded.
func (s *HealthService) CatalogFiles() []CatalogFile {
	if s.registry == nil {
		return nil
	}
	return s.registry.Files()
}
