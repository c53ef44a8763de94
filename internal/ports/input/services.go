// Package input defines the primary/driving ports of the application.
package input

import (
	"context"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/srs"
)

// DefinitionResolver builds spatial reference definitions from EPSG codes.
type DefinitionResolver interface {
	// Resolve returns a definition the caller owns.
	Resolve(ctx context.Context, code int) (*srs.Definition, error)
}

// TransformRequest describes a batch transformation between two systems.
// Source and Target hold an EPSG code ("4326", "EPSG:4326") or WKT text.
type TransformRequest struct {
	Source          string
	Target          string
	Batch           domain.Batch
	CheckWithInvert *bool // nil keeps the configured default
}

// TransformResult carries the transformed batch and per-point flags.
type TransformResult struct {
	Batch domain.Batch
	OK    []bool
}

// TransformService transforms coordinates between definitions.
type TransformService interface {
	// TransformPoints transforms req.Batch in place and returns it.
	TransformPoints(ctx context.Context, req TransformRequest) (*TransformResult, error)
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to accept requests.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy       bool              // Overall health status
	Ready         bool              // Ready to accept requests
	CatalogLoaded bool              // A catalog file is open
	CatalogPath   string            // Path of the open catalog
	Engine        string            // Name of the loaded projection engine
	Components    map[string]string // Component statuses
}
