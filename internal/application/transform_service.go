package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/ports/input"
	"github.com/jobrunner/georef/internal/ports/output"
)

// TransformService builds transformations from user supplied definitions
// and runs batches through them.
type TransformService struct {
	resolver *Resolver
	engine   output.ProjectionEngine
	defaults TransformOptions
	metrics  output.MetricsCollector
	logger   *slog.Logger
}

// NewTransformService creates a new transform service.
func NewTransformService(
	resolver *Resolver,
	engine output.ProjectionEngine,
	defaults TransformOptions,
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *TransformService {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	return &TransformService{
		resolver: resolver,
		engine:   engine,
		defaults: defaults,
		metrics:  metrics,
		logger:   logger,
	}
}

// NewTransformation resolves both ends and prepares a transformation. The
// caller must Close it.
func (s *TransformService) NewTransformation(ctx context.Context, source, target string, checkWithInvert *bool) (*Transformation, error) {
	src, err := s.resolver.FromUserInput(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	dst, err := s.resolver.FromUserInput(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	opts := s.defaults
	if checkWithInvert != nil {
		opts.CheckWithInvert = *checkWithInvert
	}
	return NewTransformation(s.engine, src, dst, opts, s.logger)
}

// TransformPoints implements input.TransformService.
func (s *TransformService) TransformPoints(ctx context.Context, req input.TransformRequest) (*input.TransformResult, error) {
	if err := req.Batch.Validate(); err != nil {
		return nil, err
	}

	t, err := s.NewTransformation(ctx, req.Source, req.Target, req.CheckWithInvert)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	start := time.Now()
	ok, err := t.Transform(req.Batch.X, req.Batch.Y, req.Batch.Z)
	s.metrics.ObserveTransformDuration(time.Since(start))
	if err != nil {
		s.metrics.AddTransformedPoints(0, req.Batch.Len())
		return nil, err
	}

	failed := 0
	for _, v := range ok {
		if !v {
			failed++
		}
	}
	s.metrics.AddTransformedPoints(len(ok)-failed, failed)

	return &input.TransformResult{Batch: req.Batch, OK: ok}, nil
}

// TransformGeometry returns a copy of g expressed in target.
func (s *TransformService) TransformGeometry(ctx context.Context, source, target string, g orb.Geometry) (orb.Geometry, error) {
	t, err := s.NewTransformation(ctx, source, target, nil)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	start := time.Now()
	out, err := t.TransformGeometry(g)
	s.metrics.ObserveTransformDuration(time.Since(start))
	if err != nil {
		return nil, err
	}
	n := countPoints(out)
	s.metrics.AddTransformedPoints(n, 0)
	return out, nil
}

// TransformCoordinate converts a single coordinate. The source is taken
// from c.SRID.
func (s *TransformService) TransformCoordinate(ctx context.Context, c domain.Coordinate, target string) (domain.Coordinate, error) {
	if c.SRID <= 0 {
		return domain.Coordinate{}, domain.ErrInvalidSRID
	}
	t, err := s.NewTransformation(ctx, fmt.Sprintf("EPSG:%d", c.SRID), target, nil)
	if err != nil {
		return domain.Coordinate{}, err
	}
	defer t.Close()

	out, err := t.TransformCoordinate(c)
	if err != nil {
		s.metrics.AddTransformedPoints(0, 1)
		return domain.Coordinate{}, err
	}
	s.metrics.AddTransformedPoints(1, 0)
	return out, nil
}

// EngineName returns the name of the engine transformations run on.
func (s *TransformService) EngineName() string {
	if s.engine == nil {
		return ""
	}
	return s.engine.Name()
}

func countPoints(g orb.Geometry) int {
	switch g := g.(type) {
	case orb.Point:
		return 1
	case orb.MultiPoint:
		return len(g)
	case orb.LineString:
		return len(g)
	case orb.Ring:
		return len(g)
	case orb.MultiLineString:
		n := 0
		for _, ls := range g {
			n += len(ls)
		}
		return n
	case orb.Polygon:
		n := 0
		for _, r := range g {
			n += len(r)
		}
		return n
	case orb.MultiPolygon:
		n := 0
		for _, p := range g {
			n += countPoints(p)
		}
		return n
	case orb.Collection:
		n := 0
		for _, c := range g {
			n += countPoints(c)
		}
		return n
	case orb.Bound:
		return 2
	}
	return 0
}

var _ input.TransformService = (*TransformService)(nil)
