package application

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/srs"
	"github.com/jobrunner/georef/internal/ports/output"
)

// Invert check thresholds, in source units.
const (
	GeographicThreshold = 0.1
	ProjectedThreshold  = 10000.0
)

// MaxLoggedErrors is the number of failed points a Transformation logs
// before it goes quiet.
const MaxLoggedErrors = 20

// TransformOptions tunes a Transformation.
type TransformOptions struct {
	// CheckWithInvert runs every result back through the inverse and
	// rejects points that do not come back within Threshold.
	CheckWithInvert bool

	// Threshold overrides the invert check tolerance when positive.
	Threshold float64

	// CenterLong wraps geographic longitudes on both sides into
	// [CenterLong-180, CenterLong+180]. A CENTER_LONG extension on a
	// GEOGCS takes precedence for that side.
	CenterLong *float64
}

// side describes one end of a transformation.
type side struct {
	def        *srs.Definition
	handle     output.EngineHandle
	geographic bool
	toRadians  float64
	wrap       bool
	centerLong float64
}

func newSide(def *srs.Definition, globalCenter *float64) side {
	s := side{def: def, geographic: def.IsGeographic()}
	if !s.geographic {
		return s
	}

	s.toRadians, _ = def.GetAngularUnits()
	if s.toRadians <= 0 {
		s.toRadians = srs.UnitDegreeConv
	}

	if globalCenter != nil {
		s.wrap, s.centerLong = true, *globalCenter
	}
	if v := def.GetExtension("GEOGCS", "CENTER_LONG", ""); v != "" {
		s.wrap, s.centerLong = true, atof(v)
	}
	return s
}

func (s side) wrapLongitudes(x, y []float64) {
	if !s.wrap {
		return
	}
	for i := range x {
		if domain.IsHugeVal(x[i]) || domain.IsHugeVal(y[i]) {
			continue
		}
		if x[i] < s.centerLong-180 {
			x[i] += 360
		} else if x[i] > s.centerLong+180 {
			x[i] -= 360
		}
	}
}

func (s side) scale(x, y []float64, factor float64) {
	for i := range x {
		if domain.IsHugeVal(x[i]) || domain.IsHugeVal(y[i]) {
			continue
		}
		x[i] *= factor
		y[i] *= factor
	}
}

// Transformation converts coordinates between two definitions through the
// projection engine.
type Transformation struct {
	id              string
	engine          output.ProjectionEngine
	src, dst        side
	checkWithInvert bool
	threshold       float64
	logger          *slog.Logger

	mu         sync.Mutex
	errorCount int
}

// NewTransformation prepares a transformation from src to dst. Both
// definitions are copied.
func NewTransformation(
	engine output.ProjectionEngine,
	src, dst *srs.Definition,
	opts TransformOptions,
	logger *slog.Logger,
) (*Transformation, error) {
	if src == nil || src.IsEmpty() || dst == nil || dst.IsEmpty() {
		return nil, domain.ErrEmptyDefinition
	}
	if engine == nil {
		return nil, &domain.EngineError{Operation: "init", Message: "no projection engine", Err: domain.ErrEngineUnavailable}
	}

	t := &Transformation{
		id:              uuid.NewString(),
		engine:          engine,
		src:             newSide(src.Clone(), opts.CenterLong),
		dst:             newSide(dst.Clone(), opts.CenterLong),
		checkWithInvert: opts.CheckWithInvert,
		threshold:       opts.Threshold,
		logger:          logger,
	}
	if t.threshold <= 0 {
		t.threshold = ProjectedThreshold
		if t.src.geographic {
			t.threshold = GeographicThreshold
		}
	}
	t.logger = logger.With("transformation", t.id)

	var err error
	if t.src.handle, err = t.initHandle(t.src.def); err != nil {
		return nil, err
	}
	if t.dst.handle, err = t.initHandle(t.dst.def); err != nil {
		engine.Release(t.src.handle)
		return nil, err
	}

	t.logger.Debug("transformation created",
		"engine", engine.Name(),
		"source", t.src.handle.Params(),
		"target", t.dst.handle.Params(),
		"check_with_invert", t.checkWithInvert,
	)
	return t, nil
}

func (t *Transformation) initHandle(def *srs.Definition) (output.EngineHandle, error) {
	params, err := def.ExportToProjString()
	if err != nil {
		return nil, fmt.Errorf("exporting engine parameters: %w", err)
	}
	h, err := t.engine.Init(params)
	if err != nil {
		var engineErr *domain.EngineError
		if errors.As(err, &engineErr) {
			return nil, err
		}
		return nil, &domain.EngineError{Operation: "init", Message: err.Error(), Err: err}
	}
	return h, nil
}

// Source returns a copy of the source definition.
func (t *Transformation) Source() *srs.Definition { return t.src.def.Clone() }

// Target returns a copy of the target definition.
func (t *Transformation) Target() *srs.Definition { return t.dst.def.Clone() }

// Transform converts the points in place and reports per point whether it
// could be transformed. z may be nil. Failed points hold domain.HugeVal.
func (t *Transformation) Transform(x, y, z []float64) ([]bool, error) {
	if len(x) != len(y) || z != nil && len(z) != len(x) {
		return nil, fmt.Errorf("coordinate slices differ in length: %w", domain.ErrInvalidInput)
	}
	n := len(x)
	if n == 0 {
		return []bool{}, nil
	}

	if t.src.geographic {
		t.src.wrapLongitudes(x, y)
		t.src.scale(x, y, t.src.toRadians)
	}

	var origX, origY []float64
	if t.checkWithInvert {
		origX = append([]float64(nil), x...)
		origY = append([]float64(nil), y...)
	}

	if err := t.engine.TransformBatch(t.src.handle, t.dst.handle, x, y, z); err != nil {
		t.reportBatchFailure(err)
		return nil, &domain.EngineError{Operation: "transform", Message: err.Error(), Err: err}
	}

	if t.checkWithInvert {
		if err := t.invertCheck(origX, origY, x, y, z); err != nil {
			t.reportBatchFailure(err)
			return nil, &domain.EngineError{Operation: "transform", Message: err.Error(), Err: err}
		}
	}

	if t.dst.geographic {
		t.dst.scale(x, y, 1/t.dst.toRadians)
		t.dst.wrapLongitudes(x, y)
	}

	ok := make([]bool, n)
	for i := range ok {
		ok[i] = !domain.IsHugeVal(x[i]) && !domain.IsHugeVal(y[i])
		if !ok[i] {
			x[i], y[i] = domain.HugeVal, domain.HugeVal
			t.reportPointFailure(i)
		}
	}
	return ok, nil
}

// invertCheck sends the results back to the source and marks points whose
// round trip lands further than the threshold from where they started.
// The comparison happens in source units.
func (t *Transformation) invertCheck(origX, origY, x, y, z []float64) error {
	backX := append([]float64(nil), x...)
	backY := append([]float64(nil), y...)
	var backZ []float64
	if z != nil {
		backZ = append([]float64(nil), z...)
	}

	if err := t.engine.TransformBatch(t.dst.handle, t.src.handle, backX, backY, backZ); err != nil {
		return err
	}

	factor := 1.0
	if t.src.geographic {
		factor = 1 / t.src.toRadians
	}
	for i := range x {
		if domain.IsHugeVal(x[i]) || domain.IsHugeVal(backX[i]) || domain.IsHugeVal(backY[i]) {
			x[i], y[i] = domain.HugeVal, domain.HugeVal
			continue
		}
		dx := (backX[i] - origX[i]) * factor
		dy := (backY[i] - origY[i]) * factor
		if dx > t.threshold || -dx > t.threshold || dy > t.threshold || -dy > t.threshold {
			x[i], y[i] = domain.HugeVal, domain.HugeVal
		}
	}
	return nil
}

func (t *Transformation) nextError() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorCount++
	return t.errorCount
}

func (t *Transformation) reportPointFailure(i int) {
	switch n := t.nextError(); {
	case n <= MaxLoggedErrors:
		t.logger.Warn("point transformation failed", "index", i)
	case n == MaxLoggedErrors+1:
		t.logger.Warn("further transformation errors suppressed")
	}
}

func (t *Transformation) reportBatchFailure(err error) {
	switch n := t.nextError(); {
	case n <= MaxLoggedErrors:
		t.logger.Warn("batch transformation failed", "error", err)
	case n == MaxLoggedErrors+1:
		t.logger.Warn("further transformation errors suppressed")
	}
}

// TransformCoordinate converts a single coordinate. The result carries
// the EPSG code of the target, or 0 when the target has none.
func (t *Transformation) TransformCoordinate(c domain.Coordinate) (domain.Coordinate, error) {
	x, y, z := []float64{c.X}, []float64{c.Y}, []float64{c.Z}
	ok, err := t.Transform(x, y, z)
	if err != nil {
		return domain.Coordinate{}, err
	}
	if !ok[0] {
		return domain.Coordinate{}, fmt.Errorf("transforming %s: %w", c, domain.ErrInvalidCoordinate)
	}
	return domain.Coordinate{X: x[0], Y: y[0], Z: z[0], SRID: t.dst.def.EPSGCode()}, nil
}

// TransformGeometry returns a transformed copy of g. Every vertex must
// transform for the call to succeed.
func (t *Transformation) TransformGeometry(g orb.Geometry) (orb.Geometry, error) {
	if g == nil {
		return nil, fmt.Errorf("geometry: %w", domain.ErrInvalidInput)
	}
	out := orb.Clone(g)

	var x, y []float64
	project.Geometry(out, func(p orb.Point) orb.Point {
		x = append(x, p[0])
		y = append(y, p[1])
		return p
	})

	ok, err := t.Transform(x, y, nil)
	if err != nil {
		return nil, err
	}
	failed := 0
	for _, v := range ok {
		if !v {
			failed++
		}
	}
	if failed > 0 {
		return nil, fmt.Errorf("%d of %d vertices could not be transformed: %w", failed, len(ok), domain.ErrInvalidCoordinate)
	}

	i := 0
	return project.Geometry(out, func(orb.Point) orb.Point {
		p := orb.Point{x[i], y[i]}
		i++
		return p
	}), nil
}

// Close releases the engine handles.
func (t *Transformation) Close() {
	t.engine.Release(t.src.handle)
	t.engine.Release(t.dst.handle)
	t.src.handle, t.dst.handle = nil, nil
}
