package engine

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/wroge/wgs84"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/srs"
	"github.com/jobrunner/georef/internal/ports/output"
)

const wgs84Name = "wgs84"

// Status codes reported by the wgs84 engine.
const (
	wgs84CodeUnsupported = -1
	wgs84CodeBadParams   = -2
	wgs84CodeForeign     = -3
)

// Codes handed to the wgs84 registry start far above the EPSG range.
const firstPrivateCode = 1 << 30

var (
	registryMu sync.Mutex
	registry   = wgs84.EPSG()
	nextCode   = firstPrivateCode
)

func init() {
	register(wgs84Name, func(Config) (output.ProjectionEngine, error) {
		return NewWGS84(), nil
	})
}

// spheroid implements the wgs84 spheroid from a semi-major axis and an
// inverse flattening.
type spheroid struct {
	a, fi float64
}

func (s spheroid) A() float64  { return s.a }
func (s spheroid) Fi() float64 { return s.fi }

// wgs84Handle is a coordinate system registered with the wgs84 library.
type wgs84Handle struct {
	params   string
	code     int
	latLong  bool
	pmDegree float64 // prime meridian offset of geographic handles
	toMeter  float64 // linear unit of projected handles
}

func (h *wgs84Handle) Params() string  { return h.params }
func (h *wgs84Handle) IsLatLong() bool { return h.latLong }

// WGS84 is the pure Go projection engine. It covers geographic, transverse
// mercator, UTM and spherical web mercator systems. Datum shifts are not
// applied.
type WGS84 struct {
	mu    sync.Mutex
	codes map[string]*wgs84Handle
}

// NewWGS84 creates the engine.
func NewWGS84() *WGS84 {
	return &WGS84{codes: make(map[string]*wgs84Handle)}
}

// Name implements output.ProjectionEngine.
func (e *WGS84) Name() string { return wgs84Name }

// Init implements output.ProjectionEngine. Handles with the same
// parameter string share one registry entry.
func (e *WGS84) Init(params string) (output.EngineHandle, error) {
	params = strings.TrimSpace(params)

	e.mu.Lock()
	defer e.mu.Unlock()

	if h, ok := e.codes[params]; ok {
		return h, nil
	}

	d := srs.New()
	if err := d.ImportFromProjString(params, nil); err != nil {
		return nil, &domain.EngineError{
			Operation: "init",
			Code:      wgs84CodeBadParams,
			Message:   e.ErrorMessage(wgs84CodeBadParams),
			Err:       err,
		}
	}

	h, err := register84(d)
	if err != nil {
		return nil, &domain.EngineError{
			Operation: "init",
			Code:      wgs84CodeUnsupported,
			Message:   e.ErrorMessage(wgs84CodeUnsupported),
			Err:       err,
		}
	}

	h.params = params
	e.codes[params] = h
	return h, nil
}

// register84 adds the coordinate system of an imported definition to the
// wgs84 registry under a private code.
func register84(d *srs.Definition) (*wgs84Handle, error) {
	a, rf := d.GetSemiMajor(), d.GetInvFlattening()
	datum := wgs84.Datum{
		Spheroid: spheroid{a: a, fi: rf},
		Area:     wgs84.AreaFunc(func(lon, lat float64) bool { return true }),
	}
	pm, _ := d.GetPrimeMeridian()

	registryMu.Lock()
	defer registryMu.Unlock()
	h := &wgs84Handle{code: nextCode}

	if d.IsGeographic() {
		h.latLong, h.pmDegree = true, pm
		if a == srs.WGS84SemiMajor && rf == srs.WGS84InvFlattening {
			registry.Add(h.code, wgs84.LonLat())
		} else {
			registry.Add(h.code, datum.LonLat())
		}
		nextCode++
		return h, nil
	}
	if !d.IsProjected() {
		return nil, fmt.Errorf("%s: %w", d.Root().Value(), domain.ErrUnsupported)
	}

	h.toMeter, _ = d.GetLinearUnits()
	if h.toMeter <= 0 {
		h.toMeter = 1
	}
	parm := func(name string, def float64) float64 {
		v, err := d.GetNormProjParm(name, def)
		if err != nil {
			return def
		}
		return v
	}

	switch method := d.Projection(); method {
	case srs.ProjTransverseMercator:
		registry.Add(h.code, datum.TransverseMercator(
			parm(srs.ParamCentralMeridian, 0)+pm,
			parm(srs.ParamLatitudeOfOrigin, 0),
			parm(srs.ParamScaleFactor, 1),
			parm(srs.ParamFalseEasting, 0),
			parm(srs.ParamFalseNorthing, 0),
		))
	case srs.ProjMercator1SP:
		if a != srs.WGS84SemiMajor || rf != 0 || pm != 0 ||
			parm(srs.ParamCentralMeridian, 0) != 0 || parm(srs.ParamScaleFactor, 1) != 1 ||
			parm(srs.ParamFalseEasting, 0) != 0 || parm(srs.ParamFalseNorthing, 0) != 0 {
			return nil, fmt.Errorf("ellipsoidal %s: %w", method, domain.ErrUnsupported)
		}
		registry.Add(h.code, wgs84.WebMercator())
	default:
		return nil, fmt.Errorf("%s: %w", method, domain.ErrUnsupported)
	}
	nextCode++
	return h, nil
}

// Release implements output.ProjectionEngine. Registry entries are kept
// for reuse by later handles with the same parameters.
func (e *WGS84) Release(output.EngineHandle) {}

// TransformBatch implements output.ProjectionEngine.
func (e *WGS84) TransformBatch(src, dst output.EngineHandle, x, y, z []float64) error {
	s, ok1 := src.(*wgs84Handle)
	t, ok2 := dst.(*wgs84Handle)
	if !ok1 || !ok2 {
		return &domain.EngineError{
			Operation: "transform",
			Code:      wgs84CodeForeign,
			Message:   e.ErrorMessage(wgs84CodeForeign),
			Err:       domain.ErrInvalidInput,
		}
	}
	if len(y) != len(x) || (z != nil && len(z) != len(x)) {
		return &domain.EngineError{
			Operation: "transform",
			Message:   fmt.Sprintf("batch sizes %d/%d/%d", len(x), len(y), len(z)),
			Err:       domain.ErrInvalidInput,
		}
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	f := registry.Transform(s.code, t.code)
	for i := range x {
		if domain.IsHugeVal(x[i]) || domain.IsHugeVal(y[i]) {
			continue
		}
		a, b := x[i], y[i]
		var c float64
		if z != nil {
			c = z[i]
		}

		if s.latLong {
			a = a/srs.UnitDegreeConv + s.pmDegree
			b /= srs.UnitDegreeConv
		} else {
			a *= s.toMeter
			b *= s.toMeter
		}

		a, b, c = f(a, b, c)
		if !finite(a) || !finite(b) || !finite(c) {
			x[i], y[i] = domain.HugeVal, domain.HugeVal
			continue
		}

		if t.latLong {
			a = (a - t.pmDegree) * srs.UnitDegreeConv
			b *= srs.UnitDegreeConv
		} else {
			a /= t.toMeter
			b /= t.toMeter
		}
		x[i], y[i] = a, b
		if z != nil {
			z[i] = c
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ErrorMessage implements output.ProjectionEngine.
func (e *WGS84) ErrorMessage(code int) string {
	switch code {
	case wgs84CodeUnsupported:
		return "projection not supported by the wgs84 engine"
	case wgs84CodeBadParams:
		return "invalid projection parameters"
	case wgs84CodeForeign:
		return "handle was not created by the wgs84 engine"
	case 0:
		return ""
	}
	return fmt.Sprintf("unknown wgs84 engine status %d", code)
}

// Expand implements output.ProjectionEngine.
func (e *WGS84) Expand(definition string) (string, error) {
	return expand(definition)
}

var _ output.ProjectionEngine = (*WGS84)(nil)
