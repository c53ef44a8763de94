//go:build proj

package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pebbe/proj/v5"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/ports/output"
)

const projName = "proj"

func init() {
	register(projName, func(Config) (output.ProjectionEngine, error) {
		return NewProj(), nil
	})
}

// projHandle wraps a PROJ transformation object.
type projHandle struct {
	params  string
	pj      *proj.PJ
	latLong bool
}

func (h *projHandle) Params() string  { return h.params }
func (h *projHandle) IsLatLong() bool { return h.latLong }

// Proj is the engine backed by the PROJ C library. All calls share one
// context, which PROJ does not allow to be used concurrently.
type Proj struct {
	mu  sync.Mutex
	ctx *proj.Context
}

// NewProj creates the engine and its PROJ context.
func NewProj() *Proj {
	return &Proj{ctx: proj.NewContext()}
}

// Name implements output.ProjectionEngine.
func (e *Proj) Name() string { return projName }

// Init implements output.ProjectionEngine.
func (e *Proj) Init(params string) (output.EngineHandle, error) {
	params = strings.TrimSpace(params)

	e.mu.Lock()
	defer e.mu.Unlock()

	pj, err := e.ctx.Create(params)
	if err != nil {
		return nil, &domain.EngineError{Operation: "init", Message: err.Error(), Err: domain.ErrInvalidInput}
	}
	return &projHandle{params: params, pj: pj, latLong: isLatLong(params)}, nil
}

func isLatLong(params string) bool {
	for _, token := range strings.Fields(params) {
		switch strings.ToLower(token) {
		case "+proj=longlat", "+proj=latlong", "+proj=lonlat", "+proj=latlon":
			return true
		}
	}
	return false
}

// Release implements output.ProjectionEngine.
func (e *Proj) Release(h output.EngineHandle) {
	ph, ok := h.(*projHandle)
	if !ok || ph == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ph.pj.Close()
}

// TransformBatch implements output.ProjectionEngine. Points go through
// the inverse of src to geographic radians, then forward through dst.
func (e *Proj) TransformBatch(src, dst output.EngineHandle, x, y, z []float64) error {
	s, ok1 := src.(*projHandle)
	t, ok2 := dst.(*projHandle)
	if !ok1 || !ok2 {
		return &domain.EngineError{Operation: "transform", Message: "foreign handle", Err: domain.ErrInvalidInput}
	}
	if len(x) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	u, v, w := x, y, z
	var err error
	if !s.latLong {
		if u, v, w, _, err = s.pj.TransSlice(proj.Inv, u, v, w, nil); err != nil {
			return &domain.EngineError{Operation: "transform", Message: err.Error(), Err: domain.ErrInternal}
		}
	}
	if !t.latLong {
		if u, v, w, _, err = t.pj.TransSlice(proj.Fwd, u, v, w, nil); err != nil {
			return &domain.EngineError{Operation: "transform", Message: err.Error(), Err: domain.ErrInternal}
		}
	}

	for i := range x {
		if domain.IsHugeVal(x[i]) || !finite(u[i]) || !finite(v[i]) {
			x[i], y[i] = domain.HugeVal, domain.HugeVal
			continue
		}
		x[i], y[i] = u[i], v[i]
		if z != nil && len(w) == len(z) {
			z[i] = w[i]
		}
	}
	return nil
}

// ErrorMessage implements output.ProjectionEngine.
func (e *Proj) ErrorMessage(code int) string {
	if code == 0 {
		return ""
	}
	return fmt.Sprintf("PROJ error %d", code)
}

// Expand implements output.ProjectionEngine.
func (e *Proj) Expand(definition string) (string, error) {
	return expand(definition)
}

// Close releases the PROJ context and every handle created from it.
func (e *Proj) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx.Close()
}

var _ output.ProjectionEngine = (*Proj)(nil)
