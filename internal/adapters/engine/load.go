// Package engine provides the projection engine adapters and the
// process-wide engine loader.
package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/ports/output"
)

// Config selects the engine implementation.
type Config struct {
	Type string `mapstructure:"type"` // wgs84 or proj
}

// LoadResult is either Loaded or Unavailable.
type LoadResult interface {
	isLoadResult()
}

// Loaded carries the engine that was loaded.
type Loaded struct {
	Engine output.ProjectionEngine
}

// Unavailable explains why no engine could be loaded.
type Unavailable struct {
	Reason string
}

func (Loaded) isLoadResult()      {}
func (Unavailable) isLoadResult() {}

// factory creates an engine. Adapters register themselves in init.
type factory func(cfg Config) (output.ProjectionEngine, error)

var (
	factoriesMu sync.Mutex
	factories   = map[string]factory{}

	loadMu sync.Mutex
	loaded LoadResult
)

func register(name string, f factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Available lists the engine types compiled into the binary.
func Available() []string {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// Load creates the process engine. Only the first call does any work;
// later calls return the same result whatever cfg they pass.
func Load(cfg Config) LoadResult {
	loadMu.Lock()
	defer loadMu.Unlock()

	if loaded != nil {
		return loaded
	}

	name := strings.ToLower(strings.TrimSpace(cfg.Type))
	if name == "" {
		name = wgs84Name
	}

	factoriesMu.Lock()
	f, ok := factories[name]
	factoriesMu.Unlock()

	if !ok {
		loaded = Unavailable{Reason: fmt.Sprintf("engine %q is not compiled in", name)}
		return loaded
	}
	e, err := f(cfg)
	if err != nil {
		loaded = Unavailable{Reason: err.Error()}
		return loaded
	}
	loaded = Loaded{Engine: e}
	return loaded
}

// Default returns the loaded engine, or an engine that fails every call
// with ErrEngineUnavailable when Load has not succeeded.
func Default() output.ProjectionEngine {
	loadMu.Lock()
	defer loadMu.Unlock()

	switch r := loaded.(type) {
	case Loaded:
		return r.Engine
	case Unavailable:
		return unavailableEngine{reason: r.Reason}
	}
	return unavailableEngine{reason: "engine not loaded"}
}

// reset forgets the loaded engine.
func reset() {
	loadMu.Lock()
	loaded = nil
	loadMu.Unlock()
}

// unavailableEngine stands in when no engine could be loaded.
type unavailableEngine struct {
	reason string
}

// NewUnavailable returns an engine that fails every call with
// ErrEngineUnavailable.
func NewUnavailable(reason string) output.ProjectionEngine {
	return unavailableEngine{reason: reason}
}

func (e unavailableEngine) err(op string) error {
	return &domain.EngineError{Operation: op, Message: e.reason, Err: domain.ErrEngineUnavailable}
}

func (unavailableEngine) Name() string { return "unavailable" }

func (e unavailableEngine) Init(string) (output.EngineHandle, error) { return nil, e.err("init") }

func (unavailableEngine) Release(output.EngineHandle) {}

func (e unavailableEngine) TransformBatch(_, _ output.EngineHandle, _, _, _ []float64) error {
	return e.err("transform")
}

func (e unavailableEngine) ErrorMessage(int) string { return e.reason }

func (e unavailableEngine) Expand(string) (string, error) { return "", e.err("expand") }
