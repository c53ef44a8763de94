package output

// EngineHandle is a projection initialised by a ProjectionEngine. It is
// only meaningful to the engine that created it.
type EngineHandle interface {
	// Params returns the parameter string the handle was created from.
	Params() string

	// IsLatLong reports whether the handle works in geographic radians.
	IsLatLong() bool
}

// ProjectionEngine is the external coordinate projection library.
type ProjectionEngine interface {
	// Name identifies the engine in logs and health output.
	Name() string

	// Init creates a handle from an engine parameter string.
	Init(params string) (EngineHandle, error)

	// Release frees a handle. Releasing nil is a no-op.
	Release(h EngineHandle)

	// TransformBatch converts the points from src to dst in place.
	// Geographic values are in radians. Points the engine cannot convert
	// are set to +Inf; the error is reserved for whole-batch failures.
	TransformBatch(src, dst EngineHandle, x, y, z []float64) error

	// ErrorMessage returns the diagnostic text for an engine status code.
	ErrorMessage(code int) string

	// Expand turns a short definition such as "+init=epsg:4326" into a
	// full parameter string.
	Expand(definition string) (string, error)
}
