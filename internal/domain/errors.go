package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupported       = errors.New("unsupported")
	ErrCorrupt           = errors.New("corrupt structure")
	ErrNotEnoughData     = errors.New("not enough data")
	ErrEngineUnavailable = errors.New("projection engine unavailable")
	ErrInternal          = errors.New("internal error")
	ErrUnavailable       = errors.New("service unavailable")
)

// Specific errors.
var (
	ErrEmptyDefinition       = fmt.Errorf("empty definition: %w", ErrInvalidInput)
	ErrNoProjectedCS         = fmt.Errorf("no PROJCS node: %w", ErrInvalidInput)
	ErrNoGeographicCS        = fmt.Errorf("no GEOGCS node: %w", ErrInvalidInput)
	ErrParameterNotFound     = fmt.Errorf("projection parameter: %w", ErrNotFound)
	ErrInvalidCoordinate     = fmt.Errorf("coordinate: %w", ErrInvalidInput)
	ErrInvalidSRID           = fmt.Errorf("srid: %w", ErrInvalidInput)
	ErrUnsupportedProjection = fmt.Errorf("projection: %w", ErrUnsupported)
	ErrUnsupportedCode       = fmt.Errorf("epsg code: %w", ErrUnsupported)
	ErrCatalogNotLoaded      = fmt.Errorf("catalog not loaded: %w", ErrUnavailable)
	ErrNotReady              = fmt.Errorf("service not ready: %w", ErrUnavailable)
	ErrStorageUnavailable    = fmt.Errorf("storage: %w", ErrUnavailable)
)

// ParseError reports malformed definition text.
type ParseError struct {
	Offset  int    // Byte offset into the input
	Message string // What went wrong
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}

// Unwrap returns the underlying error type.
func (e *ParseError) Unwrap() error {
	return ErrCorrupt
}

// ValidationError represents a detailed validation error.
type ValidationError struct {
	Field      string      // Field or node path that failed validation
	Value      interface{} // The invalid value
	Constraint string      // The constraint that was violated
	Message    string      // Human-readable message
	Kind       error       // ErrCorrupt, ErrUnsupported or ErrInvalidInput (default)
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v, constraint: %s)",
		e.Field, e.Message, e.Value, e.Constraint)
}

// Unwrap returns the underlying error type.
func (e *ValidationError) Unwrap() error {
	if e.Kind != nil {
		return e.Kind
	}
	return ErrInvalidInput
}

// ResolveError represents a failure to build a definition from a code.
type ResolveError struct {
	Code  int    // EPSG code
	Stage string // Resolution stage (gcs, pcs, dictionary, engine)
	Err   error  // Underlying error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("resolve error for EPSG:%d during %s: %v", e.Code, e.Stage, e.Err)
	}
	return fmt.Sprintf("resolve error for EPSG:%d: %v", e.Code, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// EngineError represents a failure reported by the projection engine.
type EngineError struct {
	Operation string // init, transform, expand
	Code      int    // Engine status code, 0 if unknown
	Message   string // Engine diagnostic text
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("engine error during %s: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("engine error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// StorageError represents an error during storage operations.
type StorageError struct {
	Operation string // Operation that failed (download, list, etc.)
	Key       string // Object key
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error during %s for %s: %v",
			e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string // Configuration field
	Message string // Error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidInput
}
