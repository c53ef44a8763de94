// Package domain contains the core entities, value objects and errors shared
// by the definition model, the resolver and the transformation service.
package domain

import (
	"fmt"
	"math"
)

// HugeVal marks a coordinate that could not be transformed.
var HugeVal = math.Inf(1)

// IsHugeVal reports whether v is the failure sentinel or not a number.
func IsHugeVal(v float64) bool {
	return math.IsInf(v, 0) || math.IsNaN(v)
}

// Coordinate represents a single position with optional height.
type Coordinate struct {
	X    float64 // Longitude or Easting
	Y    float64 // Latitude or Northing
	Z    float64 // Height (optional)
	SRID int     // EPSG code of the definition the position is expressed in
}

// NewWGS84Coordinate creates a WGS84 (EPSG:4326) coordinate.
func NewWGS84Coordinate(lon, lat float64) Coordinate {
	return Coordinate{X: lon, Y: lat, SRID: SRIDWGS84}
}

// NewCoordinate creates a coordinate with the specified SRID.
func NewCoordinate(x, y float64, srid int) Coordinate {
	return Coordinate{X: x, Y: y, SRID: srid}
}

// Validate checks if the coordinate is valid for its SRID.
func (c Coordinate) Validate() error {
	if IsHugeVal(c.X) || IsHugeVal(c.Y) {
		return &ValidationError{
			Field:      "coordinate",
			Value:      c.String(),
			Constraint: "finite",
			Message:    "coordinate must be finite",
		}
	}
	if c.SRID == SRIDWGS84 {
		if c.X < -180 || c.X > 180 {
			return &ValidationError{
				Field:      "longitude",
				Value:      c.X,
				Constraint: "[-180, 180]",
				Message:    "longitude must be between -180 and 180",
			}
		}
		if c.Y < -90 || c.Y > 90 {
			return &ValidationError{
				Field:      "latitude",
				Value:      c.Y,
				Constraint: "[-90, 90]",
				Message:    "latitude must be between -90 and 90",
			}
		}
	}
	return nil
}

// String returns a string representation of the coordinate.
func (c Coordinate) String() string {
	if c.Z != 0 {
		return fmt.Sprintf("POINT Z(%f %f %f) SRID=%d", c.X, c.Y, c.Z, c.SRID)
	}
	return fmt.Sprintf("POINT(%f %f) SRID=%d", c.X, c.Y, c.SRID)
}

// Batch holds parallel coordinate arrays that are transformed in place.
// Z may be nil for 2D batches.
type Batch struct {
	X []float64
	Y []float64
	Z []float64
}

// NewBatch builds a batch from [x, y(, z)] tuples.
func NewBatch(points [][]float64) (Batch, error) {
	b := Batch{
		X: make([]float64, len(points)),
		Y: make([]float64, len(points)),
	}
	has3D := false
	for _, p := range points {
		if len(p) > 2 {
			has3D = true
			break
		}
	}
	if has3D {
		b.Z = make([]float64, len(points))
	}
	for i, p := range points {
		if len(p) < 2 {
			return Batch{}, fmt.Errorf("point %d has %d values: %w", i, len(p), ErrNotEnoughData)
		}
		b.X[i], b.Y[i] = p[0], p[1]
		if has3D && len(p) > 2 {
			b.Z[i] = p[2]
		}
	}
	return b, nil
}

// Len returns the number of points in the batch.
func (b Batch) Len() int {
	return len(b.X)
}

// Validate checks that the arrays have matching lengths.
func (b Batch) Validate() error {
	if len(b.X) != len(b.Y) {
		return fmt.Errorf("len(x) != len(y): %d != %d: %w", len(b.X), len(b.Y), ErrInvalidInput)
	}
	if b.Z != nil && len(b.Z) != len(b.X) {
		return fmt.Errorf("len(x) != len(z): %d != %d: %w", len(b.X), len(b.Z), ErrInvalidInput)
	}
	return nil
}

// Points returns the batch as [x, y(, z)] tuples.
func (b Batch) Points() [][]float64 {
	out := make([][]float64, b.Len())
	for i := range b.X {
		if b.Z != nil {
			out[i] = []float64{b.X[i], b.Y[i], b.Z[i]}
		} else {
			out[i] = []float64{b.X[i], b.Y[i]}
		}
	}
	return out
}

// Common SRID constants.
const (
	SRIDWGS84        = 4326  // WGS 84
	SRIDWGS843D      = 4979  // WGS 84 (3D), resolved as 4326
	SRIDWebMercator  = 3857  // Web Mercator
	SRIDETRS89       = 4258  // ETRS89
	SRIDETRS89UTM32N = 25832 // ETRS89 / UTM zone 32N
	SRIDETRS89UTM33N = 25833 // ETRS89 / UTM zone 33N
)
