package domain

import (
	"errors"
	"math"
	"testing"
)

func TestNewWGS84Coordinate(t *testing.T) {
	c := NewWGS84Coordinate(9.9, 52.5)

	if c.X != 9.9 {
		t.Errorf("expected X=9.9, got %f", c.X)
	}
	if c.Y != 52.5 {
		t.Errorf("expected Y=52.5, got %f", c.Y)
	}
	if c.SRID != SRIDWGS84 {
		t.Errorf("expected SRID=%d, got %d", SRIDWGS84, c.SRID)
	}
}

func TestCoordinateValidate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{
			name:    "valid WGS84 coordinate",
			coord:   NewWGS84Coordinate(9.9, 52.5),
			wantErr: false,
		},
		{
			name:    "valid WGS84 at max bounds",
			coord:   NewWGS84Coordinate(180, 90),
			wantErr: false,
		},
		{
			name:    "invalid longitude too high",
			coord:   NewWGS84Coordinate(181, 52.5),
			wantErr: true,
		},
		{
			name:    "invalid latitude too low",
			coord:   NewWGS84Coordinate(9.9, -91),
			wantErr: true,
		},
		{
			name:    "sentinel is invalid",
			coord:   NewCoordinate(HugeVal, 0, SRIDETRS89UTM32N),
			wantErr: true,
		},
		{
			name:    "projected coordinate is not range checked",
			coord:   NewCoordinate(500000, 5700000, SRIDETRS89UTM32N),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCoordinateString(t *testing.T) {
	tests := []struct {
		name  string
		coord Coordinate
		want  string
	}{
		{
			name:  "2D coordinate",
			coord: NewWGS84Coordinate(9.9, 52.5),
			want:  "POINT(9.900000 52.500000) SRID=4326",
		},
		{
			name:  "3D coordinate",
			coord: Coordinate{X: 9.9, Y: 52.5, Z: 100.5, SRID: SRIDWGS84},
			want:  "POINT Z(9.900000 52.500000 100.500000) SRID=4326",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.coord.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsHugeVal(t *testing.T) {
	tests := []struct {
		v    float64
		want bool
	}{
		{HugeVal, true},
		{math.Inf(-1), true},
		{math.NaN(), true},
		{0, false},
		{1e300, false},
	}

	for _, tt := range tests {
		if got := IsHugeVal(tt.v); got != tt.want {
			t.Errorf("IsHugeVal(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestNewBatch(t *testing.T) {
	tests := []struct {
		name    string
		points  [][]float64
		wantLen int
		want3D  bool
		wantErr error
	}{
		{
			name:    "2D points",
			points:  [][]float64{{1, 2}, {3, 4}},
			wantLen: 2,
		},
		{
			name:    "mixed dimensions become 3D",
			points:  [][]float64{{1, 2, 3}, {4, 5}},
			wantLen: 2,
			want3D:  true,
		},
		{
			name:    "too few values",
			points:  [][]float64{{1}},
			wantErr: ErrNotEnoughData,
		},
		{
			name:    "empty",
			points:  nil,
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBatch(tt.points)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewBatch() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBatch() error = %v", err)
			}
			if b.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", b.Len(), tt.wantLen)
			}
			if (b.Z != nil) != tt.want3D {
				t.Errorf("3D = %v, want %v", b.Z != nil, tt.want3D)
			}
			if err := b.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestBatchValidate(t *testing.T) {
	b := Batch{X: []float64{1, 2}, Y: []float64{1}}
	if err := b.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Validate() error = %v, want ErrInvalidInput", err)
	}

	b = Batch{X: []float64{1}, Y: []float64{1}, Z: []float64{1, 2}}
	if err := b.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Validate() error = %v, want ErrInvalidInput", err)
	}
}

func TestBatchPoints(t *testing.T) {
	b := Batch{X: []float64{1, 3}, Y: []float64{2, 4}, Z: []float64{5, 6}}
	pts := b.Points()
	if len(pts) != 2 || len(pts[0]) != 3 || pts[1][2] != 6 {
		t.Errorf("Points() = %v", pts)
	}
}
