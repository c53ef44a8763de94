package application

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/srs"
)

// EPSG unit of measure codes with special handling.
const (
	uomMetre       = 9001
	uomRadian      = 9101
	uomDegree      = 9102
	uomArcMinute   = 9103
	uomArcSecond   = 9104
	uomGrad        = 9105
	uomGon         = 9106
	uomDMS         = 9107
	uomDMSH        = 9108
	uomMicroradian = 9109
	uomSexagesimal = 9110
	uomDegreeSupp  = 9122
	uomUnity       = 9201

	pmGreenwich       = 8901
	pmGreenwichLegacy = 7022
)

// AngleToDecimalDegrees converts a catalog angle in the given unit to
// decimal degrees. 9110 is the packed sexagesimal DDD.MMSSsss form.
// Unknown units are taken as degrees.
func AngleToDecimalDegrees(text string, uomCode int) float64 {
	text = strings.TrimSpace(text)

	switch uomCode {
	case uomSexagesimal:
		return packedDMSToDegrees(text)
	case uomGrad, uomGon:
		return 180 * atof(text) / 200
	case uomRadian:
		return 180 * atof(text) / math.Pi
	case uomArcMinute:
		return atof(text) / 60
	case uomArcSecond:
		return atof(text) / 3600
	}
	return atof(text)
}

func packedDMSToDegrees(text string) float64 {
	whole, frac, _ := strings.Cut(text, ".")
	deg := math.Abs(float64(atoi(whole)))

	if len(frac) > 0 {
		minutes := frac[:1] + "0"
		if len(frac) > 1 && isDigit(frac[1]) {
			minutes = frac[:2]
		}
		deg += float64(atoi(minutes)) / 60

		if len(frac) > 2 {
			seconds := frac[2:3] + "0"
			if len(frac) > 3 && isDigit(frac[3]) {
				seconds = frac[2:4] + "." + frac[4:]
			}
			deg += atof(seconds) / 3600
		}
	}

	if strings.HasPrefix(text, "-") {
		deg = -deg
	}
	return deg
}

// negateNumber flips the sign of a decimal string without reformatting it.
func negateNumber(s string) string {
	switch {
	case s == "0" || s == "":
		return s
	case s[0] == '-':
		return s[1:]
	case s[0] == '+':
		return "-" + s[1:]
	}
	return "-" + s
}

// UOMAngleInfo returns the name of an angular unit and its size in
// degrees.
func (r *Resolver) UOMAngleInfo(ctx context.Context, code int) (string, float64, error) {
	switch code {
	case uomDegree, uomDMS, uomDMSH, uomSexagesimal, uomDegreeSupp:
		return srs.UnitDegree, 1, nil
	}

	row := r.row(ctx, "unit_of_measure", "UOM_CODE", code)
	name, err := row.text("UNIT_OF_MEAS_NAME")
	if err != nil {
		return "", 0, err
	}

	var inDegrees float64
	b, err := row.number("FACTOR_B")
	if err != nil {
		return "", 0, err
	}
	c, err := row.number("FACTOR_C")
	if err != nil {
		return "", 0, err
	}
	if c != 0 {
		inDegrees = b / c * 180 / math.Pi
	}
	// exactly 0.9 degrees
	if code == uomGrad {
		inDegrees = 180.0 / 200.0
	}

	if name == "" {
		switch code {
		case uomRadian:
			name, inDegrees = srs.UnitRadian, 180/math.Pi
		case uomArcMinute:
			name, inDegrees = "arc-minute", 1.0/60
		case uomArcSecond:
			name, inDegrees = "arc-second", 1.0/3600
		case uomGrad:
			name, inDegrees = "grad", 180.0/200
		case uomGon:
			name, inDegrees = "gon", 180.0/200
		case uomMicroradian:
			name, inDegrees = "microradian", 180/(math.Pi*1e6)
		default:
			return "", 0, fmt.Errorf("angular unit %d: %w", code, domain.ErrUnsupported)
		}
	}
	return name, inDegrees, nil
}

// UOMLengthInfo returns the name of a linear unit and its size in metres.
func (r *Resolver) UOMLengthInfo(ctx context.Context, code int) (string, float64, error) {
	if code == uomMetre {
		return srs.UnitMetre, 1, nil
	}

	row := r.row(ctx, "unit_of_measure", "UOM_CODE", code)
	name, err := row.text("UNIT_OF_MEAS_NAME")
	if err != nil {
		return "", 0, err
	}
	b, err := row.number("FACTOR_B")
	if err != nil {
		return "", 0, err
	}
	c, err := row.number("FACTOR_C")
	if err != nil {
		return "", 0, err
	}
	if c <= 0 {
		return name, 0, nil
	}
	return name, b / c, nil
}

// PrimeMeridianInfo returns the name of a prime meridian and its offset
// from Greenwich in degrees.
func (r *Resolver) PrimeMeridianInfo(ctx context.Context, code int) (string, float64, error) {
	if code == pmGreenwich || code == pmGreenwichLegacy {
		return srs.PrimeMeridianGreenwich, 0, nil
	}

	row := r.row(ctx, "prime_meridian", "PRIME_MERIDIAN_CODE", code)
	uom, err := row.integer("UOM_CODE")
	if err != nil {
		return "", 0, err
	}
	if uom < 1 {
		return "", 0, fmt.Errorf("prime meridian %d has no unit: %w", code, domain.ErrUnsupported)
	}
	longitude, err := row.text("GREENWICH_LONGITUDE")
	if err != nil {
		return "", 0, err
	}
	name, err := row.text("PRIME_MERIDIAN_NAME")
	if err != nil {
		return "", 0, err
	}
	return name, AngleToDecimalDegrees(longitude, uom), nil
}

// Ellipsoid describes a catalog ellipsoid with axes in metres.
type Ellipsoid struct {
	Name          string
	SemiMajor     float64
	InvFlattening float64 // 0 for a sphere
}

// EllipsoidInfo returns an ellipsoid. The inverse flattening is derived
// from the semi-minor axis when the catalog does not carry it.
func (r *Resolver) EllipsoidInfo(ctx context.Context, code int) (Ellipsoid, error) {
	row := r.row(ctx, "ellipsoid", "ELLIPSOID_CODE", code)
	semiMajor, err := row.number("SEMI_MAJOR_AXIS")
	if err != nil {
		return Ellipsoid{}, err
	}
	if semiMajor == 0 {
		return Ellipsoid{}, fmt.Errorf("ellipsoid %d has no semi-major axis: %w", code, domain.ErrUnsupported)
	}

	toMeters := 1.0
	uom, err := row.integer("UOM_CODE")
	if err != nil {
		return Ellipsoid{}, err
	}
	if _, m, err := r.UOMLengthInfo(ctx, uom); err == nil {
		toMeters = m
	} else if !fallsThrough(err) {
		return Ellipsoid{}, err
	}
	semiMajor *= toMeters

	invFlattening, err := row.number("INV_FLATTENING")
	if err != nil {
		return Ellipsoid{}, err
	}
	if invFlattening == 0 {
		semiMinor, err := row.number("SEMI_MINOR_AXIS")
		if err != nil {
			return Ellipsoid{}, err
		}
		invFlattening = srs.InvFlatteningFromSemiMinor(semiMajor, semiMinor*toMeters)
	}

	name, err := row.text("ELLIPSOID_NAME")
	if err != nil {
		return Ellipsoid{}, err
	}
	return Ellipsoid{Name: name, SemiMajor: semiMajor, InvFlattening: invFlattening}, nil
}

func atoi(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (isDigit(s[end]) || end == 0 && (s[0] == '-' || s[0] == '+')) {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

func atof(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
