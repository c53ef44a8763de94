package srs

import (
	"strings"

	"gonum.org/v1/gonum/floats/scalar"
)

func withinAbs(a, b, tol float64) bool {
	return scalar.EqualWithinAbs(a, b, tol)
}

// IsSameGeogCS reports whether both definitions use an equivalent
// geographic coordinate system. Datum names must match exactly, and are
// only compared when both are present.
func (d *Definition) IsSameGeogCS(other *Definition) bool {
	thisDatum, ok1 := d.GetAttrValue("DATUM", 0)
	otherDatum, ok2 := other.GetAttrValue("DATUM", 0)
	if ok1 && ok2 && thisDatum != otherDatum {
		return false
	}

	a, _ := d.GetTOWGS84()
	b, _ := other.GetTOWGS84()
	for i := range a {
		if !withinAbs(a[i], b[i], TOWGS84Tolerance) {
			return false
		}
	}

	if !withinAbs(d.attrFloat("PRIMEM", 1, 0), other.attrFloat("PRIMEM", 1, 0), PrimeMeridianTolerance) {
		return false
	}

	if !withinAbs(d.attrFloat("GEOGCS|UNIT", 1, UnitDegreeConv),
		other.attrFloat("GEOGCS|UNIT", 1, UnitDegreeConv), AngularUnitTolerance) {
		return false
	}

	if v1, ok1 := d.GetAttrValue("SPHEROID", 1); ok1 {
		if v2, ok2 := other.GetAttrValue("SPHEROID", 1); ok2 && !withinAbs(atof(v1), atof(v2), SemiMajorTolerance) {
			return false
		}
	}
	if v1, ok1 := d.GetAttrValue("SPHEROID", 2); ok1 {
		if v2, ok2 := other.GetAttrValue("SPHEROID", 2); ok2 && !withinAbs(atof(v1), atof(v2), FlatteningTolerance) {
			return false
		}
	}
	return true
}

// IsSameVertCS reports whether both definitions share a vertical datum
// and unit.
func (d *Definition) IsSameVertCS(other *Definition) bool {
	v1, ok1 := d.GetAttrValue("VERT_DATUM", 0)
	v2, ok2 := other.GetAttrValue("VERT_DATUM", 0)
	if !ok1 || !ok2 || !strings.EqualFold(v1, v2) {
		return false
	}
	return withinAbs(d.attrFloat("VERT_CS|UNIT", 1, 1.0), other.attrFloat("VERT_CS|UNIT", 1, 1.0), AngularUnitTolerance)
}

// IsSame reports whether two definitions describe the same system.
func (d *Definition) IsSame(other *Definition) bool {
	if d.root == nil || other.root == nil {
		return d.root == nil && other.root == nil
	}
	if !d.IsSameGeogCS(other) {
		return false
	}
	if !strings.EqualFold(d.root.Value(), other.root.Value()) {
		return false
	}

	if d.IsProjected() {
		p1, p2 := d.Projection(), other.Projection()
		if p1 == "" || p2 == "" || !strings.EqualFold(p1, p2) {
			return false
		}
		for _, p := range d.Parameters() {
			v1, _ := d.GetProjParm(p.Name, 0)
			v2, _ := other.GetProjParm(p.Name, 0)
			if v1 != v2 {
				return false
			}
		}
	}

	if d.IsLocal() || d.IsProjected() {
		if lin, _ := d.GetLinearUnits(); lin != 0 {
			otherLin, _ := other.GetLinearUnits()
			ratio := otherLin / lin
			if ratio < 0.9999999999 || ratio > 1.000000001 {
				return false
			}
		}
	}

	if d.IsVertical() && !d.IsSameVertCS(other) {
		return false
	}
	return true
}

func (d *Definition) attrFloat(path string, child int, def float64) float64 {
	if v, ok := d.GetAttrValue(path, child); ok {
		return atof(v)
	}
	return def
}
