package srs

import (
	"math"
	"strings"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/wkt"
)

// SetAngularUnits sets the UNIT of the GEOGCS.
func (d *Definition) SetAngularUnits(name string, radians float64) error {
	d.invalidate()
	cs := d.GetAttrNode("GEOGCS")
	if cs == nil {
		return domain.ErrNoGeographicCS
	}
	return setUnit(cs, name, formatFloat(radians), false)
}

// GetAngularUnits returns the GEOGCS unit in radians and its name.
// Without a GEOGCS it returns degrees; without a UNIT it returns 1.
func (d *Definition) GetAngularUnits() (float64, string) {
	cs := d.GetAttrNode("GEOGCS")
	if cs == nil {
		return UnitDegreeConv, UnitDegree
	}
	for _, c := range cs.Children() {
		if isKeyword(c, "UNIT") && c.ChildCount() >= 2 {
			return atof(c.Child(1).Value()), c.Child(0).Value()
		}
	}
	return 1.0, UnitDegree
}

// SetLinearUnits sets the unit of the projected, local, geocentric or
// vertical coordinate system.
func (d *Definition) SetLinearUnits(name string, meters float64) error {
	return d.SetTargetLinearUnits("", name, meters)
}

// SetTargetLinearUnits sets the UNIT on the node at target. An empty
// target selects the coordinate system as SetLinearUnits does. An
// updated UNIT loses its AUTHORITY.
func (d *Definition) SetTargetLinearUnits(target, name string, meters float64) error {
	d.invalidate()
	cs := d.linearUnitsNode(target)
	if cs == nil {
		return domain.ErrNoProjectedCS
	}
	return setUnit(cs, name, formatInt(meters), true)
}

// GetLinearUnits returns the linear unit in metres and its name.
func (d *Definition) GetLinearUnits() (float64, string) {
	return d.GetTargetLinearUnits("")
}

// GetTargetLinearUnits returns the linear unit of the node at target,
// or 1 metre when none is defined.
func (d *Definition) GetTargetLinearUnits(target string) (float64, string) {
	cs := d.linearUnitsNode(target)
	if cs == nil {
		return 1.0, "unknown"
	}
	for _, c := range cs.Children() {
		if isKeyword(c, "UNIT") && c.ChildCount() >= 2 {
			return atof(c.Child(1).Value()), c.Child(0).Value()
		}
	}
	return 1.0, "unknown"
}

func (d *Definition) linearUnitsNode(target string) *wkt.Node {
	if target != "" {
		return d.GetAttrNode(target)
	}
	for _, key := range []string{"PROJCS", "LOCAL_CS", "GEOCCS"} {
		if cs := d.GetAttrNode(key); cs != nil {
			return cs
		}
	}
	if d.IsVertical() {
		return d.GetAttrNode("VERT_CS")
	}
	return nil
}

// SetLinearUnitsAndUpdateParameters changes the linear unit and rescales
// every linear projection parameter so the definition keeps its meaning.
func (d *Definition) SetLinearUnitsAndUpdateParameters(name string, meters float64) error {
	if meters == 0 {
		return domain.ErrInvalidInput
	}
	old, _ := d.GetLinearUnits()
	projcs := d.GetAttrNode("PROJCS")
	if meters == old || projcs == nil {
		return d.SetLinearUnits(name, meters)
	}

	for _, c := range projcs.Children() {
		if !isKeyword(c, "PARAMETER") || c.ChildCount() < 2 {
			continue
		}
		param := c.Child(0).Value()
		if !IsLinearParameter(param) {
			continue
		}
		v, _ := d.GetProjParm(param, 0)
		if err := d.SetProjParm(param, v*old/meters); err != nil {
			return err
		}
	}
	return d.SetLinearUnits(name, meters)
}

// GetPrimeMeridian returns the prime meridian offset and name.
func (d *Definition) GetPrimeMeridian() (float64, string) {
	pm := d.GetAttrNode("PRIMEM")
	if pm != nil && pm.ChildCount() >= 2 {
		if off := atof(pm.Child(1).Value()); off != 0 {
			return off, pm.Child(0).Value()
		}
	}
	return 0, PrimeMeridianGreenwich
}

// GetNormInfo returns the cached normalisation factors.
func (d *Definition) GetNormInfo() NormInfo {
	if d.normSet {
		return d.norm
	}
	pm, _ := d.GetPrimeMeridian()
	lin, _ := d.GetLinearUnits()
	ang, _ := d.GetAngularUnits()

	toDeg := ang / UnitDegreeConv
	if math.Abs(toDeg-1.0) < 1e-9 {
		toDeg = 1.0
	}
	d.norm = NormInfo{ToDegrees: toDeg, ToMeters: lin, FromGreenwich: pm}
	d.normSet = true
	return d.norm
}

func setUnit(cs *wkt.Node, name, value string, dropAuthority bool) error {
	if i := cs.FindChild("UNIT"); i >= 0 {
		unit := cs.Child(i)
		if unit.ChildCount() < 2 {
			return &domain.ValidationError{
				Field:      "UNIT",
				Value:      unit.ChildCount(),
				Constraint: "2 children",
				Message:    "malformed UNIT node",
				Kind:       domain.ErrCorrupt,
			}
		}
		unit.Child(0).SetValue(name)
		unit.Child(1).SetValue(value)
		if dropAuthority {
			if a := unit.FindChild("AUTHORITY"); a >= 0 {
				unit.DestroyChild(a)
			}
		}
		return nil
	}
	cs.AddChild(wkt.NewNodeWith("UNIT", wkt.NewNode(name), wkt.NewNode(value)))
	return nil
}

func isKeyword(n *wkt.Node, keyword string) bool {
	return !n.IsLeaf() && strings.EqualFold(n.Value(), keyword)
}
