package srs

import (
	"fmt"
	"strings"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/wkt"
)

// SetProjCS names the PROJCS, turning a GEOGCS root into a PROJCS that
// wraps it. Other root kinds are rejected.
func (d *Definition) SetProjCS(name string) error {
	d.invalidate()

	var geogcs *wkt.Node
	if d.rootKind() == "GEOGCS" {
		geogcs = d.root
		d.root = nil
	}
	if d.root != nil && d.GetAttrNode("PROJCS") == nil {
		return fmt.Errorf("incompatible root %s: %w", d.root.Value(), domain.ErrUnsupported)
	}
	if err := d.SetNode("PROJCS", name); err != nil {
		return err
	}
	if geogcs != nil {
		d.root.InsertChild(geogcs, 1)
	}
	return nil
}

// SetProjection sets the PROJECTION method, creating an "unnamed" PROJCS
// when needed. A new PROJECTION node follows the GEOGCS.
func (d *Definition) SetProjection(method string) error {
	d.invalidate()

	var geogcs *wkt.Node
	if d.rootKind() == "GEOGCS" {
		geogcs = d.root
		d.root = nil
	}
	if d.GetAttrNode("PROJCS") == nil {
		if err := d.SetNode("PROJCS", "unnamed"); err != nil {
			return err
		}
	}
	if geogcs != nil {
		d.root.InsertChild(geogcs, 1)
	}

	projcs := d.GetAttrNode("PROJCS")
	if i := projcs.FindChild("PROJECTION"); i >= 0 {
		proj := projcs.Child(i)
		if proj.ChildCount() > 0 {
			proj.Child(0).SetValue(method)
		} else {
			proj.AddChild(wkt.NewNode(method))
		}
		return nil
	}

	pos := 1
	if i := projcs.FindChild("GEOGCS"); i >= 0 {
		pos = i + 1
	}
	projcs.InsertChild(wkt.NewNodeWith("PROJECTION", wkt.NewNode(method)), pos)
	return nil
}

// Projection returns the PROJECTION method name, or "".
func (d *Definition) Projection() string {
	v, _ := d.GetAttrValue("PROJECTION", 0)
	return v
}

// SetProjParm sets a PARAMETER of the PROJCS, overwriting a same-named
// parameter or appending a new one.
func (d *Definition) SetProjParm(name string, value float64) error {
	projcs := d.GetAttrNode("PROJCS")
	if projcs == nil {
		return domain.ErrNoProjectedCS
	}
	d.invalidate()

	text := formatFloat(value)
	for _, c := range projcs.Children() {
		if isKeyword(c, "PARAMETER") && c.ChildCount() == 2 &&
			strings.EqualFold(c.Child(0).Value(), name) {
			c.Child(1).SetValue(text)
			return nil
		}
	}
	projcs.AddChild(wkt.NewNodeWith("PARAMETER", wkt.NewNode(name), wkt.NewNode(text)))
	return nil
}

// FindProjParm returns the PROJCS child index of the named parameter or -1.
// latitude_of_origin falls back to latitude_of_center; central_meridian
// falls back to longitude_of_center and then longitude_of_origin.
func (d *Definition) FindProjParm(name string) int {
	return findProjParm(d.GetAttrNode("PROJCS"), name)
}

func findProjParm(projcs *wkt.Node, name string) int {
	if projcs == nil {
		return -1
	}
	for i, c := range projcs.Children() {
		if isKeyword(c, "PARAMETER") && c.ChildCount() == 2 &&
			strings.EqualFold(c.Child(0).Value(), name) {
			return i
		}
	}

	switch {
	case strings.EqualFold(name, ParamLatitudeOfOrigin):
		return findProjParm(projcs, ParamLatitudeOfCenter)
	case strings.EqualFold(name, ParamCentralMeridian):
		if i := findProjParm(projcs, ParamLongitudeOfCenter); i >= 0 {
			return i
		}
		return findProjParm(projcs, ParamLongitudeOfOrigin)
	}
	return -1
}

// GetProjParm returns the raw parameter value, or def together with
// ErrParameterNotFound.
func (d *Definition) GetProjParm(name string, def float64) (float64, error) {
	projcs := d.GetAttrNode("PROJCS")
	if i := findProjParm(projcs, name); i >= 0 {
		return atof(projcs.Child(i).Child(1).Value()), nil
	}
	return def, fmt.Errorf("%s: %w", name, domain.ErrParameterNotFound)
}

// GetNormProjParm returns the parameter in degrees or metres. A default
// is returned unscaled.
func (d *Definition) GetNormProjParm(name string, def float64) (float64, error) {
	norm := d.GetNormInfo()
	v, err := d.GetProjParm(name, def)
	if err != nil {
		return v, err
	}
	if norm.ToDegrees != 1.0 && IsAngularParameter(name) {
		v *= norm.ToDegrees
	}
	if norm.ToMeters != 1.0 && IsLinearParameter(name) {
		return v * norm.ToMeters, nil
	}
	return v, nil
}

// SetNormProjParm stores a value given in degrees or metres in the units
// of the definition.
func (d *Definition) SetNormProjParm(name string, value float64) error {
	norm := d.GetNormInfo()
	switch {
	case (norm.ToDegrees != 1.0 || norm.FromGreenwich != 0.0) && IsAngularParameter(name):
		value /= norm.ToDegrees
	case norm.ToMeters != 1.0 && IsLinearParameter(name):
		value /= norm.ToMeters
	}
	return d.SetProjParm(name, value)
}

// Parameters returns the PROJCS parameters in document order.
func (d *Definition) Parameters() []Parameter {
	projcs := d.GetAttrNode("PROJCS")
	if projcs == nil {
		return nil
	}
	var out []Parameter
	for _, c := range projcs.Children() {
		if isKeyword(c, "PARAMETER") && c.ChildCount() >= 2 {
			out = append(out, Parameter{Name: c.Child(0).Value(), Value: atof(c.Child(1).Value())})
		}
	}
	return out
}

// Parameter is a named projection parameter.
type Parameter struct {
	Name  string
	Value float64
}

// IsAngularParameter reports whether a parameter is expressed in angular units.
func IsAngularParameter(name string) bool {
	return hasPrefixFold(name, "long") ||
		hasPrefixFold(name, "lati") ||
		strings.EqualFold(name, ParamCentralMeridian) ||
		hasPrefixFold(name, "standard_parallel") ||
		strings.EqualFold(name, ParamAzimuth) ||
		strings.EqualFold(name, ParamRectifiedGridAngle)
}

// IsLongitudeParameter reports whether a parameter is a longitude.
func IsLongitudeParameter(name string) bool {
	return hasPrefixFold(name, "long") || strings.EqualFold(name, ParamCentralMeridian)
}

// IsLinearParameter reports whether a parameter is expressed in linear units.
func IsLinearParameter(name string) bool {
	return hasPrefixFold(name, "false_") || strings.EqualFold(name, ParamSatelliteHeight)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
