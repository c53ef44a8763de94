package srs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/wkt"
)

// GeogCSLookup resolves an EPSG code for SetWellKnownGeogCS.
type GeogCSLookup func(code int) (*Definition, error)

// GeogCSParams describes a geographic coordinate system for SetGeogCS.
// Empty names and a zero RadiansPerUnit fall back to defaults.
type GeogCSParams struct {
	Name           string
	Datum          string
	Ellipsoid      string
	SemiMajor      float64
	InvFlattening  float64
	PrimeMeridian  string
	PMOffset       float64
	Units          string
	RadiansPerUnit float64
}

// SetGeogCS installs a new GEOGCS. An existing GEOGCS root is replaced,
// a PROJCS root gets the GEOGCS as its second child and a GEOCCS only
// takes over the DATUM and PRIMEM. Otherwise the GEOGCS becomes the root.
func (d *Definition) SetGeogCS(p GeogCSParams) error {
	d.invalidate()

	if d.IsGeocentric() {
		tmp := New()
		if err := tmp.SetGeogCS(p); err != nil {
			return err
		}
		return d.CopyGeogCSFrom(tmp)
	}
	if err := d.detachGeogCS(); err != nil {
		return err
	}

	if p.Name == "" {
		p.Name = "unnamed"
	}
	if p.PrimeMeridian == "" {
		p.PrimeMeridian = PrimeMeridianGreenwich
	}
	if p.Datum == "" {
		p.Datum = "unknown"
	}
	if p.Ellipsoid == "" {
		p.Ellipsoid = "unnamed"
	}
	if p.Units == "" || p.RadiansPerUnit == 0 {
		p.Units = UnitDegree
		p.RadiansPerUnit = UnitDegreeConv
	}

	pmOffset := "0"
	if p.PMOffset != 0 {
		pmOffset = formatFloat(p.PMOffset)
	}

	geogcs := wkt.NewNodeWith("GEOGCS",
		wkt.NewNode(p.Name),
		wkt.NewNodeWith("DATUM",
			wkt.NewNode(p.Datum),
			wkt.NewNodeWith("SPHEROID",
				wkt.NewNode(p.Ellipsoid),
				wkt.NewNode(formatFloat(p.SemiMajor)),
				wkt.NewNode(formatFloat(p.InvFlattening)),
			),
		),
		wkt.NewNodeWith("PRIMEM", wkt.NewNode(p.PrimeMeridian), wkt.NewNode(pmOffset)),
		wkt.NewNodeWith("UNIT", wkt.NewNode(p.Units), wkt.NewNode(formatFloat(p.RadiansPerUnit))),
	)

	d.attachGeogCS(geogcs)
	return nil
}

// SetWellKnownGeogCS installs one of WGS84, WGS72, NAD27 or NAD83
// (aliases CRS84, CRS:84, CRS27, CRS:27, CRS83, CRS:83), or "EPSG:n" when
// lookup is not nil.
func (d *Definition) SetWellKnownGeogCS(name string, lookup GeogCSLookup) error {
	if len(name) > 5 && strings.EqualFold(name[:5], "EPSG:") {
		if lookup == nil {
			return fmt.Errorf("%s: %w", name, domain.ErrUnsupported)
		}
		code, err := strconv.Atoi(strings.TrimSpace(name[5:]))
		if err != nil {
			return fmt.Errorf("%s: %w", name, domain.ErrInvalidSRID)
		}
		src, err := lookup(code)
		if err != nil {
			return err
		}
		if !src.IsGeographic() {
			return fmt.Errorf("%s is not geographic: %w", name, domain.ErrUnsupported)
		}
		return d.CopyGeogCSFrom(src)
	}

	var text string
	switch strings.ToUpper(name) {
	case "WGS84", "CRS84", "CRS:84":
		text = WKTWGS84
	case "WGS72":
		text = wktWGS72
	case "NAD27", "CRS27", "CRS:27":
		text = wktNAD27
	case "NAD83", "CRS83", "CRS:83":
		text = wktNAD83
	default:
		return fmt.Errorf("well known geographic system %q: %w", name, domain.ErrUnsupported)
	}

	src, err := NewFromWKT(text)
	if err != nil {
		return err
	}
	return d.CopyGeogCSFrom(src)
}

// CopyGeogCSFrom copies the GEOGCS of src into d using the placement rules
// of SetGeogCS.
func (d *Definition) CopyGeogCSFrom(src *Definition) error {
	d.invalidate()

	if d.IsGeocentric() {
		if i := d.root.FindChild("DATUM"); i >= 0 {
			d.root.DestroyChild(i)
		}
		if i := d.root.FindChild("PRIMEM"); i >= 0 {
			d.root.DestroyChild(i)
		}
		datum := src.GetAttrNode("DATUM")
		pm := src.GetAttrNode("PRIMEM")
		if datum == nil || pm == nil {
			return domain.ErrNoGeographicCS
		}
		d.root.InsertChild(datum.Clone(), 1)
		d.root.InsertChild(pm.Clone(), 2)
		return nil
	}

	geogcs := src.GetAttrNode("GEOGCS")
	if geogcs == nil {
		return domain.ErrNoGeographicCS
	}
	if err := d.detachGeogCS(); err != nil {
		return err
	}
	d.attachGeogCS(geogcs.Clone())
	return nil
}

// CloneGeogCS returns a new definition holding only the geographic part.
// A geocentric definition yields an unnamed GEOGCS in degrees.
func (d *Definition) CloneGeogCS() (*Definition, error) {
	if d.IsGeocentric() {
		datum := d.GetAttrNode("DATUM")
		pm := d.GetAttrNode("PRIMEM")
		if datum == nil || pm == nil {
			return nil, domain.ErrNoGeographicCS
		}
		out := New()
		out.SetRoot(wkt.NewNodeWith("GEOGCS", wkt.NewNode("unnamed"), datum.Clone(), pm.Clone()))
		if err := out.SetAngularUnits(UnitDegree, UnitDegreeConv); err != nil {
			return nil, err
		}
		return out, nil
	}
	geogcs := d.GetAttrNode("GEOGCS")
	if geogcs == nil {
		return nil, domain.ErrNoGeographicCS
	}
	return NewFromNode(geogcs), nil
}

func (d *Definition) detachGeogCS() error {
	if d.GetAttrNode("GEOGCS") == nil {
		return nil
	}
	if d.rootKind() == "GEOGCS" {
		d.root = nil
		return nil
	}
	if projcs := d.GetAttrNode("PROJCS"); projcs != nil {
		if i := projcs.FindChild("GEOGCS"); i >= 0 {
			projcs.DestroyChild(i)
			return nil
		}
	}
	return fmt.Errorf("cannot replace GEOGCS under %s: %w", d.root.Value(), domain.ErrUnsupported)
}

func (d *Definition) attachGeogCS(geogcs *wkt.Node) {
	if d.rootKind() == "PROJCS" {
		d.root.InsertChild(geogcs, 1)
		return
	}
	d.root = geogcs
}

// SetTOWGS84 sets the seven datum shift parameters, replacing any
// existing TOWGS84 and keeping it ahead of the datum AUTHORITY.
func (d *Definition) SetTOWGS84(dx, dy, dz, ex, ey, ez, ppm float64) error {
	datum := d.GetAttrNode("DATUM")
	if datum == nil {
		return fmt.Errorf("no DATUM node: %w", domain.ErrInvalidInput)
	}
	if i := datum.FindChild("TOWGS84"); i >= 0 {
		datum.DestroyChild(i)
	}
	pos := datum.ChildCount()
	if i := datum.FindChild("AUTHORITY"); i >= 0 {
		pos = i
	}
	node := wkt.NewNode("TOWGS84")
	for _, v := range []float64{dx, dy, dz, ex, ey, ez, ppm} {
		node.AddChild(wkt.NewNode(formatFloat(v)))
	}
	datum.InsertChild(node, pos)
	return nil
}

// GetTOWGS84 returns the datum shift coefficients. Missing values are
// zero; ErrNotFound is returned when there is no TOWGS84 node.
func (d *Definition) GetTOWGS84() ([7]float64, error) {
	var out [7]float64
	node := d.GetAttrNode("TOWGS84")
	if node == nil {
		return out, fmt.Errorf("TOWGS84: %w", domain.ErrNotFound)
	}
	for i := 0; i < len(out) && i < node.ChildCount(); i++ {
		out[i] = atof(node.Child(i).Value())
	}
	return out, nil
}

// GetSemiMajor returns the ellipsoid semi-major axis, defaulting to WGS 84.
func (d *Definition) GetSemiMajor() float64 {
	if sph := d.GetAttrNode("SPHEROID"); sph != nil && sph.ChildCount() >= 3 {
		return atof(sph.Child(1).Value())
	}
	return WGS84SemiMajor
}

// GetInvFlattening returns the ellipsoid inverse flattening, defaulting
// to WGS 84.
func (d *Definition) GetInvFlattening() float64 {
	if sph := d.GetAttrNode("SPHEROID"); sph != nil && sph.ChildCount() >= 3 {
		return atof(sph.Child(2).Value())
	}
	return WGS84InvFlattening
}

// GetSemiMinor derives the semi-minor axis from the inverse flattening.
func (d *Definition) GetSemiMinor() float64 {
	return SemiMinorFromInvFlattening(d.GetSemiMajor(), d.GetInvFlattening())
}

// SemiMinorFromInvFlattening returns b for a and 1/f. A zero 1/f is a sphere.
func SemiMinorFromInvFlattening(semiMajor, invFlattening float64) float64 {
	if invFlattening == 0 {
		return semiMajor
	}
	return semiMajor * (1.0 - 1.0/invFlattening)
}

// InvFlatteningFromSemiMinor returns 1/f for a and b. A sphere yields 0.
func InvFlatteningFromSemiMinor(semiMajor, semiMinor float64) float64 {
	if semiMajor == semiMinor || semiMajor == 0 {
		return 0
	}
	return semiMajor / (semiMajor - semiMinor)
}

// SetGeocCS names the GEOCCS. An empty definition gets a bare GEOCCS
// root and a GEOGCS root is converted, keeping its DATUM and PRIMEM and
// switching to metres.
func (d *Definition) SetGeocCS(name string) error {
	d.invalidate()

	switch d.rootKind() {
	case "":
		d.root = wkt.NewNodeWith("GEOCCS", wkt.NewNode(name))
		return nil
	case "GEOCCS":
		d.root.Child(0).SetValue(name)
		return nil
	case "GEOGCS":
		geocs := wkt.NewNodeWith("GEOCCS", wkt.NewNode(name))
		for _, key := range []string{"DATUM", "PRIMEM"} {
			if i := d.root.FindChild(key); i >= 0 {
				geocs.AddChild(d.root.Child(i).Clone())
			}
		}
		d.root = geocs
		return d.SetLinearUnits(UnitMeter, 1.0)
	}
	return fmt.Errorf("cannot set GEOCCS on %s: %w", d.root.Value(), domain.ErrUnsupported)
}
