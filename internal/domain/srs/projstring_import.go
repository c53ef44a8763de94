package srs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/wkt"
)

// projParams holds the key/value pairs of an engine parameter string.
// Flags such as +south are stored with an empty value.
type projParams map[string]string

func tokenizeProjString(text string) projParams {
	out := projParams{}
	for _, tok := range strings.Fields(text) {
		tok = strings.TrimPrefix(tok, "+")
		if tok == "" {
			continue
		}
		if i := strings.IndexByte(tok, '='); i >= 0 {
			out[tok[:i]] = tok[i+1:]
			continue
		}
		out[tok] = ""
	}
	return out
}

func (p projParams) has(key string) bool {
	_, ok := p[key]
	return ok
}

// get returns the numeric value of key or def. An absent k falls back
// to k_0.
func (p projParams) get(key string, def float64) float64 {
	v, ok := p[key]
	if !ok && key == "k" {
		v, ok = p["k_0"]
	}
	if !ok {
		return def
	}
	f, ok := parseDMS(v)
	if !ok {
		return def
	}
	return f
}

// ImportFromProjString replaces the definition with the one described by
// an engine parameter string. lookup resolves +init=epsg:n and the datum
// aliases that need an EPSG geographic system; it may be nil.
func (d *Definition) ImportFromProjString(text string, lookup GeogCSLookup) error {
	d.Clear()

	text = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(text)
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("engine string: %w", domain.ErrNotEnoughData)
	}
	p := tokenizeProjString(text)

	proj, ok := p["proj"]
	if !ok {
		initArg, hasInit := p["init"]
		if !hasInit || !strings.HasPrefix(strings.ToLower(initArg), "epsg:") {
			return fmt.Errorf("engine string has no +proj: %w", domain.ErrCorrupt)
		}
		if lookup == nil {
			return fmt.Errorf("%s: %w", initArg, domain.ErrUnsupported)
		}
		code, err := strconv.Atoi(initArg[len("epsg:"):])
		if err != nil {
			return fmt.Errorf("%s: %w", initArg, domain.ErrInvalidSRID)
		}
		src, err := lookup(code)
		if err != nil {
			return err
		}
		d.SetRoot(src.Root().Clone())
		return nil
	}

	pmName := PrimeMeridianGreenwich
	var fromGreenwich float64
	if v, ok := p["pm"]; ok {
		if pm, found := primeMeridianByName(v); found {
			pmName = pm.wkt
			fromGreenwich = pm.degrees()
		} else {
			fromGreenwich, _ = parseDMS(v)
			pmName = "unnamed"
		}
	}

	addExtension, err := d.importProjection(proj, p)
	if err != nil {
		return err
	}

	if err := d.importEarthModel(p, pmName, fromGreenwich, lookup); err != nil {
		return err
	}

	if v, ok := p["towgs84"]; ok && !(strings.EqualFold(p["datum"], "WGS84") && v == "0,0,0") {
		parts := strings.Split(v, ",")
		if len(parts) >= 3 {
			var c [7]float64
			for i := 0; i < len(parts) && i < 7; i++ {
				c[i] = atof(parts[i])
			}
			if err := d.SetTOWGS84(c[0], c[1], c[2], c[3], c[4], c[5], c[6]); err != nil {
				return err
			}
		}
	}

	if v, ok := p["nadgrids"]; ok {
		if err := d.SetExtension("DATUM", "PROJ4_GRIDS", v); err != nil {
			return err
		}
		if err := d.FixupOrdering(); err != nil {
			return err
		}
	}

	if d.IsProjected() || d.IsLocal() || d.IsGeocentric() {
		if err := d.importLinearUnits(p); err != nil {
			return err
		}
	}

	if v, ok := p["geoidgrids"]; ok {
		d.importGeoidGrids(v, p)
	}

	if strings.Contains(text, "wktext") || addExtension {
		if err := d.SetExtension(d.root.Value(), "PROJ4", strings.TrimSpace(text)); err != nil {
			return err
		}
	}

	if initArg, ok := p["init"]; ok && d.root.FindChild("AUTHORITY") < 0 {
		if i := strings.IndexByte(initArg, ':'); i > 0 {
			d.root.AddChild(wkt.NewNodeWith("AUTHORITY",
				wkt.NewNode(strings.ToUpper(initArg[:i])), wkt.NewNode(initArg[i+1:])))
		}
	}
	return nil
}

// importProjection sets the method named by +proj. It reports whether
// the original string must be kept as an extension.
func (d *Definition) importProjection(proj string, p projParams) (bool, error) {
	x0, y0 := p.get("x_0", 0), p.get("y_0", 0)
	lat0, lon0 := p.get("lat_0", 0), p.get("lon_0", 0)

	switch strings.ToLower(proj) {
	case "longlat", "latlong":
		return false, nil
	case "geocent":
		return false, d.SetGeocCS("Geocentric")
	case "bonne":
		return false, d.SetBonne(p.get("lat_1", 0), lon0, x0, y0)
	case "cass":
		return false, d.SetCS(lat0, lon0, x0, y0)
	case "nzmg":
		return false, d.SetNZMG(p.get("lat_0", -41), p.get("lon_0", 173), p.get("x_0", 2510000), p.get("y_0", 6023150))
	case "cea":
		return false, d.SetCEA(p.get("lat_ts", 0), lon0, x0, y0)
	case "tmerc":
		if strings.EqualFold(p["axis"], "wsu") {
			return false, d.SetTMSO(lat0, lon0, p.get("k", 1), x0, y0)
		}
		return false, d.SetTM(lat0, lon0, p.get("k", 1), x0, y0)
	case "etmerc":
		if p.has("axis") {
			break
		}
		return true, d.SetTM(lat0, lon0, p.get("k", 1), x0, y0)
	case "utm":
		return false, d.SetUTM(int(p.get("zone", 0)), !p.has("south"))
	case "merc":
		if lts := p.get("lat_ts", 1000); lts < 999 {
			return false, d.SetMercator2SP(lts, 0, lon0, x0, y0)
		}
		return false, d.SetMercator(0, lon0, p.get("k", 1), x0, y0)
	case "stere":
		switch {
		case math.Abs(lat0-90) < 0.001:
			return false, d.SetPS(p.get("lat_ts", 90), lon0, p.get("k", 1), x0, y0)
		case math.Abs(lat0+90) < 0.001:
			return false, d.SetPS(p.get("lat_ts", -90), lon0, p.get("k", 1), x0, y0)
		}
		return false, d.SetStereographic(lat0, lon0, p.get("k", 1), x0, y0)
	case "sterea":
		return false, d.SetOS(lat0, lon0, p.get("k", 1), x0, y0)
	case "eqc":
		if lts := p.get("lat_ts", 0); lts != 0 {
			return false, d.SetEquirectangular2(lat0, lon0, lts, x0, y0)
		}
		return false, d.SetEquirectangular(lat0, lon0, x0, y0)
	case "gnom":
		return false, d.SetGnomonic(lat0, lon0, x0, y0)
	case "ortho":
		return false, d.SetOrthographic(lat0, lon0, x0, y0)
	case "laea":
		return false, d.SetLAEA(lat0, lon0, x0, y0)
	case "aeqd":
		return false, d.SetAE(lat0, lon0, x0, y0)
	case "eqdc":
		return false, d.SetEquidistantConic(p.get("lat_1", 0), p.get("lat_2", 0), lat0, lon0, x0, y0)
	case "moll":
		return false, d.SetMollweide(lon0, x0, y0)
	case "poly":
		return false, d.SetPolyconic(lat0, lon0, x0, y0)
	case "aea":
		return false, d.SetACEA(p.get("lat_1", 0), p.get("lat_2", 0), lat0, lon0, x0, y0)
	case "robin":
		return false, d.SetRobinson(lon0, x0, y0)
	case "vandg":
		return false, d.SetVDG(lon0, x0, y0)
	case "sinu":
		return false, d.SetSinusoidal(lon0, x0, y0)
	case "geos":
		err := d.SetGEOS(lon0, p.get("h", 35785831.0), x0, y0)
		return strings.EqualFold(p["sweep"], "x"), err
	case "lcc":
		if p.get("lat_0", 0) == p.get("lat_1", 0) && !p.has("lat_2") {
			return false, d.SetLCC1SP(lat0, lon0, p.get("k_0", 1), x0, y0)
		}
		return false, d.SetLCC(p.get("lat_1", 0), p.get("lat_2", 0), lat0, lon0, x0, y0)
	case "omerc":
		alpha := p.get("alpha", 0)
		gamma := p.get("gamma", alpha)
		if p.has("no_uoff") || p.has("no_off") {
			return false, d.SetHOM(lat0, p.get("lonc", 0), alpha, gamma, p.get("k", 1), x0, y0)
		}
		return false, d.SetHOMAC(lat0, p.get("lonc", 0), alpha, gamma, p.get("k", 1), x0, y0)
	case "somerc":
		return false, d.SetHOMAC(lat0, lon0, 90, 90, p.get("k", 1), x0, y0)
	case "krovak":
		return false, d.SetKrovak(lat0, lon0, p.get("alpha", 0), 0, p.get("k", 1), x0, y0)
	}
	return false, fmt.Errorf("engine projection %q: %w", proj, domain.ErrUnsupported)
}

func (d *Definition) importEarthModel(p projParams, pmName string, fromGreenwich float64, lookup GeogCSLookup) error {
	if datum, ok := p["datum"]; ok {
		switch strings.ToUpper(datum) {
		case "NAD27", "NAD83", "WGS84", "WGS72":
			if fromGreenwich == 0 {
				return d.SetWellKnownGeogCS(datum, nil)
			}
		default:
			for _, a := range datumAliases {
				if !strings.EqualFold(datum, a.proj) || lookup == nil {
					continue
				}
				src, err := lookup(a.geogCode)
				if err != nil {
					return err
				}
				return d.CopyGeogCSFrom(src)
			}
		}
	}

	if name, ok := p["ellps"]; ok {
		if e, found := lookupEllipsoid(name); found {
			return d.SetGeogCS(GeogCSParams{
				Name:          e.description,
				Datum:         "unknown",
				Ellipsoid:     e.name,
				SemiMajor:     e.semiMajor,
				InvFlattening: e.inverseFlattening(),
				PrimeMeridian: pmName,
				PMOffset:      fromGreenwich,
			})
		}
	}

	semiMajor := p.get("a", 0)
	semiMinor, invFlattening := -1.0, -1.0
	switch {
	case semiMajor == 0 && p.get("R", 0) != 0:
		semiMajor = p.get("R", 0)
		invFlattening = 0
	case semiMajor == 0:
		semiMajor = WGS84SemiMajor
		invFlattening = WGS84InvFlattening
	default:
		semiMinor = p.get("b", -1)
		invFlattening = p.get("rf", -1)
		if semiMinor == -1 && invFlattening == -1 {
			switch f := p.get("f", -1); {
			case f == 0:
				semiMinor = semiMajor
			case f != -1:
				invFlattening = 1 / f
			}
		}
	}
	if semiMinor == -1 && invFlattening == -1 {
		return fmt.Errorf("engine string has no ellipsoid: %w", domain.ErrUnsupported)
	}
	if invFlattening == -1 {
		invFlattening = InvFlatteningFromSemiMinor(semiMajor, semiMinor)
	}
	return d.SetGeogCS(GeogCSParams{
		Name:          "unnamed ellipse",
		Datum:         "unknown",
		Ellipsoid:     "unnamed",
		SemiMajor:     semiMajor,
		InvFlattening: invFlattening,
		PrimeMeridian: pmName,
		PMOffset:      fromGreenwich,
	})
}

func (d *Definition) importLinearUnits(p projParams) error {
	var err error
	if v, ok := p["to_meter"]; ok && atof(v) > 0 {
		meters := atof(v)
		if u, found := linearUnitFor(meters, ""); found {
			err = d.SetLinearUnits(u.wkt, u.meters)
		} else {
			err = d.SetLinearUnits("unknown", meters)
		}
	} else if v, ok := p["units"]; ok {
		if u, found := linearUnitByProjName(v); found {
			err = d.SetLinearUnits(u.wkt, u.meters)
		} else {
			err = d.SetLinearUnits(v, 1.0)
		}
	} else if _, name := d.GetLinearUnits(); name == "unknown" {
		err = d.SetLinearUnits(UnitMeter, 1.0)
	}
	if err != nil {
		return err
	}

	if meters, _ := d.GetLinearUnits(); meters == 1.0 || !d.IsProjected() {
		return nil
	}
	for _, parm := range d.Parameters() {
		if !IsLinearParameter(parm.Name) {
			continue
		}
		if err := d.SetNormProjParm(parm.Name, parm.Value); err != nil {
			return err
		}
	}
	return nil
}

// importGeoidGrids wraps the horizontal system in a COMPD_CS with an
// unnamed vertical system referring to the grids.
func (d *Definition) importGeoidGrids(grids string, p projParams) {
	horizontal := d.root
	name := "unnamed"
	if horizontal.ChildCount() > 0 {
		name = horizontal.Child(0).Value()
	}

	vert := wkt.NewNodeWith("VERT_CS",
		wkt.NewNode("Unnamed"),
		wkt.NewNodeWith("VERT_DATUM",
			wkt.NewNode("Unnamed"),
			wkt.NewNode("2005"),
			wkt.NewNodeWith("EXTENSION", wkt.NewNode("PROJ4_GRIDS"), wkt.NewNode(grids)),
		),
	)

	var unit linearUnit
	found := false
	if v, ok := p["vto_meter"]; ok && atof(v) > 0 {
		if unit, found = linearUnitFor(atof(v), ""); !found {
			unit, found = linearUnit{wkt: "unknown", meters: atof(v)}, true
		}
	} else if v, ok := p["vunits"]; ok {
		if unit, found = linearUnitByProjName(v); !found {
			unit, found = linearUnit{wkt: "unknown", meters: atof(v)}, true
		}
	}
	if found {
		vert.AddChild(wkt.NewNodeWith("UNIT", wkt.NewNode(unit.wkt), wkt.NewNode(formatInt(unit.meters))))
	}
	vert.AddChild(wkt.NewNodeWith("AXIS", wkt.NewNode("Up"), wkt.NewNode("UP")))

	d.invalidate()
	d.root = wkt.NewNodeWith("COMPD_CS", wkt.NewNode(name+" + Unnamed Vertical Datum"), horizontal, vert)
}
