package srs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jobrunner/georef/internal/domain"
)

// projString collects "+key=value" tokens in order.
type projString struct {
	tokens []string
}

func (p *projString) add(key string, v float64) {
	p.tokens = append(p.tokens, "+"+key+"="+formatFloat(v))
}

func (p *projString) addText(key, v string) {
	p.tokens = append(p.tokens, "+"+key+"="+v)
}

func (p *projString) flag(key string) {
	p.tokens = append(p.tokens, "+"+key)
}

func (p *projString) contains(token string) bool {
	for _, t := range p.tokens {
		if t == token {
			return true
		}
	}
	return false
}

func (p *projString) String() string {
	return strings.Join(p.tokens, " ")
}

// normParm returns a normalised parameter or def when it is missing.
func (d *Definition) normParm(name string, def float64) float64 {
	v, _ := d.GetNormProjParm(name, def)
	return v
}

// ExportToProjString renders the definition as an engine parameter
// string such as "+proj=utm +zone=31 +datum=WGS84 +units=m +no_defs".
// A PROJ4 extension on the root is returned as is.
func (d *Definition) ExportToProjString() (string, error) {
	if d.root == nil {
		return "", fmt.Errorf("export: %w", domain.ErrUnsupported)
	}
	if ext := d.GetExtension(d.root.Value(), "PROJ4", ""); ext != "" {
		return ext, nil
	}

	var fromGreenwich float64
	primem := d.GetAttrNode("PRIMEM")
	if primem != nil && primem.ChildCount() >= 2 {
		fromGreenwich = atof(primem.Child(1).Value())
	}

	p := &projString{}
	method := d.Projection()
	switch {
	case method == "" && d.IsGeographic():
		p.addText("proj", "longlat")
	case d.IsGeocentric():
		p.addText("proj", "geocent")
	case method == "":
		return "", fmt.Errorf("export %s: %w", d.root.Value(), domain.ErrUnsupported)
	default:
		done, err := d.exportProjection(p, method)
		if err != nil {
			return "", err
		}
		if done {
			return p.String(), nil
		}
	}

	d.exportEarthModel(p)

	if fromGreenwich != 0 {
		var pm primeMeridian
		found := false
		if strings.EqualFold(d.GetAuthorityName("PRIMEM"), "EPSG") {
			code, _ := strconv.Atoi(d.GetAuthorityCode("PRIMEM"))
			pm, found = primeMeridianByCode(code)
		}
		if !found {
			pm, found = primeMeridianByOffset(fromGreenwich)
		}
		if found {
			p.addText("pm", pm.proj)
		} else {
			p.add("pm", fromGreenwich)
		}
	}

	if !p.contains("+proj=longlat") {
		meters, name := d.GetLinearUnits()
		if u, ok := linearUnitFor(meters, name); ok {
			p.addText("units", u.proj)
		} else {
			p.add("to_meter", meters)
		}
	}

	if grids := d.GetExtension("VERT_DATUM", "PROJ4_GRIDS", ""); grids != "" {
		p.addText("geoidgrids", grids)
	}
	if vert := d.GetAttrNode("VERT_CS"); vert != nil {
		if i := vert.FindChild("UNIT"); i >= 0 && vert.Child(i).ChildCount() >= 2 {
			unit := vert.Child(i)
			meters := atof(unit.Child(1).Value())
			if u, ok := linearUnitFor(meters, unit.Child(0).Value()); ok {
				p.addText("vunits", u.proj)
			} else {
				p.add("vto_meter", meters)
			}
		}
	}

	p.flag("no_defs")
	return p.String(), nil
}

// exportProjection writes the method block. It reports true when the
// block is complete and nothing else must be appended.
func (d *Definition) exportProjection(p *projString, method string) (bool, error) {
	m := strings.ToLower(method)
	fe := func() {
		p.add("x_0", d.normParm(ParamFalseEasting, 0))
		p.add("y_0", d.normParm(ParamFalseNorthing, 0))
	}
	latLon := func(name string) {
		p.addText("proj", name)
		p.add("lat_0", d.normParm(ParamLatitudeOfOrigin, 0))
		p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
		fe()
	}
	lonOnly := func(name string) {
		p.addText("proj", name)
		p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
		fe()
	}

	switch m {
	case strings.ToLower(ProjCylindricalEqualArea):
		p.addText("proj", "cea")
		p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
		p.add("lat_ts", d.normParm(ParamStandardParallel1, 0))
		fe()

	case strings.ToLower(ProjBonne):
		p.addText("proj", "bonne")
		p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
		p.add("lat_1", d.normParm(ParamStandardParallel1, 0))
		fe()

	case strings.ToLower(ProjCassiniSoldner):
		latLon("cass")

	case strings.ToLower(ProjNewZealandMapGrid):
		latLon("nzmg")

	case strings.ToLower(ProjTransverseMercator):
		if zone, north := d.GetUTMZone(); zone != 0 {
			p.addText("proj", "utm")
			p.addText("zone", strconv.Itoa(zone))
			if !north {
				p.flag("south")
			}
			break
		}
		d.exportTM(p)

	case strings.ToLower(ProjTransverseMercatorSouthOriented):
		d.exportTM(p)
		p.addText("axis", "wsu")

	case strings.ToLower(ProjMercator1SP):
		latOrigin := d.normParm(ParamLatitudeOfOrigin, 0)
		scale := d.normParm(ParamScaleFactor, 1)
		switch {
		case latOrigin == 0:
			p.addText("proj", "merc")
			p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
			p.add("k", scale)
		case scale == 1:
			p.addText("proj", "merc")
			p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
			p.add("lat_ts", latOrigin)
		default:
			return false, fmt.Errorf("%s with scale != 1 and latitude of origin != 0: %w", method, domain.ErrUnsupported)
		}
		fe()

	case strings.ToLower(ProjMercator2SP):
		p.addText("proj", "merc")
		p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
		p.add("lat_ts", d.normParm(ParamStandardParallel1, 0))
		fe()

	case strings.ToLower(ProjMercatorAuxiliarySphere):
		a := d.GetSemiMajor()
		p.addText("proj", "merc")
		p.add("a", a)
		p.add("b", a)
		p.add("lat_ts", d.normParm(ParamStandardParallel1, 0))
		p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
		fe()
		p.add("k", d.normParm(ParamScaleFactor, 1))
		p.addText("units", "m")
		p.addText("nadgrids", "@null")
		p.flag("wktext")
		p.flag("no_defs")
		return true, nil

	case strings.ToLower(ProjObliqueStereographic):
		p.addText("proj", "sterea")
		p.add("lat_0", d.normParm(ParamLatitudeOfOrigin, 0))
		p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
		p.add("k", d.normParm(ParamScaleFactor, 1))
		fe()

	case strings.ToLower(ProjStereographic):
		p.addText("proj", "stere")
		p.add("lat_0", d.normParm(ParamLatitudeOfOrigin, 0))
		p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
		p.add("k", d.normParm(ParamScaleFactor, 1))
		fe()

	case strings.ToLower(ProjPolarStereographic):
		p.addText("proj", "stere")
		if d.normParm(ParamLatitudeOfOrigin, 0) >= 0 {
			p.add("lat_0", 90)
			p.add("lat_ts", d.normParm(ParamLatitudeOfOrigin, 90))
		} else {
			p.add("lat_0", -90)
			p.add("lat_ts", d.normParm(ParamLatitudeOfOrigin, -90))
		}
		p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
		p.add("k", d.normParm(ParamScaleFactor, 1))
		fe()

	case strings.ToLower(ProjEquirectangular):
		p.addText("proj", "eqc")
		p.add("lat_ts", d.normParm(ParamStandardParallel1, 0))
		p.add("lat_0", d.normParm(ParamLatitudeOfOrigin, 0))
		p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
		fe()

	case strings.ToLower(ProjGnomonic):
		latLon("gnom")

	case strings.ToLower(ProjOrthographic):
		latLon("ortho")

	case strings.ToLower(ProjLambertAzimuthalEqualArea):
		latLon("laea")

	case strings.ToLower(ProjAzimuthalEquidistant):
		latLon("aeqd")

	case strings.ToLower(ProjEquidistantConic):
		p.addText("proj", "eqdc")
		p.add("lat_0", d.normParm(ParamLatitudeOfCenter, 0))
		p.add("lon_0", d.normParm(ParamLongitudeOfCenter, 0))
		p.add("lat_1", d.normParm(ParamStandardParallel1, 0))
		p.add("lat_2", d.normParm(ParamStandardParallel2, 0))
		fe()

	case strings.ToLower(ProjMollweide):
		lonOnly("moll")

	case strings.ToLower(ProjPolyconic):
		latLon("poly")

	case strings.ToLower(ProjAlbersConicEqualArea):
		p.addText("proj", "aea")
		p.add("lat_1", d.normParm(ParamStandardParallel1, 0))
		p.add("lat_2", d.normParm(ParamStandardParallel2, 0))
		p.add("lat_0", d.normParm(ParamLatitudeOfOrigin, 0))
		p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
		fe()

	case strings.ToLower(ProjRobinson):
		lonOnly("robin")

	case strings.ToLower(ProjVanDerGrinten):
		lonOnly("vandg")
		p.flag("R_A")

	case strings.ToLower(ProjSinusoidal):
		lonOnly("sinu")

	case strings.ToLower(ProjGeostationarySatellite):
		p.addText("proj", "geos")
		p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
		p.add("h", d.normParm(ParamSatelliteHeight, 35785831.0))
		fe()

	case strings.ToLower(ProjLambertConformalConic2SP), strings.ToLower(ProjLambertConformalConic2SPBelgium):
		p.addText("proj", "lcc")
		p.add("lat_1", d.normParm(ParamStandardParallel1, 0))
		p.add("lat_2", d.normParm(ParamStandardParallel2, 0))
		p.add("lat_0", d.normParm(ParamLatitudeOfOrigin, 0))
		p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
		fe()

	case strings.ToLower(ProjLambertConformalConic1SP):
		p.addText("proj", "lcc")
		p.add("lat_1", d.normParm(ParamLatitudeOfOrigin, 0))
		p.add("lat_0", d.normParm(ParamLatitudeOfOrigin, 0))
		p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
		p.add("k_0", d.normParm(ParamScaleFactor, 1))
		fe()

	case strings.ToLower(ProjHotineObliqueMercator), strings.ToLower(ProjHotineObliqueMercatorAzimuthCenter):
		azimuth := d.normParm(ParamAzimuth, 0)
		if math.Abs(azimuth-90) < 1e-4 && math.Abs(d.normParm(ParamRectifiedGridAngle, 0)-90) < 1e-4 {
			p.addText("proj", "somerc")
			p.add("lat_0", d.normParm(ParamLatitudeOfOrigin, 0))
			p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
			p.add("k_0", d.normParm(ParamScaleFactor, 1))
			fe()
			break
		}
		p.addText("proj", "omerc")
		p.add("lat_0", d.normParm(ParamLatitudeOfOrigin, 0))
		p.add("lonc", d.normParm(ParamCentralMeridian, 0))
		p.add("alpha", azimuth)
		p.add("k", d.normParm(ParamScaleFactor, 1))
		fe()
		if m == strings.ToLower(ProjHotineObliqueMercator) {
			p.flag("no_uoff")
		}
		if gamma := d.normParm(ParamRectifiedGridAngle, 1000); gamma != 1000 {
			p.add("gamma", gamma)
		}

	case strings.ToLower(ProjKrovak):
		p.addText("proj", "krovak")
		p.add("lat_0", d.normParm(ParamLatitudeOfCenter, 0))
		p.add("lon_0", d.normParm(ParamLongitudeOfCenter, 0))
		p.add("alpha", d.normParm(ParamAzimuth, 0))
		p.add("k", d.normParm(ParamScaleFactor, 1))
		fe()

	case strings.ToLower(ProjSwissObliqueCylindrical):
		latLon("somerc")

	default:
		return false, fmt.Errorf("no engine translation for %s: %w", method, domain.ErrUnsupported)
	}
	return false, nil
}

func (d *Definition) exportTM(p *projString) {
	p.addText("proj", "tmerc")
	p.add("lat_0", d.normParm(ParamLatitudeOfOrigin, 0))
	p.add("lon_0", d.normParm(ParamCentralMeridian, 0))
	p.add("k", d.normParm(ParamScaleFactor, 1))
	p.add("x_0", d.normParm(ParamFalseEasting, 0))
	p.add("y_0", d.normParm(ParamFalseNorthing, 0))
}

// exportEarthModel writes the ellipsoid, datum shift and grid tokens.
func (d *Definition) exportEarthModel(p *projString) {
	semiMajor := d.GetSemiMajor()
	invFlattening := d.GetInvFlattening()
	datum, _ := d.GetAttrValue("DATUM", 0)

	var ellipse []string
	if e, ok := matchEllipsoid(semiMajor, invFlattening); ok {
		ellipse = []string{"+ellps=" + e.name}
	} else if strings.EqualFold(datum, DatumNAD27) {
		ellipse = []string{"+ellps=clrk66"}
	} else if strings.EqualFold(datum, DatumNAD83) {
		ellipse = []string{"+ellps=GRS80"}
	} else {
		ellipse = []string{"+a=" + formatFloat(semiMajor), "+b=" + formatFloat(d.GetSemiMinor())}
	}
	flushEllipse := func() {
		p.tokens = append(p.tokens, ellipse...)
		ellipse = nil
	}

	datumCode := -1
	if strings.EqualFold(d.GetAuthorityName("DATUM"), "EPSG") {
		datumCode, _ = strconv.Atoi(d.GetAuthorityCode("DATUM"))
	}

	var projDatum string
	switch {
	case datum == "":
	case strings.EqualFold(datum, DatumNAD27) || datumCode == 6267:
		projDatum = "NAD27"
	case strings.EqualFold(datum, DatumNAD83) || datumCode == 6269:
		projDatum = "NAD83"
	case strings.EqualFold(datum, DatumWGS84) || strings.EqualFold(datum, "WGS_1984") || datumCode == 6326:
		projDatum = "WGS84"
	default:
		if a, ok := matchDatum(datum, datumCode); ok {
			projDatum = a.proj
		}
	}

	grids := d.GetExtension("DATUM", "PROJ4_GRIDS", "")
	if grids != "" {
		flushEllipse()
		p.addText("nadgrids", grids)
		projDatum = ""
	}

	if towgs84 := d.GetAttrNode("TOWGS84"); projDatum == "" && towgs84 != nil && towgs84.ChildCount() >= 3 {
		n := 3
		if towgs84.ChildCount() >= 7 {
			n = 7
		}
		values := make([]string, n)
		for i := 0; i < n; i++ {
			values[i] = towgs84.Child(i).Value()
		}
		flushEllipse()
		p.addText("towgs84", strings.Join(values, ","))
	}

	if projDatum != "" {
		p.addText("datum", projDatum)
		return
	}
	flushEllipse()
}
