package srs

import (
	"fmt"
	"strings"

	"github.com/jobrunner/georef/internal/domain"
)

type pv struct {
	name  string
	value float64
}

// setMethod sets the projection and its normalised parameters in order.
func (d *Definition) setMethod(method string, params ...pv) error {
	if err := d.SetProjection(method); err != nil {
		return err
	}
	for _, p := range params {
		if err := d.SetNormProjParm(p.name, p.value); err != nil {
			return err
		}
	}
	return nil
}

func origin(lat, lon float64) []pv {
	return []pv{{ParamLatitudeOfOrigin, lat}, {ParamCentralMeridian, lon}}
}

func center(lat, lon float64) []pv {
	return []pv{{ParamLatitudeOfCenter, lat}, {ParamLongitudeOfCenter, lon}}
}

func falseOrigin(fe, fn float64) []pv {
	return []pv{{ParamFalseEasting, fe}, {ParamFalseNorthing, fn}}
}

func join(groups ...[]pv) []pv {
	var out []pv
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// SetTM sets Transverse Mercator.
func (d *Definition) SetTM(centerLat, centerLong, scale, fe, fn float64) error {
	return d.setMethod(ProjTransverseMercator,
		join(origin(centerLat, centerLong), []pv{{ParamScaleFactor, scale}}, falseOrigin(fe, fn))...)
}

// SetTMSO sets Transverse Mercator (South Orientated).
func (d *Definition) SetTMSO(centerLat, centerLong, scale, fe, fn float64) error {
	return d.setMethod(ProjTransverseMercatorSouthOriented,
		join(origin(centerLat, centerLong), []pv{{ParamScaleFactor, scale}}, falseOrigin(fe, fn))...)
}

// SetTMG sets the Tunisia Mining Grid.
func (d *Definition) SetTMG(centerLat, centerLong, fe, fn float64) error {
	return d.setMethod(ProjTunisiaMiningGrid, join(origin(centerLat, centerLong), falseOrigin(fe, fn))...)
}

// SetLCC sets Lambert Conformal Conic with two standard parallels.
func (d *Definition) SetLCC(stdP1, stdP2, centerLat, centerLong, fe, fn float64) error {
	return d.setMethod(ProjLambertConformalConic2SP,
		join([]pv{{ParamStandardParallel1, stdP1}, {ParamStandardParallel2, stdP2}},
			origin(centerLat, centerLong), falseOrigin(fe, fn))...)
}

// SetLCC1SP sets Lambert Conformal Conic with one standard parallel.
func (d *Definition) SetLCC1SP(centerLat, centerLong, scale, fe, fn float64) error {
	return d.setMethod(ProjLambertConformalConic1SP,
		join(origin(centerLat, centerLong), []pv{{ParamScaleFactor, scale}}, falseOrigin(fe, fn))...)
}

// SetLCCB sets the Belgian variant of Lambert Conformal Conic 2SP.
func (d *Definition) SetLCCB(stdP1, stdP2, centerLat, centerLong, fe, fn float64) error {
	return d.setMethod(ProjLambertConformalConic2SPBelgium,
		join([]pv{{ParamStandardParallel1, stdP1}, {ParamStandardParallel2, stdP2}},
			origin(centerLat, centerLong), falseOrigin(fe, fn))...)
}

// SetMercator sets Mercator 1SP. A zero latitude of origin is omitted.
func (d *Definition) SetMercator(centerLat, centerLong, scale, fe, fn float64) error {
	var params []pv
	if centerLat != 0 {
		params = append(params, pv{ParamLatitudeOfOrigin, centerLat})
	}
	params = append(params, pv{ParamCentralMeridian, centerLong}, pv{ParamScaleFactor, scale})
	return d.setMethod(ProjMercator1SP, append(params, falseOrigin(fe, fn)...)...)
}

// SetMercator2SP sets Mercator 2SP. A zero latitude of origin is omitted.
func (d *Definition) SetMercator2SP(stdP1, centerLat, centerLong, fe, fn float64) error {
	params := []pv{{ParamStandardParallel1, stdP1}}
	if centerLat != 0 {
		params = append(params, pv{ParamLatitudeOfOrigin, centerLat})
	}
	params = append(params, pv{ParamCentralMeridian, centerLong})
	return d.setMethod(ProjMercator2SP, append(params, falseOrigin(fe, fn)...)...)
}

// SetCS sets Cassini-Soldner.
func (d *Definition) SetCS(centerLat, centerLong, fe, fn float64) error {
	return d.setMethod(ProjCassiniSoldner, join(origin(centerLat, centerLong), falseOrigin(fe, fn))...)
}

// SetNZMG sets the New Zealand Map Grid.
func (d *Definition) SetNZMG(centerLat, centerLong, fe, fn float64) error {
	return d.setMethod(ProjNewZealandMapGrid, join(origin(centerLat, centerLong), falseOrigin(fe, fn))...)
}

// SetOS sets Oblique Stereographic.
func (d *Definition) SetOS(originLat, cmeridian, scale, fe, fn float64) error {
	return d.setMethod(ProjObliqueStereographic,
		join(origin(originLat, cmeridian), []pv{{ParamScaleFactor, scale}}, falseOrigin(fe, fn))...)
}

// SetPS sets Polar Stereographic.
func (d *Definition) SetPS(centerLat, centerLong, scale, fe, fn float64) error {
	return d.setMethod(ProjPolarStereographic,
		join(origin(centerLat, centerLong), []pv{{ParamScaleFactor, scale}}, falseOrigin(fe, fn))...)
}

// SetStereographic sets the generic Stereographic projection.
func (d *Definition) SetStereographic(originLat, cmeridian, scale, fe, fn float64) error {
	return d.setMethod(ProjStereographic,
		join(origin(originLat, cmeridian), []pv{{ParamScaleFactor, scale}}, falseOrigin(fe, fn))...)
}

// SetHOM sets Hotine Oblique Mercator.
func (d *Definition) SetHOM(centerLat, centerLong, azimuth, rectToSkew, scale, fe, fn float64) error {
	return d.setMethod(ProjHotineObliqueMercator,
		join(center(centerLat, centerLong),
			[]pv{{ParamAzimuth, azimuth}, {ParamRectifiedGridAngle, rectToSkew}, {ParamScaleFactor, scale}},
			falseOrigin(fe, fn))...)
}

// SetHOMAC sets Hotine Oblique Mercator with the origin at the centre.
func (d *Definition) SetHOMAC(centerLat, centerLong, azimuth, rectToSkew, scale, fe, fn float64) error {
	return d.setMethod(ProjHotineObliqueMercatorAzimuthCenter,
		join(center(centerLat, centerLong),
			[]pv{{ParamAzimuth, azimuth}, {ParamRectifiedGridAngle, rectToSkew}, {ParamScaleFactor, scale}},
			falseOrigin(fe, fn))...)
}

// SetSOC sets Swiss Oblique Cylindrical.
func (d *Definition) SetSOC(latOfOrigin, cmeridian, fe, fn float64) error {
	return d.setMethod(ProjSwissObliqueCylindrical,
		join([]pv{{ParamLatitudeOfCenter, latOfOrigin}, {ParamCentralMeridian, cmeridian}}, falseOrigin(fe, fn))...)
}

// SetPolyconic sets American Polyconic.
func (d *Definition) SetPolyconic(centerLat, centerLong, fe, fn float64) error {
	return d.setMethod(ProjPolyconic, join(origin(centerLat, centerLong), falseOrigin(fe, fn))...)
}

// SetKrovak sets Krovak Oblique Conic Conformal.
func (d *Definition) SetKrovak(centerLat, centerLong, azimuth, pseudoStdParallel1, scale, fe, fn float64) error {
	return d.setMethod(ProjKrovak,
		join(center(centerLat, centerLong),
			[]pv{{ParamAzimuth, azimuth}, {ParamPseudoStdParallel1, pseudoStdParallel1}, {ParamScaleFactor, scale}},
			falseOrigin(fe, fn))...)
}

// SetLAEA sets Lambert Azimuthal Equal Area.
func (d *Definition) SetLAEA(centerLat, centerLong, fe, fn float64) error {
	return d.setMethod(ProjLambertAzimuthalEqualArea, join(center(centerLat, centerLong), falseOrigin(fe, fn))...)
}

// SetACEA sets Albers Conic Equal Area.
func (d *Definition) SetACEA(stdP1, stdP2, centerLat, centerLong, fe, fn float64) error {
	return d.setMethod(ProjAlbersConicEqualArea,
		join([]pv{{ParamStandardParallel1, stdP1}, {ParamStandardParallel2, stdP2}},
			center(centerLat, centerLong), falseOrigin(fe, fn))...)
}

// SetEquirectangular sets Equirectangular.
func (d *Definition) SetEquirectangular(centerLat, centerLong, fe, fn float64) error {
	return d.setMethod(ProjEquirectangular, join(origin(centerLat, centerLong), falseOrigin(fe, fn))...)
}

// SetEquirectangular2 sets Equirectangular with a standard parallel.
func (d *Definition) SetEquirectangular2(centerLat, centerLong, stdP1, fe, fn float64) error {
	return d.setMethod(ProjEquirectangular,
		join(origin(centerLat, centerLong), []pv{{ParamStandardParallel1, stdP1}}, falseOrigin(fe, fn))...)
}

// SetCEA sets Cylindrical Equal Area.
func (d *Definition) SetCEA(stdP1, cmeridian, fe, fn float64) error {
	return d.setMethod(ProjCylindricalEqualArea,
		join([]pv{{ParamStandardParallel1, stdP1}, {ParamCentralMeridian, cmeridian}}, falseOrigin(fe, fn))...)
}

// SetGnomonic sets Gnomonic.
func (d *Definition) SetGnomonic(centerLat, centerLong, fe, fn float64) error {
	return d.setMethod(ProjGnomonic, join(origin(centerLat, centerLong), falseOrigin(fe, fn))...)
}

// SetOrthographic sets Orthographic.
func (d *Definition) SetOrthographic(centerLat, centerLong, fe, fn float64) error {
	return d.setMethod(ProjOrthographic, join(origin(centerLat, centerLong), falseOrigin(fe, fn))...)
}

// SetSinusoidal sets Sinusoidal.
func (d *Definition) SetSinusoidal(centerLong, fe, fn float64) error {
	return d.setMethod(ProjSinusoidal, join([]pv{{ParamLongitudeOfCenter, centerLong}}, falseOrigin(fe, fn))...)
}

// SetMollweide sets Mollweide.
func (d *Definition) SetMollweide(cmeridian, fe, fn float64) error {
	return d.setMethod(ProjMollweide, join([]pv{{ParamCentralMeridian, cmeridian}}, falseOrigin(fe, fn))...)
}

// SetRobinson sets Robinson.
func (d *Definition) SetRobinson(centerLong, fe, fn float64) error {
	return d.setMethod(ProjRobinson, join([]pv{{ParamLongitudeOfCenter, centerLong}}, falseOrigin(fe, fn))...)
}

// SetEquidistantConic sets Equidistant Conic.
func (d *Definition) SetEquidistantConic(stdP1, stdP2, centerLat, centerLong, fe, fn float64) error {
	return d.setMethod(ProjEquidistantConic,
		join([]pv{{ParamStandardParallel1, stdP1}, {ParamStandardParallel2, stdP2}},
			center(centerLat, centerLong), falseOrigin(fe, fn))...)
}

// SetBonne sets Bonne.
func (d *Definition) SetBonne(stdP1, cmeridian, fe, fn float64) error {
	return d.setMethod(ProjBonne,
		join([]pv{{ParamStandardParallel1, stdP1}, {ParamCentralMeridian, cmeridian}}, falseOrigin(fe, fn))...)
}

// SetAE sets Azimuthal Equidistant.
func (d *Definition) SetAE(centerLat, centerLong, fe, fn float64) error {
	return d.setMethod(ProjAzimuthalEquidistant, join(center(centerLat, centerLong), falseOrigin(fe, fn))...)
}

// SetGEOS sets the Geostationary Satellite view.
func (d *Definition) SetGEOS(cmeridian, satelliteHeight, fe, fn float64) error {
	return d.setMethod(ProjGeostationarySatellite,
		join([]pv{{ParamCentralMeridian, cmeridian}, {ParamSatelliteHeight, satelliteHeight}}, falseOrigin(fe, fn))...)
}

// SetVDG sets Van der Grinten.
func (d *Definition) SetVDG(cmeridian, fe, fn float64) error {
	return d.setMethod(ProjVanDerGrinten, join([]pv{{ParamCentralMeridian, cmeridian}}, falseOrigin(fe, fn))...)
}

// SetMercatorAuxiliarySphere sets the spherical Mercator used by web maps.
func (d *Definition) SetMercatorAuxiliarySphere(centerLong, fe, fn float64) error {
	return d.setMethod(ProjMercatorAuxiliarySphere,
		join([]pv{{ParamCentralMeridian, centerLong}}, falseOrigin(fe, fn))...)
}

// SetUTM sets Universal Transverse Mercator for zone 1..60.
func (d *Definition) SetUTM(zone int, north bool) error {
	if zone < 1 || zone > 60 {
		return fmt.Errorf("utm zone %d: %w", zone, domain.ErrInvalidInput)
	}
	fn := 10000000.0
	if north {
		fn = 0
	}
	if err := d.SetTM(0, float64(zone*6-183), 0.9996, 500000.0, fn); err != nil {
		return err
	}

	if name, _ := d.GetAttrValue("PROJCS", 0); strings.EqualFold(name, "unnamed") {
		hemisphere := "Southern"
		if north {
			hemisphere = "Northern"
		}
		if err := d.SetNode("PROJCS", fmt.Sprintf("UTM Zone %d, %s Hemisphere", zone, hemisphere)); err != nil {
			return err
		}
	}
	return d.SetLinearUnits(UnitMeter, 1.0)
}

// GetUTMZone returns the zone and hemisphere when the definition is a
// UTM projection, or zone 0.
func (d *Definition) GetUTMZone() (zone int, north bool) {
	if !strings.EqualFold(d.Projection(), ProjTransverseMercator) {
		return 0, false
	}
	if lat, _ := d.GetNormProjParm(ParamLatitudeOfOrigin, 0); lat != 0 {
		return 0, false
	}
	if k, _ := d.GetProjParm(ParamScaleFactor, 1.0); k != 0.9996 {
		return 0, false
	}
	if fe, _ := d.GetNormProjParm(ParamFalseEasting, 0); !withinAbs(fe, 500000.0, 0.001) {
		return 0, false
	}
	fn, _ := d.GetNormProjParm(ParamFalseNorthing, 0)
	north = withinAbs(fn, 0, 0.001)
	if !north && !withinAbs(fn, 10000000.0, 0.001) {
		return 0, false
	}

	cm, _ := d.GetNormProjParm(ParamCentralMeridian, 0)
	z := (cm + 186.0) / 6.0
	if !withinAbs(z-float64(int(z)), 0.5, 0.00001) || cm < -177.00001 || cm > 177.000001 {
		return 0, false
	}
	return int(z), north
}
