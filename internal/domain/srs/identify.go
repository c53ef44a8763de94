package srs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jobrunner/georef/internal/domain"
)

// IdentifyGeogCS guesses the EPSG code of the geographic system from its
// authority, its names or its datum code. It returns 0 when unknown.
func (d *Definition) IdentifyGeogCS() int {
	if strings.EqualFold(d.GetAuthorityName("GEOGCS"), "EPSG") {
		code, _ := strconv.Atoi(d.GetAuthorityCode("GEOGCS"))
		return code
	}

	geogcs, ok1 := d.GetAttrValue("GEOGCS", 0)
	datum, ok2 := d.GetAttrValue("DATUM", 0)
	if !ok1 || !ok2 {
		return 0
	}

	mentions := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(geogcs, w) || strings.Contains(datum, w) {
				return true
			}
		}
		return false
	}
	wgs := mentions("WGS", "World Geodetic System", "World_Geodetic_System")
	nad := mentions("NAD", "North American", "North_American")

	switch {
	case wgs && mentions("84"):
		return 4326
	case wgs && mentions("72"):
		return 4322
	case nad && mentions("83"):
		return 4269
	case nad && mentions("27"):
		return 4267
	}

	if strings.EqualFold(d.GetAuthorityName("GEOGCS|DATUM"), "EPSG") {
		if pm, _ := d.GetPrimeMeridian(); pm == 0 {
			code, _ := strconv.Atoi(d.GetAuthorityCode("GEOGCS|DATUM"))
			if code >= 6000 && code <= 6999 {
				return code - 2000
			}
		}
	}
	return 0
}

// AutoIdentifyEPSG adds EPSG authorities where the system can be
// recognised safely: the geographic part, UTM zones on WGS 84, WGS 72,
// NAD27 and NAD83, and the WGS 84 polar stereographic systems. It returns
// ErrUnsupported when the top-level system stays unidentified.
func (d *Definition) AutoIdentifyEPSG() error {
	if (d.IsProjected() || d.IsGeographic()) && d.GetAuthorityCode("GEOGCS") == "" {
		if code := d.IdentifyGeogCS(); code != 0 {
			if err := d.SetAuthority("GEOGCS", "EPSG", code); err != nil {
				return err
			}
		}
	}

	if d.IsProjected() && d.GetAuthorityCode("PROJCS") == "" {
		if code := d.identifyProjCS(); code != 0 {
			if err := d.SetAuthority("PROJCS", "EPSG", code); err != nil {
				return err
			}
		}
	}

	switch {
	case d.IsProjected() && d.GetAuthorityCode("PROJCS") != "":
		return nil
	case d.IsGeographic() && d.GetAuthorityCode("GEOGCS") != "":
		return nil
	}
	return fmt.Errorf("auto identify: %w", domain.ErrUnsupported)
}

func (d *Definition) identifyProjCS() int {
	var geogCode int
	if strings.EqualFold(d.GetAuthorityName("PROJCS|GEOGCS"), "EPSG") {
		geogCode, _ = strconv.Atoi(d.GetAuthorityCode("PROJCS|GEOGCS"))
	}
	if geogCode == 0 {
		return 0
	}

	if zone, north := d.GetUTMZone(); zone != 0 {
		switch {
		case geogCode == 4326 && north:
			return 32600 + zone
		case geogCode == 4326:
			return 32700 + zone
		case geogCode == 4267 && north && zone >= 3 && zone <= 22:
			return 26700 + zone
		case geogCode == 4269 && north && zone >= 3 && zone <= 23:
			return 26900 + zone
		case geogCode == 4322 && north:
			return 32200 + zone
		case geogCode == 4322:
			return 32300 + zone
		}
		return 0
	}

	if !strings.EqualFold(d.Projection(), ProjPolarStereographic) || geogCode != 4326 {
		return 0
	}
	lat := d.normParm(ParamLatitudeOfOrigin, 0)
	scale, _ := d.GetProjParm(ParamScaleFactor, 1)
	meters, _ := d.GetLinearUnits()
	if math.Abs(math.Abs(lat)-71) > 1e-15 ||
		math.Abs(d.normParm(ParamCentralMeridian, 0)) > 1e-15 ||
		math.Abs(scale-1) > 1e-15 ||
		math.Abs(d.normParm(ParamFalseEasting, 0)) > 1e-15 ||
		math.Abs(d.normParm(ParamFalseNorthing, 0)) > 1e-15 ||
		math.Abs(meters-1) > 1e-15 {
		return 0
	}
	if lat > 0 {
		return 3995
	}
	return 3031
}
