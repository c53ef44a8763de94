package srs

import (
	"math"
	"strconv"
	"strings"
)

type ellipsoidAlias struct {
	name          string
	semiMajor     float64
	invFlattening float64
	semiMinor     float64
	tolerance     float64
	description   string
}

// ellipsoidAliases are matched in order on export. Entries with a zero
// invFlattening are defined by their semi-minor axis.
var ellipsoidAliases = []ellipsoidAlias{
	{name: "clrk80", semiMajor: 6378249.145, invFlattening: 293.465, description: "Clarke 1880 mod."},
	{name: "krass", semiMajor: 6378245.0, invFlattening: 298.3, description: "Krassovsky, 1942"},
	{name: "intl", semiMajor: 6378388.0, invFlattening: 297.0, description: "International 1909 (Hayford)"},
	{name: "aust_SA", semiMajor: 6378160.0, invFlattening: 298.25, description: "Australian Natl & S. Amer. 1969"},
	{name: "bessel", semiMajor: 6377397.155, invFlattening: 299.1528128, description: "Bessel 1841"},
	{name: "bess_nam", semiMajor: 6377483.865, invFlattening: 299.1528128, description: "Bessel 1841 (Namibia)"},
	{name: "GRS67", semiMajor: 6378160.0, invFlattening: 298.247167427, description: "GRS 67(IUGG 1967)"},
	{name: "GRS80", semiMajor: 6378137.0, invFlattening: 298.257222101, tolerance: 1e-6, description: "GRS 1980(IUGG, 1980)"},
	{name: "clrk66", semiMajor: 6378206.4, invFlattening: 294.9786982, semiMinor: 6356583.8, description: "Clarke 1866"},
	{name: "mod_airy", semiMajor: 6377340.189, invFlattening: 299.3249646, semiMinor: 6356034.446, description: "Modified Airy"},
	{name: "airy", semiMajor: 6377563.396, invFlattening: 299.3249646, semiMinor: 6356256.910, description: "Airy 1830"},
	{name: "helmert", semiMajor: 6378200.0, invFlattening: 298.3, description: "Helmert 1906"},
	{name: "fschr60m", semiMajor: 6378155.0, invFlattening: 298.3, description: "Modified Fischer 1960"},
	{name: "evrstSS", semiMajor: 6377298.556, invFlattening: 300.8017, description: "Everest (Sabah & Sarawak)"},
	{name: "WGS60", semiMajor: 6378165.0, invFlattening: 298.3, description: "WGS 60"},
	{name: "WGS66", semiMajor: 6378145.0, invFlattening: 298.25, description: "WGS 66"},
	{name: "WGS72", semiMajor: 6378135.0, invFlattening: 298.26, description: "WGS 72"},
	{name: "WGS84", semiMajor: WGS84SemiMajor, invFlattening: WGS84InvFlattening, tolerance: 1e-6, description: "WGS 84"},
}

// importEllipsoids holds the ellipsoids accepted by +ellps beyond the
// export aliases.
var importEllipsoids = []ellipsoidAlias{
	{name: "MERIT", semiMajor: 6378137.0, invFlattening: 298.257, description: "MERIT 1983"},
	{name: "SGS85", semiMajor: 6378136.0, invFlattening: 298.257, description: "Soviet Geodetic System 85"},
	{name: "IAU76", semiMajor: 6378140.0, invFlattening: 298.257, description: "IAU 1976"},
	{name: "andrae", semiMajor: 6377104.43, invFlattening: 300.0, description: "Andrae 1876 (Den., Iclnd.)"},
	{name: "CPM", semiMajor: 6375738.7, invFlattening: 334.29, description: "Comm. des Poids et Mesures 1799"},
	{name: "delmbr", semiMajor: 6376428.0, invFlattening: 311.5, description: "Delambre 1810 (Belgium)"},
	{name: "engelis", semiMajor: 6378136.05, invFlattening: 298.2566, description: "Engelis 1985"},
	{name: "evrst30", semiMajor: 6377276.345, invFlattening: 300.8017, description: "Everest 1830"},
	{name: "evrst48", semiMajor: 6377304.063, invFlattening: 300.8017, description: "Everest 1948"},
	{name: "evrst56", semiMajor: 6377301.243, invFlattening: 300.8017, description: "Everest 1956"},
	{name: "evrst69", semiMajor: 6377295.664, invFlattening: 300.8017, description: "Everest 1969"},
	{name: "fschr60", semiMajor: 6378166.0, invFlattening: 298.3, description: "Fischer (Mercury Datum) 1960"},
	{name: "fschr68", semiMajor: 6378150.0, invFlattening: 298.3, description: "Fischer 1968"},
	{name: "hough", semiMajor: 6378270.0, invFlattening: 297.0, description: "Hough"},
	{name: "kaula", semiMajor: 6378163.0, invFlattening: 298.24, description: "Kaula 1961"},
	{name: "lerch", semiMajor: 6378139.0, invFlattening: 298.257, description: "Lerch 1979"},
	{name: "mprts", semiMajor: 6397300.0, invFlattening: 191.0, description: "Maupertius 1738"},
	{name: "new_intl", semiMajor: 6378157.5, semiMinor: 6356772.2, description: "New International 1967"},
	{name: "plessis", semiMajor: 6376523.0, semiMinor: 6355863.0, description: "Plessis 1817 (France)"},
	{name: "SEasia", semiMajor: 6378155.0, semiMinor: 6356773.3205, description: "Southeast Asia"},
	{name: "walbeck", semiMajor: 6376896.0, semiMinor: 6355834.8467, description: "Walbeck"},
	{name: "sphere", semiMajor: 6370997.0, semiMinor: 6370997.0, description: "Normal Sphere (r=6370997)"},
}

func matchEllipsoid(semiMajor, invFlattening float64) (ellipsoidAlias, bool) {
	for _, e := range ellipsoidAliases {
		tol := e.tolerance
		if tol == 0 {
			tol = FlatteningTolerance
		}
		if withinAbs(semiMajor, e.semiMajor, SemiMajorTolerance) && withinAbs(invFlattening, e.invFlattening, tol) {
			return e, true
		}
	}
	return ellipsoidAlias{}, false
}

func lookupEllipsoid(name string) (ellipsoidAlias, bool) {
	for _, table := range [][]ellipsoidAlias{ellipsoidAliases, importEllipsoids} {
		for _, e := range table {
			if e.name == name {
				return e, true
			}
		}
	}
	return ellipsoidAlias{}, false
}

// inverseFlattening returns the inverse flattening of e, deriving it from
// the semi-minor axis where needed.
func (e ellipsoidAlias) inverseFlattening() float64 {
	if e.invFlattening != 0 {
		return e.invFlattening
	}
	return InvFlatteningFromSemiMinor(e.semiMajor, e.semiMinor)
}

type datumAlias struct {
	proj      string
	wkt       string
	geogCode  int
	datumCode int
}

var datumAliases = []datumAlias{
	{"GGRS87", "Greek_Geodetic_Reference_System_1987", 4121, 6121},
	{"potsdam", "Deutsches_Hauptdreiecksnetz", 4314, 6314},
	{"carthage", "Carthage", 4223, 6223},
	{"hermannskogel", "Militar_Geographische_Institut", 4312, 6312},
	{"ire65", "TM65", 4299, 6299},
	{"nzgd49", "New_Zealand_Geodetic_Datum_1949", 4272, 6272},
	{"OSGB36", "OSGB_1936", 4277, 6277},
}

func matchDatum(name string, datumCode int) (datumAlias, bool) {
	for _, a := range datumAliases {
		if datumCode == a.datumCode || strings.EqualFold(name, a.wkt) {
			return a, true
		}
	}
	return datumAlias{}, false
}

type primeMeridian struct {
	proj string
	wkt  string
	dms  string
	code int
}

var primeMeridians = []primeMeridian{
	{"greenwich", "Greenwich", "0dE", 8901},
	{"lisbon", "Lisbon", `9d07'54.862"W`, 8902},
	{"paris", "Paris", `2d20'14.025"E`, 8903},
	{"bogota", "Bogota", `74d04'51.3"W`, 8904},
	{"madrid", "Madrid", `3d41'16.58"W`, 8905},
	{"rome", "Rome", `12d27'8.4"E`, 8906},
	{"bern", "Bern", `7d26'22.5"E`, 8907},
	{"jakarta", "Jakarta", `106d48'27.79"E`, 8908},
	{"ferro", "Ferro", `17d40'W`, 8909},
	{"brussels", "Brussels", `4d22'4.71"E`, 8910},
	{"stockholm", "Stockholm", `18d3'29.8"E`, 8911},
	{"athens", "Athens", `23d42'58.815"E`, 8912},
	{"oslo", "Oslo", `10d43'22.5"E`, 8913},
}

func (pm primeMeridian) degrees() float64 {
	v, _ := parseDMS(pm.dms)
	return v
}

func primeMeridianByCode(code int) (primeMeridian, bool) {
	for _, pm := range primeMeridians {
		if pm.code == code {
			return pm, true
		}
	}
	return primeMeridian{}, false
}

func primeMeridianByOffset(offset float64) (primeMeridian, bool) {
	for _, pm := range primeMeridians {
		if math.Abs(offset-pm.degrees()) < 1e-10 {
			return pm, true
		}
	}
	return primeMeridian{}, false
}

func primeMeridianByName(name string) (primeMeridian, bool) {
	for _, pm := range primeMeridians {
		if strings.EqualFold(pm.proj, name) {
			return pm, true
		}
	}
	return primeMeridian{}, false
}

type linearUnit struct {
	wkt    string
	meters float64
	proj   string
}

var linearUnits = []linearUnit{
	{UnitMeter, 1.0, "m"},
	{UnitMeter, 1.0, "meter"},
	{UnitMeter, 1.0, "metre"},
	{UnitMetre, 1.0, "m"},
	{"kilometre", 1000.0, "km"},
	{"Kilometer", 1000.0, "km"},
	{"Decimeter", 0.1, "dm"},
	{"Centimeter", 0.01, "cm"},
	{"Millimeter", 0.001, "mm"},
	{UnitFoot, UnitFootConv, "ft"},
	{"Foot", UnitFootConv, "ft"},
	{UnitUSFoot, UnitUSFootConv, "us-ft"},
	{"Foot_Indian", 0.30479951, "ind-ft"},
	{"Nautical_Mile_International", UnitNauticalMileConv, "kmi"},
	{UnitNauticalMile, UnitNauticalMileConv, "kmi"},
	{"Statute_Mile_International", 1609.344, "mi"},
	{"Mile", 1609.344, "mi"},
	{"IMILE", 1609.344, "mi"},
	{"Statute_Mile_US_Surveyor", 1609.347218694437, "us-mi"},
	{"Link_International", 0.201168, "link"},
	{UnitLink, UnitLinkConv, "link"},
	{"Yard_International", 0.9144, "yd"},
	{"IYARD", 0.9144, "yd"},
	{"Yard_US_Surveyor", 0.914401828803658, "us-yd"},
	{"Yard_Indian", 0.914398530744440774, "ind-yd"},
	{"Inch_International", 0.0254, "in"},
	{"Inch_US_Surveyor", 0.025400050800101, "us-in"},
	{"Fathom_International", 1.8288, "fath"},
	{"Chain_International", 20.1168, "ch"},
	{"Chain_US_Surveyor", UnitChainConv, "us-ch"},
	{"Chain_Indian", 20.11669506, "ind-ch"},
}

// linearUnitFor finds the unit by WKT name or by conversion factor.
func linearUnitFor(meters float64, name string) (linearUnit, bool) {
	for _, u := range linearUnits {
		if (name != "" && strings.EqualFold(name, u.wkt)) || math.Abs(meters-u.meters) < 1e-8 {
			return u, true
		}
	}
	return linearUnit{}, false
}

func linearUnitByProjName(name string) (linearUnit, bool) {
	for _, u := range linearUnits {
		if strings.EqualFold(name, u.proj) {
			return u, true
		}
	}
	return linearUnit{}, false
}

// parseDMS parses a decimal number or an angle such as 2d20'14.025"E.
func parseDMS(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}

	sign := 1.0
	switch s[len(s)-1] {
	case 'W', 'w', 'S', 's':
		sign = -1
		s = s[:len(s)-1]
	case 'E', 'e', 'N', 'n':
		s = s[:len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		sign = -sign
		s = s[1:]
	}

	var total float64
	divisors := map[byte]float64{'d': 1, 'D': 1, '\'': 60, '"': 3600}
	start := 0
	for i := 0; i < len(s); i++ {
		div, ok := divisors[s[i]]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(s[start:i], 64)
		if err != nil {
			return 0, false
		}
		total += v / div
		start = i + 1
	}
	if start < len(s) {
		v, err := strconv.ParseFloat(s[start:], 64)
		if err != nil {
			return 0, false
		}
		total += v
	}
	return sign * total, true
}
