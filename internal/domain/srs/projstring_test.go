package srs

import (
	"errors"
	"testing"

	"github.com/jobrunner/georef/internal/domain"
)

func TestExportToProjString(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) *Definition
		want  string
	}{
		{
			name:  "wgs84 geographic",
			build: func(t *testing.T) *Definition { return mustWKT(t, WKTWGS84) },
			want:  "+proj=longlat +datum=WGS84 +no_defs",
		},
		{
			name: "utm north",
			build: func(t *testing.T) *Definition {
				d := wgs84Base(t)
				if err := d.SetUTM(31, true); err != nil {
					t.Fatal(err)
				}
				return d
			},
			want: "+proj=utm +zone=31 +datum=WGS84 +units=m +no_defs",
		},
		{
			name: "utm south",
			build: func(t *testing.T) *Definition {
				d := wgs84Base(t)
				if err := d.SetUTM(33, false); err != nil {
					t.Fatal(err)
				}
				return d
			},
			want: "+proj=utm +zone=33 +south +datum=WGS84 +units=m +no_defs",
		},
		{
			name:  "parsed utm",
			build: func(t *testing.T) *Definition { return mustWKT(t, utm31WKT) },
			want:  "+proj=utm +zone=31 +datum=WGS84 +units=m +no_defs",
		},
		{
			name: "short wgs84 datum name without authority",
			build: func(t *testing.T) *Definition {
				return mustWKT(t, `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]]`)
			},
			want: "+proj=longlat +datum=WGS84 +no_defs",
		},
		{
			name: "lcc on nad83",
			build: func(t *testing.T) *Definition {
				d := New()
				if err := d.SetWellKnownGeogCS("NAD83", nil); err != nil {
					t.Fatal(err)
				}
				if err := d.SetLCC(33, 45, 23, -96, 0, 0); err != nil {
					t.Fatal(err)
				}
				return d
			},
			want: "+proj=lcc +lat_1=33 +lat_2=45 +lat_0=23 +lon_0=-96 +x_0=0 +y_0=0 +datum=NAD83 +units=m +no_defs",
		},
		{
			name: "bessel with datum shift",
			build: func(t *testing.T) *Definition {
				d := New()
				if err := d.SetGeogCS(GeogCSParams{Ellipsoid: "Bessel 1841", SemiMajor: 6377397.155, InvFlattening: 299.1528128}); err != nil {
					t.Fatal(err)
				}
				if err := d.SetTOWGS84(598.1, 73.7, 418.2, 0.202, 0.045, -2.455, 6.7); err != nil {
					t.Fatal(err)
				}
				return d
			},
			want: "+proj=longlat +ellps=bessel +towgs84=598.1,73.7,418.2,0.202,0.045,-2.455,6.7 +no_defs",
		},
		{
			name: "sphere",
			build: func(t *testing.T) *Definition {
				d := New()
				if err := d.SetGeogCS(GeogCSParams{SemiMajor: 6371000}); err != nil {
					t.Fatal(err)
				}
				return d
			},
			want: "+proj=longlat +a=6371000 +b=6371000 +no_defs",
		},
		{
			name: "auxiliary sphere",
			build: func(t *testing.T) *Definition {
				d := wgs84Base(t)
				if err := d.SetMercatorAuxiliarySphere(0, 0, 0); err != nil {
					t.Fatal(err)
				}
				return d
			},
			want: "+proj=merc +a=6378137 +b=6378137 +lat_ts=0 +lon_0=0 +x_0=0 +y_0=0 +k=1 +units=m +nadgrids=@null +wktext +no_defs",
		},
		{
			name: "geocentric",
			build: func(t *testing.T) *Definition {
				d := mustWKT(t, WKTWGS84)
				if err := d.SetGeocCS("Geocentric"); err != nil {
					t.Fatal(err)
				}
				return d
			},
			want: "+proj=geocent +datum=WGS84 +units=m +no_defs",
		},
		{
			name: "extension wins",
			build: func(t *testing.T) *Definition {
				d := mustWKT(t, WKTWGS84)
				if err := d.SetExtension("GEOGCS", "PROJ4", "+proj=longlat +R=1 +no_defs"); err != nil {
					t.Fatal(err)
				}
				return d
			},
			want: "+proj=longlat +R=1 +no_defs",
		},
		{
			name: "feet",
			build: func(t *testing.T) *Definition {
				d := wgs84Base(t)
				if err := d.SetTM(0, 9, 1, 0, 0); err != nil {
					t.Fatal(err)
				}
				if err := d.SetLinearUnits(UnitUSFoot, UnitUSFootConv); err != nil {
					t.Fatal(err)
				}
				return d
			},
			want: "+proj=tmerc +lat_0=0 +lon_0=9 +k=1 +x_0=0 +y_0=0 +datum=WGS84 +units=us-ft +no_defs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.build(t).ExportToProjString()
			if err != nil {
				t.Fatalf("ExportToProjString() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExportToProjString()\n got %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestExportToProjStringUnsupported(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) *Definition
	}{
		{"empty", func(t *testing.T) *Definition { return New() }},
		{"local", func(t *testing.T) *Definition { return mustWKT(t, `LOCAL_CS["l",UNIT["metre",1]]`) }},
		{"tunisia mining grid", func(t *testing.T) *Definition {
			d := wgs84Base(t)
			if err := d.SetTMG(36.5, 11, 270, 360); err != nil {
				t.Fatal(err)
			}
			return d
		}},
		{"mercator with scale and latitude", func(t *testing.T) *Definition {
			d := wgs84Base(t)
			if err := d.SetMercator(10, 0, 0.99, 0, 0); err != nil {
				t.Fatal(err)
			}
			return d
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.build(t).ExportToProjString(); !errors.Is(err, domain.ErrUnsupported) {
				t.Errorf("ExportToProjString() error = %v, want ErrUnsupported", err)
			}
		})
	}
}

func TestProjStringRoundTrip(t *testing.T) {
	tests := []string{
		"+proj=longlat +datum=WGS84 +no_defs",
		"+proj=utm +zone=32 +datum=WGS84 +units=m +no_defs",
		"+proj=utm +zone=18 +south +datum=WGS84 +units=m +no_defs",
		"+proj=longlat +ellps=clrk80 +pm=paris +no_defs",
		"+proj=tmerc +lat_0=0 +lon_0=9 +k=1 +x_0=3500000 +y_0=0 +ellps=bessel +towgs84=598.1,73.7,418.2,0.202,0.045,-2.455,6.7 +units=m +no_defs",
		"+proj=somerc +lat_0=46.95240555555556 +lon_0=7.439583333333333 +k_0=1 +x_0=600000 +y_0=200000 +ellps=bessel +towgs84=674.374,15.056,405.346,0,0,0,0 +units=m +no_defs",
		"+proj=laea +lat_0=52 +lon_0=10 +x_0=4321000 +y_0=3210000 +ellps=GRS80 +units=m +no_defs",
		"+proj=longlat +datum=WGS84 +geoidgrids=egm96_15.gtx +vunits=m +no_defs",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			d := New()
			if err := d.ImportFromProjString(text, nil); err != nil {
				t.Fatalf("ImportFromProjString() error = %v", err)
			}
			got, err := d.ExportToProjString()
			if err != nil {
				t.Fatalf("ExportToProjString() error = %v", err)
			}
			if got != text {
				t.Errorf("round trip\n got %s\nwant %s", got, text)
			}
		})
	}
}

func TestImportFromProjString(t *testing.T) {
	lookup := func(code int) (*Definition, error) {
		switch code {
		case 4326:
			return NewFromWKT(WKTWGS84)
		case 4314:
			return NewFromWKT(`GEOGCS["DHDN",DATUM["Deutsches_Hauptdreiecksnetz",SPHEROID["Bessel 1841",6377397.155,299.1528128]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433],AUTHORITY["EPSG","4314"]]`)
		}
		return nil, domain.ErrUnsupportedCode
	}

	t.Run("utm", func(t *testing.T) {
		d := New()
		if err := d.ImportFromProjString("+proj=utm +zone=32 +datum=WGS84 +units=m +no_defs", nil); err != nil {
			t.Fatal(err)
		}
		if zone, north := d.GetUTMZone(); zone != 32 || !north {
			t.Errorf("GetUTMZone() = (%d, %v)", zone, north)
		}
		if err := d.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("us feet rescale", func(t *testing.T) {
		d := New()
		if err := d.ImportFromProjString("+proj=lcc +lat_1=33 +lat_2=45 +lat_0=23 +lon_0=-96 +x_0=1000 +y_0=0 +datum=NAD83 +units=us-ft +no_defs", nil); err != nil {
			t.Fatal(err)
		}
		if _, name := d.GetLinearUnits(); name != UnitUSFoot {
			t.Errorf("linear unit = %q", name)
		}
		raw, _ := d.GetProjParm(ParamFalseEasting, 0)
		if !withinAbs(raw, 1000/UnitUSFootConv, 1e-6) {
			t.Errorf("raw false easting = %v", raw)
		}
		norm, _ := d.GetNormProjParm(ParamFalseEasting, 0)
		if !withinAbs(norm, 1000, 1e-6) {
			t.Errorf("normalised false easting = %v", norm)
		}
	})

	t.Run("mercator 2sp", func(t *testing.T) {
		d := New()
		if err := d.ImportFromProjString("+proj=merc +lat_ts=30 +lon_0=0 +datum=WGS84", nil); err != nil {
			t.Fatal(err)
		}
		if got := d.Projection(); got != ProjMercator2SP {
			t.Errorf("Projection() = %q", got)
		}
		if v, name := d.GetLinearUnits(); v != 1 || name != UnitMeter {
			t.Errorf("default units = (%v, %q)", v, name)
		}
	})

	t.Run("polar stereographic", func(t *testing.T) {
		d := New()
		if err := d.ImportFromProjString("+proj=stere +lat_0=90 +lat_ts=70 +lon_0=-45 +k=1 +x_0=0 +y_0=0 +datum=WGS84 +units=m", nil); err != nil {
			t.Fatal(err)
		}
		if got := d.Projection(); got != ProjPolarStereographic {
			t.Errorf("Projection() = %q", got)
		}
		if lat, _ := d.GetProjParm(ParamLatitudeOfOrigin, 0); lat != 70 {
			t.Errorf("latitude_of_origin = %v, want 70", lat)
		}
	})

	t.Run("oblique mercator without u offset", func(t *testing.T) {
		d := New()
		if err := d.ImportFromProjString("+proj=omerc +lat_0=4 +lonc=102.25 +alpha=323.0257905 +k=0.99984 +x_0=804670.24 +y_0=0 +no_uoff +gamma=323.1301023611111 +ellps=evrstSS +units=m", nil); err != nil {
			t.Fatal(err)
		}
		if got := d.Projection(); got != ProjHotineObliqueMercator {
			t.Errorf("Projection() = %q", got)
		}
		if g, _ := d.GetProjParm(ParamRectifiedGridAngle, 0); !withinAbs(g, 323.1301023611111, 1e-9) {
			t.Errorf("rectified_grid_angle = %v", g)
		}
	})

	t.Run("etmerc keeps original string", func(t *testing.T) {
		text := "+proj=etmerc +lat_0=0 +lon_0=15 +k=0.9996 +x_0=500000 +y_0=0 +ellps=GRS80 +units=m +no_defs"
		d := New()
		if err := d.ImportFromProjString(text, nil); err != nil {
			t.Fatal(err)
		}
		got, err := d.ExportToProjString()
		if err != nil {
			t.Fatal(err)
		}
		if got != text {
			t.Errorf("ExportToProjString() = %s", got)
		}
	})

	t.Run("init with lookup", func(t *testing.T) {
		d := New()
		if err := d.ImportFromProjString("+init=epsg:4326", lookup); err != nil {
			t.Fatal(err)
		}
		if got := d.EPSGCode(); got != 4326 {
			t.Errorf("EPSGCode() = %d", got)
		}
	})

	t.Run("datum alias", func(t *testing.T) {
		d := New()
		if err := d.ImportFromProjString("+proj=longlat +datum=potsdam +no_defs", lookup); err != nil {
			t.Fatal(err)
		}
		if got, _ := d.GetAttrValue("DATUM", 0); got != "Deutsches_Hauptdreiecksnetz" {
			t.Errorf("DATUM = %q", got)
		}
	})

	t.Run("nadgrids", func(t *testing.T) {
		d := New()
		if err := d.ImportFromProjString("+proj=longlat +ellps=clrk66 +nadgrids=conus +no_defs", nil); err != nil {
			t.Fatal(err)
		}
		if got := d.GetExtension("DATUM", "PROJ4_GRIDS", ""); got != "conus" {
			t.Errorf("PROJ4_GRIDS = %q", got)
		}
	})

	t.Run("geoid grids", func(t *testing.T) {
		d := New()
		if err := d.ImportFromProjString("+proj=longlat +datum=WGS84 +geoidgrids=egm96_15.gtx +no_defs", nil); err != nil {
			t.Fatal(err)
		}
		if !d.IsCompound() || !d.IsVertical() || !d.IsGeographic() {
			t.Errorf("expected compound system, got %s", d)
		}
		if got, _ := d.GetAttrValue("COMPD_CS", 0); got != "WGS 84 + Unnamed Vertical Datum" {
			t.Errorf("COMPD_CS name = %q", got)
		}
	})

	errorTests := []struct {
		name   string
		text   string
		lookup GeogCSLookup
		want   error
	}{
		{"blank", "  \n ", nil, domain.ErrNotEnoughData},
		{"no proj", "+ellps=WGS84", nil, domain.ErrCorrupt},
		{"unknown proj", "+proj=foo +datum=WGS84", nil, domain.ErrUnsupported},
		{"init without lookup", "+init=epsg:4326", nil, domain.ErrUnsupported},
		{"init bad code", "+init=epsg:abc", lookup, domain.ErrInvalidSRID},
		{"init unknown code", "+init=epsg:1", lookup, domain.ErrUnsupported},
		{"utm zone out of range", "+proj=utm +zone=61 +datum=WGS84", nil, domain.ErrInvalidInput},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			if err := New().ImportFromProjString(tt.text, tt.lookup); !errors.Is(err, tt.want) {
				t.Errorf("ImportFromProjString() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseDMS(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"2.5", 2.5, true},
		{"-74.0418", -74.0418, true},
		{`2d20'14.025"E`, 2.337229166666667, true},
		{`9d07'54.862"W`, -(9 + 7.0/60 + 54.862/3600), true},
		{"17d40'E", 17 + 40.0/60, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseDMS(tt.in)
			if ok != tt.ok || !withinAbs(got, tt.want, 1e-12) {
				t.Errorf("parseDMS(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
