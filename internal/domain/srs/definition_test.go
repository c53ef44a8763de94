package srs

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/wkt"
)

const utm31WKT = `PROJCS["WGS 84 / UTM zone 31N",GEOGCS["WGS 84",DATUM["World_Geodetic_System_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]],PROJECTION["Transverse_Mercator"],PARAMETER["latitude_of_origin",0],PARAMETER["central_meridian",3],PARAMETER["scale_factor",0.9996],PARAMETER["false_easting",500000],PARAMETER["false_northing",0],UNIT["metre",1,AUTHORITY["EPSG","9001"]],AXIS["Easting",EAST],AXIS["Northing",NORTH],AUTHORITY["EPSG","32631"]]`

// utm31Canonical is utm31WKT as serialized: numeric leaves bare, every
// other leaf quoted.
const utm31Canonical = `PROJCS["WGS 84 / UTM zone 31N",GEOGCS["WGS 84",DATUM["World_Geodetic_System_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG",7030]],AUTHORITY["EPSG",6326]],PRIMEM["Greenwich",0,AUTHORITY["EPSG",8901]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG",9122]],AUTHORITY["EPSG",4326]],PROJECTION["Transverse_Mercator"],PARAMETER["latitude_of_origin",0],PARAMETER["central_meridian",3],PARAMETER["scale_factor",0.9996],PARAMETER["false_easting",500000],PARAMETER["false_northing",0],UNIT["metre",1,AUTHORITY["EPSG",9001]],AXIS["Easting","EAST"],AXIS["Northing","NORTH"],AUTHORITY["EPSG",32631]]`

func mustWKT(t *testing.T, text string) *Definition {
	t.Helper()
	d, err := NewFromWKT(text)
	if err != nil {
		t.Fatalf("NewFromWKT() error = %v", err)
	}
	return d
}

func TestImportExportWKT(t *testing.T) {
	d := mustWKT(t, utm31WKT)

	got, err := d.ExportToWKT()
	if err != nil {
		t.Fatalf("ExportToWKT() error = %v", err)
	}
	if diff := cmp.Diff(utm31Canonical, got); diff != "" {
		t.Errorf("ExportToWKT() mismatch (-want +got):\n%s", diff)
	}

	if _, err := NewFromWKT("   "); !errors.Is(err, domain.ErrEmptyDefinition) {
		t.Errorf("NewFromWKT(blank) error = %v, want ErrEmptyDefinition", err)
	}
	if _, err := New().ExportToWKT(); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("ExportToWKT(empty) error = %v, want ErrInvalidInput", err)
	}
	if _, err := NewFromWKT(`GEOGCS["x"`); !errors.Is(err, domain.ErrCorrupt) {
		t.Errorf("NewFromWKT(broken) error = %v, want ErrCorrupt", err)
	}
}

func TestImportFromWKTRoot(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "geographic", text: WKTWGS84},
		{name: "projected", text: utm31WKT},
		{name: "local", text: `LOCAL_CS["l",UNIT["metre",1]]`},
		{name: "geocentric", text: `GEOCCS["g",DATUM["d",SPHEROID["s",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["metre",1]]`},
		{name: "vertical", text: navd88WKT},
		{name: "compound", text: `COMPD_CS["c",` + WKTWGS84 + `,` + navd88WKT + `]`},
		{name: "lower case keyword", text: `geogcs["g",DATUM["d",SPHEROID["s",6378137,298.257223563]]]`},
		{name: "bare words", text: "not wkt", wantErr: true},
		{name: "fragment", text: `UNIT["metre",1]`, wantErr: true},
		{name: "unknown keyword", text: `FOO["x"]`, wantErr: true},
		{name: "number", text: "4326", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := mustWKT(t, WKTWGS84)
			err := d.ImportFromWKT(tt.text)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("ImportFromWKT() error = %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrCorrupt) {
				t.Errorf("ImportFromWKT() error = %v, want ErrCorrupt", err)
			}
			var pe *domain.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("ImportFromWKT() error type = %T, want *domain.ParseError", err)
			}
			if got, _ := d.GetAttrValue("GEOGCS", 0); got != "WGS 84" {
				t.Errorf("rejected import replaced the definition: %s", d)
			}
		})
	}
}

func TestGetAttrValue(t *testing.T) {
	d := mustWKT(t, utm31WKT)

	tests := []struct {
		path  string
		child int
		want  string
		ok    bool
	}{
		{"PROJCS", 0, "WGS 84 / UTM zone 31N", true},
		{"GEOGCS", 0, "WGS 84", true},
		{"PROJCS|GEOGCS|UNIT", 0, "degree", true},
		{"SPHEROID", 2, "298.257223563", true},
		{"projection", 0, "Transverse_Mercator", true},
		{"PROJECTION", 1, "", false},
		{"VERT_CS", 0, "", false},
		{"", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := d.GetAttrValue(tt.path, tt.child)
			if got != tt.want || ok != tt.ok {
				t.Errorf("GetAttrValue(%q, %d) = (%q, %v), want (%q, %v)", tt.path, tt.child, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSetNode(t *testing.T) {
	d := New()
	if err := d.SetNode("PROJCS|GEOGCS|DATUM", "WGS_1984"); err != nil {
		t.Fatalf("SetNode() error = %v", err)
	}
	if got := d.String(); got != `PROJCS[GEOGCS[DATUM["WGS_1984"]]]` {
		t.Errorf("SetNode() tree = %s", got)
	}

	if err := d.SetNode("PROJCS|GEOGCS|DATUM", "NAD83"); err != nil {
		t.Fatalf("SetNode() error = %v", err)
	}
	if got := d.String(); got != `PROJCS[GEOGCS[DATUM["NAD83"]]]` {
		t.Errorf("SetNode() on an existing path = %s", got)
	}

	if err := d.SetNode("GEOGCS", "other"); err != nil {
		t.Fatalf("SetNode() error = %v", err)
	}
	if got := d.String(); got != `GEOGCS["other"]` {
		t.Errorf("SetNode() with a new root = %s", got)
	}

	if err := d.SetNodeFloat("GEOGCS|PRIMEM", 2); err != nil {
		t.Fatalf("SetNodeFloat() error = %v", err)
	}
	if got, _ := d.GetAttrValue("PRIMEM", 0); got != "2" {
		t.Errorf("SetNodeFloat(2) = %q, want 2", got)
	}

	if err := New().SetNode("", "x"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("SetNode(\"\") error = %v", err)
	}
}

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		name       string
		wkt        string
		geographic bool
		projected  bool
		geocentric bool
		vertical   bool
		local      bool
		compound   bool
	}{
		{name: "geographic", wkt: WKTWGS84, geographic: true},
		{name: "projected", wkt: utm31WKT, projected: true},
		{name: "geocentric", wkt: `GEOCCS["g",DATUM["d",SPHEROID["s",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["metre",1]]`, geocentric: true},
		{name: "vertical", wkt: `VERT_CS["v",VERT_DATUM["d",2005],UNIT["metre",1]]`, vertical: true},
		{name: "local", wkt: `LOCAL_CS["l",UNIT["metre",1]]`, local: true},
		{name: "compound", wkt: `COMPD_CS["c",` + WKTWGS84 + `,VERT_CS["v",VERT_DATUM["d",2005],UNIT["metre",1]]]`, compound: true, geographic: true, vertical: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := mustWKT(t, tt.wkt)
			got := []bool{d.IsGeographic(), d.IsProjected(), d.IsGeocentric(), d.IsVertical(), d.IsLocal(), d.IsCompound()}
			want := []bool{tt.geographic, tt.projected, tt.geocentric, tt.vertical, tt.local, tt.compound}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("predicates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCloneAndReferences(t *testing.T) {
	d := mustWKT(t, WKTWGS84)
	c := d.Clone()
	if err := c.SetNode("GEOGCS", "changed"); err != nil {
		t.Fatalf("SetNode() error = %v", err)
	}
	if got, _ := d.GetAttrValue("GEOGCS", 0); got != "WGS 84" {
		t.Errorf("Clone() shares its tree, original name = %q", got)
	}

	if got := d.Reference(); got != 2 {
		t.Errorf("Reference() = %d, want 2", got)
	}
	d.Release()
	if d.IsEmpty() {
		t.Fatal("Release() cleared a still referenced definition")
	}
	d.Release()
	if !d.IsEmpty() {
		t.Error("Release() should clear the last reference")
	}
}

func TestUnits(t *testing.T) {
	d := mustWKT(t, utm31WKT)

	if v, name := d.GetAngularUnits(); v != UnitDegreeConv || name != "degree" {
		t.Errorf("GetAngularUnits() = (%v, %q)", v, name)
	}
	if v, name := d.GetLinearUnits(); v != 1 || name != "metre" {
		t.Errorf("GetLinearUnits() = (%v, %q)", v, name)
	}

	if err := d.SetLinearUnitsAndUpdateParameters(UnitFoot, UnitFootConv); err != nil {
		t.Fatalf("SetLinearUnitsAndUpdateParameters() error = %v", err)
	}
	if v, name := d.GetLinearUnits(); v != UnitFootConv || name != UnitFoot {
		t.Errorf("GetLinearUnits() after update = (%v, %q)", v, name)
	}
	unit := d.Root().Child(d.Root().FindChild("UNIT"))
	if auth := unit.FindChild("AUTHORITY"); auth != -1 {
		t.Error("updated UNIT should lose its AUTHORITY")
	}
	fe, err := d.GetNormProjParm(ParamFalseEasting, 0)
	if err != nil {
		t.Fatalf("GetNormProjParm() error = %v", err)
	}
	if !withinAbs(fe, 500000, 1e-6) {
		t.Errorf("normalised false easting = %v, want 500000", fe)
	}

	geog := mustWKT(t, `GEOGCS["g",DATUM["d",SPHEROID["s",6378137,298.257223563]],PRIMEM["Greenwich",0]]`)
	if v, name := geog.GetAngularUnits(); v != 1.0 || name != UnitDegree {
		t.Errorf("GetAngularUnits() without UNIT = (%v, %q)", v, name)
	}
	if v, name := geog.GetLinearUnits(); v != 1.0 || name != "unknown" {
		t.Errorf("GetLinearUnits() on geographic = (%v, %q)", v, name)
	}
	if err := geog.SetLinearUnits(UnitMeter, 1); !errors.Is(err, domain.ErrNoProjectedCS) {
		t.Errorf("SetLinearUnits() on geographic error = %v", err)
	}
}

func TestFixup(t *testing.T) {
	d := mustWKT(t, `PROJCS["p",PROJECTION["Mercator_1SP"],GEOGCS["g",DATUM["d",SPHEROID["s",6378137,298.257223563]],PRIMEM["Greenwich",0]]]`)
	if err := d.Fixup(); err != nil {
		t.Fatalf("Fixup() error = %v", err)
	}
	want := `PROJCS["p",GEOGCS["g",DATUM["d",SPHEROID["s",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]],PROJECTION["Mercator_1SP"],UNIT["Meter",1]]`
	if diff := cmp.Diff(want, d.String()); diff != "" {
		t.Errorf("Fixup() mismatch (-want +got):\n%s", diff)
	}
}

func TestAuthorityAndExtension(t *testing.T) {
	d := mustWKT(t, WKTWGS84)

	if got := d.EPSGCode(); got != 4326 {
		t.Errorf("EPSGCode() = %d, want 4326", got)
	}
	if err := d.SetAuthority("GEOGCS", "EPSG", 4258); err != nil {
		t.Fatalf("SetAuthority() error = %v", err)
	}
	if got := d.GetAuthorityCode("GEOGCS"); got != "4258" {
		t.Errorf("GetAuthorityCode() = %q", got)
	}
	if got := d.Root().ChildCount(); got != 5 {
		t.Errorf("SetAuthority() should replace, child count = %d", got)
	}
	if err := d.SetAuthority("PROJCS", "EPSG", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("SetAuthority(missing) error = %v", err)
	}

	if err := d.SetExtension("DATUM", "PROJ4_GRIDS", "a.gsb"); err != nil {
		t.Fatalf("SetExtension() error = %v", err)
	}
	if err := d.SetExtension("DATUM", "PROJ4_GRIDS", "b.gsb"); err != nil {
		t.Fatalf("SetExtension() error = %v", err)
	}
	if got := d.GetExtension("DATUM", "proj4_grids", ""); got != "b.gsb" {
		t.Errorf("GetExtension() = %q, want b.gsb", got)
	}
	if got := d.GetExtension("DATUM", "missing", "def"); got != "def" {
		t.Errorf("GetExtension(missing) = %q", got)
	}
}

func TestTOWGS84(t *testing.T) {
	d := mustWKT(t, WKTWGS84)
	if err := d.SetTOWGS84(1, 2, 3, 0, 0, 0, 0.5); err != nil {
		t.Fatalf("SetTOWGS84() error = %v", err)
	}

	got, err := d.GetTOWGS84()
	if err != nil {
		t.Fatalf("GetTOWGS84() error = %v", err)
	}
	if diff := cmp.Diff([7]float64{1, 2, 3, 0, 0, 0, 0.5}, got); diff != "" {
		t.Errorf("GetTOWGS84() mismatch (-want +got):\n%s", diff)
	}

	datum := d.GetAttrNode("DATUM")
	if datum.FindChild("TOWGS84") > datum.FindChild("AUTHORITY") {
		t.Error("TOWGS84 must precede the datum AUTHORITY")
	}

	bare := mustWKT(t, wktNAD27)
	if _, err := bare.GetTOWGS84(); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetTOWGS84() without node error = %v", err)
	}
}

func TestSetWellKnownGeogCS(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr error
	}{
		{name: "WGS84", want: "WGS 84"},
		{name: "crs:84", want: "WGS 84"},
		{name: "WGS72", want: "WGS 72"},
		{name: "NAD27", want: "NAD27"},
		{name: "CRS83", want: "NAD83"},
		{name: "EPSG:4326", wantErr: domain.ErrUnsupported},
		{name: "mars", wantErr: domain.ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			err := d.SetWellKnownGeogCS(tt.name, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("SetWellKnownGeogCS() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetWellKnownGeogCS() error = %v", err)
			}
			if got, _ := d.GetAttrValue("GEOGCS", 0); got != tt.want {
				t.Errorf("GEOGCS name = %q, want %q", got, tt.want)
			}
		})
	}

	lookup := func(code int) (*Definition, error) {
		if code != 4258 {
			return nil, domain.ErrUnsupportedCode
		}
		return NewFromWKT(`GEOGCS["ETRS89",DATUM["European_Terrestrial_Reference_System_1989",SPHEROID["GRS 1980",6378137,298.257222101]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433],AUTHORITY["EPSG","4258"]]`)
	}
	d := New()
	if err := d.SetWellKnownGeogCS("EPSG:4258", lookup); err != nil {
		t.Fatalf("SetWellKnownGeogCS(EPSG:4258) error = %v", err)
	}
	if got := d.EPSGCode(); got != 4258 {
		t.Errorf("EPSGCode() = %d", got)
	}
	if err := New().SetWellKnownGeogCS("EPSG:9999", lookup); !errors.Is(err, domain.ErrUnsupported) {
		t.Errorf("SetWellKnownGeogCS(EPSG:9999) error = %v", err)
	}
}

func TestSetGeocCS(t *testing.T) {
	d := mustWKT(t, WKTWGS84)
	if err := d.SetGeocCS("Geocentric"); err != nil {
		t.Fatalf("SetGeocCS() error = %v", err)
	}
	if !d.IsGeocentric() {
		t.Fatalf("root = %s, want GEOCCS", d.Root().Value())
	}
	if d.GetAttrNode("DATUM") == nil || d.GetAttrNode("PRIMEM") == nil {
		t.Error("SetGeocCS() should keep DATUM and PRIMEM")
	}
	if v, name := d.GetLinearUnits(); v != 1 || name != UnitMeter {
		t.Errorf("GetLinearUnits() = (%v, %q)", v, name)
	}

	if err := mustWKT(t, utm31WKT).SetGeocCS("x"); !errors.Is(err, domain.ErrUnsupported) {
		t.Errorf("SetGeocCS() on PROJCS error = %v", err)
	}
}

func TestSetterBuiltWKTRoundTrip(t *testing.T) {
	ntf := GeogCSParams{
		Name:           `NTF "Paris"`,
		Datum:          "Nouvelle_Triangulation_Francaise_Paris",
		Ellipsoid:      "Clarke 1880 (IGN)",
		SemiMajor:      6378249.2,
		InvFlattening:  293.4660212936269,
		PrimeMeridian:  "Paris",
		PMOffset:       2.33722917,
		Units:          "grad",
		RadiansPerUnit: 0.01570796326794897,
	}

	tests := []struct {
		name  string
		build func(d *Definition) error
	}{
		{
			name: "geographic with authorities",
			build: func(d *Definition) error {
				if err := d.SetGeogCS(GeogCSParams{Name: "WGS 84", Datum: DatumWGS84, Ellipsoid: "WGS 84", SemiMajor: 6378137, InvFlattening: 298.257223563}); err != nil {
					return err
				}
				if err := d.SetAuthority("DATUM", "EPSG", 6326); err != nil {
					return err
				}
				return d.SetAuthority("GEOGCS", "EPSG", 4326)
			},
		},
		{
			name: "grad units and a quoted name",
			build: func(d *Definition) error {
				if err := d.SetGeogCS(ntf); err != nil {
					return err
				}
				return d.SetTOWGS84(-168, -60, 320, 0, 0, 0, 0)
			},
		},
		{
			name: "utm zone",
			build: func(d *Definition) error {
				if err := d.SetWellKnownGeogCS("WGS84", nil); err != nil {
					return err
				}
				if err := d.SetUTM(33, false); err != nil {
					return err
				}
				return d.SetAuthority("PROJCS", "EPSG", 32733)
			},
		},
		{
			name: "lambert conic over a grad geographic system",
			build: func(d *Definition) error {
				if err := d.SetGeogCS(ntf); err != nil {
					return err
				}
				if err := d.SetProjCS(`Lambert "zone II"`); err != nil {
					return err
				}
				if err := d.SetLCC(45.898919, 47.696014, 46.8, 0, 600000, 2200000); err != nil {
					return err
				}
				if err := d.SetLinearUnits("US survey foot", 0.3048006096012192); err != nil {
					return err
				}
				return d.SetAuthority("PROJCS", "EPSG", 27572)
			},
		},
		{
			name: "compound with vertical part",
			build: func(d *Definition) error {
				if err := d.SetWellKnownGeogCS("NAD83", nil); err != nil {
					return err
				}
				return d.SetVertCS("NAVD88 height", "North American Vertical Datum 1988", 2005)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			if err := tt.build(d); err != nil {
				t.Fatalf("build error = %v", err)
			}

			text, err := d.ExportToWKT()
			if err != nil {
				t.Fatalf("ExportToWKT() error = %v", err)
			}
			back, err := wkt.ParseAll(text)
			if err != nil {
				t.Fatalf("ParseAll(%s) error = %v", text, err)
			}
			if err := back.FixupOrdering(); err != nil {
				t.Fatalf("FixupOrdering() error = %v", err)
			}
			if !back.Equal(d.Root()) {
				t.Errorf("round trip mismatch (-built +reparsed):\n%s", cmp.Diff(d.Root().Pretty(2), back.Pretty(2)))
			}

			again, err := NewFromWKT(text)
			if err != nil {
				t.Fatalf("NewFromWKT() error = %v", err)
			}
			if !again.IsSame(d) {
				t.Errorf("reimported definition is not the same as the built one")
			}
		})
	}
}
