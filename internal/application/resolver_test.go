package application

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/srs"
	"github.com/jobrunner/georef/internal/ports/output"
)

func newTestResolver(catalog *mockCatalog, dict *mockDictionary, engine *mockEngine, metrics *mockMetrics) *Resolver {
	var (
		c output.CodeCatalog
		d output.DefinitionDictionary
		e output.ProjectionEngine
		m output.MetricsCollector
	)
	if catalog != nil {
		c = catalog
	}
	if dict != nil {
		d = dict
	}
	if engine != nil {
		e = engine
	}
	if metrics != nil {
		m = metrics
	}
	return NewResolver(c, d, e, m, testLogger(), CacheConfig{})
}

func TestResolveGeographic(t *testing.T) {
	r := newTestResolver(newMockCatalog(), nil, nil, nil)

	d, err := r.Resolve(context.Background(), 4326)
	if err != nil {
		t.Fatalf("Resolve(4326) error = %v", err)
	}

	if !d.IsGeographic() {
		t.Fatalf("Resolve(4326) root = %s, want GEOGCS", d.Root().Value())
	}
	if got := d.EPSGCode(); got != 4326 {
		t.Errorf("EPSGCode() = %d, want 4326", got)
	}
	if got, _ := d.GetAttrValue("DATUM", 0); got != srs.DatumWGS84 {
		t.Errorf("datum = %q, want %q", got, srs.DatumWGS84)
	}
	if got := d.GetAuthorityCode("DATUM"); got != "6326" {
		t.Errorf("DATUM authority = %q, want 6326", got)
	}
	if got := d.GetAuthorityCode("SPHEROID"); got != "7030" {
		t.Errorf("SPHEROID authority = %q, want 7030", got)
	}
	if got := d.GetSemiMajor(); got != 6378137 {
		t.Errorf("GetSemiMajor() = %v, want 6378137", got)
	}
	if got := d.GetInvFlattening(); got != 298.257223563 {
		t.Errorf("GetInvFlattening() = %v, want 298.257223563", got)
	}
	if radians, name := d.GetAngularUnits(); radians != srs.UnitDegreeConv || name != srs.UnitDegree {
		t.Errorf("GetAngularUnits() = (%v, %q)", radians, name)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestResolve3DAlias(t *testing.T) {
	r := newTestResolver(newMockCatalog(), nil, nil, nil)

	d, err := r.Resolve(context.Background(), domain.SRIDWGS843D)
	if err != nil {
		t.Fatalf("Resolve(4979) error = %v", err)
	}
	if got := d.EPSGCode(); got != domain.SRIDWGS843D {
		t.Errorf("EPSGCode() = %d, want %d", got, domain.SRIDWGS843D)
	}
	if got, _ := d.GetAttrValue("GEOGCS", 0); got != "WGS 84" {
		t.Errorf("GEOGCS name = %q, want WGS 84", got)
	}
}

func TestResolveTOWGS84(t *testing.T) {
	r := newTestResolver(newMockCatalog(), nil, nil, nil)

	tests := []struct {
		name string
		code int
		want [7]float64
	}{
		// coordinate frame rotations come back as position vector rotations
		{"coordinate frame", 4314, [7]float64{598.1, 73.7, 418.2, -0.202, -0.045, 2.455, 6.7}},
		{"geocentric translation", 4807, [7]float64{-168, -60, 320, 0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.Resolve(context.Background(), tt.code)
			if err != nil {
				t.Fatalf("Resolve(%d) error = %v", tt.code, err)
			}
			got, err := d.GetTOWGS84()
			if err != nil {
				t.Fatalf("GetTOWGS84() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("GetTOWGS84() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	d, err := r.Resolve(context.Background(), 4326)
	if err != nil {
		t.Fatalf("Resolve(4326) error = %v", err)
	}
	if _, err := d.GetTOWGS84(); err == nil {
		t.Error("GetTOWGS84() on 4326 should fail, the row has no transformation")
	}
}

func TestResolveUnitsAndMeridian(t *testing.T) {
	r := newTestResolver(newMockCatalog(), nil, nil, nil)

	d, err := r.Resolve(context.Background(), 4807)
	if err != nil {
		t.Fatalf("Resolve(4807) error = %v", err)
	}

	radians, name := d.GetAngularUnits()
	if name != "grad" || math.Abs(radians-srs.UnitDegreeConv*0.9) > 1e-15 {
		t.Errorf("GetAngularUnits() = (%v, %q), want grad", radians, name)
	}
	if _, pm := d.GetPrimeMeridian(); pm != "Paris" {
		t.Errorf("GetPrimeMeridian() name = %q, want Paris", pm)
	}
	if got := d.GetInvFlattening(); math.Abs(got-293.4660213) > 1e-6 {
		t.Errorf("GetInvFlattening() = %v, want 293.4660213", got)
	}
	if got, _ := d.GetAttrValue("DATUM", 0); got != "Nouvelle_Triangulation_Francaise_Paris" {
		t.Errorf("datum = %q", got)
	}
}

func TestResolveProjected(t *testing.T) {
	r := newTestResolver(newMockCatalog(), nil, nil, nil)

	tests := []struct {
		name       string
		code       int
		geogcs     string
		wantParams map[string]float64
	}{
		{
			name:   "UTM zone 31N",
			code:   32631,
			geogcs: "4326",
			wantParams: map[string]float64{
				srs.ParamLatitudeOfOrigin: 0,
				srs.ParamCentralMeridian:  3,
				srs.ParamScaleFactor:      0.9996,
				srs.ParamFalseEasting:     500000,
				srs.ParamFalseNorthing:    0,
			},
		},
		{
			name:   "Gauss-Kruger with packed DMS and a metre scale factor",
			code:   31467,
			geogcs: "4314",
			wantParams: map[string]float64{
				srs.ParamCentralMeridian: 9,
				srs.ParamScaleFactor:     1,
				srs.ParamFalseEasting:    3500000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.Resolve(context.Background(), tt.code)
			if err != nil {
				t.Fatalf("Resolve(%d) error = %v", tt.code, err)
			}
			if !d.IsProjected() {
				t.Fatalf("root = %s, want PROJCS", d.Root().Value())
			}
			if got := d.EPSGCode(); got != tt.code {
				t.Errorf("EPSGCode() = %d, want %d", got, tt.code)
			}
			if got := d.GetAuthorityCode("GEOGCS"); got != tt.geogcs {
				t.Errorf("GEOGCS authority = %q, want %q", got, tt.geogcs)
			}
			if got := d.Projection(); got != srs.ProjTransverseMercator {
				t.Errorf("Projection() = %q", got)
			}
			for name, want := range tt.wantParams {
				got, err := d.GetNormProjParm(name, -1)
				if err != nil {
					t.Errorf("GetNormProjParm(%s) error = %v", name, err)
					continue
				}
				if math.Abs(got-want) > 1e-9 {
					t.Errorf("GetNormProjParm(%s) = %v, want %v", name, got, want)
				}
			}
			if meters, _ := d.GetLinearUnits(); meters != 1 {
				t.Errorf("GetLinearUnits() = %v, want 1", meters)
			}
			if err := d.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestResolveOtherKinds(t *testing.T) {
	r := newTestResolver(newMockCatalog(), nil, nil, nil)

	tests := []struct {
		code  int
		check func(*srs.Definition) bool
		kind  string
	}{
		{5703, (*srs.Definition).IsVertical, "VERT_CS"},
		{4978, (*srs.Definition).IsGeocentric, "GEOCCS"},
		{7405, (*srs.Definition).IsCompound, "COMPD_CS"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			d, err := r.Resolve(context.Background(), tt.code)
			if err != nil {
				t.Fatalf("Resolve(%d) error = %v", tt.code, err)
			}
			if !tt.check(d) {
				t.Errorf("Resolve(%d) root = %s, want %s", tt.code, d.Root().Value(), tt.kind)
			}
			if got := d.GetAuthorityCode(tt.kind); got == "" {
				t.Errorf("Resolve(%d) has no %s authority", tt.code, tt.kind)
			}
			if err := d.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestResolveFallThrough(t *testing.T) {
	dict := &mockDictionary{defs: map[int]string{900913: srs.WKTWGS84}}
	engine := &mockEngine{expand: map[string]string{
		"+init=epsg:2000": "+proj=longlat +datum=WGS84 +no_defs",
	}}
	metrics := &mockMetrics{}
	r := newTestResolver(newMockCatalog(), dict, engine, metrics)

	tests := []struct {
		name      string
		code      int
		wantStage string
		wantCode  int
	}{
		{"catalog", 4326, StageGeogCS, 4326},
		{"dictionary", 900913, StageDictionary, 4326},
		{"engine", 2000, StageEngine, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics.stages = nil
			d, err := r.Resolve(context.Background(), tt.code)
			if err != nil {
				t.Fatalf("Resolve(%d) error = %v", tt.code, err)
			}
			if diff := cmp.Diff([]string{tt.wantStage}, metrics.stages); diff != "" {
				t.Errorf("stages mismatch (-want +got):\n%s", diff)
			}
			if got := d.EPSGCode(); got != tt.wantCode {
				t.Errorf("EPSGCode() = %d, want %d", got, tt.wantCode)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	diskErr := errors.New("disk on fire")

	tests := []struct {
		name      string
		catalog   *mockCatalog
		code      int
		wantErr   error
		wantStage string
	}{
		{"invalid code", newMockCatalog(), 0, domain.ErrInvalidSRID, ""},
		{"unknown code", newMockCatalog(), 1, domain.ErrUnsupported, ""},
		{"unsupported method", newMockCatalog(), 29999, domain.ErrUnsupported, ""},
		{"catalog failure aborts", &mockCatalog{err: diskErr}, 4326, diskErr, StageGeogCS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(tt.catalog, nil, nil, nil)
			_, err := r.Resolve(context.Background(), tt.code)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resolve(%d) error = %v, want %v", tt.code, err, tt.wantErr)
			}
			var resolveErr *domain.ResolveError
			if !errors.As(err, &resolveErr) {
				t.Fatalf("Resolve(%d) error = %T, want *domain.ResolveError", tt.code, err)
			}
			if resolveErr.Code != tt.code || resolveErr.Stage != tt.wantStage {
				t.Errorf("ResolveError = {Code: %d, Stage: %q}, want {%d, %q}",
					resolveErr.Code, resolveErr.Stage, tt.code, tt.wantStage)
			}
		})
	}
}

func TestResolveWithoutCatalog(t *testing.T) {
	dict := &mockDictionary{defs: map[int]string{4326: srs.WKTWGS84}}
	r := NewResolver(nil, dict, nil, nil, testLogger(), CacheConfig{})

	d, err := r.Resolve(context.Background(), 4326)
	if err != nil {
		t.Fatalf("Resolve(4326) error = %v", err)
	}
	if !d.IsGeographic() {
		t.Errorf("root = %s, want GEOGCS", d.Root().Value())
	}
}

func TestResolveCanceled(t *testing.T) {
	r := newTestResolver(newMockCatalog(), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Resolve(ctx, 4326); !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() error = %v, want context.Canceled", err)
	}
}

func TestResolveCache(t *testing.T) {
	catalog := newMockCatalog()
	metrics := &mockMetrics{}
	r := newTestResolver(catalog, nil, nil, metrics)
	ctx := context.Background()

	first, err := r.Resolve(ctx, 32631)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	lookups := catalog.lookupCount()

	second, err := r.Resolve(ctx, 32631)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := catalog.lookupCount(); got != lookups {
		t.Errorf("cached Resolve() made %d lookups", got-lookups)
	}
	if metrics.stages[len(metrics.stages)-1] != StageCache {
		t.Errorf("last stage = %q, want %q", metrics.stages[len(metrics.stages)-1], StageCache)
	}

	// callers own their copies
	if err := first.SetNode("PROJCS", "changed"); err != nil {
		t.Fatalf("SetNode() error = %v", err)
	}
	if got, _ := second.GetAttrValue("PROJCS", 0); got != "WGS 84 / UTM zone 31N" {
		t.Errorf("second copy name = %q", got)
	}
	third, _ := r.Resolve(ctx, 32631)
	if got, _ := third.GetAttrValue("PROJCS", 0); got != "WGS 84 / UTM zone 31N" {
		t.Errorf("cached name = %q", got)
	}

	r.Purge()
	if _, err := r.Resolve(ctx, 32631); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := catalog.lookupCount(); got == lookups {
		t.Error("Resolve() after Purge() should read the catalog again")
	}
}

func TestImportFromEPSG(t *testing.T) {
	r := newTestResolver(newMockCatalog(), nil, nil, nil)
	ctx := context.Background()

	d := srs.New()
	if err := r.ImportFromEPSG(ctx, d, 4326); err != nil {
		t.Fatalf("ImportFromEPSG() error = %v", err)
	}
	if d.EPSGCode() != 4326 {
		t.Errorf("EPSGCode() = %d, want 4326", d.EPSGCode())
	}

	before := d.String()
	if err := r.ImportFromEPSG(ctx, d, 1); err == nil {
		t.Fatal("ImportFromEPSG(1) should fail")
	}
	if d.String() != before {
		t.Error("failed ImportFromEPSG() changed the definition")
	}
}

func TestFromUserInput(t *testing.T) {
	r := newTestResolver(newMockCatalog(), nil, nil, nil)

	tests := []struct {
		name     string
		input    string
		wantCode int
		wantErr  error
	}{
		{"bare code", "4326", 4326, nil},
		{"prefixed code", "EPSG:32631", 32631, nil},
		{"lower case prefix", "epsg:4326", 4326, nil},
		{"urn", "urn:ogc:def:crs:EPSG::32631", 32631, nil},
		{"wkt", srs.WKTWGS84, 4326, nil},
		{"engine parameters", "+proj=longlat +datum=WGS84 +no_defs", 4326, nil},
		{"blank", "  ", 0, domain.ErrEmptyDefinition},
		{"broken wkt", `GEOGCS["x"`, 0, domain.ErrCorrupt},
		{"unknown code", "EPSG:1", 0, domain.ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.FromUserInput(context.Background(), tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("FromUserInput(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromUserInput(%q) error = %v", tt.input, err)
			}
			if got := d.EPSGCode(); got != tt.wantCode {
				t.Errorf("FromUserInput(%q).EPSGCode() = %d, want %d", tt.input, got, tt.wantCode)
			}
		})
	}
}
