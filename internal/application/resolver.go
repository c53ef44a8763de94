// Package application contains the application services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/srs"
	"github.com/jobrunner/georef/internal/domain/wkt"
	"github.com/jobrunner/georef/internal/ports/output"
)

// Resolution stage names, also used as metric labels.
const (
	StageGeogCS     = "gcs"
	StageProjCS     = "pcs"
	StageVertCS     = "vertcs"
	StageGeocCS     = "geoccs"
	StageCompdCS    = "compdcs"
	StageDictionary = "dictionary"
	StageEngine     = "engine"
	StageCache      = "cache"
	StageNone       = "none"
)

// CacheConfig configures the resolver cache.
type CacheConfig struct {
	TTL      time.Duration // 0 keeps entries until the next purge
	Capacity uint64        // 0 means unbounded
}

// Resolver builds spatial reference definitions from EPSG codes by
// consulting the code catalog, the definition dictionary and finally the
// projection engine.
type Resolver struct {
	catalog output.CodeCatalog
	dict    output.DefinitionDictionary
	engine  output.ProjectionEngine
	metrics output.MetricsCollector
	logger  *slog.Logger
	cache   *ttlcache.Cache[int, *srs.Definition]
}

// NewResolver creates a new resolver. dict and engine may be nil.
func NewResolver(
	catalog output.CodeCatalog,
	dict output.DefinitionDictionary,
	engine output.ProjectionEngine,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	cacheCfg CacheConfig,
) *Resolver {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}

	opts := []ttlcache.Option[int, *srs.Definition]{
		ttlcache.WithTTL[int, *srs.Definition](cacheCfg.TTL),
		ttlcache.WithDisableTouchOnHit[int, *srs.Definition](),
	}
	if cacheCfg.Capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[int, *srs.Definition](cacheCfg.Capacity))
	}

	return &Resolver{
		catalog: catalog,
		dict:    dict,
		engine:  engine,
		metrics: metrics,
		logger:  logger,
		cache:   ttlcache.New(opts...),
	}
}

// Resolve returns the definition for an EPSG code. The caller owns the
// returned definition.
func (r *Resolver) Resolve(ctx context.Context, code int) (*srs.Definition, error) {
	if code <= 0 {
		return nil, &domain.ResolveError{Code: code, Err: domain.ErrInvalidSRID}
	}

	if item := r.cache.Get(code); item != nil {
		r.metrics.IncResolveCount(StageCache, true)
		return item.Value().Clone(), nil
	}

	start := time.Now()
	d, stage, err := r.resolve(ctx, code)
	r.metrics.ObserveResolveDuration(time.Since(start))
	r.metrics.IncResolveCount(stage, err == nil)
	if err != nil {
		r.logger.Debug("resolve failed", "code", code, "error", err)
		return nil, err
	}

	r.cache.Set(code, d, ttlcache.DefaultTTL)
	r.logger.Debug("definition resolved", "code", code, "stage", stage)
	return d.Clone(), nil
}

// ImportFromEPSG replaces the content of def with the definition of code.
// def is left untouched on failure.
func (r *Resolver) ImportFromEPSG(ctx context.Context, def *srs.Definition, code int) error {
	d, err := r.Resolve(ctx, code)
	if err != nil {
		return err
	}
	def.SetRoot(d.Root())
	return nil
}

// GeogCSLookup returns a lookup for srs.SetWellKnownGeogCS and
// srs.ImportFromProjString backed by Resolve.
func (r *Resolver) GeogCSLookup(ctx context.Context) srs.GeogCSLookup {
	return func(code int) (*srs.Definition, error) {
		return r.Resolve(ctx, code)
	}
}

// Purge drops every cached definition.
func (r *Resolver) Purge() {
	n := r.cache.Len()
	r.cache.DeleteAll()
	r.logger.Info("resolver cache purged", "entries", n)
}

// IdentifyGeogCS guesses the EPSG code of the geographic part of def.
func (r *Resolver) IdentifyGeogCS(def *srs.Definition) int {
	return def.IdentifyGeogCS()
}

// AutoIdentifyEPSG adds EPSG authorities to def where they can be
// recognised.
func (r *Resolver) AutoIdentifyEPSG(def *srs.Definition) error {
	return def.AutoIdentifyEPSG()
}

type resolveStage struct {
	name      string
	fromTable bool
	build     func(ctx context.Context, code int) (*srs.Definition, error)
}

func (r *Resolver) stages() []resolveStage {
	return []resolveStage{
		{StageGeogCS, true, r.buildGeogCS},
		{StageProjCS, true, r.buildProjCS},
		{StageVertCS, true, r.buildVertCS},
		{StageGeocCS, true, r.buildGeocCS},
		{StageCompdCS, true, r.buildCompdCS},
		{StageDictionary, false, r.fromDictionary},
		{StageEngine, false, r.fromEngine},
	}
}

func (r *Resolver) resolve(ctx context.Context, requested int) (*srs.Definition, string, error) {
	code := requested
	if code == domain.SRIDWGS843D {
		code = domain.SRIDWGS84
	}

	for _, st := range r.stages() {
		if err := ctx.Err(); err != nil {
			return nil, st.name, err
		}

		d, err := st.build(ctx, code)
		if err != nil {
			if fallsThrough(err) || st.fromTable && errors.Is(err, domain.ErrCatalogNotLoaded) {
				continue
			}
			return nil, st.name, &domain.ResolveError{Code: requested, Stage: st.name, Err: err}
		}

		if err := tagAuthority(d, code, requested); err != nil {
			return nil, st.name, &domain.ResolveError{Code: requested, Stage: st.name, Err: err}
		}
		if err := d.FixupOrdering(); err != nil {
			return nil, st.name, &domain.ResolveError{Code: requested, Stage: st.name, Err: err}
		}
		return d, st.name, nil
	}

	return nil, StageNone, &domain.ResolveError{Code: requested, Err: domain.ErrUnsupported}
}

// fallsThrough reports whether a stage error means "not here, try the
// next stage".
func fallsThrough(err error) bool {
	return errors.Is(err, domain.ErrUnsupported) || errors.Is(err, domain.ErrNotFound)
}

// tagAuthority sets the top-level authority when a stage left it out or
// when the code was substituted.
func tagAuthority(d *srs.Definition, code, requested int) error {
	var target string
	switch {
	case d.IsProjected():
		target = "PROJCS"
	case d.IsGeographic():
		target = "GEOGCS"
	default:
		return nil
	}
	if d.GetAuthorityName(target) != "" && code == requested {
		return nil
	}
	return d.SetAuthority(target, "EPSG", requested)
}

func (r *Resolver) buildGeogCS(ctx context.Context, code int) (*srs.Definition, error) {
	d := srs.New()
	if err := r.setGeogCS(ctx, d, code); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *Resolver) setGeogCS(ctx context.Context, d *srs.Definition, code int) error {
	gcs := r.row(ctx, "gcs", "COORD_REF_SYS_CODE", code)

	var codes [4]int
	for i, column := range []string{"DATUM_CODE", "PRIME_MERIDIAN_CODE", "ELLIPSOID_CODE", "UOM_CODE"} {
		v, err := gcs.integer(column)
		if err != nil {
			return err
		}
		if v < 1 {
			return fmt.Errorf("geographic system %d has no %s: %w", code, column, domain.ErrUnsupported)
		}
		codes[i] = v
	}
	datumCode, pmCode, ellipsoidCode, uomAngle := codes[0], codes[1], codes[2], codes[3]

	name, err := gcs.text("COORD_REF_SYS_NAME")
	if err != nil {
		return err
	}
	datumName, err := gcs.text("DATUM_NAME")
	if err != nil {
		return err
	}
	pmName, pmOffset, err := r.PrimeMeridianInfo(ctx, pmCode)
	if err != nil {
		return err
	}
	ellipsoid, err := r.EllipsoidInfo(ctx, ellipsoidCode)
	if err != nil {
		return err
	}

	angleName, inDegrees, err := r.UOMAngleInfo(ctx, uomAngle)
	if err != nil {
		if !fallsThrough(err) {
			return err
		}
		angleName, inDegrees, uomAngle = srs.UnitDegree, 1, 0
	}
	radians := srs.UnitDegreeConv
	if inDegrees != 1 {
		radians *= inDegrees
	}

	if err := d.SetGeogCS(srs.GeogCSParams{
		Name:           name,
		Datum:          MassageDatumName(datumName),
		Ellipsoid:      ellipsoid.Name,
		SemiMajor:      ellipsoid.SemiMajor,
		InvFlattening:  ellipsoid.InvFlattening,
		PrimeMeridian:  pmName,
		PMOffset:       pmOffset,
		Units:          angleName,
		RadiansPerUnit: radians,
	}); err != nil {
		return err
	}

	shift, ok, err := wgs84Transform(gcs)
	if err != nil {
		return err
	}
	if ok {
		if err := d.SetTOWGS84(shift[0], shift[1], shift[2], shift[3], shift[4], shift[5], shift[6]); err != nil {
			return err
		}
	}

	for _, a := range []struct {
		target string
		code   int
	}{
		{"GEOGCS", code},
		{"DATUM", datumCode},
		{"SPHEROID", ellipsoidCode},
		{"PRIMEM", pmCode},
	} {
		if err := d.SetAuthority(a.target, "EPSG", a.code); err != nil {
			return err
		}
	}
	if uomAngle > 0 {
		setUnitAuthority(d, "GEOGCS", uomAngle)
	}
	return nil
}

// wgs84Transform reads the Bursa-Wolf parameters of a gcs row. Only the
// geocentric translation and the two seven-parameter methods qualify;
// coordinate frame rotations are turned into position vector rotations.
func wgs84Transform(gcs catalogRow) ([7]float64, bool, error) {
	var out [7]float64

	method, err := gcs.integer("COORD_OP_METHOD_CODE")
	if err != nil {
		return out, false, err
	}
	if method != 9603 && method != 9606 && method != 9607 {
		return out, false, nil
	}

	for i, column := range []string{"DX", "DY", "DZ", "RX", "RY", "RZ", "DS"} {
		v, err := gcs.text(column)
		if err != nil {
			return out, false, err
		}
		if v == "" {
			v = "0"
		}
		if method == 9607 && i >= 3 && i <= 5 {
			v = negateNumber(v)
		}
		out[i] = atof(v)
	}
	return out, true, nil
}

func (r *Resolver) buildProjCS(ctx context.Context, code int) (*srs.Definition, error) {
	pcs := r.row(ctx, "pcs", "COORD_REF_SYS_CODE", code)

	name, err := pcs.text("COORD_REF_SYS_NAME")
	if err != nil {
		return nil, err
	}
	uomLength, err := pcs.integer("UOM_CODE")
	if err != nil {
		return nil, err
	}
	gcsCode, err := pcs.integer("SOURCE_GEOGCRS_CODE")
	if err != nil {
		return nil, err
	}
	method, err := pcs.integer("COORD_OP_METHOD_CODE")
	if err != nil {
		return nil, err
	}
	if method == 0 {
		return nil, fmt.Errorf("projected system %d has no method: %w", code, domain.ErrUnsupported)
	}

	d := srs.New()
	if err := d.SetNode("PROJCS", name); err != nil {
		return nil, err
	}
	if err := r.setGeogCS(ctx, d, gcsCode); err != nil {
		return nil, err
	}

	unitName, meters, err := r.UOMLengthInfo(ctx, uomLength)
	if err != nil {
		return nil, err
	}
	if err := d.SetLinearUnits(unitName, meters); err != nil {
		return nil, err
	}
	setUnitAuthority(d, "PROJCS", uomLength)

	params, err := r.projParams(ctx, pcs, code)
	if err != nil {
		return nil, err
	}
	if err := applyProjectionMethod(d, method, params); err != nil {
		r.logger.Debug("no projection support for method", "code", code, "method", method)
		return nil, err
	}

	if err := d.SetAuthority("PROJCS", "EPSG", code); err != nil {
		return nil, err
	}
	return d, nil
}

// projParams reads up to seven parameters of a pcs row and converts them
// to degrees and metres.
func (r *Resolver) projParams(ctx context.Context, pcs catalogRow, code int) (ProjParams, error) {
	params := make(ProjParams)

	for i := 1; i <= 7; i++ {
		id, err := pcs.integer(fmt.Sprintf("PARAMETER_CODE_%d", i))
		if err != nil {
			return nil, err
		}
		if id == 0 {
			continue
		}
		uom, err := pcs.integer(fmt.Sprintf("PARAMETER_UOM_%d", i))
		if err != nil {
			return nil, err
		}
		value, err := pcs.text(fmt.Sprintf("PARAMETER_VALUE_%d", i))
		if err != nil {
			return nil, err
		}

		role := ParamRole(id)
		// some catalog releases give scale factors a length unit
		if role.IsScaleFactor() && uom < 9200 {
			uom = uomUnity
		}

		switch {
		case uom >= 9100 && uom < 9200:
			params[role] = AngleToDecimalDegrees(value, uom)
		case uom > 9000 && uom < 9100:
			_, meters, err := r.UOMLengthInfo(ctx, uom)
			if err != nil {
				if !fallsThrough(err) {
					return nil, err
				}
				meters = 1
			}
			params[role] = atof(value) * meters
		default:
			if uom != uomUnity && value != "" {
				r.logger.Debug("non-unity scale factor unit", "code", code, "uom", uom)
			}
			params[role] = atof(value)
		}
	}
	return params, nil
}

func (r *Resolver) buildVertCS(ctx context.Context, code int) (*srs.Definition, error) {
	row := r.row(ctx, "vertcs", "COORD_REF_SYS_CODE", code)

	name, err := row.text("COORD_REF_SYS_NAME")
	if err != nil {
		return nil, err
	}
	datumName, err := row.text("DATUM_NAME")
	if err != nil {
		return nil, err
	}
	datumCode, err := row.integer("DATUM_CODE")
	if err != nil {
		return nil, err
	}
	uom, err := row.integer("UOM_CODE")
	if err != nil {
		return nil, err
	}

	d := srs.New()
	if err := d.SetVertCS(name, datumName, srs.VertDatumOrthometric); err != nil {
		return nil, err
	}
	if err := d.SetAuthority("VERT_CS|VERT_DATUM", "EPSG", datumCode); err != nil {
		return nil, err
	}

	unitName, meters, err := r.UOMLengthInfo(ctx, uom)
	switch {
	case err == nil:
		if err := d.SetTargetLinearUnits("VERT_CS", unitName, meters); err != nil {
			return nil, err
		}
		setUnitAuthority(d, "VERT_CS", uom)
	case fallsThrough(err):
		r.logger.Warn("vertical unit not in catalog", "code", code, "uom", uom)
	default:
		return nil, err
	}

	if err := d.SetAuthority("VERT_CS", "EPSG", code); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *Resolver) buildGeocCS(ctx context.Context, code int) (*srs.Definition, error) {
	row := r.row(ctx, "geoccs", "COORD_REF_SYS_CODE", code)

	name, err := row.text("COORD_REF_SYS_NAME")
	if err != nil {
		return nil, err
	}
	datumName, err := row.text("DATUM_NAME")
	if err != nil {
		return nil, err
	}
	var codes [4]int
	for i, column := range []string{"DATUM_CODE", "ELLIPSOID_CODE", "PRIME_MERIDIAN_CODE", "UOM_CODE"} {
		if codes[i], err = row.integer(column); err != nil {
			return nil, err
		}
	}
	datumCode, ellipsoidCode, pmCode, uom := codes[0], codes[1], codes[2], codes[3]

	pmName, pmOffset, err := r.PrimeMeridianInfo(ctx, pmCode)
	if err != nil {
		return nil, err
	}
	ellipsoid, err := r.EllipsoidInfo(ctx, ellipsoidCode)
	if err != nil {
		return nil, err
	}
	unitName, meters, err := r.UOMLengthInfo(ctx, uom)
	if err != nil {
		return nil, err
	}

	d := srs.New()
	if err := d.SetGeocCS(name); err != nil {
		return nil, err
	}
	if err := d.SetGeogCS(srs.GeogCSParams{
		Datum:         MassageDatumName(datumName),
		Ellipsoid:     ellipsoid.Name,
		SemiMajor:     ellipsoid.SemiMajor,
		InvFlattening: ellipsoid.InvFlattening,
		PrimeMeridian: pmName,
		PMOffset:      pmOffset,
	}); err != nil {
		return nil, err
	}
	for _, a := range []struct {
		target string
		code   int
	}{
		{"DATUM", datumCode},
		{"SPHEROID", ellipsoidCode},
		{"PRIMEM", pmCode},
	} {
		if err := d.SetAuthority(a.target, "EPSG", a.code); err != nil {
			return nil, err
		}
	}

	if err := d.SetLinearUnits(unitName, meters); err != nil {
		return nil, err
	}
	setUnitAuthority(d, "GEOCCS", uom)

	root := d.Root()
	for _, axis := range [][2]string{{"Geocentric X", "OTHER"}, {"Geocentric Y", "EAST"}, {"Geocentric Z", "NORTH"}} {
		root.AddChild(wkt.NewNodeWith("AXIS", wkt.NewNode(axis[0]), wkt.NewNode(axis[1])))
	}

	if err := d.SetAuthority("GEOCCS", "EPSG", code); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *Resolver) buildCompdCS(ctx context.Context, code int) (*srs.Definition, error) {
	row := r.row(ctx, "compdcs", "COORD_REF_SYS_CODE", code)

	name, err := row.text("COORD_REF_SYS_NAME")
	if err != nil {
		return nil, err
	}
	horizCode, err := row.integer("CMPD_HORIZCRS_CODE")
	if err != nil {
		return nil, err
	}
	vertCode, err := row.integer("CMPD_VERTCRS_CODE")
	if err != nil {
		return nil, err
	}

	horizontal, err := r.buildProjCS(ctx, horizCode)
	if err != nil && fallsThrough(err) {
		horizontal, err = r.buildGeogCS(ctx, horizCode)
	}
	if err != nil {
		return nil, err
	}
	vertical, err := r.buildVertCS(ctx, vertCode)
	if err != nil {
		return nil, err
	}

	d := srs.New()
	if err := d.SetCompdCS(name, horizontal, vertical); err != nil {
		return nil, err
	}
	if err := d.SetAuthority("", "EPSG", code); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *Resolver) fromDictionary(ctx context.Context, code int) (*srs.Definition, error) {
	if r.dict == nil {
		return nil, fmt.Errorf("no definition dictionary: %w", domain.ErrUnsupported)
	}
	text, err := r.dict.Definition(ctx, code)
	if err != nil {
		return nil, err
	}
	return srs.NewFromWKT(text)
}

func (r *Resolver) fromEngine(ctx context.Context, code int) (*srs.Definition, error) {
	if r.engine == nil {
		return nil, fmt.Errorf("no projection engine: %w", domain.ErrUnsupported)
	}

	expanded, err := r.engine.Expand(fmt.Sprintf("+init=epsg:%d", code))
	if err != nil {
		return nil, fmt.Errorf("engine expansion: %v: %w", err, domain.ErrUnsupported)
	}
	if !strings.Contains(expanded, "proj=") {
		return nil, fmt.Errorf("engine expansion %q: %w", expanded, domain.ErrUnsupported)
	}

	d := srs.New()
	lookup := func(geogCode int) (*srs.Definition, error) {
		return r.buildGeogCS(ctx, geogCode)
	}
	if err := d.ImportFromProjString(expanded, lookup); err != nil {
		return nil, err
	}
	// the imported authorities describe the geographic part only
	if d.IsProjected() || d.IsGeographic() {
		if err := d.SetAuthority(d.Root().Value(), "EPSG", code); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// setUnitAuthority tags the UNIT that is a direct child of the node at
// target.
func setUnitAuthority(d *srs.Definition, target string, code int) {
	cs := d.GetAttrNode(target)
	if cs == nil {
		return
	}
	i := cs.FindChild("UNIT")
	if i < 0 {
		return
	}
	unit := cs.Child(i)
	if j := unit.FindChild("AUTHORITY"); j >= 0 {
		unit.DestroyChild(j)
	}
	unit.AddChild(wkt.NewNodeWith("AUTHORITY", wkt.NewNode("EPSG"), wkt.NewNode(strconv.Itoa(code))))
}

// catalogRow reads single columns of one catalog row.
type catalogRow struct {
	ctx     context.Context
	catalog output.CodeCatalog
	table   string
	key     string
	value   string
}

func (r *Resolver) row(ctx context.Context, table, key string, code int) catalogRow {
	return catalogRow{ctx: ctx, catalog: r.catalog, table: table, key: key, value: strconv.Itoa(code)}
}

func (c catalogRow) text(column string) (string, error) {
	if c.catalog == nil {
		return "", domain.ErrCatalogNotLoaded
	}
	v, err := c.catalog.Lookup(c.ctx, c.table, c.key, c.value, column)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

func (c catalogRow) integer(column string) (int, error) {
	v, err := c.text(column)
	if err != nil {
		return 0, err
	}
	return atoi(v), nil
}

func (c catalogRow) number(column string) (float64, error) {
	v, err := c.text(column)
	if err != nil {
		return 0, err
	}
	return atof(v), nil
}
