package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// tableSchema describes one EPSG table.
type tableSchema struct {
	key     string
	columns []string
}

func parameterColumns() []string {
	var cols []string
	for i := 1; i <= 7; i++ {
		cols = append(cols,
			fmt.Sprintf("PARAMETER_CODE_%d", i),
			fmt.Sprintf("PARAMETER_VALUE_%d", i),
			fmt.Sprintf("PARAMETER_UOM_%d", i),
		)
	}
	return cols
}

// tableSchemas lists the tables the resolver reads, keyed by table name.
var tableSchemas = map[string]tableSchema{
	"gcs": {key: "COORD_REF_SYS_CODE", columns: []string{
		"COORD_REF_SYS_CODE", "COORD_REF_SYS_NAME", "DATUM_CODE", "DATUM_NAME", "GREENWICH_DATUM",
		"UOM_CODE", "ELLIPSOID_CODE", "PRIME_MERIDIAN_CODE", "COORD_OP_METHOD_CODE",
		"DX", "DY", "DZ", "RX", "RY", "RZ", "DS",
	}},
	"pcs": {key: "COORD_REF_SYS_CODE", columns: append([]string{
		"COORD_REF_SYS_CODE", "COORD_REF_SYS_NAME", "UOM_CODE", "SOURCE_GEOGCRS_CODE",
		"COORD_OP_CODE", "COORD_OP_METHOD_CODE",
	}, parameterColumns()...)},
	"unit_of_measure": {key: "UOM_CODE", columns: []string{
		"UOM_CODE", "UNIT_OF_MEAS_NAME", "UNIT_OF_MEAS_TYPE", "FACTOR_B", "FACTOR_C",
	}},
	"ellipsoid": {key: "ELLIPSOID_CODE", columns: []string{
		"ELLIPSOID_CODE", "ELLIPSOID_NAME", "SEMI_MAJOR_AXIS", "UOM_CODE", "INV_FLATTENING", "SEMI_MINOR_AXIS",
	}},
	"prime_meridian": {key: "PRIME_MERIDIAN_CODE", columns: []string{
		"PRIME_MERIDIAN_CODE", "PRIME_MERIDIAN_NAME", "GREENWICH_LONGITUDE", "UOM_CODE",
	}},
	"vertcs": {key: "COORD_REF_SYS_CODE", columns: []string{
		"COORD_REF_SYS_CODE", "COORD_REF_SYS_NAME", "DATUM_CODE", "DATUM_NAME", "UOM_CODE",
	}},
	"geoccs": {key: "COORD_REF_SYS_CODE", columns: []string{
		"COORD_REF_SYS_CODE", "COORD_REF_SYS_NAME", "DATUM_CODE", "DATUM_NAME",
		"ELLIPSOID_CODE", "PRIME_MERIDIAN_CODE", "UOM_CODE",
	}},
	"compdcs": {key: "COORD_REF_SYS_CODE", columns: []string{
		"COORD_REF_SYS_CODE", "COORD_REF_SYS_NAME", "CMPD_HORIZCRS_CODE", "CMPD_VERTCRS_CODE",
	}},
}

// columnType picks the SQLite type of an EPSG column from its name.
func columnType(column string) string {
	switch {
	case strings.Contains(column, "NAME"), strings.HasSuffix(column, "_TYPE"):
		return "TEXT"
	case strings.Contains(column, "CODE"), strings.Contains(column, "UOM"), column == "GREENWICH_DATUM":
		return "INTEGER"
	case strings.HasPrefix(column, "PARAMETER_VALUE"), column == "GREENWICH_LONGITUDE":
		// sexagesimal values keep their text form
		return "TEXT"
	}
	return "REAL"
}

func createTableSQL(name string, t tableSchema) string {
	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		defs[i] = fmt.Sprintf(`"%s" %s`, c, columnType(c))
		if c == t.key {
			defs[i] += " PRIMARY KEY"
		}
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (%s)`, name, strings.Join(defs, ", "))
}

// seedRow is one row of the built-in dataset.
type seedRow struct {
	table  string
	values map[string]any
}

func gcsRow(code int, name string, datum int, datumName string, ellipsoid, pm, uom, method int, shift ...float64) seedRow {
	v := map[string]any{
		"COORD_REF_SYS_CODE": code, "COORD_REF_SYS_NAME": name, "DATUM_CODE": datum, "DATUM_NAME": datumName,
		"GREENWICH_DATUM": datum, "UOM_CODE": uom, "ELLIPSOID_CODE": ellipsoid, "PRIME_MERIDIAN_CODE": pm,
	}
	if method != 0 {
		v["COORD_OP_METHOD_CODE"] = method
		for i, column := range []string{"DX", "DY", "DZ", "RX", "RY", "RZ", "DS"} {
			if i < len(shift) {
				v[column] = shift[i]
			}
		}
	}
	return seedRow{table: "gcs", values: v}
}

// param is a projection parameter: EPSG parameter code, value text and
// unit of measure.
type param struct {
	code  int
	value string
	uom   int
}

func pcsRow(code int, name string, gcs, method int, params ...param) seedRow {
	v := map[string]any{
		"COORD_REF_SYS_CODE": code, "COORD_REF_SYS_NAME": name, "UOM_CODE": 9001,
		"SOURCE_GEOGCRS_CODE": gcs, "COORD_OP_METHOD_CODE": method,
	}
	for i, p := range params {
		v[fmt.Sprintf("PARAMETER_CODE_%d", i+1)] = p.code
		v[fmt.Sprintf("PARAMETER_VALUE_%d", i+1)] = p.value
		v[fmt.Sprintf("PARAMETER_UOM_%d", i+1)] = p.uom
	}
	return seedRow{table: "pcs", values: v}
}

func tmParams(lat, lon, k, fe, fn string) []param {
	return []param{
		{8801, lat, 9102}, {8802, lon, 9102}, {8805, k, 9201}, {8806, fe, 9001}, {8807, fn, 9001},
	}
}

func utmRow(code int, name string, gcs, zone int, south bool) seedRow {
	fn := "0"
	if south {
		fn = "10000000"
	}
	lon := fmt.Sprint(zone*6 - 183)
	return pcsRow(code, name, gcs, 9807, tmParams("0", lon, "0.9996", "500000", fn)...)
}

func unitRow(code int, name, kind string, b, c float64) seedRow {
	v := map[string]any{"UOM_CODE": code, "UNIT_OF_MEAS_NAME": name, "UNIT_OF_MEAS_TYPE": kind}
	if c != 0 {
		v["FACTOR_B"], v["FACTOR_C"] = b, c
	}
	return seedRow{table: "unit_of_measure", values: v}
}

func ellipsoidRow(code int, name string, semiMajor, invFlattening, semiMinor float64) seedRow {
	v := map[string]any{"ELLIPSOID_CODE": code, "ELLIPSOID_NAME": name, "SEMI_MAJOR_AXIS": semiMajor, "UOM_CODE": 9001}
	if invFlattening != 0 {
		v["INV_FLATTENING"] = invFlattening
	}
	if semiMinor != 0 {
		v["SEMI_MINOR_AXIS"] = semiMinor
	}
	return seedRow{table: "ellipsoid", values: v}
}

// seedRows is the built-in core dataset.
func seedRows() []seedRow {
	return []seedRow{
		unitRow(9001, "metre", "length", 1, 1),
		unitRow(9002, "foot", "length", 0.3048, 1),
		unitRow(9003, "US survey foot", "length", 12, 39.37),
		unitRow(9101, "radian", "angle", 1, 1),
		unitRow(9102, "degree", "angle", 3.14159265358979, 180),
		unitRow(9105, "grad", "angle", 3.14159265358979, 200),
		unitRow(9110, "sexagesimal DMS", "angle", 0, 0),
		unitRow(9122, "degree (supplier to define representation)", "angle", 3.14159265358979, 180),
		unitRow(9201, "unity", "scale", 1, 1),

		ellipsoidRow(7001, "Airy 1830", 6377563.396, 299.3249646, 0),
		ellipsoidRow(7004, "Bessel 1841", 6377397.155, 299.1528128, 0),
		ellipsoidRow(7008, "Clarke 1866", 6378206.4, 0, 6356583.8),
		ellipsoidRow(7011, "Clarke 1880 (IGN)", 6378249.2, 0, 6356515),
		ellipsoidRow(7019, "GRS 1980", 6378137, 298.257222101, 0),
		ellipsoidRow(7022, "International 1924", 6378388, 297, 0),
		ellipsoidRow(7030, "WGS 84", 6378137, 298.257223563, 0),
		ellipsoidRow(7043, "WGS 72", 6378135, 298.26, 0),

		{table: "prime_meridian", values: map[string]any{
			"PRIME_MERIDIAN_CODE": 8901, "PRIME_MERIDIAN_NAME": "Greenwich", "GREENWICH_LONGITUDE": "0", "UOM_CODE": 9102,
		}},
		{table: "prime_meridian", values: map[string]any{
			"PRIME_MERIDIAN_CODE": 8903, "PRIME_MERIDIAN_NAME": "Paris", "GREENWICH_LONGITUDE": "2.5969213", "UOM_CODE": 9105,
		}},

		gcsRow(4326, "WGS 84", 6326, "World Geodetic System 1984", 7030, 8901, 9122, 0),
		gcsRow(4322, "WGS 72", 6322, "World Geodetic System 1972", 7043, 8901, 9122, 9606, 0, 0, 4.5, 0, 0, 0.554, 0.2263),
		gcsRow(4269, "NAD83", 6269, "North American Datum 1983", 7019, 8901, 9122, 9603, 0, 0, 0),
		gcsRow(4267, "NAD27", 6267, "North American Datum 1927", 7008, 8901, 9122, 0),
		gcsRow(4258, "ETRS89", 6258, "European Terrestrial Reference System 1989", 7019, 8901, 9122, 9603, 0, 0, 0),
		gcsRow(4277, "OSGB 1936", 6277, "OSGB 1936", 7001, 8901, 9122, 9606,
			446.448, -125.157, 542.06, 0.15, 0.247, 0.842, -20.489),
		gcsRow(4807, "NTF (Paris)", 6807, "Nouvelle Triangulation Francaise (Paris)", 7011, 8903, 9105, 9603, -168, -60, 320),
		gcsRow(4314, "DHDN", 6314, "Deutsches Hauptdreiecksnetz", 7004, 8901, 9122, 9606,
			598.1, 73.7, 418.2, 0.202, 0.045, -2.455, 6.7),
		gcsRow(4171, "RGF93", 6171, "Reseau Geodesique Francais 1993", 7019, 8901, 9122, 9603, 0, 0, 0),
		gcsRow(4167, "NZGD2000", 6167, "New Zealand Geodetic Datum 2000", 7019, 8901, 9122, 9603, 0, 0, 0),
		gcsRow(4156, "S-JTSK", 6156, "System Jednotne Trigonometricke Site Katastralni", 7004, 8901, 9122, 9606,
			589, 76, 480, 0, 0, 0, 0),

		pcsRow(3857, "WGS 84 / Pseudo-Mercator", 4326, 1024,
			param{8801, "0", 9102}, param{8802, "0", 9102}, param{8806, "0", 9001}, param{8807, "0", 9001}),
		utmRow(32631, "WGS 84 / UTM zone 31N", 4326, 31, false),
		utmRow(32632, "WGS 84 / UTM zone 32N", 4326, 32, false),
		utmRow(32633, "WGS 84 / UTM zone 33N", 4326, 33, false),
		utmRow(32733, "WGS 84 / UTM zone 33S", 4326, 33, true),
		utmRow(25832, "ETRS89 / UTM zone 32N", 4258, 32, false),
		pcsRow(27700, "OSGB 1936 / British National Grid", 4277, 9807,
			tmParams("49", "-2", "0.9996012717", "400000", "-100000")...),
		pcsRow(2154, "RGF93 / Lambert-93", 4171, 9802,
			param{8821, "46.5", 9102}, param{8822, "3", 9102}, param{8823, "49", 9102}, param{8824, "44", 9102},
			param{8826, "700000", 9001}, param{8827, "6600000", 9001}),
		pcsRow(3035, "ETRS89 / LAEA Europe", 4258, 9820,
			param{8801, "52", 9102}, param{8802, "10", 9102}, param{8806, "4321000", 9001}, param{8807, "3210000", 9001}),
		pcsRow(31467, "DHDN / 3-degree Gauss-Kruger zone 3", 4314, 9807,
			tmParams("0", "9", "1", "3500000", "0")...),
		pcsRow(2193, "NZGD2000 / New Zealand Transverse Mercator 2000", 4167, 9807,
			tmParams("0", "173", "0.9996", "1600000", "10000000")...),
		pcsRow(5514, "S-JTSK / Krovak East North", 4156, 1041,
			param{8811, "49.5", 9102}, param{8833, "24.8333333333333", 9102}, param{1036, "30.2881397527778", 9102},
			param{8818, "78.5", 9102}, param{8819, "0.9999", 9201}, param{8806, "0", 9001}, param{8807, "0", 9001}),

		{table: "vertcs", values: map[string]any{
			"COORD_REF_SYS_CODE": 5703, "COORD_REF_SYS_NAME": "NAVD88 height", "DATUM_CODE": 5103,
			"DATUM_NAME": "North American Vertical Datum 1988", "UOM_CODE": 9001,
		}},
		{table: "vertcs", values: map[string]any{
			"COORD_REF_SYS_CODE": 5701, "COORD_REF_SYS_NAME": "ODN height", "DATUM_CODE": 5101,
			"DATUM_NAME": "Ordnance Datum Newlyn", "UOM_CODE": 9001,
		}},
		{table: "geoccs", values: map[string]any{
			"COORD_REF_SYS_CODE": 4978, "COORD_REF_SYS_NAME": "WGS 84", "DATUM_CODE": 6326,
			"DATUM_NAME": "World Geodetic System 1984", "ELLIPSOID_CODE": 7030, "PRIME_MERIDIAN_CODE": 8901, "UOM_CODE": 9001,
		}},
		{table: "compdcs", values: map[string]any{
			"COORD_REF_SYS_CODE": 7405, "COORD_REF_SYS_NAME": "OSGB 1936 / British National Grid + ODN height",
			"CMPD_HORIZCRS_CODE": 27700, "CMPD_VERTCRS_CODE": 5701,
		}},
	}
}

// Seed creates the catalog tables in db and fills them with the core
// dataset. Existing rows with the same codes are replaced.
func Seed(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	names := make([]string, 0, len(tableSchemas))
	for name := range tableSchemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, createTableSQL(name, tableSchemas[name])); err != nil {
			return fmt.Errorf("creating table %s: %w", name, err)
		}
	}

	for _, row := range seedRows() {
		if err := insertRow(ctx, tx, row); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertRow(ctx context.Context, tx *sql.Tx, row seedRow) error {
	columns := make([]string, 0, len(row.values))
	for c := range row.values {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	quoted := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		quoted[i] = `"` + c + `"`
		args[i] = row.values[c]
	}
	query := fmt.Sprintf(`INSERT OR REPLACE INTO "%s" (%s) VALUES (?%s)`, //#nosec G201 -- identifiers from the built-in schema
		row.table, strings.Join(quoted, ", "), strings.Repeat(", ?", len(columns)-1))

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("seeding %s: %w", row.table, err)
	}
	return nil
}

// Create writes a new catalog file at path holding the core dataset.
func Create(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=rwc", path))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return Seed(ctx, db)
}

// SeededCodes returns the coordinate system codes of the core dataset.
func SeededCodes() []int {
	var codes []int
	for _, row := range seedRows() {
		if code, ok := row.values["COORD_REF_SYS_CODE"].(int); ok {
			codes = append(codes, code)
		}
	}
	sort.Ints(codes)
	return codes
}
