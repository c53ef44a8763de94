package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/ports/output"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// bufferLogger returns a logger writing every level into buf.
func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// catalogTable maps key values to rows of column values.
type catalogTable map[string]map[string]string

// mockCatalog implements output.CatalogStore over in-memory tables.
type mockCatalog struct {
	mu      sync.Mutex
	tables  map[string]catalogTable
	err     error
	lookups int
	path    string
	loaded  bool

	reloadErr error
	reloads   []string
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{tables: seedTables(), loaded: true, path: "memory"}
}

func (m *mockCatalog) Lookup(_ context.Context, table, keyColumn, keyValue, resultColumn string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++

	if m.err != nil {
		return "", m.err
	}
	row, ok := m.tables[table][keyValue]
	if !ok {
		return "", fmt.Errorf("%s %s=%s: %w", table, keyColumn, keyValue, domain.ErrNotFound)
	}
	return row[resultColumn], nil
}

func (m *mockCatalog) Reload(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads = append(m.reloads, path)
	if m.reloadErr != nil {
		return m.reloadErr
	}
	m.path, m.loaded = path, true
	return nil
}

func (m *mockCatalog) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func (m *mockCatalog) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

func (m *mockCatalog) lookupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

// seedTables holds the rows the resolver tests rely on.
func seedTables() map[string]catalogTable {
	return map[string]catalogTable{
		"gcs": {
			"4326": {
				"COORD_REF_SYS_NAME": "WGS 84", "DATUM_CODE": "6326", "DATUM_NAME": "World Geodetic System 1984",
				"UOM_CODE": "9122", "ELLIPSOID_CODE": "7030", "PRIME_MERIDIAN_CODE": "8901",
			},
			"4314": {
				"COORD_REF_SYS_NAME": "DHDN", "DATUM_CODE": "6314", "DATUM_NAME": "Deutsches Hauptdreiecksnetz",
				"UOM_CODE": "9122", "ELLIPSOID_CODE": "7004", "PRIME_MERIDIAN_CODE": "8901",
				"COORD_OP_METHOD_CODE": "9607",
				"DX": "598.1", "DY": "73.7", "DZ": "418.2", "RX": "0.202", "RY": "0.045", "RZ": "-2.455", "DS": "6.7",
			},
			"4807": {
				"COORD_REF_SYS_NAME": "NTF (Paris)", "DATUM_CODE": "6807", "DATUM_NAME": "Nouvelle Triangulation Francaise (Paris)",
				"UOM_CODE": "9105", "ELLIPSOID_CODE": "7011", "PRIME_MERIDIAN_CODE": "8903",
				"COORD_OP_METHOD_CODE": "9603", "DX": "-168", "DY": "-60", "DZ": "320",
			},
		},
		"pcs": {
			"32631": {
				"COORD_REF_SYS_NAME": "WGS 84 / UTM zone 31N", "UOM_CODE": "9001", "SOURCE_GEOGCRS_CODE": "4326",
				"COORD_OP_CODE": "16031", "COORD_OP_METHOD_CODE": "9807",
				"PARAMETER_CODE_1": "8801", "PARAMETER_VALUE_1": "0", "PARAMETER_UOM_1": "9102",
				"PARAMETER_CODE_2": "8802", "PARAMETER_VALUE_2": "3", "PARAMETER_UOM_2": "9102",
				"PARAMETER_CODE_3": "8805", "PARAMETER_VALUE_3": "0.9996", "PARAMETER_UOM_3": "9201",
				"PARAMETER_CODE_4": "8806", "PARAMETER_VALUE_4": "500000", "PARAMETER_UOM_4": "9001",
				"PARAMETER_CODE_5": "8807", "PARAMETER_VALUE_5": "0", "PARAMETER_UOM_5": "9001",
			},
			"31467": {
				"COORD_REF_SYS_NAME": "DHDN / 3-degree Gauss-Kruger zone 3", "UOM_CODE": "9001", "SOURCE_GEOGCRS_CODE": "4314",
				"COORD_OP_METHOD_CODE": "9807",
				"PARAMETER_CODE_1": "8801", "PARAMETER_VALUE_1": "0", "PARAMETER_UOM_1": "9110",
				"PARAMETER_CODE_2": "8802", "PARAMETER_VALUE_2": "9", "PARAMETER_UOM_2": "9110",
				"PARAMETER_CODE_3": "8805", "PARAMETER_VALUE_3": "1", "PARAMETER_UOM_3": "9001",
				"PARAMETER_CODE_4": "8806", "PARAMETER_VALUE_4": "3500000", "PARAMETER_UOM_4": "9001",
				"PARAMETER_CODE_5": "8807", "PARAMETER_VALUE_5": "0", "PARAMETER_UOM_5": "9001",
			},
			"29999": {
				"COORD_REF_SYS_NAME": "made up", "UOM_CODE": "9001", "SOURCE_GEOGCRS_CODE": "4326",
				"COORD_OP_METHOD_CODE": "1234",
			},
		},
		"vertcs": {
			"5703": {
				"COORD_REF_SYS_NAME": "NAVD88 height", "DATUM_CODE": "5103",
				"DATUM_NAME": "North American Vertical Datum 1988", "UOM_CODE": "9001",
			},
		},
		"geoccs": {
			"4978": {
				"COORD_REF_SYS_NAME": "WGS 84", "DATUM_CODE": "6326", "DATUM_NAME": "World Geodetic System 1984",
				"ELLIPSOID_CODE": "7030", "PRIME_MERIDIAN_CODE": "8901", "UOM_CODE": "9001",
			},
		},
		"compdcs": {
			"7405": {
				"COORD_REF_SYS_NAME": "UTM 31N + NAVD88 height",
				"CMPD_HORIZCRS_CODE": "32631", "CMPD_VERTCRS_CODE": "5703",
			},
		},
		"unit_of_measure": {
			"9105": {"UNIT_OF_MEAS_NAME": "grad", "UNIT_OF_MEAS_TYPE": "angle", "FACTOR_B": "3.14159265358979", "FACTOR_C": "200"},
			"9003": {"UNIT_OF_MEAS_NAME": "US survey foot", "UNIT_OF_MEAS_TYPE": "length", "FACTOR_B": "12", "FACTOR_C": "39.37"},
		},
		"ellipsoid": {
			"7030": {"ELLIPSOID_NAME": "WGS 84", "SEMI_MAJOR_AXIS": "6378137", "UOM_CODE": "9001", "INV_FLATTENING": "298.257223563"},
			"7004": {"ELLIPSOID_NAME": "Bessel 1841", "SEMI_MAJOR_AXIS": "6377397.155", "UOM_CODE": "9001", "INV_FLATTENING": "299.1528128"},
			"7011": {"ELLIPSOID_NAME": "Clarke 1880 (IGN)", "SEMI_MAJOR_AXIS": "6378249.2", "UOM_CODE": "9001", "SEMI_MINOR_AXIS": "6356515"},
		},
		"prime_meridian": {
			"8903": {"PRIME_MERIDIAN_NAME": "Paris", "GREENWICH_LONGITUDE": "2.5969213", "UOM_CODE": "9105"},
		},
	}
}

// mockDictionary implements output.DictionaryStore.
type mockDictionary struct {
	defs    map[int]string
	loadErr error
	loads   []string
}

func (m *mockDictionary) Definition(_ context.Context, code int) (string, error) {
	text, ok := m.defs[code]
	if !ok {
		return "", fmt.Errorf("dictionary code %d: %w", code, domain.ErrNotFound)
	}
	return text, nil
}

func (m *mockDictionary) Load(_ context.Context, path string) error {
	m.loads = append(m.loads, path)
	return m.loadErr
}

func (m *mockDictionary) Len() int {
	return len(m.defs)
}

// mockHandle implements output.EngineHandle.
type mockHandle struct {
	params string
}

func (h *mockHandle) Params() string { return h.params }

func (h *mockHandle) IsLatLong() bool {
	return strings.Contains(h.params, "+proj=longlat")
}

// mockEngine implements output.ProjectionEngine. Without a transform
// function every batch passes through unchanged.
type mockEngine struct {
	mu        sync.Mutex
	initErr   error
	expand    map[string]string
	transform func(src, dst *mockHandle, x, y, z []float64) error
	inits     []string
	released  int
	batches   int
}

func (m *mockEngine) Name() string { return "mock" }

func (m *mockEngine) Init(params string) (output.EngineHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initErr != nil {
		return nil, m.initErr
	}
	m.inits = append(m.inits, params)
	return &mockHandle{params: params}, nil
}

func (m *mockEngine) Release(h output.EngineHandle) {
	if h == nil {
		return
	}
	m.mu.Lock()
	m.released++
	m.mu.Unlock()
}

func (m *mockEngine) TransformBatch(src, dst output.EngineHandle, x, y, z []float64) error {
	m.mu.Lock()
	m.batches++
	fn := m.transform
	m.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(src.(*mockHandle), dst.(*mockHandle), x, y, z)
}

func (m *mockEngine) ErrorMessage(code int) string {
	return fmt.Sprintf("mock error %d", code)
}

func (m *mockEngine) Expand(definition string) (string, error) {
	if out, ok := m.expand[definition]; ok {
		return out, nil
	}
	return "", fmt.Errorf("unknown definition %q", definition)
}

// mockStorage implements output.ObjectStorage for testing.
type mockStorage struct {
	mu          sync.Mutex
	objects     []output.StorageObject
	downloadErr error
	listErr     error
	downloads   []string
}

func (m *mockStorage) List(_ context.Context) ([]output.StorageObject, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.objects, nil
}

func (m *mockStorage) Download(_ context.Context, key, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.downloadErr != nil {
		return m.downloadErr
	}
	m.downloads = append(m.downloads, key)
	return os.WriteFile(dest, []byte(key), 0o600)
}

func (m *mockStorage) GetReader(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(key)), nil
}

func (m *mockStorage) Exists(_ context.Context, key string) (bool, error) {
	for _, obj := range m.objects {
		if obj.Key == key {
			return true, nil
		}
	}
	return false, nil
}

// mockMetrics records the calls the services make.
type mockMetrics struct {
	output.NoOpMetrics
	mu       sync.Mutex
	stages   []string
	ok       int
	failed   int
	reloads  int
	loaded   bool
	storage  map[string]int
	duration time.Duration
}

func (m *mockMetrics) IncResolveCount(stage string, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
}

func (m *mockMetrics) AddTransformedPoints(ok, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ok += ok
	m.failed += failed
}

func (m *mockMetrics) ObserveTransformDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration += d
}

func (m *mockMetrics) SetCatalogLoaded(loaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = loaded
}

func (m *mockMetrics) IncCatalogReloads(_ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads++
}

func (m *mockMetrics) IncStorageOperations(operation string, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		m.storage = make(map[string]int)
	}
	m.storage[operation]++
}

// countingPurger counts cache purges.
type countingPurger struct {
	purges int
}

func (p *countingPurger) Purge() { p.purges++ }
