package app

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jobrunner/georef/internal/adapters/watcher"
	"github.com/jobrunner/georef/internal/config"
	"github.com/jobrunner/georef/internal/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Catalog:   config.CatalogConfig{Dir: t.TempDir(), Name: "epsg.db", SeedIfMissing: true},
		Storage:   config.StorageConfig{Type: "local"},
		Engine:    config.EngineConfig{Type: "wgs84"},
		Transform: config.TransformConfig{CenterLong: math.NaN()},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCoreSeedsAndResolves(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := NewCore(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("NewCore() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	if err := a.LoadCatalog(ctx); err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Catalog.Dir, "epsg.db")); err != nil {
		t.Fatalf("core catalog was not created: %v", err)
	}
	if !a.Catalog.Loaded() {
		t.Fatal("catalog not loaded")
	}

	def, err := a.Resolver.Resolve(ctx, 4326)
	if err != nil {
		t.Fatalf("Resolve(4326) error = %v", err)
	}
	if !def.IsGeographic() || def.EPSGCode() != 4326 {
		t.Errorf("Resolve(4326) = %s", def)
	}

	out, err := a.TransformService.TransformCoordinate(ctx, domain.NewWGS84Coordinate(3, 0), "EPSG:32631")
	if err != nil {
		t.Fatalf("TransformCoordinate() error = %v", err)
	}
	if math.Abs(out.X-500000) > 1e-3 || math.Abs(out.Y) > 1e-3 {
		t.Errorf("TransformCoordinate() = %v, want (500000, 0)", out)
	}

	if !a.HealthService.IsReady(ctx) {
		t.Errorf("health = %+v, want ready", a.HealthService.GetHealthDetails(ctx))
	}
}

func TestLoadCatalogWithoutSeeding(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Catalog.SeedIfMissing = false

	a, err := NewCore(ctx, cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := a.LoadCatalog(ctx); err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if a.Catalog.Loaded() {
		t.Error("catalog loaded from an empty directory")
	}
	if a.HealthService.IsReady(ctx) {
		t.Error("service ready without a catalog")
	}
}

func TestHandleFileEvent(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := NewCore(ctx, cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Close() })
	if err := a.LoadCatalog(ctx); err != nil {
		t.Fatal(err)
	}

	dict := filepath.Join(cfg.Catalog.Dir, "extra.yaml")
	content := "900913: '" + `PROJCS["Google Maps Global Mercator",GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]],PROJECTION["Mercator_1SP"],PARAMETER["central_meridian",0],PARAMETER["scale_factor",1],PARAMETER["false_easting",0],PARAMETER["false_northing",0],UNIT["metre",1]]` + "'\n"
	if err := os.WriteFile(dict, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := a.handleFileEvent(ctx, watcher.Event{Path: dict, Operation: watcher.OpCreate}); err != nil {
		t.Fatalf("handleFileEvent(create) error = %v", err)
	}
	if !a.Registry.IsLoaded("extra.yaml") {
		t.Error("dictionary not registered after create")
	}
	if _, err := a.Resolver.Resolve(ctx, 900913); err != nil {
		t.Errorf("Resolve(900913) error = %v", err)
	}

	if err := a.handleFileEvent(ctx, watcher.Event{Path: dict, Operation: watcher.OpDelete}); err != nil {
		t.Fatalf("handleFileEvent(delete) error = %v", err)
	}
	if a.Registry.IsLoaded("extra.yaml") {
		t.Error("dictionary still registered after delete")
	}
}

func TestNewWiresServer(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Catalog.Watch = true

	a, err := New(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

	if a.HTTPServer == nil || a.SyncService == nil {
		t.Fatal("server or sync service missing")
	}
	if a.Watcher == nil {
		t.Error("watcher missing for a local catalog")
	}
	if a.TLS != nil {
		t.Error("TLS configured although disabled")
	}
}

func TestInitStorage(t *testing.T) {
	ctx := context.Background()
	for _, typ := range []string{"", "local", "http"} {
		cfg := config.StorageConfig{Type: typ, HTTP: config.HTTPConfig{BaseURL: "http://localhost"}}
		if _, err := initStorage(ctx, cfg, t.TempDir()); err != nil {
			t.Errorf("initStorage(%q) error = %v", typ, err)
		}
	}
	if _, err := initStorage(ctx, config.StorageConfig{Type: "ftp"}, ""); err == nil {
		t.Error("initStorage(ftp) should fail")
	}
}
