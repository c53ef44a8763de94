// Package app provides application initialization and wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jobrunner/georef/internal/adapters/catalog"
	"github.com/jobrunner/georef/internal/adapters/engine"
	httpAdapter "github.com/jobrunner/georef/internal/adapters/http"
	"github.com/jobrunner/georef/internal/adapters/metrics"
	"github.com/jobrunner/georef/internal/adapters/storage"
	tlsAdapter "github.com/jobrunner/georef/internal/adapters/tls"
	"github.com/jobrunner/georef/internal/adapters/watcher"
	"github.com/jobrunner/georef/internal/application"
	"github.com/jobrunner/georef/internal/config"
	"github.com/jobrunner/georef/internal/ports/output"
)

// App holds all application components.
type App struct {
	Config           *config.Config
	Logger           *slog.Logger
	Engine           output.ProjectionEngine
	Catalog          *catalog.Store
	Dictionary       *catalog.Dictionary
	Storage          output.ObjectStorage
	Registry         *application.CatalogRegistry
	Resolver         *application.Resolver
	TransformService *application.TransformService
	HealthService    *application.HealthService
	SyncService      *application.SyncService
	HTTPServer       *httpAdapter.Server
	TLS              *tlsAdapter.Manager
	Watcher          *watcher.Watcher
	Metrics          *metrics.Collector
}

// NewCore wires the definition and transformation services without any
// network surface. The CLI commands run on it.
func NewCore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	return newCore(ctx, cfg, logger, nil)
}

func newCore(ctx context.Context, cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: collector,
	}

	var metricsCollector output.MetricsCollector = &output.NoOpMetrics{}
	if collector != nil {
		metricsCollector = collector
	}

	switch r := engine.Load(engine.Config{Type: cfg.Engine.Type}).(type) {
	case engine.Loaded:
		logger.Info("projection engine loaded", "engine", r.Engine.Name())
	case engine.Unavailable:
		logger.Warn("projection engine unavailable", "reason", r.Reason, "available", engine.Available())
	}
	app.Engine = engine.Default()

	app.Catalog = catalog.NewStore()
	app.Dictionary = catalog.NewDictionary()

	store, err := initStorage(ctx, cfg.Storage, cfg.Catalog.Dir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	app.Storage = store

	app.Resolver = application.NewResolver(
		app.Catalog,
		app.Dictionary,
		app.Engine,
		metricsCollector,
		logger,
		application.CacheConfig{
			TTL:      cfg.Cache.TTL,
			Capacity: cfg.Cache.Capacity,
		},
	)

	app.Registry = application.NewCatalogRegistry(
		app.Catalog,
		app.Dictionary,
		app.Storage,
		app.Resolver,
		metricsCollector,
		logger,
		application.RegistryConfig{
			LocalPath:   cfg.Catalog.Dir,
			CatalogName: cfg.Catalog.Name,
		},
	)

	app.TransformService = application.NewTransformService(
		app.Resolver,
		app.Engine,
		application.TransformOptions{
			CheckWithInvert: cfg.Transform.CheckWithInvert,
			Threshold:       cfg.Transform.Threshold,
			CenterLong:      cfg.Transform.CenterLongitude(),
		},
		metricsCollector,
		logger,
	)

	app.HealthService = application.NewHealthService(app.Catalog, app.Dictionary, app.Engine, app.Registry)

	return app, nil
}

// New creates and initializes the full service.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace)
	}

	app, err := newCore(ctx, cfg, logger, collector)
	if err != nil {
		return nil, err
	}

	app.SyncService = application.NewSyncService(app.Registry, cfg.Catalog.SyncInterval, logger)

	services := httpAdapter.Services{
		Resolver:  app.Resolver,
		Transform: app.TransformService,
		Health:    app.HealthService,
		Sync:      app.SyncService,
	}
	if collector != nil {
		services.Metrics = collector
	}
	app.HTTPServer = httpAdapter.NewServer(cfg.Server, services, cfg.Metrics.Path, logger)

	if cfg.TLS.Enabled {
		tlsCfg := tlsAdapter.Config{
			Domains:  cfg.TLS.Domains,
			Email:    cfg.TLS.Email,
			CacheDir: cfg.TLS.CacheDir,
			Staging:  cfg.TLS.Staging,
		}
		if d := cfg.TLS.DNS01; d.Enabled {
			tlsCfg.DNS = &tlsAdapter.DNSConfig{
				SubscriptionID:    d.SubscriptionID,
				ResourceGroupName: d.ResourceGroupName,
				ClientID:          d.ClientID,
			}
		}
		manager, err := tlsAdapter.NewManager(tlsCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("initializing TLS: %w", err)
		}
		app.TLS = manager
	}

	// Remote sync writes into the catalog directory itself, so the
	// watcher only runs for local catalogs.
	if cfg.Catalog.Watch && !cfg.Storage.RemoteSync() {
		w, err := watcher.New(
			watcher.Config{
				Paths:    []string{cfg.Catalog.Dir},
				Debounce: cfg.Catalog.WatchDebounce,
				Filter:   storage.IsCatalogFile,
			},
			app.handleFileEvent,
			logger,
		)
		if err != nil {
			logger.Warn("failed to initialize file watcher", "error", err)
		} else {
			app.Watcher = w
		}
	}

	return app, nil
}

// LoadCatalog prepares the catalog directory, seeds a core catalog when
// none exists and loads every catalog file found there.
func (a *App) LoadCatalog(ctx context.Context) error {
	dir := a.Config.Catalog.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}

	if a.Config.Catalog.SeedIfMissing && a.Config.Catalog.Name != "" {
		path := filepath.Join(dir, a.Config.Catalog.Name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			a.Logger.Info("no catalog found, creating core catalog", "path", path)
			if err := catalog.Create(ctx, path); err != nil {
				return fmt.Errorf("seeding catalog: %w", err)
			}
		}
	}

	if err := a.Registry.LoadLocal(ctx); err != nil {
		return fmt.Errorf("loading catalog files: %w", err)
	}

	if f := a.Config.Catalog.DictionaryFile; f != "" {
		if err := a.Registry.LoadFile(ctx, f); err != nil {
			return fmt.Errorf("loading dictionary: %w", err)
		}
	}

	if !a.Catalog.Loaded() {
		a.Logger.Warn("no catalog loaded, resolving from the dictionary and engine only", "dir", dir)
	}
	return nil
}

// Start starts all application components and blocks serving HTTP.
func (a *App) Start(ctx context.Context) error {
	if err := a.LoadCatalog(ctx); err != nil {
		a.Logger.Warn("failed to load catalog", "error", err)
	}

	if a.Config.Storage.RemoteSync() {
		if _, err := a.Registry.Sync(ctx); err != nil {
			a.Logger.Warn("initial catalog sync failed", "error", err)
		}
	}

	if a.SyncService != nil && a.SyncService.Interval() > 0 {
		a.SyncService.Start(ctx)
	}

	// Start file watcher
	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn("failed to start file watcher", "error", err)
		}
	}

	if a.TLS != nil {
		if err := a.TLS.ManageCertificates(ctx); err != nil {
			return err
		}
		return ignoreClosed(a.HTTPServer.StartTLS(a.TLS.TLSConfig()))
	}
	return ignoreClosed(a.HTTPServer.Start())
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if a.SyncService != nil {
		a.SyncService.Stop()
	}

	if a.Watcher != nil {
		_ = a.Watcher.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", "error", err)
		}
	}

	return a.Close()
}

// Close releases the catalog.
func (a *App) Close() error {
	if a.Catalog != nil {
		return a.Catalog.Close()
	}
	return nil
}

// handleFileEvent handles file system events for hot-reload.
func (a *App) handleFileEvent(ctx context.Context, event watcher.Event) error {
	switch event.Operation {
	case watcher.OpCreate, watcher.OpModify:
		return a.Registry.LoadFile(ctx, event.Path)

	case watcher.OpDelete:
		a.Registry.Forget(event.Path)
		return nil
	}

	return nil
}

// initStorage initializes the storage adapter catalog files are synced
// from.
func initStorage(ctx context.Context, cfg config.StorageConfig, catalogDir string) (output.ObjectStorage, error) {
	switch output.StorageType(cfg.Type) {
	case "", output.StorageTypeLocal:
		return storage.NewLocalStorage(catalogDir), nil

	case output.StorageTypeS3:
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})

	case output.StorageTypeAzure:
		return storage.NewAzureStorage(storage.AzureConfig{
			Container:        cfg.Azure.Container,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			Prefix:           cfg.Azure.Prefix,
		})

	case output.StorageTypeHTTP:
		return storage.NewHTTPStorage(storage.HTTPConfig{
			BaseURL:   cfg.HTTP.BaseURL,
			IndexFile: cfg.HTTP.IndexFile,
			Timeout:   cfg.HTTP.Timeout,
			Username:  cfg.HTTP.Username,
			Password:  cfg.HTTP.Password,
		}), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
