package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/ports/output"
)

// CatalogFileKind tells what a catalog file feeds.
type CatalogFileKind string

// Catalog file kinds.
const (
	KindCatalog    CatalogFileKind = "catalog"
	KindDictionary CatalogFileKind = "dictionary"
)

// CatalogFileKindOf derives the kind of a file from its extension.
func CatalogFileKindOf(path string) (CatalogFileKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return KindCatalog, true
	case ".yaml", ".yml":
		return KindDictionary, true
	}
	return "", false
}

// CatalogFile is a catalog or dictionary file known to the registry.
type CatalogFile struct {
	Key      string          // Object key, or the base name for local files
	Path     string          // Local path
	Kind     CatalogFileKind // What the file feeds
	ETag     string          // Remote content hash, empty for local files
	Modified int64           // Remote modification time
	LoadedAt time.Time
}

// purger drops cached definitions.
type purger interface {
	Purge()
}

// CatalogRegistry keeps track of the catalog and dictionary files in use
// and swaps them into the stores when they change.
type CatalogRegistry struct {
	mu          sync.RWMutex
	files       map[string]*CatalogFile
	catalog     output.CatalogStore
	dict        output.DictionaryStore
	storage     output.ObjectStorage
	cache       purger
	metrics     output.MetricsCollector
	logger      *slog.Logger
	localPath   string
	catalogName string
}

// RegistryConfig configures a CatalogRegistry.
type RegistryConfig struct {
	LocalPath   string // Directory catalog files are kept in
	CatalogName string // Base name of the catalog database; empty accepts any
}

// NewCatalogRegistry creates a new catalog registry. dict, storage and
// cache may be nil.
func NewCatalogRegistry(
	catalog output.CatalogStore,
	dict output.DictionaryStore,
	storage output.ObjectStorage,
	cache purger,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	cfg RegistryConfig,
) *CatalogRegistry {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	return &CatalogRegistry{
		files:       make(map[string]*CatalogFile),
		catalog:     catalog,
		dict:        dict,
		storage:     storage,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		localPath:   cfg.LocalPath,
		catalogName: cfg.CatalogName,
	}
}

// accepts reports whether the registry manages the file at path.
func (r *CatalogRegistry) accepts(path string) (CatalogFileKind, bool) {
	kind, ok := CatalogFileKindOf(path)
	if !ok {
		return "", false
	}
	if kind == KindDictionary && r.dict == nil {
		return "", false
	}
	if kind == KindCatalog && r.catalogName != "" && filepath.Base(path) != r.catalogName {
		return "", false
	}
	return kind, true
}

// LoadFile loads a catalog or dictionary file into its store and purges
// the resolver cache.
func (r *CatalogRegistry) LoadFile(ctx context.Context, path string) error {
	kind, ok := r.accepts(path)
	if !ok {
		return fmt.Errorf("catalog file %s: %w", path, domain.ErrUnsupported)
	}

	r.logger.Info("loading catalog file", "path", path, "kind", kind)

	var err error
	switch kind {
	case KindCatalog:
		err = r.catalog.Reload(ctx, path)
		r.metrics.SetCatalogLoaded(r.catalog.Loaded())
	case KindDictionary:
		err = r.dict.Load(ctx, path)
	}
	r.metrics.IncCatalogReloads(err == nil)
	if err != nil {
		r.logger.Error("failed to load catalog file", "path", path, "error", err)
		return err
	}

	r.mu.Lock()
	key := filepath.Base(path)
	entry, ok := r.files[key]
	if !ok {
		entry = &CatalogFile{Key: key}
		r.files[key] = entry
	}
	entry.Path = path
	entry.Kind = kind
	entry.LoadedAt = time.Now()
	r.mu.Unlock()

	if r.cache != nil {
		r.cache.Purge()
	}
	return nil
}

// LoadLocal loads every catalog file found in the local directory.
// Dictionaries are loaded after the catalog.
func (r *CatalogRegistry) LoadLocal(ctx context.Context) error {
	if r.localPath == "" {
		return nil
	}

	entries, err := os.ReadDir(r.localPath)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Warn("catalog directory does not exist", "path", r.localPath)
			return nil
		}
		return err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := r.accepts(e.Name()); ok {
			paths = append(paths, filepath.Join(r.localPath, e.Name()))
		}
	}
	sortCatalogFirst(paths)

	for _, path := range paths {
		if err := r.LoadFile(ctx, path); err != nil {
			r.logger.Error("failed to load local catalog file", "path", path, "error", err)
		}
	}
	return nil
}

// Forget drops a file from the registry. The stores keep their content
// until a replacement is loaded.
func (r *CatalogRegistry) Forget(path string) {
	r.mu.Lock()
	delete(r.files, filepath.Base(path))
	r.mu.Unlock()
	r.logger.Info("catalog file removed", "path", path)
}

// Files returns the known files sorted by key.
func (r *CatalogRegistry) Files() []CatalogFile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files := make([]CatalogFile, 0, len(r.files))
	for _, f := range r.files {
		files = append(files, *f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files
}

// FileCount returns the number of known files.
func (r *CatalogRegistry) FileCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}

// IsLoaded reports whether a file with the given key is known.
func (r *CatalogRegistry) IsLoaded(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.files[filepath.Base(key)]
	return ok
}

// SyncStats contains statistics from a sync operation.
type SyncStats struct {
	Added   int
	Updated int
	Removed int
}

// Sync downloads new and changed catalog files from object storage and
// forgets files that disappeared from it.
func (r *CatalogRegistry) Sync(ctx context.Context) (SyncStats, error) {
	if r.storage == nil {
		return SyncStats{}, fmt.Errorf("no object storage configured: %w", domain.ErrUnsupported)
	}
	r.logger.Info("syncing catalog files from storage")

	start := time.Now()
	objects, err := r.storage.List(ctx)
	r.metrics.ObserveStorageDuration("list", time.Since(start))
	r.metrics.IncStorageOperations("list", err == nil)
	if err != nil {
		return SyncStats{}, &domain.StorageError{Operation: "list", Err: err}
	}

	remote := make(map[string]output.StorageObject)
	for _, obj := range objects {
		if _, ok := r.accepts(obj.Key); ok {
			remote[filepath.Base(obj.Key)] = obj
		}
	}

	keys := make([]string, 0, len(remote))
	for key := range remote {
		keys = append(keys, key)
	}
	sortCatalogFirst(keys)

	stats := SyncStats{}
	for _, key := range keys {
		obj := remote[key]
		known, changed := r.changed(key, obj)
		if !changed {
			r.logger.Debug("catalog file unchanged, skipping", "key", obj.Key)
			continue
		}

		localPath := filepath.Join(r.localPath, key)
		start := time.Now()
		err := r.storage.Download(ctx, obj.Key, localPath)
		r.metrics.ObserveStorageDuration("download", time.Since(start))
		r.metrics.IncStorageOperations("download", err == nil)
		if err != nil {
			r.logger.Error("failed to download catalog file", "key", obj.Key, "error", err)
			continue
		}

		if err := r.LoadFile(ctx, localPath); err != nil {
			continue
		}

		r.mu.Lock()
		if entry, ok := r.files[key]; ok {
			entry.Key = key
			entry.ETag = obj.ETag
			entry.Modified = obj.LastModified
		}
		r.mu.Unlock()

		if known {
			stats.Updated++
		} else {
			stats.Added++
		}
		r.logger.Info("catalog file synced", "key", obj.Key)
	}

	for _, f := range r.Files() {
		if _, ok := remote[f.Key]; ok || f.ETag == "" && f.Modified == 0 {
			continue
		}
		r.Forget(f.Path)
		if r.isActive(f.Path) {
			r.logger.Warn("active catalog file removed from storage, keeping it open", "path", f.Path)
		} else if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("failed to delete local catalog file", "path", f.Path, "error", err)
		}
		stats.Removed++
	}

	r.logger.Info("sync completed",
		"added", stats.Added,
		"updated", stats.Updated,
		"removed", stats.Removed,
		"total", r.FileCount(),
	)
	return stats, nil
}

// changed reports whether a remote object differs from the loaded file.
func (r *CatalogRegistry) changed(key string, obj output.StorageObject) (known, changed bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.files[key]
	if !ok {
		return false, true
	}
	if obj.ETag != "" {
		return true, entry.ETag != obj.ETag
	}
	return true, entry.Modified != obj.LastModified
}

func (r *CatalogRegistry) isActive(path string) bool {
	return r.catalog != nil && r.catalog.Path() == path
}

// sortCatalogFirst orders databases before dictionaries, then by name.
func sortCatalogFirst(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		ki, _ := CatalogFileKindOf(paths[i])
		kj, _ := CatalogFileKindOf(paths[j])
		if ki != kj {
			return ki == KindCatalog
		}
		return paths[i] < paths[j]
	})
}
