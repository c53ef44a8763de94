// Package storage provides object storage adapters for catalog files.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// catalogExtensions are the file types a catalog sync picks up.
var catalogExtensions = map[string]bool{
	".db":      true,
	".sqlite":  true,
	".sqlite3": true,
	".yaml":    true,
	".yml":     true,
}

// IsCatalogFile reports whether name is an EPSG catalog or a dictionary.
func IsCatalogFile(name string) bool {
	return catalogExtensions[strings.ToLower(filepath.Ext(name))]
}

// writeFile stores r at dest through a temporary file in the same
// directory, so an open catalog never sees a partial download.
func writeFile(dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dest)
}

// relativeKey strips the storage prefix from an object key.
func relativeKey(key, prefix string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
}

// joinKey prepends the storage prefix to a key.
func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}
