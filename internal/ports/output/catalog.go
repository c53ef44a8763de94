package output

import "context"

// CodeCatalog is the tabular EPSG source the resolver reads from.
type CodeCatalog interface {
	// Lookup returns resultColumn of the first row of table whose
	// keyColumn equals keyValue. A missing row wraps domain.ErrNotFound;
	// an existing row with an empty column returns "" and no error.
	Lookup(ctx context.Context, table, keyColumn, keyValue, resultColumn string) (string, error)
}

// DefinitionDictionary maps EPSG codes to ready-made WKT text.
type DefinitionDictionary interface {
	// Definition returns the WKT registered for code or wraps
	// domain.ErrNotFound.
	Definition(ctx context.Context, code int) (string, error)
}

// CatalogStore is a CodeCatalog backed by a file that can be swapped at
// runtime.
type CatalogStore interface {
	CodeCatalog

	// Reload replaces the backing file.
	Reload(ctx context.Context, path string) error

	// Loaded reports whether a catalog file is open.
	Loaded() bool

	// Path returns the currently open file, or "".
	Path() string
}

// DictionaryStore is a DefinitionDictionary loaded from a file.
type DictionaryStore interface {
	DefinitionDictionary

	// Load replaces the dictionary with the content of path.
	Load(ctx context.Context, path string) error

	// Len returns the number of registered codes.
	Len() int
}
