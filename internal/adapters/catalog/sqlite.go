// Package catalog provides the EPSG code catalog and definition dictionary
// adapters.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/ports/output"
)

// readOnlyDriver opens catalog files that are never written to.
const readOnlyDriver = "sqlite3_catalog"

func init() {
	sql.Register(readOnlyDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			_, err := conn.Exec("PRAGMA query_only = ON", nil)
			return err
		},
	})
}

// Store implements output.CatalogStore over an SQLite database holding
// the EPSG tables.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	path    string
	columns map[string]map[string]bool // lower case table -> upper case columns
}

// NewStore creates a store without an open catalog.
func NewStore() *Store {
	return &Store{}
}

// Open creates a store and opens the catalog at path.
func Open(ctx context.Context, path string) (*Store, error) {
	s := NewStore()
	if err := s.Reload(ctx, path); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload opens the catalog at path and swaps it in. The previous
// catalog stays active when the new one cannot be opened.
func (s *Store) Reload(ctx context.Context, path string) error {
	db, err := openDB(ctx, path)
	if err != nil {
		return &domain.StorageError{Operation: "open", Key: path, Err: err}
	}

	columns, err := readSchema(ctx, db)
	if err != nil {
		_ = db.Close()
		return &domain.StorageError{Operation: "schema", Key: path, Err: err}
	}
	if len(columns) == 0 {
		_ = db.Close()
		return &domain.StorageError{
			Operation: "schema",
			Key:       path,
			Err:       fmt.Errorf("no catalog tables: %w", domain.ErrCorrupt),
		}
	}

	s.mu.Lock()
	old := s.db
	s.db, s.path, s.columns = db, path, columns
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Close closes the open catalog.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db, s.path, s.columns = nil, "", nil
	return err
}

// Loaded implements output.CatalogStore.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// Path implements output.CatalogStore.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Tables returns the catalog tables found in the open file.
func (s *Store) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tables := make([]string, 0, len(s.columns))
	for name := range s.columns {
		tables = append(tables, name)
	}
	return tables
}

// Lookup implements output.CodeCatalog. Table and column names are
// checked against the schema before they reach the query. A column the
// table does not have reads as empty.
func (s *Store) Lookup(ctx context.Context, table, keyColumn, keyValue, resultColumn string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return "", domain.ErrCatalogNotLoaded
	}

	columns, ok := s.columns[strings.ToLower(table)]
	if !ok {
		return "", fmt.Errorf("catalog table %s: %w", table, domain.ErrNotFound)
	}
	if !columns[strings.ToUpper(keyColumn)] {
		return "", &domain.ValidationError{
			Field:      "keyColumn",
			Value:      keyColumn,
			Constraint: "column of " + table,
			Message:    "unknown key column",
			Kind:       domain.ErrInvalidInput,
		}
	}
	hasResult := columns[strings.ToUpper(resultColumn)]
	selected := resultColumn
	if !hasResult {
		selected = keyColumn
	}

	query := fmt.Sprintf(`SELECT "%s" FROM "%s" WHERE "%s" = ? LIMIT 1`, selected, table, keyColumn) //#nosec G201 -- identifiers checked against the schema

	var v sql.NullString
	err := s.db.QueryRowContext(ctx, query, keyValue).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s %s=%s: %w", table, keyColumn, keyValue, domain.ErrNotFound)
	}
	if err != nil {
		return "", &domain.StorageError{Operation: "lookup", Key: table, Err: err}
	}
	if !hasResult {
		return "", nil
	}
	return v.String, nil
}

// openDB opens the SQLite database read-only.
func openDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open(readOnlyDriver, dsn)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// readSchema collects the columns of the catalog tables present in db.
func readSchema(ctx context.Context, db *sql.DB) (map[string]map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if _, ok := tableSchemas[strings.ToLower(name)]; ok {
			tables = append(tables, name)
		}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	columns := make(map[string]map[string]bool, len(tables))
	for _, table := range tables {
		cols, err := tableColumns(ctx, db, table)
		if err != nil {
			return nil, err
		}
		columns[strings.ToLower(table)] = cols
	}
	return columns, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, table)) //#nosec G201 -- table name read from sqlite_master
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			typ       string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[strings.ToUpper(name)] = true
	}
	return cols, rows.Err()
}

var _ output.CatalogStore = (*Store)(nil)
