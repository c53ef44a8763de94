package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/ports/output"
)

// Dictionary implements output.DictionaryStore over a YAML file mapping
// EPSG codes to WKT:
//
//	900913: PROJCS["Google Maps Global Mercator", ...]
//	3785: PROJCS[...]
type Dictionary struct {
	mu   sync.RWMutex
	defs map[int]string
	path string
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{defs: make(map[int]string)}
}

// Load implements output.DictionaryStore. The current content is kept
// when the file cannot be read or parsed.
func (d *Dictionary) Load(_ context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &domain.StorageError{Operation: "read", Key: path, Err: err}
	}
	defs, err := Parse(data)
	if err != nil {
		return fmt.Errorf("dictionary %s: %w", path, err)
	}

	d.mu.Lock()
	d.defs, d.path = defs, path
	d.mu.Unlock()
	return nil
}

// Parse decodes dictionary YAML. Blank definitions and codes below 1 are
// rejected.
func Parse(data []byte) (map[int]string, error) {
	var raw map[int]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &domain.ValidationError{
			Field:      "dictionary",
			Value:      len(data),
			Constraint: "map of EPSG code to WKT",
			Message:    err.Error(),
			Kind:       domain.ErrCorrupt,
		}
	}

	defs := make(map[int]string, len(raw))
	for code, text := range raw {
		text = strings.TrimSpace(text)
		if code < 1 || text == "" {
			return nil, &domain.ValidationError{
				Field:      "dictionary",
				Value:      code,
				Constraint: "positive code with a definition",
				Message:    "invalid entry",
				Kind:       domain.ErrCorrupt,
			}
		}
		defs[code] = text
	}
	return defs, nil
}

// Definition implements output.DefinitionDictionary.
func (d *Dictionary) Definition(_ context.Context, code int) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	text, ok := d.defs[code]
	if !ok {
		return "", fmt.Errorf("dictionary code %d: %w", code, domain.ErrNotFound)
	}
	return text, nil
}

// Len implements output.DictionaryStore.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.defs)
}

// Path returns the file the dictionary was loaded from.
func (d *Dictionary) Path() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.path
}

var _ output.DictionaryStore = (*Dictionary)(nil)
