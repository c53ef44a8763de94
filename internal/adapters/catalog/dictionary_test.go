package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jobrunner/georef/internal/domain"
)

const googleMercator = `PROJCS["Google Maps Global Mercator",GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]],PROJECTION["Mercator_1SP"],PARAMETER["central_meridian",0],PARAMETER["scale_factor",1],PARAMETER["false_easting",0],PARAMETER["false_northing",0],UNIT["metre",1],AUTHORITY["EPSG","900913"]]`

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"single entry", "900913: '" + googleMercator + "'\n", 1, false},
		{"literal block", "900913: |\n  " + googleMercator + "\n3785: 'PROJCS[\"x\"]'\n", 2, false},
		{"empty document", "", 0, false},
		{"blank definition", "900913: ''\n", 0, true},
		{"negative code", "-1: 'GEOGCS[\"x\"]'\n", 0, true},
		{"not a map", "- a\n- b\n", 0, true},
		{"non numeric key", "web: 'GEOGCS[\"x\"]'\n", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, domain.ErrCorrupt) {
					t.Errorf("Parse() error = %v, want ErrCorrupt", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Parse() returned %d entries, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDictionaryLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.yaml")
	if err := os.WriteFile(path, []byte("900913: '"+googleMercator+"'\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	d := NewDictionary()
	if _, err := d.Definition(ctx, 900913); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Definition() on empty dictionary error = %v, want ErrNotFound", err)
	}

	if err := d.Load(ctx, path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got, err := d.Definition(ctx, 900913)
	if err != nil {
		t.Fatalf("Definition() error = %v", err)
	}
	if got != googleMercator {
		t.Errorf("Definition() = %q, want %q", got, googleMercator)
	}
	if d.Len() != 1 || d.Path() != path {
		t.Errorf("Len() = %d, Path() = %q", d.Len(), d.Path())
	}

	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("900913: [unterminated\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := d.Load(ctx, broken); !errors.Is(err, domain.ErrCorrupt) {
		t.Errorf("Load(broken) error = %v, want ErrCorrupt", err)
	}
	var storageErr *domain.StorageError
	if err := d.Load(ctx, filepath.Join(dir, "missing.yaml")); !errors.As(err, &storageErr) {
		t.Errorf("Load(missing) error = %v, want StorageError", err)
	}
	if d.Len() != 1 || d.Path() != path {
		t.Errorf("failed loads replaced the dictionary: Len() = %d, Path() = %q", d.Len(), d.Path())
	}
}
