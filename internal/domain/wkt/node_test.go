package wkt

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jobrunner/georef/internal/domain"
)

const wgs84WKT = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]]`

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "geographic",
			input: wgs84WKT,
			want:  `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG",7030]],AUTHORITY["EPSG",6326]],PRIMEM["Greenwich",0,AUTHORITY["EPSG",8901]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG",9122]],AUTHORITY["EPSG",4326]]`,
		},
		{
			name:  "bare word leaf is quoted",
			input: `AXIS["Easting",EAST]`,
			want:  `AXIS["Easting","EAST"]`,
		},
		{
			name:  "parentheses are normalised to brackets",
			input: `UNIT("metre",1)`,
			want:  `UNIT["metre",1]`,
		},
		{
			name:  "whitespace outside quotes is dropped",
			input: "UNIT[ \"US survey foot\" ,\n 0.304800609601219 ]",
			want:  `UNIT["US survey foot",0.304800609601219]`,
		},
		{
			name:  "embedded quotes are doubled",
			input: `LOCAL_CS["say ""hi"""]`,
			want:  `LOCAL_CS["say ""hi"""]`,
		},
		{
			name:  "numeric leaf stays raw",
			input: `TOWGS84[-87,-98,-121,0,0,0,1e-6]`,
			want:  `TOWGS84[-87,-98,-121,0,0,0,1e-6]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := ParseAll(tt.input)
			if err != nil {
				t.Fatalf("ParseAll() error = %v", err)
			}
			if got := n.WKT(); got != tt.want {
				t.Errorf("WKT() = %q, want %q", got, tt.want)
			}

			again, err := ParseAll(n.WKT())
			if err != nil {
				t.Fatalf("reparse error = %v", err)
			}
			if !again.Equal(n) {
				t.Errorf("reparsed tree differs: %s", cmp.Diff(n.WKT(), again.WKT()))
			}
		})
	}
}

func TestParseRemainder(t *testing.T) {
	n, rest, err := Parse(`UNIT["metre",1],AXIS["X",EAST]`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if n.Value() != "UNIT" {
		t.Errorf("Value() = %q, want UNIT", n.Value())
	}
	if rest != `,AXIS["X",EAST]` {
		t.Errorf("remainder = %q", rest)
	}

	if _, err := ParseAll(`UNIT["metre",1] junk`); !errors.Is(err, domain.ErrCorrupt) {
		t.Errorf("ParseAll() trailing text error = %v, want ErrCorrupt", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unbalanced", `GEOGCS["x",DATUM["y"]`},
		{"mismatched closer", `GEOGCS["x")`},
		{"unterminated quote", `GEOGCS["x]`},
		{"token too long", "GEOGCS[" + strings.Repeat("a", MaxTokenLength+1) + "]"},
		{"too deep", strings.Repeat("A[", MaxDepth+1) + "x" + strings.Repeat("]", MaxDepth+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.input)
			if !errors.Is(err, domain.ErrCorrupt) {
				t.Fatalf("Parse() error = %v, want ErrCorrupt", err)
			}
			var pe *domain.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("Parse() error type = %T, want *domain.ParseError", err)
			}
		})
	}
}

func TestFindChildAndDescendant(t *testing.T) {
	n, err := ParseAll(wgs84WKT)
	if err != nil {
		t.Fatalf("ParseAll() error = %v", err)
	}

	if got := n.FindChild("primem"); got != 2 {
		t.Errorf("FindChild(primem) = %d, want 2", got)
	}
	if got := n.FindChild("PROJECTION"); got != -1 {
		t.Errorf("FindChild(PROJECTION) = %d, want -1", got)
	}

	sph := n.FindDescendant("SPHEROID")
	if sph == nil || sph.Child(1).Value() != "6378137" {
		t.Fatalf("FindDescendant(SPHEROID) = %v", sph)
	}
	auth := n.FindDescendant("AUTHORITY")
	if auth == nil || auth.Child(1).Value() != "7030" {
		t.Errorf("FindDescendant(AUTHORITY) should return first in pre-order, got %v", auth)
	}
	if n.FindDescendant("EPSG") != nil {
		t.Error("FindDescendant should skip leaves")
	}
	if got := n.FindDescendant("geogcs"); got != n {
		t.Error("FindDescendant should match the receiver")
	}
}

func TestMutation(t *testing.T) {
	n := NewNodeWith("PARAMETER", NewNode("scale_factor"), NewNode("1"))

	n.InsertChild(NewNode("x"), 1)
	if got := n.WKT(); got != `PARAMETER["scale_factor","x",1]` {
		t.Errorf("InsertChild() = %q", got)
	}

	n.DestroyChild(1)
	n.DestroyChild(9)
	if got := n.WKT(); got != `PARAMETER["scale_factor",1]` {
		t.Errorf("DestroyChild() = %q", got)
	}

	n.Child(1).SetValue("0.9996")
	if got := n.Child(1).Value(); got != "0.9996" {
		t.Errorf("SetValue() = %q", got)
	}

	kids := n.Children()
	kids[0] = nil
	if n.Child(0) == nil {
		t.Error("Children() must return a copy")
	}
}

func TestOwnership(t *testing.T) {
	a := NewNodeWith("A", NewNode("1"))
	b := NewNode("B")

	child := a.Child(0)
	added := b.AddChild(child)
	if added == child {
		t.Error("attaching an owned child must clone it")
	}
	if child.Parent() != a || added.Parent() != b {
		t.Error("parents not maintained")
	}

	added2 := a.AddChild(a)
	if added2 == a {
		t.Error("adding a node to itself must clone")
	}
	if a.WKT() != `A[1,A[1]]` {
		t.Errorf("WKT() = %q", a.WKT())
	}
}

func TestClone(t *testing.T) {
	n, err := ParseAll(wgs84WKT)
	if err != nil {
		t.Fatalf("ParseAll() error = %v", err)
	}
	c := n.Clone()
	if !c.Equal(n) {
		t.Fatal("Clone() not equal")
	}
	c.FindDescendant("SPHEROID").Child(1).SetValue("1")
	if c.Equal(n) {
		t.Error("Clone() shares nodes with original")
	}
	if c.Parent() != nil {
		t.Error("Clone() must be detached")
	}
}

func TestPretty(t *testing.T) {
	n, err := ParseAll(`GEOGCS["x",DATUM["d",SPHEROID["s",1,2]],UNIT["degree",0.1]]`)
	if err != nil {
		t.Fatalf("ParseAll() error = %v", err)
	}
	want := "GEOGCS[\"x\",\n" +
		"    DATUM[\"d\",\n" +
		"        SPHEROID[\"s\",1,2]],\n" +
		"    UNIT[\"degree\",0.1]]"
	if got := n.Pretty(4); got != want {
		t.Errorf("Pretty() mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}

	back, err := ParseAll(n.Pretty(4))
	if err != nil || !back.Equal(n) {
		t.Errorf("Pretty() output does not reparse to the same tree: %v", err)
	}
}

func TestFixupOrdering(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "projcs children",
			input: `PROJCS["p",AUTHORITY["EPSG","1"],UNIT["metre",1],PARAMETER["b",2],GEOGCS["g",UNIT["degree",1],DATUM["d",SPHEROID["s",1,2]]],PARAMETER["a",1],PROJECTION["Mercator_1SP"]]`,
			want:  `PROJCS["p",GEOGCS["g",DATUM["d",SPHEROID["s",1,2]],UNIT["degree",1]],PROJECTION["Mercator_1SP"],PARAMETER["b",2],PARAMETER["a",1],UNIT["metre",1],AUTHORITY["EPSG",1]]`,
		},
		{
			name:  "authority moves after towgs84",
			input: `DATUM["d",AUTHORITY["EPSG","6326"],TOWGS84[0,0,0],SPHEROID["s",1,2]]`,
			want:  `DATUM["d",SPHEROID["s",1,2],TOWGS84[0,0,0],AUTHORITY["EPSG",6326]]`,
		},
		{
			name:  "unknown keyword travels with predecessor",
			input: `GEOGCS["g",UNIT["degree",1],FOO["x"],DATUM["d",SPHEROID["s",1,2]]]`,
			want:  `GEOGCS["g",DATUM["d",SPHEROID["s",1,2]],UNIT["degree",1],FOO["x"]]`,
		},
		{
			name:  "unknown root is untouched",
			input: `FOO[B["x"],A["y"]]`,
			want:  `FOO[B["x"],A["y"]]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := ParseAll(tt.input)
			if err != nil {
				t.Fatalf("ParseAll() error = %v", err)
			}
			if err := n.FixupOrdering(); err != nil {
				t.Fatalf("FixupOrdering() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, n.WKT()); diff != "" {
				t.Errorf("FixupOrdering() mismatch (-want +got):\n%s", diff)
			}

			first := n.WKT()
			if err := n.FixupOrdering(); err != nil {
				t.Fatalf("second FixupOrdering() error = %v", err)
			}
			if n.WKT() != first {
				t.Errorf("FixupOrdering() not idempotent:\n%s", cmp.Diff(first, n.WKT()))
			}
		})
	}
}
