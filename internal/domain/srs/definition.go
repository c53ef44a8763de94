// Package srs models a spatial reference definition as a tree of WKT nodes
// and provides the operations used to build, query, compare and export it.
package srs

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/wkt"
)

// Definition is a spatial reference system held as a WKT node tree.
// A Definition is not safe for concurrent mutation; only the reference
// count is synchronised.
type Definition struct {
	root *wkt.Node

	mu   sync.Mutex
	refs int

	norm    NormInfo
	normSet bool
}

// NormInfo holds the factors used to normalise projection parameters.
type NormInfo struct {
	ToDegrees     float64 // Angular unit in degrees
	ToMeters      float64 // Linear unit in metres
	FromGreenwich float64 // Prime meridian offset
}

// New returns an empty definition with a reference count of one.
func New() *Definition {
	return &Definition{refs: 1}
}

// NewFromWKT parses text into a new definition.
func NewFromWKT(text string) (*Definition, error) {
	d := New()
	if err := d.ImportFromWKT(text); err != nil {
		return nil, err
	}
	return d, nil
}

// NewFromNode wraps a copy of root.
func NewFromNode(root *wkt.Node) *Definition {
	d := New()
	d.SetRoot(root.Clone())
	return d
}

// Root returns the root node or nil if the definition is empty.
func (d *Definition) Root() *wkt.Node {
	return d.root
}

// SetRoot replaces the whole tree. The node is adopted, not copied.
func (d *Definition) SetRoot(root *wkt.Node) {
	d.root = root
	d.invalidate()
}

// IsEmpty reports whether the definition has no root.
func (d *Definition) IsEmpty() bool {
	return d.root == nil
}

// Clear drops the tree.
func (d *Definition) Clear() {
	d.root = nil
	d.invalidate()
}

// Clone returns an independent copy with its own reference count.
func (d *Definition) Clone() *Definition {
	c := New()
	if d.root != nil {
		c.root = d.root.Clone()
	}
	return c
}

// Reference increments the reference count and returns the new value.
func (d *Definition) Reference() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refs++
	return d.refs
}

// Dereference decrements the reference count and returns the new value.
func (d *Definition) Dereference() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refs > 0 {
		d.refs--
	}
	return d.refs
}

// Release dereferences the definition and clears it once unreferenced.
func (d *Definition) Release() {
	if d.Dereference() == 0 {
		d.Clear()
	}
}

func (d *Definition) invalidate() {
	d.normSet = false
}

// ImportFromWKT replaces the definition with the parsed text. The root
// must be one of the coordinate system keywords; anything else is
// ErrCorrupt and leaves the definition unchanged.
func (d *Definition) ImportFromWKT(text string) error {
	if strings.TrimSpace(text) == "" {
		return domain.ErrEmptyDefinition
	}
	root, err := wkt.ParseAll(text)
	if err != nil {
		return err
	}
	if !isRootKeyword(root) {
		return &domain.ParseError{Offset: 0, Message: fmt.Sprintf("%q is not a coordinate system definition", root.Value())}
	}
	d.SetRoot(root)
	return nil
}

func isRootKeyword(n *wkt.Node) bool {
	switch strings.ToUpper(n.Value()) {
	case "GEOGCS", "PROJCS", "LOCAL_CS", "GEOCCS", "VERT_CS", "COMPD_CS":
		return true
	}
	return false
}

// ExportToWKT serializes the definition in compact form.
func (d *Definition) ExportToWKT() (string, error) {
	if d.root == nil {
		return "", domain.ErrEmptyDefinition
	}
	return d.root.WKT(), nil
}

// ExportToPrettyWKT serializes the definition over several lines.
func (d *Definition) ExportToPrettyWKT() (string, error) {
	if d.root == nil {
		return "", domain.ErrEmptyDefinition
	}
	return d.root.Pretty(4), nil
}

// String returns the compact WKT, or an empty string.
func (d *Definition) String() string {
	if d.root == nil {
		return ""
	}
	return d.root.WKT()
}

// GetAttrNode resolves a "|" separated path such as "PROJCS|GEOGCS|UNIT".
// Each component is searched among the descendants of the previous match.
func (d *Definition) GetAttrNode(path string) *wkt.Node {
	tokens := splitPath(path)
	if len(tokens) == 0 {
		return nil
	}
	n := d.root
	for _, tok := range tokens {
		if n == nil {
			return nil
		}
		n = n.FindDescendant(tok)
	}
	return n
}

// GetAttrValue returns the value of the given child of the node at path.
func (d *Definition) GetAttrValue(path string, child int) (string, bool) {
	n := d.GetAttrNode(path)
	if n == nil {
		return "", false
	}
	c := n.Child(child)
	if c == nil {
		return "", false
	}
	return c.Value(), true
}

// SetNode walks path from the root, creating missing nodes, and sets the
// first child of the last node to value. A root with a different label
// is replaced.
func (d *Definition) SetNode(path, value string) error {
	tokens := splitPath(path)
	if len(tokens) == 0 {
		return domain.ErrInvalidInput
	}
	d.invalidate()

	if d.root == nil || !strings.EqualFold(tokens[0], d.root.Value()) {
		d.root = wkt.NewNode(tokens[0])
	}
	n := d.root
	for _, tok := range tokens[1:] {
		if i := n.FindChild(tok); i >= 0 {
			n = n.Child(i)
			continue
		}
		n = n.AddChild(wkt.NewNode(tok))
	}

	if n.ChildCount() > 0 {
		n.Child(0).SetValue(value)
	} else {
		n.AddChild(wkt.NewNode(value))
	}
	return nil
}

// SetNodeFloat is SetNode with a number. Integral values have no
// decimal point.
func (d *Definition) SetNodeFloat(path string, value float64) error {
	return d.SetNode(path, formatInt(value))
}

// IsGeographic reports whether the root is a GEOGCS, or a compound with a
// GEOGCS and no PROJCS.
func (d *Definition) IsGeographic() bool {
	switch d.rootKind() {
	case "GEOGCS":
		return true
	case "COMPD_CS":
		return d.GetAttrNode("GEOGCS") != nil && d.GetAttrNode("PROJCS") == nil
	}
	return false
}

// IsProjected reports whether the root is, or a compound contains, a PROJCS.
func (d *Definition) IsProjected() bool {
	switch d.rootKind() {
	case "PROJCS":
		return true
	case "COMPD_CS":
		return d.GetAttrNode("PROJCS") != nil
	}
	return false
}

// IsLocal reports whether the root is a LOCAL_CS.
func (d *Definition) IsLocal() bool {
	return d.rootKind() == "LOCAL_CS"
}

// IsGeocentric reports whether the root is a GEOCCS.
func (d *Definition) IsGeocentric() bool {
	return d.rootKind() == "GEOCCS"
}

// IsVertical reports whether the root is, or a compound contains, a VERT_CS.
func (d *Definition) IsVertical() bool {
	switch d.rootKind() {
	case "VERT_CS":
		return true
	case "COMPD_CS":
		return d.GetAttrNode("VERT_CS") != nil
	}
	return false
}

// IsCompound reports whether the root is a COMPD_CS.
func (d *Definition) IsCompound() bool {
	return d.rootKind() == "COMPD_CS"
}

func (d *Definition) rootKind() string {
	if d.root == nil {
		return ""
	}
	return strings.ToUpper(d.root.Value())
}

// FixupOrdering reorders the tree into canonical order.
func (d *Definition) FixupOrdering() error {
	if d.root == nil {
		return nil
	}
	return d.root.FixupOrdering()
}

// Fixup adds default linear and angular units where they are missing and
// then reorders the tree.
func (d *Definition) Fixup() error {
	cs := d.GetAttrNode("PROJCS")
	if cs == nil {
		cs = d.GetAttrNode("LOCAL_CS")
	}
	if cs == nil {
		cs = d.GetAttrNode("GEOCCS")
	}
	if cs != nil && cs.FindChild("UNIT") == -1 {
		if err := d.SetLinearUnits(UnitMeter, 1.0); err != nil {
			return err
		}
	}

	if cs := d.GetAttrNode("GEOGCS"); cs != nil && cs.FindChild("UNIT") == -1 {
		if err := d.SetAngularUnits(UnitDegree, UnitDegreeConv); err != nil {
			return err
		}
	}
	return d.FixupOrdering()
}

func splitPath(path string) []string {
	var out []string
	for _, tok := range strings.Split(path, "|") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// formatFloat renders v with up to 16 significant digits.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 16, 64)
}

// formatInt renders integral values without a decimal point.
func formatInt(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return formatFloat(v)
}

// atof parses the leading number of s and returns 0 when there is none.
func atof(s string) float64 {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	end := 0
	for end < len(s) && strings.IndexByte("0123456789+-.eE", s[end]) >= 0 {
		end++
	}
	for end > 0 {
		if v, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return v
		}
		end--
	}
	return 0
}
