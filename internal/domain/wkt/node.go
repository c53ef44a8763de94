// Package wkt implements the labeled tree behind a spatial reference
// definition and its well-known-text notation.
//
// A Node carries a value and an ordered list of children. Leaves hold
// names and numbers; compound nodes are keywords such as GEOGCS or
// PARAMETER. Every child belongs to exactly one parent.
package wkt

import (
	"regexp"
	"strings"
)

// Limits applied by Parse.
const (
	MaxTokenLength = 512
	MaxDepth       = 64
)

var rawLeaf = regexp.MustCompile(`^[0-9.+\-eE]+$`)

// Node is a single element of a definition tree.
type Node struct {
	value    string
	children []*Node
	parent   *Node
}

// NewNode creates a detached node with the given value.
func NewNode(value string) *Node {
	return &Node{value: value}
}

// NewNodeWith creates a node and appends the given children.
func NewNodeWith(value string, children ...*Node) *Node {
	n := NewNode(value)
	for _, c := range children {
		n.AddChild(c)
	}
	return n
}

// Value returns the node label.
func (n *Node) Value() string {
	return n.value
}

// SetValue replaces the node label.
func (n *Node) SetValue(value string) {
	n.value = value
}

// Parent returns the owning node or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int {
	return len(n.children)
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.children) == 0
}

// Child returns the i-th child or nil if i is out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Children returns a copy of the child slice.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// AddChild appends child. A child that already has a parent is cloned.
func (n *Node) AddChild(child *Node) *Node {
	return n.InsertChild(child, len(n.children))
}

// InsertChild inserts child at index, clamped to [0, ChildCount()].
// A child that already has a parent is cloned.
func (n *Node) InsertChild(child *Node, index int) *Node {
	if child == nil {
		return nil
	}
	if child.parent != nil || child == n || child.isAncestorOf(n) {
		child = child.Clone()
	}
	if index < 0 {
		index = 0
	}
	if index > len(n.children) {
		index = len(n.children)
	}
	n.children = append(n.children, nil)
	copy(n.children[index+1:], n.children[index:])
	n.children[index] = child
	child.parent = n
	return child
}

// DestroyChild removes the i-th child. Out-of-range indexes are ignored.
func (n *Node) DestroyChild(i int) {
	if i < 0 || i >= len(n.children) {
		return
	}
	n.children[i].parent = nil
	n.children = append(n.children[:i], n.children[i+1:]...)
}

// FindChild returns the index of the first child whose value matches
// case-insensitively, or -1.
func (n *Node) FindChild(value string) int {
	for i, c := range n.children {
		if strings.EqualFold(c.value, value) {
			return i
		}
	}
	return -1
}

// FindDescendant returns the first compound node in pre-order, starting
// with n itself, whose value matches case-insensitively. Leaves are never
// returned.
func (n *Node) FindDescendant(value string) *Node {
	if n == nil {
		return nil
	}
	if len(n.children) > 0 && strings.EqualFold(n.value, value) {
		return n
	}
	for _, c := range n.children {
		if found := c.FindDescendant(value); found != nil {
			return found
		}
	}
	return nil
}

// Clone returns a deep copy without a parent.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{value: n.value}
	if len(n.children) > 0 {
		out.children = make([]*Node, len(n.children))
		for i, c := range n.children {
			cc := c.Clone()
			cc.parent = out
			out.children[i] = cc
		}
	}
	return out
}

// Equal reports whether both trees have the same labels and shape.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.value != other.value || len(n.children) != len(other.children) {
		return false
	}
	for i := range n.children {
		if !n.children[i].Equal(other.children[i]) {
			return false
		}
	}
	return true
}

func (n *Node) isAncestorOf(other *Node) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// String returns the compact WKT form.
func (n *Node) String() string {
	return n.WKT()
}

// WKT serializes the tree without whitespace.
func (n *Node) WKT() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	if len(n.children) == 0 {
		writeLeaf(b, n.value)
		return
	}
	b.WriteString(n.value)
	b.WriteByte('[')
	for i, c := range n.children {
		if i > 0 {
			b.WriteByte(',')
		}
		c.write(b)
	}
	b.WriteByte(']')
}

func writeLeaf(b *strings.Builder, value string) {
	if rawLeaf.MatchString(value) {
		b.WriteString(value)
		return
	}
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(value, `"`, `""`))
	b.WriteByte('"')
}

// Pretty serializes the tree over several lines. Compound children start
// on a new line indented by indent spaces per level.
func (n *Node) Pretty(indent int) string {
	var b strings.Builder
	n.writePretty(&b, indent, 0)
	return b.String()
}

func (n *Node) writePretty(b *strings.Builder, indent, depth int) {
	if len(n.children) == 0 {
		writeLeaf(b, n.value)
		return
	}
	b.WriteString(n.value)
	b.WriteByte('[')
	for i, c := range n.children {
		if i > 0 {
			b.WriteByte(',')
		}
		if !c.IsLeaf() {
			b.WriteByte('\n')
			b.WriteString(strings.Repeat(" ", indent*(depth+1)))
		}
		c.writePretty(b, indent, depth+1)
	}
	b.WriteByte(']')
}
