package srs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/wkt"
)

// SetAuthority replaces the AUTHORITY of the node at target. An empty
// target means the root.
func (d *Definition) SetAuthority(target, authority string, code int) error {
	n := d.targetNode(target)
	if n == nil {
		return fmt.Errorf("authority target %q: %w", target, domain.ErrNotFound)
	}
	if i := n.FindChild("AUTHORITY"); i >= 0 {
		n.DestroyChild(i)
	}
	n.AddChild(wkt.NewNodeWith("AUTHORITY", wkt.NewNode(authority), wkt.NewNode(strconv.Itoa(code))))
	return nil
}

// GetAuthorityName returns the authority name of the node at target.
func (d *Definition) GetAuthorityName(target string) string {
	name, _ := d.authority(target)
	return name
}

// GetAuthorityCode returns the authority code of the node at target.
func (d *Definition) GetAuthorityCode(target string) string {
	_, code := d.authority(target)
	return code
}

// EPSGCode returns the root EPSG code, or 0.
func (d *Definition) EPSGCode() int {
	name, code := d.authority("")
	if !strings.EqualFold(name, "EPSG") {
		return 0
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0
	}
	return n
}

func (d *Definition) authority(target string) (string, string) {
	n := d.targetNode(target)
	if n == nil {
		return "", ""
	}
	i := n.FindChild("AUTHORITY")
	if i < 0 {
		return "", ""
	}
	auth := n.Child(i)
	if auth.ChildCount() < 2 {
		return "", ""
	}
	return auth.Child(0).Value(), auth.Child(1).Value()
}

func (d *Definition) targetNode(target string) *wkt.Node {
	if target == "" {
		return d.root
	}
	return d.GetAttrNode(target)
}

// SetExtension sets EXTENSION[name, value] on the node at target,
// updating the last matching extension if there is one.
func (d *Definition) SetExtension(target, name, value string) error {
	n := d.targetNode(target)
	if n == nil {
		return fmt.Errorf("extension target %q: %w", target, domain.ErrNotFound)
	}
	if ext := findExtension(n, name); ext != nil {
		ext.Child(1).SetValue(value)
		return nil
	}
	n.AddChild(wkt.NewNodeWith("EXTENSION", wkt.NewNode(name), wkt.NewNode(value)))
	return nil
}

// GetExtension returns the value of the last matching extension on the
// node at target, or def.
func (d *Definition) GetExtension(target, name, def string) string {
	n := d.targetNode(target)
	if n == nil {
		return def
	}
	if ext := findExtension(n, name); ext != nil {
		return ext.Child(1).Value()
	}
	return def
}

func findExtension(n *wkt.Node, name string) *wkt.Node {
	for i := n.ChildCount() - 1; i >= 0; i-- {
		c := n.Child(i)
		if isKeyword(c, "EXTENSION") && c.ChildCount() >= 2 && strings.EqualFold(c.Child(0).Value(), name) {
			return c
		}
	}
	return nil
}
