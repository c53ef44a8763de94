package srs

import (
	"strings"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/wkt"
)

// Validate checks the tree against the WKT grammar and the table of
// supported projections. It stops at the first violation. Structural
// problems wrap domain.ErrCorrupt; unknown methods or parameters wrap
// domain.ErrUnsupported.
func (d *Definition) Validate() error {
	if d.root == nil {
		return corrupt("", "", "non-empty", "definition is empty")
	}
	switch strings.ToUpper(d.root.Value()) {
	case "COMPD_CS":
		return validateCompdCS(d.root)
	case "PROJCS", "GEOGCS", "GEOCCS", "VERT_CS", "LOCAL_CS":
		return validateCS(d.root, d.root.Value())
	}
	return corrupt(d.root.Value(), d.root.Value(), "known root keyword", "unrecognised root node")
}

func corrupt(field string, value interface{}, constraint, msg string) error {
	return &domain.ValidationError{Field: field, Value: value, Constraint: constraint, Message: msg, Kind: domain.ErrCorrupt}
}

func unsupported(field string, value interface{}, constraint, msg string) error {
	return &domain.ValidationError{Field: field, Value: value, Constraint: constraint, Message: msg, Kind: domain.ErrUnsupported}
}

func validateCS(n *wkt.Node, path string) error {
	switch strings.ToUpper(n.Value()) {
	case "PROJCS":
		return validateProjCS(n, path)
	case "GEOGCS":
		return validateGeogCS(n, path)
	case "GEOCCS":
		return validateGeocCS(n, path)
	case "VERT_CS":
		return validateVertCS(n, path)
	case "LOCAL_CS":
		return validateLocalCS(n, path)
	}
	return corrupt(path, n.Value(), "coordinate system keyword", "unexpected node")
}

func validateCompdCS(n *wkt.Node) error {
	path := n.Value()
	if err := requireName(n, path); err != nil {
		return err
	}
	for _, c := range n.Children()[1:] {
		key := strings.ToUpper(c.Value())
		sub := path + "|" + c.Value()
		switch key {
		case "PROJCS", "GEOGCS", "GEOCCS", "VERT_CS", "LOCAL_CS":
			if err := validateCS(c, sub); err != nil {
				return err
			}
		case "AUTHORITY":
			if err := validateAuthority(c, sub); err != nil {
				return err
			}
		case "EXTENSION":
		default:
			return corrupt(sub, c.Value(), "top-level coordinate system, AUTHORITY or EXTENSION", "unexpected child of COMPD_CS")
		}
	}
	return nil
}

func validateProjCS(n *wkt.Node, path string) error {
	if err := requireName(n, path); err != nil {
		return err
	}

	var projection *wkt.Node
	var parameters []*wkt.Node
	geogcs, axes := 0, 0

	for _, c := range n.Children()[1:] {
		sub := path + "|" + c.Value()
		switch strings.ToUpper(c.Value()) {
		case "GEOGCS":
			geogcs++
			if err := validateGeogCS(c, sub); err != nil {
				return err
			}
		case "UNIT":
			if err := validateUnit(c, sub); err != nil {
				return err
			}
		case "PARAMETER":
			if c.ChildCount() != 2 {
				return corrupt(sub, c.ChildCount(), "2 children", "PARAMETER has wrong number of children")
			}
			parameters = append(parameters, c)
		case "PROJECTION":
			if c.ChildCount() < 1 || c.ChildCount() > 2 {
				return corrupt(sub, c.ChildCount(), "1-2 children", "PROJECTION has wrong number of children")
			}
			projection = c
		case "AUTHORITY":
			if err := validateAuthority(c, sub); err != nil {
				return err
			}
		case "AXIS":
			axes++
		case "EXTENSION":
		default:
			return corrupt(sub, c.Value(), "known PROJCS child", "unexpected child of PROJCS")
		}
	}

	if geogcs != 1 {
		return corrupt(path+"|GEOGCS", geogcs, "exactly 1", "PROJCS needs one GEOGCS")
	}
	if axes != 0 && axes != 2 {
		return corrupt(path+"|AXIS", axes, "0 or 2", "PROJCS has wrong number of AXIS nodes")
	}
	if projection == nil {
		return corrupt(path+"|PROJECTION", nil, "required", "PROJCS has no PROJECTION")
	}

	method := projection.Child(0).Value()
	if !IsSupportedProjection(method) {
		return unsupported(path+"|PROJECTION", method, "supported projection", "unsupported projection method")
	}
	for _, p := range parameters {
		name := p.Child(0).Value()
		if !isParameterAllowed(method, name) {
			return unsupported(path+"|PARAMETER", name, "allowed parameter", "parameter not allowed for "+method)
		}
	}
	return nil
}

func validateGeogCS(n *wkt.Node, path string) error {
	if err := requireName(n, path); err != nil {
		return err
	}
	datums, axes := 0, 0
	for _, c := range n.Children()[1:] {
		sub := path + "|" + c.Value()
		switch strings.ToUpper(c.Value()) {
		case "DATUM":
			datums++
			if err := validateDatum(c, sub); err != nil {
				return err
			}
		case "PRIMEM":
			if c.ChildCount() < 2 || c.ChildCount() > 3 {
				return corrupt(sub, c.ChildCount(), "2-3 children", "PRIMEM has wrong number of children")
			}
			if err := validateTrailingAuthority(c, sub, 2); err != nil {
				return err
			}
		case "UNIT":
			if err := validateUnit(c, sub); err != nil {
				return err
			}
		case "AXIS":
			axes++
		case "AUTHORITY":
			if err := validateAuthority(c, sub); err != nil {
				return err
			}
		case "EXTENSION":
		default:
			return corrupt(sub, c.Value(), "known GEOGCS child", "unexpected child of GEOGCS")
		}
	}
	if datums != 1 {
		return corrupt(path+"|DATUM", datums, "exactly 1", "GEOGCS needs one DATUM")
	}
	if axes != 0 && axes != 2 {
		return corrupt(path+"|AXIS", axes, "0 or 2", "GEOGCS has wrong number of AXIS nodes")
	}
	return nil
}

func validateDatum(n *wkt.Node, path string) error {
	if err := requireName(n, path); err != nil {
		return err
	}
	spheroids := 0
	for _, c := range n.Children()[1:] {
		sub := path + "|" + c.Value()
		switch strings.ToUpper(c.Value()) {
		case "SPHEROID":
			spheroids++
			if c.ChildCount() < 3 || c.ChildCount() > 4 {
				return corrupt(sub, c.ChildCount(), "3-4 children", "SPHEROID has wrong number of children")
			}
			if atof(c.Child(1).Value()) == 0 {
				return corrupt(sub, c.Child(1).Value(), "semi-major != 0", "SPHEROID has zero semi-major axis")
			}
			if err := validateTrailingAuthority(c, sub, 3); err != nil {
				return err
			}
		case "TOWGS84":
			if c.ChildCount() != 3 && c.ChildCount() != 7 {
				return corrupt(sub, c.ChildCount(), "3 or 7 values", "TOWGS84 has wrong number of values")
			}
		case "AUTHORITY":
			if err := validateAuthority(c, sub); err != nil {
				return err
			}
		case "EXTENSION":
		default:
			return corrupt(sub, c.Value(), "known DATUM child", "unexpected child of DATUM")
		}
	}
	if spheroids != 1 {
		return corrupt(path+"|SPHEROID", spheroids, "exactly 1", "DATUM needs one SPHEROID")
	}
	return nil
}

func validateGeocCS(n *wkt.Node, path string) error {
	if err := requireName(n, path); err != nil {
		return err
	}
	datums, axes := 0, 0
	for _, c := range n.Children()[1:] {
		sub := path + "|" + c.Value()
		switch strings.ToUpper(c.Value()) {
		case "DATUM":
			datums++
			if err := validateDatum(c, sub); err != nil {
				return err
			}
		case "PRIMEM":
			if c.ChildCount() < 2 || c.ChildCount() > 3 {
				return corrupt(sub, c.ChildCount(), "2-3 children", "PRIMEM has wrong number of children")
			}
		case "UNIT":
			if err := validateUnit(c, sub); err != nil {
				return err
			}
		case "AXIS":
			axes++
		case "AUTHORITY":
			if err := validateAuthority(c, sub); err != nil {
				return err
			}
		case "EXTENSION":
		default:
			return corrupt(sub, c.Value(), "known GEOCCS child", "unexpected child of GEOCCS")
		}
	}
	if datums != 1 {
		return corrupt(path+"|DATUM", datums, "exactly 1", "GEOCCS needs one DATUM")
	}
	if axes != 0 && axes != 3 {
		return corrupt(path+"|AXIS", axes, "0 or 3", "GEOCCS has wrong number of AXIS nodes")
	}
	return nil
}

func validateVertCS(n *wkt.Node, path string) error {
	if err := requireName(n, path); err != nil {
		return err
	}
	datums := 0
	for _, c := range n.Children()[1:] {
		sub := path + "|" + c.Value()
		switch strings.ToUpper(c.Value()) {
		case "VERT_DATUM":
			datums++
			if c.ChildCount() < 2 {
				return corrupt(sub, c.ChildCount(), "2+ children", "VERT_DATUM has too few children")
			}
		case "UNIT":
			if err := validateUnit(c, sub); err != nil {
				return err
			}
		case "AXIS", "EXTENSION":
		case "AUTHORITY":
			if err := validateAuthority(c, sub); err != nil {
				return err
			}
		default:
			return corrupt(sub, c.Value(), "known VERT_CS child", "unexpected child of VERT_CS")
		}
	}
	if datums != 1 {
		return corrupt(path+"|VERT_DATUM", datums, "exactly 1", "VERT_CS needs one VERT_DATUM")
	}
	return nil
}

func validateLocalCS(n *wkt.Node, path string) error {
	if err := requireName(n, path); err != nil {
		return err
	}
	for _, c := range n.Children()[1:] {
		sub := path + "|" + c.Value()
		switch strings.ToUpper(c.Value()) {
		case "UNIT":
			if err := validateUnit(c, sub); err != nil {
				return err
			}
		case "AUTHORITY":
			if err := validateAuthority(c, sub); err != nil {
				return err
			}
		case "LOCAL_DATUM", "AXIS", "EXTENSION":
		default:
			return corrupt(sub, c.Value(), "known LOCAL_CS child", "unexpected child of LOCAL_CS")
		}
	}
	return nil
}

func validateUnit(n *wkt.Node, path string) error {
	if n.ChildCount() < 2 || n.ChildCount() > 3 {
		return corrupt(path, n.ChildCount(), "2-3 children", "UNIT has wrong number of children")
	}
	if atof(n.Child(1).Value()) == 0 {
		return corrupt(path, n.Child(1).Value(), "factor != 0", "UNIT has zero conversion factor")
	}
	return validateTrailingAuthority(n, path, 2)
}

func validateAuthority(n *wkt.Node, path string) error {
	if n.ChildCount() != 2 {
		return corrupt(path, n.ChildCount(), "2 children", "AUTHORITY has wrong number of children")
	}
	return nil
}

// validateTrailingAuthority checks that a child beyond the fixed values
// is an AUTHORITY.
func validateTrailingAuthority(n *wkt.Node, path string, fixed int) error {
	if n.ChildCount() <= fixed {
		return nil
	}
	c := n.Child(fixed)
	if !strings.EqualFold(c.Value(), "AUTHORITY") {
		return corrupt(path+"|"+c.Value(), c.Value(), "AUTHORITY", "unexpected trailing child")
	}
	return validateAuthority(c, path+"|AUTHORITY")
}

func requireName(n *wkt.Node, path string) error {
	if n.ChildCount() < 1 || !n.Child(0).IsLeaf() {
		return corrupt(path, n.Value(), "leading name", "node has no name")
	}
	return nil
}
