package srs

import (
	"fmt"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/wkt"
)

// VertDatumOrthometric is the datum type of a geoid based vertical datum.
const VertDatumOrthometric = 2005

// SetVertCS installs a vertical coordinate system with metre units. An
// empty definition or a VERT_CS root is replaced, a horizontal root is
// wrapped in a COMPD_CS together with the new VERT_CS.
func (d *Definition) SetVertCS(name, datum string, datumType int) error {
	d.invalidate()

	if name == "" {
		name = "unnamed"
	}
	if datum == "" {
		datum = "unknown"
	}
	if datumType == 0 {
		datumType = VertDatumOrthometric
	}
	vert := wkt.NewNodeWith("VERT_CS",
		wkt.NewNode(name),
		wkt.NewNodeWith("VERT_DATUM", wkt.NewNode(datum), wkt.NewNode(fmt.Sprint(datumType))),
		wkt.NewNodeWith("UNIT", wkt.NewNode(UnitMetre), wkt.NewNode("1")),
	)

	switch d.rootKind() {
	case "", "VERT_CS":
		d.root = vert
	case "PROJCS", "GEOGCS":
		horizontal := d.root
		d.root = wkt.NewNodeWith("COMPD_CS",
			wkt.NewNode(horizontal.Child(0).Value()+" + "+name),
			horizontal,
			vert,
		)
	case "COMPD_CS":
		if i := d.root.FindChild("VERT_CS"); i >= 0 {
			d.root.DestroyChild(i)
		}
		d.root.AddChild(vert)
	default:
		return fmt.Errorf("cannot add VERT_CS to %s: %w", d.root.Value(), domain.ErrUnsupported)
	}
	return nil
}

// SetCompdCS builds a COMPD_CS from a horizontal and a vertical
// definition. Both are copied.
func (d *Definition) SetCompdCS(name string, horizontal, vertical *Definition) error {
	if horizontal == nil || vertical == nil || horizontal.IsEmpty() || vertical.IsEmpty() {
		return fmt.Errorf("compound system needs two parts: %w", domain.ErrInvalidInput)
	}
	if !horizontal.IsProjected() && !horizontal.IsGeographic() {
		return fmt.Errorf("horizontal part %s: %w", horizontal.Root().Value(), domain.ErrUnsupported)
	}
	if vertical.rootKind() != "VERT_CS" {
		return fmt.Errorf("vertical part %s: %w", vertical.Root().Value(), domain.ErrUnsupported)
	}
	d.invalidate()
	d.root = wkt.NewNodeWith("COMPD_CS",
		wkt.NewNode(name),
		horizontal.Root().Clone(),
		vertical.Root().Clone(),
	)
	return nil
}
