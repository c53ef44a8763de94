package application

import (
	"fmt"
	"slices"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/srs"
)

// ParamRole is an EPSG projection parameter code.
type ParamRole int

// Projection parameter codes used by the method dispatch.
const (
	CoLatConeAxis                ParamRole = 1036
	NatOriginLat                 ParamRole = 8801
	NatOriginLong                ParamRole = 8802
	NatOriginScaleFactor         ParamRole = 8805
	FalseEasting                 ParamRole = 8806
	FalseNorthing                ParamRole = 8807
	ProjCenterLat                ParamRole = 8811
	ProjCenterLong               ParamRole = 8812
	Azimuth                      ParamRole = 8813
	AngleRectifiedToSkewedGrid   ParamRole = 8814
	InitialLineScaleFactor       ParamRole = 8815
	ProjCenterEasting            ParamRole = 8816
	ProjCenterNorthing           ParamRole = 8817
	PseudoStdParallelLat         ParamRole = 8818
	PseudoStdParallelScaleFactor ParamRole = 8819
	FalseOriginLat               ParamRole = 8821
	FalseOriginLong              ParamRole = 8822
	StdParallel1Lat              ParamRole = 8823
	StdParallel2Lat              ParamRole = 8824
	FalseOriginEasting           ParamRole = 8826
	FalseOriginNorthing          ParamRole = 8827
	SphericalOriginLat           ParamRole = 8828
	SphericalOriginLong          ParamRole = 8829
	PolarLatStdParallel          ParamRole = 8832
	PolarLongOrigin              ParamRole = 8833
)

// IsScaleFactor reports whether the parameter is a unitless scale.
func (p ParamRole) IsScaleFactor() bool {
	return p == NatOriginScaleFactor || p == InitialLineScaleFactor || p == PseudoStdParallelScaleFactor
}

// defaultValue is used when a projected system omits the parameter.
func (p ParamRole) defaultValue() float64 {
	switch {
	case p.IsScaleFactor():
		return 1
	case p == AngleRectifiedToSkewedGrid:
		return 90
	}
	return 0
}

// ProjParams holds projection parameter values in degrees, metres or as
// plain scale factors.
type ProjParams map[ParamRole]float64

// Get returns the value of role or its default.
func (p ProjParams) Get(role ParamRole) float64 {
	if v, ok := p[role]; ok {
		return v
	}
	return role.defaultValue()
}

type methodFunc func(d *srs.Definition, p ProjParams) error

const webMercatorProj4 = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 " +
	"+x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +wktext +no_defs"

func lcc1sp(d *srs.Definition, p ProjParams) error {
	return d.SetLCC1SP(p.Get(NatOriginLat), p.Get(NatOriginLong), p.Get(NatOriginScaleFactor),
		p.Get(FalseEasting), p.Get(FalseNorthing))
}

func mercator(spherical bool) methodFunc {
	return func(d *srs.Definition, p ProjParams) error {
		if err := d.SetMercator(p.Get(NatOriginLat), p.Get(NatOriginLong), p.Get(NatOriginScaleFactor),
			p.Get(FalseEasting), p.Get(FalseNorthing)); err != nil {
			return err
		}
		if spherical {
			return d.SetExtension("PROJCS", "PROJ4", webMercatorProj4)
		}
		return nil
	}
}

func hom(laborde bool) methodFunc {
	return func(d *srs.Definition, p ProjParams) error {
		if err := d.SetHOM(p.Get(ProjCenterLat), p.Get(ProjCenterLong), p.Get(Azimuth),
			p.Get(AngleRectifiedToSkewedGrid), p.Get(InitialLineScaleFactor),
			p.Get(FalseEasting), p.Get(FalseNorthing)); err != nil {
			return err
		}
		if laborde {
			return d.SetNode("PROJCS|PROJECTION", srs.ProjLabordeObliqueMercator)
		}
		return nil
	}
}

func krovak(d *srs.Definition, p ProjParams) error {
	centerLong := p.Get(ProjCenterLong)
	if centerLong == 0 {
		centerLong = p.Get(PolarLongOrigin)
	}
	azimuth := p.Get(CoLatConeAxis)
	if azimuth == 0 {
		azimuth = p.Get(Azimuth)
	}
	return d.SetKrovak(p.Get(ProjCenterLat), centerLong, azimuth,
		p.Get(PseudoStdParallelLat), p.Get(PseudoStdParallelScaleFactor),
		p.Get(ProjCenterEasting), p.Get(ProjCenterNorthing))
}

func equirectangular(d *srs.Definition, p ProjParams) error {
	return d.SetEquirectangular(p.Get(NatOriginLat), p.Get(NatOriginLong), 0, 0)
}

func laea(d *srs.Definition, p ProjParams) error {
	return d.SetLAEA(p.Get(NatOriginLat), p.Get(NatOriginLong), p.Get(FalseEasting), p.Get(FalseNorthing))
}

func cea(d *srs.Definition, p ProjParams) error {
	return d.SetCEA(p.Get(StdParallel1Lat), p.Get(NatOriginLong), p.Get(FalseEasting), p.Get(FalseNorthing))
}

// projectionMethods dispatches EPSG coordinate operation method codes.
var projectionMethods = map[int]methodFunc{
	9801: lcc1sp,
	9817: lcc1sp,
	9802: func(d *srs.Definition, p ProjParams) error {
		return d.SetLCC(p.Get(StdParallel1Lat), p.Get(StdParallel2Lat), p.Get(FalseOriginLat),
			p.Get(FalseOriginLong), p.Get(FalseOriginEasting), p.Get(FalseOriginNorthing))
	},
	9803: func(d *srs.Definition, p ProjParams) error {
		return d.SetLCCB(p.Get(StdParallel1Lat), p.Get(StdParallel2Lat), p.Get(FalseOriginLat),
			p.Get(FalseOriginLong), p.Get(FalseOriginEasting), p.Get(FalseOriginNorthing))
	},
	9805: func(d *srs.Definition, p ProjParams) error {
		return d.SetMercator2SP(p.Get(StdParallel1Lat), p.Get(NatOriginLat), p.Get(NatOriginLong),
			p.Get(FalseEasting), p.Get(FalseNorthing))
	},
	9804: mercator(false),
	9841: mercator(true),
	1024: mercator(true),
	9806: func(d *srs.Definition, p ProjParams) error {
		return d.SetCS(p.Get(NatOriginLat), p.Get(NatOriginLong), p.Get(FalseEasting), p.Get(FalseNorthing))
	},
	9807: func(d *srs.Definition, p ProjParams) error {
		return d.SetTM(p.Get(NatOriginLat), p.Get(NatOriginLong), p.Get(NatOriginScaleFactor),
			p.Get(FalseEasting), p.Get(FalseNorthing))
	},
	9808: func(d *srs.Definition, p ProjParams) error {
		return d.SetTMSO(p.Get(NatOriginLat), p.Get(NatOriginLong), p.Get(NatOriginScaleFactor),
			p.Get(FalseEasting), p.Get(FalseNorthing))
	},
	9809: func(d *srs.Definition, p ProjParams) error {
		return d.SetOS(p.Get(NatOriginLat), p.Get(NatOriginLong), p.Get(NatOriginScaleFactor),
			p.Get(FalseEasting), p.Get(FalseNorthing))
	},
	9810: func(d *srs.Definition, p ProjParams) error {
		return d.SetPS(p.Get(NatOriginLat), p.Get(NatOriginLong), p.Get(NatOriginScaleFactor),
			p.Get(FalseEasting), p.Get(FalseNorthing))
	},
	9811: func(d *srs.Definition, p ProjParams) error {
		return d.SetNZMG(p.Get(NatOriginLat), p.Get(NatOriginLong), p.Get(FalseEasting), p.Get(FalseNorthing))
	},
	9812: hom(false),
	9813: hom(true),
	9814: func(d *srs.Definition, p ProjParams) error {
		return d.SetSOC(p.Get(ProjCenterLat), p.Get(ProjCenterLong), p.Get(FalseEasting), p.Get(FalseNorthing))
	},
	9815: func(d *srs.Definition, p ProjParams) error {
		return d.SetHOMAC(p.Get(ProjCenterLat), p.Get(ProjCenterLong), p.Get(Azimuth),
			p.Get(AngleRectifiedToSkewedGrid), p.Get(InitialLineScaleFactor),
			p.Get(ProjCenterEasting), p.Get(ProjCenterNorthing))
	},
	9816: func(d *srs.Definition, p ProjParams) error {
		return d.SetTMG(p.Get(FalseOriginLat), p.Get(FalseOriginLong),
			p.Get(FalseOriginEasting), p.Get(FalseOriginNorthing))
	},
	9818: func(d *srs.Definition, p ProjParams) error {
		return d.SetPolyconic(p.Get(NatOriginLat), p.Get(NatOriginLong), p.Get(FalseEasting), p.Get(FalseNorthing))
	},
	1041: krovak,
	9819: krovak,
	9820: laea,
	1027: laea,
	9821: func(d *srs.Definition, p ProjParams) error {
		return d.SetLAEA(p.Get(SphericalOriginLat), p.Get(SphericalOriginLong),
			p.Get(FalseEasting), p.Get(FalseNorthing))
	},
	9822: func(d *srs.Definition, p ProjParams) error {
		return d.SetACEA(p.Get(StdParallel1Lat), p.Get(StdParallel2Lat), p.Get(FalseOriginLat),
			p.Get(FalseOriginLong), p.Get(FalseOriginEasting), p.Get(FalseOriginNorthing))
	},
	9823: equirectangular,
	9842: equirectangular,
	1028: equirectangular,
	1029: equirectangular,
	// polar stereographic variant B
	9829: func(d *srs.Definition, p ProjParams) error {
		return d.SetPS(p.Get(PolarLatStdParallel), p.Get(PolarLongOrigin), 1,
			p.Get(FalseEasting), p.Get(FalseNorthing))
	},
	9834: cea,
	9835: cea,
}

// applyProjectionMethod sets the projection of d from an EPSG method code.
func applyProjectionMethod(d *srs.Definition, method int, p ProjParams) error {
	set, ok := projectionMethods[method]
	if !ok {
		return fmt.Errorf("projection method %d: %w", method, domain.ErrUnsupportedProjection)
	}
	return set(d, p)
}

// SupportedMethodCodes returns the EPSG method codes the resolver can
// build, in ascending order.
func SupportedMethodCodes() []int {
	codes := make([]int, 0, len(projectionMethods))
	for code := range projectionMethods {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}
