package srs

import "strings"

var (
	stdParallels = []string{ParamStandardParallel1, ParamStandardParallel2}
	falseOrigins = []string{ParamFalseEasting, ParamFalseNorthing}
	originLL     = []string{ParamLatitudeOfOrigin, ParamCentralMeridian}
	centerLL     = []string{ParamLatitudeOfCenter, ParamLongitudeOfCenter}
)

func params(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// projectionParams lists the parameters each supported method accepts.
var projectionParams = map[string][]string{
	ProjAlbersConicEqualArea:               params(stdParallels, centerLL, falseOrigins),
	ProjAzimuthalEquidistant:               params(centerLL, falseOrigins),
	ProjBonne:                              params([]string{ParamStandardParallel1, ParamCentralMeridian}, falseOrigins),
	ProjCassiniSoldner:                     params(originLL, falseOrigins),
	ProjCylindricalEqualArea:               params([]string{ParamStandardParallel1, ParamCentralMeridian}, falseOrigins),
	ProjEquidistantConic:                   params(stdParallels, centerLL, falseOrigins),
	ProjEquirectangular:                    params(originLL, []string{ParamStandardParallel1}, falseOrigins),
	ProjGeostationarySatellite:             params([]string{ParamCentralMeridian, ParamSatelliteHeight}, falseOrigins),
	ProjGnomonic:                           params(originLL, falseOrigins),
	ProjHotineObliqueMercator:              params(centerLL, []string{ParamAzimuth, ParamRectifiedGridAngle, ParamScaleFactor}, falseOrigins),
	ProjHotineObliqueMercatorAzimuthCenter: params(centerLL, []string{ParamAzimuth, ParamRectifiedGridAngle, ParamScaleFactor}, falseOrigins),
	ProjKrovak:                             params(centerLL, []string{ParamAzimuth, ParamPseudoStdParallel1, ParamScaleFactor}, falseOrigins),
	ProjLambertAzimuthalEqualArea:          params(centerLL, falseOrigins),
	ProjLambertConformalConic1SP:           params(originLL, []string{ParamScaleFactor}, falseOrigins),
	ProjLambertConformalConic2SP:           params(stdParallels, originLL, falseOrigins),
	ProjLambertConformalConic2SPBelgium:    params(stdParallels, originLL, falseOrigins),
	ProjMercator1SP:                        params(originLL, []string{ParamScaleFactor}, falseOrigins),
	ProjMercator2SP:                        params([]string{ParamStandardParallel1}, originLL, falseOrigins),
	ProjMercatorAuxiliarySphere:            params([]string{ParamCentralMeridian, ParamStandardParallel1}, falseOrigins),
	ProjMollweide:                          params([]string{ParamCentralMeridian}, falseOrigins),
	ProjNewZealandMapGrid:                  params(originLL, falseOrigins),
	ProjObliqueStereographic:               params(originLL, []string{ParamScaleFactor}, falseOrigins),
	ProjOrthographic:                       params(originLL, falseOrigins),
	ProjPolarStereographic:                 params(originLL, []string{ParamScaleFactor}, falseOrigins),
	ProjPolyconic:                          params(originLL, falseOrigins),
	ProjRobinson:                           params([]string{ParamLongitudeOfCenter}, falseOrigins),
	ProjSinusoidal:                         params([]string{ParamLongitudeOfCenter}, falseOrigins),
	ProjStereographic:                      params(originLL, []string{ParamScaleFactor}, falseOrigins),
	ProjSwissObliqueCylindrical:            params([]string{ParamLatitudeOfCenter, ParamCentralMeridian}, falseOrigins),
	ProjTransverseMercator:                 params(originLL, []string{ParamScaleFactor}, falseOrigins),
	ProjTransverseMercatorSouthOriented:    params(originLL, []string{ParamScaleFactor}, falseOrigins),
	ProjTunisiaMiningGrid:                  params(originLL, falseOrigins),
	ProjVanDerGrinten:                      params([]string{ParamCentralMeridian}, falseOrigins),
}

// aliasGroups lists parameter names that may stand in for each other.
var aliasGroups = [][]string{
	{ParamLatitudeOfOrigin, ParamLatitudeOfCenter},
	{ParamCentralMeridian, ParamLongitudeOfCenter, ParamLongitudeOfOrigin},
}

// SupportedProjections returns the method names the validator accepts.
func SupportedProjections() []string {
	out := make([]string, 0, len(projectionParams))
	for k := range projectionParams {
		out = append(out, k)
	}
	return out
}

// IsSupportedProjection reports whether method is a known projection.
func IsSupportedProjection(method string) bool {
	_, ok := lookupMethod(method)
	return ok
}

func lookupMethod(method string) ([]string, bool) {
	if p, ok := projectionParams[method]; ok {
		return p, true
	}
	for k, p := range projectionParams {
		if strings.EqualFold(k, method) {
			return p, true
		}
	}
	return nil, false
}

// isParameterAllowed reports whether param is accepted for method, either
// by name or through an alias group.
func isParameterAllowed(method, param string) bool {
	allowed, ok := lookupMethod(method)
	if !ok {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(a, param) {
			return true
		}
	}
	for _, group := range aliasGroups {
		if !containsFold(group, param) {
			continue
		}
		for _, alias := range group {
			if containsFold(allowed, alias) {
				return true
			}
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
