package srs

// Projection method names as they appear in PROJECTION nodes.
const (
	ProjAlbersConicEqualArea               = "Albers_Conic_Equal_Area"
	ProjAzimuthalEquidistant               = "Azimuthal_Equidistant"
	ProjBonne                              = "Bonne"
	ProjCassiniSoldner                     = "Cassini_Soldner"
	ProjCylindricalEqualArea               = "Cylindrical_Equal_Area"
	ProjEquidistantConic                   = "Equidistant_Conic"
	ProjEquirectangular                    = "Equirectangular"
	ProjGeostationarySatellite             = "Geostationary_Satellite"
	ProjGnomonic                           = "Gnomonic"
	ProjHotineObliqueMercator              = "Hotine_Oblique_Mercator"
	ProjHotineObliqueMercatorAzimuthCenter = "Hotine_Oblique_Mercator_Azimuth_Center"
	ProjKrovak                             = "Krovak"
	ProjLabordeObliqueMercator             = "Laborde_Oblique_Mercator"
	ProjLambertAzimuthalEqualArea          = "Lambert_Azimuthal_Equal_Area"
	ProjLambertConformalConic1SP           = "Lambert_Conformal_Conic_1SP"
	ProjLambertConformalConic2SP           = "Lambert_Conformal_Conic_2SP"
	ProjLambertConformalConic2SPBelgium    = "Lambert_Conformal_Conic_2SP_Belgium"
	ProjMercator1SP                        = "Mercator_1SP"
	ProjMercator2SP                        = "Mercator_2SP"
	ProjMercatorAuxiliarySphere            = "Mercator_Auxiliary_Sphere"
	ProjMollweide                          = "Mollweide"
	ProjNewZealandMapGrid                  = "New_Zealand_Map_Grid"
	ProjObliqueStereographic               = "Oblique_Stereographic"
	ProjOrthographic                       = "Orthographic"
	ProjPolarStereographic                 = "Polar_Stereographic"
	ProjPolyconic                          = "Polyconic"
	ProjRobinson                           = "Robinson"
	ProjSinusoidal                         = "Sinusoidal"
	ProjStereographic                      = "Stereographic"
	ProjSwissObliqueCylindrical            = "Swiss_Oblique_Cylindrical"
	ProjTransverseMercator                 = "Transverse_Mercator"
	ProjTransverseMercatorSouthOriented    = "Transverse_Mercator_South_Orientated"
	ProjTunisiaMiningGrid                  = "Tunisia_Mining_Grid"
	ProjVanDerGrinten                      = "VanDerGrinten"
)

// Projection parameter names.
const (
	ParamCentralMeridian        = "central_meridian"
	ParamScaleFactor            = "scale_factor"
	ParamStandardParallel1      = "standard_parallel_1"
	ParamStandardParallel2      = "standard_parallel_2"
	ParamPseudoStdParallel1     = "pseudo_standard_parallel_1"
	ParamLongitudeOfCenter      = "longitude_of_center"
	ParamLatitudeOfCenter       = "latitude_of_center"
	ParamLongitudeOfOrigin      = "longitude_of_origin"
	ParamLatitudeOfOrigin       = "latitude_of_origin"
	ParamFalseEasting           = "false_easting"
	ParamFalseNorthing          = "false_northing"
	ParamAzimuth                = "azimuth"
	ParamRectifiedGridAngle     = "rectified_grid_angle"
	ParamSatelliteHeight        = "satellite_height"
	ParamLongitudeOfPoint1      = "longitude_of_point_1"
	ParamLatitudeOfPoint1       = "latitude_of_point_1"
	ParamLongitudeOfPoint2      = "longitude_of_point_2"
	ParamLatitudeOfPoint2       = "latitude_of_point_2"
	ParamPerspectivePointHeight = "perspective_point_height"
)

// Unit names and conversion factors.
const (
	UnitMeter            = "Meter"
	UnitMetre            = "metre"
	UnitFoot             = "Foot (International)"
	UnitFootConv         = 0.3048
	UnitUSFoot           = "Foot_US"
	UnitUSFootConv       = 0.3048006096012192
	UnitNauticalMile     = "Nautical Mile"
	UnitNauticalMileConv = 1852.0
	UnitLink             = "Link"
	UnitLinkConv         = 0.20116684023368047
	UnitChain            = "Chain"
	UnitChainConv        = 20.116684023368047

	UnitDegree     = "degree"
	UnitDegreeConv = 0.0174532925199433
	UnitRadian     = "radian"
)

// Datum, prime meridian and ellipsoid constants.
const (
	PrimeMeridianGreenwich = "Greenwich"

	DatumNAD27 = "North_American_Datum_1927"
	DatumNAD83 = "North_American_Datum_1983"
	DatumWGS72 = "World_Geodetic_System_1972"
	DatumWGS84 = "World_Geodetic_System_1984"

	WGS84SemiMajor     = 6378137.0
	WGS84InvFlattening = 298.257223563
)

// Comparison tolerances.
const (
	PrimeMeridianTolerance = 1e-8
	AngularUnitTolerance   = 1e-8
	SemiMajorTolerance     = 0.01
	FlatteningTolerance    = 1e-4
	TOWGS84Tolerance       = 1e-5
)

// WKTWGS84 is the canonical WGS 84 geographic definition.
const WKTWGS84 = `GEOGCS["WGS 84",DATUM["World_Geodetic_System_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],TOWGS84[0,0,0,0,0,0,0],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9108"]],AUTHORITY["EPSG","4326"]]`

const (
	wktWGS72 = `GEOGCS["WGS 72",DATUM["World_Geodetic_System_1972",SPHEROID["WGS 72",6378135,298.26,AUTHORITY["EPSG","7043"]],TOWGS84[0,0,4.5,0,0,0.554,0.2263],AUTHORITY["EPSG","6322"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9108"]],AUTHORITY["EPSG","4322"]]`
	wktNAD27 = `GEOGCS["NAD27",DATUM["North_American_Datum_1927",SPHEROID["Clarke 1866",6378206.4,294.978698213898,AUTHORITY["EPSG","7008"]],AUTHORITY["EPSG","6267"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9108"]],AUTHORITY["EPSG","4267"]]`
	wktNAD83 = `GEOGCS["NAD83",DATUM["North_American_Datum_1983",SPHEROID["GRS 1980",6378137,298.257222101,AUTHORITY["EPSG","7019"]],TOWGS84[0,0,0,0,0,0,0],AUTHORITY["EPSG","6269"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9108"]],AUTHORITY["EPSG","4269"]]`
)
