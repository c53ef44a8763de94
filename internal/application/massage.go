package application

import "strings"

// datumEquivalents maps massaged datum names to their canonical spelling.
var datumEquivalents = [][2]string{
	{"Militar_Geographische_Institute", "Militar_Geographische_Institut"},
	{"WGS_1984", "World_Geodetic_System_1984"},
	{"WGS_1972_Transit_Broadcast_Ephemeris", "WGS_72_Transit_Broadcast_Ephemeris"},
	{"WGS_1972", "World_Geodetic_System_1972"},
	{"European_Reference_System_1989", "European_Terrestrial_Reference_System_89"},
}

// MassageDatumName turns a catalog datum name into its WKT form: an ESRI
// "D_" prefix is dropped, every character other than letters, digits and
// '+' becomes a single underscore, a trailing underscore is removed and a
// few well known names are replaced by their canonical spelling.
func MassageDatumName(name string) string {
	name = strings.TrimPrefix(name, "D_")

	var b strings.Builder
	b.Grow(len(name))
	underscore := false
	for _, c := range name {
		if isASCIIAlnum(c) || c == '+' {
			b.WriteRune(c)
			underscore = false
			continue
		}
		if !underscore {
			b.WriteByte('_')
			underscore = true
		}
	}
	out := strings.TrimSuffix(b.String(), "_")

	for _, eq := range datumEquivalents {
		if strings.EqualFold(out, eq[0]) {
			return eq[1]
		}
	}
	return out
}

func isASCIIAlnum(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
