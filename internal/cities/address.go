// =============================================================================
// Fish Reports - Address Codec
// =============================================================================

package cities

import "strings"

// Source addresses follow the "City, Street NN" convention. These helpers
// split them; they never fail, returning "" / the trimmed input when the
// convention is not met.

// authorityPrefixes are abbreviations occasionally prepended to the city
// part of an address that do not appear in the official city list.
var authorityPrefixes = []string{"א.", "ע."}

// CityPart extracts the city name from a full address: the text before the
// first comma, with authority abbreviations stripped.
func CityPart(address string) string {
	city, _, _ := strings.Cut(address, ",")
	for _, p := range authorityPrefixes {
		city = strings.ReplaceAll(city, p, "")
	}
	return strings.TrimSpace(city)
}

// StreetOnly returns the street portion of an address: the text after the
// first comma. An address with no comma is assumed to already be
// street-only and is returned trimmed.
func StreetOnly(address string) string {
	_, street, found := strings.Cut(address, ",")
	if !found {
		return strings.TrimSpace(address)
	}
	return strings.TrimSpace(street)
}

// CityCodeFor resolves an address to the code of its city, or "" when the
// city cannot be extracted or is unknown to the directory.
func (d *Directory) CityCodeFor(address string) string {
	city := CityPart(address)
	if city == "" {
		return ""
	}
	return d.CodeForName(city)
}
