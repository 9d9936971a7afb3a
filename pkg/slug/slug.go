package slug

import (
	"regexp"
	"strings"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// latinFolder maps accented Latin letters common in destination names to
// their ASCII base letter.
var latinFolder = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ã", "a", "ä", "a", "å", "a",
	"ç", "c", "č", "c",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ğ", "g",
	"ì", "i", "í", "i", "î", "i", "ï", "i", "ı", "i",
	"ñ", "n",
	"ò", "o", "ó", "o", "ô", "o", "õ", "o", "ö", "o", "ø", "o",
	"ş", "s", "š", "s", "ß", "ss",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
	"ý", "y", "ÿ", "y",
	"ž", "z",
)

// Generate creates a URL-friendly slug from the given name. It is used to
// derive tour IDs from titles.
//
// Examples:
//   - "Westminster Bridge" → "westminster-bridge"
//   - "Bali, Indonesia" → "bali-indonesia"
//   - "Côte d'Azur" → "cote-d-azur"
func Generate(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = latinFolder.Replace(slug)

	// Any run of non-alphanumerics becomes a single hyphen.
	slug = slugRegexp.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}
