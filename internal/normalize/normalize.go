// Package normalize canonicalizes free-text categorical fields so join
// keys and groupings line up across the three uploads.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Yes and No are the canonical forms for boolean-like survey fields.
const (
	Yes = "Sí"
	No  = "No"
)

var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var titler = cases.Title(language.Spanish)

// warehouses maps the short codes the WMS exports to the city names used
// everywhere else. Keys are folded.
var warehouses = map[string]string{
	"med":      "Medellín",
	"medellin": "Medellín",
	"bog":      "Bogotá",
	"bogota":   "Bogotá",
	"clo":      "Cali",
	"cali":     "Cali",
}

// cities covers the destination-city spellings seen in transaction dumps.
var cities = map[string]string{
	"bogota":       "Bogotá",
	"medellin":     "Medellín",
	"cali":         "Cali",
	"barranquilla": "Barranquilla",
	"cartagena":    "Cartagena",
	"bucaramanga":  "Bucaramanga",
}

var yesNo = map[string]string{
	"si":    Yes,
	"sí":    Yes,
	"yes":   Yes,
	"true":  Yes,
	"1":     Yes,
	"no":    No,
	"false": No,
	"0":     No,
}

// Fold trims, lowercases and strips diacritics. Missing input passes
// through unchanged.
func Fold(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToLower(strings.TrimSpace(s))
	out, _, err := transform.String(folder, s)
	if err != nil {
		return s
	}
	return out
}

// Warehouse maps a raw warehouse label to its canonical city name,
// falling back to the title-cased input when the code is unknown.
func Warehouse(s string) string {
	return lookup(s, warehouses)
}

// City maps a raw destination city to its canonical name, falling back
// to the title-cased input.
func City(s string) string {
	return lookup(s, cities)
}

// Category title-cases a folded category label. Categories are an open
// vocabulary, so there is no lookup table.
func Category(s string) string {
	if s == "" {
		return s
	}
	return titler.String(Fold(s))
}

// YesNo normalizes the many textual encodings of a boolean survey answer
// to Yes/No. Unrecognized literals map to missing; the caller counts them.
func YesNo(s string) (string, bool) {
	if s == "" {
		return "", true
	}
	v, ok := yesNo[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		// retry folded: "SÍ" lowers to "sí" which is mapped, but odd
		// encodings like "Sì" are not
		v, ok = yesNo[Fold(s)]
	}
	if !ok {
		return "", false
	}
	return v, true
}

func lookup(s string, vocab map[string]string) string {
	if s == "" {
		return s
	}
	if v, ok := vocab[Fold(s)]; ok {
		return v
	}
	return titler.String(Fold(s))
}
