package aggregation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MatchesSearch cherche term dans la concaténation des champs, sans tenir
// compte de la casse ni des accents ("elodie" trouve "Élodie"). Un terme vide
// correspond à tout.
func MatchesSearch(term string, fields ...string) bool {
	needle := fold(term)
	if needle == "" {
		return true
	}
	return strings.Contains(fold(strings.Join(fields, " ")), needle)
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Join(strings.Fields(out), " "))
}
