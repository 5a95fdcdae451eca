package derive

import (
	"strings"
	"unicode"

	"github.com/gosimple/slug"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify lowercases s, strips diacritics and replaces runs of characters
// other than letters and digits with a single hyphen.
//
//	Slugify("Déjà Vu: GraphQL & React") // "deja-vu-graphql-and-react"
func Slugify(s string) string {
	return slug.MakeLang(separators.Replace(stripDiacritics(s)), "en")
}

// separators are runes slug drops or keeps that must split words instead.
var separators = strings.NewReplacer(
	"_", "-",
	"'", "-",
	"\u2018", "-",
	"\u2019", "-",
	"\"", "-",
	"\u201c", "-",
	"\u201d", "-",
)

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
