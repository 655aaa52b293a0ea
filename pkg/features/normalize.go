package features

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// textNormalizer folds compatibility forms (fullwidth latin, ligatures) and
// strips zero-width/format characters that attackers use to break up
// suspicious tokens before pattern matching sees them.
var textNormalizer = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.In(unicode.Cf)),
	norm.NFC,
)

// NormalizeText returns text with Unicode compatibility forms folded and
// invisible format characters removed. On transform failure the original
// text is returned unchanged.
func NormalizeText(text string) string {
	if isPlainASCII(text) {
		return text
	}
	out, _, err := transform.String(textNormalizer, text)
	if err != nil {
		return text
	}
	return out
}

func isPlainASCII(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r > unicode.MaxASCII }) < 0
}
