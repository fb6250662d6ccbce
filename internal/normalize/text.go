package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents rozkłada tekst (NFD), wyrzuca znaki łączące i zamienia ñ/Ñ.
func StripAccents(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.NewReplacer("ñ", "n", "Ñ", "N").Replace(out)
}

// Name is the vendor matching form: trimmed, upper-cased, without accents.
// Both the feed side and the vendedores table go through it.
func Name(s string) string {
	return StripAccents(strings.ToUpper(strings.TrimSpace(s)))
}

// cleanText: trim + upper, pusty wynik -> nil.
func cleanText(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.ToUpper(s)
}

// NoBreakSpaces replaces U+00A0 with a regular space (CRM money cells).
func NoBreakSpaces(s string) string {
	return strings.ReplaceAll(s, "\u00a0", " ")
}
