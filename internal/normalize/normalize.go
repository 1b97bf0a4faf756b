// Package normalize canonicalizes statement descriptions for matching.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that do not decompose into a base letter plus a combining mark.
var ligatures = strings.NewReplacer(
	"Œ", "OE", "œ", "oe",
	"Æ", "AE", "æ", "ae",
	"Ø", "O", "ø", "o",
	"Ł", "L", "ł", "l",
	"Đ", "D", "đ", "d",
)

// Normalize returns the canonical matching form of text.
// It upper-cases, folds accents to base Latin letters, drops punctuation that is
// not part of a merchant token and collapses whitespace. It never fails and
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	folded := foldAccents(ligatures.Replace(text))
	upper := cases.Upper(language.Und).String(folded)

	src := []rune(upper)
	var b strings.Builder
	b.Grow(len(upper))
	pendingSpace := false

	for i, r := range src {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '&':
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case isJoiner(r) && joined(src, i):
			// Joiners only survive between two alphanumerics, so never after a space.
			b.WriteRune(canonicalJoiner(r))
		default:
			pendingSpace = true
		}
	}

	return b.String()
}

// foldAccents strips combining marks after canonical decomposition.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isJoiner(r rune) bool {
	switch r {
	case '\'', '’', '.', '-':
		return true
	}
	return false
}

func canonicalJoiner(r rune) rune {
	if r == '’' {
		return '\''
	}
	return r
}

// joined reports whether the joiner at i sits directly between two alphanumerics.
func joined(src []rune, i int) bool {
	if i == 0 || i == len(src)-1 {
		return false
	}
	return isAlnum(src[i-1]) && isAlnum(src[i+1])
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

var (
	leadingDate   = regexp.MustCompile(`^\d{1,2}[/-]\d{1,2}([/-]\d{2,4})?\s+`)
	storeNumber   = regexp.MustCompile(`\s*#\s*\d+\s*$`)
	longReference = regexp.MustCompile(`(\s+\d{6,})+$`)
)

// Card and point-of-sale prefixes, English and French, longest first.
var merchantPrefixes = []string{
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"INTERAC PURCHASE ",
	"ACHAT PAR CARTE ",
	"VISA PURCHASE ",
	"VISA DEBIT ",
	"POS PURCHASE ",
	"DEBIT PURCHASE ",
	"MC PURCHASE ",
	"CHECK CARD ",
	"ACH DEBIT ",
	"ACHAT DIRECT ",
	"PAIEMENT ",
	"ACHAT ",
	"POS ",
	"IDP ",
}

// Merchant extracts a short merchant name from a raw description.
// Card prefixes, leading dates, long reference numbers and trailing store
// numbers are removed before normalizing. The result may be empty.
func Merchant(description string) string {
	name := strings.TrimSpace(description)
	name = leadingDate.ReplaceAllString(name, "")

	name = strings.ToUpper(name)
	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(name, prefix) {
			name = name[len(prefix):]
			break
		}
	}

	name = leadingDate.ReplaceAllString(strings.TrimSpace(name), "")
	name = storeNumber.ReplaceAllString(name, "")

	out := Normalize(name)
	out = longReference.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
