package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/statement-intake/internal/common"
)

const (
	currencyPart = `(?:\$|CAD\s?|€)?`
	dotNumber    = `(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}`
	commaNumber  = `(?:\d{1,3}(?:[ \x{00a0}\x{202f}.]\d{3})+|\d+),\d{2}`
	amountSuffix = `(?:\s?(?:\$|CAD|€))?(?:\s?(?i:CR|DR)|-)?`
)

func amountPattern(number string) string {
	return `\(?[-+]?` + currencyPart + `[-+]?` + number + `\)?` + amountSuffix
}

var (
	trailingDotAmount   = regexp.MustCompile(`(?:^|\s)(` + amountPattern(dotNumber) + `)\s*$`)
	trailingCommaAmount = regexp.MustCompile(`(?:^|\s)(` + amountPattern(commaNumber) + `)\s*$`)
	trailingAnyAmount   = regexp.MustCompile(`(?:^|\s)(` + amountPattern(`(?:`+dotNumber+`|`+commaNumber+`)`) + `)\s*$`)
)

// maxAmountColumns is debit, credit and balance.
const maxAmountColumns = 3

// amountToken is one amount printed on a statement line.
type amountToken struct {
	value decimal.Decimal // Absolute value
	sign  int             // -1 marked as money out, +1 marked as money in, 0 unmarked
	start int             // Rune offsets within the line
	end   int
}

// signed applies the explicit marker, treating unmarked amounts as positive.
func (t amountToken) signed() decimal.Decimal {
	if t.sign < 0 {
		return t.value.Neg()
	}
	return t.value
}

var (
	currencyStripper = strings.NewReplacer("CAD", "", "$", "", "€", "")
	spaceFolder      = strings.NewReplacer("\u00a0", " ", "\u202f", " ")
)

// ParseAmount converts a printed amount into a signed decimal.
// It accepts currency symbols, thousands separators (comma, dot, space or
// non-breaking space), a trailing minus, parentheses and CR/DR markers.
// decimalComma resolves "1,234" style inputs where the separator could be either.
func ParseAmount(s string, decimalComma bool) (decimal.Decimal, error) {
	tok, err := parseAmountToken(s, decimalComma)
	if err != nil {
		return decimal.Zero, err
	}
	return tok.signed(), nil
}

func parseAmountToken(s string, decimalComma bool) (amountToken, error) {
	invalid := fmt.Errorf("%w: invalid amount %q", common.ErrInvalidInput, s)

	text := spaceFolder.Replace(strings.TrimSpace(s))
	text = strings.ToUpper(text)

	var tok amountToken
	switch {
	case strings.HasSuffix(text, "CR"):
		tok.sign = 1
		text = strings.TrimSuffix(text, "CR")
	case strings.HasSuffix(text, "DR"):
		tok.sign = -1
		text = strings.TrimSuffix(text, "DR")
	}

	text = strings.TrimSpace(currencyStripper.Replace(text))

	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		tok.sign = -1
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	if strings.HasSuffix(text, "-") {
		tok.sign = -1
		text = strings.TrimSpace(strings.TrimSuffix(text, "-"))
	}
	if strings.HasPrefix(text, "-") {
		tok.sign = -1
		text = strings.TrimSpace(strings.TrimPrefix(text, "-"))
	} else if strings.HasPrefix(text, "+") {
		tok.sign = 1
		text = strings.TrimSpace(strings.TrimPrefix(text, "+"))
	}

	number, ok := canonicalNumber(text, decimalComma)
	if !ok {
		return amountToken{}, invalid
	}

	value, err := decimal.NewFromString(number)
	if err != nil {
		return amountToken{}, invalid
	}
	tok.value = value.Abs()
	return tok, nil
}

// canonicalNumber rewrites a localized number as plain digits with an optional "." decimal point.
func canonicalNumber(text string, decimalComma bool) (string, bool) {
	text = strings.ReplaceAll(text, " ", "")
	if text == "" {
		return "", false
	}

	sep := strings.LastIndexAny(text, ".,")
	decimalAt := -1
	if sep >= 0 {
		fraction := len(text) - sep - 1
		isDecimal := fraction != 3
		if fraction == 3 {
			isDecimal = (text[sep] == ',') == decimalComma
		}
		if isDecimal {
			decimalAt = sep
		}
	}

	var b strings.Builder
	for i, r := range text {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case i == decimalAt:
			b.WriteByte('.')
		case r == ',' || r == '.':
			if decimalAt >= 0 && i > decimalAt {
				return "", false
			}
		default:
			return "", false
		}
	}

	out := b.String()
	if out == "" || out == "." {
		return "", false
	}
	return out, true
}

// trailingAmounts peels up to three amounts off the end of text, returning
// them left to right along with the remaining text. offset is the rune
// position of text within its line.
func trailingAmounts(text string, offset int, l Layout) ([]amountToken, string) {
	re := trailingDotAmount
	switch {
	case l.DecimalComma:
		re = trailingCommaAmount
	case l.Kind == KindGeneric:
		re = trailingAnyAmount
	}

	var tokens []amountToken
	rest := text
	for len(tokens) < maxAmountColumns {
		m := re.FindStringSubmatchIndex(rest)
		if m == nil {
			break
		}
		raw := rest[m[2]:m[3]]
		tok, err := parseAmountToken(raw, l.DecimalComma || looksCommaDecimal(raw))
		if err != nil {
			break
		}
		tok.start = offset + utf8.RuneCountInString(rest[:m[2]])
		tok.end = tok.start + utf8.RuneCountInString(raw)
		tokens = append(tokens, tok)
		rest = strings.TrimRight(rest[:m[0]], " \t\u00a0")
	}

	// Collected right to left.
	for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}
	return tokens, rest
}

var commaDecimalSuffix = regexp.MustCompile(`,\d{2}\)?\s*(?:\$|CAD|€)?\s*(?i:CR|DR)?-?$`)

func looksCommaDecimal(raw string) bool {
	return commaDecimalSuffix.MatchString(raw)
}
