package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/statement-intake/internal/normalize"
)

// monthNames maps normalized English and French month names and abbreviations.
var monthNames = map[string]time.Month{
	"JAN": time.January, "JANUARY": time.January, "JANV": time.January, "JANVIER": time.January,
	"FEB": time.February, "FEBRUARY": time.February, "FEV": time.February, "FEVR": time.February, "FEVRIER": time.February,
	"MAR": time.March, "MARCH": time.March, "MARS": time.March,
	"APR": time.April, "APRIL": time.April, "AVR": time.April, "AVRIL": time.April,
	"MAY": time.May, "MAI": time.May,
	"JUN": time.June, "JUNE": time.June, "JUIN": time.June,
	"JUL": time.July, "JULY": time.July, "JUIL": time.July, "JUILLET": time.July,
	"AUG": time.August, "AUGUST": time.August, "AOU": time.August, "AOUT": time.August,
	"SEP": time.September, "SEPT": time.September, "SEPTEMBER": time.September, "SEPTEMBRE": time.September,
	"OCT": time.October, "OCTOBER": time.October, "OCTOBRE": time.October,
	"NOV": time.November, "NOVEMBER": time.November, "NOVEMBRE": time.November,
	"DEC": time.December, "DECEMBER": time.December, "DECEMBRE": time.December,
}

func monthFromName(name string) (time.Month, bool) {
	m, ok := monthNames[normalize.Normalize(name)]
	return m, ok
}

type dateForm int

const (
	formISO dateForm = iota
	formNumericYear
	formDayMonthName
	formMonthNameDay
	formNumeric
)

type datePattern struct {
	re   *regexp.Regexp
	form dateForm
}

// Leading date shapes, tried in order. Forms carrying a year come first.
var datePatterns = []datePattern{
	{regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:\s+|$)`), formISO},
	{regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})(?:\s+|$)`), formNumericYear},
	{regexp.MustCompile(`^(\d{1,2})[\s\-]?(\pL{3,9})\.?(?:[\s\-,]+((?:19|20)\d{2}))?(?:\s+|$)`), formDayMonthName},
	{regexp.MustCompile(`^(\pL{3,9})\.?\s?(\d{1,2})(?:,?\s+((?:19|20)\d{2}))?(?:\s+|$)`), formMonthNameDay},
	{regexp.MustCompile(`^(\d{1,2})[/\-](\d{1,2})(?:\s+|$)`), formNumeric},
}

// dateContext carries what a statement tells us about its dates.
type dateContext struct {
	endYear  int        // Year the statement period ends, 0 when unknown
	endMonth time.Month // Month the statement period ends, 0 when unknown
	dayFirst bool
}

// leadingDate parses a date at the start of text and returns the byte length consumed.
func (dc dateContext) leadingDate(text string) (time.Time, int, bool) {
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if t, ok := dc.resolve(p.form, m[1:]); ok {
			return t, len(m[0]), true
		}
	}
	return time.Time{}, 0, false
}

func (dc dateContext) resolve(form dateForm, parts []string) (time.Time, bool) {
	var year, day int
	var month time.Month

	switch form {
	case formISO:
		year, _ = strconv.Atoi(parts[0])
		m, _ := strconv.Atoi(parts[1])
		month = time.Month(m)
		day, _ = strconv.Atoi(parts[2])
	case formNumericYear, formNumeric:
		a, _ := strconv.Atoi(parts[0])
		b, _ := strconv.Atoi(parts[1])
		d, m, ok := dc.order(a, b)
		if !ok {
			return time.Time{}, false
		}
		day, month = d, time.Month(m)
		if form == formNumericYear {
			year = expandYear(parts[2])
		}
	case formDayMonthName:
		m, ok := monthFromName(parts[1])
		if !ok {
			return time.Time{}, false
		}
		day, _ = strconv.Atoi(parts[0])
		month = m
		if parts[2] != "" {
			year, _ = strconv.Atoi(parts[2])
		}
	case formMonthNameDay:
		m, ok := monthFromName(parts[0])
		if !ok {
			return time.Time{}, false
		}
		month = m
		day, _ = strconv.Atoi(parts[1])
		if parts[2] != "" {
			year, _ = strconv.Atoi(parts[2])
		}
	}

	if year == 0 {
		year = dc.inferYear(month)
	}
	return validDate(year, month, day)
}

// order splits a numeric a/b date into day and month.
// Unambiguous values decide on their own; otherwise the layout's order wins.
func (dc dateContext) order(a, b int) (int, int, bool) {
	switch {
	case a < 1 || b < 1:
		return 0, 0, false
	case a > 12 && b > 12:
		return 0, 0, false
	case a > 12:
		return a, b, true
	case b > 12:
		return b, a, true
	case dc.dayFirst:
		return a, b, true
	default:
		return b, a, true
	}
}

// inferYear places a year-less date inside the statement period.
// Months after the period's closing month belong to the previous year.
func (dc dateContext) inferYear(month time.Month) int {
	if dc.endYear == 0 {
		return 0
	}
	if dc.endMonth != 0 && month > dc.endMonth {
		return dc.endYear - 1
	}
	return dc.endYear
}

func expandYear(s string) int {
	y, _ := strconv.Atoi(s)
	if len(s) == 2 {
		y += 2000
	}
	return y
}

func validDate(year int, month time.Month, day int) (time.Time, bool) {
	if year == 0 || month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

var (
	periodMarker = regexp.MustCompile(`\b(STATEMENT PERIOD|STATEMENT DATE|PERIOD|PERIODE|RELEVE DU|FROM|DU)\b`)
	yearToken    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	isoInLine    = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	numericYear  = regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})\b`)
)

// periodEnd finds the closing year and month of the statement period from its header.
func periodEnd(lines []string, dayFirst bool) (int, time.Month) {
	var fallbackYear int
	for _, line := range lines {
		folded := normalize.Normalize(line)
		if !periodMarker.MatchString(folded) {
			if fallbackYear == 0 {
				if y := yearToken.FindString(folded); y != "" {
					fallbackYear, _ = strconv.Atoi(y)
				}
			}
			continue
		}
		if year, month, ok := lastDateIn(line, folded, dayFirst); ok {
			return year, month
		}
	}
	return fallbackYear, 0
}

// lastDateIn returns the year and month of the last full date printed on a line.
func lastDateIn(line, folded string, dayFirst bool) (int, time.Month, bool) {
	if all := isoInLine.FindAllStringSubmatch(line, -1); len(all) > 0 {
		last := all[len(all)-1]
		y, _ := strconv.Atoi(last[1])
		m, _ := strconv.Atoi(last[2])
		return y, time.Month(m), true
	}
	if all := numericYear.FindAllStringSubmatch(line, -1); len(all) > 0 {
		last := all[len(all)-1]
		a, _ := strconv.Atoi(last[1])
		b, _ := strconv.Atoi(last[2])
		_, m, ok := dateContext{dayFirst: dayFirst}.order(a, b)
		y, _ := strconv.Atoi(last[3])
		return y, time.Month(m), ok
	}

	var year int
	var month time.Month
	for _, word := range strings.Fields(folded) {
		if m, ok := monthNames[word]; ok {
			month = m
			continue
		}
		if yearToken.MatchString(word) && len(word) == 4 {
			year, _ = strconv.Atoi(word)
		}
	}
	if year == 0 {
		return 0, 0, false
	}
	return year, month, true
}
