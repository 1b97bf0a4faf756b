package parser

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/statement-intake/internal/classification"
	"github.com/Veraticus/statement-intake/internal/model"
	"github.com/Veraticus/statement-intake/internal/normalize"
)

// headerScanLines bounds the header search for period, account and columns.
const headerScanLines = 40

// cancelCheckEvery is how many lines are read between context checks.
const cancelCheckEvery = 256

var (
	openingBalance = regexp.MustCompile(`\b(OPENING BALANCE|BALANCE FORWARD|PREVIOUS BALANCE|STARTING BALANCE|BEGINNING BALANCE|SOLDE PRECEDENT|SOLDE D'OUVERTURE|SOLDE REPORTE|SOLDE ANTERIEUR)\b`)
	closingBalance = regexp.MustCompile(`\b(CLOSING BALANCE|ENDING BALANCE|NEW BALANCE|SOLDE DE FERMETURE|SOLDE FINAL|NOUVEAU SOLDE|TOTAL (DEPOSITS|WITHDRAWALS|CREDITS|DEBITS|FEES|PAYMENTS|PURCHASES)|TOTAUX|TOTAL DES|SUBTOTAL|SOUS-TOTAL)\b`)
	accountNumber  = regexp.MustCompile(`(?i)\b(?:account|acct|compte|folio|card)\b[^\d\n]{0,24}(\d[\d\- ]{2,}\d)`)
)

// column is a header title's rune span in fixed-width text.
type column struct {
	role  columnRole
	start int
	end   int
}

type columnRole int

const (
	roleDebit columnRole = iota
	roleCredit
	roleBalance
)

// textParser turns the lines of one text statement into candidates.
type textParser struct {
	layout   Layout
	detector *classification.PatternDetector
	dates    dateContext
	columns  []column
	source   string
	account  string

	prevBalance    decimal.Decimal
	hasBalance     bool
	lastDate       time.Time
	hasLastDate    bool
	continuationOK bool
	candidates     []model.TransactionCandidate
}

func newTextParser(source string, l Layout, detector *classification.PatternDetector, now time.Time) *textParser {
	return &textParser{
		layout:   l,
		detector: detector,
		source:   source,
		dates: dateContext{
			dayFirst: l.DayFirst,
			endYear:  now.Year(),
			endMonth: now.Month(),
		},
	}
}

// parseText runs the shared line engine for a text layout.
func (p *Parser) parseText(ctx context.Context, source, text string, l Layout) (Result, error) {
	lines := strings.Split(text, "\n")
	tp := newTextParser(source, l, p.detector, p.now())

	header := headerLines(lines)
	if year, month := periodEnd(header, tp.dates.dayFirst); year != 0 {
		tp.dates.endYear = year
		tp.dates.endMonth = month
	}
	tp.account = accountSuffix(header)

	for i, line := range lines {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		tp.parseLine(i+1, line)
	}

	return Result{
		Source:      source,
		Layout:      l.Kind,
		Bank:        l.Bank,
		AccountType: accountType(header),
		Candidates:  tp.finish(),
	}, nil
}

// headerLines returns the lines printed before the first dated line.
func headerLines(lines []string) []string {
	probe := dateContext{endYear: 2000}
	limit := min(len(lines), headerScanLines)
	for i := 0; i < limit; i++ {
		if _, _, ok := probe.leadingDate(strings.TrimSpace(lines[i])); ok {
			return lines[:i]
		}
	}
	return lines[:limit]
}

func (tp *textParser) parseLine(lineNo int, line string) {
	line = strings.TrimRight(line, " \t\r")
	text := strings.TrimLeft(line, " \t")
	if text == "" {
		tp.continuationOK = false
		return
	}
	indent := utf8.RuneCountInString(line) - utf8.RuneCountInString(text)

	date, consumed, dated := tp.dates.leadingDate(text)
	if dated {
		// A second leading date is the posting date; the first one is kept.
		if _, n, ok := tp.dates.leadingDate(text[consumed:]); ok {
			consumed += n
		}
	}

	body := text[consumed:]
	bodyOffset := indent + utf8.RuneCountInString(text[:consumed])
	amounts, desc := trailingAmounts(body, bodyOffset, tp.layout)
	desc = strings.TrimSpace(desc)
	folded := normalize.Normalize(desc)

	switch {
	case !dated && len(amounts) == 0:
		if cols := tp.detectColumns(line); cols != nil {
			tp.columns = cols
			tp.continuationOK = false
			return
		}
		if tp.continuationOK && indent >= 2 && len(tp.candidates) > 0 {
			last := &tp.candidates[len(tp.candidates)-1]
			last.Description = last.Description + " " + text
			return
		}
		tp.continuationOK = false
		return
	case openingBalance.MatchString(folded):
		if len(amounts) > 0 {
			tp.prevBalance = amounts[len(amounts)-1].signed()
			tp.hasBalance = true
		}
		tp.continuationOK = false
		return
	case closingBalance.MatchString(folded):
		tp.continuationOK = false
		return
	case len(amounts) == 0 || desc == "":
		tp.continuationOK = false
		return
	}

	if dated {
		tp.lastDate = date
		tp.hasLastDate = true
	} else if !tp.hasLastDate {
		tp.continuationOK = false
		return
	}

	amount, balance, hasBalance := tp.resolveAmount(amounts, folded)
	if hasBalance {
		tp.prevBalance = balance
		tp.hasBalance = true
	}

	c := model.NewCandidate(tp.lastDate, desc, amount, directionFromSign(amount))
	c.Account = tp.account
	c.SourceReference = fmt.Sprintf("%s#L%d", tp.source, lineNo)
	tp.candidates = append(tp.candidates, c)
	tp.continuationOK = true
}

// resolveAmount works out the signed transaction amount and any running balance.
// Header columns win, then explicit markers, then the balance delta, then description markers.
func (tp *textParser) resolveAmount(tokens []amountToken, folded string) (decimal.Decimal, decimal.Decimal, bool) {
	if amount, balance, hasBalance, ok := tp.byColumns(tokens); ok {
		return amount, balance, hasBalance
	}

	tok := tokens[0]
	var balance decimal.Decimal
	hasBalance := false
	if len(tokens) >= 2 {
		tok = tokens[len(tokens)-2]
		balance = tokens[len(tokens)-1].signed()
		hasBalance = true
	}
	if len(tokens) == 3 {
		// Both withdrawal and deposit printed; the net is what moved.
		net := tokens[1].value.Sub(tokens[0].value)
		return net, balance, true
	}

	switch {
	case tok.sign != 0:
		return tok.signed(), balance, hasBalance
	case hasBalance && tp.hasBalance:
		if tp.prevBalance.Add(tok.value).Equal(balance) {
			return tok.value, balance, true
		}
		if tp.prevBalance.Sub(tok.value).Equal(balance) {
			return tok.value.Neg(), balance, true
		}
	}

	if !tp.layout.UnsignedIsDebit {
		return tok.value, balance, hasBalance
	}
	if m := tp.detector.Classify(folded); m != nil && m.Type.IsMoneyIn() {
		return tok.value, balance, hasBalance
	}
	return tok.value.Neg(), balance, hasBalance
}

// byColumns assigns amounts to the nearest header column by right edge.
func (tp *textParser) byColumns(tokens []amountToken) (decimal.Decimal, decimal.Decimal, bool, bool) {
	if len(tp.columns) == 0 {
		return decimal.Zero, decimal.Zero, false, false
	}

	var amount, balance decimal.Decimal
	var hasMovement, hasBalance bool
	for _, tok := range tokens {
		col := tp.nearestColumn(tok)
		switch col.role {
		case roleDebit:
			amount = amount.Sub(tok.value)
			hasMovement = true
		case roleCredit:
			if tok.sign < 0 {
				amount = amount.Sub(tok.value)
			} else {
				amount = amount.Add(tok.value)
			}
			hasMovement = true
		case roleBalance:
			balance = tok.signed()
			hasBalance = true
		}
	}
	if !hasMovement {
		return decimal.Zero, decimal.Zero, false, false
	}
	return amount, balance, hasBalance, true
}

func (tp *textParser) nearestColumn(tok amountToken) column {
	best := tp.columns[0]
	bestDist := -1
	for _, col := range tp.columns {
		dist := abs(col.end - tok.end)
		if d := abs(col.start - tok.start); d < dist {
			dist = d
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = col, dist
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

var wordPattern = regexp.MustCompile(`\S+`)

// detectColumns recognizes a header line naming both debit and credit columns.
func (tp *textParser) detectColumns(line string) []column {
	var cols []column
	var debit, credit bool
	for _, loc := range wordPattern.FindAllStringIndex(line, -1) {
		word := normalize.Normalize(line[loc[0]:loc[1]])
		role, ok := tp.columnRole(word)
		if !ok {
			continue
		}
		start := utf8.RuneCountInString(line[:loc[0]])
		cols = append(cols, column{
			role:  role,
			start: start,
			end:   start + utf8.RuneCountInString(line[loc[0]:loc[1]]),
		})
		debit = debit || role == roleDebit
		credit = credit || role == roleCredit
	}
	if !debit || !credit {
		return nil
	}
	return cols
}

func (tp *textParser) columnRole(word string) (columnRole, bool) {
	switch {
	case contains(tp.layout.DebitHeaders, word):
		return roleDebit, true
	case contains(tp.layout.CreditHeaders, word):
		return roleCredit, true
	case contains(tp.layout.BalanceHeaders, word):
		return roleBalance, true
	}
	return 0, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// finish fills derived fields once continuation lines have been merged.
func (tp *textParser) finish() []model.TransactionCandidate {
	for i := range tp.candidates {
		fillDerived(&tp.candidates[i], tp.detector)
	}
	return tp.candidates
}

// fillDerived normalizes the description and marks transfers as "other".
func fillDerived(c *model.TransactionCandidate, detector *classification.PatternDetector) {
	c.Description = strings.Join(strings.Fields(c.Description), " ")
	c.NormalizedDescription = normalize.Normalize(c.Description)
	c.Merchant = normalize.Merchant(c.Description)
	if detector.Find(c.NormalizedDescription, classification.PatternTypeTransfer) != nil {
		c.Direction = model.DirectionOther
	}
}

func directionFromSign(amount decimal.Decimal) model.CashflowDirection {
	if amount.IsNegative() {
		return model.DirectionExpense
	}
	return model.DirectionIncome
}

func accountSuffix(header []string) string {
	for _, line := range header {
		m := accountNumber.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, m[1])
		if len(digits) >= 4 {
			return digits[len(digits)-4:]
		}
	}
	return ""
}

var accountTypeMarkers = []struct {
	re   *regexp.Regexp
	kind string
}{
	{regexp.MustCompile(`\b(VISA|MASTERCARD|AMEX|CREDIT CARD|CARTE DE CREDIT)\b`), "credit_card"},
	{regexp.MustCompile(`\b(SAVINGS|EPARGNE)\b`), "savings"},
	{regexp.MustCompile(`\b(CHEQUING|CHECKING|CHEQUES|COMPTE COURANT|OPERATIONS)\b`), "chequing"},
}

func accountType(header []string) string {
	folded := normalize.Normalize(strings.Join(header, " "))
	for _, marker := range accountTypeMarkers {
		if marker.re.MatchString(folded) {
			return marker.kind
		}
	}
	return ""
}
