package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/normalize"
)

// LayoutKind names a supported statement layout.
type LayoutKind string

// Supported layouts.
const (
	KindTD         LayoutKind = "td"
	KindRBC        LayoutKind = "rbc"
	KindDesjardins LayoutKind = "desjardins"
	KindGeneric    LayoutKind = "generic"
	KindOFX        LayoutKind = "ofx"
)

// Layout describes how one bank prints its statement lines.
// Text layouts share a single line engine; the fields below are the only
// per-bank differences. Adding a bank means adding a kind, a detection
// rule and an entry in layouts.
type Layout struct {
	Kind LayoutKind
	Bank string

	// DebitHeaders, CreditHeaders and BalanceHeaders are column titles, in
	// normalized form, used to locate amount columns in fixed-width text.
	DebitHeaders   []string
	CreditHeaders  []string
	BalanceHeaders []string

	// DayFirst resolves numeric dates where both parts could be a month.
	DayFirst bool
	// DecimalComma selects "1 234,56" amounts instead of "1,234.56".
	DecimalComma bool
	// UnsignedIsDebit treats amounts without an explicit sign as money out.
	UnsignedIsDebit bool
}

var englishDebit = []string{"WITHDRAWAL", "WITHDRAWALS", "CHEQUE DEBIT", "DEBIT", "DEBITS", "PAYMENTS"}
var englishCredit = []string{"DEPOSIT", "DEPOSITS", "DEPOSIT CREDIT", "CREDIT", "CREDITS"}
var frenchDebit = []string{"RETRAIT", "RETRAITS", "DEBIT", "DEBITS"}
var frenchCredit = []string{"DEPOT", "DEPOTS", "CREDIT", "CREDITS"}

var layouts = map[LayoutKind]Layout{
	KindTD: {
		Kind:            KindTD,
		Bank:            "TD Canada Trust",
		DebitHeaders:    englishDebit,
		CreditHeaders:   englishCredit,
		BalanceHeaders:  []string{"BALANCE"},
		UnsignedIsDebit: true,
	},
	KindRBC: {
		Kind:            KindRBC,
		Bank:            "RBC Royal Bank",
		DebitHeaders:    englishDebit,
		CreditHeaders:   englishCredit,
		BalanceHeaders:  []string{"BALANCE"},
		DayFirst:        true,
		UnsignedIsDebit: true,
	},
	KindDesjardins: {
		Kind:            KindDesjardins,
		Bank:            "Desjardins",
		DebitHeaders:    frenchDebit,
		CreditHeaders:   frenchCredit,
		BalanceHeaders:  []string{"SOLDE"},
		DayFirst:        true,
		DecimalComma:    true,
		UnsignedIsDebit: true,
	},
	KindGeneric: {
		Kind:           KindGeneric,
		DebitHeaders:   append(append([]string{}, englishDebit...), "RETRAIT", "RETRAITS"),
		CreditHeaders:  append(append([]string{}, englishCredit...), "DEPOT", "DEPOTS"),
		BalanceHeaders: []string{"BALANCE", "SOLDE"},
		DayFirst:       true,
	},
	KindOFX: {
		Kind: KindOFX,
	},
}

// LayoutFor returns the layout registered for kind.
func LayoutFor(kind LayoutKind) (Layout, bool) {
	l, ok := layouts[kind]
	return l, ok
}

// ParseLayoutKind validates a user supplied layout name. Empty means auto-detect.
func ParseLayoutKind(name string) (LayoutKind, error) {
	kind := LayoutKind(strings.ToLower(strings.TrimSpace(name)))
	if kind == "" {
		return "", nil
	}
	if _, ok := layouts[kind]; !ok {
		return "", fmt.Errorf("%w: unknown bank layout %q", common.ErrInvalidInput, name)
	}
	return kind, nil
}

type detectionRule struct {
	kind    LayoutKind
	markers *regexp.Regexp
}

// Rules are evaluated in order against the normalized document head.
var detectionRules = []detectionRule{
	{KindTD, regexp.MustCompile(`\bTD CANADA TRUST\b|\bTD BANK\b`)},
	{KindRBC, regexp.MustCompile(`\bROYAL BANK\b|\bRBC\b`)},
	{KindDesjardins, regexp.MustCompile(`\bDESJARDINS\b|\bRELEVE DE COMPTE\b|\bRELEVE\b`)},
}

// detectWindow bounds how much of a document is inspected for bank markers.
const detectWindow = 4096

// Detect picks a layout from header markers, falling back to generic.
func Detect(raw string) LayoutKind {
	head := raw
	if len(head) > detectWindow {
		head = head[:detectWindow]
	}
	upper := strings.ToUpper(head)
	if strings.Contains(upper, "OFXHEADER") || strings.Contains(upper, "<OFX>") {
		return KindOFX
	}

	folded := normalize.Normalize(head)
	for _, rule := range detectionRules {
		if rule.markers.MatchString(folded) {
			return rule.kind
		}
	}
	return KindGeneric
}
