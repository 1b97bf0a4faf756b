package parser

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes common formatting issues in OFX files.
func preprocessOFX(content string) string {
	// Trim any leading whitespace or blank lines before the header
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Fix missing closing angle brackets in SGML-style OFX files
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// parseOFX reads bank and credit card statements from an OFX/QFX document.
func (p *Parser) parseOFX(ctx context.Context, source, content string) (Result, error) {
	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(content)))
	if err != nil {
		return Result{}, common.NewParseError(source, "invalid OFX document", err)
	}

	result := Result{
		Source: source,
		Layout: KindOFX,
		Bank:   strings.TrimSpace(string(resp.Signon.Org)),
	}
	if result.Bank == "" {
		result.Bank = "OFX"
	}

	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		bankStmts++
		if result.AccountType == "" {
			result.AccountType = strings.ToLower(stmt.BankAcctFrom.AcctType.String())
		}
		account := lastFour(string(stmt.BankAcctFrom.AcctID))
		for _, tx := range stmt.BankTranList.Transactions {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			c, err := p.convertTransaction(source, tx, account)
			if err != nil {
				slog.Warn("Skipping OFX transaction", "source", source, "fitid", string(tx.FiTID), "error", err)
				continue
			}
			result.Candidates = append(result.Candidates, c)
		}
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		ccStmts++
		if result.AccountType == "" {
			result.AccountType = "credit_card"
		}
		account := lastFour(string(stmt.CCAcctFrom.AcctID))
		for _, tx := range stmt.BankTranList.Transactions {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			c, err := p.convertTransaction(source, tx, account)
			if err != nil {
				slog.Warn("Skipping OFX transaction", "source", source, "fitid", string(tx.FiTID), "error", err)
				continue
			}
			result.Candidates = append(result.Candidates, c)
		}
	}

	slog.Debug("Parsed OFX file",
		"source", source,
		"total_transactions", len(result.Candidates),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return result, nil
}

// convertTransaction converts an OFX transaction to a candidate.
func (p *Parser) convertTransaction(source string, tx ofxgo.Transaction, account string) (model.TransactionCandidate, error) {
	amount, err := decimal.NewFromString(tx.TrnAmt.FloatString(2))
	if err != nil {
		return model.TransactionCandidate{}, fmt.Errorf("amount: %w", err)
	}
	if tx.DtPosted.IsZero() {
		return model.TransactionCandidate{}, fmt.Errorf("missing posted date")
	}

	c := model.NewCandidate(tx.DtPosted.Time, describe(tx), amount, directionFromSign(amount))
	c.Account = account
	c.SourceReference = fmt.Sprintf("%s#%s", source, string(tx.FiTID))
	fillDerived(&c, p.detector)
	if tx.TrnType == ofxgo.TrnTypeXfer {
		c.Direction = model.DirectionOther
	}
	return c, nil
}

// describe picks the most informative description from OFX data.
func describe(tx ofxgo.Transaction) string {
	name := strings.TrimSpace(string(tx.Name))
	if tx.Payee != nil && tx.Payee.Name != "" {
		name = strings.TrimSpace(string(tx.Payee.Name))
	}

	// Use MEMO field if NAME is generic
	if tx.Memo != "" && (name == "" || isGenericDescription(name)) {
		name = strings.TrimSpace(string(tx.Memo))
	}
	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE", "ACHAT", "PAIEMENT":
		return true
	}
	return false
}

func lastFour(id string) string {
	id = strings.TrimSpace(id)
	if len(id) <= 4 {
		return id
	}
	return id[len(id)-4:]
}
