package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/intake"
	"github.com/Veraticus/statement-intake/internal/model"
)

const (
	dateLayout       = "2006-01-02"
	descriptionWidth = 40
	amountColumn     = 2
)

type bucketView struct {
	title        string
	transactions []model.TransactionCandidate
}

// RenderResult writes the per-file summary and the review buckets of res.
// Duplicates are listed only when showDuplicates is set.
func RenderResult(w io.Writer, res *intake.Result, showDuplicates bool) error {
	var b strings.Builder

	b.WriteString(FormatTitle("Statement intake"))
	b.WriteString("\n")
	for _, f := range res.Files {
		b.WriteString(formatFile(f))
		b.WriteString("\n")
	}

	if res.NeedsReview {
		b.WriteString(FormatWarning("Duplicate check unavailable, every transaction needs manual review"))
		b.WriteString("\n")
		if res.DedupErr != nil {
			b.WriteString(SubtleStyle.Render("  " + res.DedupErr.Error()))
			b.WriteString("\n")
		}
	}

	buckets := []bucketView{
		{"Needs a category", res.Buckets.Uncategorized},
		{"Expenses", res.Buckets.Expenses},
		{"Income", res.Buckets.Income},
	}
	if showDuplicates {
		buckets = append(buckets, bucketView{"Already imported", res.Buckets.Duplicates})
	}

	for _, bucket := range buckets {
		if len(bucket.transactions) == 0 {
			continue
		}
		title := fmt.Sprintf("%s (%d)", bucket.title, len(bucket.transactions))
		b.WriteString("\n")
		b.WriteString(RenderBox(title, TransactionTable(bucket.transactions)))
		b.WriteString("\n")
	}

	if n := len(res.Buckets.Duplicates); n > 0 && !showDuplicates {
		b.WriteString("\n")
		b.WriteString(FormatInfo(fmt.Sprintf("%d already imported transactions hidden", n)))
		b.WriteString("\n")
	}
	if res.Buckets.Total() == len(res.Buckets.Duplicates) {
		b.WriteString(FormatWarning("No transactions to review"))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatFile(f intake.FileResult) string {
	switch {
	case f.Err != nil:
		return FormatError(fmt.Sprintf("%s: %v", f.Source, f.Err))
	case f.Warning != nil:
		return FormatWarning(fmt.Sprintf("%s: %v", f.Source, f.Warning))
	}

	account := f.Bank
	if f.AccountType != "" {
		account += " " + f.AccountType
	}
	return FormatSuccess(fmt.Sprintf("%s: %s, %d transactions", f.Source, account, f.Count))
}

// TransactionTable renders candidates as a table, amounts colored by sign.
func TransactionTable(transactions []model.TransactionCandidate) string {
	rows := make([][]string, 0, len(transactions))
	negative := make([]bool, 0, len(transactions))
	for _, c := range transactions {
		rows = append(rows, []string{
			c.Date.Format(dateLayout),
			truncate(c.Description, descriptionWidth),
			c.Amount.StringFixed(2),
			categoryLabel(c),
			confidence(c),
			string(c.Tier),
		})
		negative = append(negative, c.Amount.IsNegative())
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("DATE", "DESCRIPTION", "AMOUNT", "CATEGORY", "CONF", "TIER").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			if col != amountColumn || row < 0 || row >= len(negative) {
				return TableCellStyle
			}
			if negative[row] {
				return ExpenseStyle
			}
			return IncomeStyle
		})

	return t.String()
}

// RenderPatterns writes the shared merchant and keyword registries.
func RenderPatterns(w io.Writer, merchants []model.MerchantPattern, keywords []model.KeywordPattern) error {
	merchantRows := make([][]string, 0, len(merchants))
	for _, m := range merchants {
		merchantRows = append(merchantRows, []string{m.Pattern, joinCategory(m.Category, m.Label), strconv.Itoa(m.Score)})
	}
	keywordRows := make([][]string, 0, len(keywords))
	for _, k := range keywords {
		keywordRows = append(keywordRows, []string{k.Keyword, joinCategory(k.Category, k.Label), strconv.Itoa(k.Score), string(k.Language)})
	}

	var b strings.Builder
	b.WriteString(RenderBox(fmt.Sprintf("Merchant patterns (%d)", len(merchants)),
		plainTable([]string{"PATTERN", "CATEGORY", "SCORE"}, merchantRows)))
	b.WriteString("\n")
	b.WriteString(RenderBox(fmt.Sprintf("Keyword patterns (%d)", len(keywords)),
		plainTable([]string{"KEYWORD", "CATEGORY", "SCORE", "LANG"}, keywordRows)))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderLearned writes one user's learned patterns.
func RenderLearned(w io.Writer, userID string, learned []model.LearnedPattern) error {
	if len(learned) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo(fmt.Sprintf("No learned patterns for %s", userID)))
		return err
	}

	rows := make([][]string, 0, len(learned))
	for _, l := range learned {
		rows = append(rows, []string{l.Pattern, joinCategory(l.CorrectedCategory, l.CorrectedLabel), strconv.Itoa(l.Frequency)})
	}
	box := RenderBox(fmt.Sprintf("Learned patterns for %s (%d)", userID, len(learned)),
		plainTable([]string{"PATTERN", "CATEGORY", "SEEN"}, rows))
	_, err := fmt.Fprintln(w, box)
	return err
}

// RenderError writes err in the error style, showing the user message of a
// *common.UserError when there is one.
func RenderError(w io.Writer, err error) {
	msg := err.Error()
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		msg = userErr.UserMessage
	}
	_, _ = fmt.Fprintln(w, FormatError(msg))
}

func plainTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		}).
		String()
}

func categoryLabel(c model.TransactionCandidate) string {
	return joinCategory(c.Category, c.Label)
}

func joinCategory(category, label string) string {
	if label == "" {
		return category
	}
	return category + " / " + label
}

func confidence(c model.TransactionCandidate) string {
	if c.Confidence == 0 {
		return "-"
	}
	return strconv.Itoa(c.Confidence)
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
