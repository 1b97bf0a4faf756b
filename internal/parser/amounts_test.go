package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/statement-intake/internal/common"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input        string
		want         string
		decimalComma bool
	}{
		{input: "12.50", want: "12.50"},
		{input: "-12.50", want: "-12.50"},
		{input: "$1,234.56", want: "1234.56"},
		{input: "-$1,234.56", want: "-1234.56"},
		{input: "$-5.00", want: "-5"},
		{input: "(45.00)", want: "-45"},
		{input: "($45.00)", want: "-45"},
		{input: "12.50-", want: "-12.50"},
		{input: "100.00 CR", want: "100"},
		{input: "100.00CR", want: "100"},
		{input: "5.00 DR", want: "-5"},
		{input: "+7.25", want: "7.25"},
		{input: "CAD 12.00", want: "12"},
		{input: "1 234,56 $", want: "1234.56", decimalComma: true},
		{input: "1 234,56", want: "1234.56", decimalComma: true},
		{input: "1.234,56 €", want: "1234.56", decimalComma: true},
		{input: "12,50", want: "12.50"},
		{input: "1,234", want: "1234"},
		{input: "1,234", want: "1.234", decimalComma: true},
		{input: "0.00", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input, tt.decimalComma)
			require.NoError(t, err)
			assert.True(t, amount(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "$", "12.50.7x", "--"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseAmount(input, false)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestTrailingAmounts(t *testing.T) {
	l, _ := LayoutFor(KindTD)
	tokens, rest := trailingAmounts("NETFLIX.COM 16.99 1,183.01", 0, l)
	require.Len(t, tokens, 2)
	assert.Equal(t, "NETFLIX.COM", rest)
	assert.True(t, amount("16.99").Equal(tokens[0].value))
	assert.True(t, amount("1183.01").Equal(tokens[1].value))
	assert.Equal(t, 12, tokens[0].start)
	assert.Equal(t, 17, tokens[0].end)

	tokens, rest = trailingAmounts("STORE #1234", 0, l)
	assert.Empty(t, tokens)
	assert.Equal(t, "STORE #1234", rest)

	fr, _ := LayoutFor(KindDesjardins)
	tokens, rest = trailingAmounts("DEPOT DIRECT PAIE  1 234,56  2 188,89", 0, fr)
	require.Len(t, tokens, 2)
	assert.Equal(t, "DEPOT DIRECT PAIE", rest)
	assert.True(t, amount("1234.56").Equal(tokens[0].value))
}
