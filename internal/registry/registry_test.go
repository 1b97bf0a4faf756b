package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/model"
	"github.com/Veraticus/statement-intake/internal/normalize"
)

func TestSnapshot_LookupMerchant(t *testing.T) {
	snap := NewSnapshot([]model.MerchantPattern{
		{Pattern: "Tim Hortons", Category: "Food", Label: "Dining", Score: 90},
		{Pattern: "COSTCO", Category: "Shopping", Score: 80},
		{Pattern: "COSTCO GAS", Category: "Transportation", Score: 92},
		{Pattern: "STM", Category: "Transportation", Score: 80},
	}, nil, nil)

	tests := []struct {
		name         string
		text         string
		wantCategory string
	}{
		{name: "scenario store number", text: "TIM HORTONS #2169", wantCategory: "Food"},
		{name: "longest pattern wins", text: "COSTCO GAS W1234", wantCategory: "Transportation"},
		{name: "shorter pattern", text: "COSTCO WHOLESALE 502", wantCategory: "Shopping"},
		{name: "token boundary required", text: "STMARTIN BAKERY", wantCategory: ""},
		{name: "whole token", text: "STM CARTE OPUS", wantCategory: "Transportation"},
		{name: "no match", text: "UNKNOWN SHOP", wantCategory: ""},
		{name: "empty text", text: "", wantCategory: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snap.LookupMerchant(normalize.Normalize(tt.text))
			if tt.wantCategory == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCategory, got.Category)
		})
	}
}

func TestSnapshot_LookupMerchant_EqualLengthKeepsInsertionOrder(t *testing.T) {
	snap := NewSnapshot([]model.MerchantPattern{
		{Pattern: "ABC", Category: "First", Score: 50},
		{Pattern: "XYZ", Category: "Second", Score: 50},
	}, nil, nil)

	got := snap.LookupMerchant("XYZ ABC")
	require.NotNil(t, got)
	assert.Equal(t, "First", got.Category)
}

func TestSnapshot_LookupLearned(t *testing.T) {
	snap := NewSnapshot(nil, nil, []model.LearnedPattern{
		{UserID: "alice", Pattern: "TIM HORTONS", CorrectedCategory: "Work Expenses", Frequency: 3},
		{UserID: "alice", Pattern: "tim hortons 2169", CorrectedCategory: "Office", Frequency: 1},
	})

	got, err := snap.LookupLearned("alice", "TIM HORTONS 2169")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Office", got.CorrectedCategory, "longest pattern first")

	got, err = snap.LookupLearned("alice", "TIM HORTONS 0042")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Work Expenses", got.CorrectedCategory)

	got, err = snap.LookupLearned("alice", "STARBUCKS")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshot_LookupLearned_CrossUserLeakage(t *testing.T) {
	snap := NewSnapshot(nil, nil, []model.LearnedPattern{
		{UserID: "bob", Pattern: "TIM HORTONS", CorrectedCategory: "Work Expenses", Frequency: 3},
	})

	got, err := snap.LookupLearned("alice", "TIM HORTONS 2169")
	assert.Nil(t, got)
	var leak *common.CrossUserLeakageError
	require.ErrorAs(t, err, &leak)
	assert.Equal(t, "alice", leak.RequestedUser)
	assert.Equal(t, "bob", leak.PatternUser)

	got, err = snap.LookupLearned("alice", "STARBUCKS")
	assert.NoError(t, err, "non-matching foreign patterns are not looked up")
	assert.Nil(t, got)
}

func TestSnapshot_LookupKeywords(t *testing.T) {
	snap := NewSnapshot(nil, []model.KeywordPattern{
		{Keyword: "cafe", Category: "Food", Score: 5, Language: model.LanguageBoth},
		{Keyword: "Épicerie", Category: "Food", Score: 9, Language: model.LanguageFrench},
		{Keyword: "GROCERY", Category: "Food", Score: 9, Language: model.LanguageEnglish},
		{Keyword: "GAS", Category: "Transportation", Score: 5},
	}, nil)

	matches := snap.LookupKeywords("CAFE EPICERIE CAFE GROCERY GASOLINE", "")
	require.Len(t, matches, 3)
	assert.Equal(t, "CAFE", matches[0].Pattern.Keyword)
	assert.Equal(t, 2, matches[0].Count)
	assert.Equal(t, "EPICERIE", matches[1].Pattern.Keyword)
	assert.Equal(t, "GROCERY", matches[2].Pattern.Keyword)

	fr := snap.LookupKeywords("CAFE EPICERIE GROCERY", model.LanguageFrench)
	require.Len(t, fr, 2)
	assert.Equal(t, "CAFE", fr[0].Pattern.Keyword)
	assert.Equal(t, "EPICERIE", fr[1].Pattern.Keyword)

	en := snap.LookupKeywords("GAS STATION", model.LanguageEnglish)
	require.Len(t, en, 1)
	assert.Equal(t, model.LanguageBoth, en[0].Pattern.Language, "missing language means both")
}

func TestNewSnapshot_DropsEmptyPatterns(t *testing.T) {
	snap := NewSnapshot(
		[]model.MerchantPattern{{Pattern: " ** ", Category: "X", Score: 10}},
		[]model.KeywordPattern{{Keyword: "#", Category: "X", Score: 10}},
		[]model.LearnedPattern{{UserID: "u", Pattern: "", CorrectedCategory: "X"}},
	)
	assert.Empty(t, snap.Merchants())
	assert.Empty(t, snap.Keywords())
	assert.Empty(t, snap.Learned())
}

func TestNewSnapshot_DropsDefaultCategoryRows(t *testing.T) {
	snap := NewSnapshot(
		[]model.MerchantPattern{
			{Pattern: "MYSTERY", Category: model.UncategorisedCategory, Score: 90},
			{Pattern: "MYSTERY SHOP", Category: "uncategorised", Score: 90},
			{Pattern: "SHOP", Category: "Shopping", Score: 60},
		},
		[]model.KeywordPattern{{Keyword: "MYSTERY", Category: model.UncategorisedCategory, Score: 50}},
		[]model.LearnedPattern{{UserID: "u", Pattern: "MYSTERY", CorrectedCategory: model.UncategorisedCategory, Frequency: 2}},
	)

	require.Len(t, snap.Merchants(), 1)
	assert.Equal(t, "Shopping", snap.Merchants()[0].Category)
	assert.Empty(t, snap.Keywords())
	assert.Empty(t, snap.Learned())
}

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, countTokens("ABC", ""))
	assert.Equal(t, 1, countTokens("ABC", "ABC"))
	assert.Equal(t, 2, countTokens("ABC DEF ABC", "ABC"))
	assert.Equal(t, 0, countTokens("ABCD", "ABC"))
	assert.Equal(t, 1, countTokens("XABC ABC", "ABC"))
	assert.Equal(t, 1, countTokens("A B A B", "A B A"))
}

type fakeSource struct {
	merchants []model.MerchantPattern
	keywords  []model.KeywordPattern
	learned   map[string][]model.LearnedPattern
	err       error
}

func (f *fakeSource) MerchantPatterns(context.Context) ([]model.MerchantPattern, error) {
	return f.merchants, nil
}

func (f *fakeSource) KeywordPatterns(context.Context) ([]model.KeywordPattern, error) {
	return f.keywords, nil
}

func (f *fakeSource) LearnedPatterns(_ context.Context, userID string) ([]model.LearnedPattern, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.learned[userID], nil
}

func TestLoad(t *testing.T) {
	src := &fakeSource{
		merchants: DefaultMerchants(),
		keywords:  DefaultKeywords(),
		learned: map[string][]model.LearnedPattern{
			"alice": {{UserID: "alice", Pattern: "TIM HORTONS", CorrectedCategory: "Work Expenses", Frequency: 3}},
		},
	}

	snap, err := Load(context.Background(), src, "alice")
	require.NoError(t, err)
	assert.Len(t, snap.Learned(), 1)
	assert.NotEmpty(t, snap.Merchants())

	src.err = errors.New("disk I/O error")
	_, err = Load(context.Background(), src, "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "learned patterns")
}

func TestDefaultSeed(t *testing.T) {
	seed := DefaultSeed()
	require.NotEmpty(t, seed.Merchants)
	require.NotEmpty(t, seed.Keywords)

	snap := NewSnapshot(seed.Merchants, seed.Keywords, nil)
	tim := snap.LookupMerchant("TIM HORTONS 2169")
	require.NotNil(t, tim)
	assert.Equal(t, "Food", tim.Category)
	assert.Equal(t, "Dining", tim.Label)
	assert.Equal(t, 90, tim.Score)
}

func TestLoadSeedFile(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(valid, []byte(`
merchants:
  - pattern: BOULANGERIE ST-JOSEPH
    category: Food
    label: Groceries
    score: 88
keywords:
  - keyword: fromagerie
    category: Food
    score: 9
    language: fr
  - keyword: deli
    category: Food
    score: 4
`), 0o600))

	seed, err := LoadSeedFile(valid)
	require.NoError(t, err)
	require.Len(t, seed.Merchants, 1)
	assert.Equal(t, 88, seed.Merchants[0].Score)
	require.Len(t, seed.Keywords, 2)
	assert.Equal(t, model.LanguageFrench, seed.Keywords[0].Language)
	assert.Equal(t, model.LanguageBoth, seed.Keywords[1].Language)

	invalid := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte(`
merchants:
  - pattern: X
    category: Food
    score: 150
`), 0o600))
	_, err = LoadSeedFile(invalid)
	require.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, err.Error(), "score")

	reserved := filepath.Join(dir, "reserved.yaml")
	require.NoError(t, os.WriteFile(reserved, []byte(`
keywords:
  - keyword: mystery
    category: Uncategorised
    score: 50
`), 0o600))
	_, err = LoadSeedFile(reserved)
	require.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, err.Error(), "reserved")

	_, err = LoadSeedFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	_, err = ParseSeed([]byte("merchants: [unclosed"))
	require.ErrorIs(t, err, common.ErrInvalidInput)
}
