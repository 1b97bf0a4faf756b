// Package registry provides read-only snapshots of the merchant, keyword and
// learned pattern registries consulted during categorization.
package registry

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/model"
	"github.com/Veraticus/statement-intake/internal/normalize"
)

// KeywordMatch is a keyword pattern together with how often it occurred.
type KeywordMatch struct {
	Pattern model.KeywordPattern
	Count   int
}

// Snapshot is an immutable view of the registries for one categorization run.
// It is safe for concurrent use.
type Snapshot struct {
	merchants []model.MerchantPattern
	keywords  []model.KeywordPattern
	learned   []model.LearnedPattern
}

// NewSnapshot builds a snapshot from registry rows.
// Pattern text is normalized; rows that normalize to nothing or point at the
// default category are dropped.
// Merchant and learned patterns are ordered longest first, keeping insertion
// order among equal lengths. Keywords keep insertion order.
func NewSnapshot(merchants []model.MerchantPattern, keywords []model.KeywordPattern, learned []model.LearnedPattern) *Snapshot {
	s := &Snapshot{
		merchants: make([]model.MerchantPattern, 0, len(merchants)),
		keywords:  make([]model.KeywordPattern, 0, len(keywords)),
		learned:   make([]model.LearnedPattern, 0, len(learned)),
	}

	for _, m := range merchants {
		m.Pattern = normalize.Normalize(m.Pattern)
		if m.Pattern == "" || model.IsUncategorised(m.Category) {
			continue
		}
		s.merchants = append(s.merchants, m)
	}
	for _, k := range keywords {
		k.Keyword = normalize.Normalize(k.Keyword)
		if k.Keyword == "" || model.IsUncategorised(k.Category) {
			continue
		}
		if k.Language == "" {
			k.Language = model.LanguageBoth
		}
		s.keywords = append(s.keywords, k)
	}
	for _, l := range learned {
		l.Pattern = normalize.Normalize(l.Pattern)
		if l.Pattern == "" || model.IsUncategorised(l.CorrectedCategory) {
			continue
		}
		s.learned = append(s.learned, l)
	}

	slices.SortStableFunc(s.merchants, func(a, b model.MerchantPattern) int {
		return patternLen(b.Pattern) - patternLen(a.Pattern)
	})
	slices.SortStableFunc(s.learned, func(a, b model.LearnedPattern) int {
		return patternLen(b.Pattern) - patternLen(a.Pattern)
	})

	return s
}

// Empty returns a snapshot with no patterns.
func Empty() *Snapshot {
	return NewSnapshot(nil, nil, nil)
}

// LookupLearned returns the longest learned pattern of userID contained in normalized.
// A matching pattern owned by another user is reported as a
// *common.CrossUserLeakageError instead of being returned.
func (s *Snapshot) LookupLearned(userID, normalized string) (*model.LearnedPattern, error) {
	if normalized == "" {
		return nil, nil //nolint:nilnil // No text, no match
	}
	for i := range s.learned {
		l := &s.learned[i]
		if !strings.Contains(normalized, l.Pattern) {
			continue
		}
		if l.UserID != userID {
			return nil, &common.CrossUserLeakageError{
				RequestedUser: userID,
				PatternUser:   l.UserID,
				Pattern:       l.Pattern,
			}
		}
		found := *l
		return &found, nil
	}
	return nil, nil //nolint:nilnil // No learned pattern matches
}

// LookupMerchant returns the most specific merchant pattern found in normalized
// on token boundaries, or nil.
func (s *Snapshot) LookupMerchant(normalized string) *model.MerchantPattern {
	if normalized == "" {
		return nil
	}
	for i := range s.merchants {
		if countTokens(normalized, s.merchants[i].Pattern) > 0 {
			found := s.merchants[i]
			return &found
		}
	}
	return nil
}

// LookupKeywords returns every keyword appearing in normalized, in registry order.
// An empty lang accepts all languages; keywords marked "both" always qualify.
func (s *Snapshot) LookupKeywords(normalized string, lang model.Language) []KeywordMatch {
	if normalized == "" {
		return nil
	}
	var matches []KeywordMatch
	for _, k := range s.keywords {
		if lang != "" && k.Language != model.LanguageBoth && k.Language != lang {
			continue
		}
		if n := countTokens(normalized, k.Keyword); n > 0 {
			matches = append(matches, KeywordMatch{Pattern: k, Count: n})
		}
	}
	return matches
}

// Merchants returns a copy of the merchant patterns in lookup order.
func (s *Snapshot) Merchants() []model.MerchantPattern {
	return slices.Clone(s.merchants)
}

// Keywords returns a copy of the keyword patterns in registry order.
func (s *Snapshot) Keywords() []model.KeywordPattern {
	return slices.Clone(s.keywords)
}

// Learned returns a copy of the learned patterns in lookup order.
func (s *Snapshot) Learned() []model.LearnedPattern {
	return slices.Clone(s.learned)
}

func patternLen(p string) int {
	return utf8.RuneCountInString(p)
}

// countTokens counts non-overlapping occurrences of needle in text that start
// and end on token boundaries. Both strings are normalized, so tokens are
// separated by single spaces.
func countTokens(text, needle string) int {
	if needle == "" {
		return 0
	}
	count := 0
	offset := 0
	for offset <= len(text)-len(needle) {
		i := strings.Index(text[offset:], needle)
		if i < 0 {
			break
		}
		start := offset + i
		end := start + len(needle)
		if (start == 0 || text[start-1] == ' ') && (end == len(text) || text[end] == ' ') {
			count++
			offset = end
			continue
		}
		offset = start + 1
	}
	return count
}
