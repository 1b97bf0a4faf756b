// Package model defines the core data structures for the intake pipeline.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Language selects which statements a keyword applies to.
type Language string

// Keyword language constants.
const (
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
	LanguageBoth    Language = "both"
)

// Valid reports whether l is a known language.
func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageFrench, LanguageBoth:
		return true
	}
	return false
}

// IsUncategorised reports whether category names the default category.
func IsUncategorised(category string) bool {
	return strings.EqualFold(strings.TrimSpace(category), UncategorisedCategory)
}

// validateCategory rejects empty categories and the default category, which
// only the default tier may assign.
func validateCategory(category string) error {
	if strings.TrimSpace(category) == "" {
		return fmt.Errorf("category is required")
	}
	if IsUncategorised(category) {
		return fmt.Errorf("category %q is reserved for unmatched transactions", UncategorisedCategory)
	}
	return nil
}

// MerchantPattern maps a merchant substring to a category. Curated by administrators.
type MerchantPattern struct {
	Pattern  string `json:"pattern" yaml:"pattern"`
	Category string `json:"category" yaml:"category"`
	Label    string `json:"label" yaml:"label"`
	ID       int    `json:"id" yaml:"-"`
	Score    int    `json:"score" yaml:"score"`
}

// Validate ensures the merchant pattern has usable data.
func (p *MerchantPattern) Validate() error {
	if strings.TrimSpace(p.Pattern) == "" {
		return fmt.Errorf("pattern is required")
	}
	if err := validateCategory(p.Category); err != nil {
		return err
	}
	if p.Score < 0 || p.Score > 100 {
		return fmt.Errorf("score must be between 0 and 100, got %d", p.Score)
	}
	return nil
}

// KeywordPattern contributes a score to a category when its keyword appears.
// Several keywords may point at the same category; their scores accumulate.
type KeywordPattern struct {
	Keyword  string   `json:"keyword" yaml:"keyword"`
	Category string   `json:"category" yaml:"category"`
	Label    string   `json:"label" yaml:"label"`
	Language Language `json:"language" yaml:"language"`
	ID       int      `json:"id" yaml:"-"`
	Score    int      `json:"score" yaml:"score"`
}

// Validate ensures the keyword pattern has usable data.
func (p *KeywordPattern) Validate() error {
	if strings.TrimSpace(p.Keyword) == "" {
		return fmt.Errorf("keyword is required")
	}
	if err := validateCategory(p.Category); err != nil {
		return err
	}
	if !p.Language.Valid() {
		return fmt.Errorf("invalid language %q", p.Language)
	}
	if p.Score < 0 {
		return fmt.Errorf("score must not be negative, got %d", p.Score)
	}
	return nil
}

// LearnedPattern records a user's repeated category correction for a description pattern.
type LearnedPattern struct {
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	UserID            string    `json:"user_id"`
	Pattern           string    `json:"pattern"`
	CorrectedCategory string    `json:"corrected_category"`
	CorrectedLabel    string    `json:"corrected_label"`
	ID                int       `json:"id"`
	Frequency         int       `json:"frequency"`
}
