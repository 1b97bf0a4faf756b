// Package classification detects cashflow markers in statement descriptions.
package classification

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// PatternType represents the kind of marker a pattern detects.
type PatternType string

const (
	// PatternTypePayroll represents salary and direct deposit markers.
	PatternTypePayroll PatternType = "payroll"
	// PatternTypeIncome represents other money-in markers such as interest or refunds.
	PatternTypeIncome PatternType = "income"
	// PatternTypeTransfer represents movements between accounts.
	PatternTypeTransfer PatternType = "transfer"
	// PatternTypeCash represents ATM and cash withdrawals.
	PatternTypeCash PatternType = "cash"
	// PatternTypeFee represents bank service charges.
	PatternTypeFee PatternType = "fee"
)

// IsMoneyIn reports whether the type implies money entering the account.
func (t PatternType) IsMoneyIn() bool {
	return t == PatternTypePayroll || t == PatternTypeIncome
}

// Pattern represents a description marker.
type Pattern struct {
	Name     string
	Type     PatternType
	Regex    string
	Priority int // Higher priority patterns are checked first
}

// CompiledPattern holds a compiled regex pattern with metadata.
type CompiledPattern struct {
	compiledRegex *regexp.Regexp
	Pattern
}

// PatternDetector matches descriptions against an ordered set of patterns.
// It is immutable after construction and safe for concurrent use.
type PatternDetector struct {
	patterns []CompiledPattern
}

// NewPatternDetector creates a new pattern detector with the given patterns.
func NewPatternDetector(patterns []Pattern) (*PatternDetector, error) {
	compiled := make([]CompiledPattern, 0, len(patterns))

	for _, p := range patterns {
		regexStr := p.Regex
		if !strings.HasPrefix(regexStr, "(?i)") {
			regexStr = "(?i)" + regexStr // Make case-insensitive by default
		}

		regex, err := regexp.Compile(regexStr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %s: %w", p.Name, err)
		}

		compiled = append(compiled, CompiledPattern{
			Pattern:       p,
			compiledRegex: regex,
		})
	}

	// Highest priority first; equal priorities keep their declared order.
	slices.SortStableFunc(compiled, func(a, b CompiledPattern) int {
		return b.Priority - a.Priority
	})

	return &PatternDetector{patterns: compiled}, nil
}

var defaultDetector = mustDetector(DefaultPatterns())

func mustDetector(patterns []Pattern) *PatternDetector {
	d, err := NewPatternDetector(patterns)
	if err != nil {
		panic(err)
	}
	return d
}

// Default returns the detector built from DefaultPatterns.
func Default() *PatternDetector {
	return defaultDetector
}

// Match represents a pattern match result.
type Match struct {
	PatternName string
	Type        PatternType
}

// Classify returns the highest priority pattern matching text, or nil.
func (pd *PatternDetector) Classify(text string) *Match {
	for _, pattern := range pd.patterns {
		if pattern.compiledRegex.MatchString(text) {
			return &Match{
				PatternName: pattern.Name,
				Type:        pattern.Type,
			}
		}
	}
	return nil
}

// Find returns the highest priority pattern of the given type matching text, or nil.
func (pd *PatternDetector) Find(text string, typ PatternType) *Match {
	for _, pattern := range pd.patterns {
		if pattern.Type != typ {
			continue
		}
		if pattern.compiledRegex.MatchString(text) {
			return &Match{
				PatternName: pattern.Name,
				Type:        pattern.Type,
			}
		}
	}
	return nil
}

// GetPatternCount returns the number of loaded patterns.
func (pd *PatternDetector) GetPatternCount() int {
	return len(pd.patterns)
}
