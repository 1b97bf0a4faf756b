package registry

import (
	_ "embed" // default registry
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/model"
)

//go:embed defaults.yaml
var defaultSeed []byte

// Seed is the file format used to bulk load merchant and keyword registries.
type Seed struct {
	Merchants []model.MerchantPattern `yaml:"merchants"`
	Keywords  []model.KeywordPattern  `yaml:"keywords"`
}

// ParseSeed decodes and validates a YAML registry seed.
// Keywords without a language apply to both.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("%w: malformed registry seed: %w", common.ErrInvalidInput, err)
	}

	for i := range seed.Merchants {
		m := &seed.Merchants[i]
		m.Pattern = strings.TrimSpace(m.Pattern)
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%w: merchant %d: %w", common.ErrInvalidInput, i, err)
		}
	}
	for i := range seed.Keywords {
		k := &seed.Keywords[i]
		k.Keyword = strings.TrimSpace(k.Keyword)
		if k.Language == "" {
			k.Language = model.LanguageBoth
		}
		if err := k.Validate(); err != nil {
			return nil, fmt.Errorf("%w: keyword %d: %w", common.ErrInvalidInput, i, err)
		}
	}

	return &seed, nil
}

// LoadSeedFile reads a YAML registry seed from path.
func LoadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Operator supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read registry seed: %w", err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seed, nil
}

// DefaultSeed returns the built-in registries.
func DefaultSeed() *Seed {
	seed, err := ParseSeed(defaultSeed)
	if err != nil {
		panic(fmt.Sprintf("built-in registry seed is invalid: %v", err))
	}
	return seed
}

// DefaultMerchants returns the built-in merchant registry.
func DefaultMerchants() []model.MerchantPattern {
	return DefaultSeed().Merchants
}

// DefaultKeywords returns the built-in keyword registry.
func DefaultKeywords() []model.KeywordPattern {
	return DefaultSeed().Keywords
}
