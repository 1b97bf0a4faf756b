// Package config loads the typed application configuration from viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/engine"
	"github.com/Veraticus/statement-intake/internal/parser"
	"github.com/Veraticus/statement-intake/internal/storage"
)

// EnvPrefix is the prefix of environment variables read by viper.
const EnvPrefix = "INTAKE"

// Config holds the typed application configuration.
type Config struct {
	DatabasePath          string
	BankHint              string
	SeedFile              string
	LogLevel              string
	LogFormat             string
	KeywordThreshold      int
	RecurringDayTolerance int
	RecurringMinMonths    int
	MaxBatchFiles         int
	CacheTTL              time.Duration
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	defaults := engine.DefaultConfig()
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("engine.keyword_threshold", defaults.KeywordThreshold)
	v.SetDefault("engine.recurring_day_tolerance", defaults.RecurringDayTolerance)
	v.SetDefault("engine.recurring_min_months", defaults.RecurringMinMonths)
	v.SetDefault("parser.bank_hint", "")
	v.SetDefault("parser.max_batch_files", parser.MaxBatchFiles)
	v.SetDefault("registry.seed_file", "")
	v.SetDefault("registry.cache_ttl", storage.DefaultCacheTTL)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// BindEnv makes v read INTAKE_* variables, with dots in keys mapped to underscores.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabasePath:          ExpandPath(v.GetString("database.path")),
		BankHint:              strings.TrimSpace(v.GetString("parser.bank_hint")),
		SeedFile:              ExpandPath(v.GetString("registry.seed_file")),
		LogLevel:              v.GetString("logging.level"),
		LogFormat:             v.GetString("logging.format"),
		KeywordThreshold:      v.GetInt("engine.keyword_threshold"),
		RecurringDayTolerance: v.GetInt("engine.recurring_day_tolerance"),
		RecurringMinMonths:    v.GetInt("engine.recurring_min_months"),
		MaxBatchFiles:         v.GetInt("parser.max_batch_files"),
		CacheTTL:              v.GetDuration("registry.cache_ttl"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if c.BankHint != "" {
		if _, err := parser.ParseLayoutKind(c.BankHint); err != nil {
			return fmt.Errorf("%w: parser.bank_hint: %w", common.ErrInvalidConfig, err)
		}
	}
	if c.KeywordThreshold < 0 {
		return fmt.Errorf("%w: engine.keyword_threshold must not be negative", common.ErrInvalidConfig)
	}
	if c.RecurringDayTolerance < 0 || c.RecurringDayTolerance > 15 {
		return fmt.Errorf("%w: engine.recurring_day_tolerance must be between 0 and 15", common.ErrInvalidConfig)
	}
	if c.RecurringMinMonths < 1 {
		return fmt.Errorf("%w: engine.recurring_min_months must be at least 1", common.ErrInvalidConfig)
	}
	if c.MaxBatchFiles < 1 || c.MaxBatchFiles > parser.MaxBatchFiles {
		return fmt.Errorf("%w: parser.max_batch_files must be between 1 and %d",
			common.ErrInvalidConfig, parser.MaxBatchFiles)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("%w: registry.cache_ttl must not be negative", common.ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format must be console or json", common.ErrInvalidConfig)
	}
	return nil
}

// EngineConfig returns the engine thresholds.
func (c *Config) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.KeywordThreshold = c.KeywordThreshold
	cfg.RecurringDayTolerance = c.RecurringDayTolerance
	cfg.RecurringMinMonths = c.RecurringMinMonths
	return cfg
}

// LoadDotEnv loads variables from the given .env files, or ./.env when none
// are given. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		slog.Debug("Loaded environment file", "path", path)
	}
	return nil
}

// ExpandPath expands a leading ~ and $VAR references in path.
func ExpandPath(path string) string {
	if home, ok := homeDir(); ok {
		switch {
		case path == "~":
			path = home
		case strings.HasPrefix(path, "~/"):
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// DefaultConfigDir returns $HOME/.config/intake.
func DefaultConfigDir() string {
	home, _ := homeDir()
	return filepath.Join(home, ".config", "intake")
}

// DefaultDatabasePath returns $HOME/.local/share/intake/intake.db.
func DefaultDatabasePath() string {
	home, _ := homeDir()
	return filepath.Join(home, ".local", "share", "intake", "intake.db")
}

func homeDir() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", false
	}
	return home, true
}
