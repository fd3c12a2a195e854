// Package config handles configuration loading and validation for leaf.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"

	"github.com/metcalfc/leaf/internal/paginate"
	"github.com/metcalfc/leaf/internal/span"
)

// Store backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Translation provider names.
const (
	ProviderLibreTranslate = "libretranslate"
	ProviderMyMemory       = "mymemory"
	ProviderGoogle         = "google"
)

// Config holds the application configuration.
type Config struct {
	PageBudget  int               `yaml:"page_budget"`
	Store       string            `yaml:"store"`
	LogLevel    string            `yaml:"log_level"`
	Translation TranslationConfig `yaml:"translation"`
	Colors      ColorConfig       `yaml:"colors"`
	DataDir     string            `yaml:"-"` // set by caller, not from config file
}

// TranslationConfig configures the provider chain.
type TranslationConfig struct {
	Source            string        `yaml:"source"` // empty means the book's detected language
	Target            string        `yaml:"target"`
	Providers         []string      `yaml:"providers"`
	LibreTranslateURL string        `yaml:"libretranslate_url"`
	APIKey            string        `yaml:"api_key"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// ColorConfig holds highlight colors per span variant.
type ColorConfig struct {
	Comment    string `yaml:"comment"`
	Dictionary string `yaml:"dictionary"`
	Selection  string `yaml:"selection"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		PageBudget: paginate.DefaultBudget,
		Store:      StoreJSON,
		LogLevel:   "info",
		Translation: TranslationConfig{
			Target:            "ru",
			Providers:         []string{ProviderLibreTranslate, ProviderMyMemory, ProviderGoogle},
			LibreTranslateURL: "https://libretranslate.com/translate",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 2,
		},
		Colors: ColorConfig{
			Comment:    span.DefaultCommentColor,
			Dictionary: span.DefaultDictionaryColor,
			Selection:  span.DefaultSelectionColor,
		},
	}
}

// DefaultPath returns XDG_CONFIG_HOME/leaf/config.yaml or ~/.config/leaf/config.yaml
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "leaf", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "leaf", "config.yaml")
}

// Load reads configuration from configPath. A missing file yields the
// defaults.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.PageBudget == 0 {
		c.PageBudget = defaults.PageBudget
	}
	if c.Store == "" {
		c.Store = defaults.Store
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Translation.Target == "" {
		c.Translation.Target = defaults.Translation.Target
	}
	if len(c.Translation.Providers) == 0 {
		c.Translation.Providers = defaults.Translation.Providers
	}
	if c.Translation.LibreTranslateURL == "" {
		c.Translation.LibreTranslateURL = defaults.Translation.LibreTranslateURL
	}
	if c.Translation.Timeout == 0 {
		c.Translation.Timeout = defaults.Translation.Timeout
	}
	if c.Translation.RequestsPerSecond == 0 {
		c.Translation.RequestsPerSecond = defaults.Translation.RequestsPerSecond
	}
	if c.Colors.Comment == "" {
		c.Colors.Comment = defaults.Colors.Comment
	}
	if c.Colors.Dictionary == "" {
		c.Colors.Dictionary = defaults.Colors.Dictionary
	}
	if c.Colors.Selection == "" {
		c.Colors.Selection = defaults.Colors.Selection
	}
}

// Validate checks the configuration for values the reader cannot run with.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("store", c.Store, oneOf(StoreJSON, StoreSQLite)),
		c.validateLimits(),
		c.validateProviders(),
	)
}

func (c *Config) validateLimits() error {
	var errs criterio.FieldErrorsBuilder
	if c.PageBudget < 1 {
		errs = errs.Append("page_budget", fmt.Errorf("must be at least 1, got %d", c.PageBudget))
	}
	if c.Translation.Timeout <= 0 {
		errs = errs.Append("translation.timeout", fmt.Errorf("must be positive, got %s", c.Translation.Timeout))
	}
	if c.Translation.RequestsPerSecond <= 0 {
		errs = errs.Append("translation.requests_per_second", fmt.Errorf("must be positive, got %g", c.Translation.RequestsPerSecond))
	}
	return errs.ToError()
}

func (c *Config) validateProviders() error {
	var errs criterio.FieldErrorsBuilder
	seen := map[string]bool{}
	for i, p := range c.Translation.Providers {
		field := fmt.Sprintf("translation.providers[%d]", i)
		if err := oneOf(ProviderLibreTranslate, ProviderMyMemory, ProviderGoogle)(p); err != nil {
			errs = errs.Append(field, err)
			continue
		}
		if seen[p] {
			errs = errs.Append(field, fmt.Errorf("duplicate provider %q", p))
		}
		seen[p] = true
	}
	return errs.ToError()
}

func oneOf(allowed ...string) func(string) error {
	return func(v string) error {
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("must be one of %v, got %q", allowed, v)
	}
}
