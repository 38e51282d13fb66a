package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned when no API key is configured for the
// language-model backend. It is fatal and never retried.
var ErrMissingCredential = errors.New("missing LLM API key (set DASHSCOPE_API_KEY or OPENAI_API_KEY)")

// Default file locations, relative to the repository root.
const (
	DefaultDataDir     = "data/ai/wealth"
	DefaultHistoryFile = "finance-daily.json"
	DefaultArchiveDir  = "archive"
	DefaultCatalogFile = "topics.json"
	DefaultConfigFile  = "daily.yaml"
)

// Config holds all settings for a lesson run.
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	History  HistoryConfig  `yaml:"history"`
	LLM      LLMConfig      `yaml:"llm"`
	Retry    RetryConfig    `yaml:"retry"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Selector SelectorConfig `yaml:"selector"`

	// Timezone names the IANA zone used for "today". Empty means local time.
	Timezone string `yaml:"timezone"`

	// EnvLoaded records that InitEnv already ran for this config.
	EnvLoaded bool `yaml:"-"`
}

// PathsConfig locates the data files. Relative entries resolve against Root.
type PathsConfig struct {
	Root       string `yaml:"-"`
	DataDir    string `yaml:"data_dir"`
	History    string `yaml:"history"`
	ArchiveDir string `yaml:"archive_dir"`
	Catalog    string `yaml:"catalog"`
}

type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

// LLMConfig configures the chat-completions backend.
type LLMConfig struct {
	APIKey              string  `yaml:"-"`
	BaseURL             string  `yaml:"base_url"`
	Model               string  `yaml:"model"`
	Timeout             string  `yaml:"timeout"`
	MaxTokens           int     `yaml:"max_tokens"`
	Temperature         float64 `yaml:"temperature"`
	CritiqueTemperature float64 `yaml:"critique_temperature"`
}

// RetryConfig is the two-tier backoff policy for pipeline attempts.
type RetryConfig struct {
	MaxAttempts  int    `yaml:"max_attempts"`
	ShortBackoff string `yaml:"short_backoff"`
	LongBackoff  string `yaml:"long_backoff"`
}

type PipelineConfig struct {
	ReviseThreshold float64 `yaml:"revise_threshold"`
	MinSummaryWords int     `yaml:"min_summary_words"`
	MaxSummaryWords int     `yaml:"max_summary_words"`
}

// SelectorConfig tunes the informational candidate score.
type SelectorConfig struct {
	CooldownDays int           `yaml:"cooldown_days"`
	Weights      WeightsConfig `yaml:"weights"`
}

type WeightsConfig struct {
	Progress      float64 `yaml:"progress"`
	Coverage      float64 `yaml:"coverage"`
	Relation      float64 `yaml:"relation"`
	Diversity     float64 `yaml:"diversity"`
	Cooldown      float64 `yaml:"cooldown"`
	DifficultyGap float64 `yaml:"difficulty_gap"`
}

// Default returns production defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			History:    DefaultHistoryFile,
			ArchiveDir: DefaultArchiveDir,
			Catalog:    DefaultCatalogFile,
		},
		History: HistoryConfig{Limit: 60},
		LLM: LLMConfig{
			BaseURL:             "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Model:               "qwen-plus",
			Timeout:             "120s",
			MaxTokens:           2048,
			Temperature:         0.7,
			CritiqueTemperature: 0.2,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			ShortBackoff: "5s",
			LongBackoff:  "20s",
		},
		Pipeline: PipelineConfig{
			ReviseThreshold: 9,
			MinSummaryWords: 300,
			MaxSummaryWords: 450,
		},
		Selector: SelectorConfig{
			CooldownDays: 14,
			Weights: WeightsConfig{
				Progress:      0.30,
				Coverage:      0.20,
				Relation:      0.15,
				Diversity:     0.15,
				Cooldown:      0.50,
				DifficultyGap: 0.10,
			},
		},
	}
}

// Load reads a YAML config file on top of the defaults. A missing file is not
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays credentials and backend overrides from the environment.
// Each DASHSCOPE_* name falls back to its OPENAI_* counterpart.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := firstEnv(getenv, "DASHSCOPE_API_KEY", "OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := firstEnv(getenv, "DASHSCOPE_BASE_URL", "OPENAI_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := firstEnv(getenv, "DASHSCOPE_MODEL", "OPENAI_MODEL"); v != "" {
		c.LLM.Model = v
	}
}

func firstEnv(getenv func(string) string, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

// RequireCredentials returns ErrMissingCredential when no API key is set.
func (c *Config) RequireCredentials() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return ErrMissingCredential
	}
	return nil
}

// Validate checks the numeric and duration settings.
func (c *Config) Validate() error {
	if c.History.Limit <= 0 {
		return fmt.Errorf("history.limit must be positive, got %d", c.History.Limit)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive, got %d", c.Retry.MaxAttempts)
	}
	for name, v := range map[string]string{
		"llm.timeout":         c.LLM.Timeout,
		"retry.short_backoff": c.Retry.ShortBackoff,
		"retry.long_backoff":  c.Retry.LongBackoff,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) LLMTimeout() time.Duration {
	return parseDurationOr(c.LLM.Timeout, 120*time.Second)
}

func (c *Config) ShortBackoff() time.Duration {
	return parseDurationOr(c.Retry.ShortBackoff, 5*time.Second)
}

func (c *Config) LongBackoff() time.Duration {
	return parseDurationOr(c.Retry.LongBackoff, 20*time.Second)
}

// Location resolves Timezone; empty means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// HistoryPath returns the live history file path.
func (c *Config) HistoryPath() string {
	return c.resolve(c.Paths.History)
}

// ArchivePath returns the archive directory.
func (c *Config) ArchivePath() string {
	return c.resolve(c.Paths.ArchiveDir)
}

// CatalogPath returns the topic catalog file path.
func (c *Config) CatalogPath() string {
	return c.resolve(c.Paths.Catalog)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	dataDir := c.Paths.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(c.Paths.Root, dataDir)
	}
	return filepath.Join(dataDir, p)
}
