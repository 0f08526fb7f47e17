package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/julianshen/autodoc/internal/docgen"
)

// Config represents the top-level application configuration.
type Config struct {
	Provider   ProviderConfig   `toml:"provider"`
	Generation GenerationConfig `toml:"generation"`
	Limits     LimitsConfig     `toml:"limits"`
	Cache      CacheConfig      `toml:"cache"`
	History    HistoryConfig    `toml:"history"`
}

// ProviderConfig holds settings for AI provider selection and configuration.
type ProviderConfig struct {
	Default     string                   `toml:"default"`
	Model       string                   `toml:"model"`
	Temperature float64                  `toml:"temperature"`
	Anthropic   AnthropicProviderConfig  `toml:"anthropic"`
	Gemini      GeminiProviderConfig     `toml:"gemini"`
	OpenAI      []OpenAICompatibleConfig `toml:"openai_compatible"`
	Ollama      OllamaProviderConfig     `toml:"ollama"`
}

// AnthropicProviderConfig holds Anthropic-specific provider settings.
type AnthropicProviderConfig struct {
	APIKeySource string `toml:"api_key_source"`
	APIKey       string `toml:"api_key"`
}

// GeminiProviderConfig holds Google Gemini settings.
type GeminiProviderConfig struct {
	APIKeySource string `toml:"api_key_source"`
	APIKey       string `toml:"api_key"`
}

// OpenAICompatibleConfig holds settings for an OpenAI-compatible provider.
type OpenAICompatibleConfig struct {
	Name         string            `toml:"name"`
	BaseURL      string            `toml:"base_url"`
	APIKeySource string            `toml:"api_key_source"`
	APIKey       string            `toml:"api_key"`
	ExtraHeaders map[string]string `toml:"extra_headers"`
}

// OllamaProviderConfig holds settings for a local Ollama server.
type OllamaProviderConfig struct {
	BaseURL string `toml:"base_url"`
}

// GenerationConfig holds the defaults for a documentation run.
type GenerationConfig struct {
	DetailLevel         string `toml:"detail_level"`
	Executor            string `toml:"executor"`
	BatchSize           int    `toml:"batch_size"`
	MaxWorkers          int    `toml:"max_workers"`
	Overview            bool   `toml:"overview"`
	DirectoryStructure  bool   `toml:"directory_structure"`
	OverviewMode        string `toml:"overview_mode"`
	ForceDirectOverview bool   `toml:"force_direct_overview"`
	UnitTimeout         string `toml:"unit_timeout"`
}

// LimitsConfig bounds the input corpus and the request rate.
type LimitsConfig struct {
	MaxFileSizeMB     float64 `toml:"max_file_size_mb"`
	MaxFiles          int     `toml:"max_files"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// CacheConfig configures the in-memory response cache.
type CacheConfig struct {
	Size int `toml:"size"`
}

// HistoryConfig configures persistence of past runs.
type HistoryConfig struct {
	Path string `toml:"path"`
	Keep int    `toml:"keep"`
}

// DefaultConfig returns a Config populated with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Default:     "anthropic",
			Model:       "claude-sonnet-4-5",
			Temperature: 0.2,
			Anthropic: AnthropicProviderConfig{
				APIKeySource: "env",
			},
			Gemini: GeminiProviderConfig{
				APIKeySource: "env",
			},
			Ollama: OllamaProviderConfig{
				BaseURL: "http://localhost:11434",
			},
		},
		Generation: GenerationConfig{
			DetailLevel:        string(docgen.DetailComprehensive),
			Executor:           string(docgen.ExecutorBatch),
			BatchSize:          3,
			MaxWorkers:         3,
			Overview:           true,
			DirectoryStructure: true,
			OverviewMode:       string(docgen.OverviewFromContent),
			UnitTimeout:        "0s",
		},
		Limits: LimitsConfig{
			MaxFileSizeMB: 5,
			MaxFiles:      500,
			Burst:         1,
		},
		Cache: CacheConfig{
			Size: 256,
		},
		History: HistoryConfig{
			Keep: 10,
		},
	}
}

// DefaultDir returns ~/.config/autodoc.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".autodoc"
	}
	return filepath.Join(home, ".config", "autodoc")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.toml")
}

// Load reads a TOML config file on top of DefaultConfig. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files (".env" when none)
// into the process environment. Missing files are ignored and existing
// variables are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

// HistoryPath returns the configured history database path.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(DefaultDir(), "history.db")
}

// MaxFileSizeBytes converts the per-file ceiling to bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Limits.MaxFileSizeMB * 1024 * 1024)
}

// RunConfig builds and validates the docgen run configuration.
func (c *Config) RunConfig() (docgen.RunConfig, error) {
	g := c.Generation
	level, err := docgen.ParseDetailLevel(g.DetailLevel)
	if err != nil {
		return docgen.RunConfig{}, err
	}
	kind, err := docgen.ParseExecutorKind(g.Executor)
	if err != nil {
		return docgen.RunConfig{}, err
	}

	var timeout time.Duration
	if g.UnitTimeout != "" {
		timeout, err = time.ParseDuration(g.UnitTimeout)
		if err != nil {
			return docgen.RunConfig{}, fmt.Errorf("%w: unit_timeout: %w", docgen.ErrInvalidConfig, err)
		}
	}

	rc := docgen.RunConfig{
		DetailLevel:                level,
		GenerateOverview:           g.Overview,
		GenerateDirectoryStructure: g.DirectoryStructure,
		OverviewMode:               docgen.OverviewMode(g.OverviewMode),
		ForceDirectOverview:        g.ForceDirectOverview,
		Executor:                   kind,
		BatchSize:                  g.BatchSize,
		MaxWorkers:                 g.MaxWorkers,
		UnitTimeout:                timeout,
	}
	if err := rc.Validate(); err != nil {
		return docgen.RunConfig{}, err
	}
	return rc, nil
}
