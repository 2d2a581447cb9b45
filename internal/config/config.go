// Package config holds the notereview settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/openmined/notereview/internal/blob"
	"github.com/openmined/notereview/internal/corpus"
	"github.com/openmined/notereview/internal/diff"
	"github.com/openmined/notereview/internal/generate"
	"github.com/openmined/notereview/internal/scheduler"
	"github.com/openmined/notereview/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultDataDir    = filepath.Join(home, ".notereview")
	DefaultConfigPath = filepath.Join(DefaultDataDir, "config.json")
)

const (
	DefaultDailyTime     = "21:00"
	DefaultWeeklyDay     = "friday"
	DefaultWeeklyTime    = "18:00"
	DefaultBlobBackend   = BackendSQLite
	DefaultBlobCacheSize = 256
	DefaultReviewsDir    = "reviews" // relative to the vault
)

const (
	BackendSQLite = "sqlite"
	BackendFS     = "fs"
	BackendS3     = "s3"

	ProviderOpenAI = "openai"
	ProviderEcho   = "echo"
)

var (
	backends  = []string{BackendSQLite, BackendFS, BackendS3}
	providers = []string{ProviderOpenAI, ProviderEcho}
)

type Config struct {
	VaultDir      string          `json:"vault_dir"`
	DataDir       string          `json:"data_dir"`
	ReviewsDir    string          `json:"reviews_dir"`
	MaxDiffLines  int             `json:"max_diff_lines"`
	DailyTime     string          `json:"daily_time"`
	WeeklyDay     string          `json:"weekly_day"`
	WeeklyTime    string          `json:"weekly_time"`
	Include       []string        `json:"include,omitempty"`
	Ignore        []string        `json:"ignore,omitempty"`
	BlobBackend   string          `json:"blob_backend"`
	S3            *blob.S3Config  `json:"s3,omitempty"`
	BlobCacheSize int             `json:"blob_cache_size"`
	GCAfterWeekly bool            `json:"gc_after_weekly"`
	Generator     GeneratorConfig `json:"generator"`
	Path          string          `json:"-"`
}

type GeneratorConfig struct {
	Provider    string  `json:"provider"`
	BaseURL     string  `json:"base_url,omitempty"`
	Model       string  `json:"model,omitempty"`
	APIKey      string  `json:"api_key,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Timeout     string  `json:"timeout,omitempty"` // Go duration, e.g. "30s"
	MaxRetries  int     `json:"max_retries,omitempty"`
}

// Default returns a config with every optional key filled in. VaultDir is left empty.
func Default() *Config {
	gen := generate.DefaultConfig()
	return &Config{
		DataDir:       DefaultDataDir,
		MaxDiffLines:  diff.DefaultMaxLines,
		DailyTime:     DefaultDailyTime,
		WeeklyDay:     DefaultWeeklyDay,
		WeeklyTime:    DefaultWeeklyTime,
		Include:       append([]string(nil), corpus.DefaultInclude...),
		BlobBackend:   DefaultBlobBackend,
		BlobCacheSize: DefaultBlobCacheSize,
		Generator: GeneratorConfig{
			Provider:    ProviderOpenAI,
			BaseURL:     gen.BaseURL,
			Model:       gen.Model,
			Temperature: gen.Temperature,
			MaxTokens:   gen.MaxTokens,
			Timeout:     gen.Timeout.String(),
			MaxRetries:  gen.MaxRetries,
		},
		Path: DefaultConfigPath,
	}
}

// Validate resolves the directories and checks every key, filling zero values with defaults.
func (c *Config) Validate() error {
	var err error

	if c.VaultDir == "" {
		return errors.New("vault_dir is required")
	}
	if c.VaultDir, err = utils.ResolvePath(c.VaultDir); err != nil {
		return fmt.Errorf("vault_dir: %w", err)
	}

	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.DataDir, err = utils.ResolvePath(c.DataDir); err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}

	if c.ReviewsDir == "" {
		c.ReviewsDir = filepath.Join(c.VaultDir, DefaultReviewsDir)
	}
	if c.ReviewsDir, err = utils.ResolvePath(c.ReviewsDir); err != nil {
		return fmt.Errorf("reviews_dir: %w", err)
	}

	if c.Path != "" {
		if c.Path, err = utils.ResolvePath(c.Path); err != nil {
			return fmt.Errorf("config path: %w", err)
		}
	}

	if c.MaxDiffLines < 0 {
		return fmt.Errorf("max_diff_lines must not be negative, got %d", c.MaxDiffLines)
	}
	if c.MaxDiffLines == 0 {
		c.MaxDiffLines = diff.DefaultMaxLines
	}

	if _, err := c.Schedule(); err != nil {
		return err
	}

	for _, p := range c.Include {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("include: invalid pattern %q", p)
		}
	}

	if c.BlobBackend == "" {
		c.BlobBackend = DefaultBlobBackend
	}
	c.BlobBackend = strings.ToLower(c.BlobBackend)
	if !slices.Contains(backends, c.BlobBackend) {
		return fmt.Errorf("blob_backend must be one of %v, got %q", backends, c.BlobBackend)
	}
	if c.BlobBackend == BackendS3 {
		if c.S3 == nil {
			return errors.New("blob_backend s3 requires the s3 section")
		}
		if err := c.S3.Validate(); err != nil {
			return err
		}
	}

	if c.BlobCacheSize < 0 {
		return fmt.Errorf("blob_cache_size must not be negative, got %d", c.BlobCacheSize)
	}

	return c.Generator.validate()
}

// Schedule converts the time keys into a scheduler configuration.
func (c *Config) Schedule() (scheduler.Config, error) {
	daily, err := scheduler.ParseTimeOfDay(c.DailyTime)
	if err != nil {
		return scheduler.Config{}, fmt.Errorf("daily_time: %w", err)
	}
	day, err := scheduler.ParseWeekday(c.WeeklyDay)
	if err != nil {
		return scheduler.Config{}, fmt.Errorf("weekly_day: %w", err)
	}
	weekly, err := scheduler.ParseTimeOfDay(c.WeeklyTime)
	if err != nil {
		return scheduler.Config{}, fmt.Errorf("weekly_time: %w", err)
	}
	return scheduler.Config{DailyAt: daily, WeeklyDay: day, WeeklyAt: weekly}, nil
}

func (g *GeneratorConfig) validate() error {
	if g.Provider == "" {
		g.Provider = ProviderOpenAI
	}
	g.Provider = strings.ToLower(g.Provider)
	if !slices.Contains(providers, g.Provider) {
		return fmt.Errorf("generator.provider must be one of %v, got %q", providers, g.Provider)
	}
	if g.Timeout != "" {
		if d, err := time.ParseDuration(g.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("generator.timeout: invalid duration %q", g.Timeout)
		}
	}
	if g.Temperature < 0 || g.Temperature > 2 {
		return fmt.Errorf("generator.temperature must be within [0, 2], got %v", g.Temperature)
	}
	if g.MaxTokens < 0 || g.MaxRetries < 0 {
		return errors.New("generator.max_tokens and generator.max_retries must not be negative")
	}
	return nil
}

// Client merges the generator settings over the client defaults.
func (g *GeneratorConfig) Client() generate.Config {
	cfg := generate.DefaultConfig()
	cfg.APIKey = g.APIKey
	if g.BaseURL != "" {
		cfg.BaseURL = g.BaseURL
	}
	if g.Model != "" {
		cfg.Model = g.Model
	}
	if g.Temperature > 0 {
		cfg.Temperature = g.Temperature
	}
	if g.MaxTokens > 0 {
		cfg.MaxTokens = g.MaxTokens
	}
	if d, err := time.ParseDuration(g.Timeout); err == nil && d > 0 {
		cfg.Timeout = d
	}
	if g.MaxRetries > 0 {
		cfg.MaxRetries = g.MaxRetries
	}
	return cfg
}

// Save writes the config as indented JSON. The API key is never written.
func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	out := *c
	out.Generator.APIKey = ""

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}

	return utils.WriteFileAtomic(path, data, 0o600)
}

// Load reads a config file written by Save. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Path = path
	return cfg, nil
}
