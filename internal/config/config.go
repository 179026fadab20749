package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "synthfeed.yaml"

// Config holds all synthfeed configuration. It is loaded once and passed
// explicitly to the cycle runner and the CLI commands.
type Config struct {
	// Feeds lists the RSS/Atom feeds headlines are drawn from.
	Feeds []string `yaml:"feeds"`

	Feed      FeedConfig      `yaml:"feed"`
	LLM       LLMConfig       `yaml:"llm"`
	Personas  PersonaConfig   `yaml:"personas"`
	Prompt    PromptConfig    `yaml:"prompt"`
	Sanitizer SanitizerConfig `yaml:"sanitizer"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Media     MediaConfig     `yaml:"media"`
	Storage   StorageConfig   `yaml:"storage"`
	Render    RenderConfig    `yaml:"render"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// FeedConfig configures headline fetching.
type FeedConfig struct {
	HeadlinesPerFeed int    `yaml:"headlines_per_feed"`
	UserAgent        string `yaml:"user_agent"`
	Timeout          string `yaml:"timeout"`
	// Concurrency bounds parallel feed fetches.
	Concurrency int `yaml:"concurrency"`

	// FetchArticles reads the linked page when an entry body is thin.
	FetchArticles bool `yaml:"fetch_articles"`
	// MinBodyWords is the body length below which the page is read.
	MinBodyWords int `yaml:"min_body_words"`
	// ArticleMaxWords caps the story text taken from the page.
	ArticleMaxWords int `yaml:"article_max_words"`
}

// StorageConfig configures the history file and the generation archive.
type StorageConfig struct {
	HistoryPath string `yaml:"history_path"`
	ArchivePath string `yaml:"archive_path"`
	// MaxHistory caps the number of cycles kept in the history file (0 = unlimited).
	MaxHistory int `yaml:"max_history"`
}

// RenderConfig configures the static page.
type RenderConfig struct {
	OutputPath string `yaml:"output_path"`
	Title      string `yaml:"title"`
	MaxCycles  int    `yaml:"max_cycles"`
}

// MediaConfig configures headline image handling.
type MediaConfig struct {
	Enabled      bool   `yaml:"enabled"`
	MaxDimension int    `yaml:"max_dimension"`
	MaxBytes     int64  `yaml:"max_bytes"`
	// MaxPixels caps the declared width*height of a downloaded image.
	MaxPixels    int64  `yaml:"max_pixels"`
	Timeout      string `yaml:"timeout"`
	// Dir receives thumbnails referenced by the rendered page. Empty disables saving.
	Dir string `yaml:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Feeds: []string{
			"https://www.reddit.com/r/animenews/.rss",
		},

		Feed: FeedConfig{
			HeadlinesPerFeed: 3,
			UserAgent:        "synthfeed/1.0 (+https://github.com/synthfeed)",
			Timeout:          "30s",
			Concurrency:      4,
			FetchArticles:    false,
			MinBodyWords:     40,
			ArticleMaxWords:  600,
		},

		LLM: LLMConfig{
			Provider:        "gemini",
			Model:           "gemini-2.5-flash-lite",
			Timeout:         "120s",
			ContextWindow:   10000,
			Temperature:     1.0,
			MaxOutputTokens: 8192,
		},

		Personas: PersonaConfig{
			Path: "personas.yml",
			Max:  8,
		},

		Prompt: PromptConfig{
			Style:          "The diction and prose should be reflective of modern brain rotted youth.",
			ShortFormWords: 12,
			ShortFormRatio: 0.4,
			MinUpvotes:     -10,
			MaxUpvotes:     200,
		},

		Sanitizer: SanitizerConfig{
			Repair: "depth",
		},

		Embedding: EmbeddingConfig{
			Enabled:          false,
			Model:            "gemini-embedding-001",
			TaskType:         "CLUSTERING",
			ClusterThreshold: 0.80,
			DedupeThreshold:  0.97,
		},

		Media: MediaConfig{
			Enabled:      true,
			MaxDimension: 768,
			MaxBytes:     8 << 20,
			MaxPixels:    40_000_000,
			Timeout:      "20s",
			Dir:          "images",
		},

		Storage: StorageConfig{
			HistoryPath: "history.json",
			ArchivePath: "archive.db",
			MaxHistory:  100,
		},

		Render: RenderConfig{
			OutputPath: "index.html",
			Title:      "AI Social Feed",
			MaxCycles:  10,
		},

		Logging: LoggingConfig{
			Level:     "info",
			DebugMode: false,
			Dir:       "logs",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Missing file: defaults plus environment
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// API key: GEMINI_API_KEY wins over GOOGLE_API_KEY
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}

	if model := os.Getenv("SYNTHFEED_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if feeds := os.Getenv("SYNTHFEED_FEEDS"); feeds != "" {
		var list []string
		for _, f := range strings.Split(feeds, ",") {
			if f = strings.TrimSpace(f); f != "" {
				list = append(list, f)
			}
		}
		if len(list) > 0 {
			c.Feeds = list
		}
	}

	if path := os.Getenv("SYNTHFEED_HISTORY"); path != "" {
		c.Storage.HistoryPath = path
	}
	if path := os.Getenv("SYNTHFEED_ARCHIVE"); path != "" {
		c.Storage.ArchivePath = path
	}
	if path := os.Getenv("SYNTHFEED_OUTPUT"); path != "" {
		c.Render.OutputPath = path
	}
}

// GetFeedTimeout returns the feed fetch timeout as a duration.
func (c *Config) GetFeedTimeout() time.Duration {
	return parseDuration(c.Feed.Timeout, 30*time.Second)
}

// GetLLMTimeout returns the generator timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 120*time.Second)
}

// GetMediaTimeout returns the image download timeout as a duration.
func (c *Config) GetMediaTimeout() time.Duration {
	return parseDuration(c.Media.Timeout, 20*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ValidProviders lists all supported generator providers.
var ValidProviders = []string{"gemini"}

// ValidRepairStrategies lists the accepted sanitizer.repair values.
var ValidRepairStrategies = []string{"depth", "last_brace"}

// Validate validates the configuration. requireKey is false for offline
// commands (dry runs, rendering) that never call the generator.
func (c *Config) Validate(requireKey bool) error {
	if requireKey && c.LLM.APIKey == "" {
		return fmt.Errorf("generator API key not configured (set GEMINI_API_KEY or llm.api_key)")
	}

	if !contains(ValidProviders, c.LLM.Provider) {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if len(c.Feeds) == 0 {
		return fmt.Errorf("no feeds configured")
	}
	if c.Feed.HeadlinesPerFeed < 1 {
		return fmt.Errorf("feed.headlines_per_feed must be >= 1")
	}

	if c.Personas.Max < 1 {
		return fmt.Errorf("personas.max must be >= 1")
	}

	if !contains(ValidRepairStrategies, c.Sanitizer.Repair) {
		return fmt.Errorf("invalid sanitizer.repair: %s (valid: %v)", c.Sanitizer.Repair, ValidRepairStrategies)
	}

	if c.Prompt.MinUpvotes > c.Prompt.MaxUpvotes {
		return fmt.Errorf("prompt.min_upvotes (%d) exceeds prompt.max_upvotes (%d)", c.Prompt.MinUpvotes, c.Prompt.MaxUpvotes)
	}
	if c.Prompt.ShortFormRatio < 0 || c.Prompt.ShortFormRatio > 1 {
		return fmt.Errorf("prompt.short_form_ratio must be within [0,1]")
	}

	if c.Embedding.Enabled {
		for name, v := range map[string]float64{
			"embedding.cluster_threshold": c.Embedding.ClusterThreshold,
			"embedding.dedupe_threshold":  c.Embedding.DedupeThreshold,
		} {
			if v < 0 || v > 1 {
				return fmt.Errorf("%s must be within [0,1], got %v", name, v)
			}
		}
	}

	if c.Storage.HistoryPath == "" {
		return fmt.Errorf("storage.history_path is required")
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
