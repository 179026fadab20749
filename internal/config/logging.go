package config

import "synthfeed/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	DebugMode  bool            `yaml:"debug_mode"` // Master toggle for the JSON file log
	Dir        string          `yaml:"dir"`
	Categories map[string]bool `yaml:"categories"` // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Categories not listed are enabled.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// Options converts the config into logging.Options.
func (c *LoggingConfig) Options(verbose bool) logging.Options {
	return logging.Options{
		Dir:        c.Dir,
		DebugMode:  c.DebugMode,
		Level:      c.Level,
		Verbose:    verbose,
		Categories: c.Categories,
	}
}
