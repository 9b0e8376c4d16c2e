package config

import "replykit/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, console
	Dir        string          `yaml:"dir"`        // empty = stderr
	DebugMode  bool            `yaml:"debug_mode"` // Master toggle - false = no category logging
	Categories map[string]bool `yaml:"categories"` // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns false if debug_mode is false.
// Returns true if debug_mode is true and category is enabled (or not specified).
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true // All enabled by default in debug mode
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true // Enable by default if not specified
	}
	return enabled
}

// Options converts the config into logging.Initialize options.
func (c *LoggingConfig) Options() logging.Options {
	return logging.Options{
		DebugMode:  c.DebugMode,
		Level:      c.Level,
		Format:     c.Format,
		Dir:        c.Dir,
		Categories: c.Categories,
	}
}
