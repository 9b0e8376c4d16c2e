package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all replykit configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Extraction and segmentation
	Articulation ArticulationConfig `yaml:"articulation"`

	// Terminal rendering
	Render RenderConfig `yaml:"render"`

	// HTTP response handler
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Directory watcher
	Inbox InboxConfig `yaml:"inbox"`
}

// LLMConfig configures the language-model transport.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, gemini, echo
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"` // empty = provider default
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`

	// PromptTemplate is a YAML prompt file. Empty uses the built-in template.
	PromptTemplate string `yaml:"prompt_template"`
}

// ArticulationConfig configures raw output normalization.
type ArticulationConfig struct {
	// PatternFallback enables the last-resort envelope regular expression.
	PatternFallback bool `yaml:"pattern_fallback"`

	// MaxSurfaceLength caps normalized text in runes. 0 disables truncation.
	MaxSurfaceLength int `yaml:"max_surface_length"`
}

// RenderConfig configures terminal output.
type RenderConfig struct {
	Markdown       bool   `yaml:"markdown"` // glamour pass over prose
	Theme          string `yaml:"theme"`    // auto, dark, light
	WordWrap       int    `yaml:"word_wrap"`
	CopyResetDelay string `yaml:"copy_reset_delay"`
}

// ServerConfig configures the HTTP response handler.
type ServerConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	ReadTimeout      string `yaml:"read_timeout"`
	ShutdownTimeout  string `yaml:"shutdown_timeout"`
	MaxBodyBytes     int64  `yaml:"max_body_bytes"`
	MaxBatchItems    int    `yaml:"max_batch_items"`
	BatchConcurrency int    `yaml:"batch_concurrency"`
}

// InboxConfig configures the directory watcher.
type InboxConfig struct {
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "replykit",
		Version: "0.3.0",

		LLM: LLMConfig{
			Provider: "echo",
			Timeout:  "120s",
		},

		Articulation: ArticulationConfig{
			PatternFallback:  true,
			MaxSurfaceLength: 50000,
		},

		Render: RenderConfig{
			Markdown:       false,
			Theme:          "auto",
			WordWrap:       80,
			CopyResetDelay: "2s",
		},

		Server: ServerConfig{
			Host:             "127.0.0.1",
			Port:             8085,
			ReadTimeout:      "30s",
			ShutdownTimeout:  "10s",
			MaxBodyBytes:     1 << 20,
			MaxBatchItems:    64,
			BatchConcurrency: 4,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},

		Inbox: InboxConfig{
			Dir:        "inbox",
			Extensions: []string{".txt", ".md", ".json"},
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
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
	// LLM API key from environment (later keys win)
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if model := os.Getenv("REPLYKIT_LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("REPLYKIT_LLM_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}

	if host := os.Getenv("REPLYKIT_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("REPLYKIT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if level := os.Getenv("REPLYKIT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if debug := os.Getenv("REPLYKIT_DEBUG"); debug != "" {
		if on, err := strconv.ParseBool(debug); err == nil {
			c.Logging.DebugMode = on
		}
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	return c.LLM.GetTimeout()
}

// GetTimeout returns the request timeout as a duration.
func (c LLMConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 120*time.Second)
}

// GetCopyResetDelay returns how long a copy button shows "copied".
func (c *Config) GetCopyResetDelay() time.Duration {
	return parseDuration(c.Render.CopyResetDelay, 2*time.Second)
}

// GetReadTimeout returns the HTTP read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 30*time.Second)
}

// GetShutdownTimeout returns the graceful shutdown window as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// Addr returns the listen address of the HTTP handler.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"openai", "gemini", "echo"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.Articulation.MaxSurfaceLength < 0 {
		return fmt.Errorf("articulation.max_surface_length must be >= 0, got %d", c.Articulation.MaxSurfaceLength)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.BatchConcurrency < 1 {
		return fmt.Errorf("server.batch_concurrency must be >= 1, got %d", c.Server.BatchConcurrency)
	}
	if c.Server.MaxBatchItems < 1 {
		return fmt.Errorf("server.max_batch_items must be >= 1, got %d", c.Server.MaxBatchItems)
	}
	if c.Server.MaxBodyBytes < 1 {
		return fmt.Errorf("server.max_body_bytes must be >= 1, got %d", c.Server.MaxBodyBytes)
	}
	for _, ext := range c.Inbox.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("inbox extension %q must start with a dot", ext)
		}
	}

	return nil
}

// ValidateLLM checks that the configured provider can be called.
func (c *Config) ValidateLLM() error {
	if c.LLM.Provider != "echo" && c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured for %s (set OPENAI_API_KEY or GEMINI_API_KEY)", c.LLM.Provider)
	}
	return nil
}
