// Package config loads prompter settings from an optional YAML file, a
// .env file and the process environment, in that order of increasing
// precedence. CLI flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Env var names.
const (
	EnvProvider    = "PROMPTER_PROVIDER"
	EnvGeminiKey   = "GEMINI_API_KEY"
	EnvGeminiModel = "GEMINI_MODEL"
	EnvGPTKey      = "GPT_CHAT_KEY"
	EnvGPTEndpoint = "GPT_CHAT_ENDPOINT"
	EnvGPTModel    = "GPT_CHAT_MODEL"
	EnvServerAddr  = "PROMPTER_ADDR"
	EnvLogFile     = "PROMPTER_LOG_FILE"
)

// DefaultConfigFile is read when no --config flag is given.
const DefaultConfigFile = "prompter.yaml"

// Config holds all prompter configuration.
type Config struct {
	Provider string         `yaml:"provider"` // gemini, openai
	Gemini   GeminiConfig   `yaml:"gemini"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Timeout  string         `yaml:"timeout"`
	Playback PlaybackConfig `yaml:"playback"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	BaseURL     string  `yaml:"base_url"` // empty uses the public API
}

// OpenAIConfig configures the OpenAI-compatible backend.
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// PlaybackConfig holds teleprompter defaults and timer cadences.
type PlaybackConfig struct {
	Speed          int    `yaml:"speed"`
	FontSize       int    `yaml:"font_size"`
	Mirrored       bool   `yaml:"mirrored"`
	ScrollInterval string `yaml:"scroll_interval"`
	IdleInterval   string `yaml:"idle_interval"`
	IdleTimeout    string `yaml:"idle_timeout"`
}

// ServerConfig configures the HTTP/WebSocket surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level"` // off, normal, verbose
	File  string `yaml:"file"`  // "stderr" logs to the console
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderGemini,
		Gemini:   GeminiConfig{Model: "gemini-2.5-flash", Temperature: 0.8},
		OpenAI:   OpenAIConfig{Temperature: 0.7, MaxTokens: 2048},
		Timeout:  "60s",
		Playback: PlaybackConfig{
			Speed:          5,
			FontSize:       48,
			ScrollInterval: "50ms",
			IdleInterval:   "100ms",
			IdleTimeout:    "3s",
		},
		Server:  ServerConfig{Addr: "127.0.0.1:8088"},
		Logging: LoggingConfig{Level: "normal", File: ".prompter-logs/prompter.log"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error when path is empty or the default name.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != "" && path != DefaultConfigFile
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// applyEnvOverrides lets environment variables win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvGeminiKey); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(EnvGeminiModel); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv(EnvGPTKey); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv(EnvGPTEndpoint); v != "" {
		c.OpenAI.Endpoint = v
	}
	if v := os.Getenv(EnvGPTModel); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv(EnvServerAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv(EnvProvider); v != "" {
		c.Provider = strings.ToLower(v)
	} else if c.Gemini.APIKey == "" && c.OpenAI.APIKey != "" && c.OpenAI.Endpoint != "" {
		c.Provider = ProviderOpenAI
	}
}

// Validate checks enumerations and durations.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("config: unknown provider %q (want %s or %s)", c.Provider, ProviderGemini, ProviderOpenAI)
	}
	switch c.Logging.Level {
	case "off", "normal", "verbose":
	default:
		return fmt.Errorf("config: unknown logging level %q", c.Logging.Level)
	}
	for name, t := range map[string]float64{
		"gemini.temperature": c.Gemini.Temperature,
		"openai.temperature": c.OpenAI.Temperature,
	} {
		if t < 0 || t > 2 {
			return fmt.Errorf("config: %s must be between 0 and 2, got %g", name, t)
		}
	}
	if c.OpenAI.MaxTokens <= 0 {
		return fmt.Errorf("config: openai.max_tokens must be positive, got %d", c.OpenAI.MaxTokens)
	}
	for name, v := range map[string]string{
		"timeout":                  c.Timeout,
		"playback.scroll_interval": c.Playback.ScrollInterval,
		"playback.idle_interval":   c.Playback.IdleInterval,
		"playback.idle_timeout":    c.Playback.IdleTimeout,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", name, v)
		}
	}
	return nil
}

// HasCredential reports whether the selected provider has what it needs.
func (c *Config) HasCredential() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAI.APIKey != "" && c.OpenAI.Endpoint != ""
	default:
		return c.Gemini.APIKey != ""
	}
}

// TimeoutDuration returns the parsed HTTP timeout.
func (c *Config) TimeoutDuration() time.Duration { return durationOrZero(c.Timeout) }

// ScrollInterval returns the parsed scroll tick cadence.
func (c *Config) ScrollInterval() time.Duration { return durationOrZero(c.Playback.ScrollInterval) }

// IdleInterval returns the parsed idle check cadence.
func (c *Config) IdleInterval() time.Duration { return durationOrZero(c.Playback.IdleInterval) }

// IdleTimeout returns the parsed controls idle timeout.
func (c *Config) IdleTimeout() time.Duration { return durationOrZero(c.Playback.IdleTimeout) }

// durationOrZero is only called on validated values; zero falls back to
// component defaults.
func durationOrZero(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
