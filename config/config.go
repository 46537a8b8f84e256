package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the client, the stream reader and the
// document sync controller. Zero values are filled in by Default.
type Config struct {
	// BaseURL is the root of the backend API, e.g. "http://localhost:8000".
	BaseURL string `yaml:"base_url"`

	// WorkspaceID scopes every desk and chat request.
	WorkspaceID string `yaml:"workspace_id"`

	// Model is the default model passed to stage actions and turns.
	Model string `yaml:"model"`

	// RequestTimeout bounds non-streaming HTTP requests.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// AutosaveDebounce is the idle interval after the last edit before a
	// document save fires.
	AutosaveDebounce time.Duration `yaml:"autosave_debounce"`

	// LoadQuiescence suppresses autosaves for this long after a document
	// load or replace.
	LoadQuiescence time.Duration `yaml:"load_quiescence"`

	// CacheTTL bounds how long desk snapshots stay in the local cache.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with the defaults used when a field is unset.
func Default() Config {
	return Config{
		BaseURL:          "http://localhost:8000",
		Model:            "gpt-4o-mini",
		RequestTimeout:   30 * time.Second,
		AutosaveDebounce: 1500 * time.Millisecond,
		LoadQuiescence:   1800 * time.Millisecond,
		CacheTTL:         5 * time.Minute,
		LogLevel:         "info",
	}
}

// Load reads a YAML config file, fills defaults, and applies environment
// overrides. A missing file is not an error; the defaults plus environment
// are returned instead.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv loads a .env file if present and builds the config from defaults
// plus environment variables only.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()
	cfg := Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DESKFLOW_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("DESKFLOW_WORKSPACE_ID"); v != "" {
		c.WorkspaceID = v
	}
	if v := os.Getenv("DESKFLOW_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("DESKFLOW_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DESKFLOW_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}
	if v := os.Getenv("DESKFLOW_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CacheTTL = d
		}
	}
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("config: base_url is required")
	}
	if c.WorkspaceID == "" {
		return fmt.Errorf("config: workspace_id is required (set DESKFLOW_WORKSPACE_ID)")
	}
	if c.AutosaveDebounce <= 0 {
		return fmt.Errorf("config: autosave_debounce must be positive")
	}
	if c.LoadQuiescence < 0 {
		return fmt.Errorf("config: load_quiescence must not be negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}
