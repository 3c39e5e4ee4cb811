package croprec

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is used for the XDG config directory.
	AppName = "croprec"

	// Version is reported in the User-Agent header and by the CLI.
	Version = "0.3.0"

	DefaultBaseURL     = "http://127.0.0.1:5000"
	DefaultPredictPath = "/predict"
	DefaultSavePath    = "/store-selected-crops"
	DefaultTimeout     = 30 * time.Second
	DefaultLogLevel    = "info"

	defaultConfigFile = "config.yaml"
)

// Environment variables that override the config file.
const (
	EnvBaseURL    = "CROPREC_BASE_URL"
	EnvPredictURL = "CROPREC_PREDICT_URL"
	EnvSaveURL    = "CROPREC_SAVE_URL"
	EnvTimeout    = "CROPREC_TIMEOUT"
	EnvLogLevel   = "CROPREC_LOG_LEVEL"
)

var (
	ErrInvalidBaseURL    = errors.New("invalid base url: must be an absolute http(s) url")
	ErrInvalidPredictURL = errors.New("invalid predict url: must be an absolute http(s) url")
	ErrInvalidSaveURL    = errors.New("invalid save url: must be an absolute http(s) url")
	ErrInvalidTimeout    = errors.New("invalid timeout: must be positive")
)

// EndpointConfig holds the addresses of the prediction service.
type EndpointConfig struct {
	// BaseURL is probed by the health check and is the root for the two
	// endpoint defaults below.
	BaseURL    string `yaml:"base_url"`
	PredictURL string `yaml:"predict_url"`
	SaveURL    string `yaml:"save_url"`
}

// LogConfig controls the zap logger built by internal/logging.
type LogConfig struct {
	Level string `yaml:"level"`
	// File additionally receives log output when set.
	File string `yaml:"file,omitempty"`
}

// Config aggregates runtime settings persisted to config.yaml.
type Config struct {
	Endpoints EndpointConfig `yaml:"endpoints"`
	Timeout   time.Duration  `yaml:"timeout"`
	UserAgent string         `yaml:"user_agent"`
	// DetailedErrors makes the status line name the failure kind instead of
	// the generic message.
	DetailedErrors bool      `yaml:"detailed_errors"`
	Log            LogConfig `yaml:"log"`
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	c.Endpoints.BaseURL = strings.TrimRight(strings.TrimSpace(c.Endpoints.BaseURL), "/")
	if c.Endpoints.BaseURL == "" {
		c.Endpoints.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(c.Endpoints.PredictURL) == "" {
		c.Endpoints.PredictURL = c.Endpoints.BaseURL + DefaultPredictPath
	}
	if strings.TrimSpace(c.Endpoints.SaveURL) == "" {
		c.Endpoints.SaveURL = c.Endpoints.BaseURL + DefaultSavePath
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = AppName + "/" + Version
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// Validate checks the endpoint addresses and timeout.
func (c Config) Validate() error {
	if !isHTTPURL(c.Endpoints.BaseURL) {
		return ErrInvalidBaseURL
	}
	if !isHTTPURL(c.Endpoints.PredictURL) {
		return ErrInvalidPredictURL
	}
	if !isHTTPURL(c.Endpoints.SaveURL) {
		return ErrInvalidSaveURL
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DefaultConfigPath is $XDG_CONFIG_HOME/croprec/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, defaultConfigFile)
}

// LoadConfig loads configuration from path, or from DefaultConfigPath when
// path is empty. A missing file yields the defaults. Environment variables
// are applied on top of the file.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	c.Endpoints.BaseURL = getEnvOrDefault(EnvBaseURL, c.Endpoints.BaseURL)
	c.Endpoints.PredictURL = getEnvOrDefault(EnvPredictURL, c.Endpoints.PredictURL)
	c.Endpoints.SaveURL = getEnvOrDefault(EnvSaveURL, c.Endpoints.SaveURL)
	c.Log.Level = getEnvOrDefault(EnvLogLevel, c.Log.Level)
	if raw := os.Getenv(EnvTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SaveConfig persists configuration to disk.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.ApplyDefaults()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
