package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultTokenTTL is the admin session lifetime used when nothing else is configured
	DefaultTokenTTL = 10 * 24 * time.Hour
	// DefaultWatchdogInterval is how often an admin view re-checks session expiry
	DefaultWatchdogInterval = 30 * time.Second
)

// Config holds user preferences
type Config struct {
	APIURL           string        `yaml:"api_url" json:"api_url"`                     // Base URL of the site API
	TokenTTL         time.Duration `yaml:"token_ttl" json:"token_ttl"`                 // Admin session lifetime
	WatchdogInterval time.Duration `yaml:"watchdog_interval" json:"watchdog_interval"` // Expiry check period
	RequestTimeout   time.Duration `yaml:"request_timeout" json:"request_timeout"`     // Per-request HTTP timeout
	SessionCookie    string        `yaml:"session_cookie" json:"session_cookie"`       // Cookie carrying the admin token
	StorePath        string        `yaml:"store_path" json:"store_path"`               // Local storage database
	StoreKey         string        `yaml:"store_key,omitempty" json:"-"`               // Seals the token at rest when set
	ConfirmDelete    bool          `yaml:"confirm_delete" json:"confirm_delete"`       // Require confirmation for delete

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging

	path string
}

// Dir returns the blogdesk home directory (~/.blogdesk, or $BLOGDESK_HOME)
func Dir() (string, error) {
	if dir := os.Getenv("BLOGDESK_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".blogdesk"), nil
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	dir, _ := Dir()
	logPath, storePath := "", ""
	if dir != "" {
		logPath = filepath.Join(dir, "logs", "blogdesk.log")
		storePath = filepath.Join(dir, "local.db")
	}

	return &Config{
		APIURL:           "http://localhost:4000/api/v1",
		TokenTTL:         DefaultTokenTTL,
		WatchdogInterval: DefaultWatchdogInterval,
		RequestTimeout:   30 * time.Second,
		SessionCookie:    "admin-token",
		StorePath:        storePath,
		ConfirmDelete:    true,
		LogLevel:         "INFO",
		LogFile:          logPath,
		LogConsole:       false,
	}
}

// Load loads config from ~/.blogdesk/config.yaml, then applies environment overrides.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, "config.yaml"))
}

// LoadFrom loads config from path. A missing file yields defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.APIURL = getEnv("BLOGDESK_API_URL", c.APIURL)
	c.SessionCookie = getEnv("BLOGDESK_SESSION_COOKIE", c.SessionCookie)
	c.StorePath = getEnv("BLOGDESK_STORE_PATH", c.StorePath)
	c.StoreKey = getEnv("BLOGDESK_STORE_KEY", c.StoreKey)
	c.LogLevel = getEnv("BLOGDESK_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("BLOGDESK_LOG_FILE", c.LogFile)
	if v := os.Getenv("BLOGDESK_LOG_CONSOLE"); v != "" {
		c.LogConsole = v == "true"
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"BLOGDESK_TOKEN_TTL", &c.TokenTTL},
		{"BLOGDESK_WATCHDOG_INTERVAL", &c.WatchdogInterval},
		{"BLOGDESK_REQUEST_TIMEOUT", &c.RequestTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if v := os.Getenv("BLOGDESK_CONFIRM_DELETE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid BLOGDESK_CONFIRM_DELETE: %w", err)
		}
		c.ConfirmDelete = b
	}
	return nil
}

// Validate rejects settings the client cannot run with
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %s", c.TokenTTL)
	}
	if c.WatchdogInterval <= 0 {
		return fmt.Errorf("watchdog_interval must be positive, got %s", c.WatchdogInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Save writes the config back to the file it was loaded from (~/.blogdesk/config.yaml by default)
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
