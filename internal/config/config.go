package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const dirName = ".stockdash"

// StorageConfig selects where the session is persisted
type StorageConfig struct {
	Driver    string `yaml:"driver" json:"driver"`         // memory, file, sqlite, postgres, redis
	Dir       string `yaml:"dir" json:"dir"`               // Directory for file and sqlite stores
	RedisAddr string `yaml:"redis_addr" json:"redis_addr"` // host:port
	Profile   string `yaml:"profile" json:"profile"`       // Namespace for shared stores

	// Secrets come from the environment only and are never written to disk
	DSN           string `yaml:"-" json:"-"` // Postgres connection string
	RedisPassword string `yaml:"-" json:"-"`
	Passphrase    string `yaml:"-" json:"-"` // Seals the file store
}

// Secrets lists which env-only settings are set, for display
func (s StorageConfig) Secrets() []string {
	var names []string
	for _, kv := range []struct {
		name, value string
	}{
		{"STOCKDASH_STORAGE_DSN", s.DSN},
		{"STOCKDASH_REDIS_PASSWORD", s.RedisPassword},
		{"STOCKDASH_STORE_PASSPHRASE", s.Passphrase},
	} {
		if kv.value != "" {
			names = append(names, kv.name)
		}
	}
	return names
}

// Config holds user preferences
type Config struct {
	AuthURL  string `yaml:"auth_url" json:"auth_url"`   // Auth service base URL
	StockURL string `yaml:"stock_url" json:"stock_url"` // Stock service base URL
	NewsURL  string `yaml:"news_url" json:"news_url"`   // News service base URL

	HTTPTimeout   time.Duration `yaml:"http_timeout" json:"http_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"` // Session expiry check period

	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging
}

// Dir returns ~/.stockdash
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dirName), nil
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	base, _ := Dir()
	logPath := ""
	if base != "" {
		logPath = filepath.Join(base, "logs", "stockdash.log")
	}

	return &Config{
		AuthURL:       "http://localhost:8004",
		StockURL:      "http://localhost:8000",
		NewsURL:       "http://localhost:8001",
		HTTPTimeout:   15 * time.Second,
		SweepInterval: 30 * time.Second,
		Storage: StorageConfig{
			Driver:  "file",
			Dir:     base,
			Profile: "default",
		},
		LogLevel:   "INFO",
		LogFile:    logPath,
		LogConsole: false,
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// applyEnv overrides file values with STOCKDASH_* variables
func (c *Config) applyEnv() {
	c.AuthURL = getEnv("STOCKDASH_AUTH_URL", c.AuthURL)
	c.StockURL = getEnv("STOCKDASH_STOCK_URL", c.StockURL)
	c.NewsURL = getEnv("STOCKDASH_NEWS_URL", c.NewsURL)
	c.HTTPTimeout = getDuration("STOCKDASH_HTTP_TIMEOUT", c.HTTPTimeout)
	c.SweepInterval = getDuration("STOCKDASH_SWEEP_INTERVAL", c.SweepInterval)

	c.Storage.Driver = getEnv("STOCKDASH_STORAGE", c.Storage.Driver)
	c.Storage.Dir = getEnv("STOCKDASH_STORAGE_DIR", c.Storage.Dir)
	c.Storage.DSN = getEnv("STOCKDASH_STORAGE_DSN", c.Storage.DSN)
	c.Storage.RedisAddr = getEnv("STOCKDASH_REDIS_ADDR", c.Storage.RedisAddr)
	c.Storage.RedisPassword = getEnv("STOCKDASH_REDIS_PASSWORD", c.Storage.RedisPassword)
	c.Storage.Profile = getEnv("STOCKDASH_PROFILE", c.Storage.Profile)
	c.Storage.Passphrase = getEnv("STOCKDASH_STORE_PASSPHRASE", c.Storage.Passphrase)

	c.LogLevel = getEnv("STOCKDASH_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("STOCKDASH_LOG_FILE", c.LogFile)
	if v := os.Getenv("STOCKDASH_LOG_CONSOLE"); v != "" {
		c.LogConsole = v == "true"
	}
}

// Path returns the config file location
func Path() (string, error) {
	base, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load loads config from ~/.stockdash/config.yaml
func Load() (*Config, error) {
	configPath, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

// LoadFile loads config from path, then .env and the environment
func LoadFile(configPath string) (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// Defaults if no config
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save saves config to ~/.stockdash/config.yaml
func (c *Config) Save() error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	return c.SaveFile(configPath)
}

// SaveFile writes the config to path
func (c *Config) SaveFile(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(configPath, 0600); err != nil {
		return fmt.Errorf("failed to restrict config: %w", err)
	}

	return nil
}
