package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

const (
	AppName = "basespace-dl"

	DefaultAPIURL           = "https://api.basespace.illumina.com/v1pre3"
	DefaultResponseLimit    = 1024
	DefaultConcurrency      = 1
	DefaultFetchConcurrency = 16
	DefaultHTTPTimeout      = "30s"
	DefaultLogLevel         = "warn"

	SettingsFileName      = "settings.toml"
	defaultLedgerName     = "ledger.db"
	defaultRequestTimeout = 30 * time.Second

	configDirEnvKey   = "BASESPACE_DL_CONFIG_DIR"
	apiURLEnvKey      = "BASESPACE_DL_API_URL"
	httpTimeoutEnvKey = "BASESPACE_DL_HTTP_TIMEOUT"
	concurrencyEnvKey = "BASESPACE_DL_CONCURRENCY"
	ledgerEnvKey      = "BASESPACE_DL_LEDGER"
)

// Config defines runtime settings for basespace-dl. Account tokens live in
// the workspace file, not here.
type Config struct {
	APIURL           string `toml:"api_url"`
	ResponseLimit    int    `toml:"response_limit"`
	Concurrency      int    `toml:"concurrency"`
	FetchConcurrency int    `toml:"fetch_concurrency"`
	HTTPTimeout      string `toml:"http_timeout"`
	LogLevel         string `toml:"log_level"`
	LedgerPath       string `toml:"ledger_path"`

	Dir string `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:           DefaultAPIURL,
		ResponseLimit:    DefaultResponseLimit,
		Concurrency:      DefaultConcurrency,
		FetchConcurrency: DefaultFetchConcurrency,
		HTTPTimeout:      DefaultHTTPTimeout,
	}
}

// Dir returns the directory holding settings and account files.
func Dir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not locate $HOME: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// SettingsPath returns the path to the settings file.
func SettingsPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFileName), nil
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Load reads the settings file and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	cfg.Dir = dir
	if err := loadFile(filepath.Join(dir, SettingsFileName), &cfg); err != nil {
		return nil, err
	}

	if apiURL := strings.TrimSpace(os.Getenv(apiURLEnvKey)); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if timeout := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey)); timeout != "" {
		cfg.HTTPTimeout = timeout
	}
	if raw := strings.TrimSpace(os.Getenv(concurrencyEnvKey)); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.Concurrency = parsed
		}
	}
	if ledger := strings.TrimSpace(os.Getenv(ledgerEnvKey)); ledger != "" {
		cfg.LedgerPath = ledger
	}

	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.APIURL) == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.ResponseLimit <= 0 {
		c.ResponseLimit = DefaultResponseLimit
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = DefaultFetchConcurrency
	}
	if strings.TrimSpace(c.HTTPTimeout) == "" {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if strings.TrimSpace(c.LedgerPath) == "" {
		c.LedgerPath = filepath.Join(xdg.DataHome, AppName, defaultLedgerName)
	}
}

// RequestTimeout parses http_timeout as a duration or whole seconds.
func (c *Config) RequestTimeout() time.Duration {
	return parseTimeout(c.HTTPTimeout)
}

func parseTimeout(raw string) time.Duration {
	value := strings.TrimSpace(raw)
	if value == "" {
		return defaultRequestTimeout
	}
	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultRequestTimeout
}

var allowedKeys = []string{
	"api_url",
	"response_limit",
	"concurrency",
	"fetch_concurrency",
	"http_timeout",
	"log_level",
	"ledger_path",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "response_limit":
		return strconv.Itoa(c.ResponseLimit), nil
	case "concurrency":
		return strconv.Itoa(c.Concurrency), nil
	case "fetch_concurrency":
		return strconv.Itoa(c.FetchConcurrency), nil
	case "http_timeout":
		return c.HTTPTimeout, nil
	case "log_level":
		return c.LogLevel, nil
	case "ledger_path":
		return c.LedgerPath, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	data[key] = parsedValue

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "response_limit", "concurrency", "fetch_concurrency":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "http_timeout":
		if _, err := time.ParseDuration(value); err == nil {
			return value, nil
		}
		if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
			return value, nil
		}
		return nil, fmt.Errorf("%s must be a duration such as 30s", key)
	default:
		return value, nil
	}
}
