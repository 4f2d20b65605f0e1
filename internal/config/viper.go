// Package config provides Viper-based hierarchical configuration management
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CLAWBACK_STATE_DRIVER.
const EnvPrefix = "CLAWBACK"

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// StateConfig selects where trips and chat state live.
type StateConfig struct {
	Dir    string `mapstructure:"dir" yaml:"dir"`
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"-"`
}

// TripConfig holds trip defaults.
type TripConfig struct {
	DefaultCurrency string `mapstructure:"default_currency" yaml:"default_currency"`
}

// PendingConfig controls confirmation prompts.
type PendingConfig struct {
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// FXConfig configures the exchange-rate client.
type FXConfig struct {
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// SheetsConfig configures spreadsheet sync.
type SheetsConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Account string        `mapstructure:"account" yaml:"account"`
	Binary  string        `mapstructure:"binary" yaml:"binary"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AuditConfig locates the raw input log.
type AuditConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Addr           string `mapstructure:"addr" yaml:"addr"`
	TokenHash      string `mapstructure:"token_hash" yaml:"-"`
	MaxConnections int    `mapstructure:"max_connections" yaml:"max_connections"`
}

// ExportConfig configures CSV export.
type ExportConfig struct {
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
}

// Config represents the complete application configuration
type Config struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	State   StateConfig   `mapstructure:"state" yaml:"state"`
	Trip    TripConfig    `mapstructure:"trip" yaml:"trip"`
	Pending PendingConfig `mapstructure:"pending" yaml:"pending"`
	FX      FXConfig      `mapstructure:"fx" yaml:"fx"`
	Sheets  SheetsConfig  `mapstructure:"sheets" yaml:"sheets"`
	Audit   AuditConfig   `mapstructure:"audit" yaml:"audit"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Export  ExportConfig  `mapstructure:"export" yaml:"export"`
}

// ExportDelimiter returns the configured CSV delimiter as a rune.
func (c *Config) ExportDelimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.Export.Delimiter)
	return r
}

// InitializeConfig loads configuration from defaults, an optional config file
// and CLAWBACK_* environment variables, in increasing precedence.
// An empty configFile searches $HOME/.clawback, .clawback and the working directory.
func InitializeConfig(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.clawback")
		v.AddConfigPath(".clawback")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	dir, err := expandHome(config.State.Dir)
	if err != nil {
		return nil, err
	}
	config.State.Dir = dir

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("state.dir", "~/.clawback")
	v.SetDefault("state.driver", "file")
	v.SetDefault("state.dsn", "")

	v.SetDefault("trip.default_currency", "ILS")
	v.SetDefault("pending.ttl", 5*time.Minute)

	v.SetDefault("fx.base_url", "https://api.frankfurter.app")
	v.SetDefault("fx.cache_ttl", time.Hour)
	v.SetDefault("fx.timeout", 10*time.Second)
	v.SetDefault("fx.requests_per_second", 5.0)

	v.SetDefault("sheets.enabled", true)
	v.SetDefault("sheets.account", "")
	v.SetDefault("sheets.binary", "gog")
	v.SetDefault("sheets.timeout", 30*time.Second)

	v.SetDefault("audit.path", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.token_hash", "")
	v.SetDefault("server.max_connections", 0)

	v.SetDefault("export.delimiter", ",")
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	switch config.State.Driver {
	case "file":
		if config.State.Dir == "" {
			return fmt.Errorf("state.dir is required for the file driver")
		}
	case "postgres":
		if config.State.DSN == "" {
			return fmt.Errorf("state.dsn is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid state driver: %s (must be 'file', 'postgres' or 'memory')", config.State.Driver)
	}

	if len(config.Trip.DefaultCurrency) != 3 {
		return fmt.Errorf("trip.default_currency must be a 3-letter code, got: %s", config.Trip.DefaultCurrency)
	}

	durations := []struct {
		key   string
		value time.Duration
	}{
		{"pending.ttl", config.Pending.TTL},
		{"fx.cache_ttl", config.FX.CacheTTL},
		{"fx.timeout", config.FX.Timeout},
		{"sheets.timeout", config.Sheets.Timeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got: %s", d.key, d.value)
		}
	}

	if config.FX.RequestsPerSecond <= 0 {
		return fmt.Errorf("fx.requests_per_second must be positive, got: %g", config.FX.RequestsPerSecond)
	}

	if config.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections cannot be negative, got: %d", config.Server.MaxConnections)
	}

	if utf8.RuneCountInString(config.Export.Delimiter) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %s", config.Export.Delimiter)
	}

	return nil
}

// ConfigureLoggingFromConfig configures logging based on the Config struct
func ConfigureLoggingFromConfig(config *Config) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.ToLower(config.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
