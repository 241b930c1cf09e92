package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/SanteonNL/mosare/cmd/mosare/datasource"
	"github.com/SanteonNL/mosare/cmd/mosare/processor"
	"github.com/SanteonNL/mosare/cmd/mosare/repair"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config is the runtime configuration read from the environment
type Config struct {
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	Port               string        `mapstructure:"PORT"`
	OutputDir          string        `mapstructure:"OUTPUT_DIR"`
	InboxDir           string        `mapstructure:"INBOX_DIR"`
	InputEncoding      string        `mapstructure:"INPUT_ENCODING"`
	SortMode           string        `mapstructure:"SORT_MODE"`
	MaxUploadMB        int64         `mapstructure:"MAX_UPLOAD_MB"`
	HTTPRetryMax       int           `mapstructure:"HTTP_RETRY_MAX"`
	HTTPTimeout        time.Duration `mapstructure:"HTTP_TIMEOUT"`
	CarteraDatabaseURL string        `mapstructure:"CARTERA_DATABASE_URL"`
	CarteraQuery       string        `mapstructure:"CARTERA_QUERY"`
	SchemaWidth        int           `mapstructure:"SCHEMA_WIDTH"`
}

var keys = []string{
	"LOG_LEVEL",
	"PORT",
	"OUTPUT_DIR",
	"INBOX_DIR",
	"INPUT_ENCODING",
	"SORT_MODE",
	"MAX_UPLOAD_MB",
	"HTTP_RETRY_MAX",
	"HTTP_TIMEOUT",
	"CARTERA_DATABASE_URL",
	"CARTERA_QUERY",
	"SCHEMA_WIDTH",
}

// Load reads the optional env files (".env" when none are given) and then the
// process environment. Variables already set in the environment win over the
// files.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "8080")
	v.SetDefault("OUTPUT_DIR", "output")
	v.SetDefault("INBOX_DIR", "inbox")
	v.SetDefault("INPUT_ENCODING", "utf-8")
	v.SetDefault("SORT_MODE", string(processor.SortLexical))
	v.SetDefault("MAX_UPLOAD_MB", 64)
	v.SetDefault("HTTP_RETRY_MAX", 3)
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("CARTERA_QUERY", datasource.DefaultRosterQuery)
	v.SetDefault("SCHEMA_WIDTH", repair.DefaultWidth)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate checks values that would otherwise only fail deep inside a run
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := processor.ParseSortMode(c.SortMode); err != nil {
		return fmt.Errorf("SORT_MODE: %w", err)
	}
	if err := c.Schema().Validate(); err != nil {
		return fmt.Errorf("SCHEMA_WIDTH: %w", err)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	if c.HTTPRetryMax < 0 {
		return fmt.Errorf("HTTP_RETRY_MAX must not be negative, got %d", c.HTTPRetryMax)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.CarteraDatabaseURL != "" && strings.TrimSpace(c.CarteraQuery) == "" {
		return fmt.Errorf("CARTERA_QUERY is required when CARTERA_DATABASE_URL is set")
	}
	return nil
}

// Level returns the configured zerolog level
func (c *Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// Schema returns the repair schema; only the width is configurable
func (c *Config) Schema() repair.Schema {
	schema := repair.DefaultSchema()
	schema.Width = c.SchemaWidth
	return schema
}

// Sort returns the parsed SORT_MODE; call Validate first
func (c *Config) Sort() processor.SortMode {
	mode, _ := processor.ParseSortMode(c.SortMode)
	return mode
}

// MaxUploadBytes is the request body limit of the upload endpoints
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// LoaderConfig builds the tabular loader settings
func (c *Config) LoaderConfig(log zerolog.Logger) datasource.LoaderConfig {
	return datasource.LoaderConfig{
		Schema:   c.Schema(),
		Encoding: c.InputEncoding,
		Log:      log,
	}
}

// HTTPClientConfig builds the settings of the remote extract client
func (c *Config) HTTPClientConfig(log zerolog.Logger) datasource.HTTPClientConfig {
	return datasource.HTTPClientConfig{
		RetryMax: c.HTTPRetryMax,
		Timeout:  c.HTTPTimeout,
		Log:      log,
	}
}
