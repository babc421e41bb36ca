// Package config loads evtarget settings from YAML, .env files and the
// environment, and builds the zap logger the other packages share.
package config

import (
	"bytes"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/chrisuehlinger/evtarget/events"
)

// Environment variable names read by ApplyEnv.
const (
	EnvMaxAncestors = "EVTARGET_MAX_ANCESTORS"
	EnvLogLevel     = "EVTARGET_LOG_LEVEL"
	EnvLogDev       = "EVTARGET_LOG_DEV"
)

// Config holds all configuration for the application
type Config struct {
	Events EventsConfig `yaml:"events"`
	Log    LogConfig    `yaml:"log"`
}

// EventsConfig holds dispatch settings
type EventsConfig struct {
	MaxAncestors int `yaml:"max_ancestors"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Events: EventsConfig{MaxAncestors: events.DefaultMaxAncestors},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not an
// error; the defaults are returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates it.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decode yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads a .env file into the process environment. Variables that
// are already set keep their values.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "load env file %s", path)
	}
	return nil
}

// ApplyEnv overrides settings from the environment and validates the result.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvMaxAncestors); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%s", EnvMaxAncestors)
		}
		c.Events.MaxAncestors = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogDev); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "%s", EnvLogDev)
		}
		c.Log.Development = dev
	}
	return c.Validate()
}

// Validate checks the configuration for values the packages cannot use.
func (c *Config) Validate() error {
	if c.Events.MaxAncestors < 1 {
		return errors.Errorf("events.max_ancestors must be at least 1, got %d", c.Events.MaxAncestors)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	return nil
}

// NewLogger builds a zap logger at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log.level")
	}

	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger, nil
}
