package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	LogLevel       string        `yaml:"log_level" default:"panic"`
	Backend        string        `yaml:"backend" default:"auto"`
	Adapter        string        `yaml:"adapter" default:"hci0"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"30s"`
	OutputFormat   string        `yaml:"output_format" default:"json"`
	ErrorHistory   int           `yaml:"error_history" default:"100"`
}

var (
	logLevels     = []string{"panic", "debug", "info", "warn", "error"}
	backends      = []string{"auto", "go-ble", "bluez"}
	outputFormats = []string{"json", "yaml", "text"}
)

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated fields, the connect timeout and the error history size.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if !slices.Contains(backends, c.Backend) {
		return fmt.Errorf("invalid backend: %s (must be one of %v)", c.Backend, backends)
	}
	if !slices.Contains(outputFormats, c.OutputFormat) {
		return fmt.Errorf("invalid output format: %s (must be one of %v)", c.OutputFormat, outputFormats)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("invalid connect timeout: %s", c.ConnectTimeout)
	}
	if c.ErrorHistory < 1 {
		return fmt.Errorf("invalid error history: %d (must be at least 1)", c.ErrorHistory)
	}
	return nil
}

// Level parses LogLevel. "panic" keeps the logger effectively silent.
func (c *Config) Level() (logrus.Level, error) {
	if !slices.Contains(logLevels, c.LogLevel) {
		return logrus.PanicLevel, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}
	return logrus.ParseLevel(c.LogLevel)
}

// NewLogger creates a configured logger instance writing to out.
// A nil out discards log output.
func (c *Config) NewLogger(out io.Writer) (*logrus.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = io.Discard
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger, nil
}
