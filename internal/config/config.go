// Package config loads scan reader settings from YAML or TOML files.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ecobost/scanreader/internal/logger"
)

// Config holds the settings shared by the library options and the CLI.
type Config struct {
	Scan ScanConfig `yaml:"scan" toml:"scan"`
	Log  LogConfig  `yaml:"log" toml:"log"`
}

// ScanConfig controls how fields are built.
type ScanConfig struct {
	// JoinContiguous merges ROI fields that form one larger rectangle.
	JoinContiguous bool `yaml:"join_contiguous" toml:"join_contiguous"`
}

// LogConfig selects the log level and an optional rotating log file.
type LogConfig struct {
	Level   string `yaml:"level" toml:"level"`
	File    string `yaml:"file" toml:"file"`
	MaxSize int    `yaml:"max_size" toml:"max_size"` // megabytes
	MaxAge  int    `yaml:"max_age" toml:"max_age"`   // days
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Log.MaxSize = 100
	cfg.Log.MaxAge = 30
	return cfg
}

type format int

const (
	formatYAML format = iota
	formatTOML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	}
	return 0, fmt.Errorf("unknown config format %q (want .yaml, .yml or .toml)", filepath.Ext(path))
}

// LoadConfig loads configuration from a YAML or TOML file, chosen by
// extension. If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	f, err := formatOf(configPath)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath) //nolint:gosec // G304: config path is user supplied
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	switch f {
	case formatYAML:
		err = yaml.Unmarshal(data, cfg)
	case formatTOML:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg in the format selected by the file extension.
func SaveConfig(cfg *Config, configPath string) error {
	f, err := formatOf(configPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var data []byte
	switch f {
	case formatYAML:
		data, err = yaml.Marshal(cfg)
	case formatTOML:
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(cfg)
		data = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Validate checks values that cannot be checked by the decoders.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.MaxSize < 0 || c.Log.MaxAge < 0 {
		return fmt.Errorf("log.max_size and log.max_age must not be negative")
	}
	return nil
}

// Logger builds the logger described by the log section. The returned close
// function releases the log file, if any.
func (c *Config) Logger() (logger.ILogger, func() error, error) {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	if c.Log.File == "" {
		return logger.NewStdErrLogger(level), func() error { return nil }, nil
	}
	fl := logger.NewFileLogger(c.Log.File, c.Log.MaxSize, c.Log.MaxAge, level)
	return fl, fl.Close, nil
}
