package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// OutputFormat specifies how diagnoses are rendered.
type OutputFormat string

const (
	OutputConsole OutputFormat = "console"
	OutputJSON    OutputFormat = "json"
	OutputJUnit   OutputFormat = "junit"
	OutputGitHub  OutputFormat = "github"
)

// ColorMode specifies when console output uses ANSI colors.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// LogLevel specifies the logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat specifies the log output format.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// OutputConfig holds report rendering settings.
type OutputConfig struct {
	Format OutputFormat `toml:"format"`
	Color  ColorMode    `toml:"color"`
}

// RulesConfig holds rule selection settings.
type RulesConfig struct {
	// Follow, when non-empty, keeps only the listed diagnosis codes.
	Follow []string `toml:"follow"`
	// Exclude lists diagnosis codes to drop from every report.
	Exclude []string `toml:"exclude"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  LogLevel  `toml:"level"`
	Format LogFormat `toml:"format"`
	File   string    `toml:"file"`
}

// Config is the main configuration struct for stevedore.
type Config struct {
	Output  OutputConfig  `toml:"output"`
	Rules   RulesConfig   `toml:"rules"`
	Logging LoggingConfig `toml:"logging"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Format: OutputConsole,
			Color:  ColorAuto,
		},
		Logging: LoggingConfig{
			Level:  LogLevelWarn,
			Format: LogFormatText,
			File:   "",
		},
	}
}

// Load loads configuration from file, merging with defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if level := os.Getenv("STEVEDORE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = LogLevel(level)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from the standard locations in a directory,
// trying stevedore.toml first and .stevedore.toml second.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"stevedore.toml", ".stevedore.toml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Load(filepath.Join(dir, "stevedore.toml"))
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case OutputConsole, OutputJSON, OutputJUnit, OutputGitHub:
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	switch c.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("unknown color mode %q", c.Output.Color)
	}
	switch c.Logging.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case LogFormatJSON, LogFormatText:
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// LogFile returns the absolute log file path, or "" when file logging is off.
func (c *Config) LogFile(baseDir string) string {
	if c.Logging.File == "" {
		return ""
	}
	if filepath.IsAbs(c.Logging.File) {
		return c.Logging.File
	}
	return filepath.Join(baseDir, c.Logging.File)
}
