package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Detection DetectionConfig `yaml:"detection" envconfig:"DETECTION"`
	Sampler   SamplerConfig   `yaml:"sampler" envconfig:"SAMPLER"`
	Events    EventsConfig    `yaml:"events" envconfig:"EVENTS"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Tracing   TracingConfig   `yaml:"tracing" envconfig:"TRACING"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// DetectionConfig contains deterministic change-point detection configuration
type DetectionConfig struct {
	Breaks         int `yaml:"breaks" envconfig:"BREAKS" validate:"min=1"`
	MinSegmentSize int `yaml:"min_segment_size" envconfig:"MIN_SEGMENT_SIZE" validate:"min=2"`
}

// SamplerConfig contains the Bayesian sampler configuration.
// Draws, tuning steps, chain count and seed are explicit so tests can pin
// reproducibility; defaults match the reference analysis.
type SamplerConfig struct {
	Draws  int   `yaml:"draws" envconfig:"DRAWS" validate:"min=1"`
	Tune   int   `yaml:"tune" envconfig:"TUNE" validate:"min=0"`
	Chains int   `yaml:"chains" envconfig:"CHAINS" validate:"min=1"`
	Seed   int64 `yaml:"seed" envconfig:"SEED"`
}

// EventsConfig contains event-impact analysis configuration
type EventsConfig struct {
	WindowDaysBefore int `yaml:"window_days_before" envconfig:"WINDOW_DAYS_BEFORE" validate:"min=1"`
	WindowDaysAfter  int `yaml:"window_days_after" envconfig:"WINDOW_DAYS_AFTER" validate:"min=1"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
}

// Default returns the built-in configuration. Load layers the optional
// YAML file and then the environment on top of it.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/analyzer.log",
		},
		Detection: DetectionConfig{
			Breaks:         5,
			MinSegmentSize: 2,
		},
		Sampler: SamplerConfig{
			Draws:  20,
			Tune:   10,
			Chains: 2,
			Seed:   42,
		},
		Events: EventsConfig{
			WindowDaysBefore: 180,
			WindowDaysAfter:  180,
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ReportsDir: "data/reports",
			LogsDir:    "logs",
		},
	}
}

// Load builds the configuration in three layers: built-in defaults, then
// the optional YAML file, then environment variables (prefix BRENT). The
// environment always wins; a partial YAML file only overrides the fields
// it names.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("load config from file: %w", err)
		}
	}

	// Environment variables override both defaults and the file. The
	// struct carries no envconfig defaults, so unset variables leave the
	// merged values untouched.
	if err := envconfig.Process("BRENT", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile merges a YAML config file into cfg
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	return nil
}
