// Package config is the single source of truth for runtime configuration
// and filesystem paths. Values load from environment variables (prefix
// PIPELINE) with struct-tag defaults, optionally overlaid by a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the environment variable prefix for all settings.
const EnvPrefix = "PIPELINE"

// DefaultConfigFile is consulted when no explicit file is given.
const DefaultConfigFile = "config.yaml"

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ServerConfig contains the HTTP service configuration.
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains request rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pipeline.log"`
}

// PathsConfig contains the artifact directory layout. All directories are
// resolved relative to BaseDir unless absolute.
type PathsConfig struct {
	BaseDir      string `yaml:"base_dir" envconfig:"BASE_DIR" default:"."`
	RawDir       string `yaml:"raw_dir" envconfig:"RAW_DIR" default:"data/raw"`
	ProcessedDir string `yaml:"processed_dir" envconfig:"PROCESSED_DIR" default:"data/processed"`
	ResultsDir   string `yaml:"results_dir" envconfig:"RESULTS_DIR" default:"results"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// PipelineConfig contains stage defaults for a run.
type PipelineConfig struct {
	// SourceFile is the upstream dataset: a CSV/XLSX path or an http(s) URL
	// serving CSV.
	SourceFile    string         `yaml:"source_file" envconfig:"SOURCE_FILE" default:"data/source/housing.csv"`
	SourceTimeout time.Duration  `yaml:"source_timeout" envconfig:"SOURCE_TIMEOUT" default:"30s"`
	ReportFormat  string         `yaml:"report_format" envconfig:"REPORT_FORMAT" default:"txt"`
	Cleaning      CleaningConfig `yaml:"cleaning" envconfig:"CLEANING"`
}

// CleaningConfig contains the cleaner defaults. Null-fill rules are
// configuration, never inferred from the data.
type CleaningConfig struct {
	RemoveOutliers   bool     `yaml:"remove_outliers" envconfig:"REMOVE_OUTLIERS" default:"true"`
	OutlierThreshold float64  `yaml:"outlier_threshold" envconfig:"OUTLIER_THRESHOLD" default:"1.5"`
	OutlierColumns   []string `yaml:"outlier_columns" envconfig:"OUTLIER_COLUMNS" default:"med_house_val"`
	PositiveColumns  []string `yaml:"positive_columns" envconfig:"POSITIVE_COLUMNS" default:"ave_rooms,population"`

	// NumericFill selects the numeric null-fill rule: "mean" or "zero".
	NumericFill string `yaml:"numeric_fill" envconfig:"NUMERIC_FILL" default:"mean"`
	// StringFill is the constant used for null string cells.
	StringFill string `yaml:"string_fill" envconfig:"STRING_FILL" default:"unknown"`
}

// Load builds the configuration from the environment, overlaid by the
// default YAML file when present.
func Load() (*Config, error) {
	return LoadFile(DefaultConfigFile)
}

// LoadFile builds the configuration from the environment, overlaid by the
// given YAML file when present.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		fileCfg, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
		cfg = merge(cfg, *fileCfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge overlays non-zero file values on top of the env-derived config.
func merge(base, file Config) Config {
	out := base
	if file.Server.Port != 0 {
		out.Server.Port = file.Server.Port
	}
	if file.Server.ReadTimeout != 0 {
		out.Server.ReadTimeout = file.Server.ReadTimeout
	}
	if file.Server.WriteTimeout != 0 {
		out.Server.WriteTimeout = file.Server.WriteTimeout
	}
	if file.Logging.Level != "" {
		out.Logging.Level = file.Logging.Level
	}
	if file.Logging.Output != "" {
		out.Logging.Output = file.Logging.Output
	}
	if file.Logging.FilePath != "" {
		out.Logging.FilePath = file.Logging.FilePath
	}
	if file.Paths.BaseDir != "" {
		out.Paths.BaseDir = file.Paths.BaseDir
	}
	if file.Paths.RawDir != "" {
		out.Paths.RawDir = file.Paths.RawDir
	}
	if file.Paths.ProcessedDir != "" {
		out.Paths.ProcessedDir = file.Paths.ProcessedDir
	}
	if file.Paths.ResultsDir != "" {
		out.Paths.ResultsDir = file.Paths.ResultsDir
	}
	if file.Pipeline.SourceFile != "" {
		out.Pipeline.SourceFile = file.Pipeline.SourceFile
	}
	if file.Pipeline.ReportFormat != "" {
		out.Pipeline.ReportFormat = file.Pipeline.ReportFormat
	}
	if file.Pipeline.Cleaning.OutlierThreshold != 0 {
		out.Pipeline.Cleaning.OutlierThreshold = file.Pipeline.Cleaning.OutlierThreshold
	}
	if len(file.Pipeline.Cleaning.OutlierColumns) != 0 {
		out.Pipeline.Cleaning.OutlierColumns = file.Pipeline.Cleaning.OutlierColumns
	}
	if len(file.Pipeline.Cleaning.PositiveColumns) != 0 {
		out.Pipeline.Cleaning.PositiveColumns = file.Pipeline.Cleaning.PositiveColumns
	}
	if file.Pipeline.Cleaning.NumericFill != "" {
		out.Pipeline.Cleaning.NumericFill = file.Pipeline.Cleaning.NumericFill
	}
	if file.Pipeline.Cleaning.StringFill != "" {
		out.Pipeline.Cleaning.StringFill = file.Pipeline.Cleaning.StringFill
	}
	return out
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Pipeline.Cleaning.OutlierThreshold <= 0 {
		return fmt.Errorf("outlier threshold must be positive, got %g", c.Pipeline.Cleaning.OutlierThreshold)
	}
	switch c.Pipeline.Cleaning.NumericFill {
	case "mean", "zero":
	default:
		return fmt.Errorf("numeric_fill must be \"mean\" or \"zero\", got %q", c.Pipeline.Cleaning.NumericFill)
	}
	switch c.Pipeline.ReportFormat {
	case "txt", "json":
	default:
		return fmt.Errorf("report_format must be \"txt\" or \"json\", got %q", c.Pipeline.ReportFormat)
	}
	return nil
}
