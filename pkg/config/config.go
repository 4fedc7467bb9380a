package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/ekaya-trane/pkg/labeler"
	"github.com/ekaya-inc/ekaya-trane/pkg/mltypes"
	"github.com/ekaya-inc/ekaya-trane/pkg/problem"
)

// DefaultPath is read when no config path is given.
const DefaultPath = "config.yaml"

// Config holds all configuration for ekaya-trane.
// Values come from a YAML file with environment overrides; secrets (PGPASSWORD,
// MSSQL_PASSWORD) only come from the environment.
type Config struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // set at load time

	Generation GenerationConfig `yaml:"generation"`
	Inference  InferenceConfig  `yaml:"inference"`
	Labeling   LabelingConfig   `yaml:"labeling"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	MSSQL      MSSQLConfig      `yaml:"mssql"`
}

// GenerationConfig controls problem enumeration and threshold recommendation.
type GenerationConfig struct {
	// WindowSize accepts Go durations ("48h") or day and week counts ("2d", "1 week").
	WindowSize         string `yaml:"window_size" env:"TRANE_WINDOW_SIZE" env-default:"24h"`
	GenerateThresholds bool   `yaml:"generate_thresholds" env:"TRANE_GENERATE_THRESHOLDS" env-default:"false"`
	NumQuantiles       int    `yaml:"num_quantiles" env:"TRANE_NUM_QUANTILES" env-default:"10"`
	TopK               int    `yaml:"top_k" env:"TRANE_TOP_K" env-default:"3"`
	SampleCap          int    `yaml:"sample_cap" env:"TRANE_SAMPLE_CAP" env-default:"10"`
	Seed               uint64 `yaml:"seed" env:"TRANE_SEED" env-default:"0"`
}

// InferenceConfig tunes ML type inference.
type InferenceConfig struct {
	NumericCategoricalThreshold int     `yaml:"numeric_categorical_threshold" env:"TRANE_NUMERIC_CATEGORICAL_THRESHOLD" env-default:"-1"`
	CategoricalMaxUniqueRatio   float64 `yaml:"categorical_max_unique_ratio" env:"TRANE_CATEGORICAL_MAX_UNIQUE_RATIO" env-default:"0.5"`
	NaturalLanguageMinWords     float64 `yaml:"natural_language_min_words" env:"TRANE_NATURAL_LANGUAGE_MIN_WORDS" env-default:"3"`
}

// LabelingConfig controls label materialization.
type LabelingConfig struct {
	MaxConcurrent int  `yaml:"max_concurrent" env:"TRANE_LABEL_MAX_CONCURRENT" env-default:"4"`
	DropEmpty     bool `yaml:"drop_empty" env:"TRANE_DROP_EMPTY" env-default:"true"`
}

// PostgresConfig describes a Postgres frame source.
type PostgresConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"postgres"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"postgres"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"4"`
}

// MSSQLConfig describes a SQL Server frame source.
type MSSQLConfig struct {
	Host     string `yaml:"host" env:"MSSQL_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"MSSQL_PORT" env-default:"1433"`
	User     string `yaml:"user" env:"MSSQL_USER" env-default:"sa"`
	Password string `yaml:"-" env:"MSSQL_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"MSSQL_DATABASE" env-default:"master"`
	Encrypt  bool   `yaml:"encrypt" env:"MSSQL_ENCRYPT" env-default:"true"`
}

// Load reads path (DefaultPath when empty) with environment overrides. A missing file
// means configuration comes from the environment alone.
func Load(path, version string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := &Config{Version: version}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.Generation.Window(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.Generation.NumQuantiles < 2 {
		return fmt.Errorf("num_quantiles must be at least 2, got %d", c.Generation.NumQuantiles)
	}
	if c.Generation.TopK < 1 {
		return fmt.Errorf("top_k must be positive, got %d", c.Generation.TopK)
	}
	return nil
}

// Window parses WindowSize.
func (g GenerationConfig) Window() (time.Duration, error) {
	return problem.ParseWindow(g.WindowSize)
}

// Thresholds returns the threshold recommendation settings.
func (g GenerationConfig) Thresholds() problem.ThresholdConfig {
	return problem.ThresholdConfig{
		NumQuantiles: g.NumQuantiles,
		TopK:         g.TopK,
		SampleCap:    g.SampleCap,
		Seed:         g.Seed,
	}
}

// Config returns the inference settings as mltypes expects them.
func (i InferenceConfig) Config() mltypes.InferenceConfig {
	return mltypes.InferenceConfig{
		NumericCategoricalThreshold: i.NumericCategoricalThreshold,
		CategoricalMaxUniqueRatio:   i.CategoricalMaxUniqueRatio,
		NaturalLanguageMinWords:     i.NaturalLanguageMinWords,
	}
}

// Options returns labeler options with the window left to the problem.
func (l LabelingConfig) Options() labeler.Options {
	opts := labeler.DefaultOptions()
	opts.DropEmpty = l.DropEmpty
	return opts
}

// ConnectionString returns a Postgres URL with escaped credentials.
func (c *PostgresConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Map returns the settings in the shape datasource factories accept.
func (c *PostgresConfig) Map() map[string]any {
	return map[string]any{
		"host":            c.Host,
		"port":            c.Port,
		"user":            c.User,
		"password":        c.Password,
		"database":        c.Database,
		"ssl_mode":        c.SSLMode,
		"max_connections": int(c.MaxConnections),
	}
}

// ConnectionString returns a sqlserver URL with escaped credentials.
func (c *MSSQLConfig) ConnectionString() string {
	q := url.Values{"database": {c.Database}}
	if !c.Encrypt {
		q.Set("encrypt", "disable")
	}
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Map returns the settings in the shape datasource factories accept.
func (c *MSSQLConfig) Map() map[string]any {
	return map[string]any{
		"host":     c.Host,
		"port":     c.Port,
		"user":     c.User,
		"password": c.Password,
		"database": c.Database,
		"encrypt":  c.Encrypt,
	}
}
