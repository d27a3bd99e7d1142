package config

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Extract ExtractConfig
	DB      DBConfig
	Fred    FredConfig
	Series  []SeriesConfig
	Env     string
}

type ExtractConfig struct {
	Backoff BackoffConfig
}

type BackoffConfig struct {
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	RetryMax     int           `mapstructure:"retry_max"`
}

type DBConfig struct {
	// Driver selects the storage backend: "duckdb" (default) or "postgres".
	Driver string `mapstructure:"driver"`
	// Path is the DuckDB database file; empty or ":memory:" for in-memory.
	// Ignored for postgres, which reads its DSN from the POSTGRES_DSN env variable.
	Path              string   `mapstructure:"path"`
	ConnInitFnQueries []string `mapstructure:"conn_init_fn_queries"`
}

type FredConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	FileType string `mapstructure:"file_type"`
}

// SeriesConfig is one entry of the series registry: which series to load
// and its descriptive metadata for the series_metadata table.
type SeriesConfig struct {
	ID                 string `mapstructure:"id"`
	Name               string `mapstructure:"name"`
	Description        string `mapstructure:"description"`
	Units              string `mapstructure:"units"`
	Frequency          string `mapstructure:"frequency"`
	SeasonalAdjustment string `mapstructure:"seasonal_adjustment"`
	ObservationStart   string `mapstructure:"observation_start"`
}

// NewConfig loads the configuration from the provided base config reader
// and merges it with the environment-specific configuration.
func NewConfig(baseConfigReader io.Reader, envConfigReader io.Reader, env string) (*Config, error) {
	if env == "" { // Use the provided 'env' or default to "dev"
		env = "dev"
	}

	v := viper.New()
	v.SetConfigType("yaml")

	// Read the base configuration
	if err := v.ReadConfig(baseConfigReader); err != nil {
		return nil, fmt.Errorf("error reading base config: %w", err)
	}

	// Merge with environment-specific configuration (only if provided)
	if envConfigReader != nil {
		if err := v.MergeConfig(envConfigReader); err != nil {
			log.Printf("Error merging environment-specific config: %s", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	// Set the environment directly
	config.Env = env

	return &config, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "", "duckdb", "postgres":
	default:
		return fmt.Errorf("unsupported db driver: %s", c.DB.Driver)
	}

	if c.Fred.FileType != "" && c.Fred.FileType != "json" {
		return fmt.Errorf("unsupported fred file_type: %s", c.Fred.FileType)
	}

	if len(c.Series) == 0 {
		return fmt.Errorf("no series configured")
	}
	seen := make(map[string]bool, len(c.Series))
	for _, s := range c.Series {
		if s.ID == "" {
			return fmt.Errorf("series entry without id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate series id: %s", s.ID)
		}
		seen[s.ID] = true
	}

	return nil
}
