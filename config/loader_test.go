package config

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name     string
		baseYAML string  // Base YAML config
		envYAML  string  // Environment-specific YAML (optional)
		env      string  // Environment variable value
		want     *Config // Expected Config
		wantErr  bool    // Expecting an error?
	}{
		{
			name: "Successful Load with Default Env",
			baseYAML: `
extract:
  backoff:
    retry_wait_min: 1s
    retry_wait_max: 30s
    retry_max: 5
db:
  driver: duckdb
  path: "test.db"
fred:
  base_url: https://api.stlouisfed.org/fred
  file_type: json
series:
  - id: GDP
    name: Gross Domestic Product
    units: Billions of Dollars
    frequency: Quarterly
    observation_start: "1947-01-01"
`,
			env: "",
			want: &Config{
				Env: "dev",
				Extract: ExtractConfig{
					Backoff: BackoffConfig{
						RetryWaitMin: time.Second,
						RetryWaitMax: 30 * time.Second,
						RetryMax:     5,
					},
				},
				DB: DBConfig{
					Driver:            "duckdb",
					Path:              "test.db",
					ConnInitFnQueries: nil,
				},
				Fred: FredConfig{
					BaseURL:  "https://api.stlouisfed.org/fred",
					FileType: "json",
				},
				Series: []SeriesConfig{
					{
						ID:               "GDP",
						Name:             "Gross Domestic Product",
						Units:            "Billions of Dollars",
						Frequency:        "Quarterly",
						ObservationStart: "1947-01-01",
					},
				},
			},
			wantErr: false,
		},
		{
			name: "Successful Load with Environment Override",
			baseYAML: `
db:
  driver: duckdb
  conn_init_fn_queries:
    - "./sql/schema_duckdb.sql"
fred:
  base_url: https://api.stlouisfed.org/fred
series:
  - id: UNRATE
    name: Unemployment Rate
`,
			envYAML: `
db:
  driver: postgres
  conn_init_fn_queries:
    - "./sql/schema_postgres.sql"
`,
			env: "prod",
			want: &Config{
				Env: "prod",
				DB: DBConfig{
					Driver:            "postgres",
					ConnInitFnQueries: []string{"./sql/schema_postgres.sql"},
				},
				Fred: FredConfig{
					BaseURL: "https://api.stlouisfed.org/fred",
				},
				Series: []SeriesConfig{
					{ID: "UNRATE", Name: "Unemployment Rate"},
				},
			},
			wantErr: false,
		},
		{
			name: "No Series Configured",
			baseYAML: `
db:
  driver: duckdb
`,
			wantErr: true,
		},
		{
			name: "Duplicate Series ID",
			baseYAML: `
series:
  - id: GDP
  - id: GDP
`,
			wantErr: true,
		},
		{
			name: "Unsupported Driver",
			baseYAML: `
db:
  driver: sqlite
series:
  - id: GDP
`,
			wantErr: true,
		},
		{
			name: "Unsupported File Type",
			baseYAML: `
fred:
  file_type: xml
series:
  - id: GDP
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseConfigReader := strings.NewReader(tt.baseYAML)
			var envConfigReader io.Reader
			if tt.envYAML != "" {
				envConfigReader = strings.NewReader(tt.envYAML)
			}

			got, err := NewConfig(baseConfigReader, envConfigReader, tt.env)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewConfigBaseFile(t *testing.T) {
	baseConfig, err := os.Open("../config.base.yaml")
	assert.NoError(t, err)
	defer baseConfig.Close()

	cfg, err := NewConfig(baseConfig, nil, "test")
	assert.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.DB.Driver)
	assert.Equal(t, "https://api.stlouisfed.org/fred", cfg.Fred.BaseURL)
	assert.Len(t, cfg.Series, 8)
	assert.Equal(t, "GDP", cfg.Series[0].ID)
	assert.Equal(t, "1947-01-01", cfg.Series[0].ObservationStart)
}
