package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "default config should be valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero horizon",
			mutate:  func(c *Config) { c.Forecast.Horizon = 0 },
			wantErr: true,
		},
		{
			name:    "zero min xgboost rows",
			mutate:  func(c *Config) { c.Forecast.MinXGBoostRows = 0 },
			wantErr: true,
		},
		{
			name:    "alpha above one",
			mutate:  func(c *Config) { c.Forecast.SmoothingAlpha = 1.5 },
			wantErr: true,
		},
		{
			name:    "negative workers",
			mutate:  func(c *Config) { c.Forecast.Workers = -1 },
			wantErr: true,
		},
		{
			name:    "zero seed",
			mutate:  func(c *Config) { c.Model.Seed = 0 },
			wantErr: true,
		},
		{
			name:    "subsample out of range",
			mutate:  func(c *Config) { c.Model.Subsample = 0 },
			wantErr: true,
		},
		{
			name:    "disabled queue is not checked",
			mutate:  func(c *Config) { c.Queue.Type = "rabbitmq" },
			wantErr: false,
		},
		{
			name: "unknown queue type",
			mutate: func(c *Config) {
				c.Queue.Enabled = true
				c.Queue.Type = "rabbitmq"
			},
			wantErr: true,
		},
		{
			name: "kafka without brokers",
			mutate: func(c *Config) {
				c.Queue.Enabled = true
				c.Queue.Type = "kafka"
			},
			wantErr: true,
		},
		{
			name: "enabled queue without subject",
			mutate: func(c *Config) {
				c.Queue.Enabled = true
				c.Queue.Subject = ""
			},
			wantErr: true,
		},
		{
			name:    "unknown compression",
			mutate:  func(c *Config) { c.Output.Compression = "gzip" },
			wantErr: true,
		},
		{
			name:    "invalid http port",
			mutate:  func(c *Config) { c.Server.HTTPPort = 0 },
			wantErr: true,
		},
		{
			name:    "invalid logging level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid logging format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Forecast.Horizon)
	assert.Equal(t, 10, cfg.Forecast.MinXGBoostRows)
	assert.Equal(t, 4, cfg.Forecast.InactiveGapWeeks)
	assert.Equal(t, 30*time.Second, cfg.Forecast.GroupTimeout)
	assert.Equal(t, 500, cfg.Model.Rounds)
	assert.Equal(t, int64(1), cfg.Model.Seed)
	assert.Equal(t, []string{"b2c"}, cfg.Input.SalesChannels)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
forecast:
  horizon: 6
  inactive_gap_weeks: 8
model:
  rounds: 50
output:
  dir: /tmp/forecasts
  compression: snappy
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Forecast.Horizon)
	assert.Equal(t, 8, cfg.Forecast.InactiveGapWeeks)
	assert.Equal(t, 50, cfg.Model.Rounds)
	assert.Equal(t, "snappy", cfg.Output.Compression)
	assert.Equal(t, filepath.Join("/tmp/forecasts", "forecast_output.csv"), cfg.ForecastPath())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("FORECAST_HORIZON", "3")
	t.Setenv("MIN_XGBOOST_ROWS", "12")
	t.Setenv("INACTIVE_GAP_WEEKS", "6")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("forecast:\n  horizon: 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Forecast.Horizon)
	assert.Equal(t, 12, cfg.Forecast.MinXGBoostRows)
	assert.Equal(t, 6, cfg.Forecast.InactiveGapWeeks)
}

func TestLoad_InvalidFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("forecast:\n  horizon: 0\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadOrDefault_FallsBack(t *testing.T) {
	cfg := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultConfig().Forecast.Horizon, cfg.Forecast.Horizon)
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	cfg.Server.Host = "127.0.0.1"

	assert.NoError(t, cfg.EnsureDirectories())
	assert.Equal(t, "127.0.0.1:5580", cfg.ServerAddress())
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "failed_forecasts.csv"), cfg.FailedPath())
	assert.False(t, cfg.IsDevelopment())
}
