package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")                // Current directory
		v.AddConfigPath("./configs")        // Project configs directory
		v.AddConfigPath("/etc/forecasting") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Environment overrides: forecast.horizon <- FORECAST_HORIZON
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvAliases(v); err != nil {
		return nil, err
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// bindEnvAliases maps the short environment names used by the batch jobs
func bindEnvAliases(v *viper.Viper) error {
	aliases := map[string][]string{
		"forecast.horizon":            {"FORECAST_HORIZON"},
		"forecast.min_xgboost_rows":   {"FORECAST_MIN_XGBOOST_ROWS", "MIN_XGBOOST_ROWS"},
		"forecast.inactive_gap_weeks": {"FORECAST_INACTIVE_GAP_WEEKS", "INACTIVE_GAP_WEEKS"},
	}

	for key, envs := range aliases {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Forecast defaults
	v.SetDefault("forecast.horizon", 2)
	v.SetDefault("forecast.min_xgboost_rows", 10)
	v.SetDefault("forecast.inactive_gap_weeks", 4)
	v.SetDefault("forecast.rolling_window", 4)
	v.SetDefault("forecast.smoothing_alpha", 0.3)
	v.SetDefault("forecast.workers", 0)
	v.SetDefault("forecast.group_timeout", "30s")
	v.SetDefault("forecast.progress_every", 100)

	// Model defaults
	v.SetDefault("model.rounds", 500)
	v.SetDefault("model.learning_rate", 0.05)
	v.SetDefault("model.max_depth", 5)
	v.SetDefault("model.subsample", 0.8)
	v.SetDefault("model.colsample", 0.8)
	v.SetDefault("model.min_samples_leaf", 1)
	v.SetDefault("model.seed", 1)

	// Input defaults
	v.SetDefault("input.path", "forecast_date_1.csv")
	v.SetDefault("input.sales_channels", []string{"b2c"})
	v.SetDefault("input.filter_attribute_products", true)
	v.SetDefault("input.attribute_products", []string{})
	v.SetDefault("input.skip_invalid_dates", true)

	// Output defaults
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.forecast_file", "forecast_output.csv")
	v.SetDefault("output.failed_file", "failed_forecasts.csv")
	v.SetDefault("output.compression", "none")

	// Queue defaults
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.type", "nats")
	v.SetDefault("queue.url", "nats://localhost:4222")
	v.SetDefault("queue.subject", "forecasting")
	v.SetDefault("queue.username", "")
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.redis_stream", "forecasting")
	v.SetDefault("queue.kafka_brokers", []string{})

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 5580)
	v.SetDefault("server.body_limit", 64*1024*1024)

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_keys", []string{})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
	v.SetDefault("logging.time_format", "RFC3339")
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Forecast: ForecastConfig{
			Horizon:          2,
			MinXGBoostRows:   10,
			InactiveGapWeeks: 4,
			RollingWindow:    4,
			SmoothingAlpha:   0.3,
			GroupTimeout:     30 * time.Second,
			ProgressEvery:    100,
		},
		Model: ModelConfig{
			Rounds:         500,
			LearningRate:   0.05,
			MaxDepth:       5,
			Subsample:      0.8,
			ColSample:      0.8,
			MinSamplesLeaf: 1,
			Seed:           1,
		},
		Input: InputConfig{
			Path:                    "forecast_date_1.csv",
			SalesChannels:           []string{"b2c"},
			FilterAttributeProducts: true,
			SkipInvalidDates:        true,
		},
		Output: OutputConfig{
			Dir:          ".",
			ForecastFile: "forecast_output.csv",
			FailedFile:   "failed_forecasts.csv",
			Compression:  "none",
		},
		Queue: QueueConfig{
			Type:        "nats",
			URL:         "nats://localhost:4222",
			Subject:     "forecasting",
			RedisStream: "forecasting",
		},
		Server: ServerConfig{
			Host:      "0.0.0.0",
			HTTPPort:  5580,
			BodyLimit: 64 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
			TimeFormat: "RFC3339",
		},
	}
}
