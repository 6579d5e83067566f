package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pricepally/forecasting/internal/utils"
)

// Config represents the complete application configuration
type Config struct {
	Forecast ForecastConfig `mapstructure:"forecast"`
	Model    ModelConfig    `mapstructure:"model"`
	Input    InputConfig    `mapstructure:"input"`
	Output   OutputConfig   `mapstructure:"output"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ForecastConfig controls per-product method selection and the forecast loop
type ForecastConfig struct {
	Horizon          int           `mapstructure:"horizon"`            // Weeks to forecast (FORECAST_HORIZON)
	MinXGBoostRows   int           `mapstructure:"min_xgboost_rows"`   // Fully-lagged rows needed to trust the model (MIN_XGBOOST_ROWS)
	InactiveGapWeeks int           `mapstructure:"inactive_gap_weeks"` // Weeks without sales before a product is inactive (INACTIVE_GAP_WEEKS)
	RollingWindow    int           `mapstructure:"rolling_window"`     // Window for the rolling-mean heuristic
	SmoothingAlpha   float64       `mapstructure:"smoothing_alpha"`    // Alpha for the exponential smoothing heuristic
	Workers          int           `mapstructure:"workers"`            // Concurrent product groups (0 = NumCPU)
	GroupTimeout     time.Duration `mapstructure:"group_timeout"`      // Per-group budget before falling back to a heuristic
	ProgressEvery    int           `mapstructure:"progress_every"`     // Log progress every N groups
}

// ModelConfig holds the gradient boosting training parameters
type ModelConfig struct {
	Rounds         int     `mapstructure:"rounds"`
	LearningRate   float64 `mapstructure:"learning_rate"`
	MaxDepth       int     `mapstructure:"max_depth"`
	Subsample      float64 `mapstructure:"subsample"`
	ColSample      float64 `mapstructure:"colsample"`
	MinSamplesLeaf int     `mapstructure:"min_samples_leaf"`
	Seed           int64   `mapstructure:"seed"`
}

// InputConfig describes where transactions come from and how they are pre-filtered
type InputConfig struct {
	Path                    string   `mapstructure:"path"`
	SalesChannels           []string `mapstructure:"sales_channels"`            // Case-insensitive allowlist, empty keeps all
	FilterAttributeProducts bool     `mapstructure:"filter_attribute_products"` // Drop packaging/prep labels
	AttributeProducts       []string `mapstructure:"attribute_products"`        // Overrides the built-in label set when non-empty
	SkipInvalidDates        bool     `mapstructure:"skip_invalid_dates"`        // Skip rows whose business week cannot be mapped
}

// OutputConfig describes where forecast tables are written
type OutputConfig struct {
	Dir          string `mapstructure:"dir"`
	ForecastFile string `mapstructure:"forecast_file"`
	FailedFile   string `mapstructure:"failed_file"`
	Compression  string `mapstructure:"compression"` // none, snappy
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Enabled  bool   `mapstructure:"enabled"`  // Publish forecast events after each run
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Subject  string `mapstructure:"subject"`  // Subject prefix for forecast events
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// Redis-specific options
	RedisDB     int    `mapstructure:"redis_db"`     // Redis database number (default: 0)
	RedisStream string `mapstructure:"redis_stream"` // Redis stream prefix (default: "forecasting")

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"` // Kafka broker addresses
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host      string `mapstructure:"host"`       // Bind address for server (e.g., 0.0.0.0 for all interfaces)
	HTTPPort  int    `mapstructure:"http_port"`  // HTTP server port
	BodyLimit int    `mapstructure:"body_limit"` // Max request body in bytes
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Forecast.Validate(); err != nil {
		return fmt.Errorf("forecast config: %w", err)
	}

	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model config: %w", err)
	}

	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates forecast configuration
func (c *ForecastConfig) Validate() error {
	if c.Horizon < 1 {
		return fmt.Errorf("forecast.horizon must be at least 1")
	}

	if c.MinXGBoostRows < 1 {
		return fmt.Errorf("forecast.min_xgboost_rows must be at least 1")
	}

	if c.InactiveGapWeeks < 1 {
		return fmt.Errorf("forecast.inactive_gap_weeks must be at least 1")
	}

	if c.RollingWindow < 1 {
		return fmt.Errorf("forecast.rolling_window must be at least 1")
	}

	if c.SmoothingAlpha <= 0 || c.SmoothingAlpha > 1 {
		return fmt.Errorf("forecast.smoothing_alpha must be in (0, 1]")
	}

	if c.Workers < 0 {
		return fmt.Errorf("forecast.workers cannot be negative")
	}

	if c.GroupTimeout < 0 {
		return fmt.Errorf("forecast.group_timeout cannot be negative")
	}

	return nil
}

// Validate validates model configuration
func (c *ModelConfig) Validate() error {
	if c.Rounds < 1 {
		return fmt.Errorf("model.rounds must be at least 1")
	}

	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("model.learning_rate must be in (0, 1]")
	}

	if c.MaxDepth < 1 {
		return fmt.Errorf("model.max_depth must be at least 1")
	}

	if c.Subsample <= 0 || c.Subsample > 1 {
		return fmt.Errorf("model.subsample must be in (0, 1]")
	}

	if c.ColSample <= 0 || c.ColSample > 1 {
		return fmt.Errorf("model.colsample must be in (0, 1]")
	}

	if c.Seed == 0 {
		return fmt.Errorf("model.seed must be non-zero")
	}

	return nil
}

// Validate validates output configuration
func (c *OutputConfig) Validate() error {
	if c.ForecastFile == "" {
		return fmt.Errorf("output.forecast_file is required")
	}

	if c.Compression != "none" && c.Compression != "snappy" {
		return fmt.Errorf("output.compression must be 'none' or 'snappy'")
	}

	return nil
}

// Validate validates queue configuration. A disabled queue is not checked.
func (c *QueueConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Subject == "" {
		return fmt.Errorf("queue.subject is required when the queue is enabled")
	}

	queueType := utils.QueueType(strings.ToLower(c.Type))
	if queueType == "" {
		return nil
	}
	if !slices.Contains(utils.QueueTypes(), queueType) {
		return fmt.Errorf("unsupported queue.type: %s", c.Type)
	}

	if queueType == utils.QueueTypeKafka && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("queue.kafka_brokers is required for kafka")
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
