package pipeline

import (
	"runtime"
	"time"

	"github.com/pricepally/forecasting/internal/analytics/forecast"
	"github.com/pricepally/forecasting/internal/analytics/model"
	"github.com/pricepally/forecasting/internal/config"
)

// Config controls one forecast run
type Config struct {
	Selector forecast.SelectorConfig
	Model    model.GBParams

	// Workers is the number of groups forecast concurrently (0 = NumCPU)
	Workers int

	// GroupTimeout bounds one group's forecast; on expiry the model path
	// falls back to the rolling mean (0 = no limit)
	GroupTimeout time.Duration

	// ProgressEvery logs progress after every N finished groups (0 = never)
	ProgressEvery int

	// Now is the reference time for inactivity and output dates (zero = time.Now)
	Now time.Time
}

// DefaultConfig returns the production run settings
func DefaultConfig() Config {
	return Config{
		Selector:      forecast.DefaultSelectorConfig(),
		Model:         model.DefaultGBParams(),
		Workers:       runtime.NumCPU(),
		GroupTimeout:  30 * time.Second,
		ProgressEvery: 100,
	}
}

// NewConfig maps the application configuration onto run settings
func NewConfig(cfg *config.Config) Config {
	return Config{
		Selector: forecast.SelectorConfig{
			Horizon:          cfg.Forecast.Horizon,
			MinModelRows:     cfg.Forecast.MinXGBoostRows,
			InactiveGapWeeks: cfg.Forecast.InactiveGapWeeks,
			Heuristics: forecast.HeuristicConfig{
				Window: cfg.Forecast.RollingWindow,
				Alpha:  cfg.Forecast.SmoothingAlpha,
			},
		},
		Model: model.GBParams{
			Rounds:         cfg.Model.Rounds,
			LearningRate:   cfg.Model.LearningRate,
			MaxDepth:       cfg.Model.MaxDepth,
			Subsample:      cfg.Model.Subsample,
			ColSample:      cfg.Model.ColSample,
			MinSamplesLeaf: cfg.Model.MinSamplesLeaf,
			Seed:           cfg.Model.Seed,
		},
		Workers:       cfg.Forecast.Workers,
		GroupTimeout:  cfg.Forecast.GroupTimeout,
		ProgressEvery: cfg.Forecast.ProgressEvery,
	}
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
