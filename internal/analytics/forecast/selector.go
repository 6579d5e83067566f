package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/pricepally/forecasting/internal/analytics"
	"github.com/pricepally/forecasting/internal/analytics/features"
	"github.com/pricepally/forecasting/internal/calendar"
	"github.com/pricepally/forecasting/internal/logging"
	"github.com/pricepally/forecasting/internal/timeseries"
)

// Adaptive heuristic thresholds
const (
	StableCVThreshold    = 0.3 // cv below this counts as stable
	StableTrendThreshold = 0.1 // |trend| below this fraction of the mean counts as flat
)

// SelectorConfig controls method selection for one group
type SelectorConfig struct {
	Horizon          int // Weeks to forecast
	MinModelRows     int // Fully-lagged rows needed for the model path
	InactiveGapWeeks int // Weeks since the last sale that mark a group inactive
	Heuristics       HeuristicConfig
}

// DefaultSelectorConfig returns the production selector settings
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		Horizon:          2,
		MinModelRows:     10,
		InactiveGapWeeks: 4,
		Heuristics:       DefaultHeuristicConfig(),
	}
}

// Selector picks and runs the forecast method for one group at a time.
// It holds no per-group state and is safe for concurrent use when the
// predictor is.
type Selector struct {
	config    SelectorConfig
	predictor PointPredictor
	logger    *logging.Logger
}

// NewSelector creates a selector. A nil predictor disables the model path.
func NewSelector(config SelectorConfig, predictor PointPredictor, logger *logging.Logger) *Selector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Selector{config: config, predictor: predictor, logger: logger}
}

// Config returns the selector settings
func (s *Selector) Config() SelectorConfig {
	return s.config
}

// Forecast produces the forecast of one group from its feature rows.
// Output dates are the business-week starts from now onward.
func (s *Selector) Forecast(ctx context.Context, key timeseries.GroupKey, history []features.Row, now time.Time) (Result, error) {
	horizon := s.config.Horizon
	if horizon <= 0 {
		return Result{}, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	dates := calendar.WeekStarts(now, horizon)
	logger := s.logger.With("group", key.String())

	gap := weeksSinceLastSale(history, now)
	if gap >= float64(s.config.InactiveGapWeeks) {
		logger.Debug("Group inactive", "gap_weeks", gap)
		return NewResult(key, MethodZeroInactive, dates, constant(0, horizon)), nil
	}

	series := features.Quantities(history)

	if s.predictor != nil && features.FullyLagged(history) >= s.config.MinModelRows {
		values, err := RecursiveForecast(ctx, s.predictor, history, horizon, logger)
		if err == nil && len(values) != horizon {
			err = fmt.Errorf("recursive forecast returned %d values, want %d", len(values), horizon)
		}
		if err == nil {
			return NewResult(key, MethodXGBoostRecursive, dates, values), nil
		}
		// A deadline is the per-group budget and falls back; cancellation stops the run
		if errors.Is(err, context.Canceled) {
			return Result{}, err
		}
		logger.Warn("Model forecast failed, falling back to rolling mean", "error", err)
		return NewResult(key, MethodHeuristicRollingMean, dates,
			runHeuristic(HeuristicRollingMean, series, horizon, s.config.Heuristics)), nil
	}

	method, values := AdaptiveHeuristic(series, horizon, s.config.Heuristics)
	logger.Debug("Heuristic forecast", "method", string(method), "observations", len(series))
	return NewResult(key, method, dates, values), nil
}

// AdaptiveHeuristic picks naive for stable series and rolling mean for
// volatile or trending ones. Empty and all-zero series forecast zeros.
func AdaptiveHeuristic(series analytics.Series, horizon int, config HeuristicConfig) (Method, []float64) {
	switch {
	case len(series) == 0 || series.Sum() == 0:
		return MethodHeuristicZero, constant(0, horizon)
	case len(series) == 1:
		return MethodHeuristicNaive, runHeuristic(HeuristicNaive, series, horizon, config)
	}

	mean := series.Mean()
	cv := series.CV()
	trend := series.Trend()
	if cv < StableCVThreshold && math.Abs(trend) < StableTrendThreshold*mean {
		return MethodHeuristicNaive, runHeuristic(HeuristicNaive, series, horizon, config)
	}
	return MethodHeuristicRollingMean, runHeuristic(HeuristicRollingMean, series, horizon, config)
}

// weeksSinceLastSale returns whole weeks between the last positive sale and
// now at midnight UTC, +Inf when the group never sold
func weeksSinceLastSale(history []features.Row, now time.Time) float64 {
	last, ok := features.LastPositive(history)
	if !ok {
		return math.Inf(1)
	}
	return float64(calendar.WeeksBetween(last.Date, now))
}
