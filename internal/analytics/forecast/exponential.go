package forecast

import "github.com/pricepally/forecasting/internal/analytics"

// ExponentialHeuristic implements simple exponential smoothing
type ExponentialHeuristic struct{}

// NewExponentialHeuristic creates a new exponential smoothing heuristic
func NewExponentialHeuristic() *ExponentialHeuristic {
	return &ExponentialHeuristic{}
}

func init() {
	RegisterHeuristic(HeuristicExponential, NewExponentialHeuristic())
}

// Name returns the heuristic name
func (h *ExponentialHeuristic) Name() string {
	return HeuristicExponential
}

// Forecast generates a constant forecast at the final smoothed level
func (h *ExponentialHeuristic) Forecast(series analytics.Series, horizon int, config HeuristicConfig) []float64 {
	return ExponentialSmoothing(series, horizon, config.Alpha)
}

// ExponentialSmoothing starts the level at the first value and applies
// level = alpha*value + (1-alpha)*level over the rest. An alpha outside
// (0, 1] uses the default.
func ExponentialSmoothing(series analytics.Series, horizon int, alpha float64) []float64 {
	if len(series) == 0 {
		return constant(0, horizon)
	}
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultHeuristicConfig().Alpha
	}

	level := series[0]
	for _, v := range series[1:] {
		level = alpha*v + (1-alpha)*level
	}
	return constant(level, horizon)
}
