package forecast

import "github.com/pricepally/forecasting/internal/analytics"

// RollingMeanHeuristic forecasts the mean of the last window observations
type RollingMeanHeuristic struct{}

// NewRollingMeanHeuristic creates a new rolling mean heuristic
func NewRollingMeanHeuristic() *RollingMeanHeuristic {
	return &RollingMeanHeuristic{}
}

func init() {
	RegisterHeuristic(HeuristicRollingMean, NewRollingMeanHeuristic())
}

// Name returns the heuristic name
func (h *RollingMeanHeuristic) Name() string {
	return HeuristicRollingMean
}

// Forecast generates a constant rolling-mean forecast
func (h *RollingMeanHeuristic) Forecast(series analytics.Series, horizon int, config HeuristicConfig) []float64 {
	return RollingMean(series, horizon, config.Window)
}

// RollingMean returns horizon copies of the mean of the last window values,
// or of the overall mean when the series is shorter than window. An empty
// series forecasts zeros.
func RollingMean(series analytics.Series, horizon, window int) []float64 {
	if window <= 0 {
		window = DefaultHeuristicConfig().Window
	}
	if len(series) == 0 {
		return constant(0, horizon)
	}
	return constant(series.Tail(window).Mean(), horizon)
}

// NaiveHeuristic repeats the last observation
type NaiveHeuristic struct{}

// NewNaiveHeuristic creates a new naive heuristic
func NewNaiveHeuristic() *NaiveHeuristic {
	return &NaiveHeuristic{}
}

func init() {
	RegisterHeuristic(HeuristicNaive, NewNaiveHeuristic())
}

// Name returns the heuristic name
func (h *NaiveHeuristic) Name() string {
	return HeuristicNaive
}

// Forecast generates a constant last-value forecast
func (h *NaiveHeuristic) Forecast(series analytics.Series, horizon int, _ HeuristicConfig) []float64 {
	return Naive(series, horizon)
}

// Naive returns horizon copies of the last value, zeros for an empty series
func Naive(series analytics.Series, horizon int) []float64 {
	return constant(series.Last(), horizon)
}
