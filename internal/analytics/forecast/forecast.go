// Package forecast produces per-group demand forecasts, choosing between the
// recursive model forecast and rule-based heuristics.
package forecast

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/pricepally/forecasting/internal/analytics"
	"github.com/pricepally/forecasting/internal/calendar"
	"github.com/pricepally/forecasting/internal/timeseries"
)

// Method tags how a forecast was produced
type Method string

const (
	MethodZeroInactive         Method = "ZERO_INACTIVE"
	MethodXGBoostRecursive     Method = "XGBOOST_RECURSIVE"
	MethodHeuristicRollingMean Method = "HEURISTIC_ROLLING_MEAN"
	MethodHeuristicNaive       Method = "HEURISTIC_NAIVE"
	MethodHeuristicZero        Method = "HEURISTIC_ZERO"
)

// Methods returns every method tag in a stable order
func Methods() []Method {
	return []Method{
		MethodZeroInactive,
		MethodXGBoostRecursive,
		MethodHeuristicRollingMean,
		MethodHeuristicNaive,
		MethodHeuristicZero,
	}
}

// Row is one forecast for one group and future business week
type Row struct {
	Date      time.Time
	Qty       float64
	Year      int
	Month     int
	WeekMonth int
	timeseries.GroupKey
	Method Method
}

// Result is the forecast of one group
type Result struct {
	Key    timeseries.GroupKey
	Method Method
	Rows   []Row
}

// Values returns the forecast quantities in date order
func (r Result) Values() []float64 {
	out := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Qty
	}
	return out
}

// NewResult lays values out on dates. Quantities are clamped to be non-negative.
func NewResult(key timeseries.GroupKey, method Method, dates []time.Time, values []float64) Result {
	rows := make([]Row, len(values))
	for i, v := range values {
		d := dates[i]
		rows[i] = Row{
			Date:      d,
			Qty:       analytics.ClampNonNegative(v),
			Year:      d.Year(),
			Month:     int(d.Month()),
			WeekMonth: calendar.DateToWeek(d),
			GroupKey:  key,
			Method:    method,
		}
	}
	return Result{Key: key, Method: method, Rows: rows}
}

// HeuristicConfig holds the tunables shared by heuristic forecasters
type HeuristicConfig struct {
	Window int     // Rolling-mean window
	Alpha  float64 // Exponential smoothing factor (0-1]
}

// DefaultHeuristicConfig returns the production heuristic settings
func DefaultHeuristicConfig() HeuristicConfig {
	return HeuristicConfig{
		Window: 4,
		Alpha:  0.3,
	}
}

// Heuristic is a rule-based forecaster over a quantity series
type Heuristic interface {
	// Name returns the heuristic name
	Name() string
	// Forecast returns exactly horizon non-negative values
	Forecast(series analytics.Series, horizon int, config HeuristicConfig) []float64
}

// Registered heuristic names
const (
	HeuristicRollingMean = "rolling_mean"
	HeuristicNaive       = "naive"
	HeuristicExponential = "exponential"
)

var (
	heuristicMu       sync.RWMutex
	heuristicRegistry = make(map[string]Heuristic)
)

// RegisterHeuristic adds a heuristic to the registry
func RegisterHeuristic(name string, h Heuristic) {
	heuristicMu.Lock()
	defer heuristicMu.Unlock()
	heuristicRegistry[name] = h
}

// GetHeuristic returns a heuristic by name
func GetHeuristic(name string) (Heuristic, error) {
	heuristicMu.RLock()
	defer heuristicMu.RUnlock()
	if h, ok := heuristicRegistry[name]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("unknown heuristic: %s", name)
}

// ListHeuristics returns the registered heuristic names, sorted
func ListHeuristics() []string {
	heuristicMu.RLock()
	defer heuristicMu.RUnlock()
	names := make([]string, 0, len(heuristicRegistry))
	for name := range heuristicRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// runHeuristic forecasts with the registered heuristic name. An unknown
// name forecasts zeros.
func runHeuristic(name string, series analytics.Series, horizon int, config HeuristicConfig) []float64 {
	h, err := GetHeuristic(name)
	if err != nil {
		return constant(0, horizon)
	}
	return h.Forecast(series, horizon, config)
}

// constant repeats v horizon times after clamping it
func constant(v float64, horizon int) []float64 {
	if horizon <= 0 {
		return []float64{}
	}
	v = analytics.ClampNonNegative(v)
	out := make([]float64, horizon)
	for i := range out {
		out[i] = v
	}
	return out
}
