package forecast

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/pricepally/forecasting/internal/analytics"
	"github.com/pricepally/forecasting/internal/analytics/features"
	"github.com/pricepally/forecasting/internal/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptiveHeuristic(t *testing.T) {
	tests := []struct {
		name   string
		series analytics.Series
		want   Method
	}{
		{"stable series", analytics.Series{10, 10, 10, 10, 10}, MethodHeuristicNaive},
		{"volatile series", analytics.Series{1, 50, 2, 60, 3}, MethodHeuristicRollingMean},
		{"trending series", analytics.Series{10, 14, 18, 22, 26}, MethodHeuristicRollingMean},
		{"gentle trend is stable", analytics.Series{10, 11, 12, 13, 14}, MethodHeuristicNaive},
		// cv 0.24 passes, trend 15 exceeds 0.1*mean
		{"low cv steep trend", analytics.Series{70, 85, 100, 115, 130}, MethodHeuristicRollingMean},
		{"empty series", nil, MethodHeuristicZero},
		{"all zero", analytics.Series{0, 0, 0}, MethodHeuristicZero},
		{"single observation", analytics.Series{6}, MethodHeuristicNaive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, values := AdaptiveHeuristic(tt.series, 3, DefaultHeuristicConfig())
			assert.Equal(t, tt.want, method)
			assert.Len(t, values, 3)
		})
	}
}

func TestSelector_Inactive(t *testing.T) {
	history := historyRows(5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5)
	last := history[len(history)-1].Date
	now := last.AddDate(0, 0, 6*7)

	pred := &stubPredictor{value: math.Log1p(5)}
	sel := NewSelector(DefaultSelectorConfig(), pred, nil)

	res, err := sel.Forecast(context.Background(), testKey, history, now)
	require.NoError(t, err)

	assert.Equal(t, MethodZeroInactive, res.Method)
	assert.Equal(t, []float64{0, 0}, res.Values())
	assert.Zero(t, pred.calls.Load())
}

func TestSelector_NeverSoldIsInactive(t *testing.T) {
	history := historyRows(0, 0, 0)
	sel := NewSelector(DefaultSelectorConfig(), nil, nil)

	res, err := sel.Forecast(context.Background(), testKey, history, afterLast(history))
	require.NoError(t, err)
	assert.Equal(t, MethodZeroInactive, res.Method)
}

func TestSelector_ModelPath(t *testing.T) {
	history := historyRows(constantQty(8, 20)...)
	require.GreaterOrEqual(t, features.FullyLagged(history), 10)

	cfg := DefaultSelectorConfig()
	cfg.Horizon = 3
	pred := &stubPredictor{value: math.Log1p(8)}
	sel := NewSelector(cfg, pred, nil)

	now := afterLast(history)
	res, err := sel.Forecast(context.Background(), testKey, history, now)
	require.NoError(t, err)

	assert.Equal(t, MethodXGBoostRecursive, res.Method)
	require.Len(t, res.Rows, 3)
	for _, v := range res.Values() {
		assert.InDelta(t, 8, v, 1e-9)
	}
	assert.Equal(t, calendar.WeekStarts(now, 3)[0], res.Rows[0].Date)
	assert.Equal(t, int64(3), pred.calls.Load())
}

func TestSelector_ModelPartialFailureKeepsMethod(t *testing.T) {
	history := historyRows(constantQty(8, 20)...)
	cfg := DefaultSelectorConfig()
	cfg.Horizon = 4
	p1 := math.Log1p(9)
	sel := NewSelector(cfg, &stubPredictor{value: p1, failAt: 2}, nil)

	res, err := sel.Forecast(context.Background(), testKey, history, afterLast(history))
	require.NoError(t, err)

	assert.Equal(t, MethodXGBoostRecursive, res.Method)
	values := res.Values()
	require.Len(t, values, 4)
	assert.InDelta(t, 9, values[0], 1e-9)
	assert.Equal(t, []float64{0, 0, 0}, values[1:])
}

func TestSelector_DeadlineFallsBackToRollingMean(t *testing.T) {
	history := historyRows(append(constantQty(8, 18), 4, 12)...)
	sel := NewSelector(DefaultSelectorConfig(), &stubPredictor{value: 1}, nil)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	res, err := sel.Forecast(ctx, testKey, history, afterLast(history))
	require.NoError(t, err)

	assert.Equal(t, MethodHeuristicRollingMean, res.Method)
	// last four observations are 8, 8, 4, 12
	assert.Equal(t, []float64{8, 8}, res.Values())
}

func TestSelector_CancelledRunReturnsError(t *testing.T) {
	history := historyRows(constantQty(8, 20)...)
	sel := NewSelector(DefaultSelectorConfig(), &stubPredictor{value: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sel.Forecast(ctx, testKey, history, afterLast(history))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelector_ShortHistoryUsesHeuristics(t *testing.T) {
	tests := []struct {
		name string
		qty  []float64
		want Method
	}{
		{"stable", []float64{10, 10, 10, 10, 10}, MethodHeuristicNaive},
		{"volatile", []float64{1, 50, 2, 60, 3}, MethodHeuristicRollingMean},
		{"single week", []float64{4}, MethodHeuristicNaive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := historyRows(tt.qty...)
			pred := &stubPredictor{value: 1}
			sel := NewSelector(DefaultSelectorConfig(), pred, nil)

			res, err := sel.Forecast(context.Background(), testKey, history, afterLast(history))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Method)
			assert.Len(t, res.Rows, 2)
			assert.Zero(t, pred.calls.Load())
		})
	}
}

func TestSelector_NilPredictorSkipsModel(t *testing.T) {
	history := historyRows(constantQty(8, 20)...)
	sel := NewSelector(DefaultSelectorConfig(), nil, nil)

	res, err := sel.Forecast(context.Background(), testKey, history, afterLast(history))
	require.NoError(t, err)
	assert.Equal(t, MethodHeuristicNaive, res.Method)
}

func TestSelector_InvalidHorizon(t *testing.T) {
	cfg := DefaultSelectorConfig()
	cfg.Horizon = 0
	_, err := NewSelector(cfg, nil, nil).Forecast(context.Background(), testKey, historyRows(1), testStart)
	assert.Error(t, err)
}

// fixedHeuristic forecasts a constant value
type fixedHeuristic struct{ value float64 }

func (h fixedHeuristic) Name() string { return "fixed" }

func (h fixedHeuristic) Forecast(_ analytics.Series, horizon int, _ HeuristicConfig) []float64 {
	return constant(h.value, horizon)
}

func TestAdaptiveHeuristic_UsesRegistry(t *testing.T) {
	RegisterHeuristic(HeuristicNaive, fixedHeuristic{value: 42})
	RegisterHeuristic(HeuristicRollingMean, fixedHeuristic{value: 7})
	t.Cleanup(func() {
		RegisterHeuristic(HeuristicNaive, NewNaiveHeuristic())
		RegisterHeuristic(HeuristicRollingMean, NewRollingMeanHeuristic())
	})

	method, values := AdaptiveHeuristic(analytics.Series{10, 10, 10, 10}, 2, DefaultHeuristicConfig())
	assert.Equal(t, MethodHeuristicNaive, method)
	assert.Equal(t, []float64{42, 42}, values)

	method, values = AdaptiveHeuristic(analytics.Series{1, 50, 2, 60, 3}, 2, DefaultHeuristicConfig())
	assert.Equal(t, MethodHeuristicRollingMean, method)
	assert.Equal(t, []float64{7, 7}, values)
}

func TestRunHeuristic_UnknownNameForecastsZeros(t *testing.T) {
	assert.Equal(t, []float64{0, 0, 0}, runHeuristic("holt_winters", analytics.Series{5, 6}, 3, DefaultHeuristicConfig()))
}
