package forecast

import (
	"context"
	"math"

	"github.com/pricepally/forecasting/internal/analytics"
	"github.com/pricepally/forecasting/internal/analytics/features"
	"github.com/pricepally/forecasting/internal/calendar"
	"github.com/pricepally/forecasting/internal/logging"
	"github.com/pricepally/forecasting/internal/timeseries"
)

// PointPredictor evaluates the model on one feature row, returning a log-scale value
type PointPredictor interface {
	Predict(row features.Row) (float64, error)
}

// RecursiveForecast predicts horizon steps for one group, appending each
// prediction to a private copy of history so later steps see it through
// the lag and rolling features of the appended row.
//
// A failed prediction ends the loop and fills the remaining steps with 0;
// that is not an error. Only context cancellation returns an error.
func RecursiveForecast(ctx context.Context, predictor PointPredictor, history []features.Row, horizon int, logger *logging.Logger) ([]float64, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if horizon <= 0 {
		return []float64{}, nil
	}

	if len(history) == 0 {
		logger.Warn("Recursive forecast has no history", "steps_filled", horizon)
		return fillZeros(nil, horizon), nil
	}

	series := features.Rebuild(history)
	out := make([]float64, 0, horizon)

	for step := 0; step < horizon; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		last := series[len(series)-1]

		predLog, err := predictor.Predict(last)
		if err != nil {
			logger.Warn("Recursive forecast failed",
				"group", last.GroupKey.String(),
				"step", step+1,
				"horizon", horizon,
				"error", err)
			return fillZeros(out, horizon), nil
		}

		pred := analytics.ClampNonNegative(math.Expm1(predLog))
		out = append(out, pred)
		series = features.Append(series, nextRow(last, pred, predLog))
	}

	logger.Debug("Recursive forecast complete", "values", len(out))
	return out, nil
}

// nextRow builds the synthetic row one business week after last
func nextRow(last features.Row, qty, y float64) features.Row {
	d := calendar.AddWeeks(last.Date, 1)
	return features.Row{
		WeeklyObservation: timeseries.WeeklyObservation{
			Year:      d.Year(),
			Month:     int(d.Month()),
			WeekMonth: calendar.DateToWeek(d),
			GroupKey:  last.GroupKey,
			Qty:       qty,
			Date:      d,
		},
		Y: y,
	}
}

func fillZeros(values []float64, horizon int) []float64 {
	for len(values) < horizon {
		values = append(values, 0)
	}
	return values
}
