package forecast

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/pricepally/forecasting/internal/analytics/features"
	"github.com/pricepally/forecasting/internal/calendar"
	"github.com/pricepally/forecasting/internal/timeseries"
)

// Common test data and helpers for all forecast tests

var (
	testKey   = timeseries.GroupKey{ProductName: "rice", ProductUOM: "kg", SalesType: "b2c"}
	testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

// historyRows builds feature rows for consecutive business weeks from testStart
func historyRows(qty ...float64) []features.Row {
	dates := calendar.WeekStarts(testStart, len(qty))
	obs := make([]timeseries.WeeklyObservation, len(qty))
	for i, q := range qty {
		d := dates[i]
		obs[i] = timeseries.WeeklyObservation{
			Year: d.Year(), Month: int(d.Month()), WeekMonth: calendar.DateToWeek(d),
			GroupKey: testKey, Qty: q, Date: d,
		}
	}
	return features.Build(obs)
}

func constantQty(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// afterLast returns a time just after the last history row, so the group is active
func afterLast(rows []features.Row) time.Time {
	return rows[len(rows)-1].Date.AddDate(0, 0, 3)
}

var errModel = errors.New("model unavailable")

// stubPredictor returns value for every call, failing from call failAt (1-based) on
type stubPredictor struct {
	value  float64
	failAt int64
	calls  atomic.Int64
	seen   []features.Row
}

func (p *stubPredictor) Predict(row features.Row) (float64, error) {
	n := p.calls.Add(1)
	p.seen = append(p.seen, row)
	if p.failAt > 0 && n >= p.failAt {
		return 0, errModel
	}
	return p.value, nil
}
