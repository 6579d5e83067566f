// Package features derives the lag, rolling and calendar features used by
// the demand model from weekly observations.
//
// All lag and rolling features are computed on the log target Y within one
// group only, from rows strictly before the current one. A feature that
// cannot be computed yet is NaN.
package features

import (
	"math"
	"slices"

	"github.com/pricepally/forecasting/internal/analytics"
	"github.com/pricepally/forecasting/internal/timeseries"
)

// Lags and windows used by the model
const (
	ShortLag    = 1
	MonthLag    = 4
	TwoMonthLag = 8

	ShortWindow = 4
	LongWindow  = 8
)

// Row is a weekly observation with its model features
type Row struct {
	timeseries.WeeklyObservation

	Y         float64 // log1p(Qty), or the raw log prediction for synthetic rows
	Lag1      float64
	Lag4      float64
	Lag8      float64
	RollMean4 float64
	RollMean8 float64
	RollStd4  float64
	MonthSin  float64
	MonthCos  float64
}

// Null is the missing-feature marker
func Null() float64 {
	return math.NaN()
}

// IsNull reports whether a feature value is missing
func IsNull(v float64) bool {
	return math.IsNaN(v)
}

// Build sorts observations by group and date, sets Y = log1p(Qty) and
// computes every feature. The input is not modified.
func Build(obs []timeseries.WeeklyObservation) []Row {
	rows := make([]Row, len(obs))
	for i, o := range obs {
		rows[i] = Row{WeeklyObservation: o, Y: math.Log1p(o.Qty)}
	}
	return compute(rows)
}

// Rebuild recomputes all features keeping each row's current Y. Running it
// twice yields the same rows.
func Rebuild(rows []Row) []Row {
	return compute(slices.Clone(rows))
}

// Append returns rows plus next, with next's features computed from the
// rows of its group that precede it. Existing rows are left unchanged.
// rows must already be sorted by group and date.
func Append(rows []Row, next Row) []Row {
	var history []float64
	for _, r := range rows {
		if r.GroupKey == next.GroupKey && r.Date.Before(next.Date) {
			history = append(history, r.Y)
		}
	}
	fill(&next, history)

	out := make([]Row, len(rows), len(rows)+1)
	copy(out, rows)
	return append(out, next)
}

// FullyLagged counts rows whose Lag1, Lag4 and Lag8 are all present
func FullyLagged(rows []Row) int {
	n := 0
	for _, r := range rows {
		if !IsNull(r.Lag1) && !IsNull(r.Lag4) && !IsNull(r.Lag8) {
			n++
		}
	}
	return n
}

// Quantities returns the Qty column
func Quantities(rows []Row) analytics.Series {
	qty := make(analytics.Series, len(rows))
	for i, r := range rows {
		qty[i] = r.Qty
	}
	return qty
}

// LastPositive returns the latest row with Qty > 0
func LastPositive(rows []Row) (Row, bool) {
	var (
		last  Row
		found bool
	)
	for _, r := range rows {
		if r.Qty > 0 && (!found || r.Date.After(last.Date)) {
			last, found = r, true
		}
	}
	return last, found
}

func compute(rows []Row) []Row {
	slices.SortStableFunc(rows, func(a, b Row) int {
		return a.WeeklyObservation.Compare(b.WeeklyObservation)
	})

	start := 0
	for i := range rows {
		if i > start && rows[i].GroupKey != rows[start].GroupKey {
			start = i
		}
		prior := make([]float64, i-start)
		for j := start; j < i; j++ {
			prior[j-start] = rows[j].Y
		}
		fill(&rows[i], prior)
	}
	return rows
}

// fill sets the features of r from the Y values that precede it in its group
func fill(r *Row, prior []float64) {
	r.Lag1 = lag(prior, ShortLag)
	r.Lag4 = lag(prior, MonthLag)
	r.Lag8 = lag(prior, TwoMonthLag)

	r.RollMean4 = Null()
	r.RollStd4 = Null()
	if w := window(prior, ShortWindow); w != nil {
		r.RollMean4 = w.Mean()
		r.RollStd4 = w.StdDev()
	}
	r.RollMean8 = Null()
	if w := window(prior, LongWindow); w != nil {
		r.RollMean8 = w.Mean()
	}

	angle := 2 * math.Pi * float64(r.Month) / 12
	r.MonthSin = math.Sin(angle)
	r.MonthCos = math.Cos(angle)
}

func lag(prior []float64, k int) float64 {
	if len(prior) < k {
		return Null()
	}
	return prior[len(prior)-k]
}

// window returns the last n prior values, nil until n exist
func window(prior []float64, n int) analytics.Series {
	if len(prior) < n {
		return nil
	}
	return analytics.Series(prior[len(prior)-n:])
}
