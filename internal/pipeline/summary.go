package pipeline

import (
	"fmt"
	"slices"
	"time"

	"github.com/pricepally/forecasting/internal/analytics/forecast"
	"github.com/pricepally/forecasting/internal/logging"
	"github.com/pricepally/forecasting/internal/timeseries"
	"gonum.org/v1/gonum/stat"
)

// ReasonCount is how many groups failed for one reason
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Summary describes one run
type Summary struct {
	RunID          string                  `json:"run_id"`
	ProductsBefore int                     `json:"products_before"`
	ProductsAfter  int                     `json:"products_after"`
	FailedGroups   int                     `json:"failed_groups"`
	SuccessRate    float64                 `json:"success_rate"`   // Percent of groups forecast
	MethodCounts   map[forecast.Method]int `json:"method_counts"`  // Distinct groups per method
	TopFailures    []ReasonCount           `json:"top_failures"`   // Up to three most common reasons
	TotalRows      int                     `json:"total_rows"`
	FirstDate      time.Time               `json:"first_date"`
	LastDate       time.Time               `json:"last_date"`
	MeanForecast   float64                 `json:"mean_forecast"`
	MedianForecast float64                 `json:"median_forecast"`
	ZeroForecasts  int                     `json:"zero_forecasts"`
	FeatureTime    time.Duration           `json:"feature_time"`
	TrainingTime   time.Duration           `json:"training_time"`
	ForecastTime   time.Duration           `json:"forecast_time"`
	TotalTime      time.Duration           `json:"total_time"`
}

type timings struct {
	features    time.Duration
	training    time.Duration
	forecasting time.Duration
	total       time.Duration
}

const topFailureReasons = 3

func summarize(runID string, productsBefore int, rows []forecast.Row, failed []FailedGroup, t timings) Summary {
	s := Summary{
		RunID:          runID,
		ProductsBefore: productsBefore,
		FailedGroups:   len(failed),
		MethodCounts:   make(map[forecast.Method]int),
		TotalRows:      len(rows),
		FeatureTime:    t.features,
		TrainingTime:   t.training,
		ForecastTime:   t.forecasting,
		TotalTime:      t.total,
	}

	groupMethods := make(map[timeseries.GroupKey]map[forecast.Method]struct{})
	qty := make([]float64, 0, len(rows))
	for _, r := range rows {
		methods, ok := groupMethods[r.GroupKey]
		if !ok {
			methods = make(map[forecast.Method]struct{})
			groupMethods[r.GroupKey] = methods
		}
		if _, seen := methods[r.Method]; !seen {
			methods[r.Method] = struct{}{}
			s.MethodCounts[r.Method]++
		}

		qty = append(qty, r.Qty)
		if r.Qty == 0 {
			s.ZeroForecasts++
		}
		if s.FirstDate.IsZero() || r.Date.Before(s.FirstDate) {
			s.FirstDate = r.Date
		}
		if r.Date.After(s.LastDate) {
			s.LastDate = r.Date
		}
	}
	s.ProductsAfter = len(groupMethods)
	if productsBefore > 0 {
		s.SuccessRate = float64(s.ProductsAfter) / float64(productsBefore) * 100
	}
	if len(qty) > 0 {
		s.MeanForecast = stat.Mean(qty, nil)
		s.MedianForecast = median(qty)
	}
	s.TopFailures = topReasons(failed, topFailureReasons)

	return s
}

// median averages the two middle values for an even count
func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func topReasons(failed []FailedGroup, limit int) []ReasonCount {
	counts := make(map[string]int)
	for _, f := range failed {
		counts[f.Reason]++
	}
	out := make([]ReasonCount, 0, len(counts))
	for reason, count := range counts {
		out = append(out, ReasonCount{Reason: reason, Count: count})
	}
	slices.SortFunc(out, func(a, b ReasonCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		if a.Reason < b.Reason {
			return -1
		}
		if a.Reason > b.Reason {
			return 1
		}
		return 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func percent(part, whole float64) string {
	if whole == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", part/whole*100)
}

// Log writes the run summary at info level, failures at warn
func (s Summary) Log(logger *logging.Logger) {
	logger.Info("Forecast pipeline summary",
		"products_before", s.ProductsBefore,
		"products_after", s.ProductsAfter,
		"failed_groups", s.FailedGroups,
		"success_rate", fmt.Sprintf("%.1f", s.SuccessRate))

	for _, m := range forecast.Methods() {
		if count := s.MethodCounts[m]; count > 0 {
			logger.Info("Forecast method distribution",
				"method", string(m),
				"groups", count,
				"percent", percent(float64(count), float64(s.ProductsAfter)))
		}
	}

	if s.FailedGroups > 0 {
		logger.Warn("Some groups failed to generate forecasts", "failed_groups", s.FailedGroups)
		for _, r := range s.TopFailures {
			logger.Warn("Top failure reason", "reason", r.Reason, "groups", r.Count)
		}
	}

	if s.TotalRows == 0 {
		return
	}
	logger.Info("Forecast statistics",
		"total_rows", s.TotalRows,
		"rows_per_product", fmt.Sprintf("%.1f", float64(s.TotalRows)/float64(max(1, s.ProductsAfter))),
		"first_date", s.FirstDate.Format(time.DateOnly),
		"last_date", s.LastDate.Format(time.DateOnly),
		"mean_qty", fmt.Sprintf("%.2f", s.MeanForecast),
		"median_qty", fmt.Sprintf("%.2f", s.MedianForecast),
		"zero_forecasts", s.ZeroForecasts,
		"zero_percent", percent(float64(s.ZeroForecasts), float64(s.TotalRows)))

	total := s.TotalTime.Seconds()
	logger.Info("Pipeline timing",
		"total", s.TotalTime.String(),
		"features", s.FeatureTime.String(),
		"features_percent", percent(s.FeatureTime.Seconds(), total),
		"training", s.TrainingTime.String(),
		"training_percent", percent(s.TrainingTime.Seconds(), total),
		"forecasting", s.ForecastTime.String(),
		"forecasting_percent", percent(s.ForecastTime.Seconds(), total))
}
