package services

import (
	"context"
	"errors"
	"time"

	"github.com/pricepally/forecasting/internal/analytics/features"
	"github.com/pricepally/forecasting/internal/analytics/forecast"
	"github.com/pricepally/forecasting/internal/calendar"
	"github.com/pricepally/forecasting/internal/config"
	"github.com/pricepally/forecasting/internal/logging"
	"github.com/pricepally/forecasting/internal/pipeline"
	"github.com/pricepally/forecasting/internal/timeseries"
)

// testDates are twenty business-week starts from January 2024
var testDates = calendar.WeekStarts(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 20)

// testNow is three days after the last week with sales
var testNow = testDates[len(testDates)-1].AddDate(0, 0, 3)

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Model.Rounds = 40
	cfg.Model.LearningRate = 0.2
	cfg.Forecast.Workers = 2
	cfg.Output.Dir = dir
	return cfg
}

func transactionsAt(name, channel string, dates []time.Time, invoiced, delivered float64) []timeseries.Transaction {
	out := make([]timeseries.Transaction, len(dates))
	for i, d := range dates {
		out[i] = timeseries.Transaction{
			Year:         d.Year(),
			Month:        int(d.Month()),
			WeekMonth:    calendar.DateToWeek(d),
			ProductName:  name,
			ProductUOM:   "kg",
			SalesType:    channel,
			QtyInvoiced:  invoiced,
			QtyDelivered: delivered,
		}
	}
	return out
}

// sampleTransactions has one stable b2c product, one b2c product that stopped
// selling, one b2b product and one attribute-only label
func sampleTransactions() []timeseries.Transaction {
	var txs []timeseries.Transaction
	txs = append(txs, transactionsAt("rice", "b2c", testDates, 10, 8)...)
	txs = append(txs, transactionsAt("beans", "b2c", testDates[8:10], 4, 4)...)
	txs = append(txs, transactionsAt("garri", "b2b", testDates, 50, 50)...)
	txs = append(txs, transactionsAt("chopped", "b2c", testDates, 1, 1)...)
	return txs
}

// failingForecaster fails every group
type failingForecaster struct{}

func (failingForecaster) Forecast(context.Context, timeseries.GroupKey, []features.Row, time.Time) (forecast.Result, error) {
	return forecast.Result{}, errors.New("model unavailable")
}

func withFailingForecaster() pipeline.Option {
	return pipeline.WithForecasterFactory(func(forecast.SelectorConfig, forecast.PointPredictor, *logging.Logger) pipeline.GroupForecaster {
		return failingForecaster{}
	})
}
