package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pricepally/forecasting/internal/calendar"
	"github.com/pricepally/forecasting/internal/config"
	"github.com/pricepally/forecasting/internal/logging"
	"github.com/pricepally/forecasting/internal/middleware"
	"github.com/pricepally/forecasting/internal/services"
	"github.com/pricepally/forecasting/internal/timeseries"
	"github.com/stretchr/testify/require"
)

var testDates = calendar.WeekStarts(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 20)

const testNow = "2024-05-25"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Model.Rounds = 40
	cfg.Model.LearningRate = 0.2
	cfg.Output.Dir = t.TempDir()

	logger := logging.NewNop()
	h := New(logger, services.NewForecastService(logger, cfg, nil), "1.2.3")

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logger)})
	app.Get("/health", h.Health)
	app.Get("/v1/methods", h.Methods)
	app.Post("/v1/forecasts", h.Forecast)
	app.Post("/v1/forecasts/csv", h.ForecastCSV)
	app.Use(h.NotFound)
	return app
}

func sampleTransactions() []timeseries.Transaction {
	var txs []timeseries.Transaction
	add := func(name string, dates []time.Time, qty float64) {
		for _, d := range dates {
			txs = append(txs, timeseries.Transaction{
				Year: d.Year(), Month: int(d.Month()), WeekMonth: calendar.DateToWeek(d),
				ProductName: name, ProductUOM: "kg", SalesType: "b2c",
				QtyInvoiced: qty, QtyDelivered: qty,
			})
		}
	}
	add("rice", testDates, 10)
	add("beans", testDates[8:10], 4)
	return txs
}

func sampleCSV(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write([]string{
		"year", "month", "week_month", "product_name", "product_uom",
		"sales_type", "total_qty_invoiced", "total_qty_delivered",
	}))
	for _, tx := range sampleTransactions() {
		require.NoError(t, w.Write([]string{
			strconv.Itoa(tx.Year), strconv.Itoa(tx.Month), strconv.Itoa(tx.WeekMonth),
			tx.ProductName, tx.ProductUOM, tx.SalesType,
			strconv.FormatFloat(tx.QtyInvoiced, 'f', -1, 64),
			strconv.FormatFloat(tx.QtyDelivered, 'f', -1, 64),
		}))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return buf.Bytes()
}

// do runs a request without the default one-second test timeout
func do(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}
