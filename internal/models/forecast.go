package models

import (
	"time"

	"github.com/pricepally/forecasting/internal/analytics/forecast"
	"github.com/pricepally/forecasting/internal/analytics/model"
	"github.com/pricepally/forecasting/internal/pipeline"
	"github.com/pricepally/forecasting/internal/timeseries"
)

// ForecastRequest represents the forecast request body
type ForecastRequest struct {
	Transactions []timeseries.Transaction `json:"transactions"`
	Horizon      int                      `json:"horizon,omitempty"`     // Overrides forecast.horizon
	SalesTypes   []string                 `json:"sales_types,omitempty"` // Overrides input.sales_types
	// FilterAttributeProducts overrides input.filter_attribute_products when set
	FilterAttributeProducts *bool  `json:"filter_attribute_products,omitempty"`
	Now                     string `json:"now,omitempty"` // Run date, YYYY-MM-DD
}

// ForecastRow is one forecast week of one group
type ForecastRow struct {
	Date           string  `json:"date"`
	ForecastQty    float64 `json:"forecast_qty"`
	Year           int     `json:"year"`
	Month          int     `json:"month"`
	WeekMonth      int     `json:"week_month"`
	ProductName    string  `json:"product_name"`
	ProductUOM     string  `json:"product_uom"`
	SalesType      string  `json:"sales_type"`
	ForecastMethod string  `json:"forecast_method"`
}

// FailedGroup is a group that produced no forecast
type FailedGroup struct {
	ProductName string `json:"product_name"`
	ProductUOM  string `json:"product_uom"`
	SalesType   string `json:"sales_type"`
	Reason      string `json:"reason"`
}

// ForecastResponse represents a completed forecast run
type ForecastResponse struct {
	RunID     string           `json:"run_id"`
	Forecasts []ForecastRow    `json:"forecasts"`
	Failed    []FailedGroup    `json:"failed,omitempty"`
	Summary   pipeline.Summary `json:"summary"`
	Model     model.ModelInfo  `json:"model"`
}

// ForecastCompletedEvent is published once per run
type ForecastCompletedEvent struct {
	RunID       string           `json:"run_id"`
	CompletedAt string           `json:"completed_at"`
	Summary     pipeline.Summary `json:"summary"`
	Model       model.ModelInfo  `json:"model"`
}

// ForecastRowsEvent carries one batch of forecast rows
type ForecastRowsEvent struct {
	RunID string        `json:"run_id"`
	Batch int           `json:"batch"`
	Rows  []ForecastRow `json:"rows"`
}

// NewForecastRow converts a forecast row to its wire form
func NewForecastRow(r forecast.Row) ForecastRow {
	return ForecastRow{
		Date:           r.Date.Format(time.DateOnly),
		ForecastQty:    r.Qty,
		Year:           r.Year,
		Month:          r.Month,
		WeekMonth:      r.WeekMonth,
		ProductName:    r.ProductName,
		ProductUOM:     r.ProductUOM,
		SalesType:      r.SalesType,
		ForecastMethod: string(r.Method),
	}
}

// NewForecastRows converts forecast rows to their wire form
func NewForecastRows(rows []forecast.Row) []ForecastRow {
	out := make([]ForecastRow, len(rows))
	for i, r := range rows {
		out[i] = NewForecastRow(r)
	}
	return out
}

// NewForecastResponse converts a pipeline result to a response
func NewForecastResponse(result *pipeline.Result) ForecastResponse {
	failed := make([]FailedGroup, len(result.Failed))
	for i, f := range result.Failed {
		failed[i] = FailedGroup{
			ProductName: f.ProductName,
			ProductUOM:  f.ProductUOM,
			SalesType:   f.SalesType,
			Reason:      f.Reason,
		}
	}

	return ForecastResponse{
		RunID:     result.RunID,
		Forecasts: NewForecastRows(result.Forecasts),
		Failed:    failed,
		Summary:   result.Summary,
		Model:     result.Model,
	}
}
