package handlers

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pricepally/forecasting/internal/compression"
	"github.com/pricepally/forecasting/internal/ingest"
	"github.com/pricepally/forecasting/internal/models"
	"github.com/pricepally/forecasting/internal/output"
	"github.com/pricepally/forecasting/internal/pipeline"
	"github.com/pricepally/forecasting/internal/services"
)

// Forecast handles JSON forecast requests
// POST /v1/forecasts
func (h *Handler) Forecast(c *fiber.Ctx) error {
	var body models.ForecastRequest
	if err := c.BodyParser(&body); err != nil {
		return services.NewServiceErrorWithDetails(services.CodeInvalidInput, "Failed to parse JSON body",
			map[string]interface{}{"error": err.Error()})
	}

	now, err := parseNow(body.Now)
	if err != nil {
		return err
	}

	req := &services.ForecastRequest{
		Transactions:            body.Transactions,
		Horizon:                 body.Horizon,
		SalesChannels:           body.SalesTypes,
		FilterAttributeProducts: body.FilterAttributeProducts,
		Now:                     now,
	}
	return h.executeForecast(c, req)
}

// ForecastCSV handles forecast requests with a transaction CSV body.
// Options come from the query string (horizon, now, sales_types,
// filter_attribute_products). A Content-Encoding of snappy is accepted.
// POST /v1/forecasts/csv
func (h *Handler) ForecastCSV(c *fiber.Ctx) error {
	// raw body; fiber only decodes the encodings it knows
	var r io.Reader = bytes.NewReader(c.Request().Body())
	if strings.EqualFold(c.Get(fiber.HeaderContentEncoding), compression.Snappy.String()) {
		var err error
		if r, err = compression.NewReader(compression.Snappy, r); err != nil {
			return err
		}
	}

	txs, err := ingest.Read(r)
	if err != nil {
		return services.ToServiceError(err)
	}

	req := &services.ForecastRequest{Transactions: txs}
	if req.Horizon, err = queryInt(c, "horizon"); err != nil {
		return err
	}
	if req.Now, err = parseNow(c.Query("now")); err != nil {
		return err
	}
	if v := c.Query("sales_types"); v != "" {
		req.SalesChannels = splitAndTrim(v, ",")
	}
	if v := c.Query("filter_attribute_products"); v != "" {
		filter, err := strconv.ParseBool(v)
		if err != nil {
			return invalidQuery("filter_attribute_products", v)
		}
		req.FilterAttributeProducts = &filter
	}

	return h.executeForecast(c, req)
}

// executeForecast runs the request and renders JSON, or the forecast table
// when the client accepts text/csv
func (h *Handler) executeForecast(c *fiber.Ctx, req *services.ForecastRequest) error {
	result, err := h.forecastService.Execute(c.UserContext(), req)
	if err != nil {
		return err
	}

	if c.Accepts(fiber.MIMEApplicationJSON, "text/csv") == "text/csv" {
		return h.writeCSV(c, result)
	}
	return c.JSON(models.NewForecastResponse(result))
}

func (h *Handler) writeCSV(c *fiber.Ctx, result *pipeline.Result) error {
	var buf bytes.Buffer
	if err := output.WriteForecasts(&buf, result.Forecasts); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set("X-Run-ID", result.RunID)
	c.Set("X-Failed-Groups", strconv.Itoa(len(result.Failed)))
	return c.Send(buf.Bytes())
}

// parseNow parses a YYYY-MM-DD run date; empty means the current time
func parseNow(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, services.NewServiceErrorWithDetails(services.CodeInvalidInput,
			"now must be in YYYY-MM-DD format", map[string]interface{}{"now": s})
	}
	return t, nil
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalidQuery(key, v)
	}
	return n, nil
}

func invalidQuery(key, value string) error {
	return services.NewServiceErrorWithDetails(services.CodeInvalidInput,
		"invalid query parameter "+key, map[string]interface{}{key: value})
}

// splitAndTrim splits a string and trims whitespace from each part
func splitAndTrim(s, sep string) []string {
	parts := make([]string, 0)
	for _, part := range strings.Split(s, sep) {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
