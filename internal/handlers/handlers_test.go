package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pricepally/forecasting/internal/analytics/forecast"
	"github.com/pricepally/forecasting/internal/compression"
	"github.com/pricepally/forecasting/internal/models"
	"github.com/pricepally/forecasting/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp := do(t, app, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body models.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
}

func TestNotFound(t *testing.T) {
	resp := do(t, newTestApp(t), httptest.NewRequest("GET", "/v1/nothing", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.Equal(t, "/v1/nothing", body.Error.Path)
}

func TestMethods(t *testing.T) {
	resp := do(t, newTestApp(t), httptest.NewRequest("GET", "/v1/methods", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body models.MethodsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Methods, string(forecast.MethodXGBoostRecursive))
	assert.Contains(t, body.Methods, string(forecast.MethodZeroInactive))
	assert.Contains(t, body.Heuristics, "rolling_mean")
}

func TestForecast_JSON(t *testing.T) {
	payload, err := json.Marshal(models.ForecastRequest{
		Transactions: sampleTransactions(),
		Horizon:      3,
		Now:          testNow,
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/v1/forecasts", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := do(t, newTestApp(t), req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body models.ForecastResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.RunID)
	require.Len(t, body.Forecasts, 6)
	assert.Empty(t, body.Failed)

	// beans sorts before rice and has not sold for weeks
	assert.Equal(t, "beans", body.Forecasts[0].ProductName)
	assert.Equal(t, string(forecast.MethodZeroInactive), body.Forecasts[0].ForecastMethod)
	assert.Equal(t, "2024-06-01", body.Forecasts[0].Date)
	assert.Equal(t, "rice", body.Forecasts[5].ProductName)
	assert.Equal(t, string(forecast.MethodXGBoostRecursive), body.Forecasts[5].ForecastMethod)
	assert.Equal(t, 2, body.Summary.ProductsAfter)
}

func TestForecast_JSONErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed body", `{"transactions":`, fiber.StatusBadRequest, services.CodeInvalidInput},
		{"no transactions", `{"transactions":[]}`, fiber.StatusBadRequest, services.CodeEmptyInput},
		{"bad run date", `{"transactions":[],"now":"25/05/2024"}`, fiber.StatusBadRequest, services.CodeInvalidInput},
		{
			"only other channels",
			`{"transactions":[{"year":2024,"month":1,"week_month":1,"product_name":"rice","product_uom":"kg","sales_type":"b2b","total_qty_invoiced":1,"total_qty_delivered":1}]}`,
			fiber.StatusUnprocessableEntity,
			services.CodeNoGroups,
		},
	}

	app := newTestApp(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/forecasts", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp := do(t, app, req)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body models.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestForecastCSV(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/forecasts/csv?now="+testNow, bytes.NewReader(sampleCSV(t)))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Accept", "text/csv")
	resp := do(t, newTestApp(t), req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.NotEmpty(t, resp.Header.Get("X-Run-ID"))
	assert.Equal(t, "0", resp.Header.Get("X-Failed-Groups"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "date,forecast_qty,"))
	assert.True(t, strings.HasPrefix(lines[1], "2024-06-01,0.0,2024,6,1,beans,kg,b2c,ZERO_INACTIVE"))
}

func TestForecastCSV_SnappyBody(t *testing.T) {
	var buf bytes.Buffer
	w, err := compression.NewWriter(compression.Snappy, &buf)
	require.NoError(t, err)
	_, err = w.Write(sampleCSV(t))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/v1/forecasts/csv?horizon=1&now="+testNow, &buf)
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Content-Encoding", "snappy")
	resp := do(t, newTestApp(t), req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body models.ForecastResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Forecasts, 2)
}

func TestForecastCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		body  string
		code  string
	}{
		{"missing column", "", "year,month\n2024,1\n", services.CodeInvalidInput},
		{"bad horizon", "?horizon=two", "", services.CodeInvalidInput},
		{"bad filter flag", "?filter_attribute_products=maybe", "", services.CodeInvalidInput},
		{"bad run date", "?now=yesterday", "", services.CodeInvalidInput},
		{"channel filter removes everything", "?sales_types=b2b,%20wholesale", "", services.CodeNoGroups},
	}

	app := newTestApp(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == "" {
				body = string(sampleCSV(t))
			}
			req := httptest.NewRequest("POST", "/v1/forecasts/csv"+tt.query, strings.NewReader(body))
			resp := do(t, app, req)

			var errBody models.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
			assert.Equal(t, tt.code, errBody.Error.Code)
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"b2c", "b2b"}, splitAndTrim(" b2c, ,b2b ", ","))
	assert.Empty(t, splitAndTrim("", ","))
}
