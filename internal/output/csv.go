// Package output writes forecast and failed-group tables.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pricepally/forecasting/internal/analytics/forecast"
	"github.com/pricepally/forecasting/internal/compression"
	"github.com/pricepally/forecasting/internal/pipeline"
)

// ForecastHeader is the column order of the forecast table
var ForecastHeader = []string{
	"date",
	"forecast_qty",
	"year",
	"month",
	"week_month",
	"product_name",
	"product_uom",
	"sales_type",
	"forecast_method",
}

// FailedHeader is the column order of the failed-group table
var FailedHeader = []string{
	"product_name",
	"product_uom",
	"sales_type",
	"reason",
}

// FormatQty renders a quantity with one decimal
func FormatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// WriteForecasts writes the forecast table with a header row
func WriteForecasts(w io.Writer, rows []forecast.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ForecastHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Date.Format(time.DateOnly),
			FormatQty(r.Qty),
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Month),
			strconv.Itoa(r.WeekMonth),
			r.ProductName,
			r.ProductUOM,
			r.SalesType,
			string(r.Method),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFailed writes the failed-group table with a header row
func WriteFailed(w io.Writer, failed []pipeline.FailedGroup) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FailedHeader); err != nil {
		return err
	}
	for _, f := range failed {
		if err := cw.Write([]string{f.ProductName, f.ProductUOM, f.SalesType, f.Reason}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteForecastFile writes rows to path, compressed with algo. The returned
// path carries the algorithm's extension.
func WriteForecastFile(path string, algo compression.Algorithm, rows []forecast.Row) (string, error) {
	return writeFile(path, algo, func(w io.Writer) error {
		return WriteForecasts(w, rows)
	})
}

// WriteFailedFile writes failed groups to path, compressed with algo
func WriteFailedFile(path string, algo compression.Algorithm, failed []pipeline.FailedGroup) (string, error) {
	return writeFile(path, algo, func(w io.Writer) error {
		return WriteFailed(w, failed)
	})
}

func writeFile(path string, algo compression.Algorithm, write func(io.Writer) error) (string, error) {
	path += algo.Extension()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w, err := compression.NewWriter(algo, f)
	if err != nil {
		return "", err
	}
	if err := write(w); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
