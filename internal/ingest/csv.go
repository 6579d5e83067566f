// Package ingest reads transaction tables.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pricepally/forecasting/internal/compression"
	"github.com/pricepally/forecasting/internal/timeseries"
)

// ErrMissingColumn is returned when a required column is absent from the header
var ErrMissingColumn = errors.New("missing required column")

// Required column names
const (
	ColYear         = "year"
	ColMonth        = "month"
	ColWeekMonth    = "week_month"
	ColProductName  = "product_name"
	ColProductUOM   = "product_uom"
	ColSalesType    = "sales_type"
	ColQtyInvoiced  = "total_qty_invoiced"
	ColQtyDelivered = "total_qty_delivered"
)

// RequiredColumns lists every column a transaction table must have
var RequiredColumns = []string{
	ColYear,
	ColMonth,
	ColWeekMonth,
	ColProductName,
	ColProductUOM,
	ColSalesType,
	ColQtyInvoiced,
	ColQtyDelivered,
}

// ReadFile reads a transaction CSV; a .sz suffix is read as a snappy stream
func ReadFile(path string) ([]timeseries.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r, err := compression.NewReader(compression.FromPath(path), f)
	if err != nil {
		return nil, err
	}
	rows, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// Read parses a transaction CSV with a header row. Columns are matched by
// name, case-insensitively, and extra columns are ignored. Empty quantity
// cells read as 0.
func Read(r io.Reader) ([]timeseries.Transaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var rows []timeseries.Transaction
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		p := rowParser{record: record, idx: idx}
		tx := timeseries.Transaction{
			Year:         p.int(ColYear),
			Month:        p.int(ColMonth),
			WeekMonth:    p.int(ColWeekMonth),
			ProductName:  p.str(ColProductName),
			ProductUOM:   p.str(ColProductUOM),
			SalesType:    p.str(ColSalesType),
			QtyInvoiced:  p.float(ColQtyInvoiced),
			QtyDelivered: p.float(ColQtyDelivered),
		}
		if p.err != nil {
			return nil, fmt.Errorf("line %d: %w", line, p.err)
		}
		rows = append(rows, tx)
	}

	return rows, nil
}

// rowParser reads typed cells, keeping the first error
type rowParser struct {
	record []string
	idx    map[string]int
	err    error
}

func (p *rowParser) str(col string) string {
	i := p.idx[col]
	if i >= len(p.record) {
		return ""
	}
	return strings.TrimSpace(p.record[i])
}

func (p *rowParser) int(col string) int {
	s := p.str(col)
	v, err := strconv.Atoi(s)
	if err != nil {
		// Exported frames sometimes write integers as 2024.0
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			p.fail(col, s)
			return 0
		}
		v = int(f)
	}
	return v
}

func (p *rowParser) float(col string) float64 {
	s := p.str(col)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(col, s)
		return 0
	}
	return v
}

func (p *rowParser) fail(col, value string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q", col, value)
	}
}
