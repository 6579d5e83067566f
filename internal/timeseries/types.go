// Package timeseries turns raw transaction rows into weekly per-product
// demand series.
package timeseries

import (
	"fmt"
	"strings"
	"time"
)

// Transaction is one raw sales record for a business week
type Transaction struct {
	Year         int     `json:"year"`
	Month        int     `json:"month"`
	WeekMonth    int     `json:"week_month"` // Business week of the month (1-4)
	ProductName  string  `json:"product_name"`
	ProductUOM   string  `json:"product_uom"`
	SalesType    string  `json:"sales_type"`
	QtyInvoiced  float64 `json:"total_qty_invoiced"`
	QtyDelivered float64 `json:"total_qty_delivered"`
}

// GroupKey identifies one forecastable series: product, unit and sales channel
type GroupKey struct {
	ProductName string `json:"product_name"`
	ProductUOM  string `json:"product_uom"`
	SalesType   string `json:"sales_type"`
}

// String returns "product|uom|channel"
func (k GroupKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.ProductName, k.ProductUOM, k.SalesType)
}

// Compare orders keys by product, then unit, then channel
func (k GroupKey) Compare(other GroupKey) int {
	if c := strings.Compare(k.ProductName, other.ProductName); c != 0 {
		return c
	}
	if c := strings.Compare(k.ProductUOM, other.ProductUOM); c != 0 {
		return c
	}
	return strings.Compare(k.SalesType, other.SalesType)
}

// Key returns the group key of the transaction
func (t Transaction) Key() GroupKey {
	return GroupKey{ProductName: t.ProductName, ProductUOM: t.ProductUOM, SalesType: t.SalesType}
}

// WeeklyObservation is the aggregated demand of one group in one business week
type WeeklyObservation struct {
	Year      int
	Month     int
	WeekMonth int
	GroupKey
	Qty  float64
	Date time.Time // First day of the business week
}

// Compare orders observations by group key, then date
func (o WeeklyObservation) Compare(other WeeklyObservation) int {
	if c := o.GroupKey.Compare(other.GroupKey); c != 0 {
		return c
	}
	return o.Date.Compare(other.Date)
}
