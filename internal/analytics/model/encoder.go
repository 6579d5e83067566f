package model

import (
	"github.com/pricepally/forecasting/internal/analytics/features"
	"github.com/pricepally/forecasting/internal/timeseries"
)

// UnknownCode is the code for a category not seen during training
const UnknownCode = -1

// Encoder maps categorical values to integer codes in first-seen order
type Encoder struct {
	codes  map[string]int
	values []string
}

// NewEncoder creates an empty encoder
func NewEncoder() *Encoder {
	return &Encoder{codes: make(map[string]int)}
}

// Observe assigns the next code to v if it has none yet
func (e *Encoder) Observe(v string) {
	if _, ok := e.codes[v]; ok {
		return
	}
	e.codes[v] = len(e.values)
	e.values = append(e.values, v)
}

// Encode returns the code of v, UnknownCode if v was never observed
func (e *Encoder) Encode(v string) int {
	if code, ok := e.codes[v]; ok {
		return code
	}
	return UnknownCode
}

// Len returns the number of known categories
func (e *Encoder) Len() int {
	return len(e.values)
}

// Values returns the known categories in code order
func (e *Encoder) Values() []string {
	out := make([]string, len(e.values))
	copy(out, e.values)
	return out
}

// Encoders holds one encoder per categorical column
type Encoders struct {
	Product *Encoder
	Unit    *Encoder
	Channel *Encoder
}

// FitEncoders builds encoders from the categorical values of rows, in row order
func FitEncoders(rows []features.Row) Encoders {
	enc := Encoders{Product: NewEncoder(), Unit: NewEncoder(), Channel: NewEncoder()}
	for _, r := range rows {
		enc.Product.Observe(r.ProductName)
		enc.Unit.Observe(r.ProductUOM)
		enc.Channel.Observe(r.SalesType)
	}
	return enc
}

// Encode returns the product, unit and channel codes of key
func (e Encoders) Encode(key timeseries.GroupKey) (product, unit, channel int) {
	return e.Product.Encode(key.ProductName), e.Unit.Encode(key.ProductUOM), e.Channel.Encode(key.SalesType)
}
