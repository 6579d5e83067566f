// Package model trains the global demand regressor and evaluates it on
// single feature rows.
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/pricepally/forecasting/internal/analytics"
	"github.com/pricepally/forecasting/internal/analytics/features"
	"github.com/pricepally/forecasting/internal/logging"
)

var (
	// ErrInsufficientTrainingData is returned when no row survives null filtering
	ErrInsufficientTrainingData = errors.New("insufficient training data after dropping rows with missing features")
	// ErrPrediction is returned when a row cannot be evaluated
	ErrPrediction = errors.New("prediction failed")
)

// FeatureNames is the model input order
var FeatureNames = []string{
	"lag_1",
	"lag_4",
	"lag_8",
	"roll_mean_4",
	"roll_mean_8",
	"roll_std_4",
	"month_sin",
	"month_cos",
	"product_encoded",
	"unit_encoded",
	"channel_encoded",
}

// Regressor is a learner mapping feature vectors to the log target
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) (float64, error)
}

// ModelInfo describes a trained predictor
type ModelInfo struct {
	Algorithm    string                 `json:"algorithm"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
	Features     []string               `json:"features"`
	TrainingRows int                    `json:"training_rows"`
	DroppedRows  int                    `json:"dropped_rows"`
	MAPE         float64                `json:"mape,omitempty"` // In-sample, quantity scale
	MAE          float64                `json:"mae,omitempty"`
	RMSE         float64                `json:"rmse,omitempty"`
}

// Predictor is a fitted regressor plus the encoders it was trained with.
// It is read-only after Train and safe for concurrent Predict calls as long
// as the regressor is.
type Predictor struct {
	regressor Regressor
	encoders  Encoders
	info      ModelInfo
}

// Train fits a gradient boosting ensemble on rows
func Train(rows []features.Row, params GBParams, logger *logging.Logger) (*Predictor, error) {
	return TrainWith(rows, NewGradientBoosting(params), logger)
}

// TrainWith fits reg on rows. Encoders are built from every row, then rows
// with a null feature or target are dropped.
func TrainWith(rows []features.Row, reg Regressor, logger *logging.Logger) (*Predictor, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	enc := FitEncoders(rows)
	logger.Debug("Created categorical encoders",
		"products", enc.Product.Len(),
		"units", enc.Unit.Len(),
		"channels", enc.Channel.Len())

	X := make([][]float64, 0, len(rows))
	y := make([]float64, 0, len(rows))
	for _, r := range rows {
		x := vector(r, enc)
		if firstNull(x) >= 0 || features.IsNull(r.Y) {
			continue
		}
		X = append(X, x)
		y = append(y, r.Y)
	}

	dropped := len(rows) - len(X)
	if dropped > 0 {
		logger.Warn("Dropped rows with missing features",
			"dropped", dropped,
			"percent", fmt.Sprintf("%.1f", float64(dropped)/float64(max(1, len(rows)))*100),
			"remaining", len(X))
	}
	if len(X) == 0 {
		logger.Error("No training data remaining after dropping rows with missing features", "rows", len(rows))
		return nil, ErrInsufficientTrainingData
	}

	logger.Debug("Fitting model", "samples", len(X), "features", len(FeatureNames))
	if err := reg.Fit(X, y); err != nil {
		return nil, fmt.Errorf("fit regressor: %w", err)
	}

	p := &Predictor{regressor: reg, encoders: enc}
	p.info = p.describe(X, y, dropped)

	logger.Info("Model trained",
		"algorithm", p.info.Algorithm,
		"training_rows", p.info.TrainingRows,
		"dropped_rows", p.info.DroppedRows,
		"mae", p.info.MAE,
		"rmse", p.info.RMSE,
		"params", p.info.Parameters)

	return p, nil
}

// Predict returns the log-scale prediction for row. A null required feature
// yields an error wrapping ErrPrediction.
func (p *Predictor) Predict(row features.Row) (float64, error) {
	x := vector(row, p.encoders)
	if j := firstNull(x); j >= 0 {
		return 0, fmt.Errorf("%w: feature %s is null", ErrPrediction, FeatureNames[j])
	}
	out, err := p.regressor.Predict(x)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPrediction, err)
	}
	return out, nil
}

// Encoders returns the training-time encoders
func (p *Predictor) Encoders() Encoders {
	return p.encoders
}

// Info returns the training summary
func (p *Predictor) Info() ModelInfo {
	return p.info
}

func (p *Predictor) describe(X [][]float64, y []float64, dropped int) ModelInfo {
	info := ModelInfo{
		Algorithm:    "custom",
		Features:     FeatureNames,
		TrainingRows: len(X),
		DroppedRows:  dropped,
	}
	if named, ok := p.regressor.(interface{ Name() string }); ok {
		info.Algorithm = named.Name()
	}
	if described, ok := p.regressor.(interface{ Params() map[string]interface{} }); ok {
		info.Parameters = described.Params()
	}

	actual := make([]float64, 0, len(X))
	predicted := make([]float64, 0, len(X))
	for i, x := range X {
		v, err := p.regressor.Predict(x)
		if err != nil {
			continue
		}
		actual = append(actual, math.Expm1(y[i]))
		predicted = append(predicted, analytics.ClampNonNegative(math.Expm1(v)))
	}
	info.MAE = analytics.CalculateMAE(actual, predicted)
	info.RMSE = analytics.CalculateRMSE(actual, predicted)
	info.MAPE = analytics.CalculateMAPE(actual, predicted)
	return info
}

// vector lays out row in FeatureNames order
func vector(r features.Row, enc Encoders) []float64 {
	product, unit, channel := enc.Encode(r.GroupKey)
	return []float64{
		r.Lag1,
		r.Lag4,
		r.Lag8,
		r.RollMean4,
		r.RollMean8,
		r.RollStd4,
		r.MonthSin,
		r.MonthCos,
		float64(product),
		float64(unit),
		float64(channel),
	}
}

func firstNull(x []float64) int {
	for j, v := range x {
		if features.IsNull(v) {
			return j
		}
	}
	return -1
}
