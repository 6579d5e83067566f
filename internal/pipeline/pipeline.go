// Package pipeline runs a full forecast: feature building, one global model
// fit and a bounded worker pool that forecasts every product group.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pricepally/forecasting/internal/analytics/features"
	"github.com/pricepally/forecasting/internal/analytics/forecast"
	"github.com/pricepally/forecasting/internal/analytics/model"
	"github.com/pricepally/forecasting/internal/logging"
	"github.com/pricepally/forecasting/internal/timeseries"
)

var (
	// ErrNoGroups is returned when the input has no product groups
	ErrNoGroups = errors.New("no product groups to forecast")
	// ErrNoForecasts is returned when every group failed
	ErrNoForecasts = errors.New("no forecasts generated")
	// ErrTraining wraps model training failures; a run cannot continue without a model
	ErrTraining = errors.New("model training failed")
)

// ReasonEmptyForecast is the failure reason for a group that produced no rows
const ReasonEmptyForecast = "empty forecast returned"

// GroupForecaster forecasts a single group from its feature rows
type GroupForecaster interface {
	Forecast(ctx context.Context, key timeseries.GroupKey, history []features.Row, now time.Time) (forecast.Result, error)
}

// ForecasterFactory builds the per-run group forecaster around the trained model
type ForecasterFactory func(cfg forecast.SelectorConfig, predictor forecast.PointPredictor, logger *logging.Logger) GroupForecaster

// FailedGroup records a group that produced no forecast
type FailedGroup struct {
	timeseries.GroupKey
	Reason string `json:"reason"`
}

// Result is the output of one run
type Result struct {
	RunID     string
	Forecasts []forecast.Row
	Failed    []FailedGroup
	Model     model.ModelInfo
	Summary   Summary
}

// Pipeline orchestrates forecast runs. It keeps no state between runs.
type Pipeline struct {
	config  Config
	logger  *logging.Logger
	factory ForecasterFactory
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithForecasterFactory replaces the default selector-based group forecaster
func WithForecasterFactory(f ForecasterFactory) Option {
	return func(p *Pipeline) {
		p.factory = f
	}
}

// New creates a pipeline
func New(cfg Config, logger *logging.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		config: cfg,
		logger: logger,
		factory: func(cfg forecast.SelectorConfig, predictor forecast.PointPredictor, logger *logging.Logger) GroupForecaster {
			return forecast.NewSelector(cfg, predictor, logger)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// groupSlice is the contiguous range of one group in the sorted feature rows
type groupSlice struct {
	key  timeseries.GroupKey
	rows []features.Row
}

// outcome is the result slot of one group
type outcome struct {
	result forecast.Result
	failed *FailedGroup
}

// Run forecasts every group in obs. On ErrNoForecasts the returned result
// still lists the failed groups.
func (p *Pipeline) Run(ctx context.Context, obs []timeseries.WeeklyObservation) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	ctx = logging.WithRunID(ctx, runID)
	logger := p.logger.WithContext(ctx)

	now := p.config.Now
	if now.IsZero() {
		now = time.Now()
	}

	productsBefore := timeseries.CountGroups(obs)
	if productsBefore == 0 {
		return nil, ErrNoGroups
	}
	logger.Info("Forecast pipeline started", "groups", productsBefore, "observations", len(obs))

	featureStart := time.Now()
	rows := features.Build(obs)
	featureTime := time.Since(featureStart)
	logger.Info("Features created",
		"duration", featureTime.String(),
		"features", model.FeatureNames)

	trainStart := time.Now()
	predictor, err := model.Train(rows, p.config.Model, logger)
	if err != nil {
		logger.Error("Model training failed, cannot continue without a model", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTraining, err)
	}
	trainTime := time.Since(trainStart)
	logger.Info("Model trained successfully", "duration", trainTime.String())

	groups := splitGroups(rows)
	forecaster := p.factory(p.config.Selector, predictor, logger)

	forecastStart := time.Now()
	outcomes := p.forecastAll(ctx, logger, forecaster, groups, now)
	forecastTime := time.Since(forecastStart)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("forecast run cancelled: %w", err)
	}

	result := &Result{RunID: runID, Model: predictor.Info()}
	for _, o := range outcomes {
		if o.failed != nil {
			result.Failed = append(result.Failed, *o.failed)
			continue
		}
		result.Forecasts = append(result.Forecasts, o.result.Rows...)
	}

	result.Summary = summarize(runID, productsBefore, result.Forecasts, result.Failed, timings{
		features:    featureTime,
		training:    trainTime,
		forecasting: forecastTime,
		total:       time.Since(start),
	})
	result.Summary.Log(logger)

	if len(result.Forecasts) == 0 {
		logger.Error("No forecasts generated", "failed_groups", len(result.Failed))
		return result, ErrNoForecasts
	}
	return result, nil
}

// forecastAll runs every group through a bounded worker pool. Outcomes are
// indexed like groups so the merge order is the group-key order.
func (p *Pipeline) forecastAll(ctx context.Context, logger *logging.Logger, forecaster GroupForecaster, groups []groupSlice, now time.Time) []outcome {
	outcomes := make([]outcome, len(groups))
	semaphore := make(chan struct{}, p.config.workers())
	var wg sync.WaitGroup
	var completed atomic.Int64
	start := time.Now()

	logger.Info("Generating forecasts", "groups", len(groups), "workers", p.config.workers())

	for i, g := range groups {
		wg.Add(1)
		go func(i int, g groupSlice) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				outcomes[i] = failure(g.key, fmt.Sprintf("Error: %v", ctx.Err()))
				return
			}

			outcomes[i] = p.forecastGroup(ctx, logger, forecaster, g, now)
			if o := outcomes[i]; o.failed != nil {
				logger.Error("Failed to forecast group", "group", g.key.String(), "reason", o.failed.Reason)
			}

			done := completed.Add(1)
			if every := int64(p.config.ProgressEvery); every > 0 && done%every == 0 {
				elapsed := time.Since(start)
				rate := float64(done) / elapsed.Seconds()
				eta := time.Duration(float64(int64(len(groups))-done) / rate * float64(time.Second))
				logger.Info("Progress",
					"done", done,
					"total", len(groups),
					"percent", fmt.Sprintf("%.1f", float64(done)/float64(len(groups))*100),
					"eta", eta.Round(time.Second).String())
			}
		}(i, g)
	}

	wg.Wait()
	return outcomes
}

// forecastGroup runs one group under its timeout, converting errors, empty
// results and panics into a failure record
func (p *Pipeline) forecastGroup(ctx context.Context, logger *logging.Logger, forecaster GroupForecaster, g groupSlice, now time.Time) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered panic while forecasting group", "group", g.key.String(), "panic", fmt.Sprint(r))
			out = failure(g.key, fmt.Sprintf("Error: panic: %v", r))
		}
	}()

	gctx := ctx
	if p.config.GroupTimeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, p.config.GroupTimeout)
		defer cancel()
	}

	res, err := forecaster.Forecast(gctx, g.key, g.rows, now)
	if err != nil {
		return failure(g.key, fmt.Sprintf("Error: %v", err))
	}
	if len(res.Rows) == 0 {
		return failure(g.key, ReasonEmptyForecast)
	}
	return outcome{result: res}
}

func failure(key timeseries.GroupKey, reason string) outcome {
	return outcome{failed: &FailedGroup{GroupKey: key, Reason: reason}}
}

// splitGroups cuts rows sorted by group key into per-group slices
func splitGroups(rows []features.Row) []groupSlice {
	var groups []groupSlice
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].GroupKey != rows[start].GroupKey {
			groups = append(groups, groupSlice{key: rows[start].GroupKey, rows: rows[start:i:i]})
			start = i
		}
	}
	return groups
}
