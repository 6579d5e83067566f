package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pricepally/forecasting/internal/compression"
	"github.com/pricepally/forecasting/internal/config"
	"github.com/pricepally/forecasting/internal/ingest"
	"github.com/pricepally/forecasting/internal/logging"
	"github.com/pricepally/forecasting/internal/output"
	"github.com/pricepally/forecasting/internal/pipeline"
	"github.com/pricepally/forecasting/internal/queue"
	"github.com/pricepally/forecasting/internal/timeseries"
)

// ForecastService handles forecasting business logic shared by the batch
// tool and the HTTP service
type ForecastService struct {
	logger   *logging.Logger
	config   *config.Config
	events   *queue.EventPublisher
	pipeOpts []pipeline.Option
}

// NewForecastService creates a new ForecastService. events may be nil.
func NewForecastService(logger *logging.Logger, cfg *config.Config, events *queue.EventPublisher, opts ...pipeline.Option) *ForecastService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ForecastService{
		logger:   logger,
		config:   cfg,
		events:   events,
		pipeOpts: opts,
	}
}

// ForecastRequest represents a forecast request. Zero fields fall back to
// the configured values.
type ForecastRequest struct {
	Transactions            []timeseries.Transaction
	Horizon                 int
	SalesChannels           []string
	FilterAttributeProducts *bool
	Now                     time.Time
}

// FileReport describes a run written to disk
type FileReport struct {
	Result       *pipeline.Result
	ForecastPath string
	FailedPath   string
}

// Execute filters, aggregates and forecasts the request's transactions.
// When every group fails the result is returned with a NO_FORECASTS error.
func (s *ForecastService) Execute(ctx context.Context, req *ForecastRequest) (*pipeline.Result, error) {
	startExec := time.Now()
	logger := s.logger.WithContext(ctx)

	if len(req.Transactions) == 0 {
		return nil, NewServiceError(CodeEmptyInput, "no transactions provided")
	}
	if req.Horizon < 0 {
		return nil, NewServiceErrorWithDetails(CodeInvalidInput, "horizon cannot be negative",
			map[string]interface{}{"horizon": req.Horizon})
	}

	channels := s.config.Input.SalesChannels
	if req.SalesChannels != nil {
		channels = req.SalesChannels
	}
	filtered := timeseries.FilterSalesChannels(req.Transactions, channels)
	logger.Info("Filtered sales channels",
		"channels", channels,
		"rows_before", len(req.Transactions),
		"rows_after", len(filtered))

	aggOpts := timeseries.AggregateOptions{
		FilterAttributeProducts: s.config.Input.FilterAttributeProducts,
		AttributeProducts:       s.config.Input.AttributeProducts,
		SkipInvalidDates:        s.config.Input.SkipInvalidDates,
	}
	if req.FilterAttributeProducts != nil {
		aggOpts.FilterAttributeProducts = *req.FilterAttributeProducts
	}

	weekly, stats, err := timeseries.BuildWeekly(filtered, aggOpts, logger)
	if err != nil {
		return nil, ToServiceError(err)
	}
	logger.Info("Aggregated weekly demand",
		"groups", stats.Groups,
		"observations", stats.Observations,
		"attribute_rows", stats.FilteredRows,
		"invalid_rows", stats.InvalidRows)

	runCfg := pipeline.NewConfig(s.config)
	if req.Horizon > 0 {
		runCfg.Selector.Horizon = req.Horizon
	}
	runCfg.Now = req.Now

	result, err := pipeline.New(runCfg, s.logger, s.pipeOpts...).Run(ctx, weekly)
	if err != nil && !errors.Is(err, pipeline.ErrNoForecasts) {
		return nil, ToServiceError(err)
	}

	s.publish(ctx, result)

	if err != nil {
		svcErr := ToServiceError(err)
		svcErr.Details = map[string]interface{}{
			"failed_groups": len(result.Failed),
			"run_id":        result.RunID,
		}
		return result, svcErr
	}

	logger.Info("Forecast completed",
		"run_id", result.RunID,
		"horizon", runCfg.Selector.Horizon,
		"rows", len(result.Forecasts),
		"failed_groups", len(result.Failed),
		"latency_ms", time.Since(startExec).Milliseconds())

	return result, nil
}

// ExecuteFile reads transactions from inputPath, forecasts them and writes
// the forecast table, plus the failed-group table when any group failed.
func (s *ForecastService) ExecuteFile(ctx context.Context, inputPath string, req ForecastRequest) (*FileReport, error) {
	algo, err := compression.ParseAlgorithm(s.config.Output.Compression)
	if err != nil {
		return nil, NewServiceError(CodeInvalidInput, err.Error())
	}

	txs, err := ingest.ReadFile(inputPath)
	if err != nil {
		return nil, ToServiceError(err)
	}
	s.logger.Info("Loaded transactions", "path", inputPath, "rows", len(txs))

	req.Transactions = txs
	result, runErr := s.Execute(ctx, &req)
	if result == nil {
		return nil, runErr
	}

	report := &FileReport{Result: result}
	if len(result.Failed) > 0 {
		report.FailedPath, err = output.WriteFailedFile(s.config.FailedPath(), algo, result.Failed)
		if err != nil {
			return report, s.outputError(err)
		}
		s.logger.Warn("Wrote failed groups", "path", report.FailedPath, "groups", len(result.Failed))
	}
	if runErr != nil {
		return report, runErr
	}

	report.ForecastPath, err = output.WriteForecastFile(s.config.ForecastPath(), algo, result.Forecasts)
	if err != nil {
		return report, s.outputError(err)
	}
	s.logger.Info("Wrote forecasts", "path", report.ForecastPath, "rows", len(result.Forecasts))

	return report, nil
}

func (s *ForecastService) publish(ctx context.Context, result *pipeline.Result) {
	if s.events == nil || result == nil {
		return
	}
	if err := s.events.PublishRun(ctx, result); err != nil {
		s.logger.Warn("Failed to publish forecast events", "run_id", result.RunID, "error", err)
	}
}

func (s *ForecastService) outputError(err error) *ServiceError {
	return &ServiceError{
		Code:    CodeOutputFailed,
		Message: fmt.Sprintf("write output: %v", err),
		Err:     err,
	}
}
