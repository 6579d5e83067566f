package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pricepally/forecasting/internal/compression"
	"github.com/pricepally/forecasting/internal/config"
	"github.com/pricepally/forecasting/internal/logging"
	"github.com/pricepally/forecasting/internal/models"
	"github.com/pricepally/forecasting/internal/pipeline"
)

// DefaultRowsBatchSize is the number of forecast rows per rows message
const DefaultRowsBatchSize = 500

// EventPublisher publishes the events of a forecast run: the forecast rows in
// batches on <prefix>.rows, then one summary on <prefix>.completed.
type EventPublisher struct {
	publisher  Publisher
	prefix     string
	compressor compression.Compressor
	batchSize  int
	logger     *logging.Logger
}

// NewEventPublisher wraps a publisher. Payloads are compressed with algo.
func NewEventPublisher(publisher Publisher, prefix string, algo compression.Algorithm, logger *logging.Logger) (*EventPublisher, error) {
	if prefix == "" {
		return nil, fmt.Errorf("event subject prefix is required")
	}
	compressor, err := compression.GetCompressor(algo)
	if err != nil {
		return nil, err
	}
	return &EventPublisher{
		publisher:  publisher,
		prefix:     prefix,
		compressor: compressor,
		batchSize:  DefaultRowsBatchSize,
		logger:     logger,
	}, nil
}

// NewEventPublisherFromConfig connects the configured queue. It returns nil
// when the queue is disabled. Payloads use the output compression setting.
func NewEventPublisherFromConfig(cfg *config.Config, logger *logging.Logger) (*EventPublisher, error) {
	if !cfg.Queue.Enabled {
		return nil, nil
	}

	algo, err := compression.ParseAlgorithm(cfg.Output.Compression)
	if err != nil {
		return nil, err
	}

	publisher, err := NewPublisher(cfg.Queue)
	if err != nil {
		return nil, err
	}

	events, err := NewEventPublisher(publisher, cfg.Queue.Subject, algo, logger)
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}
	return events, nil
}

// SetBatchSize changes how many rows go into one rows message
func (e *EventPublisher) SetBatchSize(n int) {
	if n > 0 {
		e.batchSize = n
	}
}

// Subject returns the full subject of an event
func (e *EventPublisher) Subject(name string) string {
	return e.prefix + "." + name
}

// PublishRun publishes the rows and the completed summary of a run.
// Rows go first so a consumer that sees the summary has every row.
func (e *EventPublisher) PublishRun(ctx context.Context, result *pipeline.Result) error {
	start := time.Now()

	messages, err := e.rowMessages(result)
	if err != nil {
		return err
	}

	if len(messages) > 0 {
		published, err := e.publisher.PublishBatch(ctx, messages)
		if err != nil {
			return fmt.Errorf("publish forecast rows: %w", err)
		}
		if published < len(messages) {
			return fmt.Errorf("publish forecast rows: %d of %d batches published", published, len(messages))
		}
	}

	completed, err := e.encode(models.ForecastCompletedEvent{
		RunID:       result.RunID,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
		Summary:     result.Summary,
		Model:       result.Model,
	})
	if err != nil {
		return err
	}
	if err := e.publisher.Publish(ctx, e.Subject(SubjectCompleted), completed); err != nil {
		return fmt.Errorf("publish forecast summary: %w", err)
	}

	e.logger.Info("Forecast events published",
		"run_id", result.RunID,
		"row_batches", len(messages),
		"rows", len(result.Forecasts),
		"compression", e.compressor.Algorithm().String(),
		"latency_ms", time.Since(start).Milliseconds())
	return nil
}

func (e *EventPublisher) rowMessages(result *pipeline.Result) ([]BatchMessage, error) {
	rows := models.NewForecastRows(result.Forecasts)
	subject := e.Subject(SubjectRows)

	var messages []BatchMessage
	for batch, i := 0, 0; i < len(rows); batch, i = batch+1, i+e.batchSize {
		end := min(i+e.batchSize, len(rows))
		data, err := e.encode(models.ForecastRowsEvent{
			RunID: result.RunID,
			Batch: batch,
			Rows:  rows[i:end],
		})
		if err != nil {
			return nil, err
		}
		messages = append(messages, BatchMessage{Subject: subject, Data: data})
	}
	return messages, nil
}

func (e *EventPublisher) encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return e.compressor.Compress(data)
}

// Close closes the underlying publisher
func (e *EventPublisher) Close() error {
	return e.publisher.Close()
}
