// Package services provides the business logic layer between the delivery
// surfaces (HTTP handlers, batch tool) and the forecast pipeline.
package services

import (
	"context"
	"errors"

	"github.com/pricepally/forecasting/internal/calendar"
	"github.com/pricepally/forecasting/internal/ingest"
	"github.com/pricepally/forecasting/internal/pipeline"
)

// Service error codes
const (
	CodeInvalidInput   = "INVALID_INPUT"
	CodeEmptyInput     = "EMPTY_INPUT"
	CodeNoGroups       = "NO_GROUPS"
	CodeNoForecasts    = "NO_FORECASTS"
	CodeTrainingFailed = "TRAINING_FAILED"
	CodeCancelled      = "CANCELLED"
	CodeForecastFailed = "FORECAST_FAILED"
	CodeOutputFailed   = "OUTPUT_FAILED"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// ToServiceError maps pipeline and input errors to a ServiceError.
// A ServiceError is returned as is; nil stays nil.
func ToServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	code := CodeForecastFailed
	switch {
	case errors.Is(err, ingest.ErrMissingColumn),
		errors.Is(err, calendar.ErrInvalidWeek),
		errors.Is(err, calendar.ErrInvalidDate):
		code = CodeInvalidInput
	case errors.Is(err, pipeline.ErrNoGroups):
		code = CodeNoGroups
	case errors.Is(err, pipeline.ErrNoForecasts):
		code = CodeNoForecasts
	case errors.Is(err, pipeline.ErrTraining):
		code = CodeTrainingFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = CodeCancelled
	}

	return &ServiceError{Code: code, Message: err.Error(), Err: err}
}
