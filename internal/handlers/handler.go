package handlers

import (
	"github.com/pricepally/forecasting/internal/logging"
	"github.com/pricepally/forecasting/internal/services"
)

// Handler contains all HTTP handlers
type Handler struct {
	logger          *logging.Logger
	forecastService *services.ForecastService
	version         string
}

// New creates a new handler instance
func New(logger *logging.Logger, forecastService *services.ForecastService, version string) *Handler {
	if version == "" {
		version = "dev"
	}
	return &Handler{
		logger:          logger,
		forecastService: forecastService,
		version:         version,
	}
}
