package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/pricepally/forecasting/internal/config"
	"github.com/pricepally/forecasting/internal/handlers"
	"github.com/pricepally/forecasting/internal/logging"
	"github.com/pricepally/forecasting/internal/middleware"
	"github.com/pricepally/forecasting/internal/services"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, forecastService *services.ForecastService, cfg *config.Config, version string) *handlers.Handler {
	h := handlers.New(logger, forecastService, version)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Content-Encoding,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	authMiddleware := middleware.APIKeyAuth(logger, cfg.Auth.APIKeys, cfg.Auth.Enabled)
	v1 := app.Group("/v1", authMiddleware)

	v1.Get("/methods", h.Methods)
	v1.Post("/forecasts", h.Forecast)
	v1.Post("/forecasts/csv", h.ForecastCSV)

	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, forecastService *services.ForecastService, cfg *config.Config, version string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Forecaster",
		DisableStartupMessage: !cfg.IsDevelopment(),
		BodyLimit:             cfg.Server.BodyLimit,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, forecastService, cfg, version)

	return app
}
