package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-autograder/internal/config"
	"github.com/noah-isme/gema-autograder/internal/handler"
	"github.com/noah-isme/gema-autograder/internal/middleware"
	"github.com/noah-isme/gema-autograder/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ActivityHandler *handler.ActivityHandler
	GradingHandler  *handler.GradingHandler
	ModelLoaded     func() bool
	// GatewayMiddleware is the upstream auth adapter. Nil means open routes.
	GatewayMiddleware fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.ModelLoaded))
	app.Get("/metrics", observability.MetricsHandler())

	gateway := deps.GatewayMiddleware
	if gateway == nil {
		gateway = func(c *fiber.Ctx) error { return c.Next() }
	}

	window := cfg.Grader.RateWindow
	if window <= 0 {
		window = time.Minute
	}
	gradeLimit := middleware.RateLimit("grader", cfg.Grader.RateLimit, window)

	grader := app.Group(middleware.GraderPathPrefix, gateway)

	activities := grader.Group("/activities")
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(activities)
	}

	if deps.GradingHandler != nil {
		deps.GradingHandler.RegisterActivityRoutes(activities, gradeLimit)
		deps.GradingHandler.RegisterSubmissionRoutes(grader.Group("/submissions"), gradeLimit)
		deps.GradingHandler.RegisterModelRoutes(grader.Group("/model"))
	}
}
