package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-autograder/internal/observability"
)

// GraderPathPrefix scopes request metrics to the grading API.
const GraderPathPrefix = "/api/v2/grader"

// Observability records Prometheus metrics and a structured log line for grader endpoints.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		if strings.HasPrefix(c.Path(), GraderPathPrefix) {
			route := routeTemplate(c)
			method := c.Method()
			status := c.Response().StatusCode()
			statusLabel := fmt.Sprintf("%d", status)

			observability.GraderRequests().WithLabelValues(method, route, statusLabel).Inc()
			observability.GraderLatency().WithLabelValues(method, route).Observe(duration.Seconds())
			if status >= fiber.StatusBadRequest {
				observability.GraderErrors().WithLabelValues(method, route, statusLabel).Inc()
			}

			latencyMs := float64(duration) / float64(time.Millisecond)
			bucket := latencyBucket(duration)
			fields := logger.With().
				Str("correlation_id", GetCorrelationID(c)).
				Str("route", route)
			if id := gradingTarget(route, c); id != "" {
				fields = fields.Str(targetLabel(route), id)
			}
			requestLogger := fields.
				Str("method", method).
				Int("status", status).
				Float64("latency_ms", latencyMs).
				Str("latency_bucket", bucket).
				Logger()

			switch {
			case status >= fiber.StatusInternalServerError:
				requestLogger.Error().Msg("grader request failed")
			case status >= fiber.StatusBadRequest:
				requestLogger.Warn().Msg("grader request rejected")
			default:
				requestLogger.Info().Msg("grader request completed")
			}
		}

		return err
	}
}

// gradingTarget is the :id parameter of activity and submission routes.
func gradingTarget(route string, c *fiber.Ctx) string {
	if !strings.Contains(route, "/:id") {
		return ""
	}
	return c.Params("id")
}

func targetLabel(route string) string {
	if strings.Contains(route, "/submissions/:id") {
		return "submission_id"
	}
	return "activity_id"
}

func routeTemplate(c *fiber.Ctx) string {
	if c.Route() != nil && c.Route().Path != "" {
		return c.Route().Path
	}
	return c.Path()
}

func latencyBucket(duration time.Duration) string {
	switch {
	case duration <= 25*time.Millisecond:
		return "<=25ms"
	case duration <= 50*time.Millisecond:
		return "<=50ms"
	case duration <= 100*time.Millisecond:
		return "<=100ms"
	case duration <= 250*time.Millisecond:
		return "<=250ms"
	case duration <= 500*time.Millisecond:
		return "<=500ms"
	default:
		return ">500ms"
	}
}
