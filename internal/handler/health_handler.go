package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-autograder/internal/config"
	"github.com/noah-isme/gema-autograder/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Sandbox     string    `json:"sandbox"`
	ModelLoaded bool      `json:"model_loaded"`
}

// HealthCheck reports service health. modelLoaded may be nil.
func HealthCheck(cfg config.Config, modelLoaded func() bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Sandbox:     cfg.Grader.Sandbox,
			ModelLoaded: modelLoaded != nil && modelLoaded(),
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
