package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-autograder/internal/observability"
)

func TestMetricsHandlerExposesGraderCollectors(t *testing.T) {
	observability.GradingRuns().WithLabelValues("done").Inc()
	observability.TrainingRuns().WithLabelValues("success").Inc()

	app := fiber.New()
	app.Get("/metrics", observability.MetricsHandler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `grading_runs_total{outcome="done"}`)
	require.Contains(t, string(body), `predictor_training_runs_total{outcome="success"}`)
}
