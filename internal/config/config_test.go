package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, SandboxLocal, cfg.Grader.Sandbox)
	require.Equal(t, 85, cfg.Grader.SyntaxGate)
	require.Equal(t, 4, cfg.Grader.TestConcurrency)
	require.Equal(t, 5*time.Second, cfg.Grader.RunTimeout)
	require.Equal(t, 10*time.Second, cfg.Grader.CompileTimeout)
	require.Equal(t, time.Minute, cfg.Grader.RateWindow)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GEMA_APP_PORT", ":9090")
	t.Setenv("GEMA_GRADER_SANDBOX", "Docker")
	t.Setenv("GEMA_GRADER_RUN_TIMEOUT", "2s")
	t.Setenv("GEMA_GRADER_SYNTAX_GATE", "70")
	t.Setenv("GEMA_APP_ENV", "Production")
	t.Setenv("GEMA_CORS_ALLOW_ORIGINS", "https://gema.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, "https://gema.example", cfg.CORSOrigins)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, SandboxDocker, cfg.Grader.Sandbox)
	require.Equal(t, 2*time.Second, cfg.Grader.RunTimeout)
	require.Equal(t, 70, cfg.Grader.SyntaxGate)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("GEMA_GRADER_SANDBOX", "vm")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("GEMA_GRADER_SANDBOX", "local")
	t.Setenv("GEMA_GRADER_RUN_TIMEOUT", "soon")
	_, err = Load()
	require.Error(t, err)
}
