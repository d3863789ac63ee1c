package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Sandbox backends.
const (
	SandboxLocal  = "local"
	SandboxDocker = "docker"
)

// Config holds runtime configuration values for the grader service.
type Config struct {
	AppName      string
	AppEnv       string
	AppPort      string
	DatabaseURL  string
	RedisURL     string
	NATSURL      string
	EventChannel string
	DockerHost   string
	CORSOrigins  string
	Grader       GraderConfig
}

// GraderConfig carries the grading engine and sandbox settings.
type GraderConfig struct {
	Compiler        string
	Sandbox         string
	DockerImage     string
	MemoryMB        int
	CPUShares       int
	CompileTimeout  time.Duration
	RunTimeout      time.Duration
	SyntaxTimeout   time.Duration
	WorkspaceRoot   string
	ModelPath       string
	TestConcurrency int
	SyntaxGate      int
	RateLimit       int
	RateWindow      time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with app.env=production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Autograder")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.channel", "gema")
	v.SetDefault("grader.compiler", "gcc")
	v.SetDefault("grader.sandbox", SandboxLocal)
	v.SetDefault("grader.docker_image", "gcc:13")
	v.SetDefault("grader.memory_mb", 256)
	v.SetDefault("grader.cpu_shares", 512)
	v.SetDefault("grader.compile_timeout", "10s")
	v.SetDefault("grader.run_timeout", "5s")
	v.SetDefault("grader.syntax_timeout", "10s")
	v.SetDefault("grader.model_path", "models/grader_bundle.json.zst")
	v.SetDefault("grader.test_concurrency", 4)
	v.SetDefault("grader.syntax_gate", 85)
	v.SetDefault("grader.rate_limit", 30)
	v.SetDefault("grader.rate_window", "1m")

	durations := map[string]time.Duration{}
	for _, key := range []string{"grader.compile_timeout", "grader.run_timeout", "grader.syntax_timeout", "grader.rate_window"} {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("%s must be positive", key)
		}
		durations[key] = d
	}

	cfg := Config{
		AppName:      v.GetString("app.name"),
		AppEnv:       v.GetString("app.env"),
		AppPort:      v.GetString("app.port"),
		DatabaseURL:  v.GetString("database.url"),
		RedisURL:     v.GetString("redis.url"),
		NATSURL:      v.GetString("nats.url"),
		EventChannel: v.GetString("events.channel"),
		DockerHost:   v.GetString("docker_host"),
		CORSOrigins:  v.GetString("cors.allow_origins"),
		Grader: GraderConfig{
			Compiler:        v.GetString("grader.compiler"),
			Sandbox:         strings.ToLower(strings.TrimSpace(v.GetString("grader.sandbox"))),
			DockerImage:     v.GetString("grader.docker_image"),
			MemoryMB:        v.GetInt("grader.memory_mb"),
			CPUShares:       v.GetInt("grader.cpu_shares"),
			CompileTimeout:  durations["grader.compile_timeout"],
			RunTimeout:      durations["grader.run_timeout"],
			SyntaxTimeout:   durations["grader.syntax_timeout"],
			WorkspaceRoot:   v.GetString("grader.workspace_root"),
			ModelPath:       v.GetString("grader.model_path"),
			TestConcurrency: v.GetInt("grader.test_concurrency"),
			SyntaxGate:      v.GetInt("grader.syntax_gate"),
			RateLimit:       v.GetInt("grader.rate_limit"),
			RateWindow:      durations["grader.rate_window"],
		},
	}

	if cfg.Grader.Sandbox != SandboxLocal && cfg.Grader.Sandbox != SandboxDocker {
		return Config{}, fmt.Errorf("unknown grader sandbox %q", cfg.Grader.Sandbox)
	}

	if cfg.Grader.SyntaxGate < 0 || cfg.Grader.SyntaxGate > 100 {
		return Config{}, fmt.Errorf("grader syntax gate must be within 0-100")
	}

	if cfg.Grader.TestConcurrency <= 0 {
		cfg.Grader.TestConcurrency = 4
	}

	if cfg.Grader.MemoryMB <= 0 {
		cfg.Grader.MemoryMB = 256
	}

	if cfg.Grader.CPUShares <= 0 {
		cfg.Grader.CPUShares = 512
	}

	return cfg, nil
}
