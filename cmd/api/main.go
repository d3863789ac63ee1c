package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-autograder/internal/config"
	"github.com/noah-isme/gema-autograder/internal/database"
	"github.com/noah-isme/gema-autograder/internal/grading"
	"github.com/noah-isme/gema-autograder/internal/grading/predictor"
	"github.com/noah-isme/gema-autograder/internal/grading/syntax"
	"github.com/noah-isme/gema-autograder/internal/handler"
	"github.com/noah-isme/gema-autograder/internal/middleware"
	"github.com/noah-isme/gema-autograder/internal/repository"
	"github.com/noah-isme/gema-autograder/internal/router"
	"github.com/noah-isme/gema-autograder/internal/service"
	"github.com/noah-isme/gema-autograder/pkg/sandbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured, training lock is process-local")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	runner, closeRunner, err := newRunner(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create sandbox runner: %v", err)
	}
	defer closeRunner()

	sb := sandbox.New(runner, sandbox.Config{
		Compiler:       cfg.Grader.Compiler,
		CompileTimeout: cfg.Grader.CompileTimeout,
		RunTimeout:     cfg.Grader.RunTimeout,
		SyntaxTimeout:  cfg.Grader.SyntaxTimeout,
		WorkspaceRoot:  cfg.Grader.WorkspaceRoot,
		Logger:         logger,
	})

	model, err := predictor.Load(cfg.Grader.ModelPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Grader.ModelPath).Msg("score model unavailable, using heuristic scores")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	activityRepo := repository.NewActivityRepository(db)
	submissionRepo := repository.NewCodeSubmissionRepository(db)

	engine := grading.NewEngine(grading.Config{
		SyntaxGate:      cfg.Grader.SyntaxGate,
		TestConcurrency: cfg.Grader.TestConcurrency,
	}, sb, syntax.NewChecker(sb, logger), model, service.NewPeerCorpus(submissionRepo), logger)

	events := service.NewGradingEventPublisher(redisClient, natsConn, cfg.EventChannel, logger)
	gradingService := service.NewGradingService(activityRepo, submissionRepo, engine, events, validate, logger)
	trainingService := service.NewTrainingService(submissionRepo, redisClient, cfg.Grader.ModelPath, engine, logger)
	activityService := service.NewActivityService(activityRepo, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    4 * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSOrigins,
		AccessLog:    !cfg.IsProduction(),
	})
	router.Register(app, cfg, router.Dependencies{
		ActivityHandler: handler.NewActivityHandler(activityService, logger),
		GradingHandler:  handler.NewGradingHandler(gradingService, trainingService, logger),
		ModelLoaded:     engine.ModelLoaded,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func newRunner(cfg config.Config, logger zerolog.Logger) (sandbox.Runner, func(), error) {
	if cfg.Grader.Sandbox != config.SandboxDocker {
		return sandbox.NewLocalRunner(), func() {}, nil
	}

	runner, err := sandbox.NewDockerRunner(sandbox.DockerConfig{
		Host:          cfg.DockerHost,
		Image:         cfg.Grader.DockerImage,
		MemoryLimitMB: int64(cfg.Grader.MemoryMB),
		CPUShares:     int64(cfg.Grader.CPUShares),
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, err
	}

	return runner, func() {
		if err := runner.Close(); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("failed to close docker client")
		}
	}, nil
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
