package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/noah-isme/gema-autograder/internal/config"
	"github.com/noah-isme/gema-autograder/internal/database"
	"github.com/noah-isme/gema-autograder/internal/grading/predictor"
	"github.com/noah-isme/gema-autograder/internal/repository"
	"github.com/noah-isme/gema-autograder/internal/service"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cmd := &cli.Command{
		Name:  "trainer",
		Usage: "maintain the grader score model",
		Commands: []*cli.Command{
			{
				Name:  "train",
				Usage: "fit a new model from graded submissions and write the bundle",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "model-path", Usage: "bundle output path (defaults to GEMA_GRADER_MODEL_PATH)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return train(ctx, cmd, logger)
				},
			},
			{
				Name:      "inspect",
				Usage:     "print a summary of a model bundle",
				ArgsUsage: "[path]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return inspect(cmd)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Error().Err(err).Msg("trainer failed")
		os.Exit(1)
	}
}

func train(ctx context.Context, cmd *cli.Command, logger zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	modelPath := cfg.Grader.ModelPath
	if override := strings.TrimSpace(cmd.String("model-path")); override != "" {
		modelPath = override
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		if redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL); err != nil {
			return err
		}
		defer redisClient.Close()
	}

	trainer := service.NewTrainingService(repository.NewCodeSubmissionRepository(db), redisClient, modelPath, nil, logger)

	result, err := trainer.Train(ctx)
	if err != nil {
		if errors.Is(err, predictor.ErrInsufficientData) {
			return fmt.Errorf("not enough graded submissions yet: %w", err)
		}
		return err
	}

	logger.Info().
		Int("samples", result.Samples).
		Int("features", result.Features).
		Str("path", result.ModelPath).
		Msg("model bundle written")
	return nil
}

func inspect(cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path = cfg.Grader.ModelPath
	}

	bundle, err := predictor.LoadBundle(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "path:       %s\n", path)
	fmt.Fprintf(os.Stdout, "version:    %d\n", bundle.Version)
	fmt.Fprintf(os.Stdout, "samples:    %d\n", bundle.Samples)
	fmt.Fprintf(os.Stdout, "alpha:      %g\n", bundle.Alpha)
	fmt.Fprintf(os.Stdout, "trained at: %s\n", bundle.TrainedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(os.Stdout, "features:   %s\n", strings.Join(bundle.FeatureNames, ", "))
	return nil
}
