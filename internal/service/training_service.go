package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-autograder/internal/dto"
	"github.com/noah-isme/gema-autograder/internal/grading/predictor"
	"github.com/noah-isme/gema-autograder/internal/observability"
	"github.com/noah-isme/gema-autograder/internal/repository"
)

// ErrTrainingInProgress indicates another retraining run holds the lock.
var ErrTrainingInProgress = errors.New("model training already in progress")

const (
	trainingLockKey = "grader:model:train:lock"
	trainingLockTTL = 10 * time.Minute
)

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ModelSink receives a freshly trained predictor.
type ModelSink interface {
	SetPredictor(model *predictor.Predictor)
}

// TrainingService retrains the score predictor from stored grades.
type TrainingService interface {
	Train(ctx context.Context) (dto.TrainModelResponse, error)
}

type trainingService struct {
	repo      repository.CodeSubmissionRepository
	redis     *redis.Client
	local     sync.Mutex
	modelPath string
	alpha     float64
	sink      ModelSink
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewTrainingService constructs the retraining workflow. redisClient and sink may be nil;
// without Redis the lock only guards this process.
func NewTrainingService(repo repository.CodeSubmissionRepository, redisClient *redis.Client, modelPath string, sink ModelSink, logger zerolog.Logger) TrainingService {
	return &trainingService{
		repo:      repo,
		redis:     redisClient,
		modelPath: modelPath,
		alpha:     predictor.DefaultAlpha,
		sink:      sink,
		logger:    logger.With().Str("component", "training_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-autograder/internal/service/training"),
		now:       time.Now,
	}
}

func (s *trainingService) Train(ctx context.Context) (dto.TrainModelResponse, error) {
	ctx, span := s.tracer.Start(ctx, "predictor.train")
	defer span.End()

	release, err := s.acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrTrainingInProgress) {
			observability.TrainingRuns().WithLabelValues("locked").Inc()
		}
		span.RecordError(err)
		return dto.TrainModelResponse{}, err
	}
	defer release()

	rows, err := s.repo.ListGradedForTraining(ctx, predictor.MaxTrainingSamples)
	if err != nil {
		observability.TrainingRuns().WithLabelValues("error").Inc()
		span.RecordError(err)
		return dto.TrainModelResponse{}, fmt.Errorf("load training rows: %w", err)
	}

	samples := make([]predictor.Sample, 0, len(rows))
	for _, row := range rows {
		samples = append(samples, predictor.Sample{
			Code:        row.Code,
			Correctness: float64(row.CorrectnessScore),
			Logic:       float64(row.LogicScore),
			Syntax:      float64(row.SyntaxScore),
		})
	}
	span.SetAttributes(attribute.Int("predictor.samples", len(samples)))

	bundle, err := predictor.Train(samples, s.alpha, s.now().UTC())
	if err != nil {
		outcome := "error"
		if errors.Is(err, predictor.ErrInsufficientData) {
			outcome = "insufficient_data"
		}
		observability.TrainingRuns().WithLabelValues(outcome).Inc()
		span.SetStatus(codes.Error, outcome)
		return dto.TrainModelResponse{}, err
	}

	if err := predictor.SaveBundle(s.modelPath, bundle); err != nil {
		observability.TrainingRuns().WithLabelValues("error").Inc()
		span.RecordError(err)
		return dto.TrainModelResponse{}, err
	}

	if s.sink != nil {
		s.sink.SetPredictor(predictor.New(bundle))
	}

	observability.TrainingRuns().WithLabelValues("success").Inc()
	s.logger.Info().Int("samples", bundle.Samples).Str("path", s.modelPath).Msg("score model retrained")

	return dto.TrainModelResponse{
		Samples:   bundle.Samples,
		Features:  len(bundle.FeatureNames),
		TrainedAt: bundle.TrainedAt,
		ModelPath: s.modelPath,
	}, nil
}

func (s *trainingService) acquire(ctx context.Context) (func(), error) {
	if !s.local.TryLock() {
		return nil, ErrTrainingInProgress
	}
	if s.redis == nil {
		return s.local.Unlock, nil
	}

	token := uuid.NewString()
	ok, err := s.redis.SetNX(ctx, trainingLockKey, token, trainingLockTTL).Result()
	if err != nil {
		s.local.Unlock()
		return nil, fmt.Errorf("acquire training lock: %w", err)
	}
	if !ok {
		s.local.Unlock()
		return nil, ErrTrainingInProgress
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseLockScript.Run(releaseCtx, s.redis, []string{trainingLockKey}, token).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release training lock")
		}
		s.local.Unlock()
	}, nil
}
