package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-autograder/internal/grading/predictor"
	"github.com/noah-isme/gema-autograder/internal/models"
	"github.com/noah-isme/gema-autograder/internal/repository"
)

type stubTrainingRepo struct {
	repository.CodeSubmissionRepository
	rows  []repository.TrainingRow
	limit int
}

func (s *stubTrainingRepo) ListGradedForTraining(ctx context.Context, limit int) ([]repository.TrainingRow, error) {
	s.limit = limit
	return s.rows, nil
}

func (s *stubTrainingRepo) ListPeers(ctx context.Context, activityID, excludeStudentID uint) ([]models.CodeSubmission, error) {
	return nil, nil
}

type recordingSink struct {
	model *predictor.Predictor
}

func (s *recordingSink) SetPredictor(model *predictor.Predictor) {
	s.model = model
}

func trainingRows(n int) []repository.TrainingRow {
	rows := make([]repository.TrainingRow, 0, n)
	for i := 0; i < n; i++ {
		loops := i % 5
		var body string
		for j := 0; j < loops; j++ {
			body += fmt.Sprintf("    for (int k%d = 0; k%d < n; k%d++) { total += k%d; }\n", j, j, j, j)
		}
		code := fmt.Sprintf("#include <stdio.h>\nint main(void) {\n    int n = %d, total = 0;\n%s    printf(\"%%d\\n\", total);\n    return 0;\n}\n", i, body)
		rows = append(rows, repository.TrainingRow{
			Code:             code,
			CorrectnessScore: 50 + loops*10,
			LogicScore:       40 + loops*12,
			SyntaxScore:      100 - (i % 3),
		})
	}
	return rows
}

func TestTrainingServiceTrainsAndSwapsModel(t *testing.T) {
	repo := &stubTrainingRepo{rows: trainingRows(60)}
	sink := &recordingSink{}
	path := filepath.Join(t.TempDir(), "model", "bundle.zst")
	svc := NewTrainingService(repo, nil, path, sink, zerolog.Nop()).(*trainingService)
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	resp, err := svc.Train(context.Background())
	require.NoError(t, err)
	require.Equal(t, 60, resp.Samples)
	require.Equal(t, predictor.NumFeatures, resp.Features)
	require.True(t, resp.TrainedAt.Equal(now))
	require.Equal(t, predictor.MaxTrainingSamples, repo.limit)

	require.True(t, sink.model.Available())
	loaded, err := predictor.Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Available())
}

func TestTrainingServiceInsufficientData(t *testing.T) {
	repo := &stubTrainingRepo{rows: trainingRows(10)}
	sink := &recordingSink{}
	svc := NewTrainingService(repo, nil, filepath.Join(t.TempDir(), "bundle.zst"), sink, zerolog.Nop())

	_, err := svc.Train(context.Background())
	require.ErrorIs(t, err, predictor.ErrInsufficientData)
	require.Nil(t, sink.model)
}

func TestTrainingServiceRejectsConcurrentRuns(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	repo := &stubTrainingRepo{rows: trainingRows(60)}
	svc := NewTrainingService(repo, client, filepath.Join(t.TempDir(), "bundle.zst"), nil, zerolog.Nop())

	require.NoError(t, server.Set(trainingLockKey, "another-node"))
	_, err = svc.Train(context.Background())
	require.ErrorIs(t, err, ErrTrainingInProgress)

	server.Del(trainingLockKey)
	_, err = svc.Train(context.Background())
	require.NoError(t, err)
	require.False(t, server.Exists(trainingLockKey))
}

func TestTrainingServiceLeavesForeignLockAlone(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	svc := NewTrainingService(&stubTrainingRepo{}, client, filepath.Join(t.TempDir(), "bundle.zst"), nil, zerolog.Nop()).(*trainingService)

	release, err := svc.acquire(context.Background())
	require.NoError(t, err)

	_, err = svc.acquire(context.Background())
	require.ErrorIs(t, err, ErrTrainingInProgress)

	// Lock expired and another node took it over.
	require.NoError(t, server.Set(trainingLockKey, "someone-else"))
	release()

	value, err := server.Get(trainingLockKey)
	require.NoError(t, err)
	require.Equal(t, "someone-else", value)
}
