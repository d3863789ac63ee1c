package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-autograder/internal/dto"
	"github.com/noah-isme/gema-autograder/internal/grading"
	"github.com/noah-isme/gema-autograder/internal/repository"
)

func TestActivityServiceCreateAndGet(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewActivityService(repository.NewActivityRepository(db), validator.New(), zerolog.Nop())

	created, err := svc.Create(context.Background(), dto.ActivityCreateRequest{
		Title:       "  Sum of array  ",
		Description: "Read n numbers and print their sum using a loop",
		TestCases: []dto.TestCasePayload{
			{Input: "3\n1 2 3", Expected: "6"},
			{Input: "1\n5", Expected: "5"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Sum of array", created.Title)
	require.Equal(t, 2, created.TestCaseCount)
	require.Equal(t, 40, created.CorrectnessWeight)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.TestCaseCount)

	_, err = svc.Get(context.Background(), 999)
	require.ErrorIs(t, err, ErrActivityNotFound)
}

func TestActivityServiceReportsPastDue(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewActivityService(repository.NewActivityRepository(db), validator.New(), zerolog.Nop()).(*activityService)
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return due.Add(-time.Hour) }

	created, err := svc.Create(context.Background(), dto.ActivityCreateRequest{
		Title:       "Factorial",
		Description: "Compute n! recursively",
		DueDate:     &due,
	})
	require.NoError(t, err)
	require.False(t, created.PastDue)

	svc.now = func() time.Time { return due.Add(time.Hour) }
	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, got.PastDue)
}

func TestActivityServiceCreateRejectsBadWeights(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewActivityService(repository.NewActivityRepository(db), validator.New(), zerolog.Nop())

	_, err := svc.Create(context.Background(), dto.ActivityCreateRequest{
		Title:             "Pointers",
		Description:       "Swap two integers",
		CorrectnessWeight: 50,
		SyntaxWeight:      30,
		LogicWeight:       30,
	})
	require.ErrorIs(t, err, ErrInvalidWeights)

	_, err = svc.Create(context.Background(), dto.ActivityCreateRequest{Title: "x"})
	require.Error(t, err)
}

func TestActivityServiceList(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewActivityService(repository.NewActivityRepository(db), validator.New(), zerolog.Nop())

	for _, title := range []string{"Loops", "Pointers", "Pointer arithmetic"} {
		_, err := svc.Create(context.Background(), dto.ActivityCreateRequest{
			Title:       title,
			Description: "Practice " + title,
			TestCases:   []dto.TestCasePayload{{Input: "", Expected: "ok"}},
		})
		require.NoError(t, err)
	}

	resp, err := svc.List(context.Background(), dto.ActivityFilter{Search: "pointer", PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), resp.Total)
	require.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Items, 1)
	require.Equal(t, 1, resp.Items[0].TestCaseCount)

	_, err = svc.List(context.Background(), dto.ActivityFilter{PageSize: 500})
	require.Error(t, err)
}

func TestDefaultWeightsSumToHundred(t *testing.T) {
	w := grading.DefaultWeights()
	require.Equal(t, 100, w.Correctness+w.Syntax+w.Logic)
}
