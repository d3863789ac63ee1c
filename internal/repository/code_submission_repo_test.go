package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-autograder/internal/database"
	"github.com/noah-isme/gema-autograder/internal/models"
)

func setupGraderTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedActivity(t *testing.T, db *gorm.DB, title string) models.Activity {
	t.Helper()
	activity := models.Activity{
		Title:             title,
		Description:       "Print the square of a number",
		CorrectnessWeight: 40,
		SyntaxWeight:      30,
		LogicWeight:       30,
		TestCases:         datatypes.JSON(`[{"input":"5","expected":"25"}]`),
	}
	require.NoError(t, db.Create(&activity).Error)
	return activity
}

func seedSubmission(t *testing.T, repo CodeSubmissionRepository, activityID, studentID uint, code string) models.CodeSubmission {
	t.Helper()
	sub := models.CodeSubmission{
		ActivityID:  activityID,
		StudentID:   studentID,
		Code:        code,
		Status:      models.CodeSubmissionStatusPending,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), &sub))
	return sub
}

func TestCodeSubmissionRepositoryListPeersReturnsLatestPerStudent(t *testing.T) {
	db := setupGraderTestDB(t)
	repo := NewCodeSubmissionRepository(db)
	first := seedActivity(t, db, "Squares")
	other := seedActivity(t, db, "Cubes")

	seedSubmission(t, repo, first.ID, 1, "own v1")
	seedSubmission(t, repo, first.ID, 1, "own v2")
	seedSubmission(t, repo, first.ID, 2, "peer v1")
	latest := seedSubmission(t, repo, first.ID, 2, "peer v2")
	third := seedSubmission(t, repo, first.ID, 3, "third")
	seedSubmission(t, repo, other.ID, 4, "other activity")

	peers, err := repo.ListPeers(context.Background(), first.ID, 1)
	require.NoError(t, err)
	require.Len(t, peers, 2)
	require.Equal(t, latest.ID, peers[0].ID)
	require.Equal(t, "peer v2", peers[0].Code)
	require.Equal(t, third.ID, peers[1].ID)
}

func TestCodeSubmissionRepositoryGetByID(t *testing.T) {
	db := setupGraderTestDB(t)
	repo := NewCodeSubmissionRepository(db)
	activity := seedActivity(t, db, "Squares")
	sub := seedSubmission(t, repo, activity.ID, 1, "int main(void) { return 0; }")

	found, err := repo.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Equal(t, "Squares", found.Activity.Title)

	found.Status = models.CodeSubmissionStatusGraded
	require.NoError(t, repo.Update(context.Background(), &found))
	updated, err := repo.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	require.True(t, updated.HasBeenGraded())

	_, err = repo.GetByID(context.Background(), 999)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestCodeSubmissionRepositoryLatestGrade(t *testing.T) {
	db := setupGraderTestDB(t)
	repo := NewCodeSubmissionRepository(db)
	activity := seedActivity(t, db, "Squares")
	sub := seedSubmission(t, repo, activity.ID, 1, "code")

	_, err := repo.LatestGrade(context.Background(), sub.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.SaveGrade(context.Background(), &models.GradeRecord{SubmissionID: sub.ID, RunID: "a", State: "done", TotalScore: 40}))
	require.NoError(t, repo.SaveGrade(context.Background(), &models.GradeRecord{SubmissionID: sub.ID, RunID: "b", State: "done", TotalScore: 90}))

	grade, err := repo.LatestGrade(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Equal(t, "b", grade.RunID)
	require.Equal(t, 90, grade.TotalScore)
}

func TestCodeSubmissionRepositoryListGradedForTraining(t *testing.T) {
	db := setupGraderTestDB(t)
	repo := NewCodeSubmissionRepository(db)
	activity := seedActivity(t, db, "Squares")

	for i := 0; i < 4; i++ {
		sub := seedSubmission(t, repo, activity.ID, uint(i+1), fmt.Sprintf("code %d", i))
		require.NoError(t, repo.SaveGrade(context.Background(), &models.GradeRecord{
			SubmissionID:     sub.ID,
			RunID:            fmt.Sprintf("run-%d", i),
			State:            "done",
			CorrectnessScore: 10 * i,
			LogicScore:       20,
			SyntaxScore:      100,
		}))
	}
	failed := seedSubmission(t, repo, activity.ID, 9, "failed")
	require.NoError(t, repo.SaveGrade(context.Background(), &models.GradeRecord{SubmissionID: failed.ID, RunID: "f", State: "failed"}))
	late := seedSubmission(t, repo, activity.ID, 10, "late")
	require.NoError(t, repo.SaveGrade(context.Background(), &models.GradeRecord{SubmissionID: late.ID, RunID: "l", State: "done", PenaltyPercent: 20}))

	rows, err := repo.ListGradedForTraining(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, TrainingRow{Code: "code 3", CorrectnessScore: 30, LogicScore: 20, SyntaxScore: 100}, rows[0])
}

func TestActivityRepositoryListWithFilter(t *testing.T) {
	db := setupGraderTestDB(t)
	repo := NewActivityRepository(db)
	seedActivity(t, db, "Loops")
	seedActivity(t, db, "Pointers")
	seedActivity(t, db, "Pointer arithmetic")

	items, total, err := repo.ListWithFilter(context.Background(), ActivityFilter{Search: "pointer", Sort: "title", PageSize: 1, Page: 2})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 1)
	require.Equal(t, "Pointers", items[0].Title)

	got, err := repo.GetByID(context.Background(), items[0].ID)
	require.NoError(t, err)
	require.JSONEq(t, `[{"input":"5","expected":"25"}]`, string(got.TestCases))
}
