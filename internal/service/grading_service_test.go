package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-autograder/internal/database"
	"github.com/noah-isme/gema-autograder/internal/dto"
	"github.com/noah-isme/gema-autograder/internal/grading"
	"github.com/noah-isme/gema-autograder/internal/grading/similarity"
	"github.com/noah-isme/gema-autograder/internal/models"
	"github.com/noah-isme/gema-autograder/internal/repository"
)

type stubGrader struct {
	result     grading.Result
	similarity similarity.Result
	activities []grading.Activity
	subs       []grading.Submission
}

func (g *stubGrader) Grade(ctx context.Context, activity grading.Activity, sub grading.Submission) grading.Result {
	g.activities = append(g.activities, activity)
	g.subs = append(g.subs, sub)
	return g.result
}

func (g *stubGrader) Similarity(ctx context.Context, activityID, studentID uint, code string) similarity.Result {
	return g.similarity
}

type recordingPublisher struct {
	events []GradingEvent
	err    error
}

func (p *recordingPublisher) PublishGradingCompleted(ctx context.Context, event GradingEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func createActivity(t *testing.T, db *gorm.DB, cases string) models.Activity {
	t.Helper()
	activity := models.Activity{
		Title:             "Squares",
		Description:       "Read a number and print its square",
		CorrectnessWeight: 40,
		SyntaxWeight:      30,
		LogicWeight:       30,
		TestCases:         datatypes.JSON(cases),
	}
	require.NoError(t, db.Create(&activity).Error)
	return activity
}

func doneResult() grading.Result {
	return grading.Result{
		RunID:            "run-1",
		State:            grading.StateDone,
		CorrectnessScore: 100,
		SyntaxScore:      100,
		LogicScore:       80,
		RequirementScore: 100,
		TotalScore:       94,
		TestsPassed:      1,
		TestsTotal:       1,
		Feedback: grading.Feedback{
			Syntax:      grading.Section{Status: grading.StatusPassed, Message: "Code compiles without errors"},
			Correctness: grading.Section{Status: grading.StatusPassed, Message: "Passed 1 of 1 test cases"},
			Semantics:   grading.Section{Status: "Very Good", Message: "Good structure"},
		},
		Similarity: similarity.Result{Score: 100, Level: similarity.LevelNeutral, Message: "No other submissions to compare against"},
	}
}

func newTestGradingService(db *gorm.DB, grader Grader, events EventPublisher) *gradingService {
	svc := NewGradingService(
		repository.NewActivityRepository(db),
		repository.NewCodeSubmissionRepository(db),
		grader,
		events,
		validator.New(),
		zerolog.Nop(),
	).(*gradingService)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func sourceFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("source", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["source"][0]
}

func TestGradingServiceSubmitPersistsGradeAndPublishes(t *testing.T) {
	db := setupServiceDB(t)
	activity := createActivity(t, db, `[{"input":"5","expected":"25"}]`)
	grader := &stubGrader{result: doneResult()}
	events := &recordingPublisher{}
	svc := newTestGradingService(db, grader, events)

	resp, err := svc.Submit(context.Background(), activity.ID, dto.GradeSubmissionRequest{StudentID: 7, Code: "int main(void) { return 0; }"}, nil)
	require.NoError(t, err)
	require.NotZero(t, resp.SubmissionID)
	require.Equal(t, 94, resp.TotalScore)
	require.Equal(t, "done", resp.State)

	require.Len(t, grader.activities, 1)
	require.Equal(t, []grading.TestCase{{Input: "5", Expected: "25"}}, grader.activities[0].TestCases)
	require.Equal(t, grading.Weights{Correctness: 40, Syntax: 30, Logic: 30}, grader.activities[0].Weights)

	var stored models.CodeSubmission
	require.NoError(t, db.First(&stored, resp.SubmissionID).Error)
	require.Equal(t, models.CodeSubmissionStatusGraded, stored.Status)

	var record models.GradeRecord
	require.NoError(t, db.Where("submission_id = ?", resp.SubmissionID).First(&record).Error)
	require.Equal(t, "run-1", record.RunID)
	require.Nil(t, record.MatchedSubmissionID)

	require.Len(t, events.events, 1)
	require.Equal(t, GradingEventType, events.events[0].Type)
	require.Equal(t, uint(7), events.events[0].StudentID)
}

func TestGradingServiceSubmitMarksFailedRuns(t *testing.T) {
	db := setupServiceDB(t)
	activity := createActivity(t, db, `[]`)
	grader := &stubGrader{result: grading.Result{RunID: "run-x", State: grading.StateFailed, FailedAt: grading.StateSyntaxGate}}
	svc := newTestGradingService(db, grader, nil)

	resp, err := svc.Submit(context.Background(), activity.ID, dto.GradeSubmissionRequest{StudentID: 3, Code: "int main"}, nil)
	require.NoError(t, err)

	var stored models.CodeSubmission
	require.NoError(t, db.First(&stored, resp.SubmissionID).Error)
	require.Equal(t, models.CodeSubmissionStatusFailed, stored.Status)
}

func TestGradingServiceSubmitValidation(t *testing.T) {
	db := setupServiceDB(t)
	activity := createActivity(t, db, `[]`)
	svc := newTestGradingService(db, &stubGrader{result: doneResult()}, nil)

	_, err := svc.Submit(context.Background(), activity.ID, dto.GradeSubmissionRequest{StudentID: 1, Code: "   "}, nil)
	require.ErrorIs(t, err, ErrEmptySource)

	_, err = svc.Submit(context.Background(), activity.ID, dto.GradeSubmissionRequest{Code: "int main(void){}"}, nil)
	require.Error(t, err)

	_, err = svc.Submit(context.Background(), 404, dto.GradeSubmissionRequest{StudentID: 1, Code: "int main(void){}"}, nil)
	require.ErrorIs(t, err, ErrActivityNotFound)
}

func TestGradingServiceSubmitFromFile(t *testing.T) {
	db := setupServiceDB(t)
	activity := createActivity(t, db, `[]`)
	grader := &stubGrader{result: doneResult()}
	svc := newTestGradingService(db, grader, nil)

	source := []byte("#include <stdio.h>\nint main(void) {\n    printf(\"hi\\n\");\n    return 0;\n}\n")
	_, err := svc.Submit(context.Background(), activity.ID, dto.GradeSubmissionRequest{StudentID: 2}, sourceFileHeader(t, "main.c", source))
	require.NoError(t, err)
	require.Equal(t, string(source), grader.subs[0].Code)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")
	_, err = svc.Submit(context.Background(), activity.ID, dto.GradeSubmissionRequest{StudentID: 2}, sourceFileHeader(t, "main.c", png))
	require.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestGradingServiceDropsMalformedTestCases(t *testing.T) {
	db := setupServiceDB(t)
	activity := createActivity(t, db, `[{"input":"1","output":"2"},{"input":"x"},42,null]`)
	grader := &stubGrader{result: doneResult()}
	svc := newTestGradingService(db, grader, nil)

	_, err := svc.Preview(context.Background(), activity.ID, dto.PreviewRequest{Code: "int main(void){return 0;}"})
	require.NoError(t, err)
	require.Equal(t, []grading.TestCase{{Input: "1", Expected: "2"}}, grader.activities[0].TestCases)

	var count int64
	require.NoError(t, db.Model(&models.CodeSubmission{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestGradingServiceUnreadableTestCasesGradeWithoutThem(t *testing.T) {
	db := setupServiceDB(t)
	activity := createActivity(t, db, `{"input":"1"}`)
	grader := &stubGrader{result: doneResult()}
	svc := newTestGradingService(db, grader, nil)

	_, err := svc.Preview(context.Background(), activity.ID, dto.PreviewRequest{Code: "int main(void){return 0;}"})
	require.NoError(t, err)
	require.Empty(t, grader.activities[0].TestCases)
}

func TestGradingServiceRegradeAndLatestResult(t *testing.T) {
	db := setupServiceDB(t)
	activity := createActivity(t, db, `[]`)
	grader := &stubGrader{result: doneResult()}
	svc := newTestGradingService(db, grader, nil)

	first, err := svc.Submit(context.Background(), activity.ID, dto.GradeSubmissionRequest{StudentID: 5, Code: "int main(void){return 0;}"}, nil)
	require.NoError(t, err)

	grader.result.RunID = "run-2"
	grader.result.TotalScore = 61
	grader.result.Similarity = similarity.Result{Score: 10, Level: similarity.LevelVeryHigh, Message: "Very high similarity detected (90%)", Flagged: true, MatchedSubmissionID: 99}
	regraded, err := svc.Regrade(context.Background(), first.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, "run-2", regraded.RunID)
	require.Equal(t, activity.ID, grader.activities[1].ID)

	latest, err := svc.LatestResult(context.Background(), first.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, "run-2", latest.RunID)
	require.Equal(t, 61, latest.TotalScore)
	require.True(t, latest.Similarity.Flagged)
	require.Equal(t, "Passed 1 of 1 test cases", latest.Feedback.Correctness.Message)

	var record models.GradeRecord
	require.NoError(t, db.Where("run_id = ?", "run-2").First(&record).Error)
	require.NotNil(t, record.MatchedSubmissionID)
	require.Equal(t, uint(99), *record.MatchedSubmissionID)

	_, err = svc.Regrade(context.Background(), 12345)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestGradingServiceLatestResultWithoutGrade(t *testing.T) {
	db := setupServiceDB(t)
	activity := createActivity(t, db, `[]`)
	sub := models.CodeSubmission{ActivityID: activity.ID, StudentID: 1, Code: "x", Status: models.CodeSubmissionStatusPending, SubmittedAt: time.Now()}
	require.NoError(t, db.Create(&sub).Error)
	svc := newTestGradingService(db, &stubGrader{}, nil)

	_, err := svc.LatestResult(context.Background(), sub.ID)
	require.ErrorIs(t, err, ErrGradeNotFound)
}

func TestGradingServiceSimilarityReport(t *testing.T) {
	db := setupServiceDB(t)
	activity := createActivity(t, db, `[]`)
	sub := models.CodeSubmission{ActivityID: activity.ID, StudentID: 1, Code: "int main(void){}", Status: models.CodeSubmissionStatusGraded, SubmittedAt: time.Now()}
	require.NoError(t, db.Create(&sub).Error)

	grader := &stubGrader{similarity: similarity.Result{Score: 5, Level: similarity.LevelVeryHigh, Flagged: true, MaxRatio: 0.95, MatchedSubmissionID: 3, Compared: 4}}
	svc := newTestGradingService(db, grader, nil)

	report, err := svc.Similarity(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Equal(t, sub.ID, report.SubmissionID)
	require.Equal(t, uint(3), report.MatchedSubmissionID)
	require.Equal(t, 4, report.Compared)
}

func TestPeerCorpusListsOtherStudents(t *testing.T) {
	db := setupServiceDB(t)
	activity := createActivity(t, db, `[]`)
	for i, student := range []uint{1, 2, 2} {
		sub := models.CodeSubmission{ActivityID: activity.ID, StudentID: student, Code: fmt.Sprintf("code %d", i), SubmittedAt: time.Now()}
		require.NoError(t, db.Create(&sub).Error)
	}

	peers, err := NewPeerCorpus(repository.NewCodeSubmissionRepository(db)).ListPeers(context.Background(), activity.ID, 1)
	require.NoError(t, err)
	require.Len(t, peers, 1)
	require.Equal(t, "code 2", peers[0].Code)
	require.Equal(t, uint(3), peers[0].SubmissionID)
}

func TestGradingEventPublisherRedis(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "gema:grading")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewGradingEventPublisher(client, nil, "gema", zerolog.Nop())
	event := NewGradingEvent(grading.Submission{ID: 4, ActivityID: 2, StudentID: 9}, doneResult(), time.Now())
	require.NoError(t, publisher.PublishGradingCompleted(ctx, event))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var decoded GradingEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &decoded))
	require.Equal(t, GradingEventType, decoded.Type)
	require.Equal(t, uint(4), decoded.SubmissionID)
	require.Equal(t, 94, decoded.TotalScore)
	require.NotEmpty(t, decoded.Source)
}

func TestGradingEventPublisherWithoutTransports(t *testing.T) {
	publisher := NewGradingEventPublisher(nil, nil, "", zerolog.Nop())
	require.NoError(t, publisher.PublishGradingCompleted(context.Background(), GradingEvent{Type: GradingEventType}))
}
