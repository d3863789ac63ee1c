package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-autograder/internal/dto"
	"github.com/noah-isme/gema-autograder/internal/grading"
	"github.com/noah-isme/gema-autograder/internal/grading/similarity"
	"github.com/noah-isme/gema-autograder/internal/models"
	"github.com/noah-isme/gema-autograder/internal/repository"
)

var (
	// ErrActivityNotFound indicates the activity cannot be located.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrSubmissionNotFound indicates the submission cannot be located.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrGradeNotFound indicates the submission has not been graded yet.
	ErrGradeNotFound = errors.New("grade not found")
	// ErrEmptySource indicates neither code nor a source file was supplied.
	ErrEmptySource = errors.New("source code is required")
	// ErrUnsupportedSource indicates the uploaded file is not plain text.
	ErrUnsupportedSource = errors.New("unsupported source file")
)

// Grader is the grading engine as seen by the service.
type Grader interface {
	Grade(ctx context.Context, activity grading.Activity, sub grading.Submission) grading.Result
	Similarity(ctx context.Context, activityID, studentID uint, code string) similarity.Result
}

// GradingService exposes submission grading workflows.
type GradingService interface {
	Submit(ctx context.Context, activityID uint, payload dto.GradeSubmissionRequest, file *multipart.FileHeader) (dto.GradeResponse, error)
	Preview(ctx context.Context, activityID uint, payload dto.PreviewRequest) (dto.GradeResponse, error)
	Regrade(ctx context.Context, submissionID uint) (dto.GradeResponse, error)
	LatestResult(ctx context.Context, submissionID uint) (dto.GradeResponse, error)
	Similarity(ctx context.Context, submissionID uint) (dto.SimilarityReportResponse, error)
}

type gradingService struct {
	activities  repository.ActivityRepository
	submissions repository.CodeSubmissionRepository
	grader      Grader
	events      EventPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewGradingService constructs a grading service. events may be nil.
func NewGradingService(activityRepo repository.ActivityRepository, submissionRepo repository.CodeSubmissionRepository, grader Grader, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) GradingService {
	return &gradingService{
		activities:  activityRepo,
		submissions: submissionRepo,
		grader:      grader,
		events:      events,
		validator:   validate,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-autograder/internal/service/grading"),
		now:         time.Now,
	}
}

func (s *gradingService) Submit(ctx context.Context, activityID uint, payload dto.GradeSubmissionRequest, file *multipart.FileHeader) (dto.GradeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeResponse{}, err
	}

	code := payload.Code
	if file != nil {
		fromFile, err := readSourceFile(file)
		if err != nil {
			return dto.GradeResponse{}, err
		}
		code = fromFile
	}
	if strings.TrimSpace(code) == "" {
		return dto.GradeResponse{}, ErrEmptySource
	}

	ctx, span := s.tracer.Start(ctx, "grading.submit", trace.WithAttributes(
		attribute.Int64("grading.activity_id", int64(activityID)),
		attribute.Int64("grading.student_id", int64(payload.StudentID)),
	))
	defer span.End()

	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	submission := models.CodeSubmission{
		ActivityID:  activity.ID,
		StudentID:   payload.StudentID,
		Code:        code,
		Status:      models.CodeSubmissionStatusPending,
		SubmittedAt: s.now(),
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.GradeResponse{}, fmt.Errorf("create submission: %w", err)
	}

	return s.gradeAndStore(ctx, activity, submission)
}

func (s *gradingService) Preview(ctx context.Context, activityID uint, payload dto.PreviewRequest) (dto.GradeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "grading.preview", trace.WithAttributes(
		attribute.Int64("grading.activity_id", int64(activityID)),
	))
	defer span.End()

	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	sub := grading.Submission{
		StudentID:   payload.StudentID,
		ActivityID:  activity.ID,
		Code:        payload.Code,
		SubmittedAt: s.now(),
	}
	result := s.grader.Grade(ctx, s.toGradingActivity(activity), sub)
	return dto.NewGradeResponse(sub, result, s.now()), nil
}

func (s *gradingService) Regrade(ctx context.Context, submissionID uint) (dto.GradeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.regrade", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
	))
	defer span.End()

	submission, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	return s.gradeAndStore(ctx, submission.Activity, submission)
}

func (s *gradingService) LatestResult(ctx context.Context, submissionID uint) (dto.GradeResponse, error) {
	submission, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	record, err := s.submissions.LatestGrade(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrGradeNotFound
		}
		return dto.GradeResponse{}, err
	}

	return dto.NewGradeResponseFromRecord(submission, record)
}

func (s *gradingService) Similarity(ctx context.Context, submissionID uint) (dto.SimilarityReportResponse, error) {
	submission, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		return dto.SimilarityReportResponse{}, err
	}

	res := s.grader.Similarity(ctx, submission.ActivityID, submission.StudentID, submission.Code)
	return dto.NewSimilarityReportResponse(submission.ID, res), nil
}

func (s *gradingService) gradeAndStore(ctx context.Context, activity models.Activity, submission models.CodeSubmission) (dto.GradeResponse, error) {
	sub := grading.Submission{
		ID:          submission.ID,
		StudentID:   submission.StudentID,
		ActivityID:  submission.ActivityID,
		Code:        submission.Code,
		SubmittedAt: submission.SubmittedAt,
	}
	result := s.grader.Grade(ctx, s.toGradingActivity(activity), sub)

	feedback, err := json.Marshal(result.Feedback)
	if err != nil {
		return dto.GradeResponse{}, fmt.Errorf("encode feedback: %w", err)
	}

	record := models.GradeRecord{
		SubmissionID:      submission.ID,
		RunID:             result.RunID,
		State:             string(result.State),
		CorrectnessScore:  result.CorrectnessScore,
		SyntaxScore:       result.SyntaxScore,
		LogicScore:        result.LogicScore,
		RequirementScore:  result.RequirementScore,
		TotalScore:        result.TotalScore,
		PenaltyPercent:    result.PenaltyPercent,
		SimilarityScore:   result.Similarity.Score,
		SimilarityLevel:   string(result.Similarity.Level),
		SimilarityFlagged: result.Similarity.Flagged,
		SimilarityMessage: truncateText(result.Similarity.Message, 255),
		Feedback:          datatypes.JSON(feedback),
	}
	if result.Similarity.MatchedSubmissionID != 0 {
		matched := result.Similarity.MatchedSubmissionID
		record.MatchedSubmissionID = &matched
	}
	if err := s.submissions.SaveGrade(ctx, &record); err != nil {
		return dto.GradeResponse{}, fmt.Errorf("save grade: %w", err)
	}

	submission.Status = models.CodeSubmissionStatusGraded
	if result.State == grading.StateFailed {
		submission.Status = models.CodeSubmissionStatusFailed
	}
	if err := s.submissions.Update(ctx, &submission); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to update submission status")
	}

	if s.events != nil {
		event := NewGradingEvent(sub, result, record.CreatedAt)
		if err := s.events.PublishGradingCompleted(ctx, event); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to publish grading event")
		}
	}

	return dto.NewGradeResponse(sub, result, record.CreatedAt), nil
}

func (s *gradingService) loadActivity(ctx context.Context, id uint) (models.Activity, error) {
	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Activity{}, ErrActivityNotFound
		}
		return models.Activity{}, err
	}
	return activity, nil
}

func (s *gradingService) loadSubmission(ctx context.Context, id uint) (models.CodeSubmission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CodeSubmission{}, ErrSubmissionNotFound
		}
		return models.CodeSubmission{}, err
	}
	return submission, nil
}

func (s *gradingService) toGradingActivity(activity models.Activity) grading.Activity {
	cases, dropped, err := grading.ParseTestCases(activity.TestCases)
	if err != nil {
		s.logger.Warn().Err(err).Uint("activity_id", activity.ID).Msg("stored test cases are unreadable, grading without them")
		cases = nil
	}
	if dropped > 0 {
		s.logger.Warn().Int("dropped", dropped).Uint("activity_id", activity.ID).Msg("dropped malformed test cases")
	}

	return grading.Activity{
		ID:           activity.ID,
		Title:        activity.Title,
		Description:  activity.Description,
		Instructions: activity.Instructions,
		StarterCode:  activity.StarterCode,
		DueDate:      activity.DueDate,
		Weights: grading.Weights{
			Correctness: activity.CorrectnessWeight,
			Syntax:      activity.SyntaxWeight,
			Logic:       activity.LogicWeight,
		},
		TestCases: cases,
	}
}

func readSourceFile(file *multipart.FileHeader) (string, error) {
	if file.Size > dto.MaxSourceBytes {
		return "", fmt.Errorf("%w: file exceeds %d bytes", ErrUnsupportedSource, dto.MaxSourceBytes)
	}

	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open source file: %w", err)
	}
	defer reader.Close()

	content, err := io.ReadAll(io.LimitReader(reader, dto.MaxSourceBytes+1))
	if err != nil {
		return "", fmt.Errorf("read source file: %w", err)
	}
	if len(content) > dto.MaxSourceBytes {
		return "", fmt.Errorf("%w: file exceeds %d bytes", ErrUnsupportedSource, dto.MaxSourceBytes)
	}

	detected := mimetype.Detect(content)
	for mime := detected; mime != nil; mime = mime.Parent() {
		if mime.Is("text/plain") {
			return string(content), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, detected.String())
}

func truncateText(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
