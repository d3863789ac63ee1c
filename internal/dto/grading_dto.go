package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/gema-autograder/internal/grading"
	"github.com/noah-isme/gema-autograder/internal/grading/similarity"
	"github.com/noah-isme/gema-autograder/internal/models"
)

// MaxSourceBytes bounds the size of a submitted C source.
const MaxSourceBytes = 200000

// GradeSubmissionRequest is the payload for submitting code to an activity.
// Code may be empty when the source arrives as a multipart file.
type GradeSubmissionRequest struct {
	StudentID uint   `form:"student_id" json:"student_id" validate:"required,gt=0"`
	Code      string `form:"code" json:"code" validate:"omitempty,max=200000"`
}

// PreviewRequest grades code without storing it.
type PreviewRequest struct {
	StudentID uint   `json:"student_id" validate:"omitempty,gt=0"`
	Code      string `json:"code" validate:"required,min=1,max=200000"`
}

// SimilarityResponse is the student-facing similarity summary.
type SimilarityResponse struct {
	Score   int    `json:"score"`
	Level   string `json:"level"`
	Message string `json:"message"`
	Flagged bool   `json:"flagged"`
}

// SimilarityReportResponse adds the matched peer for instructors.
type SimilarityReportResponse struct {
	SubmissionID        uint    `json:"submission_id"`
	Score               int     `json:"score"`
	Level               string  `json:"level"`
	Message             string  `json:"message"`
	Flagged             bool    `json:"flagged"`
	MaxRatio            float64 `json:"max_ratio"`
	MatchedSubmissionID uint    `json:"matched_submission_id,omitempty"`
	Compared            int     `json:"compared"`
}

// GradeResponse describes the outcome of a grading run.
type GradeResponse struct {
	SubmissionID     uint               `json:"submission_id,omitempty"`
	ActivityID       uint               `json:"activity_id"`
	StudentID        uint               `json:"student_id,omitempty"`
	RunID            string             `json:"run_id"`
	State            string             `json:"state"`
	CorrectnessScore int                `json:"correctness_score"`
	SyntaxScore      int                `json:"syntax_score"`
	LogicScore       int                `json:"logic_score"`
	RequirementScore int                `json:"requirement_score"`
	TotalScore       int                `json:"total_score"`
	PenaltyPercent   int                `json:"penalty_percent"`
	Feedback         grading.Feedback   `json:"feedback"`
	Similarity       SimilarityResponse `json:"similarity"`
	GradedAt         time.Time          `json:"graded_at"`
}

// TrainModelResponse summarises a retraining run.
type TrainModelResponse struct {
	Samples   int       `json:"samples"`
	Features  int       `json:"features"`
	TrainedAt time.Time `json:"trained_at"`
	ModelPath string    `json:"model_path"`
}

// NewSimilarityResponse hides instructor-only fields.
func NewSimilarityResponse(res similarity.Result) SimilarityResponse {
	return SimilarityResponse{
		Score:   res.Score,
		Level:   string(res.Level),
		Message: res.Message,
		Flagged: res.Flagged,
	}
}

// NewSimilarityReportResponse converts a detector result for a stored submission.
func NewSimilarityReportResponse(submissionID uint, res similarity.Result) SimilarityReportResponse {
	return SimilarityReportResponse{
		SubmissionID:        submissionID,
		Score:               res.Score,
		Level:               string(res.Level),
		Message:             res.Message,
		Flagged:             res.Flagged,
		MaxRatio:            res.MaxRatio,
		MatchedSubmissionID: res.MatchedSubmissionID,
		Compared:            res.Compared,
	}
}

// NewGradeResponse builds a response from a fresh grading result.
func NewGradeResponse(sub grading.Submission, result grading.Result, gradedAt time.Time) GradeResponse {
	return GradeResponse{
		SubmissionID:     sub.ID,
		ActivityID:       sub.ActivityID,
		StudentID:        sub.StudentID,
		RunID:            result.RunID,
		State:            string(result.State),
		CorrectnessScore: result.CorrectnessScore,
		SyntaxScore:      result.SyntaxScore,
		LogicScore:       result.LogicScore,
		RequirementScore: result.RequirementScore,
		TotalScore:       result.TotalScore,
		PenaltyPercent:   result.PenaltyPercent,
		Feedback:         result.Feedback,
		Similarity:       NewSimilarityResponse(result.Similarity),
		GradedAt:         gradedAt,
	}
}

// NewGradeResponseFromRecord converts a stored grade record into a DTO.
func NewGradeResponseFromRecord(submission models.CodeSubmission, record models.GradeRecord) (GradeResponse, error) {
	response := GradeResponse{
		SubmissionID:     record.SubmissionID,
		ActivityID:       submission.ActivityID,
		StudentID:        submission.StudentID,
		RunID:            record.RunID,
		State:            record.State,
		CorrectnessScore: record.CorrectnessScore,
		SyntaxScore:      record.SyntaxScore,
		LogicScore:       record.LogicScore,
		RequirementScore: record.RequirementScore,
		TotalScore:       record.TotalScore,
		PenaltyPercent:   record.PenaltyPercent,
		Similarity: SimilarityResponse{
			Score:   record.SimilarityScore,
			Level:   record.SimilarityLevel,
			Message: record.SimilarityMessage,
			Flagged: record.SimilarityFlagged,
		},
		GradedAt: record.CreatedAt,
	}

	if len(record.Feedback) > 0 {
		if err := json.Unmarshal(record.Feedback, &response.Feedback); err != nil {
			return GradeResponse{}, err
		}
	}

	return response, nil
}
