package models

import (
	"time"

	"gorm.io/datatypes"
)

// GradeRecord captures the outcome of one grading run for a submission.
type GradeRecord struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	SubmissionID        uint           `gorm:"not null;index" json:"submission_id"`
	RunID               string         `gorm:"size:64;not null" json:"run_id"`
	State               string         `gorm:"size:32;not null" json:"state"`
	CorrectnessScore    int            `gorm:"not null" json:"correctness_score"`
	SyntaxScore         int            `gorm:"not null" json:"syntax_score"`
	LogicScore          int            `gorm:"not null" json:"logic_score"`
	RequirementScore    int            `gorm:"not null" json:"requirement_score"`
	TotalScore          int            `gorm:"not null" json:"total_score"`
	PenaltyPercent      int            `gorm:"default:0" json:"penalty_percent"`
	SimilarityScore     int            `json:"similarity_score"`
	SimilarityLevel     string         `gorm:"size:32" json:"similarity_level"`
	SimilarityFlagged   bool           `json:"similarity_flagged"`
	SimilarityMessage   string         `gorm:"size:255" json:"similarity_message"`
	MatchedSubmissionID *uint          `json:"matched_submission_id,omitempty"`
	Feedback            datatypes.JSON `gorm:"type:json" json:"feedback"`
	CreatedAt           time.Time      `json:"created_at"`
}
