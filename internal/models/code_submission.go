package models

import "time"

// CodeSubmissionStatus enumerates possible submission states.
const (
	CodeSubmissionStatusPending = "pending"
	CodeSubmissionStatusGraded  = "graded"
	CodeSubmissionStatusFailed  = "failed"
)

// CodeSubmission is a student's C source for an activity. Grading never
// changes Code.
type CodeSubmission struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	ActivityID  uint          `gorm:"not null;index" json:"activity_id"`
	StudentID   uint          `gorm:"not null;index" json:"student_id"`
	Code        string        `gorm:"type:text;not null" json:"code"`
	Status      string        `gorm:"size:32;not null" json:"status"`
	SubmittedAt time.Time     `gorm:"not null" json:"submitted_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Activity    Activity      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Grades      []GradeRecord `gorm:"foreignKey:SubmissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// HasBeenGraded reports whether at least one grading run finished.
func (s CodeSubmission) HasBeenGraded() bool {
	return s.Status == CodeSubmissionStatusGraded
}
