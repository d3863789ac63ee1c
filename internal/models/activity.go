package models

import (
	"time"

	"gorm.io/datatypes"
)

// Activity is a C programming exercise with its grading rubric.
type Activity struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Title             string         `gorm:"size:255;not null" json:"title"`
	Description       string         `gorm:"type:text" json:"description"`
	Instructions      string         `gorm:"type:text" json:"instructions"`
	StarterCode       string         `gorm:"type:text" json:"starter_code"`
	DueDate           *time.Time     `json:"due_date"`
	CorrectnessWeight int            `gorm:"not null;default:40" json:"correctness_weight"`
	SyntaxWeight      int            `gorm:"not null;default:30" json:"syntax_weight"`
	LogicWeight       int            `gorm:"not null;default:30" json:"logic_weight"`
	TestCases         datatypes.JSON `gorm:"type:json" json:"test_cases"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// IsPastDue returns true when the activity deadline has already passed.
func (a Activity) IsPastDue(reference time.Time) bool {
	return a.DueDate != nil && reference.After(*a.DueDate)
}
