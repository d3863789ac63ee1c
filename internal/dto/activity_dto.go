package dto

import (
	"time"

	"github.com/noah-isme/gema-autograder/internal/models"
)

// ActivityFilter describes query parameters for listing activities.
type ActivityFilter struct {
	Search   string `query:"search" validate:"omitempty,max=100"`
	Sort     string `query:"sort" validate:"omitempty,max=32"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// ActivityResponse is the serialized representation returned to API clients.
// Test case contents stay hidden; only their count is exposed.
type ActivityResponse struct {
	ID                uint       `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Instructions      string     `json:"instructions"`
	StarterCode       string     `json:"starter_code"`
	DueDate           *time.Time `json:"due_date"`
	CorrectnessWeight int        `json:"correctness_weight"`
	SyntaxWeight      int        `json:"syntax_weight"`
	LogicWeight       int        `json:"logic_weight"`
	TestCaseCount     int        `json:"test_case_count"`
	PastDue           bool       `json:"past_due"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ActivityListResponse wraps a page of activities.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

// TestCasePayload is one input/expected-output pair supplied by an instructor.
type TestCasePayload struct {
	Input    string `json:"input" validate:"max=10000"`
	Expected string `json:"expected" validate:"max=10000"`
}

// ActivityCreateRequest captures an instructor-authored activity.
// Zero weights fall back to 40/30/30.
type ActivityCreateRequest struct {
	Title             string            `json:"title" validate:"required,min=3,max=200"`
	Description       string            `json:"description" validate:"required,max=5000"`
	Instructions      string            `json:"instructions" validate:"omitempty,max=5000"`
	StarterCode       string            `json:"starter_code" validate:"omitempty,max=20000"`
	DueDate           *time.Time        `json:"due_date"`
	CorrectnessWeight int               `json:"correctness_weight" validate:"gte=0,lte=100"`
	SyntaxWeight      int               `json:"syntax_weight" validate:"gte=0,lte=100"`
	LogicWeight       int               `json:"logic_weight" validate:"gte=0,lte=100"`
	TestCases         []TestCasePayload `json:"test_cases" validate:"omitempty,max=50,dive"`
}

// NewActivityResponse converts a model into a DTO. now decides PastDue.
func NewActivityResponse(model models.Activity, testCaseCount int, now time.Time) ActivityResponse {
	return ActivityResponse{
		ID:                model.ID,
		Title:             model.Title,
		Description:       model.Description,
		Instructions:      model.Instructions,
		StarterCode:       model.StarterCode,
		DueDate:           model.DueDate,
		CorrectnessWeight: model.CorrectnessWeight,
		SyntaxWeight:      model.SyntaxWeight,
		LogicWeight:       model.LogicWeight,
		TestCaseCount:     testCaseCount,
		PastDue:           model.IsPastDue(now),
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}
