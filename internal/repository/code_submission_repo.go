package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-autograder/internal/models"
)

// TrainingRow is one fully graded submission used to fit the score predictor.
type TrainingRow struct {
	Code             string
	CorrectnessScore int
	LogicScore       int
	SyntaxScore      int
}

// CodeSubmissionRepository exposes persistence helpers for code submissions and their grades.
type CodeSubmissionRepository interface {
	Create(ctx context.Context, submission *models.CodeSubmission) error
	Update(ctx context.Context, submission *models.CodeSubmission) error
	GetByID(ctx context.Context, id uint) (models.CodeSubmission, error)
	ListPeers(ctx context.Context, activityID, excludeStudentID uint) ([]models.CodeSubmission, error)
	SaveGrade(ctx context.Context, grade *models.GradeRecord) error
	LatestGrade(ctx context.Context, submissionID uint) (models.GradeRecord, error)
	ListGradedForTraining(ctx context.Context, limit int) ([]TrainingRow, error)
}

// NewCodeSubmissionRepository constructs a code submission repository.
func NewCodeSubmissionRepository(db *gorm.DB) CodeSubmissionRepository {
	return &codeSubmissionRepository{db: db}
}

type codeSubmissionRepository struct {
	db *gorm.DB
}

func (r *codeSubmissionRepository) Create(ctx context.Context, submission *models.CodeSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *codeSubmissionRepository) Update(ctx context.Context, submission *models.CodeSubmission) error {
	return r.db.WithContext(ctx).Omit("Activity", "Grades").Save(submission).Error
}

func (r *codeSubmissionRepository) GetByID(ctx context.Context, id uint) (models.CodeSubmission, error) {
	var submission models.CodeSubmission
	err := r.db.WithContext(ctx).
		Preload("Activity").
		First(&submission, id).Error
	if err != nil {
		return models.CodeSubmission{}, err
	}
	return submission, nil
}

// ListPeers returns the latest submission of every other student for the activity.
func (r *codeSubmissionRepository) ListPeers(ctx context.Context, activityID, excludeStudentID uint) ([]models.CodeSubmission, error) {
	latest := r.db.WithContext(ctx).
		Model(&models.CodeSubmission{}).
		Select("MAX(id)").
		Where("activity_id = ? AND student_id <> ?", activityID, excludeStudentID).
		Group("student_id")

	var peers []models.CodeSubmission
	err := r.db.WithContext(ctx).
		Where("id IN (?)", latest).
		Order("id ASC").
		Find(&peers).Error
	if err != nil {
		return nil, err
	}
	return peers, nil
}

func (r *codeSubmissionRepository) SaveGrade(ctx context.Context, grade *models.GradeRecord) error {
	return r.db.WithContext(ctx).Create(grade).Error
}

func (r *codeSubmissionRepository) LatestGrade(ctx context.Context, submissionID uint) (models.GradeRecord, error) {
	var grade models.GradeRecord
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at DESC, id DESC").
		First(&grade).Error
	if err != nil {
		return models.GradeRecord{}, err
	}
	return grade, nil
}

// ListGradedForTraining returns the most recent completed, unpenalized grades.
func (r *codeSubmissionRepository) ListGradedForTraining(ctx context.Context, limit int) ([]TrainingRow, error) {
	var rows []TrainingRow
	err := r.db.WithContext(ctx).
		Table("grade_records AS g").
		Select("s.code AS code, g.correctness_score AS correctness_score, g.logic_score AS logic_score, g.syntax_score AS syntax_score").
		Joins("JOIN code_submissions AS s ON s.id = g.submission_id").
		Where("g.state = ? AND g.penalty_percent = 0", "done").
		Order("g.created_at DESC, g.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
