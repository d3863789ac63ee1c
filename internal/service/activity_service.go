package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-autograder/internal/dto"
	"github.com/noah-isme/gema-autograder/internal/grading"
	"github.com/noah-isme/gema-autograder/internal/models"
	"github.com/noah-isme/gema-autograder/internal/repository"
)

// ErrInvalidWeights indicates the category weights do not add up to 100.
var ErrInvalidWeights = errors.New("category weights must sum to 100")

// ActivityService exposes methods to query and create graded activities.
type ActivityService interface {
	List(ctx context.Context, filter dto.ActivityFilter) (dto.ActivityListResponse, error)
	Get(ctx context.Context, id uint) (dto.ActivityResponse, error)
	Create(ctx context.Context, payload dto.ActivityCreateRequest) (dto.ActivityResponse, error)
}

type activityService struct {
	repo      repository.ActivityRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewActivityService constructs the activity service.
func NewActivityService(repo repository.ActivityRepository, validator *validator.Validate, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:      repo,
		validator: validator,
		logger:    logger.With().Str("component", "activity_service").Logger(),
		now:       time.Now,
	}
}

func (s *activityService) List(ctx context.Context, filter dto.ActivityFilter) (dto.ActivityListResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return dto.ActivityListResponse{}, err
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	items, total, err := s.repo.ListWithFilter(ctx, repository.ActivityFilter{
		Search:   strings.TrimSpace(filter.Search),
		Sort:     filter.Sort,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	responses := make([]dto.ActivityResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, dto.NewActivityResponse(item, s.countTestCases(item), s.now()))
	}

	return dto.ActivityListResponse{
		Items:      responses,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

func (s *activityService) Get(ctx context.Context, id uint) (dto.ActivityResponse, error) {
	activity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityResponse{}, ErrActivityNotFound
		}
		return dto.ActivityResponse{}, err
	}
	return dto.NewActivityResponse(activity, s.countTestCases(activity), s.now()), nil
}

func (s *activityService) Create(ctx context.Context, payload dto.ActivityCreateRequest) (dto.ActivityResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityResponse{}, err
	}

	weights := grading.Weights{
		Correctness: payload.CorrectnessWeight,
		Syntax:      payload.SyntaxWeight,
		Logic:       payload.LogicWeight,
	}
	if weights == (grading.Weights{}) {
		weights = grading.DefaultWeights()
	}
	if weights.Correctness+weights.Syntax+weights.Logic != 100 {
		return dto.ActivityResponse{}, ErrInvalidWeights
	}

	cases := make([]grading.TestCase, 0, len(payload.TestCases))
	for _, tc := range payload.TestCases {
		cases = append(cases, grading.TestCase{Input: tc.Input, Expected: tc.Expected})
	}
	encoded, err := grading.EncodeTestCases(cases)
	if err != nil {
		return dto.ActivityResponse{}, fmt.Errorf("encode test cases: %w", err)
	}

	activity := models.Activity{
		Title:             strings.TrimSpace(payload.Title),
		Description:       strings.TrimSpace(payload.Description),
		Instructions:      strings.TrimSpace(payload.Instructions),
		StarterCode:       payload.StarterCode,
		DueDate:           payload.DueDate,
		CorrectnessWeight: weights.Correctness,
		SyntaxWeight:      weights.Syntax,
		LogicWeight:       weights.Logic,
		TestCases:         datatypes.JSON(encoded),
	}
	if err := s.repo.Create(ctx, &activity); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist activity")
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(activity, len(cases), s.now()), nil
}

func (s *activityService) countTestCases(activity models.Activity) int {
	cases, _, err := grading.ParseTestCases(activity.TestCases)
	if err != nil {
		s.logger.Warn().Err(err).Uint("activity_id", activity.ID).Msg("unreadable test cases")
		return 0
	}
	return len(cases)
}
