package handler

import (
	"errors"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-autograder/internal/dto"
	"github.com/noah-isme/gema-autograder/internal/grading/predictor"
	"github.com/noah-isme/gema-autograder/internal/service"
	"github.com/noah-isme/gema-autograder/internal/utils"
)

// GradingHandler exposes submission grading endpoints.
type GradingHandler struct {
	grading  service.GradingService
	training service.TrainingService
	logger   zerolog.Logger
}

// NewGradingHandler constructs the handler. training may be nil, which disables retraining.
func NewGradingHandler(grading service.GradingService, training service.TrainingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		grading:  grading,
		training: training,
		logger:   logger.With().Str("component", "grading_handler").Logger(),
	}
}

// RegisterActivityRoutes wires routes nested under /activities/:id.
func (h *GradingHandler) RegisterActivityRoutes(router fiber.Router, limit fiber.Handler) {
	router.Post("/:id/submissions", limit, h.submit)
	router.Post("/:id/preview", limit, h.preview)
}

// RegisterSubmissionRoutes wires routes nested under /submissions.
func (h *GradingHandler) RegisterSubmissionRoutes(router fiber.Router, limit fiber.Handler) {
	router.Post("/:id/grade", limit, h.regrade)
	router.Get("/:id/result", h.result)
	router.Get("/:id/similarity", h.similarity)
}

// RegisterModelRoutes wires the predictor maintenance routes.
func (h *GradingHandler) RegisterModelRoutes(router fiber.Router) {
	router.Post("/train", h.train)
}

func (h *GradingHandler) submit(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	var upload *multipart.FileHeader
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		if file, err := c.FormFile("source"); err == nil {
			upload = file
		}
	}

	response, err := h.grading.Submit(withRequestContext(c), activityID, payload, upload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission graded", response)
}

func (h *GradingHandler) preview(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PreviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.grading.Preview(withRequestContext(c), activityID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "preview graded", response)
}

func (h *GradingHandler) regrade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.grading.Regrade(withRequestContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission regraded", response)
}

func (h *GradingHandler) result(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.grading.LatestResult(withRequestContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade retrieved", response)
}

func (h *GradingHandler) similarity(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.grading.Similarity(withRequestContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "similarity computed", response)
}

func (h *GradingHandler) train(c *fiber.Ctx) error {
	if h.training == nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "model training is disabled")
	}

	response, err := h.training.Train(withRequestContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "model retrained", response)
}

func (h *GradingHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendValidationError(c, err)
	case errors.Is(err, service.ErrEmptySource):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnsupportedSource):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, service.ErrActivityNotFound), errors.Is(err, service.ErrSubmissionNotFound), errors.Is(err, service.ErrGradeNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTrainingInProgress):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, predictor.ErrInsufficientData):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("path", c.Path()).Msg("grading operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
