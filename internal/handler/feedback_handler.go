package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rollcall-io/attendance-api/internal/dto"
	"github.com/rollcall-io/attendance-api/internal/repository"
	"github.com/rollcall-io/attendance-api/internal/service"
	"github.com/rollcall-io/attendance-api/internal/utils"
)

// FeedbackHandler exposes the dispute endpoints.
type FeedbackHandler struct {
	service service.FeedbackService
	logger  zerolog.Logger
}

// NewFeedbackHandler constructs the handler.
func NewFeedbackHandler(service service.FeedbackService, logger zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
		logger:  logger.With().Str("component", "feedback_handler").Logger(),
	}
}

// Register wires the feedback routes.
func (h *FeedbackHandler) Register(router fiber.Router) {
	router.Post("", h.raise)
	router.Get("", h.list)
	router.Post("/:id/resolve", h.resolve)
}

func (h *FeedbackHandler) raise(c *fiber.Ctx) error {
	var payload dto.FeedbackCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Raise(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to raise feedback")
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "feedback raised", response)
}

func (h *FeedbackHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	sessionID, err := parseQueryInt(c, "sessionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}
	userID, err := parseQueryInt(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	filter := repository.FeedbackFilter{
		SessionID:    uint(sessionID),
		UserID:       uint(userID),
		ResolvedOnly: c.QueryBool("resolvedOnly"),
		Page:         page,
		PageSize:     pageSize,
	}

	entries, total, err := h.service.List(c.UserContext(), actorFromContext(c), filter)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendPage(c, "feedback retrieved", entries, total, page, pageSize)
}

func (h *FeedbackHandler) resolve(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid feedback id")
	}

	var payload dto.FeedbackResolveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Resolve(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to resolve feedback")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "feedback resolved", response)
}
