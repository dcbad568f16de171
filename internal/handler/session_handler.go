package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rollcall-io/attendance-api/internal/dto"
	"github.com/rollcall-io/attendance-api/internal/repository"
	"github.com/rollcall-io/attendance-api/internal/service"
	"github.com/rollcall-io/attendance-api/internal/utils"
)

// SessionHandler exposes the session registry endpoints.
type SessionHandler struct {
	service service.SessionService
	logger  zerolog.Logger
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service service.SessionService, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger.With().Str("component", "session_handler").Logger(),
	}
}

// RegisterActivityRoutes wires session routes scoped by course activity.
func (h *SessionHandler) RegisterActivityRoutes(router fiber.Router) {
	router.Post("/:activityId/sessions", h.create)
	router.Get("/:activityId/sessions", h.list)
}

// RegisterSessionRoutes wires routes addressing a single session.
func (h *SessionHandler) RegisterSessionRoutes(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/checkin-window", h.openCheckinWindow)
}

func (h *SessionHandler) create(c *fiber.Ctx) error {
	activityID, err := parseParamUint(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid activity id")
	}

	var payload dto.SessionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Create(c.UserContext(), actorFromContext(c), activityID, payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to create session")
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session created", response)
}

func (h *SessionHandler) list(c *fiber.Ctx) error {
	activityID, err := parseParamUint(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid activity id")
	}

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

	filter := repository.SessionFilter{
		IncludeHidden: c.QueryBool("includeHidden"),
		Sort:          c.Query("sort"),
		Page:          page,
		PageSize:      pageSize,
	}

	sessions, total, err := h.service.List(c.UserContext(), actorFromContext(c), activityID, filter)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list sessions")
		return sendServiceError(c, err)
	}

	return utils.SendPage(c, "sessions retrieved", sessions, total, page, pageSize)
}

func (h *SessionHandler) get(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}

	response, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "session retrieved", response)
}

func (h *SessionHandler) update(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}

	var payload dto.SessionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Update(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to update session")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "session updated", response)
}

func (h *SessionHandler) delete(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to delete session")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "session deleted", nil)
}

func (h *SessionHandler) openCheckinWindow(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}

	var payload dto.OpenCheckinWindowRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.OpenCheckinWindow(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to open checkin window")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "checkin window opened", response)
}
