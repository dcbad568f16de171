package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rollcall-io/attendance-api/internal/dto"
	"github.com/rollcall-io/attendance-api/internal/service"
	"github.com/rollcall-io/attendance-api/internal/utils"
)

// StatusHandler exposes the status set management endpoints.
type StatusHandler struct {
	service service.StatusService
	logger  zerolog.Logger
}

// NewStatusHandler constructs the handler.
func NewStatusHandler(service service.StatusService, logger zerolog.Logger) *StatusHandler {
	return &StatusHandler{
		service: service,
		logger:  logger.With().Str("component", "status_handler").Logger(),
	}
}

// RegisterActivityRoutes wires status routes scoped by course activity.
func (h *StatusHandler) RegisterActivityRoutes(router fiber.Router) {
	router.Post("/:activityId/statuses", h.add)
	router.Get("/:activityId/statuses", h.list)
	router.Post("/:activityId/statuses/seed", h.seed)
	router.Post("/:activityId/statuses/clone", h.clone)
}

// RegisterStatusRoutes wires routes addressing a single status.
func (h *StatusHandler) RegisterStatusRoutes(router fiber.Router) {
	router.Patch("/:id/hide", h.hide)
	router.Delete("/:id", h.delete)
}

func (h *StatusHandler) add(c *fiber.Ctx) error {
	activityID, err := parseParamUint(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid activity id")
	}

	var payload dto.StatusCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Add(c.UserContext(), actorFromContext(c), activityID, payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to add status")
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "status added", response)
}

func (h *StatusHandler) list(c *fiber.Ctx) error {
	activityID, err := parseParamUint(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid activity id")
	}

	var setNumber *int
	if raw := c.Query("set"); raw != "" {
		parsed, err := parseQueryInt(c, "set")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid set number")
		}
		setNumber = &parsed
	}

	statuses, err := h.service.List(c.UserContext(), activityID, setNumber)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "statuses retrieved", statuses)
}

func (h *StatusHandler) seed(c *fiber.Ctx) error {
	activityID, err := parseParamUint(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid activity id")
	}

	statuses, err := h.service.SeedDefaults(c.UserContext(), actorFromContext(c), activityID)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to seed default statuses")
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "default statuses seeded", statuses)
}

func (h *StatusHandler) clone(c *fiber.Ctx) error {
	activityID, err := parseParamUint(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid activity id")
	}

	statuses, err := h.service.CloneAsNewSet(c.UserContext(), actorFromContext(c), activityID)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to clone status set")
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "status set cloned", statuses)
}

func (h *StatusHandler) hide(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid status id")
	}

	response, err := h.service.Hide(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to hide status")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "status hidden", response)
}

func (h *StatusHandler) delete(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid status id")
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to delete status")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "status deleted", nil)
}
