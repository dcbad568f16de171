package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rollcall-io/attendance-api/internal/dto"
	"github.com/rollcall-io/attendance-api/internal/observability"
	"github.com/rollcall-io/attendance-api/internal/repository"
	"github.com/rollcall-io/attendance-api/internal/service"
	"github.com/rollcall-io/attendance-api/internal/utils"
)

// LedgerHandler exposes attendance record and audit trail endpoints.
type LedgerHandler struct {
	service service.LedgerService
	logger  zerolog.Logger
}

// NewLedgerHandler constructs the handler.
func NewLedgerHandler(service service.LedgerService, logger zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: service,
		logger:  logger.With().Str("component", "ledger_handler").Logger(),
	}
}

// RegisterSessionRoutes wires ledger routes scoped by session.
func (h *LedgerHandler) RegisterSessionRoutes(router fiber.Router) {
	router.Post("/:id/take", h.take)
	router.Put("/:id/attendances/:userId", h.setStatus)
	router.Get("/:id/attendances", h.entries)
}

// RegisterActivityRoutes wires the audit trail listing.
func (h *LedgerHandler) RegisterActivityRoutes(router fiber.Router) {
	router.Get("/:activityId/logs", h.logs)
}

func (h *LedgerHandler) setStatus(c *fiber.Ctx) error {
	sessionID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}
	userID, err := parseParamUint(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var payload dto.SetStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if payload.StatusID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "status_id required")
	}

	entry, err := h.service.SetStatus(c.UserContext(), actorFromContext(c), sessionID, userID, payload.StatusID, payload.Remarks, false)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to set attendance status")
		return sendServiceError(c, err)
	}

	observability.StatusWrites().WithLabelValues("manual").Inc()

	return utils.SendSuccess(c, "attendance status set", entry)
}

func (h *LedgerHandler) take(c *fiber.Ctx) error {
	sessionID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}

	var payload dto.TakeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	entries, err := h.service.Take(c.UserContext(), actorFromContext(c), sessionID, payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to take attendance")
		return sendServiceError(c, err)
	}

	observability.StatusWrites().WithLabelValues("manual").Add(float64(len(entries)))

	return utils.SendSuccess(c, "attendance taken", entries)
}

func (h *LedgerHandler) entries(c *fiber.Ctx) error {
	sessionID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}

	entries, err := h.service.SessionEntries(c.UserContext(), sessionID)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "attendance records retrieved", entries)
}

func (h *LedgerHandler) logs(c *fiber.Ctx) error {
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
		pageSize = 50
	}
	sessionID, err := parseQueryInt(c, "sessionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}
	userID, err := parseQueryInt(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	filter := repository.ActionLogFilter{
		SessionID: uint(sessionID),
		UserID:    uint(userID),
		Search:    c.Query("search"),
		Page:      page,
		PageSize:  pageSize,
	}

	logs, total, err := h.service.Logs(c.UserContext(), actorFromContext(c), activityID, filter)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to list action logs")
		return sendServiceError(c, err)
	}

	return utils.SendPage(c, "action logs retrieved", logs, total, page, pageSize)
}
