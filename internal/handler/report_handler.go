package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rollcall-io/attendance-api/internal/service"
	"github.com/rollcall-io/attendance-api/internal/utils"
)

// ReportHandler exposes summary and session report endpoints.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// RegisterSessionRoutes wires report routes scoped by session.
func (h *ReportHandler) RegisterSessionRoutes(router fiber.Router) {
	router.Get("/:id/report", h.sessionReport)
	router.Get("/:id/report/export", h.exportSessionReport)
}

// RegisterActivityRoutes wires the per-user summary route.
func (h *ReportHandler) RegisterActivityRoutes(router fiber.Router) {
	router.Get("/:activityId/users/:userId/summary", h.userSummary)
}

func (h *ReportHandler) sessionReport(c *fiber.Ctx) error {
	sessionID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}

	report, err := h.service.SessionReport(c.UserContext(), actorFromContext(c), sessionID)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to build session report")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "session report built", report)
}

func (h *ReportHandler) exportSessionReport(c *fiber.Ctx) error {
	sessionID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}

	content, filename, err := h.service.ExportSessionReport(c.UserContext(), actorFromContext(c), sessionID)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to export session report")
		return sendServiceError(c, err)
	}

	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	return c.Send(content)
}

func (h *ReportHandler) userSummary(c *fiber.Ctx) error {
	activityID, err := parseParamUint(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid activity id")
	}
	userID, err := parseParamUint(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	summary, err := h.service.UserSummary(c.UserContext(), actorFromContext(c), activityID, userID)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "attendance summary built", summary)
}
