package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/rollcall-io/attendance-api/internal/dto"
	"github.com/rollcall-io/attendance-api/internal/middleware"
	"github.com/rollcall-io/attendance-api/internal/observability"
	"github.com/rollcall-io/attendance-api/internal/service"
	"github.com/rollcall-io/attendance-api/internal/utils"
)

// CheckinHandler exposes the online checkin flow: credential issuance,
// verification submission, capture review and the live event feed.
type CheckinHandler struct {
	service service.CheckinService
	events  service.EventStream
	logger  zerolog.Logger
}

// NewCheckinHandler constructs the handler.
func NewCheckinHandler(service service.CheckinService, events service.EventStream, logger zerolog.Logger) *CheckinHandler {
	return &CheckinHandler{
		service: service,
		events:  events,
		logger:  logger.With().Str("component", "checkin_handler").Logger(),
	}
}

// RegisterSessionRoutes wires checkin routes scoped by session.
func (h *CheckinHandler) RegisterSessionRoutes(router fiber.Router) {
	router.Post("/:id/credentials", h.issueCredential)
	router.Get("/:id/users/:userId/checkin-images", h.images)

	router.Use("/:id/checkins/live", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			if !middleware.HasCapability(c, middleware.CapTakeAttendance) {
				return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
			}
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/:id/checkins/live", websocket.New(h.liveFeed))
}

// RegisterSubmitRoute wires the verification submission endpoint.
func (h *CheckinHandler) RegisterSubmitRoute(router fiber.Router) {
	router.Post("", h.submit)
}

func (h *CheckinHandler) issueCredential(c *fiber.Ctx) error {
	sessionID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}

	credential, err := h.service.IssueCredential(c.UserContext(), actorFromContext(c), sessionID)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to issue checkin credential")
		return sendServiceError(c, err)
	}

	observability.CredentialsIssued().Inc()

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "checkin credential issued", credential)
}

func (h *CheckinHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmitCheckinRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.SubmitVerification(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		observability.CheckinAttempts().WithLabelValues("failed").Inc()
		requestLogger(h.logger, c).Warn().Err(err).Msg("checkin verification not completed")
		return sendServiceError(c, err)
	}

	if result.Accepted {
		observability.CheckinAttempts().WithLabelValues("accepted").Inc()
		observability.StatusWrites().WithLabelValues("online_checkin").Inc()
		return utils.SendSuccess(c, "checkin accepted", result)
	}

	observability.CheckinAttempts().WithLabelValues("rejected").Inc()

	return utils.SendSuccessWithStatus(c, fiber.StatusOK, "checkin rejected", result)
}

func (h *CheckinHandler) images(c *fiber.Ctx) error {
	sessionID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session id")
	}
	userID, err := parseParamUint(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	images, err := h.service.Images(c.UserContext(), actorFromContext(c), sessionID, userID)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "checkin images retrieved", images)
}

// liveFeed streams attendance events for one session over a websocket until
// the client disconnects.
func (h *CheckinHandler) liveFeed(conn *websocket.Conn) {
	sessionID, err := strconv.ParseUint(strings.TrimSpace(conn.Params("id")), 10, 64)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "invalid session id"))
		_ = conn.Close()
		return
	}

	events, cancel := h.events.Subscribe(uint(sessionID))
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Info().Uint64("session_id", sessionID).Msg("live checkin feed connected")
	defer h.logger.Info().Uint64("session_id", sessionID).Msg("live checkin feed disconnected")

	for {
		select {
		case event, ok := <-events:
			if !ok {
				_ = conn.Close()
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				_ = conn.Close()
				return
			}
		case <-closed:
			return
		}
	}
}
