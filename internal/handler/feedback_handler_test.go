package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rollcall-io/attendance-api/internal/dto"
	"github.com/rollcall-io/attendance-api/internal/handler"
	"github.com/rollcall-io/attendance-api/internal/models"
	"github.com/rollcall-io/attendance-api/internal/repository"
	"github.com/rollcall-io/attendance-api/internal/service"
	"github.com/rollcall-io/attendance-api/internal/utils"
)

func newFeedbackApp(t *testing.T, db *gorm.DB, userID uint, role string, caps []string) *fiber.App {
	t.Helper()

	validate := validator.New(validator.WithRequiredStructEnabled())
	ledger := service.NewLedgerService(
		repository.NewSessionRepository(db),
		repository.NewStatusRepository(db),
		repository.NewLedgerRepository(db),
		service.NewEventStream(nil, "", zerolog.Nop()),
		validate,
		zerolog.Nop(),
	)
	feedback := service.NewFeedbackService(
		repository.NewFeedbackRepository(db),
		repository.NewSessionRepository(db),
		ledger,
		validate,
		zerolog.Nop(),
	)
	h := handler.NewFeedbackHandler(feedback, zerolog.Nop())

	app := fiber.New()
	routes := app.Group("/feedback", injectActor(userID, role, caps))
	h.Register(routes)

	return app
}

func TestFeedbackHandlerRaiseAndResolve(t *testing.T) {
	db := newHandlerDB(t, "hfeedback_flow")

	session := models.Session{CourseActivityID: 1, StartTime: handlerBase, DurationSeconds: 3600}
	require.NoError(t, db.Create(&session).Error)
	present := models.Status{CourseActivityID: 1, Acronym: "P", Description: "Present", Points: 2, Visible: true}
	require.NoError(t, db.Create(&present).Error)

	studentApp := newFeedbackApp(t, db, 42, "student", nil)
	staffApp := newFeedbackApp(t, db, 9, "teacher", staffCaps())

	response, err := studentApp.Test(jsonRequest(t, http.MethodPost, "/feedback", dto.FeedbackCreateRequest{
		SessionID:   session.ID,
		Description: "I was marked absent but attended",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, response.StatusCode)

	envelope := decodeResponse(t, response)
	var raised dto.FeedbackResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &raised))
	require.Equal(t, uint(42), raised.UserID)

	// Students cannot resolve disputes.
	response, err = studentApp.Test(jsonRequest(t, http.MethodPost,
		"/feedback/"+itoa(raised.ID)+"/resolve",
		dto.FeedbackResolveRequest{StatusID: present.ID}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, response.StatusCode)

	response, err = staffApp.Test(jsonRequest(t, http.MethodPost,
		"/feedback/"+itoa(raised.ID)+"/resolve",
		dto.FeedbackResolveRequest{StatusID: present.ID}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)

	envelope = decodeResponse(t, response)
	var resolved dto.FeedbackResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &resolved))
	require.True(t, resolved.Resolved)

	// A second resolution conflicts.
	response, err = staffApp.Test(jsonRequest(t, http.MethodPost,
		"/feedback/"+itoa(raised.ID)+"/resolve",
		dto.FeedbackResolveRequest{StatusID: present.ID}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, response.StatusCode)

	// The student now sees the resolved dispute.
	response, err = studentApp.Test(jsonRequest(t, http.MethodGet, "/feedback", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)
	envelope = decodeResponse(t, response)
	var page utils.PagedResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &page))
	require.Equal(t, int64(1), page.Total)
}

func TestFeedbackHandlerRaiseValidation(t *testing.T) {
	db := newHandlerDB(t, "hfeedback_validation")
	app := newFeedbackApp(t, db, 42, "student", nil)

	response, err := app.Test(jsonRequest(t, http.MethodPost, "/feedback", dto.FeedbackCreateRequest{
		Description: "missing session",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, response.StatusCode)

	response, err = app.Test(jsonRequest(t, http.MethodPost, "/feedback", dto.FeedbackCreateRequest{
		SessionID:   9999,
		Description: "no such session",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, response.StatusCode)
}
