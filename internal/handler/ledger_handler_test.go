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

func newLedgerApp(t *testing.T, db *gorm.DB, userID uint, role string, caps []string) *fiber.App {
	t.Helper()

	ledger := service.NewLedgerService(
		repository.NewSessionRepository(db),
		repository.NewStatusRepository(db),
		repository.NewLedgerRepository(db),
		service.NewEventStream(nil, "", zerolog.Nop()),
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.Nop(),
	)
	h := handler.NewLedgerHandler(ledger, zerolog.Nop())

	app := fiber.New()
	sessions := app.Group("/sessions", injectActor(userID, role, caps))
	h.RegisterSessionRoutes(sessions)
	activities := app.Group("/activities", injectActor(userID, role, caps))
	h.RegisterActivityRoutes(activities)

	return app
}

func seedLedgerFixtures(t *testing.T, db *gorm.DB) (models.Session, models.Status, models.Status) {
	t.Helper()

	session := models.Session{CourseActivityID: 1, StartTime: handlerBase, DurationSeconds: 3600}
	require.NoError(t, db.Create(&session).Error)
	present := models.Status{CourseActivityID: 1, Acronym: "P", Description: "Present", Points: 2, Visible: true}
	require.NoError(t, db.Create(&present).Error)
	absent := models.Status{CourseActivityID: 1, Acronym: "A", Description: "Absent", Visible: true}
	require.NoError(t, db.Create(&absent).Error)

	return session, present, absent
}

func TestLedgerHandlerSetStatus(t *testing.T) {
	db := newHandlerDB(t, "hledger_set")
	session, present, _ := seedLedgerFixtures(t, db)
	app := newLedgerApp(t, db, 9, "teacher", staffCaps())

	response, err := app.Test(jsonRequest(t, http.MethodPut,
		"/sessions/"+itoa(session.ID)+"/attendances/42",
		dto.SetStatusRequest{StatusID: present.ID, Remarks: "front row"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)

	envelope := decodeResponse(t, response)
	var entry dto.LedgerEntryResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &entry))
	require.Equal(t, uint(42), entry.UserID)
	require.Equal(t, present.ID, entry.StatusID)

	// A missing status id never reaches the service.
	response, err = app.Test(jsonRequest(t, http.MethodPut,
		"/sessions/"+itoa(session.ID)+"/attendances/42",
		dto.SetStatusRequest{Remarks: "no status"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, response.StatusCode)
	require.Equal(t, "status_id required", decodeResponse(t, response).Message)

	response, err = app.Test(jsonRequest(t, http.MethodPut,
		"/sessions/9999/attendances/42",
		dto.SetStatusRequest{StatusID: present.ID}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, response.StatusCode)
}

func TestLedgerHandlerTake(t *testing.T) {
	db := newHandlerDB(t, "hledger_take")
	session, present, absent := seedLedgerFixtures(t, db)
	app := newLedgerApp(t, db, 9, "teacher", staffCaps())

	response, err := app.Test(jsonRequest(t, http.MethodPost,
		"/sessions/"+itoa(session.ID)+"/take",
		dto.TakeRequest{Entries: []dto.TakeEntry{
			{UserID: 1, StatusID: present.ID},
			{UserID: 2, StatusID: absent.ID},
		}}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)

	envelope := decodeResponse(t, response)
	var entries []dto.LedgerEntryResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &entries))
	require.Len(t, entries, 2)

	response, err = app.Test(jsonRequest(t, http.MethodGet,
		"/sessions/"+itoa(session.ID)+"/attendances", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)
	envelope = decodeResponse(t, response)
	require.NoError(t, json.Unmarshal(envelope.Data, &entries))
	require.Len(t, entries, 2)

	// An empty form fails validation.
	response, err = app.Test(jsonRequest(t, http.MethodPost,
		"/sessions/"+itoa(session.ID)+"/take",
		dto.TakeRequest{}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, response.StatusCode)
}

func TestLedgerHandlerTakeForbiddenForStudents(t *testing.T) {
	db := newHandlerDB(t, "hledger_forbidden")
	session, present, _ := seedLedgerFixtures(t, db)
	app := newLedgerApp(t, db, 42, "student", nil)

	response, err := app.Test(jsonRequest(t, http.MethodPost,
		"/sessions/"+itoa(session.ID)+"/take",
		dto.TakeRequest{Entries: []dto.TakeEntry{{UserID: 1, StatusID: present.ID}}}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, response.StatusCode)
}

func TestLedgerHandlerLogs(t *testing.T) {
	db := newHandlerDB(t, "hledger_logs")
	session, present, _ := seedLedgerFixtures(t, db)
	app := newLedgerApp(t, db, 9, "teacher", staffCaps())

	response, err := app.Test(jsonRequest(t, http.MethodPut,
		"/sessions/"+itoa(session.ID)+"/attendances/42",
		dto.SetStatusRequest{StatusID: present.ID}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)

	response, err = app.Test(jsonRequest(t, http.MethodGet, "/activities/1/logs?userId=42", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)

	envelope := decodeResponse(t, response)
	var page utils.PagedResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &page))
	require.Equal(t, int64(1), page.Total)
}
