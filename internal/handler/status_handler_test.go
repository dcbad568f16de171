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
	"github.com/rollcall-io/attendance-api/internal/repository"
	"github.com/rollcall-io/attendance-api/internal/service"
)

func newStatusApp(t *testing.T, db *gorm.DB, caps []string) *fiber.App {
	t.Helper()

	statuses := service.NewStatusService(
		repository.NewStatusRepository(db),
		repository.NewLedgerRepository(db),
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.Nop(),
	)
	h := handler.NewStatusHandler(statuses, zerolog.Nop())

	app := fiber.New()
	activities := app.Group("/activities", injectActor(9, "teacher", caps))
	h.RegisterActivityRoutes(activities)
	statusRoutes := app.Group("/statuses", injectActor(9, "teacher", caps))
	h.RegisterStatusRoutes(statusRoutes)

	return app
}

func TestStatusHandlerSeedAndList(t *testing.T) {
	db := newHandlerDB(t, "hstatus_seed")
	app := newStatusApp(t, db, staffCaps())

	response, err := app.Test(jsonRequest(t, http.MethodPost, "/activities/1/statuses/seed", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, response.StatusCode)

	envelope := decodeResponse(t, response)
	var seeded []dto.StatusResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &seeded))
	require.Len(t, seeded, 4)

	// Seeding a non-empty activity conflicts at the payload level.
	response, err = app.Test(jsonRequest(t, http.MethodPost, "/activities/1/statuses/seed", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, response.StatusCode)

	response, err = app.Test(jsonRequest(t, http.MethodGet, "/activities/1/statuses?set=0", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)
	envelope = decodeResponse(t, response)
	var listed []dto.StatusResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &listed))
	require.Len(t, listed, 4)
}

func TestStatusHandlerAdd(t *testing.T) {
	db := newHandlerDB(t, "hstatus_add")
	app := newStatusApp(t, db, staffCaps())

	response, err := app.Test(jsonRequest(t, http.MethodPost, "/activities/1/statuses", dto.StatusCreateRequest{
		Acronym:     "P",
		Description: "Present",
		Points:      2,
		SelfCheckin: true,
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, response.StatusCode)

	// Duplicate acronyms and oversized acronyms map to client errors.
	response, err = app.Test(jsonRequest(t, http.MethodPost, "/activities/1/statuses", dto.StatusCreateRequest{
		Acronym:     "p",
		Description: "Present again",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, response.StatusCode)

	response, err = app.Test(jsonRequest(t, http.MethodPost, "/activities/1/statuses", dto.StatusCreateRequest{
		Acronym:     "PRES",
		Description: "Present",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, response.StatusCode)
}

func TestStatusHandlerCloneHideDelete(t *testing.T) {
	db := newHandlerDB(t, "hstatus_lifecycle")
	app := newStatusApp(t, db, staffCaps())

	response, err := app.Test(jsonRequest(t, http.MethodPost, "/activities/1/statuses/seed", nil))
	require.NoError(t, err)
	envelope := decodeResponse(t, response)
	var seeded []dto.StatusResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &seeded))

	response, err = app.Test(jsonRequest(t, http.MethodPost, "/activities/1/statuses/clone", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, response.StatusCode)
	envelope = decodeResponse(t, response)
	var clones []dto.StatusResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &clones))
	require.Len(t, clones, 4)
	require.Equal(t, 1, clones[0].SetNumber)

	response, err = app.Test(jsonRequest(t, http.MethodPatch, "/statuses/"+itoa(seeded[0].ID)+"/hide", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)
	envelope = decodeResponse(t, response)
	var hidden dto.StatusResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &hidden))
	require.False(t, hidden.Visible)

	response, err = app.Test(jsonRequest(t, http.MethodDelete, "/statuses/"+itoa(seeded[1].ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)

	response, err = app.Test(jsonRequest(t, http.MethodDelete, "/statuses/9999", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, response.StatusCode)
}

func TestStatusHandlerRequiresManageCapability(t *testing.T) {
	db := newHandlerDB(t, "hstatus_forbidden")
	app := newStatusApp(t, db, nil)

	response, err := app.Test(jsonRequest(t, http.MethodPost, "/activities/1/statuses/seed", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, response.StatusCode)
}
