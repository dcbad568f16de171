package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rollcall-io/attendance-api/internal/middleware"
	"github.com/rollcall-io/attendance-api/internal/models"
	"github.com/rollcall-io/attendance-api/internal/repository"
	"github.com/rollcall-io/attendance-api/internal/service"
)

var handlerBase = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeResponse(t *testing.T, response *http.Response) apiEnvelope {
	t.Helper()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	require.NoError(t, response.Body.Close())

	var envelope apiEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope))

	return envelope
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, target, body)
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	return request
}

// injectActor simulates the JWT middleware for a given identity.
func injectActor(userID uint, role string, caps []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("user_role", role)
		c.Locals("user_caps", caps)
		return c.Next()
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func staffCaps() []string {
	return []string{middleware.CapTakeAttendance, middleware.CapManageAttendance}
}

func newHandlerDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Session{},
		&models.Status{},
		&models.LedgerEntry{},
		&models.ActionLog{},
		&models.CheckinCredential{},
		&models.CheckinImage{},
		&models.FeedbackEntry{},
	))

	return db
}

func newSessionStack(t *testing.T, db *gorm.DB) service.SessionService {
	t.Helper()

	return service.NewSessionService(
		repository.NewSessionRepository(db),
		repository.NewStatusRepository(db),
		repository.NewLedgerRepository(db),
		service.NewEventStream(nil, "", zerolog.Nop()),
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.Nop(),
	)
}
