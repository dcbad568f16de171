package utils_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-io/attendance-api/internal/utils"
)

func perform(t *testing.T, handler fiber.Handler) (*http.Response, map[string]interface{}) {
	t.Helper()

	app := fiber.New()
	app.Get("/", handler)

	response, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	require.NoError(t, response.Body.Close())

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))

	return response, decoded
}

func TestSendSuccessEnvelope(t *testing.T) {
	response, body := perform(t, func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "done", fiber.Map{"id": 7})
	})
	require.Equal(t, fiber.StatusOK, response.StatusCode)
	require.Equal(t, true, body["success"])
	require.Equal(t, "done", body["message"])
	require.NotNil(t, body["data"])

	response, body = perform(t, func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "", nil)
	})
	require.Equal(t, fiber.StatusOK, response.StatusCode)
	require.Equal(t, "success", body["message"])
	_, hasData := body["data"]
	require.False(t, hasData)
}

func TestSendSuccessWithStatus(t *testing.T) {
	response, body := perform(t, func(c *fiber.Ctx) error {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "created", nil)
	})
	require.Equal(t, fiber.StatusCreated, response.StatusCode)
	require.Equal(t, "created", body["message"])
}

func TestSendPageDefaults(t *testing.T) {
	_, body := perform(t, func(c *fiber.Ctx) error {
		return utils.SendPage(c, "listed", []int{1, 2}, 10, 0, 20)
	})

	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(10), data["total"])
	require.Equal(t, float64(1), data["page"])
	require.Equal(t, float64(20), data["page_size"])
}

func TestSendErrorEnvelope(t *testing.T) {
	response, body := perform(t, func(c *fiber.Ctx) error {
		return utils.SendError(c, fiber.StatusConflict, "already exists")
	})
	require.Equal(t, fiber.StatusConflict, response.StatusCode)
	require.Equal(t, false, body["success"])
	require.Equal(t, "already exists", body["message"])
}
