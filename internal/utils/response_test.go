package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pitch-review/internal/utils"
)

type payload struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Errors  []utils.FieldError     `json:"errors"`
}

func TestSendSuccessDefaultsMessage(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "", map[string]string{"hello": "world"})
	})

	resp := performRequest(t, app)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body payload
	decode(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, "success", body.Message)
	require.Equal(t, "world", body.Data["hello"])
}

func TestSendErrorWithDataKeepsState(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.SendErrorWithData(c, fiber.StatusUnprocessableEntity, "Please select a file", map[string]bool{"loading": false})
	})

	resp := performRequest(t, app)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var body payload
	decode(t, resp, &body)
	require.False(t, body.Success)
	require.Equal(t, "Please select a file", body.Message)
	require.Equal(t, false, body.Data["loading"])
}

func TestSendValidationErrorListsFields(t *testing.T) {
	type request struct {
		ChallengeID int `validate:"required,gt=0"`
	}
	err := validator.New().Struct(request{})
	require.Error(t, err)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.SendValidationError(c, err)
	})

	resp := performRequest(t, app)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body payload
	decode(t, resp, &body)
	require.Equal(t, "invalid request", body.Message)
	require.Equal(t, []utils.FieldError{{Field: "challengeid", Rule: "required"}}, body.Errors)
}

func performRequest(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
