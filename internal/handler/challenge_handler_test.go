package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pitch-review/internal/config"
	"github.com/noah-isme/pitch-review/internal/dto"
	"github.com/noah-isme/pitch-review/internal/handler"
	"github.com/noah-isme/pitch-review/internal/models"
	"github.com/noah-isme/pitch-review/pkg/analyzer"
)

func TestChallengeHandler_List(t *testing.T) {
	svc := stubChallengeService{items: []models.Challenge{
		{ID: 1, Title: "Cold Call Conversion", Difficulty: "medium"},
		{ID: 2, Title: "Renewal Rescue", Difficulty: "hard"},
	}}
	app := fiber.New()
	handler.NewChallengeHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/challenges"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/challenges", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                      `json:"success"`
		Data    dto.ChallengeListResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.True(t, payload.Success)
	require.Equal(t, 2, payload.Data.Total)
	require.Equal(t, "Renewal Rescue", payload.Data.Items[1].Title)
}

func TestChallengeHandler_UpstreamFailure(t *testing.T) {
	svc := stubChallengeService{err: &analyzer.StatusError{Operation: "challenges", StatusCode: 503, Detail: "db down"}}
	app := fiber.New()
	handler.NewChallengeHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/challenges"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/challenges", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.Equal(t, "analysis service unavailable", body.Message)
}

func TestChallengeHandler_Detail(t *testing.T) {
	svc := stubChallengeService{items: []models.Challenge{{ID: 4, Title: "Upsell"}}}
	app := fiber.New()
	handler.NewChallengeHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/challenges"))

	cases := []struct {
		path       string
		statusCode int
	}{
		{path: "/api/v1/challenges/4", statusCode: fiber.StatusOK},
		{path: "/api/v1/challenges/9", statusCode: fiber.StatusNotFound},
		{path: "/api/v1/challenges/abc", statusCode: fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tc.path, nil))
		require.NoError(t, err)
		require.Equal(t, tc.statusCode, resp.StatusCode, tc.path)
	}
}

func TestHealthCheck(t *testing.T) {
	cfg := config.Config{AppName: "Pitch Review", AppEnv: "test"}

	t.Run("ok", func(t *testing.T) {
		app := fiber.New()
		app.Get("/api/v1/health", handler.HealthCheck(cfg, map[string]handler.HealthProbe{
			"redis": func(context.Context) error { return nil },
		}))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var payload struct {
			Success bool                   `json:"success"`
			Data    handler.HealthResponse `json:"data"`
		}
		decodeResponse(t, resp, &payload)
		require.True(t, payload.Success)
		require.Equal(t, "ok", payload.Data.Status)
		require.Equal(t, "Pitch Review", payload.Data.Service)
		require.Equal(t, "ok", payload.Data.Dependencies["redis"])
	})

	t.Run("degraded", func(t *testing.T) {
		app := fiber.New()
		app.Get("/api/v1/health", handler.HealthCheck(cfg, map[string]handler.HealthProbe{
			"nats": func(context.Context) error { return context.DeadlineExceeded },
		}))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

		var payload struct {
			Success bool                   `json:"success"`
			Data    handler.HealthResponse `json:"data"`
		}
		decodeResponse(t, resp, &payload)
		require.False(t, payload.Success)
		require.Equal(t, "degraded", payload.Data.Status)
	})
}
