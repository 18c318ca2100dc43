package handler_test

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pitch-review/internal/dto"
	"github.com/noah-isme/pitch-review/internal/handler"
	"github.com/noah-isme/pitch-review/internal/middleware"
	"github.com/noah-isme/pitch-review/internal/models"
	"github.com/noah-isme/pitch-review/internal/repository"
	"github.com/noah-isme/pitch-review/internal/service"
)

func newSessionApp(svc *mockReviewService, challenges service.ChallengeService, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	h := handler.NewSessionHandler(svc, challenges, validator.New(validator.WithRequiredStructEnabled()), guard, zerolog.Nop())
	h.Register(app.Group("/api/v1/sessions"))
	return app
}

func TestSessionHandler_Create(t *testing.T) {
	svc := &mockReviewService{session: models.Session{ID: "s-1", Mode: models.SessionModeFreeform}}
	app := newSessionApp(svc, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{"mode":"challenge"}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, models.SessionModeChallenge, svc.lastMode)
	require.Contains(t, string(body.Data), `"button_label":"Analyze Speech"`)
}

func TestSessionHandler_CreateRejectsUnknownMode(t *testing.T) {
	app := newSessionApp(&mockReviewService{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{"mode":"karaoke"}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.False(t, body.Success)
	require.Len(t, body.Errors, 1)
	require.Equal(t, "mode", body.Errors[0].Field)
	require.Equal(t, "oneof", body.Errors[0].Rule)
}

func TestSessionHandler_SelectFile(t *testing.T) {
	svc := &mockReviewService{session: models.Session{Mode: models.SessionModeFreeform}}
	app := newSessionApp(svc, nil, nil)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "pitch.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("RIFFdata"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s-1/file", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data dto.SessionResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.Equal(t, "pitch.wav", svc.lastUpload.Name)
	require.Equal(t, []byte("RIFFdata"), svc.lastUpload.Data)
	require.Equal(t, "pitch.wav", payload.Data.View.FileLabel)
}

func TestSessionHandler_SelectFileRequiresFile(t *testing.T) {
	app := newSessionApp(&mockReviewService{}, nil, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s-1/file", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSessionHandler_SelectChallenge(t *testing.T) {
	svc := &mockReviewService{}
	challenges := stubChallengeService{items: []models.Challenge{{ID: 3, Title: "Renewal Rescue"}}}
	app := newSessionApp(svc, challenges, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/s-1/challenge", strings.NewReader(`{"challenge_id":3}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data dto.SessionResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.Equal(t, 3, svc.lastChallID)
	require.Len(t, payload.Data.View.Challenges, 1)
	require.True(t, payload.Data.View.Challenges[0].Selected)
}

func TestSessionHandler_SelectChallengeValidation(t *testing.T) {
	svc := &mockReviewService{}
	app := newSessionApp(svc, nil, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/s-1/challenge", strings.NewReader(`{"challenge_id":0}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Zero(t, svc.lastChallID)
}

func TestSessionHandler_SubmitSuccess(t *testing.T) {
	svc := &mockReviewService{session: models.Session{
		Mode: models.SessionModeFreeform,
		Result: &models.EvaluationResult{
			Transcript: "Our product saves you time",
			Tone:       models.TonePositive,
			Speech:     &models.SpeechMetrics{PersuasionScore: floatPtr(0.8)},
		},
	}}
	app := newSessionApp(svc, nil, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s-1/submit", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                `json:"success"`
		Data    dto.SessionResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.True(t, payload.Success)
	require.NotNil(t, payload.Data.View.Result)
	require.Equal(t, "Our product saves you time", payload.Data.View.Result.Transcript)
}

func TestSessionHandler_SubmitErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		session    models.Session
		statusCode int
		message    string
		hasData    bool
	}{
		{name: "missing_file", err: service.ErrMissingFile, session: models.Session{LastAlert: service.MessageMissingFile}, statusCode: fiber.StatusUnprocessableEntity, message: service.MessageMissingFile, hasData: true},
		{name: "missing_challenge", err: service.ErrMissingChallenge, session: models.Session{Mode: models.SessionModeChallenge}, statusCode: fiber.StatusUnprocessableEntity, message: service.MessageMissingChallenge, hasData: true},
		{name: "in_progress", err: service.ErrSubmissionInProgress, statusCode: fiber.StatusConflict},
		{name: "superseded", err: service.ErrSubmissionSuperseded, statusCode: fiber.StatusConflict, hasData: true},
		{name: "failed", err: fmt.Errorf("%w: upstream returned 500", service.ErrSubmissionFailed), statusCode: fiber.StatusBadGateway, message: service.MessageSubmissionFailed, hasData: true},
		{name: "not_found", err: repository.ErrSessionNotFound, statusCode: fiber.StatusNotFound},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockReviewService{session: tc.session, err: tc.err, sessionOnError: tc.hasData}
			app := newSessionApp(svc, nil, nil)

			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s-1/submit", nil))
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)

			var body envelope
			decodeResponse(t, resp, &body)
			require.False(t, body.Success)
			if tc.message != "" {
				require.Equal(t, tc.message, body.Message)
			}
			if tc.hasData {
				require.NotEmpty(t, body.Data)
			} else {
				require.Empty(t, body.Data)
			}
			require.NotContains(t, body.Message, "upstream returned")
		})
	}
}

func TestSessionHandler_SubmitIsRateLimited(t *testing.T) {
	svc := &mockReviewService{}
	app := newSessionApp(svc, nil, middleware.RateLimit("submit", 1, time.Minute))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s-1/submit", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s-1/submit", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, 1, svc.submits)
}

func TestSessionHandler_GetAndReset(t *testing.T) {
	svc := &mockReviewService{session: models.Session{Mode: models.SessionModeFreeform, LastAlert: "Please select a file"}}
	app := newSessionApp(svc, nil, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s-9", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data dto.SessionResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.Equal(t, "s-9", payload.Data.Session.ID)
	require.Equal(t, "Please select a file", payload.Data.View.Alert)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/s-9", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &payload)
	require.Empty(t, payload.Data.View.Alert)
}

func TestSessionHandler_StreamRequiresUpgrade(t *testing.T) {
	app := newSessionApp(&mockReviewService{}, nil, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s-1/ws", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
