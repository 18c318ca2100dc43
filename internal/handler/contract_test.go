package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pitch-review/internal/models"
)

func TestSessionResponseContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("testdata", "session_response.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	now := time.Now().UTC()
	passed := true
	challengeID := 1
	svc := &mockReviewService{session: models.Session{
		Mode: models.SessionModeChallenge,
		Upload: models.UploadState{
			File:        &models.AudioFileRef{Name: "call.m4a", SizeBytes: 2048, SelectedAt: now},
			ChallengeID: &challengeID,
		},
		Result: &models.EvaluationResult{
			Transcript:     "I hear the budget concern, here is the ROI",
			Scores:         map[string]float64{"objection_handling": 100, "persuasion": 140},
			BenchmarkIdeal: map[string]float64{"persuasion": 85},
			Feedback:       []string{"Slow down slightly"},
			Tone:           models.TonePositive,
			ToneLabel:      "POSITIVE",
			Passed:         &passed,
			Challenge:      &models.ChallengeMetrics{ChallengeID: 1, ObjectionsHandled: []string{"No budget"}},
		},
		Generation: 3,
		CreatedAt:  now,
		UpdatedAt:  now,
	}}
	challenges := stubChallengeService{items: []models.Challenge{{ID: 1, Title: "Cold Call Conversion"}}}
	app := newSessionApp(svc, challenges, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s-1/submit", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
