package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pitch-review/internal/models"
	"github.com/noah-isme/pitch-review/internal/service"
)

type mockReviewService struct {
	mu          sync.Mutex
	session     models.Session
	err         error
	getErr      error
	lastMode    models.SessionMode
	lastUpload  service.AudioUpload
	lastChallID int
	submits     int
	// sessionOnError makes Submit return the session alongside its error, as the workflow does for
	// rejected and failed submissions.
	sessionOnError bool
	updates        chan models.Session
}

func (m *mockReviewService) CreateSession(_ context.Context, mode models.SessionMode) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastMode = mode
	if m.err != nil {
		return models.Session{}, m.err
	}
	session := m.session
	if mode != "" {
		session.Mode = mode
	}
	return session, nil
}

func (m *mockReviewService) Get(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return models.Session{}, m.getErr
	}
	if m.err != nil {
		return models.Session{}, m.err
	}
	session := m.session
	session.ID = id
	return session, nil
}

func (m *mockReviewService) SelectFile(_ context.Context, id string, upload service.AudioUpload) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUpload = upload
	if m.err != nil {
		return models.Session{}, m.err
	}
	session := m.session
	session.ID = id
	session.Upload.File = &models.AudioFileRef{Name: upload.Name, SizeBytes: int64(len(upload.Data))}
	return session, nil
}

func (m *mockReviewService) SelectChallenge(_ context.Context, id string, challengeID int) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastChallID = challengeID
	if m.err != nil {
		return models.Session{}, m.err
	}
	session := m.session
	session.ID = id
	session.Mode = models.SessionModeChallenge
	session.Upload.ChallengeID = &challengeID
	return session, nil
}

func (m *mockReviewService) Submit(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submits++
	if m.err != nil && !m.sessionOnError {
		return models.Session{}, m.err
	}
	session := m.session
	session.ID = id
	return session, m.err
}

func (m *mockReviewService) Reset(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.Session{}, m.err
	}
	return models.Session{ID: id, Mode: m.session.Mode}, nil
}

func (m *mockReviewService) Subscribe(string) (<-chan models.Session, func()) {
	if m.updates == nil {
		m.updates = make(chan models.Session)
	}
	return m.updates, func() {}
}

type stubChallengeService struct {
	items []models.Challenge
	err   error
}

func (s stubChallengeService) List(context.Context) ([]models.Challenge, error) {
	return s.items, s.err
}

func (s stubChallengeService) Get(_ context.Context, id int) (models.Challenge, error) {
	if s.err != nil {
		return models.Challenge{}, s.err
	}
	for _, item := range s.items {
		if item.ID == id {
			return item, nil
		}
	}
	return models.Challenge{}, service.ErrChallengeNotFound
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  []struct {
		Field string `json:"field"`
		Rule  string `json:"rule"`
	} `json:"errors"`
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

func floatPtr(v float64) *float64 { return &v }
