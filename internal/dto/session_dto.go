package dto

import (
	"github.com/noah-isme/pitch-review/internal/models"
	"github.com/noah-isme/pitch-review/internal/view"
)

// CreateSessionRequest starts a new review session.
type CreateSessionRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=freeform challenge"`
}

// SelectChallengeRequest picks the challenge a recording is evaluated against.
type SelectChallengeRequest struct {
	ChallengeID int `json:"challenge_id" form:"challenge_id" validate:"required,gt=0"`
}

// SessionResponse pairs the stored session with its derived display state.
type SessionResponse struct {
	Session models.Session `json:"session"`
	View    view.PageView  `json:"view"`
}

// NewSessionResponse builds the response payload for a session.
func NewSessionResponse(session models.Session, challenges []models.Challenge) SessionResponse {
	return SessionResponse{
		Session: session,
		View:    view.Build(session, challenges),
	}
}
