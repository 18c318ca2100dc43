package models

import "time"

// SessionMode selects which analysis endpoint a session submits to.
type SessionMode string

const (
	SessionModeFreeform  SessionMode = "freeform"
	SessionModeChallenge SessionMode = "challenge"
)

// Valid reports whether the mode is known.
func (m SessionMode) Valid() bool {
	return m == SessionModeFreeform || m == SessionModeChallenge
}

// AudioFileRef describes the recording selected in a session.
type AudioFileRef struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	MimeType   string    `json:"mime_type"`
	Checksum   string    `json:"checksum"`
	OverHint   bool      `json:"over_hint"`
	SelectedAt time.Time `json:"selected_at"`
}

// UploadState is the form state of a session.
type UploadState struct {
	File        *AudioFileRef `json:"file,omitempty"`
	ChallengeID *int          `json:"challenge_id,omitempty"`
	Submitting  bool          `json:"submitting"`
}

// Session is the review state owned by one browser session.
type Session struct {
	ID         string            `json:"id"`
	Mode       SessionMode       `json:"mode"`
	Upload     UploadState       `json:"upload"`
	Result     *EvaluationResult `json:"result,omitempty"`
	LastAlert  string            `json:"last_alert,omitempty"`
	Generation uint64            `json:"generation"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ClearEvaluation drops the result and resets the upload form.
func (s *Session) ClearEvaluation() {
	s.Upload.File = nil
	s.Upload.Submitting = false
	s.Result = nil
	s.LastAlert = ""
}
