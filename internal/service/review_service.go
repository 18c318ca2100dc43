package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/pitch-review/internal/models"
	"github.com/noah-isme/pitch-review/internal/observability"
	"github.com/noah-isme/pitch-review/internal/repository"
	"github.com/noah-isme/pitch-review/pkg/analyzer"
)

// User facing alert messages.
const (
	MessageMissingFile      = "Please select a file"
	MessageMissingChallenge = "Please select a challenge"
	MessageSubmissionFailed = "Error uploading file. Please try again."
)

var (
	// ErrMissingFile indicates submit was requested before a recording was selected.
	ErrMissingFile = errors.New("no file selected")
	// ErrMissingChallenge indicates a challenge session submitted without a challenge.
	ErrMissingChallenge = errors.New("no challenge selected")
	// ErrSubmissionInProgress indicates the session already has a pending request.
	ErrSubmissionInProgress = errors.New("submission already in progress")
	// ErrSubmissionFailed indicates the analysis request failed.
	ErrSubmissionFailed = errors.New("submission failed")
	// ErrSubmissionSuperseded indicates the response arrived after the session moved on.
	ErrSubmissionSuperseded = errors.New("submission superseded")
	// ErrInvalidMode indicates an unknown session mode.
	ErrInvalidMode = errors.New("invalid session mode")
)

var (
	errStaleGeneration = errors.New("stale generation")
	errAudioChanged    = errors.New("recording changed while claiming")
)

const maxClaimAttempts = 3

// AudioUpload is a recording chosen by the user.
type AudioUpload struct {
	Name string
	Data []byte
}

// ReviewService drives the upload, submit and render workflow of a pitch review session.
type ReviewService interface {
	CreateSession(ctx context.Context, mode models.SessionMode) (models.Session, error)
	Get(ctx context.Context, sessionID string) (models.Session, error)
	SelectFile(ctx context.Context, sessionID string, upload AudioUpload) (models.Session, error)
	SelectChallenge(ctx context.Context, sessionID string, challengeID int) (models.Session, error)
	Submit(ctx context.Context, sessionID string) (models.Session, error)
	Reset(ctx context.Context, sessionID string) (models.Session, error)
	Subscribe(sessionID string) (<-chan models.Session, func())
}

// ReviewServiceConfig groups the collaborators of the review service.
type ReviewServiceConfig struct {
	Sessions   repository.SessionRepository
	Challenges ChallengeService
	Analyzer   analyzer.Analyzer
	Notifier   Notifier
	Events     SessionEvents
	HintBytes  int64
	Logger     zerolog.Logger
}

type reviewService struct {
	sessions   repository.SessionRepository
	challenges ChallengeService
	analyzer   analyzer.Analyzer
	notifier   Notifier
	events     SessionEvents
	hintBytes  int64
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
	newID      func() string
}

// NewReviewService constructs the review workflow.
func NewReviewService(cfg ReviewServiceConfig) ReviewService {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(cfg.Logger)
	}
	events := cfg.Events
	if events == nil {
		events = NewSessionEvents(nil, nil, "", cfg.Logger)
	}

	return &reviewService{
		sessions:   cfg.Sessions,
		challenges: cfg.Challenges,
		analyzer:   cfg.Analyzer,
		notifier:   notifier,
		events:     events,
		hintBytes:  cfg.HintBytes,
		logger:     cfg.Logger.With().Str("component", "review_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/pitch-review/internal/service/review"),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func (s *reviewService) CreateSession(ctx context.Context, mode models.SessionMode) (models.Session, error) {
	if mode == "" {
		mode = models.SessionModeFreeform
	}
	if !mode.Valid() {
		return models.Session{}, ErrInvalidMode
	}

	now := s.now().UTC()
	session := models.Session{
		ID:        s.newID(),
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return models.Session{}, err
	}

	s.logger.Debug().Str("session_id", session.ID).Str("mode", string(mode)).Msg("session created")
	return session, nil
}

func (s *reviewService) Get(ctx context.Context, sessionID string) (models.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

func (s *reviewService) Subscribe(sessionID string) (<-chan models.Session, func()) {
	return s.events.Subscribe(sessionID)
}

func (s *reviewService) SelectFile(ctx context.Context, sessionID string, upload AudioUpload) (models.Session, error) {
	ctx, span := s.tracer.Start(ctx, "review.select_file", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int("file.bytes", len(upload.Data)),
	))
	defer span.End()

	detected := mimetype.Detect(upload.Data).String()
	ref := models.AudioFileRef{
		Name:       displayName(upload.Name),
		SizeBytes:  int64(len(upload.Data)),
		MimeType:   detected,
		Checksum:   audioChecksum(upload.Data),
		OverHint:   s.hintBytes > 0 && int64(len(upload.Data)) > s.hintBytes,
		SelectedAt: s.now().UTC(),
	}
	span.SetAttributes(attribute.String("file.detected_mime", detected))

	if err := s.sessions.PutAudio(ctx, sessionID, upload.Data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store audio failed")
		return models.Session{}, err
	}

	session, err := s.sessions.Update(ctx, sessionID, func(sess *models.Session) error {
		sess.Upload.File = &ref
		sess.LastAlert = ""
		if sess.Upload.Submitting {
			// The in-flight request was made for the previous recording.
			sess.Upload.Submitting = false
			sess.Generation++
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return models.Session{}, err
	}

	observability.Uploads().WithLabelValues(detected).Inc()
	if ref.OverHint {
		observability.UploadOverHint().Inc()
		s.logger.Info().Str("session_id", sessionID).Int64("size_bytes", ref.SizeBytes).Msg("recording larger than advertised size hint")
	}

	s.events.Publish(ctx, session)
	return session, nil
}

func (s *reviewService) SelectChallenge(ctx context.Context, sessionID string, challengeID int) (models.Session, error) {
	ctx, span := s.tracer.Start(ctx, "review.select_challenge", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int("challenge.id", challengeID),
	))
	defer span.End()

	if _, err := s.challenges.Get(ctx, challengeID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "challenge lookup failed")
		return models.Session{}, err
	}

	session, err := s.sessions.Update(ctx, sessionID, func(sess *models.Session) error {
		sess.ClearEvaluation()
		id := challengeID
		sess.Upload.ChallengeID = &id
		sess.Mode = models.SessionModeChallenge
		sess.Generation++
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return models.Session{}, err
	}

	s.events.Publish(ctx, session)
	return session, nil
}

func (s *reviewService) Reset(ctx context.Context, sessionID string) (models.Session, error) {
	session, err := s.sessions.Update(ctx, sessionID, func(sess *models.Session) error {
		sess.ClearEvaluation()
		sess.Upload.ChallengeID = nil
		sess.Generation++
		return nil
	})
	if err != nil {
		return models.Session{}, err
	}

	s.events.Publish(ctx, session)
	return session, nil
}

// pendingSubmission captures what a submit claimed while holding the session.
type pendingSubmission struct {
	generation  uint64
	mode        models.SessionMode
	challengeID int
	file        models.AudioFileRef
	audio       []byte
}

func (s *reviewService) Submit(ctx context.Context, sessionID string) (models.Session, error) {
	ctx, span := s.tracer.Start(ctx, "review.submit", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	var (
		inputErr error
		pending  pendingSubmission
		session  models.Session
		err      error
	)
	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		// The recording is read before the claim and only accepted if it still
		// matches the selected file, so a concurrent SelectFile cannot swap the
		// bytes sent under the claimed name.
		audio, audioErr := s.sessions.GetAudio(ctx, sessionID)
		if audioErr != nil && !errors.Is(audioErr, repository.ErrAudioNotFound) {
			err = audioErr
			break
		}

		session, err = s.sessions.Update(ctx, sessionID, func(sess *models.Session) error {
			inputErr = nil
			if sess.Upload.Submitting {
				return ErrSubmissionInProgress
			}

			switch {
			case sess.Upload.File == nil:
				inputErr = ErrMissingFile
			case sess.Mode == models.SessionModeChallenge && sess.Upload.ChallengeID == nil:
				inputErr = ErrMissingChallenge
			}
			if inputErr != nil {
				sess.LastAlert = alertMessage(inputErr)
				return nil
			}
			if audioErr != nil || audioChecksum(audio) != sess.Upload.File.Checksum {
				return errAudioChanged
			}

			sess.Upload.Submitting = true
			sess.LastAlert = ""
			sess.Generation++
			pending = pendingSubmission{
				generation: sess.Generation,
				mode:       sess.Mode,
				file:       *sess.Upload.File,
				audio:      audio,
			}
			if sess.Upload.ChallengeID != nil {
				pending.challengeID = *sess.Upload.ChallengeID
			}
			return nil
		})
		if !errors.Is(err, errAudioChanged) {
			break
		}
	}
	if errors.Is(err, errAudioChanged) {
		err = fmt.Errorf("%w: %v", ErrSubmissionSuperseded, err)
	}
	if err != nil {
		if errors.Is(err, ErrSubmissionInProgress) {
			observability.Submissions().WithLabelValues("unknown", "in_progress").Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "claim failed")
		return models.Session{}, err
	}

	if inputErr != nil {
		observability.Submissions().WithLabelValues(string(session.Mode), "rejected").Inc()
		s.alert(ctx, sessionID, AlertKindMissingInput, alertMessage(inputErr))
		s.events.Publish(ctx, session)
		span.SetStatus(codes.Error, "missing input")
		return session, inputErr
	}

	s.events.Publish(ctx, session)
	span.SetAttributes(
		attribute.String("session.mode", string(pending.mode)),
		attribute.Int64("session.generation", int64(pending.generation)),
	)

	start := s.now()
	result, callErr := s.analyze(ctx, pending)
	observability.SubmissionLatency().WithLabelValues(string(pending.mode)).Observe(s.now().Sub(start).Seconds())

	// The request context may already be cancelled; the pending flag must still be cleared.
	finishCtx := context.WithoutCancel(ctx)
	session, err = s.sessions.Update(finishCtx, sessionID, func(sess *models.Session) error {
		if sess.Generation != pending.generation {
			return errStaleGeneration
		}
		sess.Upload.Submitting = false
		if callErr != nil {
			sess.LastAlert = MessageSubmissionFailed
			return nil
		}
		sess.Result = result
		return nil
	})

	if errors.Is(err, errStaleGeneration) {
		observability.Submissions().WithLabelValues(string(pending.mode), "superseded").Inc()
		s.logger.Warn().
			Str("session_id", sessionID).
			Uint64("generation", pending.generation).
			AnErr("call_error", callErr).
			Msg("discarding response of superseded submission")
		span.SetStatus(codes.Error, "superseded")
		current, getErr := s.sessions.Get(finishCtx, sessionID)
		if getErr != nil {
			return models.Session{}, getErr
		}
		return current, ErrSubmissionSuperseded
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "finish failed")
		return models.Session{}, err
	}

	s.events.Publish(finishCtx, session)

	if callErr != nil {
		observability.Submissions().WithLabelValues(string(pending.mode), "failed").Inc()
		s.logger.Error().Err(callErr).Str("session_id", sessionID).Str("mode", string(pending.mode)).Msg("submission failed")
		s.alert(finishCtx, sessionID, AlertKindSubmissionFailed, MessageSubmissionFailed)
		span.RecordError(callErr)
		span.SetStatus(codes.Error, "analysis failed")
		return session, fmt.Errorf("%w: %v", ErrSubmissionFailed, callErr)
	}

	observability.Submissions().WithLabelValues(string(pending.mode), "success").Inc()
	span.SetStatus(codes.Ok, "analyzed")
	return session, nil
}

func (s *reviewService) analyze(ctx context.Context, pending pendingSubmission) (*models.EvaluationResult, error) {
	file := analyzer.AudioFile{
		Name:        pending.file.Name,
		ContentType: pending.file.MimeType,
		Data:        pending.audio,
	}

	if pending.mode == models.SessionModeChallenge {
		evaluation, err := s.analyzer.Evaluate(ctx, pending.challengeID, file)
		if err != nil {
			return nil, err
		}

		var challenge *models.Challenge
		if found, err := s.challenges.Get(ctx, pending.challengeID); err == nil {
			challenge = &found
		} else {
			s.logger.Warn().Err(err).Int("challenge_id", pending.challengeID).Msg("challenge unavailable for pass/fail fallback")
		}
		return FromChallengeEvaluation(pending.challengeID, evaluation, challenge), nil
	}

	report, err := s.analyzer.Transcribe(ctx, file)
	if err != nil {
		return nil, err
	}
	return FromTranscription(report), nil
}

func (s *reviewService) alert(ctx context.Context, sessionID, kind, message string) {
	alert := Alert{
		SessionID: sessionID,
		Kind:      kind,
		Message:   message,
		RaisedAt:  s.now().UTC(),
	}
	if err := s.notifier.Alert(ctx, alert); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to deliver alert")
	}
}

func audioChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func alertMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingFile):
		return MessageMissingFile
	case errors.Is(err, ErrMissingChallenge):
		return MessageMissingChallenge
	default:
		return MessageSubmissionFailed
	}
}

func displayName(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "recording"
	}
	return base
}
