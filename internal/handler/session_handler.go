package handler

import (
	"context"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pitch-review/internal/dto"
	"github.com/noah-isme/pitch-review/internal/models"
	"github.com/noah-isme/pitch-review/internal/service"
	"github.com/noah-isme/pitch-review/internal/utils"
)

// SessionHandler serves the JSON and websocket API of review sessions.
type SessionHandler struct {
	service     service.ReviewService
	challenges  service.ChallengeService
	validator   *validator.Validate
	submitGuard fiber.Handler
	logger      zerolog.Logger
}

// NewSessionHandler constructs a session handler. submitGuard runs in front of submissions; nil disables it.
func NewSessionHandler(service service.ReviewService, challenges service.ChallengeService, validator *validator.Validate, submitGuard fiber.Handler, logger zerolog.Logger) *SessionHandler {
	if submitGuard == nil {
		submitGuard = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &SessionHandler{
		service:     service,
		challenges:  challenges,
		validator:   validator,
		submitGuard: submitGuard,
		logger:      logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register binds the session routes.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Post("/", h.create)
	router.Get("/:id", h.get)
	router.Delete("/:id", h.reset)
	router.Post("/:id/file", h.selectFile)
	router.Put("/:id/challenge", h.selectChallenge)
	router.Post("/:id/submit", h.submitGuard, h.submit)
	router.Get("/:id/ws", h.upgrade, websocket.New(h.stream))
}

func (h *SessionHandler) create(c *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendValidationError(c, err)
	}

	ctx := requestContext(c)
	session, err := h.service.CreateSession(ctx, models.SessionMode(req.Mode))
	if err != nil {
		return h.fail(c, err, nil)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session created", h.response(ctx, session))
}

func (h *SessionHandler) get(c *fiber.Ctx) error {
	ctx := requestContext(c)
	session, err := h.service.Get(ctx, c.Params("id"))
	if err != nil {
		return h.fail(c, err, nil)
	}

	return utils.SendSuccess(c, "session", h.response(ctx, session))
}

func (h *SessionHandler) reset(c *fiber.Ctx) error {
	ctx := requestContext(c)
	session, err := h.service.Reset(ctx, c.Params("id"))
	if err != nil {
		return h.fail(c, err, nil)
	}

	return utils.SendSuccess(c, "session reset", h.response(ctx, session))
}

func (h *SessionHandler) selectFile(c *fiber.Ctx) error {
	upload, err := readUpload(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	ctx := requestContext(c)
	session, err := h.service.SelectFile(ctx, c.Params("id"), upload)
	if err != nil {
		return h.fail(c, err, nil)
	}

	return utils.SendSuccess(c, "file selected", h.response(ctx, session))
}

func (h *SessionHandler) selectChallenge(c *fiber.Ctx) error {
	var req dto.SelectChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendValidationError(c, err)
	}

	ctx := requestContext(c)
	session, err := h.service.SelectChallenge(ctx, c.Params("id"), req.ChallengeID)
	if err != nil {
		return h.fail(c, err, nil)
	}

	return utils.SendSuccess(c, "challenge selected", h.response(ctx, session))
}

func (h *SessionHandler) submit(c *fiber.Ctx) error {
	ctx := requestContext(c)
	session, err := h.service.Submit(ctx, c.Params("id"))
	if err != nil {
		var data interface{}
		if session.ID != "" {
			data = h.response(ctx, session)
		}
		return h.fail(c, err, data)
	}

	return utils.SendSuccess(c, "analysis complete", h.response(ctx, session))
}

func (h *SessionHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals("request_ctx", requestContext(c))
	return c.Next()
}

func (h *SessionHandler) stream(conn *websocket.Conn) {
	sessionID := conn.Params("id")
	ctx, _ := conn.Locals("request_ctx").(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}

	session, err := h.service.Get(ctx, sessionID)
	if err != nil {
		_, message := statusFromError(err)
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message))
		_ = conn.Close()
		return
	}

	updates, cleanup := h.service.Subscribe(sessionID)
	defer cleanup()

	h.logger.Debug().Str("session_id", sessionID).Msg("session stream connected")

	if err := conn.WriteJSON(h.response(ctx, session)); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(h.response(ctx, update)); err != nil {
				h.logger.Debug().Err(err).Str("session_id", sessionID).Msg("failed to write session update")
				return
			}
		case <-closed:
			h.logger.Debug().Str("session_id", sessionID).Msg("session stream disconnected")
			return
		}
	}
}

func (h *SessionHandler) response(ctx context.Context, session models.Session) dto.SessionResponse {
	return dto.NewSessionResponse(session, loadChallenges(ctx, h.challenges, session, h.logger))
}

func (h *SessionHandler) fail(c *fiber.Ctx, err error, data interface{}) error {
	status, message := statusFromError(err)
	logger := requestLogger(h.logger, c)
	if status >= fiber.StatusInternalServerError {
		logger.Error().Err(err).Str("session_id", c.Params("id")).Msg("session request failed")
	} else {
		logger.Debug().Err(err).Str("session_id", c.Params("id")).Msg("session request rejected")
	}
	return utils.SendErrorWithData(c, status, message, data)
}

// loadChallenges returns the catalog for challenge sessions; freeform sessions render without a picker.
func loadChallenges(ctx context.Context, challenges service.ChallengeService, session models.Session, logger zerolog.Logger) []models.Challenge {
	if challenges == nil || session.Mode != models.SessionModeChallenge {
		return nil
	}
	items, err := challenges.List(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("session_id", session.ID).Msg("challenge catalog unavailable")
		return nil
	}
	return items
}

func readUpload(c *fiber.Ctx) (service.AudioUpload, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return service.AudioUpload{}, err
	}
	file, err := header.Open()
	if err != nil {
		return service.AudioUpload{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return service.AudioUpload{}, err
	}
	return service.AudioUpload{Name: header.Filename, Data: data}, nil
}
