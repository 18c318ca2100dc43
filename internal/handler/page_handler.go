package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pitch-review/internal/dto"
	"github.com/noah-isme/pitch-review/internal/models"
	"github.com/noah-isme/pitch-review/internal/repository"
	"github.com/noah-isme/pitch-review/internal/service"
	"github.com/noah-isme/pitch-review/internal/view"
)

// PageConfig configures the server rendered page.
type PageConfig struct {
	Title      string
	CookieName string
	CookieTTL  time.Duration
}

// PageHandler serves the HTML page and its plain form posts.
type PageHandler struct {
	service     service.ReviewService
	challenges  service.ChallengeService
	validator   *validator.Validate
	submitGuard fiber.Handler
	cfg         PageConfig
	logger      zerolog.Logger
}

// NewPageHandler constructs the page handler. submitGuard runs in front of form submissions; nil disables it.
func NewPageHandler(service service.ReviewService, challenges service.ChallengeService, validator *validator.Validate, submitGuard fiber.Handler, cfg PageConfig, logger zerolog.Logger) *PageHandler {
	if cfg.Title == "" {
		cfg.Title = "Sales Pitch Analyzer"
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "pitch_session"
	}
	if submitGuard == nil {
		submitGuard = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &PageHandler{
		service:     service,
		challenges:  challenges,
		validator:   validator,
		submitGuard: submitGuard,
		cfg:         cfg,
		logger:      logger.With().Str("component", "page_handler").Logger(),
	}
}

// Register binds the page routes.
func (h *PageHandler) Register(router fiber.Router) {
	router.Get("/", h.index)

	forms := router.Group("/sessions/:id")
	forms.Post("/file", h.selectFile)
	forms.Post("/challenge", h.selectChallenge)
	forms.Post("/submit", h.submitGuard, h.submit)
	forms.Post("/reset", h.reset)
}

func (h *PageHandler) index(c *fiber.Ctx) error {
	ctx := requestContext(c)
	requested := models.SessionMode(c.Query("mode"))
	if requested != "" && !requested.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "unknown mode")
	}

	session, err := h.currentSession(ctx, c, requested)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load page session")
		return fiber.NewError(fiber.StatusInternalServerError, "session unavailable")
	}

	page := view.Build(session, loadChallenges(ctx, h.challenges, session, h.logger))
	c.Type("html", "utf-8")
	return view.Render(c, h.cfg.Title, page)
}

// currentSession resumes the cookie session, starting a new one when it is missing, expired or of another mode.
func (h *PageHandler) currentSession(ctx context.Context, c *fiber.Ctx, requested models.SessionMode) (models.Session, error) {
	if id := c.Cookies(h.cfg.CookieName); id != "" {
		session, err := h.service.Get(ctx, id)
		switch {
		case err == nil && (requested == "" || requested == session.Mode):
			return session, nil
		case err != nil && !errors.Is(err, repository.ErrSessionNotFound):
			return models.Session{}, err
		}
	}

	session, err := h.service.CreateSession(ctx, requested)
	if err != nil {
		return models.Session{}, err
	}

	cookie := &fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    session.ID,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if h.cfg.CookieTTL > 0 {
		cookie.Expires = time.Now().Add(h.cfg.CookieTTL)
	}
	c.Cookie(cookie)
	return session, nil
}

func (h *PageHandler) selectFile(c *fiber.Ctx) error {
	upload, err := readUpload(c)
	if err != nil {
		return h.back(c)
	}
	_, err = h.service.SelectFile(requestContext(c), c.Params("id"), upload)
	return h.afterAction(c, err)
}

func (h *PageHandler) selectChallenge(c *fiber.Ctx) error {
	var req dto.SelectChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form")
	}
	if err := h.validator.Struct(req); err != nil {
		if isValidationError(err) {
			return h.back(c)
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	_, err := h.service.SelectChallenge(requestContext(c), c.Params("id"), req.ChallengeID)
	return h.afterAction(c, err)
}

func (h *PageHandler) submit(c *fiber.Ctx) error {
	_, err := h.service.Submit(requestContext(c), c.Params("id"))
	return h.afterAction(c, err)
}

func (h *PageHandler) reset(c *fiber.Ctx) error {
	_, err := h.service.Reset(requestContext(c), c.Params("id"))
	return h.afterAction(c, err)
}

// afterAction redirects back to the page. Errors the session records as an alert render there;
// anything else becomes an error status.
func (h *PageHandler) afterAction(c *fiber.Ctx, err error) error {
	if err == nil {
		return h.back(c)
	}

	switch {
	case errors.Is(err, service.ErrMissingFile),
		errors.Is(err, service.ErrMissingChallenge),
		errors.Is(err, service.ErrSubmissionFailed),
		errors.Is(err, service.ErrSubmissionInProgress),
		errors.Is(err, service.ErrSubmissionSuperseded),
		errors.Is(err, repository.ErrSessionNotFound):
		return h.back(c)
	}

	status, message := statusFromError(err)
	if status >= fiber.StatusInternalServerError {
		requestLogger(h.logger, c).Error().Err(err).Str("session_id", c.Params("id")).Msg("page action failed")
	}
	return fiber.NewError(status, message)
}

func (h *PageHandler) back(c *fiber.Ctx) error {
	return c.Redirect("/", fiber.StatusSeeOther)
}
