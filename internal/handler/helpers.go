package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pitch-review/internal/middleware"
	"github.com/noah-isme/pitch-review/internal/repository"
	"github.com/noah-isme/pitch-review/internal/service"
	"github.com/noah-isme/pitch-review/pkg/analyzer"
)

const messageUpstreamUnavailable = "analysis service unavailable"

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// statusFromError maps workflow errors onto an HTTP status and the message shown to the user.
func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMissingFile):
		return fiber.StatusUnprocessableEntity, service.MessageMissingFile
	case errors.Is(err, service.ErrMissingChallenge):
		return fiber.StatusUnprocessableEntity, service.MessageMissingChallenge
	case errors.Is(err, service.ErrSubmissionInProgress):
		return fiber.StatusConflict, "analysis already in progress"
	case errors.Is(err, service.ErrSubmissionSuperseded):
		return fiber.StatusConflict, "submission was replaced by a newer change"
	case errors.Is(err, service.ErrSubmissionFailed):
		return fiber.StatusBadGateway, service.MessageSubmissionFailed
	case errors.Is(err, repository.ErrSessionNotFound):
		return fiber.StatusNotFound, "session not found"
	case errors.Is(err, service.ErrChallengeNotFound):
		return fiber.StatusNotFound, "challenge not found"
	case errors.Is(err, service.ErrInvalidMode):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, analyzer.ErrTransport),
		errors.Is(err, analyzer.ErrUpstreamStatus),
		errors.Is(err, analyzer.ErrMalformedResponse):
		return fiber.StatusBadGateway, messageUpstreamUnavailable
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}
