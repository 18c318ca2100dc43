package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pitch-review/internal/dto"
	"github.com/noah-isme/pitch-review/internal/service"
	"github.com/noah-isme/pitch-review/internal/utils"
)

// ChallengeHandler exposes the challenge catalog.
type ChallengeHandler struct {
	service service.ChallengeService
	logger  zerolog.Logger
}

// NewChallengeHandler constructs a challenge handler.
func NewChallengeHandler(service service.ChallengeService, logger zerolog.Logger) *ChallengeHandler {
	return &ChallengeHandler{
		service: service,
		logger:  logger.With().Str("component", "challenge_handler").Logger(),
	}
}

// Register binds the catalog routes.
func (h *ChallengeHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/:id", h.detail)
}

func (h *ChallengeHandler) list(c *fiber.Ctx) error {
	challenges, err := h.service.List(requestContext(c))
	if err != nil {
		status, message := statusFromError(err)
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list challenges")
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "challenges", dto.NewChallengeListResponse(challenges))
}

func (h *ChallengeHandler) detail(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid challenge id")
	}

	challenge, err := h.service.Get(requestContext(c), id)
	if err != nil {
		status, message := statusFromError(err)
		if status >= fiber.StatusInternalServerError {
			requestLogger(h.logger, c).Error().Err(err).Int("challenge_id", id).Msg("failed to load challenge")
		}
		return utils.SendError(c, status, message)
	}

	return utils.SendSuccess(c, "challenge", challenge)
}
