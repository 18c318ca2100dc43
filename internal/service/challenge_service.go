package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/pitch-review/internal/models"
	"github.com/noah-isme/pitch-review/internal/observability"
	"github.com/noah-isme/pitch-review/pkg/analyzer"
)

// ErrChallengeNotFound indicates the catalog has no challenge with the requested id.
var ErrChallengeNotFound = errors.New("challenge not found")

// ChallengeService exposes the remote challenge catalog.
type ChallengeService interface {
	List(ctx context.Context) ([]models.Challenge, error)
	Get(ctx context.Context, id int) (models.Challenge, error)
}

type challengeService struct {
	client   analyzer.Analyzer
	cache    *redis.Client
	cacheKey string
	cacheTTL time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewChallengeService builds the catalog. A nil cache or zero TTL disables caching.
func NewChallengeService(client analyzer.Analyzer, cache *redis.Client, channelBase string, ttl time.Duration, logger zerolog.Logger) ChallengeService {
	if channelBase == "" {
		channelBase = "pitch:review"
	}
	return &challengeService{
		client:   client,
		cache:    cache,
		cacheKey: channelBase + ":challenges",
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "challenge_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/pitch-review/internal/service/challenge"),
	}
}

func (s *challengeService) List(ctx context.Context) ([]models.Challenge, error) {
	ctx, span := s.tracer.Start(ctx, "challenges.list")
	defer span.End()

	caching := s.cache != nil && s.cacheTTL > 0
	if caching {
		if cached, err := s.cache.Get(ctx, s.cacheKey).Bytes(); err == nil {
			var challenges []models.Challenge
			if unmarshalErr := json.Unmarshal(cached, &challenges); unmarshalErr == nil {
				observability.ChallengeCache().WithLabelValues("hit").Inc()
				span.SetAttributes(attribute.Bool("challenges.cache_hit", true))
				return challenges, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read challenge cache")
		}
		observability.ChallengeCache().WithLabelValues("miss").Inc()
	}

	remote, err := s.client.ListChallenges(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}

	challenges := make([]models.Challenge, 0, len(remote))
	for _, item := range remote {
		challenges = append(challenges, toChallenge(item))
	}

	if caching {
		if payload, err := json.Marshal(challenges); err == nil {
			if err := s.cache.Set(ctx, s.cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store challenge cache")
			}
		}
	}

	span.SetAttributes(attribute.Int("challenges.count", len(challenges)))
	return challenges, nil
}

func (s *challengeService) Get(ctx context.Context, id int) (models.Challenge, error) {
	challenges, err := s.List(ctx)
	if err != nil {
		return models.Challenge{}, err
	}
	for _, challenge := range challenges {
		if challenge.ID == id {
			return challenge, nil
		}
	}
	return models.Challenge{}, ErrChallengeNotFound
}

func toChallenge(item analyzer.Challenge) models.Challenge {
	challenge := models.Challenge{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Difficulty:  item.Difficulty,
		Category:    item.Category,
		Scenario: models.Scenario{
			CustomerProfile: item.Scenario.CustomerProfile,
			Product:         item.Scenario.Product,
			KeyObjections:   nonNilStrings(item.Scenario.KeyObjections),
			ExpectedTone:    item.Scenario.ExpectedTone,
			SuccessMetrics:  nonNilMetrics(item.Scenario.SuccessMetrics),
		},
	}
	if item.SampleSolution != nil {
		challenge.SampleSolution = &models.SampleSolution{
			Framework:        item.SampleSolution.Framework,
			RequiredElements: nonNilStrings(item.SampleSolution.RequiredElements),
			ExamplePhrases:   nonNilStrings(item.SampleSolution.ExamplePhrases),
		}
	}
	return challenge
}

func nonNilStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func nonNilMetrics(values map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
