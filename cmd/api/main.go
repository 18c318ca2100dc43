package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pitch-review/internal/config"
	"github.com/noah-isme/pitch-review/internal/database"
	"github.com/noah-isme/pitch-review/internal/handler"
	"github.com/noah-isme/pitch-review/internal/middleware"
	"github.com/noah-isme/pitch-review/internal/repository"
	"github.com/noah-isme/pitch-review/internal/router"
	"github.com/noah-isme/pitch-review/internal/service"
	"github.com/noah-isme/pitch-review/pkg/analyzer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "production" {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured, sessions are kept in memory on this node")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	analysisClient, err := analyzer.New(analyzer.Config{
		BaseURL: cfg.AnalyzerBaseURL,
		Timeout: cfg.AnalyzerTimeout,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("failed to create analyzer client: %v", err)
	}

	var sessionRepo repository.SessionRepository
	if redisClient != nil {
		sessionRepo = repository.NewRedisSessionRepository(redisClient, cfg.ChannelBase, cfg.SessionTTL)
	} else {
		sessionRepo = repository.NewMemorySessionRepository(cfg.SessionTTL)
	}

	notifier := service.NewLogNotifier(logger)
	if natsConn != nil {
		notifier = service.NewMultiNotifier(notifier, service.NewNATSNotifier(natsConn, cfg.ChannelBase))
	}

	events := service.NewSessionEvents(redisClient, natsConn, cfg.ChannelBase, logger)
	events.Start(ctx)

	challengeService := service.NewChallengeService(analysisClient, redisClient, cfg.ChannelBase, cfg.ChallengeCacheTTL, logger)
	reviewService := service.NewReviewService(service.ReviewServiceConfig{
		Sessions:   sessionRepo,
		Challenges: challengeService,
		Analyzer:   analysisClient,
		Notifier:   notifier,
		Events:     events,
		HintBytes:  cfg.UploadHintBytes(),
		Logger:     logger,
	})

	validate := validator.New(validator.WithRequiredStructEnabled())
	submitLimiter := middleware.RateLimit("submit", cfg.SubmitRateLimit, cfg.SubmitRateWindow)

	sessionHandler := handler.NewSessionHandler(reviewService, challengeService, validate, submitLimiter, logger)
	challengeHandler := handler.NewChallengeHandler(challengeService, logger)
	pageHandler := handler.NewPageHandler(reviewService, challengeService, validate, submitLimiter, handler.PageConfig{
		Title:      "Sales Pitch Analyzer",
		CookieName: cfg.SessionCookie,
		CookieTTL:  cfg.SessionTTL,
	}, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.BodyLimitBytes(),
	})

	middleware.Register(app, middleware.Config{
		Logger:         &logger,
		AllowedOrigins: cfg.AllowedOrigins(),
		AccessLog:      cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		SessionHandler:   sessionHandler,
		ChallengeHandler: challengeHandler,
		PageHandler:      pageHandler,
		HealthProbes:     healthProbes(redisClient, natsConn),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Str("analyzer", cfg.AnalyzerBaseURL).Msg("pitch review server started")
	waitForShutdown(ctx, app, logger)
}

func healthProbes(redisClient *redis.Client, natsConn *nats.Conn) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if natsConn != nil {
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return errors.New(natsConn.Status().String())
			}
			return nil
		}
	}
	return probes
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	// Submissions in flight may be waiting on the analyzer; give them longer than a plain request.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
