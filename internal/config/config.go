package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the pitch review service.
type Config struct {
	AppName            string        `validate:"required"`
	AppEnv             string        `validate:"required"`
	AppPort            string        `validate:"required"`
	AnalyzerBaseURL    string        `validate:"required,url"`
	AnalyzerTimeout    time.Duration `validate:"gte=0"`
	RedisURL           string
	NATSURL            string
	ChannelBase        string
	SessionTTL         time.Duration `validate:"gt=0"`
	SessionCookie      string        `validate:"required"`
	ChallengeCacheTTL  time.Duration `validate:"gte=0"`
	UploadHintMB       int           `validate:"gt=0"`
	BodyLimitMB        int           `validate:"gt=0"`
	SubmitRateLimit    int           `validate:"gt=0"`
	SubmitRateWindow   time.Duration `validate:"gt=0"`
	CORSAllowedOrigins string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// UploadHintBytes is the advertised (not enforced) upload size.
func (c Config) UploadHintBytes() int64 {
	return int64(c.UploadHintMB) * 1024 * 1024
}

// BodyLimitBytes is the hard ceiling on request bodies.
func (c Config) BodyLimitBytes() int {
	return c.BodyLimitMB * 1024 * 1024
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PITCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Pitch Review")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("analyzer.base_url", "http://127.0.0.1:8000")
	v.SetDefault("analyzer.timeout", "2m")
	v.SetDefault("channel.base", "pitch:review")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.cookie", "pitch_session")
	v.SetDefault("challenges.cache_ttl", "5m")
	v.SetDefault("upload.hint_mb", 5)
	v.SetDefault("upload.body_limit_mb", 50)
	v.SetDefault("submit.rate_limit", 10)
	v.SetDefault("submit.rate_window", "1m")
	v.SetDefault("cors.allowed_origins", "*")

	durations := map[string]time.Duration{}
	for _, key := range []string{"analyzer.timeout", "session.ttl", "challenges.cache_ttl", "submit.rate_window"} {
		parsed, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		AnalyzerBaseURL:    strings.TrimRight(v.GetString("analyzer.base_url"), "/"),
		AnalyzerTimeout:    durations["analyzer.timeout"],
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		ChannelBase:        v.GetString("channel.base"),
		SessionTTL:         durations["session.ttl"],
		SessionCookie:      v.GetString("session.cookie"),
		ChallengeCacheTTL:  durations["challenges.cache_ttl"],
		UploadHintMB:       v.GetInt("upload.hint_mb"),
		BodyLimitMB:        v.GetInt("upload.body_limit_mb"),
		SubmitRateLimit:    v.GetInt("submit.rate_limit"),
		SubmitRateWindow:   durations["submit.rate_window"],
		CORSAllowedOrigins: v.GetString("cors.allowed_origins"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
