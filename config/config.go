package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/rating"
	"github.com/Dosada05/bracket-engine/seeding"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	ServerPort   int
	DatabaseURL  string // пусто - хранилище в памяти
	JWTSecretKey string
	LogLevel     slog.Level
	RedisURL     string // пусто - локальные блокировки

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	Rating            rating.Config
	Seeding           seeding.Config
	GrandFinalReset   bool
	SwissRoundOne     brackets.SwissRoundOne
	ResultRateLimit   float64 // запросов в секунду на клиента
	ResultRateBurst   int
	FinalizerInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(envOr("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
	}

	ratingCfg, err := loadRating()
	if err != nil {
		return nil, err
	}

	seedingCfg := seeding.DefaultConfig()
	if raw := os.Getenv("SEEDING_WEIGHTS"); raw != "" {
		seedingCfg, err = seeding.ParseWeights(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SEEDING_WEIGHTS environment variable: %w", err)
		}
	}

	reset, err := boolEnv("GRAND_FINAL_RESET", true)
	if err != nil {
		return nil, err
	}

	swiss := brackets.SwissRoundOne(envOr("SWISS_ROUND_ONE", string(brackets.SwissTopVsBottom)))
	if swiss != brackets.SwissTopVsBottom && swiss != brackets.SwissAdjacent {
		return nil, fmt.Errorf("SWISS_ROUND_ONE must be %q or %q, got %q", brackets.SwissTopVsBottom, brackets.SwissAdjacent, swiss)
	}

	rateLimit, err := floatEnv("RESULT_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	if rateLimit <= 0 {
		return nil, fmt.Errorf("RESULT_RATE_LIMIT must be positive, got %v", rateLimit)
	}
	burst, err := intEnv("RESULT_RATE_BURST", 10)
	if err != nil {
		return nil, err
	}

	interval, err := durationEnv("FINALIZER_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:        port,
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecretKey:      jwtKey,
		LogLevel:          level,
		RedisURL:          os.Getenv("REDIS_URL"),
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		Rating:            ratingCfg,
		Seeding:           seedingCfg,
		GrandFinalReset:   reset,
		SwissRoundOne:     swiss,
		ResultRateLimit:   rateLimit,
		ResultRateBurst:   burst,
		FinalizerInterval: interval,
	}

	return cfg, nil
}

func loadRating() (rating.Config, error) {
	cfg := rating.DefaultConfig()
	var err error
	if cfg.BaseRating, err = intEnv("RATING_BASE", cfg.BaseRating); err != nil {
		return cfg, err
	}
	if cfg.MinRating, err = intEnv("RATING_MIN", cfg.MinRating); err != nil {
		return cfg, err
	}
	if cfg.MaxRating, err = intEnv("RATING_MAX", cfg.MaxRating); err != nil {
		return cfg, err
	}
	if cfg.TournamentMultiplier, err = floatEnv("RATING_TOURNAMENT_MULTIPLIER", cfg.TournamentMultiplier); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid rating configuration: %w", err)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return v, nil
}
