package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/config"
	"github.com/Dosada05/bracket-engine/db"
	"github.com/Dosada05/bracket-engine/handlers"
	"github.com/Dosada05/bracket-engine/middleware"
	"github.com/Dosada05/bracket-engine/rating"
	"github.com/Dosada05/bracket-engine/repositories"
	api "github.com/Dosada05/bracket-engine/routes"
	"github.com/Dosada05/bracket-engine/services"
	"github.com/Dosada05/bracket-engine/storage"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const lockTTL = 10 * time.Second

type stores struct {
	tournaments repositories.TournamentRepository
	matches     repositories.MatchRepository
	ratings     repositories.RatingRepository
	close       func()
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openStores(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer repos.close()

	locker, closeLocker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize tournament locker", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeLocker()

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	publishers := []services.EventPublisher{services.NewHubPublisher(wsHub), services.NewLogPublisher(logger)}
	r2Cfg := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	}
	if r2Cfg.Enabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, r2Cfg)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archive := storage.NewResultsArchive(uploader, storage.DefaultArchiveConfig(), logger)
		publishers = append(publishers, services.NewBestEffortPublisher("results_archive", services.NewArchivePublisher(archive, logger), logger))
		logger.Info("Cloudflare R2 results archive enabled", slog.String("bucket", cfg.R2BucketName))
	}
	publisher := services.NewMultiPublisher(publishers...)

	engine, err := rating.NewEngine(cfg.Rating)
	if err != nil {
		logger.Error("invalid rating configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Инициализация сервисов
	swiss := brackets.SwissPolicy{RoundOne: cfg.SwissRoundOne}
	retryCfg := services.DefaultRetryConfig()
	ratingService := services.NewRatingService(repos.ratings, engine, retryCfg, logger)
	tournamentService := services.NewTournamentService(
		repos.tournaments,
		repos.matches,
		ratingService,
		locker,
		publisher,
		cfg.GrandFinalReset,
		logger,
	)
	bracketService := services.NewBracketService(repos.tournaments, repos.matches, publisher, cfg.Seeding, swiss, logger)
	matchService := services.NewMatchService(
		repos.tournaments,
		repos.matches,
		ratingService,
		tournamentService,
		publisher,
		swiss,
		retryCfg,
		logger,
	)
	logger.Info("Services initialized")

	// Финализатор добивает турниры, у которых не прошла публикация
	go tournamentService.RunFinalizer(ctx, cfg.FinalizerInterval)

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Tournament: handlers.NewTournamentHandler(tournamentService, bracketService),
		Match:      handlers.NewMatchHandler(matchService),
		Rating:     handlers.NewRatingHandler(ratingService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, tournamentService, logger),
	}, api.Options{
		JWTSecret:     []byte(cfg.JWTSecretKey),
		ResultLimiter: middleware.NewRateLimiter(cfg.ResultRateLimit, cfg.ResultRateBurst),
	})
	logger.Info("Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}

// openStores подключает Postgres, а без DATABASE_URL работает в памяти.
func openStores(cfg *config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set, using in-memory storage")
		mem := repositories.NewMemoryStore()
		return &stores{tournaments: mem, matches: mem, ratings: mem, close: func() {}}, nil
	}

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(dbConn, logger); err != nil {
		dbConn.Close()
		return nil, err
	}
	logger.Info("database connection established")

	return &stores{
		tournaments: repositories.NewPostgresTournamentRepository(dbConn),
		matches:     repositories.NewPostgresMatchRepository(dbConn),
		ratings:     repositories.NewPostgresRatingRepository(dbConn),
		close: func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			}
		},
	}, nil
}

func newLocker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return repositories.NewLocalLocker(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	logger.Info("Redis locker enabled")

	return repositories.NewRedisLocker(client, lockTTL, logger), func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}, nil
}
