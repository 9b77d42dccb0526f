package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/bracket-engine/handlers"
	"github.com/Dosada05/bracket-engine/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Tournament *handlers.TournamentHandler
	Match      *handlers.MatchHandler
	Rating     *handlers.RatingHandler
	WebSocket  *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	ResultLimiter  *middleware.RateLimiter
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", handlers.HealthHandler)
	router.Get("/swagger/doc.json", handlers.OpenAPIHandler)
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// WebSocket без таймаута запроса
	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	authenticate := middleware.Authenticate(opts.JWTSecret)

	router.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Route("/tournaments", func(r chi.Router) {
			// Публичные маршруты
			r.Get("/{tournamentID}", h.Tournament.GetByIDHandler)
			r.Get("/{tournamentID}/bracket", h.Tournament.GetBracketHandler)
			r.Get("/{tournamentID}/bracket/audit", h.Tournament.AuditBracketHandler)

			// Только для организаторов
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(middleware.Authorize(middleware.RoleOrganizer))

				r.Post("/", h.Tournament.CreateHandler)
				r.Post("/{tournamentID}/players", h.Tournament.RegisterPlayerHandler)
				r.Post("/{tournamentID}/seeding", h.Tournament.PreviewSeedingHandler)
				r.Post("/{tournamentID}/bracket", h.Tournament.GenerateBracketHandler)
				r.Post("/{tournamentID}/cancel", h.Tournament.CancelHandler)
			})
		})

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(middleware.RoleReporter, middleware.RoleOrganizer))

			r.Post("/start", h.Match.StartHandler)
			r.With(limit(opts.ResultLimiter)).Post("/result", h.Match.ReportResultHandler)
		})

		r.Route("/ratings", func(r chi.Router) {
			r.Get("/{playerID}/{gameID}", h.Rating.SnapshotHandler)
			r.With(authenticate, middleware.Authorize(middleware.RoleReporter)).Post("/casual", h.Rating.CasualHandler)
		})
	})
}

func limit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware
}
