package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/codepad-protocol/codepad/internal/api/middleware"
	"github.com/codepad-protocol/codepad/internal/config"
	"github.com/codepad-protocol/codepad/internal/handlers"
	"github.com/codepad-protocol/codepad/internal/hub"
	"github.com/codepad-protocol/codepad/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg *config.Config, logger zerolog.Logger, dataStore store.DataStore, redisStore *store.RedisStore, h *hub.Hub) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(1 << 20)) // 1MB max body, documents included
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (needs Redis)
	if redisStore != nil {
		limiter := middleware.NewRateLimiter(redisStore.Client(), logger, middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.AutoBlockEnabled,
		})
		r.Use(limiter.Middleware)
	}

	// CORS - the editor page may be served from another origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token", "X-User-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handler := handlers.NewHandler(dataStore, redisStore, h, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/", handler.Root)
	r.Get("/health", handler.Health)
	r.Get("/api/stats", handler.Stats)

	// Realtime sync endpoint, one connection per client per document
	r.Get("/ws/editor/{documentID}", handler.EditorSocket)

	// Read-only API
	r.Get("/api/documents", handler.ListDocuments)
	r.Get("/api/documents/{documentID}", handler.GetDocument)
	r.Get("/api/documents/{documentID}/versions", handler.ListVersions)
	r.Get("/api/documents/{documentID}/collaborators", handler.ListCollaborators)
	r.Get("/api/users/search", handler.SearchUsers)

	// Mutating API (requires the anti-forgery token from the hosting page)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCSRF)

		r.Post("/api/documents", handler.CreateDocument)
		r.Post("/api/documents/{documentID}/collaborators", handler.AddCollaborator)
		r.Put("/api/documents/{documentID}/collaborators/{collaboratorID}", handler.UpdatePermission)
		r.Post("/api/users", handler.CreateUser)
	})

	return r
}
