package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/ledgerchat/internal/api/middleware"
	"github.com/eldtechnologies/ledgerchat/internal/config"
	"github.com/eldtechnologies/ledgerchat/internal/handlers"
)

const maxBodyBytes = 16 * 1024

// NewRouter creates and configures the HTTP router.
// redisClient may be nil, in which case rate limiting is off.
func NewRouter(logger zerolog.Logger, cfg *config.Config, messages handlers.MessageStore, redisClient *redis.Client) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// CORS ahead of anything that can reject, so browsers can read errors
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	trusted, invalid := middleware.ParseIPList(cfg.TrustedProxies)
	for _, entry := range invalid {
		logger.Warn().Str("entry", entry).Msg("invalid entry in TRUSTED_PROXIES")
	}
	r.Use(chimw.RequestID)
	r.Use(middleware.ClientIP(trusted))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	// Rate limiting
	limiter := middleware.NewRateLimiter(redisClient, logger, middleware.RateLimiterConfig{
		Whitelist:        cfg.RateLimitWhitelist,
		AutoBlockEnabled: cfg.AutoBlockEnabled,
		Timeout:          cfg.KVTimeout,
	})
	r.Use(limiter.Middleware)

	h := handlers.NewHandler(messages, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api", h.Root)
	r.Get("/health", h.Health)

	r.Get("/chat/{roomId}", h.GetRoomMessages)
	r.Post("/chat/{roomId}", h.AppendMessage)
	r.Patch("/chat/{roomId}", h.RoomStatus)

	return r
}
