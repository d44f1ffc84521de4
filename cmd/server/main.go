package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/ledgerchat/internal/api"
	"github.com/eldtechnologies/ledgerchat/internal/config"
	"github.com/eldtechnologies/ledgerchat/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Remote tier is optional; any failure here leaves the service on memory.
	remote := openRemote(ctx, cfg, logger)

	messages := store.NewMessageStore(remote, store.NewMemoryKV(), store.MessageStoreOptions{
		Timeout: cfg.KVTimeout,
		Logger:  logger,
	})
	defer messages.Close()

	// Rate limiting needs a Redis remote
	var redisClient *redis.Client
	if rkv, ok := remote.(*store.RedisKV); ok {
		redisClient = rkv.Client()
	}

	// Create router
	router := api.NewRouter(logger, cfg, messages, redisClient)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Bool("kv_configured", messages.RemoteConfigured()).
			Bool("rate_limiting", redisClient != nil).
			Msg("starting ledgerchat server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

// openRemote connects the remote KV tier when KV_URL and KV_TOKEN are set.
// It returns nil when the tier is unconfigured or cannot be opened.
func openRemote(ctx context.Context, cfg *config.Config, logger zerolog.Logger) store.KV {
	if !cfg.KVConfigured() {
		logger.Info().Msg("KV_URL/KV_TOKEN not set, storing messages in memory")
		return nil
	}

	remote, err := store.OpenRemote(ctx, store.RemoteOptions{
		URL:        cfg.KVURL,
		Token:      cfg.KVToken,
		MessageTTL: cfg.KVMessageTTL,
	})
	if err != nil {
		logger.Error().Err(err).Msg("remote KV unavailable, storing messages in memory")
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.KVTimeout)
	defer cancel()
	if err := remote.Ping(pingCtx); err != nil {
		// Keep the tier: requests fall back per call until it recovers
		logger.Warn().Err(err).Msg("remote KV not responding at startup")
	} else {
		logger.Info().Msg("connected to remote KV")
	}

	return remote
}
