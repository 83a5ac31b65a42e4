package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/voxhall/voxhall/internal/adapters/http"
	"github.com/voxhall/voxhall/internal/app"
	"github.com/voxhall/voxhall/internal/config"
	"github.com/voxhall/voxhall/internal/core"
	"github.com/voxhall/voxhall/internal/identity"
	"github.com/voxhall/voxhall/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	roomStore := newRoomStore(cfg)

	reg := core.NewRegistry()
	presence := app.NewPresenceBroadcaster(reg, cfg.PresenceInterval)
	lifecycle := app.NewRoomLifecycleManager(roomStore, reg, presence, cfg.RoomTTL)
	relay := app.NewSignalingRelay(reg)
	moderation := app.NewModerationController(reg, presence, lifecycle)

	orch := &app.Orchestrator{
		Registry:   reg,
		Presence:   presence,
		Relay:      relay,
		Moderation: moderation,
		Lifecycle:  lifecycle,
	}

	roomStore.OnExpire(lifecycle.HandleExpiry)
	roomStore.Start(ctx)
	if err := lifecycle.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("room restore failed")
	}

	provider := newIdentityProvider(cfg)

	r := router.SetupRouter(ctx, cfg, orch, provider)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Voxhall server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	presence.Shutdown()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

func newRoomStore(cfg *config.Config) store.RoomStore {
	if cfg.RedisAddr == "" {
		log.Info().Msg("no redis configured, using in-memory room store")
		return store.NewMemoryStore(cfg.ExpiryPoll)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	log.Info().Str("addr", cfg.RedisAddr).Msg("using redis room store")
	return store.NewRedisStore(client, cfg.ExpiryPoll)
}

func newIdentityProvider(cfg *config.Config) identity.Provider {
	if cfg.IdentityURL == "" {
		log.Warn().Msg("no identity service configured, all connections will be anonymous")
		return &identity.StaticProvider{}
	}
	return identity.NewHTTPProvider(cfg.IdentityURL, identity.RetryPolicy{
		Attempts: cfg.IdentityRetries,
		Backoff:  cfg.IdentityRetryBackoff,
	})
}
