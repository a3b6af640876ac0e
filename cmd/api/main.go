package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/scholarx/scholarx-backend/internal/config"
	"github.com/scholarx/scholarx-backend/internal/handler"
	"github.com/scholarx/scholarx-backend/internal/middleware"
	"github.com/scholarx/scholarx-backend/internal/repository/postgres"
	"github.com/scholarx/scholarx-backend/internal/repository/storage"
	"github.com/scholarx/scholarx-backend/internal/service"
	"github.com/scholarx/scholarx-backend/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	setupLogger(cfg)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
	log.Info().Msg("Server exited")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(cfg.LogLevel)
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	log.Info().Msg("Connected to database")

	var images storage.ImageRepository
	if cfg.S3.Enabled() {
		s3Repo, err := storage.NewS3ImageRepository(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("avatar storage: %w", err)
		}
		images = s3Repo
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Avatar storage enabled")
	} else {
		log.Warn().Msg("S3_BUCKET not set, avatar uploads disabled")
	}

	profileRepo := postgres.NewProfileRepository(pool)
	hub := websocket.NewHub()
	profiles := service.NewProfileService(profileRepo, hub, log.With().Str("component", "profile_service").Logger())
	avatars := service.NewAvatarService(images, profileRepo, hub)
	lookup := profileLookup{profiles: profiles}

	auth, err := middleware.NewAuthMiddleware(cfg.GoogleClientID, lookup)
	if err != nil {
		return fmt.Errorf("auth middleware: %w", err)
	}
	wsTokens, err := websocket.NewGoogleTokenValidator(cfg.GoogleClientID, lookup)
	if err != nil {
		return fmt.Errorf("websocket token validator: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	defer limiter.Stop()

	e := newServer(cfg, handler.Router{
		Auth:           auth,
		RateLimiter:    limiter,
		AuthHandler:    handler.NewAuthHandler(profiles),
		ProfileHandler: handler.NewProfileHandler(profiles),
		AvatarHandler:  handler.NewAvatarHandler(avatars),
		WSHandler:      handler.NewWebSocketHandler(hub, wsTokens, cfg.CORSOrigins),
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	hub.CloseAll()
	return e.Shutdown(shutdownCtx)
}

// profileLookup resolves Google subjects to profile IDs for both the HTTP
// auth middleware and the websocket token validator
type profileLookup struct {
	profiles *service.ProfileService
}

func (l profileLookup) GetProfileIDByUID(ctx context.Context, uid string) (int64, error) {
	profile, err := l.profiles.GetByUID(ctx, uid)
	if err != nil {
		return 0, err
	}
	return profile.ID, nil
}
