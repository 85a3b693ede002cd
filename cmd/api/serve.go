package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baharkarakas/imagegen-backend/internal/api"
	"github.com/baharkarakas/imagegen-backend/internal/auth"
	"github.com/baharkarakas/imagegen-backend/internal/config"
	"github.com/baharkarakas/imagegen-backend/internal/db"
	"github.com/baharkarakas/imagegen-backend/internal/generation"
	"github.com/baharkarakas/imagegen-backend/internal/metrics"
	"github.com/baharkarakas/imagegen-backend/internal/middleware"
	repo "github.com/baharkarakas/imagegen-backend/internal/repository"
	"github.com/baharkarakas/imagegen-backend/internal/repository/memory"
	"github.com/baharkarakas/imagegen-backend/internal/repository/postgres"
	"github.com/baharkarakas/imagegen-backend/internal/repository/rediscache"
	"github.com/baharkarakas/imagegen-backend/internal/services"
)

const devSecret = "fallback_secret_key_for_dev"

type stores struct {
	users  repo.Users
	images repo.Images
	audit  repo.AuditLogs
}

// app holds the wired handler and the resources to release on shutdown.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp selects the storage strategy once and wires every component.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{}
	var s stores

	if cfg.UseMemoryStore() {
		slog.Warn("DATABASE_URL not set, using in-memory store")
		m := memory.NewRepositories(memory.NewStore())
		s = stores{users: m.Users, images: m.Images, audit: m.AuditLogs}
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if cfg.Migrate {
			if err := db.RunMigrations(ctx, pool); err != nil {
				a.close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		pg := postgres.NewRepositories(pool)
		s = stores{users: pg.Users, images: pg.Images, audit: pg.AuditLogs}
	}

	var rdb *redis.Client
	guardUsers := s.users
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		guardUsers = rediscache.NewUsers(s.users, rdb, cfg.UserCacheTTL)
	}

	if cfg.JWTSecret == devSecret && cfg.Env == "prod" {
		slog.Warn("JWT_SECRET is the development default")
	}
	if cfg.AuthOffline {
		slog.Warn("AUTH_OFFLINE enabled: unresolvable tokens are trusted")
	}
	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	gen := generation.NewClient(generation.Config{
		BaseURL: cfg.GenerationAPIURL,
		APIKey:  cfg.GenerationAPIKey,
		Model:   cfg.GenerationModel,
		Timeout: cfg.GenerationTimeout,
	})

	rl, err := middleware.RateLimit(cfg.RateLimit, rdb)
	if err != nil {
		a.close()
		return nil, err
	}

	metrics.Init()
	a.handler = api.NewRouter(api.RouterDeps{
		CORSOrigins: cfg.CORSOrigins,
		UserSvc:     services.NewUserService(s.users, s.audit, tm),
		ImageSvc:    services.NewImageService(s.images, s.audit, gen),
		Guard:       middleware.NewGuard(tm, guardUsers, cfg.AuthOffline),
		RateLimit:   rl,
	})
	return a, nil
}

func runServe(ctx context.Context, cfg config.Config) error {
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "memory_store", cfg.UseMemoryStore())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMigrate(ctx context.Context, cfg config.Config) error {
	if cfg.UseMemoryStore() {
		return errors.New("DATABASE_URL is required for migrate")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()
	if err := db.RunMigrations(ctx, pool); err != nil {
		return err
	}
	slog.Info("migrations applied")
	return nil
}
