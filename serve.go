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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/NileshSanyal/supermart-backend/internal/config"
	"github.com/NileshSanyal/supermart-backend/internal/db"
	"github.com/NileshSanyal/supermart-backend/internal/handler"
	"github.com/NileshSanyal/supermart-backend/internal/logging"
	"github.com/NileshSanyal/supermart-backend/internal/mail"
	"github.com/NileshSanyal/supermart-backend/internal/metrics"
	"github.com/NileshSanyal/supermart-backend/internal/password"
	"github.com/NileshSanyal/supermart-backend/internal/ratelimit"
	"github.com/NileshSanyal/supermart-backend/internal/service"
	"github.com/NileshSanyal/supermart-backend/internal/token"
)

const shutdownTimeout = 10 * time.Second

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger := logging.Setup("supermart-backend", version, cfg.Server.LogFormat, os.Stderr)
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open account store", "driver", cfg.Store.Driver, "error", err)
		return err
	}
	defer closeStore()

	tokens, err := token.NewManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTAccessTTL)
	if err != nil {
		return err
	}
	hasher := password.NewArgon2idHasher(password.DefaultParams)
	m := metrics.New()

	authOpts := []service.AuthOption{service.WithMetrics(m)}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		authOpts = append(authOpts, service.WithLimiter(ratelimit.New(rdb, ratelimit.Config{
			MaxAttempts: cfg.Auth.LoginMaxAttempts,
			Lockout:     cfg.Auth.LoginLockout,
		})))
		logger.Info("login throttling enabled", "redis_addr", cfg.Redis.Addr)
	}

	authSvc, err := service.NewAuthService(store, tokens, hasher, logger, authOpts...)
	if err != nil {
		return err
	}
	userSvc := service.NewUserService(store, hasher, mail.New(cfg.SMTP, logger), m, logger, cfg.Auth.AllowAdminSignup)

	// Left nil when unconfigured so the Google routes answer 404.
	var google interface {
		AuthCodeURL(state string) string
		SignIn(ctx context.Context, code string) (token.Pair, error)
	}
	if cfg.Google.Enabled() {
		google = service.NewGoogleAuthService(ctx, cfg.Google, store, hasher, tokens, m, logger)
		logger.Info("google sign-in enabled")
	}

	router := handler.NewRouter(handler.RouterConfig{
		Logger:           logger,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: cfg.Server.AllowCredentials,
		Verifier:         authSvc,
		Auth:             handler.NewAuthHandler(authSvc, userSvc, google),
		Users:            handler.NewUserHandler(userSvc),
		Metrics:          m.Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore connects the configured account backend and returns its closer.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (service.AccountStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMongo:
		client, users, err := db.ConnectMongo(ctx, cfg.Mongo, cfg.Store, logger)
		if err != nil {
			return nil, nil, err
		}
		store := db.NewMongo(users)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return store, func() { _ = client.Disconnect(context.Background()) }, nil
	default:
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres, cfg.Store, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return db.NewPostgres(pool), pool.Close, nil
	}
}
