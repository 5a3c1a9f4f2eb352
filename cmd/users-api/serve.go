package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/99minutos/users-api/internal/api"
	"github.com/99minutos/users-api/internal/api/handler"
	"github.com/99minutos/users-api/internal/core/service"
	"github.com/99minutos/users-api/internal/core/validation"
	"github.com/99minutos/users-api/internal/i18n"
	"github.com/99minutos/users-api/internal/infrastructure/db/mongo"
	"github.com/99minutos/users-api/internal/infrastructure/db/redis"
	"github.com/99minutos/users-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	cfg := bootstrap()
	log := logger.Get()

	db, closeDB, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	tr, err := i18n.New(cfg.DefaultLocale)
	if err != nil {
		return fmt.Errorf("translator: %w", err)
	}

	users := redis.NewUserCache(mongo.NewUserRepository(db), rdb, cfg.Redis.CacheTTL, logger.Component("user_cache"))
	userService := service.NewUserService(
		users,
		mongo.NewRoleRepository(db),
		service.NewBcryptHasher(cfg.BcryptCost),
		validation.New(),
		logger.Component("user_service"),
	)

	e := api.NewRouter(api.Dependencies{
		Users:      userService,
		Translator: tr,
		Logger:     logger.Component("http"),
		JWTSecret:  cfg.JWTSecret,
		AdminRoles: cfg.AdminRoles,
		Checks: map[string]handler.DependencyCheck{
			"mongodb": func(ctx context.Context) error { return mongo.Ping(ctx, db) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is not set; /users is served without authentication")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
