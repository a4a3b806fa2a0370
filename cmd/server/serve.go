package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/devmadlani/auth-service/internal/config"
	"github.com/devmadlani/auth-service/internal/database"
	"github.com/devmadlani/auth-service/internal/handler"
	"github.com/devmadlani/auth-service/internal/logger"
	"github.com/devmadlani/auth-service/internal/middleware"
	"github.com/devmadlani/auth-service/internal/password"
	"github.com/devmadlani/auth-service/internal/queue"
	"github.com/devmadlani/auth-service/internal/repository"
	"github.com/devmadlani/auth-service/internal/router"
	"github.com/devmadlani/auth-service/internal/service"
	"github.com/devmadlani/auth-service/internal/token"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}
	cmd.Flags().String("port", "", "HTTP port (overrides APP_PORT)")
	cmd.Flags().Bool("migrate", false, "apply pending migrations before serving")
	_ = v.BindPFlag("app_port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("migrate", cmd.Flags().Lookup("migrate"))
	return cmd
}

func runServe(parent context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	log, err := newLogger(v)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signalContext(parent)
	defer stop()
	ctx = logger.NewContextWithLogger(ctx, log)

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Migrate {
		applied, err := database.MigrateUp(ctx, db)
		if err != nil {
			return err
		}
		log.Info("migrations applied", zap.Int64s("versions", applied))
	}

	provider, err := newKeyProvider(cfg.Auth, log)
	if err != nil {
		return err
	}
	tokens, err := token.NewService(ctx, provider, token.Config{
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
	})
	if err != nil {
		return err
	}

	var source token.KeySource = token.LocalKeys{Provider: provider}
	if cfg.Auth.JWKSURI != "" {
		remote, err := token.NewRemoteKeys(ctx, cfg.Auth.JWKSURI, nil)
		if err != nil {
			return err
		}
		source = remote
		log.Info("verifying access tokens against remote key set", zap.String("jwks_uri", cfg.Auth.JWKSURI))
	}

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		events = queue.NewAMQPPublisher(cfg.RabbitMQURL, queue.DefaultQueueName, log)
	} else {
		log.Info("RABBITMQ_URL is not set, identity events are dropped")
	}

	limit, closeLimiter := newRateLimiter(ctx, v, log)
	defer closeLimiter()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store := repository.NewStore(db)
	hasher := password.NewHasher(cfg.Auth.BcryptCost)
	cookies := handler.CookieConfig{
		Domain:     cfg.Auth.CookieDomain,
		Secure:     cfg.Prod(),
		AccessTTL:  tokens.AccessTTL(),
		RefreshTTL: tokens.RefreshTTL(),
	}

	e := router.New(router.Deps{
		Log:         log,
		Auth:        handler.NewAuthHandler(service.NewAuthService(store, tokens, hasher, events), cookies),
		Tenants:     handler.NewTenantHandler(service.NewTenantService(store, events)),
		Users:       handler.NewUserHandler(service.NewUserService(store, hasher, events)),
		Verifier:    token.NewVerifier(source),
		Keys:        provider,
		DB:          db,
		RateLimit:   limit,
		Registry:    registry,
		CORSOrigins: cfg.CORSOrigins,
	})

	return listen(ctx, e, ":"+cfg.Port, cfg.Env, log)
}

// listen serves until ctx is cancelled, then drains in-flight requests.
func listen(ctx context.Context, e *echo.Echo, addr, env string, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", env))
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newRateLimiter connects to Redis for the credential endpoint limiter.
// An unreachable Redis disables rate limiting instead of failing startup.
func newRateLimiter(ctx context.Context, v *viper.Viper, log *zap.Logger) (echo.MiddlewareFunc, func()) {
	cfg := config.LoadRateLimitConfig(v)
	if !cfg.Enabled {
		return nil, func() {}
	}
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig(v))
	if err != nil {
		log.Warn("rate limiting disabled, redis unavailable", zap.Error(err))
		return nil, func() {}
	}
	return middleware.NewTokenBucket(cfg, rdb), func() { _ = rdb.Close() }
}
