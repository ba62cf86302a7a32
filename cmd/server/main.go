// @title                       Classifieds API
// @version                     1.0
// @description                 Classified advertisements with accounts, bearer-token sessions and owner-or-admin access control.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the token.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/adboard/classifieds/internal/api"
	"github.com/adboard/classifieds/internal/api/handler"
	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
	"github.com/adboard/classifieds/internal/core/service"
	"github.com/adboard/classifieds/internal/infrastructure/db/memory"
	mongostore "github.com/adboard/classifieds/internal/infrastructure/db/mongo"
	redisstore "github.com/adboard/classifieds/internal/infrastructure/db/redis"
	"github.com/adboard/classifieds/internal/infrastructure/db/sqlite"
	"github.com/adboard/classifieds/internal/pkg/config"
	"github.com/adboard/classifieds/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "classifieds: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "classifieds",
	})
	log.Info().Stringer("config", cfg).Msg("configuration loaded")

	store, err := openStore(ctx, cfg, logger.For("store"))
	if err != nil {
		return err
	}
	defer store.close()

	hasher := service.NewBcryptHasher(cfg.Auth.BcryptCost, cfg.Auth.PasswordPepper)
	tokens, err := service.NewTokenService(service.TokenConfig{
		Secret:    cfg.Auth.JWTSecret,
		Algorithm: cfg.Auth.JWTAlgorithm,
		Issuer:    cfg.Auth.JWTIssuer,
		TTL:       cfg.Auth.TokenTTL,
	})
	if err != nil {
		return err
	}

	users := service.NewUserService(store.users, hasher, logger.For("users"))
	auth := service.NewAuthService(users, hasher, tokens, logger.For("auth"))
	ads := service.NewAdvertisementService(store.ads, store.idempotency, logger.For("advertisements"))

	if err := seedUsers(ctx, users, cfg.Seed); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	e := api.NewRouter(api.Deps{
		Auth:           auth,
		Users:          users,
		Advertisements: ads,
		Logger:         logger.For("http"),
		HealthChecks:   store.checks,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Backend).Msg("starting HTTP server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	log.Info().Msg("server stopped gracefully")
	return nil
}

// backends bundles the repositories selected by configuration together with
// their readiness checks and cleanup.
type backends struct {
	users       ports.UserRepository
	ads         ports.AdvertisementRepository
	idempotency ports.IdempotencyStore
	checks      map[string]handler.Check
	closers     []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backends, error) {
	b := &backends{checks: map[string]handler.Check{}}

	switch cfg.Store.Backend {
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = db.Close() })
		b.users = sqlite.NewUserRepository(db)
		b.ads = sqlite.NewAdvertisementRepository(db)
		b.checks["sqlite"] = db.PingContext
		log.Info().Str("path", cfg.Store.SQLitePath).Msg("using sqlite store")

	case config.BackendMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Disconnect(context.Background()) })
		userRepo := mongostore.NewUserRepository(db)
		adRepo := mongostore.NewAdvertisementRepository(db)
		if err := userRepo.EnsureIndexes(ctx); err != nil {
			b.close()
			return nil, err
		}
		if err := adRepo.EnsureIndexes(ctx); err != nil {
			b.close()
			return nil, err
		}
		b.users, b.ads = userRepo, adRepo
		b.checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		log.Info().Str("database", cfg.Mongo.Database).Msg("using mongo store")

	default:
		b.users = memory.NewUserRepository()
		b.ads = memory.NewAdvertisementRepository()
		log.Warn().Msg("using in-memory store; data is lost on restart")
	}

	if cfg.Redis.Addr == "" {
		b.idempotency = memory.NewIdempotencyStore(cfg.Redis.IdempotencyTTL)
		return b, nil
	}

	client, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		b.close()
		return nil, err
	}
	b.closers = append(b.closers, func() { _ = client.Close() })
	b.idempotency = redisstore.NewIdempotencyStore(client, cfg.Redis.IdempotencyTTL)
	b.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis idempotency store")
	return b, nil
}

// seedUsers creates the configured bootstrap accounts. Existing accounts are
// left untouched.
func seedUsers(ctx context.Context, users ports.UserService, seed config.SeedConfig) error {
	for _, s := range []ports.SeedUser{
		{Username: seed.AdminUsername, Password: seed.AdminPassword, Role: domain.RoleAdmin},
		{Username: seed.UserUsername, Password: seed.UserPassword, Role: domain.RoleUser},
	} {
		if s.Username == "" {
			continue
		}
		if _, err := users.Seed(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
