package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"guild-registration-bot/internal/config"
	"guild-registration-bot/internal/domain/ports/repository"
	"guild-registration-bot/internal/infra/chat"
	"guild-registration-bot/internal/infra/db/postgres"
	"guild-registration-bot/internal/infra/logging"
	"guild-registration-bot/internal/infra/metrics"
	redisinfra "guild-registration-bot/internal/infra/redis"
	"guild-registration-bot/internal/infra/store"
	"guild-registration-bot/internal/infra/web"
	"guild-registration-bot/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dev := flag.Bool("dev", false, "enable dev mode (console logging, debug level)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath, *dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, *dev)
	logger.Info().Str("bot", cfg.Bot.Name).Str("storage", cfg.Storage.Backend).Msg("starting up")

	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("fatal")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	redisClient, err := redisinfra.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()
	registry := redisinfra.NewSessionRegistry(redisClient)

	// The gateway doubles as member directory and command source. The
	// in-memory implementation backs dev mode and tests; a platform-backed
	// one slots in here without touching anything below.
	gateway := chat.NewMemoryGateway()
	defer gateway.Close()

	configs, adminRoles, cleanup, err := buildStores(ctx, cfg, gateway, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	resolver := usecase.NewResolveUseCase(gateway, gateway, logger)
	registerUC := usecase.NewRegisterUseCase(gateway, configs, registry, resolver, logger)
	adminUC := usecase.NewAdminUseCase(configs, adminRoles, gateway, gateway, logger)

	router := chat.NewRouter(gateway, gateway, adminUC, registerUC, logger)
	go router.Run(ctx)

	auth := web.NewAuthManager(cfg.Web.JWTSecret, 30*time.Minute)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Web.Port),
		Handler: web.NewServer(configs, adminRoles, auth, logger).Routes(),
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("ops API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("ops API: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("ops API shutdown")
	}
	return nil
}

// buildStores picks the storage backend. Message storage needs only the
// gateway; postgres needs a pool whose lifetime the returned cleanup owns.
func buildStores(ctx context.Context, cfg *config.Config, gateway *chat.MemoryGateway, logger *zerolog.Logger) (repository.ConfigRepository, repository.AdminRoleRepository, func(), error) {
	switch cfg.Storage.Backend {
	case "message":
		return store.NewMessageConfigRepo(gateway, store.DefaultDataCategory, logger),
			store.NewMessageAdminRepo(gateway, store.DefaultDataCategory, logger),
			func() {}, nil
	case "postgres":
		pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 8)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.NewPostgresConfigRepo(pool),
			postgres.NewPostgresAdminRepo(pool),
			pool.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
