package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bookloan-backend/api/routes"
	"github.com/angelmondragon/bookloan-backend/internal/books"
	"github.com/angelmondragon/bookloan-backend/internal/identity"
	"github.com/angelmondragon/bookloan-backend/internal/lending"
	"github.com/angelmondragon/bookloan-backend/internal/users"
	"github.com/angelmondragon/bookloan-backend/pkg/auth/session"
	"github.com/angelmondragon/bookloan-backend/pkg/clock"
	"github.com/angelmondragon/bookloan-backend/pkg/config"
	"github.com/angelmondragon/bookloan-backend/pkg/db"
	"github.com/angelmondragon/bookloan-backend/pkg/logger"
	"github.com/angelmondragon/bookloan-backend/pkg/metrics"
	"github.com/angelmondragon/bookloan-backend/pkg/migrate"
	"github.com/angelmondragon/bookloan-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	resolver, err := identity.NewResolver(cfg.JWT, sessionManager, users.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "identity resolver", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	catalog := books.NewRepository(dbClient.DB())
	loans := lending.NewRepository(dbClient.DB())

	lendingService, err := lending.NewService(dbClient, loans, catalog, lending.NewRolePolicy(), logg, lending.ServiceParams{
		TxTimeout: cfg.Lending.TxTimeout,
		Clock:     clock.NewSystem(),
		Metrics:   metrics.NewLendingMetrics(registry),
	})
	requireResource(ctx, logg, "lending service", err)

	loanQueries, err := lending.NewQueryService(loans, catalog, logg)
	requireResource(ctx, logg, "loan query service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, resolver, sessionManager, lendingService, loanQueries, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	case runErr = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	runErr = multierr.Combine(
		runErr,
		server.Shutdown(shutdownCtx),
		redisClient.Close(),
		dbClient.Close(),
	)
	if runErr != nil {
		logg.Error(ctx, "api server stopped with errors", runErr)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
