package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bookloan-backend/api/controllers"
	"github.com/angelmondragon/bookloan-backend/api/middleware"
	"github.com/angelmondragon/bookloan-backend/internal/identity"
	"github.com/angelmondragon/bookloan-backend/internal/lending"
	"github.com/angelmondragon/bookloan-backend/pkg/auth/session"
	"github.com/angelmondragon/bookloan-backend/pkg/config"
	"github.com/angelmondragon/bookloan-backend/pkg/db"
	"github.com/angelmondragon/bookloan-backend/pkg/logger"
	"github.com/angelmondragon/bookloan-backend/pkg/redis"
)

// LoanCommandRateLimit names the throttle applied to borrow and return.
const LoanCommandRateLimit = "loans"

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	resolver *identity.Resolver,
	sessions session.Revoker,
	lendingService lending.Service,
	loanQueries lending.QueryService,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	var (
		cache      redis.Pinger
		replays    redis.IdempotencyStore
		throttling *redis.Client
	)
	if redisClient != nil {
		cache, replays, throttling = redisClient, redisClient, redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, cache, logg))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	commandPolicy := middleware.NewRateLimitPolicy(
		LoanCommandRateLimit,
		cfg.RateLimit.CommandWindow,
		cfg.RateLimit.CommandLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(resolver, logg))

		r.Post("/auth/logout", controllers.AuthLogout(sessions, logg))

		r.Route("/loans", func(r chi.Router) {
			r.Get("/", controllers.LoansActive(loanQueries, logg))

			r.Group(func(r chi.Router) {
				if throttling != nil {
					r.Use(middleware.UserRateLimit(commandPolicy, throttling, logg))
				}
				r.Use(middleware.Idempotency(replays, cfg.Idempotency.TTL, logg))
				r.Post("/", controllers.LoanBorrow(lendingService, logg))
				r.Put("/{checkoutId}/returned", controllers.LoanReturn(lendingService, logg))
			})
		})

		r.Get("/users/me/loans", controllers.LoansMine(loanQueries, logg))
		r.Get("/books/{bookId}/loans", controllers.BookLoanHistory(loanQueries, logg))
	})

	return r
}
