package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cafe-cart/internal/analytics"
	"github.com/noah-isme/cafe-cart/internal/auth"
	"github.com/noah-isme/cafe-cart/internal/cafeapi"
	"github.com/noah-isme/cafe-cart/internal/cartstore"
	"github.com/noah-isme/cafe-cart/internal/catalog"
	"github.com/noah-isme/cafe-cart/internal/checkout"
	"github.com/noah-isme/cafe-cart/internal/common"
	"github.com/noah-isme/cafe-cart/internal/config"
	"github.com/noah-isme/cafe-cart/internal/health"
	"github.com/noah-isme/cafe-cart/internal/lock"
	"github.com/noah-isme/cafe-cart/internal/obs"
	"github.com/noah-isme/cafe-cart/internal/orders"
	"github.com/noah-isme/cafe-cart/internal/quota"
	"github.com/noah-isme/cafe-cart/internal/ratelimit"
	"github.com/noah-isme/cafe-cart/internal/resilience"
	"github.com/noah-isme/cafe-cart/internal/security"
	"github.com/noah-isme/cafe-cart/internal/session"
	"github.com/noah-isme/cafe-cart/internal/staff"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
		resilience.MustRegisterMetrics(nil)
	}

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   obs.DefaultServiceName,
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      cfg.TracingExporter,
			SamplingRatio: cfg.TracingSampleRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient = connectRedis(ctx, cfg, logger)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}
	// Typed-nil clients must not leak into the Cmdable fields below.
	var cmdable redis.Cmdable
	if redisClient != nil {
		cmdable = redisClient
	}

	breaker := resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRate, cfg.CircuitOpenFor).
		WithTarget("cafe_api").
		WithLogger(logger)
	api := cafeapi.New(cfg.CafeAPIBaseURL, resilience.HTTPClient{
		Client:      &http.Client{},
		Breaker:     breaker,
		BaseBackoff: cfg.RetryBase,
		MaxAttempts: cfg.RetryMaxAttempts,
		Jitter:      float64(cfg.RetryJitterPercent) / 100,
		Timeout:     cfg.OutboundTimeout,
	})

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		API:    api,
		Cache:  catalog.NewCache(cmdable, cfg.CatalogCacheTTL, cfg.CartKeyPrefix+"menu:"),
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: catalogService})

	sessionConfig := session.ServiceConfig{
		Items:   catalogService,
		Logger:  logger,
		LockTTL: cfg.CartLockTTL,
	}
	switch cfg.CartBackend {
	case "memory":
		sessionConfig.Backend = cartstore.NewMemory()
	default:
		sessionConfig.Backend = cartstore.Redis{Client: cmdable, TTL: cfg.CartTTL, Prefix: cfg.CartKeyPrefix}
		sessionConfig.Locker = lock.Locker{R: redisClient, Prefix: cfg.CartKeyPrefix + "lock:", MaxWait: cfg.CartLockWait}
	}
	sessions, err := session.NewService(sessionConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise session service")
	}

	authMiddleware := auth.Middleware{Profiles: api, AccessCookie: cfg.AccessCookieName}
	authHandler := &auth.Handler{API: api, Middleware: authMiddleware}
	limits := quota.Limits{PerOrder: cfg.QuotaPerOrder, PerDay: cfg.QuotaPerDay}
	cartHandler := session.NewHandler(sessions, authMiddleware, api, limits, logger)

	checkoutHandler := &checkout.Handler{Svc: &checkout.Service{
		Sessions: sessions,
		API:      api,
		Perms:    authMiddleware,
		Logger:   logger,
	}}
	ordersHandler := &orders.Handler{API: api, RequireAuth: authMiddleware.RequireAuth}
	staffHandler := &staff.Handler{API: api, Menu: catalogService, Logger: logger}
	analyticsHandler := &analytics.Handler{Svc: &analytics.Service{
		API:      api,
		R:        cmdable,
		TTL:      cfg.StatsCacheTTL,
		MaxLimit: cfg.StatsMaxLimit,
		Logger:   logger,
	}}

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBucketsMS), nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecureHeaders, EnableHSTS: cfg.AppEnv == "production", NoStore: true}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", common.IdempotencyHeader, session.HeaderName},
		ExposedHeaders:   []string{session.HeaderName, "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.PprofEnabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.PprofUser, cfg.PprofPass))
	}

	healthHandler := health.Handler{Upstream: breaker, RedisTimeout: 300 * time.Millisecond}
	if redisClient != nil {
		healthHandler.Checker = readinessChecker{redis: redisClient}
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(authMiddleware.Authenticate)
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		if cfg.AccessCookieName != "" {
			v.Use(security.CSRF{AccessCookie: cfg.AccessCookieName}.Middleware)
		}
		if limiter := newRateLimiter(cfg, redisClient, logger); limiter != nil {
			v.Use(ratelimit.Handler{
				Limiter: limiter,
				Config:  ratelimit.Config{Key: ratelimit.ClientKey, Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
				OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
			}.Middleware)
		}

		v.Route("/menu", catalogHandler.Routes)
		v.Route("/cart", cartHandler.Routes)
		v.Route("/orders", ordersHandler.Routes)

		checkoutChain := []func(http.Handler) http.Handler{session.Middleware, authMiddleware.RequireAuth}
		if cmdable != nil {
			idem := common.Idem{
				R:      cmdable,
				TTL:    cfg.IdempotencyTTL,
				Prefix: cfg.CartKeyPrefix + "idem:",
				Scope:  func(r *http.Request) string { return r.Header.Get(session.HeaderName) },
			}
			checkoutChain = append(checkoutChain, idem.Middleware)
		}
		v.With(checkoutChain...).Post("/checkout", checkoutHandler.Checkout)

		v.Get("/auth/login", authHandler.Login)
		v.Group(func(me chi.Router) {
			me.Use(authMiddleware.RequireAuth)
			me.Get("/me", authHandler.Me)
			me.Delete("/me", authHandler.DeleteMe)
			me.Get("/me/can-order", authHandler.CanOrder)
			me.Get("/me/statistics", analyticsHandler.Personal)
		})

		v.Route("/staff", func(s chi.Router) {
			s.Use(authMiddleware.RequirePermission(auth.PermManage))
			staffHandler.Routes(s)
		})
		v.Route("/stats", func(s chi.Router) {
			s.Use(authMiddleware.RequirePermission(auth.PermCMS))
			s.Get("/", analyticsHandler.Stats)
			s.Get("/export", analyticsHandler.Export)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop, release := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer release()
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-stop.Done()
		health.SetReady(false)
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("cart_backend", sessionConfig.Backend.Backend()).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	<-drained
}

func connectRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}

// newRateLimiter returns nil when no Redis is configured.
func newRateLimiter(cfg *config.Config, client *redis.Client, logger zerolog.Logger) ratelimit.Allower {
	if client == nil || cfg.RateLimitMax <= 0 {
		return nil
	}
	prefix := cfg.CartKeyPrefix + "rl:"
	if cfg.RateLimitDriver == "fixed" {
		fixed, err := ratelimit.NewFixed(client, prefix)
		if err != nil {
			logger.Error().Err(err).Msg("initialise fixed window limiter, falling back to sliding")
		} else {
			return fixed
		}
	}
	return ratelimit.Sliding{Client: client, Prefix: prefix}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	redis *redis.Client
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handle("/"+name, pprof.Handler(name))
	}
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
