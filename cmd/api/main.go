package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-course/internal/common"
	"github.com/noah-isme/backend-course/internal/config"
	"github.com/noah-isme/backend-course/internal/health"
	"github.com/noah-isme/backend-course/internal/notify"
	"github.com/noah-isme/backend-course/internal/obs"
	"github.com/noah-isme/backend-course/internal/payment"
	"github.com/noah-isme/backend-course/internal/ratelimit"
	"github.com/noah-isme/backend-course/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("METRICS_NAMESPACE", "course")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "course-api",
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingRatio,
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
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		redisClient = redis.NewClient(redisOpts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("ping redis")
		}
	} else {
		logger.Warn().Msg("REDIS_URL not set, using in-process dedupe and no replay suppression")
	}

	var mailer common.EmailSender = common.NopEmailSender{}
	if cfg.SMTPHost != "" && cfg.EmailFrom != "" {
		mailer = notify.SMTPSender{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			FromName: cfg.EmailFromName,
		}
	} else {
		logger.Warn().Msg("SMTP not configured, course emails are dropped")
	}

	var dedupe notify.DedupeStore
	if redisClient != nil {
		dedupe = notify.RedisDedupe{R: redisClient, TTL: cfg.DedupeTTL}
	} else {
		dedupe = notify.NewMemoryDedupe(cfg.DedupeTTL)
	}

	trigger := &notify.Trigger{
		Store:        dedupe,
		Mail:         mailer,
		TelegramLink: cfg.TelegramCourseLink,
		BaseURL:      cfg.PublicBaseURL,
		Logger:       logger,
	}
	notifyHandler := &notify.Handler{Trigger: trigger}

	providers := map[string]payment.Provider{
		"liqpay": payment.LiqPay{
			PublicKey:  cfg.LiqPayPublicKey,
			PrivateKey: cfg.LiqPayPrivateKey,
			BaseURL:    cfg.PublicBaseURL,
			Currency:   cfg.Currency,
		},
		"wayforpay": payment.WayForPay{
			MerchantAccount: cfg.WayForPayMerchant,
			MerchantSecret:  cfg.WayForPaySecret,
			BaseURL:         cfg.PublicBaseURL,
			Currency:        cfg.Currency,
		},
	}
	checkoutHandler := &payment.Handler{
		Providers: providers,
		Validate:  validator.New(),
	}
	callbackHandler := payment.CallbackHandler{
		Providers:       providers,
		Trigger:         trigger,
		ReplayTTL:       cfg.ReplayTTL,
		AllowUnverified: cfg.AllowUnverified,
		DispatchTimeout: cfg.DispatchTimeout,
		Logger:          logger,
	}
	if redisClient != nil {
		callbackHandler.Replay = redisClient
	}
	if cfg.AllowUnverified {
		logger.Warn().Msg("unverified callback processing is enabled")
	}

	buckets := obs.ParseBucketsCSV(cfg.MetricsBuckets)
	httpMetrics := obs.NewHTTPMetrics(metricsNamespace, buckets, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.IsProduction(), HSTSMaxAge: 31536000}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := health.Handler{RedisTimeout: 300 * time.Millisecond}
	if redisClient != nil {
		healthHandler.Checker = readinessChecker{redis: redisClient}
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	checkoutLimiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:checkout:"},
		Policy: ratelimit.Policy{
			KeyFor: common.ClientIP,
			Window: cfg.CheckoutRateWindow,
			Max:    cfg.CheckoutRateLimit,
		},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("rate limiter unavailable")
		},
	}
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/payments/{provider}", func(p chi.Router) {
			p.With(checkoutLimiter.Middleware, idem.Middleware).Post("/checkout", checkoutHandler.CreateCheckout)
			p.Post("/callback", callbackHandler.Handle)
		})
		v.Post("/notifications/course-email", notifyHandler.SendCourseEmail)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
		close(shutdownDone)
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	<-shutdownDone
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

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
