package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	identityapp "github.com/mpp365/backend/internal/application/identity"
	subscriptionapp "github.com/mpp365/backend/internal/application/subscription"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/auth"
	"github.com/mpp365/backend/internal/infrastructure/cache"
	"github.com/mpp365/backend/internal/infrastructure/config"
	"github.com/mpp365/backend/internal/infrastructure/event"
	"github.com/mpp365/backend/internal/infrastructure/logger"
	"github.com/mpp365/backend/internal/infrastructure/persistence"
	"github.com/mpp365/backend/internal/infrastructure/storage"
	"github.com/mpp365/backend/internal/infrastructure/telemetry"
	"github.com/mpp365/backend/internal/interfaces/http/handler"
	"github.com/mpp365/backend/internal/interfaces/http/middleware"
	"github.com/mpp365/backend/internal/interfaces/http/router"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

// application holds the wired services and handlers
type application struct {
	log      *zap.Logger
	clock    subscription.Clock
	catalog  *subscription.Catalog
	tenants  *persistence.GormTenantRepository
	jwt      *auth.JWTService
	tokens   auth.TokenBlacklist
	counter  cache.WindowCounter
	meter    metric.Meter
	metrics  *telemetry.SubscriptionMetrics
	expiry   *subscriptionapp.ExpiryService
	handlers router.Handlers
}

func newApplication(
	cfg *config.Config,
	log *zap.Logger,
	db *persistence.Database,
	rdb redis.UniversalClient,
	store storage.ObjectStore,
	meter metric.Meter,
) (*application, error) {
	clock, err := subscription.NewClock(cfg.Subscription.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid subscription timezone: %w", err)
	}
	catalog := subscription.DefaultCatalog()

	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	reportRepo := persistence.NewGormPaymentReportRepository(db.DB)
	abuseRepo := persistence.NewGormTrialAbuseRepository(db.DB)
	tx := persistence.NewTxManager(db.DB)

	metrics, err := telemetry.NewSubscriptionMetrics(meter, tenantRepo, log)
	if err != nil {
		return nil, fmt.Errorf("failed to register subscription metrics: %w", err)
	}

	bus := event.NewInMemoryEventBus(log.Named("events"))
	bus.Subscribe(event.NewAuditLogHandler(log.Named("audit")))
	bus.Subscribe(event.NewMetricsHandler(metrics))

	jwtService := auth.NewJWTService(cfg.JWT)
	blacklist := auth.NewTokenBlacklist(rdb)

	authService := identityapp.NewAuthService(userRepo, tenantRepo, jwtService, blacklist, log)
	limiter := subscriptionapp.NewTrialLimiter(abuseRepo, subscriptionapp.TrialLimits{
		IPLimit:    cfg.Subscription.TrialIPLimit,
		EmailLimit: cfg.Subscription.TrialEmailLimit,
		Window:     cfg.Subscription.TrialWindow,
	}, log)
	registration := identityapp.NewRegistrationService(tenantRepo, userRepo, abuseRepo, limiter, tx,
		catalog, clock, authService, log)
	registration.SetEventPublisher(bus)
	tenantService := identityapp.NewTenantService(tenantRepo, clock, log)

	confirmation := subscriptionapp.NewConfirmationService(reportRepo, tenantRepo, tx, catalog, clock, log)
	confirmation.SetEventPublisher(bus)
	reports := subscriptionapp.NewPaymentReportService(reportRepo, store, catalog, cfg.Subscription.ProofMaxBytes, log)
	reports.SetEventPublisher(bus)
	renewal := subscriptionapp.NewRenewalService(reportRepo, catalog, clock, cfg.Billing)
	exporter := subscriptionapp.NewPaymentExportService(reportRepo, tenantRepo, cfg.Billing.Currency, log)
	abuse := subscriptionapp.NewTrialAbuseService(abuseRepo, log)

	// expirations reach the counter through the bus one by one, and
	// through SetMetrics for bulk sweeps
	expiry := subscriptionapp.NewExpiryService(tenantRepo, clock, log)
	expiry.SetEventPublisher(bus)
	expiry.SetMetrics(metrics)

	cookies := handler.NewSessionCookies(cfg.Cookie)

	return &application{
		log:     log,
		clock:   clock,
		catalog: catalog,
		tenants: tenantRepo,
		jwt:     jwtService,
		tokens:  blacklist,
		counter: cache.NewWindowCounter(rdb, "mpp365:ratelimit:"),
		meter:   meter,
		metrics: metrics,
		expiry:  expiry,
		handlers: router.Handlers{
			System:       handler.NewSystemHandler(cfg.App.Name, version, db, log),
			Auth:         handler.NewAuthHandler(authService, cookies, log),
			Registration: handler.NewRegistrationHandler(registration, cookies, log),
			Tenants:      handler.NewTenantHandler(tenantService),
			Subscription: handler.NewSubscriptionHandler(renewal, reports, clock, log),
			Sections:     handler.NewSectionHandler(clock),
			Payments:     handler.NewPaymentReviewHandler(confirmation, reports, exporter, log),
			TrialAbuse:   handler.NewTrialAbuseHandler(abuse),
		},
	}, nil
}

// engine builds the gin engine with the request pipeline in order:
// request id, recovery, tracing, metrics, access log, security headers,
// CORS, body limit, rate limit, authentication, tenant resolution, the
// subscription and entitlement gates, profiling labels.
func (a *application) engine(cfg *config.Config) (*gin.Engine, error) {
	engine, err := router.NewEngine(cfg.HTTP.TrustedProxies)
	if err != nil {
		return nil, err
	}

	tracing := middleware.DefaultTracingConfig()
	tracing.Enabled = cfg.Telemetry.Enabled
	if cfg.Telemetry.ServiceName != "" {
		tracing.ServiceName = cfg.Telemetry.ServiceName
	}
	profiling := middleware.DefaultProfilingConfig()
	profiling.Enabled = cfg.Profiling.Enabled

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(a.log),
		middleware.TracingWithConfig(tracing),
		middleware.HTTPMetricsWithConfig(middleware.HTTPMetricsConfig{Meter: a.meter, Logger: a.log}),
		logger.GinMiddleware(a.log),
		middleware.SecureWithConfig(middleware.SecurityConfigFor(cfg.App.Env)),
		middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimitWithConfig(middleware.RateLimitConfig{
			Name:    "site",
			Limit:   cfg.HTTP.RateLimitRequests,
			Window:  cfg.HTTP.RateLimitWindow,
			Counter: a.counter,
			Logger:  a.log,
		}))
		a.log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	engine.Use(
		middleware.OptionalAuthWithConfig(middleware.AuthConfig{
			JWTService: a.jwt,
			Blacklist:  a.tokens,
			Logger:     a.log,
		}),
		middleware.TenantResolverWithConfig(middleware.TenantResolverConfig{
			Lookup: a.tenants,
			Logger: a.log,
		}),
		middleware.TracingAttributeInjector(),
		middleware.SubscriptionGateWithConfig(middleware.SubscriptionGateConfig{
			Normalizer: a.expiry,
			Clock:      a.clock,
			Logger:     a.log,
			Metrics:    a.metrics,
		}),
		middleware.EntitlementGateWithConfig(middleware.EntitlementGateConfig{
			Catalog: a.catalog,
			Logger:  a.log,
			Metrics: a.metrics,
		}),
		middleware.ProfilingWithConfig(profiling),
		middleware.SpanErrorMarker(),
	)

	var authLimit gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		authLimit = middleware.RateLimitWithConfig(middleware.RateLimitConfig{
			Name:    "auth",
			Limit:   cfg.HTTP.AuthRateLimitRequests,
			Window:  cfg.HTTP.AuthRateLimitWindow,
			Counter: a.counter,
			Logger:  a.log,
		})
	}

	r := router.NewRouter(engine)
	router.Mount(r, a.handlers, authLimit)
	r.Setup()
	return engine, nil
}
