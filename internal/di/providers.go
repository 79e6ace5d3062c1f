package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/ezenity/ezenity-api/internal/app"
	"github.com/ezenity/ezenity-api/internal/config"
	"github.com/ezenity/ezenity-api/internal/health"
	"github.com/ezenity/ezenity-api/internal/http/handler"
	"github.com/ezenity/ezenity-api/internal/http/middleware"
	"github.com/ezenity/ezenity-api/internal/http/router"
	"github.com/ezenity/ezenity-api/internal/mail"
	"github.com/ezenity/ezenity-api/internal/observability"
	"github.com/ezenity/ezenity-api/internal/repository"
	"github.com/ezenity/ezenity-api/internal/security"
	"github.com/ezenity/ezenity-api/internal/service"
)

const (
	rateLimitPrefix      = "ezenity:rate_limit"
	negativeLookupPrefix = "ezenity:negative_lookup"
)

var CoreSet = wire.NewSet(
	ProvideLogging,
	ProvideLogger,
	ProvideDB,
	ProvideRedis,
	repository.NewUnitOfWork,
	repository.NewAccountRepository,
	ProvideJWTManager,
	ProvideRefreshTokenGenerator,
	ProvidePasswordHasher,
	ProvideMailer,
	wire.Bind(new(mail.Dispatcher), new(*mail.Background)),
	ProvideNegativeLookupCache,
	ProvideAccountServiceConfig,
	service.NewAccountService,
)

var HTTPSet = wire.NewSet(
	CoreSet,
	ProvideRuntime,
	wire.Bind(new(service.AccountServiceInterface), new(*service.AccountService)),
	wire.Bind(new(service.AccountLoader), new(*service.AccountService)),
	wire.Bind(new(app.TokenSweeper), new(*service.AccountService)),
	wire.Bind(new(app.Drainer), new(*mail.Background)),
	ProvideAccountHandler,
	ProvideReadiness,
	ProvideRouterDependencies,
	router.NewRouter,
	ProvideHTTPServer,
	app.New,
)

type Logging struct {
	Logger   *slog.Logger
	Provider *sdklog.LoggerProvider
}

func ProvideLogging(ctx context.Context, cfg *config.Config) (*Logging, func(), error) {
	logger, lp, err := observability.NewLogger(ctx, cfg, os.Stdout)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	cleanup := func() {
		if lp != nil {
			_ = lp.Shutdown(context.Background())
		}
	}
	return &Logging{Logger: logger, Provider: lp}, cleanup, nil
}

func ProvideLogger(l *Logging) *slog.Logger { return l.Logger }

// ProvideRuntime owns the logger provider from here on; Runtime.Shutdown
// flushes it together with metrics and traces.
func ProvideRuntime(ctx context.Context, cfg *config.Config, l *Logging) (*observability.Runtime, error) {
	rt, err := observability.InitRuntime(ctx, cfg, l.Logger, l.Provider)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}
	return rt, nil
}

func ProvideDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, func(), error) {
	db, err := repository.Open(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := repository.Migrate(db); err != nil {
		cleanup()
		return nil, nil, err
	}
	return db, cleanup, nil
}

// ProvideRedis returns nil when REDIS_ADDR is unset; callers fall back to
// in-process stores.
func ProvideRedis(cfg *config.Config) (redis.UniversalClient, func()) {
	if cfg.RedisAddr == "" {
		return nil, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return client, func() { _ = client.Close() }
}

func ProvideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret, cfg.AccessTTL)
}

func ProvideRefreshTokenGenerator(cfg *config.Config) *security.RefreshTokenGenerator {
	return security.NewRefreshTokenGenerator(cfg.RefreshTokenTTL)
}

func ProvidePasswordHasher(cfg *config.Config) *security.PasswordHasher {
	return security.NewPasswordHasher(cfg.BcryptCost)
}

func ProvideMailer(cfg *config.Config, logger *slog.Logger) *mail.Background {
	var next mail.Dispatcher
	if cfg.SMTPHost != "" {
		next = mail.NewSMTPDispatcher(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Timeout:  cfg.MailDispatchTimeout,
		})
	} else {
		logger.Warn("SMTP_HOST not set, emails are logged instead of sent")
		next = mail.NewLogDispatcher(logger)
	}
	return mail.NewBackground(next, cfg.MailDispatchTimeout, logger)
}

func ProvideNegativeLookupCache(client redis.UniversalClient) service.NegativeLookupCache {
	if client == nil {
		return service.NewInMemoryNegativeLookupCache(nil)
	}
	return service.NewRedisNegativeLookupCache(client, negativeLookupPrefix)
}

func ProvideAccountServiceConfig(cfg *config.Config) service.AccountServiceConfig {
	return service.AccountServiceConfig{
		RefreshTokenRetention: cfg.RefreshTokenRetention,
		ResetTokenTTL:         cfg.ResetTokenTTL,
		NegativeLookupTTL:     cfg.NegativeLookupTTL,
	}
}

func ProvideAccountHandler(accounts service.AccountServiceInterface, logger *slog.Logger) *handler.AccountHandler {
	return handler.NewAccountHandler(accounts, logger)
}

func ProvideReadiness(db *gorm.DB, client redis.UniversalClient) *health.Runner {
	checkers := []health.Checker{health.NewDBChecker(db)}
	if client != nil {
		checkers = append(checkers, health.NewRedisChecker(client))
	}
	return health.NewRunner(2*time.Second, time.Second, checkers...)
}

func ProvideRouterDependencies(
	cfg *config.Config,
	h *handler.AccountHandler,
	jwtMgr *security.JWTManager,
	accounts service.AccountLoader,
	readiness *health.Runner,
	client redis.UniversalClient,
) router.Dependencies {
	dep := router.Dependencies{
		AccountHandler:   h,
		JWTManager:       jwtMgr,
		Accounts:         accounts,
		CORSOrigins:      cfg.CORSOrigins,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		APIRateLimitRPM:  cfg.APIRateLimitRPM,
		Readiness:        readiness,
		EnableOTelHTTP:   cfg.EnableOTelHTTP,
	}
	if client != nil {
		mode := middleware.FailClosed
		if cfg.RateLimitFailOpen {
			mode = middleware.FailOpen
		}
		limiter := middleware.NewRedisLimiter(client, rateLimitPrefix)
		dep.AuthRateLimiter = middleware.NewRateLimiter(limiter, cfg.AuthRateLimitRPM, time.Minute, mode, "auth", middleware.ClientIPKey).Middleware()
		dep.GlobalRateLimiter = middleware.NewRateLimiter(limiter, cfg.APIRateLimitRPM, time.Minute, mode, "api", middleware.AccountOrIPKey).Middleware()
	}
	return dep
}

func ProvideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
