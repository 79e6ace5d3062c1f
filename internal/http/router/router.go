package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ezenity/ezenity-api/internal/domain"
	"github.com/ezenity/ezenity-api/internal/health"
	"github.com/ezenity/ezenity-api/internal/http/handler"
	"github.com/ezenity/ezenity-api/internal/http/middleware"
	"github.com/ezenity/ezenity-api/internal/http/response"
	"github.com/ezenity/ezenity-api/internal/security"
	"github.com/ezenity/ezenity-api/internal/service"
)

type Dependencies struct {
	AccountHandler    *handler.AccountHandler
	JWTManager        *security.JWTManager
	Accounts          service.AccountLoader
	CORSOrigins       []string
	AuthRateLimitRPM  int
	APIRateLimitRPM   int
	GlobalRateLimiter GlobalRateLimiterFunc
	AuthRateLimiter   AuthRateLimiterFunc
	Readiness         *health.Runner
	EnableOTelHTTP    bool
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler
type AuthRateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewLocalRateLimiter(dep.AuthRateLimitRPM, time.Minute, "auth").Middleware()
	}
	globalLimiter := dep.GlobalRateLimiter
	if globalLimiter == nil {
		globalLimiter = middleware.NewRateLimiter(nil, dep.APIRateLimitRPM, time.Minute, middleware.FailClosed, "api", middleware.AccountOrIPKey).Middleware()
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1/accounts", func(r chi.Router) {
		r.Use(middleware.Identity(dep.JWTManager, dep.Accounts))
		r.Use(globalLimiter)
		h := dep.AccountHandler

		r.With(authLimiter).Post("/authenticate", h.Authenticate)
		r.With(authLimiter).Post("/refresh-token", h.RefreshToken)
		r.With(authLimiter).Post("/register", h.Register)
		r.With(authLimiter).Post("/verify-email", h.VerifyEmail)
		r.With(authLimiter).Post("/forgot-password", h.ForgotPassword)
		r.With(authLimiter).Post("/validate-reset-token", h.ValidateResetToken)
		r.With(authLimiter).Post("/reset-password", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAccount())
			r.Post("/revoke-token", h.RevokeToken)
			r.Get("/{id}", h.GetByID)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Get("/{id}/refresh-tokens", h.RefreshTokens)
		})
		r.With(middleware.RequireAccount(domain.RoleAdmin)).Get("/", h.GetAll)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
