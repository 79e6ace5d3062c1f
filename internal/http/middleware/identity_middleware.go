package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ezenity/ezenity-api/internal/domain"
	"github.com/ezenity/ezenity-api/internal/http/response"
	"github.com/ezenity/ezenity-api/internal/observability"
	"github.com/ezenity/ezenity-api/internal/security"
	"github.com/ezenity/ezenity-api/internal/service"
)

type contextKey string

const accountContextKey contextKey = "account"

// Identity resolves the bearer access token into the calling account.
// Requests without an Authorization header continue anonymously; a header
// that fails to parse or validate ends the request with 401 so a stale token
// is never mistaken for an anonymous call.
func Identity(jwtMgr *security.JWTManager, accounts service.AccountLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				observability.RecordAccessTokenValidation(r.Context(), "missing", "none")
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := bearerToken(header)
			if !ok {
				observability.RecordAccessTokenValidation(r.Context(), "malformed", "bearer")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
				return
			}
			claims, err := jwtMgr.ParseAccessToken(raw)
			if err != nil {
				observability.RecordAccessTokenValidation(r.Context(), "invalid", "bearer")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
				return
			}
			id, err := claims.AccountID()
			if err != nil {
				observability.RecordAccessTokenValidation(r.Context(), "invalid", "bearer")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
				return
			}
			account, err := accounts.Current(r.Context(), id)
			if errors.Is(err, service.ErrNotFound) {
				observability.RecordAccessTokenValidation(r.Context(), "unknown_account", "bearer")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
				return
			}
			if err != nil {
				slog.ErrorContext(r.Context(), "load request account failed", "account_id", id, "request_id", response.RequestID(r), "error", err)
				response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
				return
			}
			observability.RecordAccessTokenValidation(r.Context(), "valid", "bearer")
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
		})
	}
}

// RequireAccount rejects anonymous callers with 401 and, when roles are
// given, callers holding none of them with 403.
func RequireAccount(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := AccountFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
				return
			}
			if len(roles) > 0 && !account.HasRole(roles...) {
				observability.Audit(r, "authz.role.denied", "account_id", account.ID, "role", string(account.Role))
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithAccount(ctx context.Context, account *domain.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

func AccountFromContext(ctx context.Context) (*domain.Account, bool) {
	a, ok := ctx.Value(accountContextKey).(*domain.Account)
	return a, ok && a != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
