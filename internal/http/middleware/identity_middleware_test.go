package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ezenity/ezenity-api/internal/domain"
	"github.com/ezenity/ezenity-api/internal/security"
	"github.com/ezenity/ezenity-api/internal/service"
)

type testAccountLoader struct {
	accounts map[uint]*domain.Account
	err      error
	calls    int
}

func (l *testAccountLoader) Current(_ context.Context, id uint) (*domain.Account, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	a, ok := l.accounts[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return a, nil
}

func newTestJWTManager() *security.JWTManager {
	return security.NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456", 15*time.Minute)
}

func serveIdentity(t *testing.T, jwtMgr *security.JWTManager, loader service.AccountLoader, header string) (*httptest.ResponseRecorder, *domain.Account) {
	t.Helper()
	var seen *domain.Account
	h := Identity(jwtMgr, loader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AccountFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/1", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr, seen
}

func TestIdentityWithoutHeaderIsAnonymous(t *testing.T) {
	loader := &testAccountLoader{}
	rr, seen := serveIdentity(t, newTestJWTManager(), loader, "")
	if rr.Code != http.StatusNoContent || seen != nil || loader.calls != 0 {
		t.Fatalf("expected anonymous pass-through, got code=%d account=%v calls=%d", rr.Code, seen, loader.calls)
	}
}

func TestIdentityAttachesAccount(t *testing.T) {
	jwtMgr := newTestJWTManager()
	token, err := jwtMgr.SignAccessToken(42, string(domain.RoleUser), time.Now())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	loader := &testAccountLoader{accounts: map[uint]*domain.Account{42: {ID: 42, Role: domain.RoleUser}}}
	rr, seen := serveIdentity(t, jwtMgr, loader, "Bearer "+token)
	if rr.Code != http.StatusNoContent || seen == nil || seen.ID != 42 {
		t.Fatalf("expected account 42 in context, got code=%d account=%v", rr.Code, seen)
	}
}

func TestIdentityRejectsBadTokens(t *testing.T) {
	jwtMgr := newTestJWTManager()
	expired, err := jwtMgr.SignAccessToken(42, "User", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	other := security.NewJWTManager("iss", "aud", "zyxwvutsrqponmlkjihgfedcba654321", 15*time.Minute)
	forged, err := other.SignAccessToken(42, "Admin", time.Now())
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}
	missing, err := jwtMgr.SignAccessToken(7, "User", time.Now())
	if err != nil {
		t.Fatalf("sign missing: %v", err)
	}

	loader := &testAccountLoader{accounts: map[uint]*domain.Account{42: {ID: 42}}}
	cases := map[string]string{
		"malformed scheme": "Token abc",
		"empty bearer":     "Bearer ",
		"garbage":          "Bearer not-a-jwt",
		"expired":          "Bearer " + expired,
		"bad signature":    "Bearer " + forged,
		"unknown account":  "Bearer " + missing,
	}
	for name, header := range cases {
		rr, seen := serveIdentity(t, jwtMgr, loader, header)
		if rr.Code != http.StatusUnauthorized || seen != nil {
			t.Fatalf("%s: expected 401, got %d", name, rr.Code)
		}
	}
}

func TestIdentityLoaderFailureIsServerError(t *testing.T) {
	jwtMgr := newTestJWTManager()
	token, _ := jwtMgr.SignAccessToken(42, "User", time.Now())
	loader := &testAccountLoader{err: errors.New("db down")}
	rr, _ := serveIdentity(t, jwtMgr, loader, "Bearer "+token)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestRequireAccount(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	cases := []struct {
		name    string
		account *domain.Account
		roles   []domain.Role
		want    int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "any account", account: &domain.Account{ID: 1, Role: domain.RoleUser}, want: http.StatusNoContent},
		{name: "wrong role", account: &domain.Account{ID: 1, Role: domain.RoleUser}, roles: []domain.Role{domain.RoleAdmin}, want: http.StatusForbidden},
		{name: "admin", account: &domain.Account{ID: 1, Role: domain.RoleAdmin}, roles: []domain.Role{domain.RoleAdmin}, want: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.account != nil {
				req = req.WithContext(WithAccount(req.Context(), tc.account))
			}
			rr := httptest.NewRecorder()
			RequireAccount(tc.roles...)(ok).ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}
