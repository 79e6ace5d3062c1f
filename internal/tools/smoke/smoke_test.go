package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ezenity/ezenity-api/internal/security"
)

// fakeAPI keeps one account with a rotating set of refresh tokens.
type fakeAPI struct {
	mu      sync.Mutex
	jwt     *security.JWTManager
	active  map[string]bool
	counter int
}

func (f *fakeAPI) issue(w http.ResponseWriter) {
	f.counter++
	refresh := fmt.Sprintf("refresh-%d", f.counter)
	f.active[refresh] = true
	access, err := f.jwt.SignAccessToken(7, "User", time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	security.SetRefreshTokenCookie(w, refresh, time.Now().Add(time.Hour))
	writeData(w, http.StatusOK, map[string]any{"id": 7, "jwtToken": access})
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 400, "data": data})
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": map[string]string{"code": "X", "message": msg}})
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/accounts/authenticate", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret1" {
			writeErr(w, http.StatusUnauthorized, "Email or password is incorrect")
			return
		}
		f.issue(w)
	})
	mux.HandleFunc("POST /api/v1/accounts/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		c, err := r.Cookie(security.RefreshTokenCookie)
		if err != nil || !f.active[c.Value] {
			writeErr(w, http.StatusBadRequest, "Invalid token")
			return
		}
		f.active[c.Value] = false
		f.issue(w)
	})
	mux.HandleFunc("POST /api/v1/accounts/revoke-token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, err := f.jwt.ParseAccessToken(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")); err != nil {
			writeErr(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if !f.active[body["token"]] {
			writeErr(w, http.StatusBadRequest, "Invalid token")
			return
		}
		f.active[body["token"]] = false
		writeData(w, http.StatusOK, map[string]string{"message": "Token revoked"})
	})
	mux.HandleFunc("GET /api/v1/accounts/7", func(w http.ResponseWriter, r *http.Request) {
		if _, err := f.jwt.ParseAccessToken(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")); err != nil {
			writeErr(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		writeData(w, http.StatusOK, map[string]any{"id": 7})
	})
	return mux
}

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	f := &fakeAPI{
		jwt:    security.NewJWTManager("ezenity-api", "ezenity", "abcdefghijklmnopqrstuvwxyz123456", 15*time.Minute),
		active: map[string]bool{},
	}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestRunCompletesLifecycle(t *testing.T) {
	srv := newFakeAPI(t)
	details, err := Run(context.Background(), Config{BaseURL: srv.URL + "/", Email: "a@example.com", Password: "secret1", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("smoke run failed: %v details=%v", err, details)
	}
	want := []string{"authenticated account_id=7", "bearer account lookup: ok", "refresh rotation: ok", "revoke: ok", "revoked token rejected: ok"}
	if strings.Join(details, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestRunReportsAuthenticationFailure(t *testing.T) {
	srv := newFakeAPI(t)
	_, err := Run(context.Background(), Config{BaseURL: srv.URL, Email: "a@example.com", Password: "wrong", HTTPClient: srv.Client()})
	if err == nil || !strings.Contains(err.Error(), "Email or password is incorrect") {
		t.Fatalf("expected authentication error, got %v", err)
	}
}

func TestAccessTokenReadsExpiry(t *testing.T) {
	mgr := security.NewJWTManager("i", "a", "abcdefghijklmnopqrstuvwxyz123456", 15*time.Minute)
	now := time.Now().Truncate(time.Second)
	raw, err := mgr.SignAccessToken(1, "User", now)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	tok := accessToken(raw)
	if !tok.Expiry.Equal(now.Add(15*time.Minute)) || tok.TokenType != "Bearer" {
		t.Fatalf("unexpected token %+v", tok)
	}
}
