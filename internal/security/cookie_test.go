package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSetRefreshTokenCookieAttributes(t *testing.T) {
	rr := httptest.NewRecorder()
	expires := time.Now().Add(7 * 24 * time.Hour)
	SetRefreshTokenCookie(rr, "value-1", expires)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != RefreshTokenCookie || c.Value != "value-1" {
		t.Fatalf("unexpected cookie %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteNoneMode {
		t.Fatalf("expected HttpOnly, Secure, SameSite=None: %+v", c)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(c)
	if got := GetCookie(req, RefreshTokenCookie); got != "value-1" {
		t.Fatalf("GetCookie()=%q", got)
	}
	if got := GetCookie(req, "missing"); got != "" {
		t.Fatalf("expected empty value for missing cookie, got %q", got)
	}
}
