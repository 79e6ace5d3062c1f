package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "abcdefghijklmnopqrstuvwxyz123456"

func TestSignAndParseAccessToken(t *testing.T) {
	now := time.Now()
	mgr := NewJWTManager("iss", "aud", testSecret, 15*time.Minute)
	raw, err := mgr.SignAccessToken(42, "Admin", now)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := mgr.ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	id, err := claims.AccountID()
	if err != nil || id != 42 {
		t.Fatalf("expected account id 42, got %d (%v)", id, err)
	}
	if claims.Role != "Admin" {
		t.Fatalf("unexpected role %q", claims.Role)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 15*time.Minute {
		t.Fatalf("expected 15m lifetime, got %s", got)
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	issued := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	mgr := NewJWTManager("iss", "aud", testSecret, 15*time.Minute).
		WithClock(func() time.Time { return issued.Add(16 * time.Minute) })
	raw, err := mgr.SignAccessToken(1, "User", issued)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := mgr.ParseAccessToken(raw); !errors.Is(err, ErrInvalidAccessToken) || !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestParseAccessTokenRejectsTampering(t *testing.T) {
	mgr := NewJWTManager("iss", "aud", testSecret, 15*time.Minute)
	raw, err := mgr.SignAccessToken(1, "User", time.Now())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parts := strings.Split(raw, ".")
	forged, err := NewJWTManager("iss", "aud", testSecret, 15*time.Minute).SignAccessToken(2, "Admin", time.Now())
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}
	tampered := parts[0] + "." + strings.Split(forged, ".")[1] + "." + parts[2]
	if _, err := mgr.ParseAccessToken(tampered); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected tampered payload to be rejected, got %v", err)
	}

	other := NewJWTManager("iss", "aud", "zyxwvutsrqponmlkjihgfedcba654321", 15*time.Minute)
	if _, err := other.ParseAccessToken(raw); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
	if _, err := NewJWTManager("iss", "other-aud", testSecret, time.Minute).ParseAccessToken(raw); err == nil {
		t.Fatal("expected audience mismatch to be rejected")
	}
}

func TestParseAccessTokenRejectsNoneAlgorithm(t *testing.T) {
	mgr := NewJWTManager("iss", "aud", testSecret, 15*time.Minute)
	claims := Claims{
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "iss",
			Subject:   "1",
			Audience:  []string{"aud"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := mgr.ParseAccessToken(raw); err == nil {
		t.Fatal("expected alg=none token to be rejected")
	}
}

func TestClaimsAccountIDRejectsBadSubject(t *testing.T) {
	for _, sub := range []string{"", "0", "abc", "-1"} {
		c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}
		if _, err := c.AccountID(); !errors.Is(err, ErrInvalidAccessToken) {
			t.Fatalf("subject %q: expected ErrInvalidAccessToken, got %v", sub, err)
		}
	}
}
