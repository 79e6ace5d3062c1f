package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidAccessToken = errors.New("invalid access token")

type Claims struct {
	TokenType string `json:"token_type"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AccountID returns the account id carried in the subject claim.
func (c *Claims) AccountID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidAccessToken
	}
	return uint(id), nil
}

type JWTManager struct {
	issuer    string
	audience  string
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewJWTManager(issuer, audience, secret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{
		issuer:    issuer,
		audience:  audience,
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for validating expiry.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

func (m *JWTManager) AccessTTL() time.Duration { return m.accessTTL }

func (m *JWTManager) SignAccessToken(accountID uint, role string, now time.Time) (string, error) {
	claims := Claims{
		TokenType: "access",
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatUint(uint64(accountID), 10),
			Audience:  []string{m.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *JWTManager) ParseAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidAccessToken
	}
	if claims.TokenType != "access" {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidAccessToken, claims.TokenType)
	}
	return claims, nil
}
