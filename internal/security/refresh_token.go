package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ezenity/ezenity-api/internal/domain"
)

const randomTokenBytes = 40

// RandomTokenString returns 40 bytes from the OS CSPRNG, hex encoded.
func RandomTokenString() (string, error) {
	buf := make([]byte, randomTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

type RefreshTokenGenerator struct {
	ttl time.Duration
}

func NewRefreshTokenGenerator(ttl time.Duration) *RefreshTokenGenerator {
	return &RefreshTokenGenerator{ttl: ttl}
}

func (g *RefreshTokenGenerator) Generate(ip string, now time.Time) (*domain.RefreshToken, error) {
	value, err := RandomTokenString()
	if err != nil {
		return nil, err
	}
	return &domain.RefreshToken{
		Token:       value,
		Created:     now,
		Expires:     now.Add(g.ttl),
		CreatedByIP: ip,
	}, nil
}
