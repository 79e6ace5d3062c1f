package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/ezenity/ezenity-api/internal/security"
)

type Config struct {
	BaseURL    string
	Email      string
	Password   string
	HTTPClient *http.Client
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type session struct {
	ID       uint   `json:"id"`
	JWTToken string `json:"jwtToken"`
}

// refreshSource mints access tokens by rotating the refresh cookie. It is
// the oauth2.TokenSource behind the smoke client.
type refreshSource struct {
	baseURL string
	client  *http.Client

	mu      sync.Mutex
	refresh string
}

func (s *refreshSource) current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

func (s *refreshSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/api/v1/accounts/refresh-token", nil)
	if err != nil {
		return nil, err
	}
	req.AddCookie(&http.Cookie{Name: security.RefreshTokenCookie, Value: s.refresh})
	var out session
	cookie, err := call(s.client, req, &out)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if cookie == "" {
		return nil, fmt.Errorf("refresh: response carried no refresh cookie")
	}
	s.refresh = cookie
	return accessToken(out.JWTToken), nil
}

func accessToken(raw string) *oauth2.Token {
	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err == nil && claims.ExpiresAt != nil {
		tok.Expiry = claims.ExpiresAt.Time
	}
	return tok
}

// call performs req and decodes the success envelope into dst. It returns
// the refresh cookie value when the response sets one.
func call(client *http.Client, req *http.Request, dst any) (string, error) {
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", resp.Status, err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		if env.Error != nil {
			return "", fmt.Errorf("%s: %s", resp.Status, env.Error.Message)
		}
		return "", fmt.Errorf("%s", resp.Status)
	}
	if dst != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			return "", fmt.Errorf("decode data: %w", err)
		}
	}
	for _, c := range resp.Cookies() {
		if c.Name == security.RefreshTokenCookie && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", nil
}

func postJSON(ctx context.Context, url string, payload any) (*http.Request, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Run signs in, reads the account through an auto-refreshing client,
// rotates and revokes the refresh token, and confirms the revoked token is
// rejected. Each completed step adds a detail line.
func Run(ctx context.Context, cfg Config) ([]string, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	var details []string

	req, err := postJSON(ctx, base+"/api/v1/accounts/authenticate", map[string]string{"email": cfg.Email, "password": cfg.Password})
	if err != nil {
		return nil, err
	}
	var login session
	refresh, err := call(httpClient, req, &login)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if refresh == "" {
		return nil, fmt.Errorf("authenticate: response carried no refresh cookie")
	}
	details = append(details, fmt.Sprintf("authenticated account_id=%d", login.ID))

	src := &refreshSource{baseURL: base, client: httpClient, refresh: refresh}
	ts := oauth2.ReuseTokenSource(accessToken(login.JWTToken), src)
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, httpClient), ts)

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/v1/accounts/%d", base, login.ID), nil)
	if err != nil {
		return details, err
	}
	if _, err := call(client, req, nil); err != nil {
		return details, fmt.Errorf("get account: %w", err)
	}
	details = append(details, "bearer account lookup: ok")

	if _, err := src.Token(); err != nil {
		return details, err
	}
	rotated := src.current()
	if rotated == refresh {
		return details, fmt.Errorf("refresh token was not rotated")
	}
	details = append(details, "refresh rotation: ok")

	req, err = postJSON(ctx, base+"/api/v1/accounts/revoke-token", map[string]string{"token": rotated})
	if err != nil {
		return details, err
	}
	if _, err := call(client, req, nil); err != nil {
		return details, fmt.Errorf("revoke: %w", err)
	}
	details = append(details, "revoke: ok")

	if _, err := src.Token(); err == nil {
		return details, fmt.Errorf("revoked refresh token was accepted")
	}
	details = append(details, "revoked token rejected: ok")
	return details, nil
}
