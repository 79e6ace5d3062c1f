package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
)

func TestAuditGroupsRequestCoordinates(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	req := httptest.NewRequest("POST", "/api/v1/accounts/revoke-token", nil)
	Audit(req, "auth.token.revoked", "account_id", 4)

	var line struct {
		Msg       string `json:"msg"`
		AccountID int    `json:"account_id"`
		Audit     struct {
			Event string `json:"event"`
			Route string `json:"route"`
		} `json:"audit"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode audit line: %v (%s)", err, buf.String())
	}
	if line.Msg != "security event" || line.AccountID != 4 || line.Audit.Event != "auth.token.revoked" || line.Audit.Route != "POST /api/v1/accounts/revoke-token" {
		t.Fatalf("unexpected audit line %s", buf.String())
	}
}
