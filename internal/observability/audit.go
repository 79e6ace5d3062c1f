package observability

import (
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Audit logs a security event (sign-in, revocation, deletion) with the
// request coordinates under an "audit" group. attrs are event specific.
func Audit(r *http.Request, event string, attrs ...any) {
	ctx := r.Context()
	slog.Default().With(slog.Group("audit",
		slog.String("event", event),
		slog.String("route", r.Method+" "+r.URL.Path),
		slog.String("request_id", chimiddleware.GetReqID(ctx)),
		slog.String("remote_addr", r.RemoteAddr),
	)).InfoContext(ctx, "security event", attrs...)
}
