package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ezenity/ezenity-api/internal/http/middleware"
	"github.com/ezenity/ezenity-api/internal/http/response"
	"github.com/ezenity/ezenity-api/internal/observability"
	"github.com/ezenity/ezenity-api/internal/repository"
	"github.com/ezenity/ezenity-api/internal/security"
	"github.com/ezenity/ezenity-api/internal/service"
)

type AccountHandler struct {
	accounts service.AccountServiceInterface
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAccountHandler(accounts service.AccountServiceInterface, logger *slog.Logger) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountHandler{accounts: accounts, validate: newValidator(), logger: logger}
}

func (h *AccountHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req service.AuthenticateRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	session, err := h.accounts.Authenticate(r.Context(), req, middleware.ClientIP(r))
	if err != nil {
		observability.Audit(r, "auth.login.failed")
		writeServiceError(w, r, h.logger, err)
		return
	}
	observability.Audit(r, "auth.login.succeeded", "account_id", session.ID)
	security.SetRefreshTokenCookie(w, session.RefreshToken, session.RefreshUntil)
	response.JSON(w, r, http.StatusOK, session)
}

func (h *AccountHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := security.GetCookie(r, security.RefreshTokenCookie)
	session, err := h.accounts.RefreshToken(r.Context(), token, middleware.ClientIP(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	security.SetRefreshTokenCookie(w, session.RefreshToken, session.RefreshUntil)
	response.JSON(w, r, http.StatusOK, session)
}

// RevokeToken accepts the token in the body or, failing that, the cookie.
func (h *AccountHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	var req service.RevokeTokenRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	token := req.Token
	if token == "" {
		token = security.GetCookie(r, security.RefreshTokenCookie)
	}
	if token == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Token is required", nil)
		return
	}
	actor, _ := middleware.AccountFromContext(r.Context())
	if err := h.accounts.RevokeToken(r.Context(), actor, token, middleware.ClientIP(r)); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	observability.Audit(r, "auth.token.revoked", "account_id", actor.ID)
	if token == security.GetCookie(r, security.RefreshTokenCookie) {
		security.ClearRefreshTokenCookie(w)
	}
	response.Message(w, r, http.StatusOK, "Token revoked")
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if err := h.accounts.Register(r.Context(), req, r.Header.Get("Origin")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Message(w, r, http.StatusOK, "Registration successful, please check your email for verification instructions")
}

func (h *AccountHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req service.VerifyEmailRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if err := h.accounts.VerifyEmail(r.Context(), req.Token); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Message(w, r, http.StatusOK, "Verification successful, you can now login")
}

func (h *AccountHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req service.ForgotPasswordRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if err := h.accounts.ForgotPassword(r.Context(), req.Email, r.Header.Get("Origin")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Message(w, r, http.StatusOK, "Please check your email for password reset instructions")
}

func (h *AccountHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	var req service.ValidateResetTokenRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if err := h.accounts.ValidateResetToken(r.Context(), req.Token); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Message(w, r, http.StatusOK, "Token is valid")
}

func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req service.ResetPasswordRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if err := h.accounts.ResetPassword(r.Context(), req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	observability.Audit(r, "auth.password.reset")
	response.Message(w, r, http.StatusOK, "Password reset successful, you can now login")
}

func (h *AccountHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	page, err := h.accounts.GetAll(r.Context(), repository.PageRequest{
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "pageSize"),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, page)
}

func (h *AccountHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, _ := middleware.AccountFromContext(r.Context())
	view, err := h.accounts.GetByID(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, view)
}

func (h *AccountHandler) RefreshTokens(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, _ := middleware.AccountFromContext(r.Context())
	tokens, err := h.accounts.RefreshTokens(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, tokens)
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req service.UpdateRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	actor, _ := middleware.AccountFromContext(r.Context())
	view, err := h.accounts.Update(r.Context(), actor, id, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, view)
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, _ := middleware.AccountFromContext(r.Context())
	if err := h.accounts.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	observability.Audit(r, "account.deleted", "account_id", id, "actor_id", actor.ID)
	response.Message(w, r, http.StatusOK, "Account deleted successfully")
}
