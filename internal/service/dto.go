package service

import (
	"time"

	"github.com/ezenity/ezenity-api/internal/domain"
)

type AuthenticateRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Title           string `json:"title" validate:"required"`
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	AcceptTerms     bool   `json:"acceptTerms" validate:"eq=true"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ValidateResetTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// RevokeTokenRequest falls back to the refresh token cookie when Token is empty.
type RevokeTokenRequest struct {
	Token string `json:"token"`
}

// UpdateRequest changes only the non-empty fields. Role is ignored unless the
// caller is an Admin.
type UpdateRequest struct {
	Title           string `json:"title"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"omitempty,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
	Role            string `json:"role" validate:"omitempty,oneof=Admin User"`
}

type AccountView struct {
	ID         uint       `json:"id"`
	Title      string     `json:"title"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Created    time.Time  `json:"created"`
	Updated    *time.Time `json:"updated,omitempty"`
	IsVerified bool       `json:"isVerified"`
}

func NewAccountView(a *domain.Account) AccountView {
	return AccountView{
		ID:         a.ID,
		Title:      a.Title,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Email:      a.Email,
		Role:       string(a.Role),
		Created:    a.CreatedAt,
		Updated:    a.UpdatedAt,
		IsVerified: a.IsVerified(),
	}
}

// AuthenticateResponse is the session handed back on login and refresh. The
// refresh token only travels in the HttpOnly cookie.
type AuthenticateResponse struct {
	AccountView
	JWTToken     string    `json:"jwtToken"`
	ExpiresIn    int64     `json:"expiresIn"`
	RefreshToken string    `json:"-"`
	RefreshUntil time.Time `json:"-"`
}

type RefreshTokenView struct {
	ID              uint       `json:"id"`
	Token           string     `json:"token"`
	Expires         time.Time  `json:"expires"`
	Created         time.Time  `json:"created"`
	CreatedByIP     string     `json:"createdByIp"`
	Revoked         *time.Time `json:"revoked,omitempty"`
	RevokedByIP     string     `json:"revokedByIp,omitempty"`
	ReplacedByToken string     `json:"replacedByToken,omitempty"`
	IsActive        bool       `json:"isActive"`
}

func newRefreshTokenView(t domain.RefreshToken, now time.Time) RefreshTokenView {
	return RefreshTokenView{
		ID:              t.ID,
		Token:           t.Token,
		Expires:         t.Expires,
		Created:         t.Created,
		CreatedByIP:     t.CreatedByIP,
		Revoked:         t.Revoked,
		RevokedByIP:     t.RevokedByIP,
		ReplacedByToken: t.ReplacedByToken,
		IsActive:        t.IsActive(now),
	}
}
