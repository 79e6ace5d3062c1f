package service

import (
	"context"

	"github.com/ezenity/ezenity-api/internal/domain"
	"github.com/ezenity/ezenity-api/internal/repository"
)

type AccountServiceInterface interface {
	Authenticate(ctx context.Context, req AuthenticateRequest, ip string) (*AuthenticateResponse, error)
	RefreshToken(ctx context.Context, token, ip string) (*AuthenticateResponse, error)
	RevokeToken(ctx context.Context, actor *domain.Account, token, ip string) error
	Register(ctx context.Context, req RegisterRequest, origin string) error
	VerifyEmail(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email, origin string) error
	ValidateResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	GetAll(ctx context.Context, page repository.PageRequest) (repository.PageResult[AccountView], error)
	GetByID(ctx context.Context, actor *domain.Account, id uint) (*AccountView, error)
	Update(ctx context.Context, actor *domain.Account, id uint, req UpdateRequest) (*AccountView, error)
	Delete(ctx context.Context, actor *domain.Account, id uint) error
	RefreshTokens(ctx context.Context, actor *domain.Account, id uint) ([]RefreshTokenView, error)
}

// AccountLoader resolves the account behind an authenticated request.
type AccountLoader interface {
	Current(ctx context.Context, id uint) (*domain.Account, error)
}

var (
	_ AccountServiceInterface = (*AccountService)(nil)
	_ AccountLoader           = (*AccountService)(nil)
)
