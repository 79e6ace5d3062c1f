package service

import (
	"context"
	"errors"
	"time"

	"github.com/ezenity/ezenity-api/internal/domain"
	"github.com/ezenity/ezenity-api/internal/repository"
)

// RefreshTokenStore manages the refresh tokens of one account inside a unit
// of work. It writes through the repository and keeps the loaded
// account's token collection in step so callers see the new state without
// reloading.
type RefreshTokenStore struct {
	accounts repository.AccountRepository
	now      time.Time
}

func NewRefreshTokenStore(accounts repository.AccountRepository, now time.Time) *RefreshTokenStore {
	return &RefreshTokenStore{accounts: accounts, now: now}
}

// FindActiveByValue resolves a token value to its owner. Unknown, expired
// and revoked tokens all report ErrInvalidToken.
func (s *RefreshTokenStore) FindActiveByValue(ctx context.Context, value string) (*domain.RefreshToken, *domain.Account, error) {
	if value == "" {
		return nil, nil, ErrInvalidToken
	}
	account, err := s.accounts.FindByRefreshToken(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, dataAccess("find refresh token", err)
	}
	token := account.FindRefreshToken(value)
	if token == nil || !token.IsActive(s.now) {
		return nil, nil, ErrInvalidToken
	}
	return token, account, nil
}

func (s *RefreshTokenStore) Add(ctx context.Context, account *domain.Account, token *domain.RefreshToken) error {
	if err := s.accounts.AddRefreshToken(ctx, account.ID, token); err != nil {
		return dataAccess("add refresh token", err)
	}
	account.RefreshTokens = append(account.RefreshTokens, *token)
	return nil
}

func (s *RefreshTokenStore) Revoke(ctx context.Context, account *domain.Account, token *domain.RefreshToken, ip string) error {
	return s.revoke(ctx, account, token, ip, "")
}

// ReplaceWithRotation revokes old, links it to next and stores next on the
// same account. If another request revoked old first the rotation loses and
// ErrInvalidToken is returned.
func (s *RefreshTokenStore) ReplaceWithRotation(ctx context.Context, account *domain.Account, old, next *domain.RefreshToken, ip string) error {
	if err := s.revoke(ctx, account, old, ip, next.Token); err != nil {
		return err
	}
	return s.Add(ctx, account, next)
}

// PruneInactive deletes inactive tokens older than retention and returns how
// many were removed. Running it twice removes nothing the second time.
func (s *RefreshTokenStore) PruneInactive(ctx context.Context, account *domain.Account, retention time.Duration) (int64, error) {
	var ids []uint
	kept := make([]domain.RefreshToken, 0, len(account.RefreshTokens))
	for _, t := range account.RefreshTokens {
		if t.Prunable(s.now, retention) {
			ids = append(ids, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	removed, err := s.accounts.DeleteRefreshTokens(ctx, account.ID, ids)
	if err != nil {
		return 0, dataAccess("prune refresh tokens", err)
	}
	account.RefreshTokens = kept
	return removed, nil
}

func (s *RefreshTokenStore) revoke(ctx context.Context, account *domain.Account, token *domain.RefreshToken, ip, replacedBy string) error {
	err := s.accounts.RevokeRefreshToken(ctx, token.ID, s.now, ip, replacedBy)
	if errors.Is(err, repository.ErrTokenNotRevocable) {
		return ErrInvalidToken
	}
	if err != nil {
		return dataAccess("revoke refresh token", err)
	}
	revokedAt := s.now
	token.Revoked = &revokedAt
	token.RevokedByIP = ip
	token.ReplacedByToken = replacedBy
	if owned := account.FindRefreshToken(token.Token); owned != nil && owned != token {
		*owned = *token
	}
	return nil
}
