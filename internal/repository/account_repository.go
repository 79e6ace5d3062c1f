package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ezenity/ezenity-api/internal/domain"
	"github.com/ezenity/ezenity-api/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrTokenNotRevocable = errors.New("refresh token already revoked")
)

type AccountRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByVerificationToken(ctx context.Context, token string) (*domain.Account, error)
	FindByResetToken(ctx context.Context, token string, now time.Time) (*domain.Account, error)
	FindByRefreshToken(ctx context.Context, token string) (*domain.Account, error)
	List(ctx context.Context, page PageRequest) (PageResult[domain.Account], error)
	Count(ctx context.Context) (int64, error)
	LockForBootstrap(ctx context.Context) error
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	Delete(ctx context.Context, id uint) error
	ExistsWithVerificationToken(ctx context.Context, token string) (bool, error)
	ExistsWithResetToken(ctx context.Context, token string) (bool, error)
	AddRefreshToken(ctx context.Context, accountID uint, token *domain.RefreshToken) error
	RevokeRefreshToken(ctx context.Context, tokenID uint, revokedAt time.Time, ip, replacedBy string) error
	DeleteRefreshTokens(ctx context.Context, accountID uint, tokenIDs []uint) (int64, error)
	SweepRefreshTokens(ctx context.Context, createdBefore, now time.Time) (int64, error)
}

type GormAccountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository { return &GormAccountRepository{db: db} }

func record(ctx context.Context, op string, err error) {
	switch {
	case err == nil:
		observability.RecordRepositoryOperation(ctx, "account", op, "success")
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrAccountNotFound):
		observability.RecordRepositoryOperation(ctx, "account", op, "not_found")
	default:
		observability.RecordRepositoryOperation(ctx, "account", op, "error")
	}
}

func (r *GormAccountRepository) findOne(ctx context.Context, op string, query *gorm.DB) (*domain.Account, error) {
	var a domain.Account
	err := query.Preload("RefreshTokens").First(&a).Error
	record(ctx, op, err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormAccountRepository) FindByID(ctx context.Context, id uint) (*domain.Account, error) {
	return r.findOne(ctx, "find_by_id", r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, "find_by_email", r.db.WithContext(ctx).Where("email = ?", email))
}

func (r *GormAccountRepository) FindByVerificationToken(ctx context.Context, token string) (*domain.Account, error) {
	return r.findOne(ctx, "find_by_verification_token", r.db.WithContext(ctx).Where("verification_token = ?", token))
}

func (r *GormAccountRepository) FindByResetToken(ctx context.Context, token string, now time.Time) (*domain.Account, error) {
	return r.findOne(ctx, "find_by_reset_token",
		r.db.WithContext(ctx).Where("reset_token = ? AND reset_token_expires > ?", token, now))
}

// FindByRefreshToken loads the owning account. On postgres the token row is
// locked for the rest of the transaction so concurrent rotations serialise.
func (r *GormAccountRepository) FindByRefreshToken(ctx context.Context, token string) (*domain.Account, error) {
	var rt domain.RefreshToken
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).
		First(&rt).Error
	if err != nil {
		record(ctx, "find_by_refresh_token", err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return r.findOne(ctx, "find_by_refresh_token", r.db.WithContext(ctx).Where("id = ?", rt.AccountID))
}

func (r *GormAccountRepository) List(ctx context.Context, page PageRequest) (PageResult[domain.Account], error) {
	req := normalizePageRequest(page)
	result := PageResult[domain.Account]{Page: req.Page, PageSize: req.PageSize}
	base := r.db.WithContext(ctx).Model(&domain.Account{})
	if err := base.Count(&result.Total).Error; err != nil {
		record(ctx, "list", err)
		return PageResult[domain.Account]{}, err
	}
	offset := (req.Page - 1) * req.PageSize
	if err := base.Order("id ASC").Offset(offset).Limit(req.PageSize).Find(&result.Items).Error; err != nil {
		record(ctx, "list", err)
		return PageResult[domain.Account]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, req.PageSize)
	record(ctx, "list", nil)
	return result, nil
}

func (r *GormAccountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Account{}).Count(&n).Error
	record(ctx, "count", err)
	return n, err
}

// LockForBootstrap serialises registrations that depend on the account count.
// SQLite already serialises writers, so it is a no-op there.
func (r *GormAccountRepository) LockForBootstrap(ctx context.Context) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	err := r.db.WithContext(ctx).Exec("LOCK TABLE accounts IN SHARE ROW EXCLUSIVE MODE").Error
	record(ctx, "lock_for_bootstrap", err)
	return err
}

func (r *GormAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(account).Error
	record(ctx, "create", err)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *GormAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Save(account).Error
	record(ctx, "update", err)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *GormAccountRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&domain.RefreshToken{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Account{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAccountNotFound
		}
		return nil
	})
	record(ctx, "delete", err)
	return err
}

func (r *GormAccountRepository) ExistsWithVerificationToken(ctx context.Context, token string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Account{}).Where("verification_token = ?", token).Count(&n).Error
	record(ctx, "exists_with_verification_token", err)
	return n > 0, err
}

func (r *GormAccountRepository) ExistsWithResetToken(ctx context.Context, token string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Account{}).Where("reset_token = ?", token).Count(&n).Error
	record(ctx, "exists_with_reset_token", err)
	return n > 0, err
}

func (r *GormAccountRepository) AddRefreshToken(ctx context.Context, accountID uint, token *domain.RefreshToken) error {
	token.AccountID = accountID
	err := r.db.WithContext(ctx).Create(token).Error
	record(ctx, "add_refresh_token", err)
	return err
}

// RevokeRefreshToken only touches a token that is not yet revoked. When no row
// changes, another transaction got there first and ErrTokenNotRevocable is
// returned.
func (r *GormAccountRepository) RevokeRefreshToken(ctx context.Context, tokenID uint, revokedAt time.Time, ip, replacedBy string) error {
	updates := map[string]any{
		"revoked":           revokedAt,
		"revoked_by_ip":     ip,
		"replaced_by_token": replacedBy,
	}
	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("id = ? AND revoked IS NULL", tokenID).
		Updates(updates)
	if res.Error != nil {
		record(ctx, "revoke_refresh_token", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "account", "revoke_refresh_token", "conflict")
		return ErrTokenNotRevocable
	}
	record(ctx, "revoke_refresh_token", nil)
	return nil
}

func (r *GormAccountRepository) DeleteRefreshTokens(ctx context.Context, accountID uint, tokenIDs []uint) (int64, error) {
	if len(tokenIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("account_id = ? AND id IN ?", accountID, tokenIDs).
		Delete(&domain.RefreshToken{})
	record(ctx, "delete_refresh_tokens", res.Error)
	return res.RowsAffected, res.Error
}

// SweepRefreshTokens removes inactive tokens created before createdBefore
// across all accounts.
func (r *GormAccountRepository) SweepRefreshTokens(ctx context.Context, createdBefore, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created <= ? AND (revoked IS NOT NULL OR expires <= ?)", createdBefore, now).
		Delete(&domain.RefreshToken{})
	record(ctx, "sweep_refresh_tokens", res.Error)
	return res.RowsAffected, res.Error
}
