package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ezenity/ezenity-api/internal/domain"
	"github.com/ezenity/ezenity-api/internal/mail"
	"github.com/ezenity/ezenity-api/internal/observability"
	"github.com/ezenity/ezenity-api/internal/repository"
	"github.com/ezenity/ezenity-api/internal/security"
)

const maxTokenAttempts = 5

type AccountServiceConfig struct {
	RefreshTokenRetention time.Duration
	ResetTokenTTL         time.Duration
	NegativeLookupTTL     time.Duration
}

// AccountService owns the account and session lifecycle: sign-in, refresh
// token rotation and revocation, registration, email verification and
// password reset. Every mutation runs in its own unit of work.
type AccountService struct {
	uow       repository.UnitOfWork
	accounts  repository.AccountRepository
	jwt       *security.JWTManager
	refresh   *security.RefreshTokenGenerator
	passwords *security.PasswordHasher
	mailer    mail.Dispatcher
	negative  NegativeLookupCache
	cfg       AccountServiceConfig
	logger    *slog.Logger
	now       func() time.Time

	timingHashOnce sync.Once
	timingHash     string
}

func NewAccountService(
	uow repository.UnitOfWork,
	accounts repository.AccountRepository,
	jwt *security.JWTManager,
	refresh *security.RefreshTokenGenerator,
	passwords *security.PasswordHasher,
	mailer mail.Dispatcher,
	negative NegativeLookupCache,
	cfg AccountServiceConfig,
	logger *slog.Logger,
) *AccountService {
	if negative == nil {
		negative = NewNoopNegativeLookupCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		uow:       uow,
		accounts:  accounts,
		jwt:       jwt,
		refresh:   refresh,
		passwords: passwords,
		mailer:    mailer,
		negative:  negative,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	return s
}

func (s *AccountService) Authenticate(ctx context.Context, req AuthenticateRequest, ip string) (resp *AuthenticateResponse, err error) {
	ctx, span := startSpan(ctx, "Authenticate")
	defer func() {
		observability.RecordAuthLogin(statusOf(err))
		endSpan(span, err)
	}()

	now := s.now()
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, dataAccess("authenticate", err)
	}
	defer func() { _ = tx.Rollback() }()

	account, err := tx.Accounts().FindByEmail(ctx, domain.NormalizeEmail(req.Email))
	if errors.Is(err, repository.ErrAccountNotFound) {
		// Spend the same bcrypt work as a real comparison.
		s.passwords.Verify(req.Password, s.timingGuardHash())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, dataAccess("authenticate", err)
	}
	if !s.passwords.Verify(req.Password, account.PasswordHash) || !account.IsVerified() {
		return nil, ErrInvalidCredentials
	}

	resp, err = s.issueSession(ctx, tx, account, nil, ip, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, dataAccess("authenticate", err)
	}
	return resp, nil
}

// RefreshToken rotates an active refresh token into a new session.
func (s *AccountService) RefreshToken(ctx context.Context, token, ip string) (resp *AuthenticateResponse, err error) {
	ctx, span := startSpan(ctx, "RefreshToken")
	defer func() {
		observability.RecordAuthRefresh(statusOf(err))
		endSpan(span, err)
	}()

	now := s.now()
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, dataAccess("refresh token", err)
	}
	defer func() { _ = tx.Rollback() }()

	store := NewRefreshTokenStore(tx.Accounts(), now)
	current, account, err := store.FindActiveByValue(ctx, token)
	if err != nil {
		return nil, err
	}
	resp, err = s.issueSession(ctx, tx, account, current, ip, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, dataAccess("refresh token", err)
	}
	return resp, nil
}

// RevokeToken revokes an active refresh token. The actor must own the token
// or be an Admin.
func (s *AccountService) RevokeToken(ctx context.Context, actor *domain.Account, token, ip string) (err error) {
	ctx, span := startSpan(ctx, "RevokeToken")
	defer func() {
		observability.RecordAuthRevoke(statusOf(err))
		endSpan(span, err)
	}()

	if actor == nil {
		return ErrForbidden
	}
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return dataAccess("revoke token", err)
	}
	defer func() { _ = tx.Rollback() }()

	store := NewRefreshTokenStore(tx.Accounts(), s.now())
	current, owner, err := store.FindActiveByValue(ctx, token)
	if err != nil {
		return err
	}
	if !actor.CanActOn(owner.ID) {
		return ErrForbidden
	}
	if err := store.Revoke(ctx, owner, current, ip); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dataAccess("revoke token", err)
	}
	return nil
}

// Register creates an unverified account and mails a verification token. An
// already registered email gets a notice instead and the call still succeeds,
// so the response does not reveal which addresses exist. The first account
// ever created becomes Admin.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest, origin string) (err error) {
	ctx, span := startSpan(ctx, "Register")
	defer func() { endSpan(span, err) }()

	now := s.now()
	email := domain.NormalizeEmail(req.Email)
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return dataAccess("register", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Accounts().FindByEmail(ctx, email)
	if err == nil {
		_ = tx.Rollback()
		s.notifyAlreadyRegistered(ctx, email, origin)
		return nil
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		observability.RecordAccountRegistration("error")
		return dataAccess("register", err)
	}

	if err := tx.Accounts().LockForBootstrap(ctx); err != nil {
		observability.RecordAccountRegistration("error")
		return dataAccess("register", err)
	}
	existing, err := tx.Accounts().Count(ctx)
	if err != nil {
		observability.RecordAccountRegistration("error")
		return dataAccess("register", err)
	}
	role := domain.RoleUser
	if existing == 0 {
		role = domain.RoleAdmin
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	verification, err := s.uniqueToken(ctx, tx.Accounts().ExistsWithVerificationToken)
	if err != nil {
		observability.RecordAccountRegistration("error")
		return err
	}
	account := &domain.Account{
		Title:             req.Title,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             email,
		PasswordHash:      hash,
		Role:              role,
		AcceptTerms:       req.AcceptTerms,
		VerificationToken: &verification,
		CreatedAt:         now,
	}
	if err := tx.Accounts().Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			_ = tx.Rollback()
			s.notifyAlreadyRegistered(ctx, email, origin)
			return nil
		}
		observability.RecordAccountRegistration("error")
		return dataAccess("register", err)
	}
	if err := tx.Commit(); err != nil {
		observability.RecordAccountRegistration("error")
		return dataAccess("register", err)
	}

	observability.RecordAccountRegistration("created")
	if err := s.negative.Forget(ctx, NamespaceMissingAccount, accountKey(account.ID)); err != nil {
		s.logger.WarnContext(ctx, "negative cache forget failed", "op", "register", "error", err)
	}
	s.logger.InfoContext(ctx, "account registered", "op", "register", "account_id", account.ID, "role", string(role))
	s.dispatch(ctx, mail.Message{
		To:       email,
		Template: mail.TemplateVerifyEmail,
		Values:   map[string]string{"Origin": origin, "Token": verification},
	})
	return nil
}

func (s *AccountService) VerifyEmail(ctx context.Context, token string) (err error) {
	ctx, span := startSpan(ctx, "VerifyEmail")
	defer func() { endSpan(span, err) }()

	if token == "" {
		return ErrInvalidVerificationToken
	}
	now := s.now()
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return dataAccess("verify email", err)
	}
	defer func() { _ = tx.Rollback() }()

	account, err := tx.Accounts().FindByVerificationToken(ctx, token)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return ErrInvalidVerificationToken
	}
	if err != nil {
		return dataAccess("verify email", err)
	}
	account.Verified = &now
	account.VerificationToken = nil
	if err := tx.Accounts().Update(ctx, account); err != nil {
		return dataAccess("verify email", err)
	}
	if err := tx.Commit(); err != nil {
		return dataAccess("verify email", err)
	}
	return nil
}

// ForgotPassword issues a reset token valid for the configured TTL. Unknown
// emails are accepted silently.
func (s *AccountService) ForgotPassword(ctx context.Context, email, origin string) (err error) {
	ctx, span := startSpan(ctx, "ForgotPassword")
	defer func() { endSpan(span, err) }()

	now := s.now()
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return dataAccess("forgot password", err)
	}
	defer func() { _ = tx.Rollback() }()

	account, err := tx.Accounts().FindByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return dataAccess("forgot password", err)
	}
	token, err := s.uniqueToken(ctx, tx.Accounts().ExistsWithResetToken)
	if err != nil {
		return err
	}
	expires := now.Add(s.cfg.ResetTokenTTL)
	account.ResetToken = &token
	account.ResetTokenExpires = &expires
	if err := tx.Accounts().Update(ctx, account); err != nil {
		return dataAccess("forgot password", err)
	}
	if err := tx.Commit(); err != nil {
		return dataAccess("forgot password", err)
	}
	s.dispatch(ctx, mail.Message{
		To:       account.Email,
		Template: mail.TemplatePasswordReset,
		Values:   map[string]string{"Origin": origin, "Token": token},
	})
	return nil
}

func (s *AccountService) ValidateResetToken(ctx context.Context, token string) (err error) {
	ctx, span := startSpan(ctx, "ValidateResetToken")
	defer func() { endSpan(span, err) }()

	if token == "" {
		return ErrInvalidToken
	}
	_, err = s.accounts.FindByResetToken(ctx, token, s.now())
	if errors.Is(err, repository.ErrAccountNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return dataAccess("validate reset token", err)
	}
	return nil
}

func (s *AccountService) ResetPassword(ctx context.Context, req ResetPasswordRequest) (err error) {
	ctx, span := startSpan(ctx, "ResetPassword")
	defer func() { endSpan(span, err) }()

	if req.Token == "" {
		return ErrInvalidToken
	}
	now := s.now()
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return dataAccess("reset password", err)
	}
	defer func() { _ = tx.Rollback() }()

	account, err := tx.Accounts().FindByResetToken(ctx, req.Token, now)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return dataAccess("reset password", err)
	}
	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	account.PasswordHash = hash
	account.PasswordReset = &now
	account.ResetToken = nil
	account.ResetTokenExpires = nil
	if err := tx.Accounts().Update(ctx, account); err != nil {
		return dataAccess("reset password", err)
	}
	if err := tx.Commit(); err != nil {
		return dataAccess("reset password", err)
	}
	s.logger.InfoContext(ctx, "password reset", "op", "reset_password", "account_id", account.ID)
	return nil
}

// Current loads the account behind an authenticated request. Ids that
// recently resolved to nothing are answered from the negative cache.
func (s *AccountService) Current(ctx context.Context, id uint) (*domain.Account, error) {
	key := accountKey(id)
	hit, err := s.negative.Has(ctx, NamespaceMissingAccount, key)
	switch {
	case err != nil:
		observability.RecordNegativeLookupCacheEvent(ctx, NamespaceMissingAccount, "error")
	case hit:
		observability.RecordNegativeLookupCacheEvent(ctx, NamespaceMissingAccount, "hit")
		return nil, ErrNotFound
	default:
		observability.RecordNegativeLookupCacheEvent(ctx, NamespaceMissingAccount, "miss")
	}

	account, err := s.accounts.FindByID(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		if err := s.negative.Remember(ctx, NamespaceMissingAccount, key, s.cfg.NegativeLookupTTL); err != nil {
			s.logger.WarnContext(ctx, "negative cache remember failed", "op", "current", "error", err)
		} else {
			observability.RecordNegativeLookupCacheEvent(ctx, NamespaceMissingAccount, "store")
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dataAccess("load account", err)
	}
	return account, nil
}

func (s *AccountService) GetAll(ctx context.Context, page repository.PageRequest) (repository.PageResult[AccountView], error) {
	result, err := s.accounts.List(ctx, page)
	if err != nil {
		return repository.PageResult[AccountView]{}, dataAccess("list accounts", err)
	}
	views := make([]AccountView, 0, len(result.Items))
	for i := range result.Items {
		views = append(views, NewAccountView(&result.Items[i]))
	}
	return repository.PageResult[AccountView]{
		Items:      views,
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	}, nil
}

func (s *AccountService) GetByID(ctx context.Context, actor *domain.Account, id uint) (*AccountView, error) {
	account, err := s.loadFor(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	view := NewAccountView(account)
	return &view, nil
}

func (s *AccountService) RefreshTokens(ctx context.Context, actor *domain.Account, id uint) ([]RefreshTokenView, error) {
	account, err := s.loadFor(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]RefreshTokenView, 0, len(account.RefreshTokens))
	for _, t := range account.RefreshTokens {
		views = append(views, newRefreshTokenView(t, now))
	}
	return views, nil
}

func (s *AccountService) Update(ctx context.Context, actor *domain.Account, id uint, req UpdateRequest) (view *AccountView, err error) {
	ctx, span := startSpan(ctx, "Update")
	defer func() { endSpan(span, err) }()

	if actor == nil || !actor.CanActOn(id) {
		return nil, ErrForbidden
	}
	now := s.now()
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, dataAccess("update account", err)
	}
	defer func() { _ = tx.Rollback() }()

	account, err := tx.Accounts().FindByID(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dataAccess("update account", err)
	}

	if email := domain.NormalizeEmail(req.Email); email != "" && email != account.Email {
		_, err := tx.Accounts().FindByEmail(ctx, email)
		if err == nil {
			return nil, ErrEmailTaken
		}
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return nil, dataAccess("update account", err)
		}
		account.Email = email
	}
	if req.Password != "" {
		hash, err := s.passwords.Hash(req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		account.PasswordHash = hash
	}
	if req.Role != "" && actor.HasRole(domain.RoleAdmin) {
		account.Role = domain.Role(req.Role)
	}
	if req.Title != "" {
		account.Title = req.Title
	}
	if req.FirstName != "" {
		account.FirstName = req.FirstName
	}
	if req.LastName != "" {
		account.LastName = req.LastName
	}
	account.UpdatedAt = &now

	if err := tx.Accounts().Update(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, dataAccess("update account", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, dataAccess("update account", err)
	}
	v := NewAccountView(account)
	return &v, nil
}

func (s *AccountService) Delete(ctx context.Context, actor *domain.Account, id uint) (err error) {
	ctx, span := startSpan(ctx, "Delete")
	defer func() { endSpan(span, err) }()

	if actor == nil || !actor.CanActOn(id) {
		return ErrForbidden
	}
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return dataAccess("delete account", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.Accounts().Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrNotFound
		}
		return dataAccess("delete account", err)
	}
	if err := tx.Commit(); err != nil {
		return dataAccess("delete account", err)
	}
	s.logger.InfoContext(ctx, "account deleted", "op", "delete", "account_id", id, "actor_id", actor.ID)
	return nil
}

// PruneExpiredTokens removes inactive refresh tokens older than the
// retention window across all accounts.
func (s *AccountService) PruneExpiredTokens(ctx context.Context) (int64, error) {
	now := s.now()
	removed, err := s.accounts.SweepRefreshTokens(ctx, now.Add(-s.cfg.RefreshTokenRetention), now)
	if err != nil {
		return 0, dataAccess("sweep refresh tokens", err)
	}
	observability.RecordRefreshTokenSweep(ctx, removed)
	return removed, nil
}

// issueSession signs an access token and stores a fresh refresh token. When
// current is set the new token replaces it through rotation.
func (s *AccountService) issueSession(ctx context.Context, tx repository.Tx, account *domain.Account, current *domain.RefreshToken, ip string, now time.Time) (*AuthenticateResponse, error) {
	access, err := s.jwt.SignAccessToken(account.ID, string(account.Role), now)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	next, err := s.refresh.Generate(ip, now)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	store := NewRefreshTokenStore(tx.Accounts(), now)
	if current != nil {
		err = store.ReplaceWithRotation(ctx, account, current, next, ip)
	} else {
		err = store.Add(ctx, account, next)
	}
	if err != nil {
		return nil, err
	}
	if _, err := store.PruneInactive(ctx, account, s.cfg.RefreshTokenRetention); err != nil {
		return nil, err
	}
	return &AuthenticateResponse{
		AccountView:  NewAccountView(account),
		JWTToken:     access,
		ExpiresIn:    int64(s.jwt.AccessTTL() / time.Second),
		RefreshToken: next.Token,
		RefreshUntil: next.Expires,
	}, nil
}

func (s *AccountService) loadFor(ctx context.Context, actor *domain.Account, id uint) (*domain.Account, error) {
	if actor == nil || !actor.CanActOn(id) {
		return nil, ErrForbidden
	}
	account, err := s.accounts.FindByID(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dataAccess("load account", err)
	}
	return account, nil
}

func (s *AccountService) uniqueToken(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for range maxTokenAttempts {
		token, err := security.RandomTokenString()
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		taken, err := exists(ctx, token)
		if err != nil {
			return "", dataAccess("check token uniqueness", err)
		}
		if !taken {
			return token, nil
		}
	}
	return "", errors.New("generate token: no unique value after retries")
}

func (s *AccountService) notifyAlreadyRegistered(ctx context.Context, email, origin string) {
	observability.RecordAccountRegistration("duplicate")
	s.dispatch(ctx, mail.Message{
		To:       email,
		Template: mail.TemplateAlreadyRegistered,
		Values:   map[string]string{"Origin": origin, "Email": email},
	})
}

func (s *AccountService) dispatch(ctx context.Context, msg mail.Message) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "mail dispatch failed", "template", string(msg.Template), "error", err)
	}
}

func (s *AccountService) timingGuardHash() string {
	s.timingHashOnce.Do(func() {
		s.timingHash, _ = s.passwords.Hash("ezenity-timing-guard")
	})
	return s.timingHash
}

func accountKey(id uint) string { return strconv.FormatUint(uint64(id), 10) }
