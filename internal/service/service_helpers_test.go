package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ezenity/ezenity-api/internal/domain"
	"github.com/ezenity/ezenity-api/internal/mail"
	"github.com/ezenity/ezenity-api/internal/repository"
	"github.com/ezenity/ezenity-api/internal/security"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "correct-horse"

type serviceFixture struct {
	svc      *AccountService
	db       *gorm.DB
	accounts repository.AccountRepository
	mail     *mail.Recorder
	jwt      *security.JWTManager
	negative *InMemoryNegativeLookupCache
	now      time.Time
}

func (f *serviceFixture) clock() time.Time { return f.now }

func (f *serviceFixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func newServiceForTest(t *testing.T) *serviceFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	f := &serviceFixture{
		db:       db,
		accounts: repository.NewAccountRepository(db),
		mail:     mail.NewRecorder(),
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.jwt = security.NewJWTManager("ezenity-api", "ezenity", "0123456789abcdef0123456789abcdef", 15*time.Minute).WithClock(f.clock)
	f.negative = NewInMemoryNegativeLookupCache(f.clock)
	f.svc = NewAccountService(
		repository.NewUnitOfWork(db),
		f.accounts,
		f.jwt,
		security.NewRefreshTokenGenerator(7*24*time.Hour),
		security.NewPasswordHasher(bcrypt.MinCost),
		f.mail,
		f.negative,
		AccountServiceConfig{
			RefreshTokenRetention: 2 * 24 * time.Hour,
			ResetTokenTTL:         24 * time.Hour,
			NegativeLookupTTL:     time.Minute,
		},
		nil,
	).WithClock(f.clock)
	return f
}

func registerRequest(email string) RegisterRequest {
	return RegisterRequest{
		Title:           "Mx",
		FirstName:       "Test",
		LastName:        "User",
		Email:           email,
		Password:        testPassword,
		ConfirmPassword: testPassword,
		AcceptTerms:     true,
	}
}

// registerVerified registers email, follows the verification mail and
// returns the stored account.
func (f *serviceFixture) registerVerified(t *testing.T, email string) *domain.Account {
	t.Helper()
	ctx := context.Background()
	if err := f.svc.Register(ctx, registerRequest(email), ""); err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	msg, ok := f.mail.Last(domain.NormalizeEmail(email))
	if !ok || msg.Template != mail.TemplateVerifyEmail {
		t.Fatalf("expected verification mail for %s, got %+v", email, msg)
	}
	if err := f.svc.VerifyEmail(ctx, msg.Values["Token"]); err != nil {
		t.Fatalf("verify %s: %v", email, err)
	}
	account, err := f.accounts.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		t.Fatalf("load %s: %v", email, err)
	}
	return account
}

func (f *serviceFixture) login(t *testing.T, email string) *AuthenticateResponse {
	t.Helper()
	resp, err := f.svc.Authenticate(context.Background(), AuthenticateRequest{Email: email, Password: testPassword}, "127.0.0.1")
	if err != nil {
		t.Fatalf("authenticate %s: %v", email, err)
	}
	return resp
}

func (f *serviceFixture) reload(t *testing.T, id uint) *domain.Account {
	t.Helper()
	account, err := f.accounts.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload account %d: %v", id, err)
	}
	return account
}
