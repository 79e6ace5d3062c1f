package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ezenity/ezenity-api/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedAccount(t *testing.T, repo AccountRepository, email string) *domain.Account {
	t.Helper()
	acct := &domain.Account{
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.Create(t.Context(), acct); err != nil {
		t.Fatalf("create account %s: %v", email, err)
	}
	return acct
}

func strPtr(v string) *string { return &v }
