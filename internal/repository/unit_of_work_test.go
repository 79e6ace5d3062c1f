package repository

import (
	"errors"
	"testing"

	"github.com/ezenity/ezenity-api/internal/domain"
)

func TestUnitOfWorkCommit(t *testing.T) {
	db := newDBForTest(t)
	uow := NewUnitOfWork(db)
	tx, err := uow.Begin(t.Context())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	seedAccount(t, tx.Accounts(), "commit@example.com")
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback after commit should be a no-op: %v", err)
	}
	if err := tx.Commit(); !errors.Is(err, ErrTxDone) {
		t.Fatalf("expected ErrTxDone, got %v", err)
	}

	var n int64
	db.Model(&domain.Account{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected committed account, got %d", n)
	}
}

func TestUnitOfWorkRollbackDiscardsAllWrites(t *testing.T) {
	db := newDBForTest(t)
	uow := NewUnitOfWork(db)
	tx, err := uow.Begin(t.Context())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	acct := seedAccount(t, tx.Accounts(), "rollback@example.com")
	if err := tx.Accounts().AddRefreshToken(t.Context(), acct.ID, &domain.RefreshToken{Token: "rb"}); err != nil {
		t.Fatalf("add token: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	var accounts, tokens int64
	db.Model(&domain.Account{}).Count(&accounts)
	db.Model(&domain.RefreshToken{}).Count(&tokens)
	if accounts != 0 || tokens != 0 {
		t.Fatalf("expected no persisted rows after rollback, got accounts=%d tokens=%d", accounts, tokens)
	}
}
