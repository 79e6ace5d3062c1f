package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrTxDone = errors.New("transaction already finished")

// Tx is a single unit of work. Exactly one of Commit or Rollback takes
// effect; Rollback after Commit is a no-op so it can always be deferred.
type Tx interface {
	Accounts() AccountRepository
	Commit() error
	Rollback() error
}

type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

type GormUnitOfWork struct{ db *gorm.DB }

func NewUnitOfWork(db *gorm.DB) UnitOfWork { return &GormUnitOfWork{db: db} }

func (u *GormUnitOfWork) Begin(ctx context.Context) (Tx, error) {
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	return &gormTx{tx: tx, accounts: NewAccountRepository(tx)}, nil
}

type gormTx struct {
	tx       *gorm.DB
	accounts AccountRepository
	done     bool
}

func (t *gormTx) Accounts() AccountRepository { return t.accounts }

func (t *gormTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (t *gormTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback().Error; err != nil && !errors.Is(err, gorm.ErrInvalidTransaction) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}
