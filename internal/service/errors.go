package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                 = errors.New("account not found")
	ErrInvalidCredentials       = errors.New("email or password is incorrect")
	ErrInvalidToken             = errors.New("invalid token")
	ErrInvalidVerificationToken = errors.New("verification failed")
	ErrForbidden                = errors.New("unauthorized")
	ErrEmailTaken               = errors.New("email already registered")
	ErrDataAccess               = errors.New("data access failure")
)

func dataAccess(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrDataAccess, err)
}
