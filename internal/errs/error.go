package errs

import (
	"errors"
)

var (
	// ErrUserAlreadyBorrowing - the caller already holds an open loan.
	ErrUserAlreadyBorrowing = errors.New("user already has a borrowed book")
	// ErrBookUnavailable - the book does not exist or is currently borrowed.
	ErrBookUnavailable = errors.New("book not found or is being borrowed")
	// ErrNoActiveLoan - no open loan for this (user, book) pair.
	ErrNoActiveLoan = errors.New("no active loan for this book")

	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("access forbidden")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
