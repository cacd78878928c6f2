package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("email or password is not correct")
	// ErrAccountNotVerified is a credential error: the client sees the same 400.
	ErrAccountNotVerified = fmt.Errorf("%w: account not verified", ErrInvalidCredentials)

	ErrInvalidToken   = errors.New("invalid token")
	ErrSessionRevoked = errors.New("session is no longer live")
	ErrMissingSecret  = errors.New("token signing secret is not configured")

	ErrValidation     = errors.New("validation failed")
	ErrPersistence    = errors.New("persistence unavailable")
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("email already exists")
	ErrSenderMismatch = errors.New("sender does not match connection identity")
)
