package model

import "errors"

// Store-level errors.
var (
	ErrNotFound         = errors.New("record not found")
	ErrRotationConflict = errors.New("token rotation conflict")
)

// Codec-level errors.
var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Session taxonomy. Every failure leaving the session service is one of
// these; raw store and codec errors never cross into the transport layer.
var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	ErrMissingTokens        = errors.New("missing tokens")
	ErrTokenCreationFailed  = errors.New("token creation failed")
	ErrUnavailable          = errors.New("credential store unavailable")
)

// User-facing errors surfaced by the auth service.
var (
	ErrUserExists         = errors.New("user or email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many attempts")
)
