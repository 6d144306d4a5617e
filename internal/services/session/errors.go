package session

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMissingCredential  = errors.New("credential missing")
	ErrRefreshInvalid     = errors.New("refresh token invalid or expired")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrUserIDTaken        = errors.New("user id already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserNotFound       = errors.New("user not found")
)
