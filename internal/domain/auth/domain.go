package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrRefreshNotFound = errors.New("refresh token not found")

// AccessClaims is the payload of the signed access credential.
type AccessClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

// RefreshToken is the persisted record of an issued refresh credential.
// TokenHash is HashToken(raw); the raw token only ever lives in the cookie.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (t *RefreshToken) LiveAt(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}

type EventKind string

const (
	EventLogin      EventKind = "session.login"
	EventLogout     EventKind = "session.logout"
	EventLogoutAll  EventKind = "session.logout_all"
	EventRegistered EventKind = "user.registered"
)

type SessionEvent struct {
	Kind      EventKind
	SubjectID string
	Role      string
	At        time.Time
}
