package auth

import (
	"context"
	"time"
)

type RefreshTokenRepo interface {
	Create(ctx context.Context, t *RefreshToken) error
	// FindLive returns ErrRefreshNotFound for unknown and expired records alike.
	FindLive(ctx context.Context, tokenHash string, now time.Time) (*RefreshToken, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev SessionEvent)
}
