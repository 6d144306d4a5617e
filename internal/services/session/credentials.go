package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/auth"
	domainauth "github.com/ujjwal-capsitech/GritsaFlow/internal/domain/auth"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/user"
)

// Credentials is the refresh credential store as the rest of the service
// sees it: raw tokens in, hashed records underneath. Infrastructure failures
// come back wrapped in ErrStoreUnavailable, never as ErrRefreshInvalid.
type Credentials struct {
	tokens domainauth.RefreshTokenRepo
	users  user.Repo
	now    func() time.Time
}

func NewCredentials(tokens domainauth.RefreshTokenRepo, users user.Repo, now func() time.Time) *Credentials {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Credentials{tokens: tokens, users: users, now: now}
}

func (c *Credentials) Store(ctx context.Context, subjectID, token string, expiresAt time.Time) error {
	rec := &domainauth.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    subjectID,
		TokenHash: auth.HashToken(token),
		IssuedAt:  c.now(),
		ExpiresAt: expiresAt,
	}
	if err := c.tokens.Create(ctx, rec); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// FindLiveBySubjectOfToken resolves a refresh token to the identity that owns
// it. An expired record is treated exactly like a missing one, whether or not
// it has been purged yet.
func (c *Credentials) FindLiveBySubjectOfToken(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, ErrMissingCredential
	}
	rec, err := c.tokens.FindLive(ctx, auth.HashToken(token), c.now())
	if err != nil {
		if errors.Is(err, domainauth.ErrRefreshNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	u, err := c.users.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if !u.IsActive {
		return nil, ErrRefreshInvalid
	}
	return u, nil
}

// Delete is idempotent. An empty token is a no-op.
func (c *Credentials) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := c.tokens.Delete(ctx, auth.HashToken(token)); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (c *Credentials) DeleteAllForSubject(ctx context.Context, subjectID string) error {
	if err := c.tokens.DeleteAllForUser(ctx, subjectID); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (c *Credentials) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := c.tokens.DeleteExpired(ctx, c.now())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return n, nil
}
