package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domain "github.com/ujjwal-capsitech/GritsaFlow/internal/domain/auth"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/user"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrNoSecret     = errors.New("signing key is empty")
)

const refreshTokenBytes = 32

type Config struct {
	Secret     []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

type Issuer struct {
	cfg Config
}

// TokenPair holds a freshly minted access token and, when requested, a refresh
// token. RefreshExpiresAt is the zero time when no refresh token was minted.
type TokenPair struct {
	Access           string
	AccessExpiresAt  time.Time
	Refresh          string
	RefreshExpiresAt time.Time
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrNoSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 10 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 10 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Issuer{cfg: cfg}, nil
}

func (i *Issuer) Now() time.Time { return i.cfg.Now() }

func (i *Issuer) AccessTTL() time.Duration { return i.cfg.AccessTTL }

func (i *Issuer) RefreshTTL() time.Duration { return i.cfg.RefreshTTL }

func (i *Issuer) IssueTokens(id user.Identity, includeRefresh bool) (TokenPair, error) {
	now := i.cfg.Now()
	exp := now.Add(i.cfg.AccessTTL)

	claims := domain.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.SubjectID,
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
		Name: id.DisplayName,
		Role: id.Role.String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	pair := TokenPair{Access: signed, AccessExpiresAt: exp}
	if !includeRefresh {
		return pair, nil
	}

	raw, err := GenerateRawToken(refreshTokenBytes)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}
	pair.Refresh = raw
	pair.RefreshExpiresAt = now.Add(i.cfg.RefreshTTL)
	return pair, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry in one pass.
// Every failure is reported as ErrTokenInvalid.
func (i *Issuer) Verify(token string) (*domain.AccessClaims, error) {
	var claims domain.AccessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithAudience(i.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.cfg.Now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Subject == "" || !user.Role(claims.Role).Valid() {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}

func IdentityFromClaims(c *domain.AccessClaims) user.Identity {
	return user.Identity{SubjectID: c.Subject, DisplayName: c.Name, Role: user.Role(c.Role)}
}
