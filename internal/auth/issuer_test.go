package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/ujjwal-capsitech/GritsaFlow/internal/domain/auth"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/user"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestIssuer(t *testing.T, c *clock) *Issuer {
	t.Helper()
	iss, err := NewIssuer(Config{
		Secret:     []byte("test-secret-key-0123456789abcdef"),
		Issuer:     "GritsaFlow",
		Audience:   "GritsaFlowClient",
		AccessTTL:  10 * time.Minute,
		RefreshTTL: 10 * time.Hour,
		Now:        c.now,
	})
	require.NoError(t, err)
	return iss
}

var alice = user.Identity{SubjectID: "U-01", DisplayName: "Alice", Role: user.RoleTeamLead}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	iss := newTestIssuer(t, c)

	pair, err := iss.IssueTokens(alice, true)
	require.NoError(t, err)
	assert.Equal(t, c.t.Add(10*time.Minute), pair.AccessExpiresAt)

	claims, err := iss.Verify(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, alice, IdentityFromClaims(claims))
	assert.NotEmpty(t, claims.ID)
}

func TestIssueWithoutRefresh(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	iss := newTestIssuer(t, c)

	pair, err := iss.IssueTokens(alice, false)
	require.NoError(t, err)
	assert.Empty(t, pair.Refresh)
	assert.True(t, pair.RefreshExpiresAt.IsZero())
}

func TestIssueWithRefresh(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	iss := newTestIssuer(t, c)

	a, err := iss.IssueTokens(alice, true)
	require.NoError(t, err)
	b, err := iss.IssueTokens(alice, true)
	require.NoError(t, err)

	assert.NotEmpty(t, a.Refresh)
	assert.NotEqual(t, a.Refresh, b.Refresh)
	assert.Equal(t, c.t.Add(10*time.Hour), a.RefreshExpiresAt)
}

func TestVerifyExpiryBoundary(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	iss := newTestIssuer(t, c)
	issued := c.t

	pair, err := iss.IssueTokens(alice, false)
	require.NoError(t, err)

	c.t = issued.Add(10*time.Minute - time.Second)
	_, err = iss.Verify(pair.Access)
	require.NoError(t, err)

	c.t = issued.Add(10 * time.Minute)
	_, err = iss.Verify(pair.Access)
	require.ErrorIs(t, err, ErrTokenInvalid)

	c.t = issued.Add(11 * time.Minute)
	_, err = iss.Verify(pair.Access)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejects(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	iss := newTestIssuer(t, c)

	pair, err := iss.IssueTokens(alice, false)
	require.NoError(t, err)

	other, err := NewIssuer(Config{Secret: []byte("another-key"), Issuer: "GritsaFlow", Audience: "GritsaFlowClient", Now: c.now})
	require.NoError(t, err)
	foreign, err := other.IssueTokens(alice, false)
	require.NoError(t, err)

	wrongAud, err := NewIssuer(Config{Secret: []byte("test-secret-key-0123456789abcdef"), Issuer: "GritsaFlow", Audience: "Elsewhere", Now: c.now})
	require.NoError(t, err)
	elsewhere, err := wrongAud.IssueTokens(alice, false)
	require.NoError(t, err)

	parts := strings.Split(pair.Access, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, domain.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "U-01",
			Issuer:    "GritsaFlow",
			Audience:  jwt.ClaimStrings{"GritsaFlowClient"},
			ExpiresAt: jwt.NewNumericDate(c.t.Add(time.Hour)),
		},
		Role: "admin",
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not-a-jwt",
		"foreign key":    foreign.Access,
		"wrong audience": elsewhere.Access,
		"tampered":       tampered,
		"alg none":       unsigned,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Verify(tok)
			require.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer(Config{})
	require.ErrorIs(t, err, ErrNoSecret)
}

func TestHashToken(t *testing.T) {
	raw, err := GenerateRawToken(32)
	require.NoError(t, err)
	assert.Equal(t, HashToken(raw), HashToken(raw))
	assert.NotEqual(t, raw, HashToken(raw))
}
