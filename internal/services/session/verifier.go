package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/auth"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/user"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/obs"
)

// Verifier resolves the caller's identity once per request. A valid access
// token wins; otherwise a live refresh cookie is exchanged for a new access
// token, which is set on the response. If neither works the request goes on
// anonymously and the authorization gate decides.
type Verifier struct {
	log     *zap.Logger
	uc      *UseCase
	issuer  *auth.Issuer
	cookies CookieConfig
}

func NewVerifier(log *zap.Logger, uc *UseCase, issuer *auth.Issuer, cookies CookieConfig) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{log: log, uc: uc, issuer: issuer, cookies: cookies.withDefaults()}
}

func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access := accessToken(r, v.cookies.AccessName)
		refresh := readCookie(r, v.cookies.RefreshName)

		id, reissued, ok := v.Resolve(r.Context(), access, refresh)
		if reissued != nil {
			v.cookies.setAccess(w, reissued.Access, reissued.AccessExpiresAt, v.issuer.Now())
		}
		if ok {
			r = r.WithContext(auth.WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// Resolve runs the verification state machine over raw credentials. reissued
// is non-nil when a new access token was minted from the refresh token and
// must be handed back to the client.
func (v *Verifier) Resolve(ctx context.Context, access, refresh string) (id user.Identity, reissued *auth.TokenPair, ok bool) {
	if access != "" {
		if claims, err := v.issuer.Verify(access); err == nil {
			mVerifications.WithLabelValues(resultAccess).Inc()
			return auth.IdentityFromClaims(claims), nil, true
		}
	}
	if refresh == "" {
		mVerifications.WithLabelValues(resultAnonymous).Inc()
		return user.Identity{}, nil, false
	}

	id, pair, outcome := v.silentRefresh(ctx, refresh)
	mVerifications.WithLabelValues(outcome).Inc()
	if outcome != resultReissued {
		return user.Identity{}, nil, false
	}
	return id, &pair, true
}

func (v *Verifier) silentRefresh(ctx context.Context, refresh string) (user.Identity, auth.TokenPair, string) {
	start := time.Now()
	u, pair, err := v.uc.RefreshAccess(ctx, refresh)
	outcome := resultReissued
	switch {
	case err == nil:
	case errors.Is(err, ErrStoreUnavailable):
		outcome = resultUnavailable
		obs.WithTrace(ctx, v.log).Error("silent refresh: store unavailable", zap.Error(err))
	default:
		outcome = resultInvalid
		obs.WithTrace(ctx, v.log).Debug("silent refresh rejected", zap.Error(err))
	}
	mSilentRefresh.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		return user.Identity{}, auth.TokenPair{}, outcome
	}
	return u.Identity(), pair, outcome
}

func accessToken(r *http.Request, cookie string) string {
	if t := readCookie(r, cookie); t != "" {
		return t
	}
	return bearer(r.Header.Get("Authorization"))
}

func bearer(h string) string {
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireRoles rejects requests without an identity (401) or whose role is
// not listed (403). No roles means any authenticated caller.
func RequireRoles(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := auth.IdentityFromCtx(r.Context())
			switch auth.Authorize(id, roles...) {
			case auth.DenyUnauthenticated:
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			case auth.DenyForbidden:
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
