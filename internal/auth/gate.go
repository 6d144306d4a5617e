package auth

import (
	"context"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/user"
)

type Decision int

const (
	Permit Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Permit:
		return "permit"
	case DenyUnauthenticated:
		return "unauthenticated"
	case DenyForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Authorize compares roles exactly. An empty allow list admits any
// authenticated identity.
func Authorize(id *user.Identity, allowed ...user.Role) Decision {
	if id == nil || id.SubjectID == "" {
		return DenyUnauthenticated
	}
	if len(allowed) == 0 {
		return Permit
	}
	for _, r := range allowed {
		if id.Role == r {
			return Permit
		}
	}
	return DenyForbidden
}

type ctxKey int

const identityKey ctxKey = 1

func WithIdentity(ctx context.Context, id user.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromCtx(ctx context.Context) (*user.Identity, bool) {
	id, ok := ctx.Value(identityKey).(user.Identity)
	if !ok {
		return nil, false
	}
	return &id, true
}
