package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/user"
)

func TestAuthorize(t *testing.T) {
	admin := &user.Identity{SubjectID: "U-01", Role: user.RoleAdmin}
	lead := &user.Identity{SubjectID: "U-02", Role: user.RoleTeamLead}
	upper := &user.Identity{SubjectID: "U-03", Role: user.Role("Admin")}

	tests := []struct {
		name    string
		id      *user.Identity
		allowed []user.Role
		want    Decision
	}{
		{"no identity", nil, []user.Role{user.RoleAdmin}, DenyUnauthenticated},
		{"empty subject", &user.Identity{Role: user.RoleAdmin}, []user.Role{user.RoleAdmin}, DenyUnauthenticated},
		{"matching role", admin, []user.Role{user.RoleAdmin}, Permit},
		{"one of many", lead, []user.Role{user.RoleAdmin, user.RoleTeamLead}, Permit},
		{"wrong role", lead, []user.Role{user.RoleAdmin}, DenyForbidden},
		{"case sensitive", upper, []user.Role{user.RoleAdmin}, DenyForbidden},
		{"any authenticated", lead, nil, Permit},
		{"any authenticated without identity", nil, nil, DenyUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.id, tt.allowed...))
		})
	}
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromCtx(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), user.Identity{SubjectID: "U-01", Role: user.RoleEmployee})
	id, ok := IdentityFromCtx(ctx)
	require.True(t, ok)
	assert.Equal(t, "U-01", id.SubjectID)
}
